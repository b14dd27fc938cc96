package signal

// recordingWriter is a FrameWriter test double that records every call
// instead of encoding real frames, so tests can assert on raw payloads.
type recordingWriter struct {
	metas []metaCall
	datas []dataCall
}

type metaCall struct {
	signalNumber uint32
	method       string
	params       any
}

type dataCall struct {
	signalNumber uint32
	payload      []byte
}

func (w *recordingWriter) WriteMetaInformation(signalNumber uint32, method string, params any) error {
	w.metas = append(w.metas, metaCall{signalNumber, method, params})
	return nil
}

func (w *recordingWriter) WriteSignalData(signalNumber uint32, payload []byte) error {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	w.datas = append(w.datas, dataCall{signalNumber, cp})
	return nil
}

var _ FrameWriter = (*recordingWriter)(nil)
