// Package stream implements the producer-side stream writer (spec §4.6):
// a single mutex-guarded serializer that turns meta/data calls into frames
// on a shared transport, so concurrent producer goroutines never interleave.
package stream

import (
	"io"
	"sync"

	"github.com/opendaq/streaming-protocol-go/pkg/metrics"
	"github.com/opendaq/streaming-protocol-go/pkg/protoerr"
	"github.com/opendaq/streaming-protocol-go/pkg/wire/frame"
	"github.com/opendaq/streaming-protocol-go/pkg/wire/meta"
)

// Writer is the producer-side frame serializer. Exactly one Writer backs
// one transport/session; every producer goroutine sharing that session
// writes through the same Writer instance.
type Writer struct {
	id        string
	transport io.Writer
	mutex     sync.Mutex
}

// New wraps transport (typically a WebSocket connection or raw TCP socket)
// with a frame-level Writer identified by id, a caller-chosen identifier
// (such as a transport endpoint URL or a session GUID) used for
// diagnostics; the producer session announces the same id as its streamId.
func New(id string, transport io.Writer) *Writer {
	return &Writer{id: id, transport: transport}
}

// ID returns the identifier this Writer was created with.
func (w *Writer) ID() string {
	return w.id
}

// WriteMetaInformation encodes method/params to a MessagePack meta
// envelope and emits it as one gathered [header][meta-type][body] write,
// holding the writer's mutex for the duration of the frame.
func (w *Writer) WriteMetaInformation(signalNumber uint32, method string, params any) error {
	body, err := meta.Encode(meta.Envelope{Method: method, Params: params})
	if err != nil {
		return err
	}

	header := frame.EncodeHeader(frame.TypeEnum.MetaInformation, signalNumber, uint32(len(body)))

	w.mutex.Lock()
	defer w.mutex.Unlock()

	if _, err := w.transport.Write(append(header, body...)); err != nil {
		return protoerr.Wrap(protoerr.KindEnum.TransportError, err, "writing meta frame for signal %d", signalNumber)
	}

	metrics.FramesEncoded.WithLabelValues("meta").Inc()
	return nil
}

// WriteSignalData emits payload as one [header][payload] data frame for
// signalNumber. A zero-length payload is never emitted on the wire (spec
// §4.1); callers must not invoke this with an empty payload.
func (w *Writer) WriteSignalData(signalNumber uint32, payload []byte) error {
	if len(payload) == 0 {
		return protoerr.New(protoerr.KindEnum.MalformedHeader, "refusing to emit zero-length data frame for signal %d", signalNumber)
	}

	header := frame.EncodeHeader(frame.TypeEnum.SignalData, signalNumber, uint32(len(payload)))

	w.mutex.Lock()
	defer w.mutex.Unlock()

	if _, err := w.transport.Write(append(header, payload...)); err != nil {
		return protoerr.Wrap(protoerr.KindEnum.TransportError, err, "writing data frame for signal %d", signalNumber)
	}

	metrics.FramesEncoded.WithLabelValues("data").Inc()
	return nil
}
