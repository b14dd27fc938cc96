package signal

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/opendaq/streaming-protocol-go/pkg/wire/descriptor"
	"github.com/stretchr/testify/require"
)

func TestSynchronousValueSignalPacksContiguousValues(t *testing.T) {
	w := &recordingWriter{}
	s := NewSynchronousValueSignal[float64]("volt", "T", 1, descriptor.SampleTypeEnum.Real64, w)

	require.NoError(t, s.AddData(1.5, 2.5, 3.5))
	require.Len(t, w.datas, 1)
	require.Len(t, w.datas[0].payload, 24)

	var got [3]float64
	for i := range got {
		bits := binary.LittleEndian.Uint64(w.datas[0].payload[i*8 : i*8+8])
		got[i] = math.Float64frombits(bits)
	}
	require.Equal(t, [3]float64{1.5, 2.5, 3.5}, got)
}

func TestSynchronousValueSignalNoOpOnEmptyAddData(t *testing.T) {
	w := &recordingWriter{}
	s := NewSynchronousValueSignal[uint32]("x", "T", 1, descriptor.SampleTypeEnum.U32, w)

	require.NoError(t, s.AddData())
	require.Empty(t, w.datas)
}

func TestAsynchronousValueSignalWritesOneFramePerCall(t *testing.T) {
	w := &recordingWriter{}
	s := NewAsynchronousValueSignal[int32]("x", "T", 2, descriptor.SampleTypeEnum.S32, w)

	require.NoError(t, s.AddData(42))
	require.NoError(t, s.AddData(-7))

	require.Len(t, w.datas, 2)
	require.Equal(t, int32(42), int32(binary.LittleEndian.Uint32(w.datas[0].payload)))
	require.Equal(t, int32(-7), int32(binary.LittleEndian.Uint32(w.datas[1].payload)))
}

func TestConstantValueSignalPacksIndexAndValue(t *testing.T) {
	w := &recordingWriter{}
	s := NewConstantValueSignal[uint16]("x", "T", 3, descriptor.SampleTypeEnum.U16, w)

	require.NoError(t, s.AddData([]uint64{100}, []uint16{7}))

	require.Len(t, w.datas, 1)
	payload := w.datas[0].payload
	require.Len(t, payload, 10)
	require.Equal(t, uint64(100), binary.LittleEndian.Uint64(payload[:8]))
	require.Equal(t, uint16(7), binary.LittleEndian.Uint16(payload[8:]))
}

func TestConstantValueSignalPacksMultiplePairsIntoOneFrame(t *testing.T) {
	w := &recordingWriter{}
	s := NewConstantValueSignal[uint16]("x", "T", 3, descriptor.SampleTypeEnum.U16, w)

	require.NoError(t, s.AddData([]uint64{100, 250, 9000}, []uint16{7, 8, 9}))

	require.Len(t, w.datas, 1)
	payload := w.datas[0].payload
	require.Len(t, payload, 30)

	wantIndices := []uint64{100, 250, 9000}
	wantValues := []uint16{7, 8, 9}
	for i := range wantIndices {
		pair := payload[i*10 : i*10+10]
		require.Equal(t, wantIndices[i], binary.LittleEndian.Uint64(pair[:8]))
		require.Equal(t, wantValues[i], binary.LittleEndian.Uint16(pair[8:]))
	}
}

func TestConstantValueSignalNoOpOnEmptyAddData(t *testing.T) {
	w := &recordingWriter{}
	s := NewConstantValueSignal[uint16]("x", "T", 3, descriptor.SampleTypeEnum.U16, w)

	require.NoError(t, s.AddData(nil, nil))
	require.Empty(t, w.datas)
}

func TestConstantValueSignalRejectsMismatchedLengths(t *testing.T) {
	w := &recordingWriter{}
	s := NewConstantValueSignal[uint16]("x", "T", 3, descriptor.SampleTypeEnum.U16, w)

	require.Error(t, s.AddData([]uint64{1, 2}, []uint16{7}))
	require.Empty(t, w.datas)
}

func TestValueSignalDescriptorsCarryRule(t *testing.T) {
	w := &recordingWriter{}

	sync := NewSynchronousValueSignal[float32]("a", "T", 1, descriptor.SampleTypeEnum.Real32, w)
	require.NoError(t, sync.WriteSignalMetaInformation())

	async := NewAsynchronousValueSignal[float32]("b", "T", 2, descriptor.SampleTypeEnum.Real32, w)
	require.NoError(t, async.WriteSignalMetaInformation())

	constant := NewConstantValueSignal[float32]("c", "T", 3, descriptor.SampleTypeEnum.Real32, w)
	require.NoError(t, constant.WriteSignalMetaInformation())

	require.Len(t, w.metas, 3)

	desc := w.metas[0].params.(descriptor.Descriptor)
	require.Equal(t, descriptor.RuleEnum.Explicit.String(), desc.Definition.Rule)

	desc = w.metas[2].params.(descriptor.Descriptor)
	require.Equal(t, descriptor.RuleEnum.Constant.String(), desc.Definition.Rule)
}
