package signal

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/opendaq/streaming-protocol-go/pkg/wire/descriptor"
	"github.com/stretchr/testify/require"
)

func newTimeSignal(t *testing.T, rule descriptor.Rule, delta uint64) *Signal {
	t.Helper()

	ts := New(1)
	def := descriptor.Definition{
		DataType: "uint64",
		Rule:     rule.String(),
		Unit:     descriptor.Unit{ID: descriptor.SecondsID, Quantity: descriptor.TimeQuantity},
		Resolution: &descriptor.Resolution{
			Numerator:   1,
			Denominator: 1_000_000,
		},
	}
	if rule == descriptor.RuleEnum.Linear {
		def.Linear = &descriptor.LinearDefinition{Delta: delta}
	}

	require.NoError(t, ts.HandleDescriptor(descriptor.Descriptor{Definition: def}))
	require.True(t, ts.IsTimeSignal())

	return ts
}

func newDataSignal(t *testing.T, dataType string, rule descriptor.Rule) *Signal {
	t.Helper()

	ds := New(2)
	require.NoError(t, ds.HandleDescriptor(descriptor.Descriptor{
		Definition: descriptor.Definition{DataType: dataType, Rule: rule.String()},
	}))
	return ds
}

func TestHandleSubscribeAcceptsStringAndNumber(t *testing.T) {
	s := New(1)
	require.NoError(t, s.HandleSubscribe(map[string]any{"signalId": "volt"}))
	require.Equal(t, "volt", s.ID())

	s2 := New(2)
	require.NoError(t, s2.HandleSubscribe(map[string]any{"signalId": int64(42)}))
	require.Equal(t, "42", s2.ID())
}

func TestHandleSubscribeRejectsMissingOrObjectSignalID(t *testing.T) {
	s := New(1)
	require.Error(t, s.HandleSubscribe(map[string]any{}))

	s2 := New(2)
	require.Error(t, s2.HandleSubscribe(map[string]any{"signalId": map[string]any{}}))
}

func TestHandleDescriptorRejectsLinearWithoutDelta(t *testing.T) {
	s := New(1)
	err := s.HandleDescriptor(descriptor.Descriptor{
		Definition: descriptor.Definition{
			DataType: "uint64",
			Rule:     descriptor.RuleEnum.Linear.String(),
		},
	})
	require.Error(t, err)
}

func TestHandleDescriptorRejectsUnknownDataType(t *testing.T) {
	s := New(1)
	err := s.HandleDescriptor(descriptor.Descriptor{
		Definition: descriptor.Definition{DataType: "dynamicArray"},
	})
	require.Error(t, err)
}

func TestHandleDescriptorRejectsBadBitfieldUnderlyingType(t *testing.T) {
	s := New(1)
	err := s.HandleDescriptor(descriptor.Descriptor{
		Definition: descriptor.Definition{
			DataType: "bitField32",
			BitField: &descriptor.BitFieldDefinition{DataType: "uint16"},
		},
	})
	require.Error(t, err)
}

func TestHandleDescriptorRequiresResolutionForTimeSignal(t *testing.T) {
	s := New(1)
	err := s.HandleDescriptor(descriptor.Descriptor{
		Definition: descriptor.Definition{
			DataType: "uint64",
			Rule:     descriptor.RuleEnum.Explicit.String(),
			Unit:     descriptor.Unit{ID: descriptor.SecondsID, Quantity: descriptor.TimeQuantity},
		},
	})
	require.Error(t, err)
}

func TestApplyTimeFrameLinearSetsAnchorFromSecondWord(t *testing.T) {
	ts := newTimeSignal(t, descriptor.RuleEnum.Linear, 1000)

	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[:8], 2)
	binary.LittleEndian.PutUint64(buf[8:], 30_000_000)

	require.NoError(t, ts.ApplyTimeFrame(buf))
	require.Equal(t, uint64(30_000_000), ts.Time())
}

func TestApplyTimeFrameExplicitRejectsWrongSize(t *testing.T) {
	ts := newTimeSignal(t, descriptor.RuleEnum.Explicit, 0)
	require.Error(t, ts.ApplyTimeFrame([]byte{1, 2, 3}))
}

func TestWallClockTimeConvertsTicksUsingResolutionAndEpoch(t *testing.T) {
	ts := newTimeSignal(t, descriptor.RuleEnum.Linear, 1000)

	got, err := ts.WallClockTime(30_000_000)
	require.NoError(t, err)
	require.Equal(t, time.Date(1970, 1, 1, 0, 0, 30, 0, time.UTC), got)
}

func TestWallClockTimeRejectsMalformedAbsRef(t *testing.T) {
	ts := New(1)
	require.NoError(t, ts.HandleDescriptor(descriptor.Descriptor{
		Definition: descriptor.Definition{
			DataType:   "uint64",
			Rule:       descriptor.RuleEnum.Linear.String(),
			Unit:       descriptor.Unit{ID: descriptor.SecondsID, Quantity: descriptor.TimeQuantity},
			Resolution: &descriptor.Resolution{Numerator: 1, Denominator: 1_000_000},
			Linear:     &descriptor.LinearDefinition{Delta: 1000},
			AbsRef:     "not a date at all!!",
		},
	}))

	_, err := ts.WallClockTime(1)
	require.Error(t, err)
}

func TestApplyDataFrameLinearExplicitReconstructsTimestamps(t *testing.T) {
	ts := newTimeSignal(t, descriptor.RuleEnum.Linear, 1000)
	require.NoError(t, ts.ApplyTimeFrame(append(
		binaryLE64(0), binaryLE64(30_000_000)...,
	)))

	ds := newDataSignal(t, "real64", descriptor.RuleEnum.Explicit)

	var gotValues []float64
	var gotTimestamps []uint64
	ds.OnData = func(raw []byte, values []float64, timestamps []uint64) {
		gotValues = values
		gotTimestamps = timestamps
	}

	payload := make([]byte, 8*3)
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint64(payload[i*8:], math.Float64bits(float64(i)+0.5))
	}

	ok, err := ds.ApplyDataFrame(payload, ts)
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, []uint64{30_000_000, 30_001_000, 30_002_000}, gotTimestamps)
	require.Equal(t, []float64{0.5, 1.5, 2.5}, gotValues)
}

func TestApplyDataFrameExplicitTimeDiscardsSizeMismatch(t *testing.T) {
	ts := newTimeSignal(t, descriptor.RuleEnum.Explicit, 0)
	require.NoError(t, ts.ApplyTimeFrame(binaryLE64(5)))

	ds := newDataSignal(t, "real64", descriptor.RuleEnum.Explicit)

	called := false
	ds.OnData = func(raw []byte, values []float64, timestamps []uint64) { called = true }

	ok, err := ds.ApplyDataFrame([]byte{1, 2, 3}, ts)
	require.NoError(t, err)
	require.False(t, ok)
	require.False(t, called)
}

func TestApplyDataFrameLinearConstantRepeatsAnchor(t *testing.T) {
	ts := newTimeSignal(t, descriptor.RuleEnum.Linear, 1000)
	require.NoError(t, ts.ApplyTimeFrame(append(binaryLE64(0), binaryLE64(100)...)))

	ds := newDataSignal(t, "uint32", descriptor.RuleEnum.Constant)

	var gotTimestamps []uint64
	ds.OnData = func(raw []byte, values []float64, timestamps []uint64) { gotTimestamps = timestamps }

	payload := make([]byte, 12*2)
	binary.LittleEndian.PutUint64(payload[0:8], 0)
	binary.LittleEndian.PutUint32(payload[8:12], 7)
	binary.LittleEndian.PutUint64(payload[12:20], 5)
	binary.LittleEndian.PutUint32(payload[20:24], 9)

	ok, err := ds.ApplyDataFrame(payload, ts)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []uint64{100, 100}, gotTimestamps)
}

func binaryLE64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}
