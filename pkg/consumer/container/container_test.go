package container

import (
	"encoding/binary"
	"testing"

	"github.com/opendaq/streaming-protocol-go/pkg/consumer/signal"
	"github.com/opendaq/streaming-protocol-go/pkg/wire/descriptor"
	"github.com/stretchr/testify/require"
)

func subscribeAndDescribe(t *testing.T, c *Container, number uint32, id string, desc descriptor.Descriptor) {
	t.Helper()

	require.NoError(t, c.ProcessMeta(number, "subscribe", map[string]any{"signalId": id}))
	require.NoError(t, c.ProcessMeta(number, "signal", desc))
}

func timeDescriptor(tableID string, delta uint64) descriptor.Descriptor {
	return descriptor.Descriptor{
		TableID: tableID,
		Definition: descriptor.Definition{
			DataType: "uint64",
			Rule:     descriptor.RuleEnum.Linear.String(),
			Linear:   &descriptor.LinearDefinition{Delta: delta},
			Unit:     descriptor.Unit{ID: descriptor.SecondsID, Quantity: descriptor.TimeQuantity},
			Resolution: &descriptor.Resolution{
				Numerator:   1,
				Denominator: 1_000_000,
			},
		},
	}
}

func valueDescriptor(tableID, dataType string) descriptor.Descriptor {
	return descriptor.Descriptor{
		TableID: tableID,
		Definition: descriptor.Definition{
			DataType: dataType,
			Rule:     descriptor.RuleEnum.Explicit.String(),
		},
	}
}

func TestProcessMetaRejectsDuplicateSubscribe(t *testing.T) {
	c := New()
	require.NoError(t, c.ProcessMeta(1, "subscribe", map[string]any{"signalId": "a"}))
	err := c.ProcessMeta(1, "subscribe", map[string]any{"signalId": "a"})
	require.Error(t, err)
}

func TestProcessMetaRejectsUnsubscribeUnknown(t *testing.T) {
	c := New()
	err := c.ProcessMeta(5, "unsubscribe", map[string]any{})
	require.Error(t, err)
}

func TestProcessMetaLinksTimeAndDataSignalsIntoTable(t *testing.T) {
	c := New()
	subscribeAndDescribe(t, c, 1, "time", timeDescriptor("T", 1000))
	subscribeAndDescribe(t, c, 2, "volt", valueDescriptor("T", "real64"))

	t1, _ := c.Signal(1)
	require.True(t, t1.IsTimeSignal())

	c.mutex.Lock()
	tbl := c.tables["T"]
	c.mutex.Unlock()
	require.NotNil(t, tbl)
	require.Equal(t, uint32(1), tbl.timeSignalNumber)
	_, hasData := tbl.dataSignalNumbers[2]
	require.True(t, hasData)
}

func TestProcessMetaUnsubscribeRemovesEmptyTable(t *testing.T) {
	c := New()
	subscribeAndDescribe(t, c, 1, "time", timeDescriptor("T", 1000))

	require.NoError(t, c.ProcessMeta(1, "unsubscribe", map[string]any{}))

	c.mutex.Lock()
	_, exists := c.tables["T"]
	_, signalExists := c.subscribedSignals[1]
	c.mutex.Unlock()
	require.False(t, exists)
	require.False(t, signalExists)
}

func TestProcessDataUnknownSignalFails(t *testing.T) {
	c := New()
	err := c.ProcessData(99, []byte{1})
	require.Error(t, err)
}

func TestProcessDataRequiresBoundTimeSignal(t *testing.T) {
	c := New()
	subscribeAndDescribe(t, c, 2, "volt", valueDescriptor("T", "real64"))

	err := c.ProcessData(2, make([]byte, 8))
	require.Error(t, err)
}

func TestProcessDataEndToEndLinearExplicit(t *testing.T) {
	c := New()
	subscribeAndDescribe(t, c, 1, "time", timeDescriptor("T", 1000))
	subscribeAndDescribe(t, c, 2, "volt", valueDescriptor("T", "real64"))

	timeFrame := make([]byte, 16)
	binary.LittleEndian.PutUint64(timeFrame[8:], 30_000_000)
	require.NoError(t, c.ProcessData(1, timeFrame))

	var gotValues []float64
	var gotTimestamps []uint64
	c.DataCb = func(sig *signal.Signal, raw []byte, values []float64, timestamps []uint64) {
		gotValues = values
		gotTimestamps = timestamps
	}

	valueFrame := make([]byte, 8)
	binary.LittleEndian.PutUint64(valueFrame, 0x3FF0000000000000) // 1.0
	require.NoError(t, c.ProcessData(2, valueFrame))

	require.Equal(t, []uint64{30_000_000}, gotTimestamps)
	require.Equal(t, []float64{1}, gotValues)
}

func TestTimeSignalForReturnsBoundTimeSignal(t *testing.T) {
	c := New()
	subscribeAndDescribe(t, c, 1, "time", timeDescriptor("T", 1000))
	subscribeAndDescribe(t, c, 2, "volt", valueDescriptor("T", "real64"))

	dataSig, ok := c.Signal(2)
	require.True(t, ok)

	timeSig, ok := c.TimeSignalFor(dataSig)
	require.True(t, ok)
	require.Equal(t, uint32(1), timeSig.Number())
}

func TestTimeSignalForReportsMissingBinding(t *testing.T) {
	c := New()
	subscribeAndDescribe(t, c, 2, "volt", valueDescriptor("T", "real64"))

	dataSig, ok := c.Signal(2)
	require.True(t, ok)

	_, ok = c.TimeSignalFor(dataSig)
	require.False(t, ok)
}
