// Package container implements the consumer-side signal container (spec
// §4.9): the registries of subscribed signals, their table/time-signal
// bindings, and status-source relations, plus the dispatch of meta and
// data frames into the per-signal decode logic in pkg/consumer/signal.
package container

import (
	"sync"

	"github.com/opendaq/streaming-protocol-go/pkg/consumer/signal"
	"github.com/opendaq/streaming-protocol-go/pkg/protoerr"
	"github.com/opendaq/streaming-protocol-go/pkg/wire/descriptor"
	"github.com/opendaq/streaming-protocol-go/pkg/wire/meta"
)

// table tracks which signal numbers belong to one producer-declared table.
type table struct {
	timeSignalNumber  uint32
	dataSignalNumbers map[uint32]struct{}
}

func newTable() *table {
	return &table{dataSignalNumbers: make(map[uint32]struct{})}
}

func (t *table) empty() bool {
	return t.timeSignalNumber == 0 && len(t.dataSignalNumbers) == 0
}

// SignalMetaCallback is invoked after a meta frame has been fully
// processed for a signal, once per frame.
type SignalMetaCallback func(sig *signal.Signal, method string, params any)

// DataCallback is invoked once per decoded data frame for a signal.
type DataCallback func(sig *signal.Signal, raw []byte, values []float64, timestamps []uint64)

// Container holds every signal subscribed on one consumer session.
type Container struct {
	mutex sync.Mutex

	subscribedSignals map[uint32]*signal.Signal
	tables            map[string]*table
	statusSources     map[uint32]string

	SignalMetaCb SignalMetaCallback
	DataCb       DataCallback
}

// New creates an empty Container.
func New() *Container {
	return &Container{
		subscribedSignals: make(map[uint32]*signal.Signal),
		tables:            make(map[string]*table),
		statusSources:     make(map[uint32]string),
	}
}

// Signal returns the subscribed signal with the given number, if any.
func (c *Container) Signal(number uint32) (*signal.Signal, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	sig, ok := c.subscribedSignals[number]
	return sig, ok
}

// TimeSignalFor returns the time signal bound to dataSig's table, so a
// caller can turn the raw tick timestamps handed to DataCb into
// wall-clock instants via its WallClockTime method.
func (c *Container) TimeSignalFor(dataSig *signal.Signal) (*signal.Signal, bool) {
	c.mutex.Lock()
	t, ok := c.tables[dataSig.TableID()]
	c.mutex.Unlock()
	if !ok || t.timeSignalNumber == 0 {
		return nil, false
	}

	return c.Signal(t.timeSignalNumber)
}

// ProcessMeta handles one signal-scoped meta frame (signalNumber > 0),
// per spec §4.9's six-step sequence.
func (c *Container) ProcessMeta(signalNumber uint32, method string, params any) error {
	c.mutex.Lock()

	var sig *signal.Signal
	switch method {
	case "subscribe":
		if _, exists := c.subscribedSignals[signalNumber]; exists {
			c.mutex.Unlock()
			return protoerr.New(protoerr.KindEnum.Protocol, "duplicate subscribe for signal %d", signalNumber)
		}
		sig = signal.New(signalNumber)
		sig.OnData = func(raw []byte, values []float64, timestamps []uint64) {
			if c.DataCb != nil {
				c.DataCb(sig, raw, values, timestamps)
			}
		}
		c.subscribedSignals[signalNumber] = sig

	case "unsubscribe":
		existing, ok := c.subscribedSignals[signalNumber]
		if !ok {
			c.mutex.Unlock()
			return protoerr.New(protoerr.KindEnum.UnknownSignal, "unsubscribe for unknown signal %d", signalNumber)
		}
		sig = existing

	default:
		existing, ok := c.subscribedSignals[signalNumber]
		if !ok {
			c.mutex.Unlock()
			return protoerr.New(protoerr.KindEnum.UnknownSignal, "meta %q for unknown signal %d", method, signalNumber)
		}
		sig = existing
	}

	c.mutex.Unlock()

	switch method {
	case "subscribe":
		paramsMap, ok := params.(map[string]any)
		if !ok {
			return protoerr.New(protoerr.KindEnum.BadMeta, "signal %d: subscribe params must be an object", signalNumber)
		}
		if err := sig.HandleSubscribe(paramsMap); err != nil {
			return err
		}

	case "signal":
		var desc descriptor.Descriptor
		if err := meta.DecodeParamsAs(params, &desc); err != nil {
			return protoerr.Wrap(protoerr.KindEnum.BadMeta, err, "signal %d: decoding descriptor", signalNumber)
		}
		if err := sig.HandleDescriptor(desc); err != nil {
			return err
		}

		c.mutex.Lock()
		t, ok := c.tables[sig.TableID()]
		if !ok {
			t = newTable()
			c.tables[sig.TableID()] = t
		}
		if sig.IsTimeSignal() {
			t.timeSignalNumber = signalNumber
		} else {
			t.dataSignalNumbers[signalNumber] = struct{}{}
		}
		c.mutex.Unlock()
	}

	if c.SignalMetaCb != nil {
		c.SignalMetaCb(sig, method, params)
	}

	if method == "unsubscribe" {
		c.mutex.Lock()
		if t, ok := c.tables[sig.TableID()]; ok {
			if sig.IsTimeSignal() {
				t.timeSignalNumber = 0
			} else {
				delete(t.dataSignalNumbers, signalNumber)
			}
			if t.empty() {
				delete(c.tables, sig.TableID())
			}
		}
		delete(c.subscribedSignals, signalNumber)
		c.mutex.Unlock()
	}

	return nil
}

// ProcessData handles one data frame for signalNumber.
func (c *Container) ProcessData(signalNumber uint32, payload []byte) error {
	c.mutex.Lock()
	sig, ok := c.subscribedSignals[signalNumber]
	c.mutex.Unlock()
	if !ok {
		return protoerr.New(protoerr.KindEnum.UnknownSignal, "data frame for unknown signal %d", signalNumber)
	}

	if sig.IsTimeSignal() {
		return c.processTimeData(sig, payload)
	}

	return c.processValueData(sig, payload)
}

func (c *Container) processTimeData(sig *signal.Signal, payload []byte) error {
	if err := sig.ApplyTimeFrame(payload); err != nil {
		return err
	}

	c.mutex.Lock()
	t, ok := c.tables[sig.TableID()]
	c.mutex.Unlock()
	if !ok {
		return nil
	}

	c.mutex.Lock()
	dataSignalNumbers := make([]uint32, 0, len(t.dataSignalNumbers))
	for n := range t.dataSignalNumbers {
		dataSignalNumbers = append(dataSignalNumbers, n)
	}
	c.mutex.Unlock()

	for _, n := range dataSignalNumbers {
		if dataSig, ok := c.Signal(n); ok {
			dataSig.ResetLinearValueIndex()
		}
	}

	return nil
}

func (c *Container) processValueData(sig *signal.Signal, payload []byte) error {
	c.mutex.Lock()
	t, ok := c.tables[sig.TableID()]
	c.mutex.Unlock()
	if !ok || t.timeSignalNumber == 0 {
		return protoerr.New(protoerr.KindEnum.UnboundTime, "signal %d: no time signal bound for table %q", sig.Number(), sig.TableID())
	}

	timeSig, ok := c.Signal(t.timeSignalNumber)
	if !ok {
		return protoerr.New(protoerr.KindEnum.UnboundTime, "signal %d: table %q's time signal %d vanished", sig.Number(), sig.TableID(), t.timeSignalNumber)
	}

	_, err := sig.ApplyDataFrame(payload, timeSig)
	return err
}
