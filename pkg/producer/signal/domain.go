package signal

import (
	"bytes"
	"encoding/binary"

	"github.com/opendaq/streaming-protocol-go/pkg/protoerr"
	"github.com/opendaq/streaming-protocol-go/pkg/wire/descriptor"
)

// LinearTimeSignal is a time signal whose ticks advance by a fixed delta
// per sample; its own value stream carries no per-sample data beyond the
// occasional `setTimeStart` anchor (spec §4.5, linear rule).
type LinearTimeSignal struct {
	*Base

	delta      uint64
	resolution descriptor.Resolution
	epoch      string
}

// NewLinearTimeSignal constructs a linear-rule time signal ticking by
// delta per sample, at the given resolution (seconds-per-tick as an exact
// fraction). epoch is the absolute reference date; an empty string
// defaults to the Unix epoch on the consumer side.
func NewLinearTimeSignal(id, tableID string, number uint32, delta uint64, resolution descriptor.Resolution, epoch string, writer FrameWriter) *LinearTimeSignal {
	s := &LinearTimeSignal{
		Base:       newBase(id, tableID, number, descriptor.SampleTypeEnum.U64, writer),
		delta:      delta,
		resolution: resolution,
		epoch:      epoch,
	}
	s.SetUnit(descriptor.Unit{ID: descriptor.SecondsID, Quantity: descriptor.TimeQuantity})
	return s
}

// IsDataSignal reports false: a time signal is never itself a data signal.
func (s *LinearTimeSignal) IsDataSignal() bool { return false }

// Subscribe emits the subscribe ack for this signal.
func (s *LinearTimeSignal) Subscribe() error {
	if err := s.emitSubscribeAck(); err != nil {
		return err
	}
	return s.WriteSignalMetaInformation()
}

// Unsubscribe emits the unsubscribe ack for this signal.
func (s *LinearTimeSignal) Unsubscribe() error { return s.emitUnsubscribeAck() }

// WriteSignalMetaInformation emits this signal's descriptor, carrying its
// tick delta, resolution, and absolute reference.
func (s *LinearTimeSignal) WriteSignalMetaInformation() error {
	res := s.resolution
	return s.emitDescriptor(descriptor.Definition{
		Name:       s.id,
		DataType:   s.SampleType().String(),
		Rule:       descriptor.RuleEnum.Linear.String(),
		Linear:     &descriptor.LinearDefinition{Delta: s.delta},
		Resolution: &res,
		AbsRef:     s.epoch,
	})
}

// SetTimeStart re-anchors this time signal's tick sequence: from this
// point on, the consumer reconstructs timestamps as
// startTicks + n*delta, where n restarts at zero regardless of
// valueIndex. valueIndex documents which absolute sample position on the
// associated data signal this anchor corresponds to; the caller, who
// owns both signals, supplies it (see DESIGN.md decision on
// LinearTimeSignal.SetTimeStart's valueIndex for why the time signal
// cannot derive it on its own).
func (s *LinearTimeSignal) SetTimeStart(startTicks, valueIndex uint64) error {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, valueIndex); err != nil {
		return protoerr.Wrap(protoerr.KindEnum.TransportError, err, "encoding time-start index for %s", s.id)
	}
	if err := binary.Write(buf, binary.LittleEndian, startTicks); err != nil {
		return protoerr.Wrap(protoerr.KindEnum.TransportError, err, "encoding time-start ticks for %s", s.id)
	}

	return s.writer.WriteSignalData(s.number, buf.Bytes())
}

// ExplicitTimeSignal is a time signal whose ticks are irregular: each
// sample carries its own absolute tick value, one value per frame (spec
// §4.5, explicit rule).
type ExplicitTimeSignal struct {
	*Base

	resolution descriptor.Resolution
	epoch      string
}

// NewExplicitTimeSignal constructs an explicit-rule time signal at the
// given resolution and absolute reference.
func NewExplicitTimeSignal(id, tableID string, number uint32, resolution descriptor.Resolution, epoch string, writer FrameWriter) *ExplicitTimeSignal {
	s := &ExplicitTimeSignal{
		Base:       newBase(id, tableID, number, descriptor.SampleTypeEnum.U64, writer),
		resolution: resolution,
		epoch:      epoch,
	}
	s.SetUnit(descriptor.Unit{ID: descriptor.SecondsID, Quantity: descriptor.TimeQuantity})
	return s
}

// IsDataSignal reports false: a time signal is never itself a data signal.
func (s *ExplicitTimeSignal) IsDataSignal() bool { return false }

// Subscribe emits the subscribe ack for this signal.
func (s *ExplicitTimeSignal) Subscribe() error {
	if err := s.emitSubscribeAck(); err != nil {
		return err
	}
	return s.WriteSignalMetaInformation()
}

// Unsubscribe emits the unsubscribe ack for this signal.
func (s *ExplicitTimeSignal) Unsubscribe() error { return s.emitUnsubscribeAck() }

// WriteSignalMetaInformation emits this signal's descriptor.
func (s *ExplicitTimeSignal) WriteSignalMetaInformation() error {
	res := s.resolution
	return s.emitDescriptor(descriptor.Definition{
		Name:       s.id,
		DataType:   s.SampleType().String(),
		Rule:       descriptor.RuleEnum.Explicit.String(),
		Resolution: &res,
		AbsRef:     s.epoch,
	})
}

// AddTick writes a single absolute tick value as its own data frame.
func (s *ExplicitTimeSignal) AddTick(tick uint64) error {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, tick); err != nil {
		return protoerr.Wrap(protoerr.KindEnum.TransportError, err, "encoding explicit tick for %s", s.id)
	}

	return s.writer.WriteSignalData(s.number, buf.Bytes())
}
