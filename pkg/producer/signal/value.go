package signal

import (
	"bytes"
	"encoding/binary"

	"github.com/opendaq/streaming-protocol-go/pkg/protoerr"
	"github.com/opendaq/streaming-protocol-go/pkg/wire/descriptor"
)

// Numeric is the set of primitive Go types a value signal can carry on
// the wire; it mirrors the fixed-size primitive SampleType tags.
type Numeric interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32 | ~uint64 | ~int64 | ~float32 | ~float64
}

// SynchronousValueSignal carries values sampled at its table's fixed
// output rate: no per-value timestamp or index travels on the wire, only
// the raw values, back to back, in arrival order (spec §4.4, explicit
// rule with no valueIndex).
type SynchronousValueSignal[T Numeric] struct {
	*Base
}

// NewSynchronousValueSignal constructs a synchronous value signal bound
// to tableID, using number as its wire signal number.
func NewSynchronousValueSignal[T Numeric](id, tableID string, number uint32, sampleType descriptor.SampleType, writer FrameWriter) *SynchronousValueSignal[T] {
	return &SynchronousValueSignal[T]{Base: newBase(id, tableID, number, sampleType, writer)}
}

// IsDataSignal reports that this signal carries sample data, not time.
func (s *SynchronousValueSignal[T]) IsDataSignal() bool { return true }

// Subscribe emits the subscribe ack for this signal.
func (s *SynchronousValueSignal[T]) Subscribe() error {
	if err := s.emitSubscribeAck(); err != nil {
		return err
	}
	return s.WriteSignalMetaInformation()
}

// Unsubscribe emits the unsubscribe ack for this signal.
func (s *SynchronousValueSignal[T]) Unsubscribe() error { return s.emitUnsubscribeAck() }

// WriteSignalMetaInformation emits this signal's descriptor.
func (s *SynchronousValueSignal[T]) WriteSignalMetaInformation() error {
	return s.emitDescriptor(descriptor.Definition{
		Name:     s.id,
		DataType: s.SampleType().String(),
		Rule:     descriptor.RuleEnum.Explicit.String(),
	})
}

// AddData appends values, packed contiguously, to the wire as one data frame.
func (s *SynchronousValueSignal[T]) AddData(values ...T) error {
	if len(values) == 0 {
		return nil
	}

	buf := new(bytes.Buffer)
	for _, v := range values {
		if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
			return protoerr.Wrap(protoerr.KindEnum.TransportError, err, "encoding synchronous sample for %s", s.id)
		}
	}

	return s.writer.WriteSignalData(s.number, buf.Bytes())
}

// AsynchronousValueSignal carries irregularly sampled values, one value
// per call, matched against an explicit-rule time signal's own
// one-value-per-frame timestamps (spec §4.4, §9 "explicit rule single
// value per frame").
type AsynchronousValueSignal[T Numeric] struct {
	*Base
}

// NewAsynchronousValueSignal constructs an asynchronous value signal.
func NewAsynchronousValueSignal[T Numeric](id, tableID string, number uint32, sampleType descriptor.SampleType, writer FrameWriter) *AsynchronousValueSignal[T] {
	return &AsynchronousValueSignal[T]{Base: newBase(id, tableID, number, sampleType, writer)}
}

// IsDataSignal reports that this signal carries sample data, not time.
func (s *AsynchronousValueSignal[T]) IsDataSignal() bool { return true }

// Subscribe emits the subscribe ack for this signal.
func (s *AsynchronousValueSignal[T]) Subscribe() error {
	if err := s.emitSubscribeAck(); err != nil {
		return err
	}
	return s.WriteSignalMetaInformation()
}

// Unsubscribe emits the unsubscribe ack for this signal.
func (s *AsynchronousValueSignal[T]) Unsubscribe() error { return s.emitUnsubscribeAck() }

// WriteSignalMetaInformation emits this signal's descriptor.
func (s *AsynchronousValueSignal[T]) WriteSignalMetaInformation() error {
	return s.emitDescriptor(descriptor.Definition{
		Name:     s.id,
		DataType: s.SampleType().String(),
		Rule:     descriptor.RuleEnum.Explicit.String(),
	})
}

// AddData writes exactly one value as its own data frame. Callers
// wanting to send several values must call this once per value; this
// signal never batches, matching its paired explicit time signal.
func (s *AsynchronousValueSignal[T]) AddData(value T) error {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, value); err != nil {
		return protoerr.Wrap(protoerr.KindEnum.TransportError, err, "encoding asynchronous sample for %s", s.id)
	}

	return s.writer.WriteSignalData(s.number, buf.Bytes())
}

// ConstantValueSignal carries sparse values that hold constant until the
// next update: each write carries its own absolute value index alongside
// the value, so a consumer can fill the gap with the prior value (spec
// §4.4, constant rule).
type ConstantValueSignal[T Numeric] struct {
	*Base
}

// NewConstantValueSignal constructs a constant-rule value signal.
func NewConstantValueSignal[T Numeric](id, tableID string, number uint32, sampleType descriptor.SampleType, writer FrameWriter) *ConstantValueSignal[T] {
	return &ConstantValueSignal[T]{Base: newBase(id, tableID, number, sampleType, writer)}
}

// IsDataSignal reports that this signal carries sample data, not time.
func (s *ConstantValueSignal[T]) IsDataSignal() bool { return true }

// Subscribe emits the subscribe ack for this signal.
func (s *ConstantValueSignal[T]) Subscribe() error {
	if err := s.emitSubscribeAck(); err != nil {
		return err
	}
	return s.WriteSignalMetaInformation()
}

// Unsubscribe emits the unsubscribe ack for this signal.
func (s *ConstantValueSignal[T]) Unsubscribe() error { return s.emitUnsubscribeAck() }

// WriteSignalMetaInformation emits this signal's descriptor.
func (s *ConstantValueSignal[T]) WriteSignalMetaInformation() error {
	return s.emitDescriptor(descriptor.Definition{
		Name:     s.id,
		DataType: s.SampleType().String(),
		Rule:     descriptor.RuleEnum.Constant.String(),
	})
}

// AddData writes n := len(indices) pairs of [u64 valueIndex][T value],
// packed back to back into a single data frame, where each index is the
// absolute sample position that value holds from. indices and values
// must be the same length.
func (s *ConstantValueSignal[T]) AddData(indices []uint64, values []T) error {
	if len(indices) != len(values) {
		return protoerr.New(protoerr.KindEnum.Protocol, "signal %s: addData got %d indices but %d values", s.id, len(indices), len(values))
	}
	if len(indices) == 0 {
		return nil
	}

	buf := new(bytes.Buffer)
	for i := range indices {
		if err := binary.Write(buf, binary.LittleEndian, indices[i]); err != nil {
			return protoerr.Wrap(protoerr.KindEnum.TransportError, err, "encoding constant sample index for %s", s.id)
		}
		if err := binary.Write(buf, binary.LittleEndian, values[i]); err != nil {
			return protoerr.Wrap(protoerr.KindEnum.TransportError, err, "encoding constant sample value for %s", s.id)
		}
	}

	return s.writer.WriteSignalData(s.number, buf.Bytes())
}
