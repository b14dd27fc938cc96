// Package signal implements consumer-side per-signal state (spec §4.8):
// descriptor fields parsed from `signal` meta frames, and the decode
// logic for reconstructing timestamped values from data frames, keyed on
// the owning table's time signal rule.
package signal

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/opendaq/streaming-protocol-go/pkg/protoerr"
	"github.com/opendaq/streaming-protocol-go/pkg/ticks"
	"github.com/opendaq/streaming-protocol-go/pkg/wire/descriptor"
)

// Callback receives decoded values for one data frame: raw is the
// untouched frame payload, values holds one widened-to-double reading
// per decoded sample (without post-scaling applied), and timestamps
// holds one tick value per entry in values. CONSTANT-rule data repeats
// the table's current time anchor across every entry.
type Callback func(raw []byte, values []float64, timestamps []uint64)

// Signal is one subscribed signal's consumer-side state.
type Signal struct {
	mutex sync.Mutex

	number  uint32
	id      string
	tableID string

	sampleType descriptor.SampleType
	rule       descriptor.Rule

	unit           descriptor.Unit
	rng            descriptor.Range
	postScaling    descriptor.PostScaling
	related        descriptor.RelatedSignals
	interpretation any
	resolution     descriptor.Resolution
	epoch          string
	delta          uint64

	isTimeSignal bool

	time             uint64
	linearValueIndex uint64

	OnData Callback
}

// New creates an unconfigured Signal for the given signal number. Its
// identity and descriptor fields are filled in later by HandleSubscribe
// and HandleDescriptor as the corresponding meta frames arrive.
func New(number uint32) *Signal {
	return &Signal{number: number, postScaling: descriptor.Identity, rng: descriptor.Unlimited}
}

// Number returns this signal's wire signal number.
func (s *Signal) Number() uint32 { return s.number }

// ID returns the producer-assigned signal ID, set by HandleSubscribe.
func (s *Signal) ID() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.id
}

// TableID returns the ID of the table this signal was linked to by its
// last `signal` descriptor, or "" if none has arrived yet.
func (s *Signal) TableID() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.tableID
}

// IsTimeSignal reports whether this signal's descriptor marked it as a time signal.
func (s *Signal) IsTimeSignal() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.isTimeSignal
}

// Rule returns this signal's parsed rule (time signals: EXPLICIT/LINEAR;
// data signals: EXPLICIT/CONSTANT).
func (s *Signal) Rule() descriptor.Rule {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.rule
}

// SampleType returns this signal's parsed wire sample type.
func (s *Signal) SampleType() descriptor.SampleType {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.sampleType
}

// PostScaling returns this signal's post-scaling, read separately from
// decoding: InterpretValuesAsDouble never applies it.
func (s *Signal) PostScaling() descriptor.PostScaling {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.postScaling
}

// HandleSubscribe processes a `subscribe` meta frame's params, setting
// this signal's ID. signalId may be a string or a number (coerced to
// its decimal string form); any other shape, or a missing field, fails.
func (s *Signal) HandleSubscribe(params map[string]any) error {
	raw, ok := params["signalId"]
	if !ok {
		return protoerr.New(protoerr.KindEnum.BadMeta, "signal %d: subscribe missing signalId", s.number)
	}

	id, ok := coerceToString(raw)
	if !ok {
		return protoerr.New(protoerr.KindEnum.BadMeta, "signal %d: signalId must be a string or number", s.number)
	}

	s.mutex.Lock()
	s.id = id
	s.mutex.Unlock()

	return nil
}

func coerceToString(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case int64:
		return fmt.Sprintf("%d", v), true
	case uint64:
		return fmt.Sprintf("%d", v), true
	case int:
		return fmt.Sprintf("%d", v), true
	case float64:
		return fmt.Sprintf("%g", v), true
	default:
		return "", false
	}
}

// HandleDescriptor processes a `signal` meta frame's descriptor,
// validating and storing its sample type, rule, unit, range,
// post-scaling, interpretation, related signals, resolution, and epoch.
func (s *Signal) HandleDescriptor(desc descriptor.Descriptor) error {
	def := desc.Definition

	sampleType, ok := descriptor.ParseSampleType(def.DataType)
	if !ok {
		return protoerr.New(protoerr.KindEnum.BadMeta, "signal %d: unsupported dataType %q", s.number, def.DataType)
	}

	if def.BitField != nil {
		underlying, ok := descriptor.ParseSampleType(def.BitField.DataType)
		if !ok || (underlying != descriptor.SampleTypeEnum.U32 && underlying != descriptor.SampleTypeEnum.U64) {
			return protoerr.New(protoerr.KindEnum.BadMeta, "signal %d: bitfield underlying type must be uint32 or uint64", s.number)
		}
	}

	rule := descriptor.ParseRule(def.Rule)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	delta := s.delta
	if def.Linear != nil {
		delta = def.Linear.Delta
	}
	if rule == descriptor.RuleEnum.Linear && delta == 0 {
		return protoerr.New(protoerr.KindEnum.BadMeta, "signal %d: linear rule requires a nonzero delta", s.number)
	}

	isTime := def.Unit.IsTime()
	if isTime {
		if def.Unit.ID != descriptor.SecondsID {
			return protoerr.New(protoerr.KindEnum.BadMeta, "signal %d: time signal must use unit id %d", s.number, descriptor.SecondsID)
		}
		if def.Resolution == nil || def.Resolution.Denominator <= 0 {
			return protoerr.New(protoerr.KindEnum.BadMeta, "signal %d: time signal requires a positive resolution", s.number)
		}
	}

	s.tableID = desc.TableID
	s.sampleType = sampleType
	s.rule = rule
	s.unit = def.Unit
	if def.Range != nil {
		s.rng = *def.Range
	}
	if def.PostScaling != nil {
		s.postScaling = *def.PostScaling
	}
	s.related = desc.RelatedSignals
	s.interpretation = desc.Interpretation
	if def.Resolution != nil {
		s.resolution = *def.Resolution
	}
	s.epoch = def.AbsRef
	s.delta = delta
	s.isTimeSignal = isTime

	return nil
}

// ApplyTimeFrame updates this time signal's anchor from a data frame's
// payload, per its rule. Only valid on a signal for which
// HandleDescriptor has marked IsTimeSignal true.
func (s *Signal) ApplyTimeFrame(payload []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	switch s.rule {
	case descriptor.RuleEnum.Explicit:
		if len(payload) != 8 {
			return protoerr.New(protoerr.KindEnum.MalformedHeader, "signal %d: explicit time frame must be 8 bytes, got %d", s.number, len(payload))
		}
		s.time = binary.LittleEndian.Uint64(payload)
	case descriptor.RuleEnum.Linear:
		if len(payload) != 16 {
			return protoerr.New(protoerr.KindEnum.MalformedHeader, "signal %d: linear time frame must be 16 bytes, got %d", s.number, len(payload))
		}
		s.time = binary.LittleEndian.Uint64(payload[8:])
	default:
		return protoerr.New(protoerr.KindEnum.UnsupportedRule, "signal %d: rule %v invalid for a time signal", s.number, s.rule)
	}

	return nil
}

// Time returns this time signal's current tick anchor.
func (s *Signal) Time() uint64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.time
}

// WallClockTime converts a raw tick value decoded from this time
// signal's data frames into a wall-clock instant, using its descriptor's
// resolution and absolute reference. Only meaningful once HandleDescriptor
// has populated those fields; a zero resolution yields the epoch itself.
func (s *Signal) WallClockTime(tick uint64) (time.Time, error) {
	s.mutex.Lock()
	numerator := s.resolution.Numerator
	denominator := s.resolution.Denominator
	absRef := s.epoch
	s.mutex.Unlock()

	epoch, err := ticks.ParseEpoch(absRef)
	if err != nil {
		return time.Time{}, protoerr.Wrap(protoerr.KindEnum.BadMeta, err, "signal %d: invalid absolute reference %q", s.number, absRef)
	}

	return ticks.ToTime(ticks.Tick(tick), numerator, denominator, epoch), nil
}

// ResetLinearValueIndex zeroes this data signal's running sample count,
// called by the signal container for every data signal in a table when
// its time signal delivers a new time frame.
func (s *Signal) ResetLinearValueIndex() {
	s.mutex.Lock()
	s.linearValueIndex = 0
	s.mutex.Unlock()
}

// ApplyDataFrame decodes payload as this data signal's sample data,
// given its table's current time signal state, invoking OnData on
// success. ok is false when the frame was malformed in a way that spec
// says to discard silently (a size mismatch under an EXPLICIT-rule time
// signal) rather than fail the session.
func (s *Signal) ApplyDataFrame(payload []byte, timeSignal *Signal) (ok bool, err error) {
	s.mutex.Lock()
	sampleType := s.sampleType
	rule := s.rule
	cb := s.OnData
	s.mutex.Unlock()

	valueSize := sampleType.ByteSize()
	if valueSize == 0 {
		return false, protoerr.New(protoerr.KindEnum.UnsupportedRule, "signal %d: sample type %v has no fixed decode size", s.number, sampleType)
	}

	timeRule := timeSignal.Rule()

	switch timeRule {
	case descriptor.RuleEnum.Linear:
		switch rule {
		case descriptor.RuleEnum.Explicit:
			if valueSize == 0 || len(payload)%valueSize != 0 {
				return false, protoerr.New(protoerr.KindEnum.MalformedHeader, "signal %d: payload length %d not a multiple of value size %d", s.number, len(payload), valueSize)
			}
			n := len(payload) / valueSize
			values := InterpretValuesAsDouble(payload, n, sampleType, descriptor.RuleEnum.Explicit)

			s.mutex.Lock()
			base := s.linearValueIndex
			s.linearValueIndex += uint64(n)
			s.mutex.Unlock()

			delta := timeSignal.delta
			anchor := timeSignal.Time()
			timestamps := make([]uint64, n)
			for i := 0; i < n; i++ {
				timestamps[i] = anchor + (base+uint64(i))*delta
			}

			if cb != nil {
				cb(payload, values, timestamps)
			}
			return true, nil

		case descriptor.RuleEnum.Constant:
			pairSize := 8 + valueSize
			if len(payload)%pairSize != 0 {
				return false, protoerr.New(protoerr.KindEnum.MalformedHeader, "signal %d: payload length %d not a multiple of constant pair size %d", s.number, len(payload), pairSize)
			}
			n := len(payload) / pairSize
			values := InterpretValuesAsDouble(payload, n, sampleType, descriptor.RuleEnum.Constant)

			anchor := timeSignal.Time()
			timestamps := make([]uint64, n)
			for i := range timestamps {
				timestamps[i] = anchor
			}

			if cb != nil {
				cb(payload, values, timestamps)
			}
			return true, nil

		default:
			return false, protoerr.New(protoerr.KindEnum.UnsupportedRule, "signal %d: rule %v invalid for a data signal", s.number, rule)
		}

	case descriptor.RuleEnum.Explicit:
		if len(payload) != valueSize {
			return false, nil
		}

		values := InterpretValuesAsDouble(payload, 1, sampleType, descriptor.RuleEnum.Explicit)
		timestamps := []uint64{timeSignal.Time()}

		if cb != nil {
			cb(payload, values, timestamps)
		}
		return true, nil

	default:
		return false, protoerr.New(protoerr.KindEnum.UnsupportedRule, "signal %d: time signal rule %v is invalid for a domain signal", timeSignal.number, timeRule)
	}
}
