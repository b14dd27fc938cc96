// Package signal implements the producer-side value and domain signal
// descriptors (spec §4.4, §4.5): typed wrappers over a shared stream
// writer that emit subscribe/unsubscribe acks, JSON/MessagePack
// descriptors, and raw sample data frames.
package signal

import (
	"sync"

	"github.com/opendaq/streaming-protocol-go/pkg/wire/descriptor"
)

// FrameWriter is the subset of the stream writer (spec §4.6) a signal
// needs: emitting meta and data frames for its own signal number.
type FrameWriter interface {
	WriteMetaInformation(signalNumber uint32, method string, params any) error
	WriteSignalData(signalNumber uint32, payload []byte) error
}

// Signal is the common producer-side surface every value and domain
// signal implements, letting a session hold them uniformly (spec §4.7
// addSignal/removeSignal).
type Signal interface {
	ID() string
	TableID() string
	Number() uint32
	IsDataSignal() bool
	Subscribe() error
	Unsubscribe() error
	WriteSignalMetaInformation() error
}

// Base holds the fields and behavior common to every producer-side signal:
// identity, descriptor metadata, and the subscribe/unsubscribe acks.
type Base struct {
	mutex sync.RWMutex

	id      string
	tableID string
	number  uint32
	writer  FrameWriter

	sampleType     descriptor.SampleType
	unit           descriptor.Unit
	rng            descriptor.Range
	postScaling    descriptor.PostScaling
	related        descriptor.RelatedSignals
	interpretation any
}

func newBase(id, tableID string, number uint32, sampleType descriptor.SampleType, writer FrameWriter) *Base {
	return &Base{
		id:          id,
		tableID:     tableID,
		number:      number,
		writer:      writer,
		sampleType:  sampleType,
		unit:        descriptor.NoUnit,
		rng:         descriptor.Unlimited,
		postScaling: descriptor.Identity,
	}
}

// ID returns the signal's producer-assigned textual identifier.
func (b *Base) ID() string { return b.id }

// TableID returns the ID of the table this signal belongs to.
func (b *Base) TableID() string { return b.tableID }

// Number returns the signal's allocated 20-bit signal number.
func (b *Base) Number() uint32 { return b.number }

// SampleType returns the signal's wire sample type tag.
func (b *Base) SampleType() descriptor.SampleType {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.sampleType
}

// SetUnit sets the signal's measurement unit.
func (b *Base) SetUnit(u descriptor.Unit) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.unit = u
}

// GetUnit returns the signal's measurement unit.
func (b *Base) GetUnit() descriptor.Unit {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.unit
}

// SetRange sets the signal's expected value range.
func (b *Base) SetRange(r descriptor.Range) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.rng = r
}

// GetRange returns the signal's expected value range.
func (b *Base) GetRange() descriptor.Range {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.rng
}

// SetPostScaling sets the linear scale/offset applied after decoding.
func (b *Base) SetPostScaling(p descriptor.PostScaling) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.postScaling = p
}

// GetPostScaling returns the linear scale/offset applied after decoding.
func (b *Base) GetPostScaling() descriptor.PostScaling {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.postScaling
}

// SetRelatedSignals sets the relation-tag to signal-ID mapping for this signal.
func (b *Base) SetRelatedSignals(r descriptor.RelatedSignals) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.related = r
}

// SetInterpretationObject attaches an opaque interpretation document,
// passed through verbatim to the consumer.
func (b *Base) SetInterpretationObject(obj any) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.interpretation = obj
}

// emitSubscribeAck writes the `subscribe` meta frame carrying this signal's ID.
func (b *Base) emitSubscribeAck() error {
	return b.writer.WriteMetaInformation(b.number, "subscribe", map[string]any{"signalId": b.id})
}

// emitUnsubscribeAck writes the `unsubscribe` meta frame.
func (b *Base) emitUnsubscribeAck() error {
	return b.writer.WriteMetaInformation(b.number, "unsubscribe", struct{}{})
}

// emitDescriptor finishes def with the shared descriptor fields (unit,
// range, post-scaling, related signals, interpretation) and writes it as
// a `signal` meta frame. Unlimited range and identity post-scaling are
// omitted, per spec §8's round-trip law.
func (b *Base) emitDescriptor(def descriptor.Definition) error {
	b.mutex.RLock()
	def.Unit = b.unit

	if !b.rng.IsUnlimited() {
		rng := b.rng
		def.Range = &rng
	}

	if !b.postScaling.IsIdentity() {
		ps := b.postScaling
		def.PostScaling = &ps
	}

	desc := descriptor.Descriptor{
		TableID:        b.tableID,
		Definition:     def,
		RelatedSignals: b.related,
		Interpretation: b.interpretation,
	}
	b.mutex.RUnlock()

	return b.writer.WriteMetaInformation(b.number, "signal", desc)
}
