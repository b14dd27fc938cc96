// Package descriptor defines the typed signal descriptor exchanged between
// producer and consumer in `signal` meta frames (spec §3, §6). It replaces
// the ad-hoc JSON document mutation of the original implementation with a
// single struct serialized once and parsed back into the same struct
// (spec §9, "JSON document mutation for descriptors").
package descriptor

import (
	"math"

	"github.com/shopspring/decimal"
)

// NoUnitID is the Unit.ID value meaning "no unit".
const NoUnitID int32 = -1

// SecondsID is the user-assigned Unit.ID for a "seconds" time unit.
const SecondsID int32 = 5457219

// TimeQuantity is the Unit.Quantity value that marks a signal as a time signal.
const TimeQuantity = "time"

// SampleType tags the primitive wire representation of a signal's values.
type SampleType int

// SampleTypeEnum groups every recognized sample type tag.
var SampleTypeEnum = struct {
	U8         SampleType
	S8         SampleType
	U16        SampleType
	S16        SampleType
	U32        SampleType
	S32        SampleType
	U64        SampleType
	S64        SampleType
	Real32     SampleType
	Real64     SampleType
	Complex32  SampleType
	Complex64  SampleType
	Bitfield32 SampleType
	Bitfield64 SampleType
	Array      SampleType
	Struct     SampleType
}{
	U8: 1, S8: 2, U16: 3, S16: 4, U32: 5, S32: 6, U64: 7, S64: 8,
	Real32: 9, Real64: 10, Complex32: 11, Complex64: 12,
	Bitfield32: 13, Bitfield64: 14, Array: 15, Struct: 16,
}

var sampleTypeNames = map[SampleType]string{
	SampleTypeEnum.U8: "uint8", SampleTypeEnum.S8: "int8",
	SampleTypeEnum.U16: "uint16", SampleTypeEnum.S16: "int16",
	SampleTypeEnum.U32: "uint32", SampleTypeEnum.S32: "int32",
	SampleTypeEnum.U64: "uint64", SampleTypeEnum.S64: "int64",
	SampleTypeEnum.Real32: "real32", SampleTypeEnum.Real64: "real64",
	SampleTypeEnum.Complex32: "complex32", SampleTypeEnum.Complex64: "complex64",
	SampleTypeEnum.Bitfield32: "bitField32", SampleTypeEnum.Bitfield64: "bitField64",
	SampleTypeEnum.Array: "array", SampleTypeEnum.Struct: "struct",
}

var sampleTypeByName = func() map[string]SampleType {
	m := make(map[string]SampleType, len(sampleTypeNames))
	for k, v := range sampleTypeNames {
		m[v] = k
	}
	return m
}()

// String returns the wire dataType string for a sample type.
func (s SampleType) String() string {
	if name, ok := sampleTypeNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseSampleType maps a wire dataType string back to a SampleType tag.
// "dynamicArray" is explicitly unsupported per spec §4.8.
func ParseSampleType(dataType string) (SampleType, bool) {
	if dataType == "dynamicArray" {
		return 0, false
	}

	s, ok := sampleTypeByName[dataType]
	return s, ok
}

// ByteSize returns the fixed wire size, in bytes, of one value of a
// primitive sample type. ARRAY and STRUCT have no fixed per-value size and
// return 0; callers must compute their size from Array/Struct metadata.
func (s SampleType) ByteSize() int {
	switch s {
	case SampleTypeEnum.U8, SampleTypeEnum.S8:
		return 1
	case SampleTypeEnum.U16, SampleTypeEnum.S16:
		return 2
	case SampleTypeEnum.U32, SampleTypeEnum.S32, SampleTypeEnum.Real32, SampleTypeEnum.Bitfield32:
		return 4
	case SampleTypeEnum.U64, SampleTypeEnum.S64, SampleTypeEnum.Real64, SampleTypeEnum.Bitfield64:
		return 8
	case SampleTypeEnum.Complex32:
		return 8
	case SampleTypeEnum.Complex64:
		return 16
	default:
		return 0
	}
}

// Rule identifies how a signal's per-sample timestamps (for time signals)
// or sample validity (for constant-rule data) is computed.
type Rule int

// RuleEnum groups the three recognized rules.
var RuleEnum = struct {
	Explicit Rule
	Linear   Rule
	Constant Rule
	Unknown  Rule
}{
	Explicit: 1,
	Linear:   2,
	Constant: 3,
	Unknown:  0,
}

var ruleNames = map[Rule]string{
	RuleEnum.Explicit: "explicit",
	RuleEnum.Linear:   "linear",
	RuleEnum.Constant: "constant",
}

// String returns the wire rule string.
func (r Rule) String() string {
	if name, ok := ruleNames[r]; ok {
		return name
	}
	return "unknown"
}

// ParseRule maps a wire rule string back to a Rule tag.
func ParseRule(value string) Rule {
	for k, v := range ruleNames {
		if v == value {
			return k
		}
	}
	return RuleEnum.Unknown
}

// Unit describes a signal's measurement unit.
type Unit struct {
	ID          int32  `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
	Quantity    string `json:"quantity,omitempty"`
}

// IsTime reports whether this unit marks its owning signal as a time signal.
func (u Unit) IsTime() bool {
	return u.Quantity == TimeQuantity
}

// NoUnit is the default, unitless Unit value.
var NoUnit = Unit{ID: NoUnitID}

// Range bounds a signal's values. The Unlimited value ({-Inf, +Inf}) means
// "no bound" and is omitted from the emitted descriptor (spec §3, §8
// round-trip law); the zero value {0, 0} is an ordinary, bounded range.
type Range struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Unlimited is the default, unbounded Range value.
var Unlimited = Range{Low: math.Inf(-1), High: math.Inf(1)}

// PostScaling maps a raw decoded value to its scaled, user-facing value:
// scaled = raw*scale + offset. The identity value {0,1} is omitted from
// the emitted descriptor.
type PostScaling struct {
	Offset float64 `json:"postOffset"`
	Scale  float64 `json:"scale"`
}

// Identity is the default, unscaled PostScaling value.
var Identity = PostScaling{Offset: 0, Scale: 1}

// IsIdentity reports whether p applies no scaling.
func (p PostScaling) IsIdentity() bool {
	return p == Identity
}

// IsUnlimited reports whether r places no bound on its signal's values.
func (r Range) IsUnlimited() bool {
	return r == Unlimited
}

// Resolution is seconds-per-tick expressed as an exact rational, so tick
// deltas and timestamps never accumulate floating point drift.
type Resolution struct {
	Numerator   int64 `json:"num"`
	Denominator int64 `json:"denom"`
}

// TicksPerSecond returns the resolution's denominator, which for a time
// signal is by definition its ticks-per-second rate.
func (r Resolution) TicksPerSecond() int64 {
	return r.Denominator
}

// AsDecimal returns the resolution as an exact decimal.Decimal fraction.
func (r Resolution) AsDecimal() decimal.Decimal {
	if r.Denominator == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(r.Numerator).Div(decimal.NewFromInt(r.Denominator))
}

// RelatedSignals maps a relation tag (e.g. "time", "status") to a related
// signal's ID.
type RelatedSignals map[string]string

// BitFieldDefinition describes a bitfield's underlying primitive and named bits.
type BitFieldDefinition struct {
	DataType string   `json:"dataType"`
	Bits     []string `json:"bits,omitempty"`
}

// ArrayDefinition describes a fixed-size array member.
type ArrayDefinition struct {
	Count    int    `json:"count"`
	DataType string `json:"dataType"`
}

// StructMember names one member of a STRUCT sample type.
type StructMember struct {
	Name     string `json:"name"`
	DataType string `json:"dataType"`
}

// LinearDefinition carries the tick delta for a LINEAR-rule domain signal.
type LinearDefinition struct {
	Delta uint64 `json:"delta"`
}

// Definition is the `definition` object of a `signal` meta frame (spec §6).
type Definition struct {
	Name        string                `json:"name"`
	DataType    string                `json:"dataType"`
	Rule        string                `json:"rule"`
	Linear      *LinearDefinition     `json:"linear,omitempty"`
	ValueIndex  *uint64               `json:"valueIndex,omitempty"`
	Unit        Unit                  `json:"unit"`
	Resolution  *Resolution           `json:"resolution,omitempty"`
	AbsRef      string                `json:"absoluteReference,omitempty"`
	Range       *Range                `json:"range,omitempty"`
	PostScaling *PostScaling          `json:"postScaling,omitempty"`
	BitField    *BitFieldDefinition   `json:"bitField,omitempty"`
	Array       *ArrayDefinition      `json:"array,omitempty"`
	Struct      []StructMember        `json:"struct,omitempty"`
}

// Descriptor is the full `params` payload of a `signal` meta frame.
type Descriptor struct {
	TableID        string         `json:"tableId"`
	Definition     Definition     `json:"definition"`
	RelatedSignals RelatedSignals `json:"relatedSignals,omitempty"`
	Interpretation any            `json:"interpretation,omitempty"`
}
