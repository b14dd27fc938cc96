package signal

import (
	"encoding/binary"
	"math"

	"github.com/opendaq/streaming-protocol-go/pkg/wire/descriptor"
)

// readPrimitiveAsDouble reads one value of sampleType from buf (which
// must be exactly sampleType.ByteSize() bytes) and returns it widened to
// a float64. ok is false for sample types with no numeric conversion
// (ARRAY, STRUCT, COMPLEX*).
func readPrimitiveAsDouble(buf []byte, sampleType descriptor.SampleType) (float64, bool) {
	switch sampleType {
	case descriptor.SampleTypeEnum.U8:
		return float64(buf[0]), true
	case descriptor.SampleTypeEnum.S8:
		return float64(int8(buf[0])), true
	case descriptor.SampleTypeEnum.U16:
		return float64(binary.LittleEndian.Uint16(buf)), true
	case descriptor.SampleTypeEnum.S16:
		return float64(int16(binary.LittleEndian.Uint16(buf))), true
	case descriptor.SampleTypeEnum.U32:
		return float64(binary.LittleEndian.Uint32(buf)), true
	case descriptor.SampleTypeEnum.S32:
		return float64(int32(binary.LittleEndian.Uint32(buf))), true
	case descriptor.SampleTypeEnum.U64:
		return float64(binary.LittleEndian.Uint64(buf)), true
	case descriptor.SampleTypeEnum.S64:
		return float64(int64(binary.LittleEndian.Uint64(buf))), true
	case descriptor.SampleTypeEnum.Real32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(buf))), true
	case descriptor.SampleTypeEnum.Real64:
		return math.Float64frombits(binary.LittleEndian.Uint64(buf)), true
	case descriptor.SampleTypeEnum.Bitfield32:
		return float64(binary.LittleEndian.Uint32(buf)), true
	case descriptor.SampleTypeEnum.Bitfield64:
		return float64(binary.LittleEndian.Uint64(buf)), true
	default:
		return 0, false
	}
}

// InterpretValuesAsDouble reads count values of sampleType from buf,
// widening each to a float64, without applying post-scaling. For
// rule == descriptor.RuleEnum.Constant, each value is preceded on the
// wire by a u64 index which is skipped. Sample types without a numeric
// conversion (ARRAY, STRUCT, COMPLEX32/64) yield a nil, empty result.
func InterpretValuesAsDouble(buf []byte, count int, sampleType descriptor.SampleType, rule descriptor.Rule) []float64 {
	valueSize := sampleType.ByteSize()
	if valueSize == 0 {
		return nil
	}

	stride := valueSize
	offset := 0
	if rule == descriptor.RuleEnum.Constant {
		stride = 8 + valueSize
		offset = 8
	}

	if len(buf) < count*stride {
		return nil
	}

	out := make([]float64, count)
	for i := 0; i < count; i++ {
		start := i*stride + offset
		v, ok := readPrimitiveAsDouble(buf[start:start+valueSize], sampleType)
		if !ok {
			return nil
		}
		out[i] = v
	}

	return out
}
