// Package frame implements the transport framing described in spec §4.1:
// a 4-byte (or 8-byte, for large payloads) little-endian header carrying
// the transport type, the routing signal number, and the payload length.
package frame

import (
	"encoding/binary"
	"io"

	"github.com/opendaq/streaming-protocol-go/pkg/protoerr"
)

// TypeEnum groups the two recognized transport types.
var TypeEnum = struct {
	// SignalData marks a frame carrying raw sample bytes for a signal.
	SignalData Type
	// MetaInformation marks a frame carrying a meta envelope (see wire/meta).
	MetaInformation Type
}{
	SignalData:      1,
	MetaInformation: 2,
}

// Type is the 2-bit transport type carried in bits 28-29 of the header word.
type Type byte

// StreamMetaSignalNumber is the reserved signal number (0) used for
// stream-scoped meta frames.
const StreamMetaSignalNumber uint32 = 0

const (
	signalNumberMask uint32 = 0x000FFFFF // bits 0-19
	shortLengthMask  uint32 = 0x0FF00000 // bits 20-27
	shortLengthShift        = 20
	typeMask         uint32 = 0x30000000 // bits 28-29
	typeShift               = 28
	reservedMask     uint32 = 0xC0000000 // bits 30-31

	shortLengthExtended = 0 // short length of 0 means "read the extended u32 length"
	shortLengthMax       = 255
)

// Header is the decoded form of a frame's header word(s).
type Header struct {
	Type         Type
	SignalNumber uint32
	Length       uint32
}

// EncodeHeader returns the 4- or 8-byte encoded header for the given type,
// signal number, and payload length. A payload length in [1,255] encodes in
// the 4-byte short form; anything else (including lengths > 255 and, by
// convention, never 0 since a zero-length frame is never emitted) uses the
// 8-byte extended form.
func EncodeHeader(typ Type, signalNumber uint32, payloadLen uint32) []byte {
	var shortLength uint32

	if payloadLen >= 1 && payloadLen <= shortLengthMax {
		shortLength = payloadLen
	} else {
		shortLength = shortLengthExtended
	}

	word := (signalNumber & signalNumberMask) |
		((shortLength << shortLengthShift) & shortLengthMask) |
		((uint32(typ) << typeShift) & typeMask)

	if shortLength == shortLengthExtended {
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint32(buf[0:4], word)
		binary.LittleEndian.PutUint32(buf[4:8], payloadLen)
		return buf
	}

	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, word)
	return buf
}

// DecodeHeader reads 4 header bytes from r, and a further 4 extended-length
// bytes when the short length field is zero. It validates the transport
// type and the stream-scoped/signal-data interaction per spec §4.1.
func DecodeHeader(r io.Reader) (Header, error) {
	var buf [4]byte

	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, protoerr.Wrap(protoerr.KindEnum.TransportError, err, "reading frame header")
	}

	word := binary.LittleEndian.Uint32(buf[:])

	if word&reservedMask != 0 {
		return Header{}, protoerr.New(protoerr.KindEnum.MalformedHeader, "reserved header bits set: %#x", word)
	}

	typ := Type((word & typeMask) >> typeShift)

	if typ != TypeEnum.SignalData && typ != TypeEnum.MetaInformation {
		return Header{}, protoerr.New(protoerr.KindEnum.MalformedHeader, "invalid transport type %d", typ)
	}

	signalNumber := word & signalNumberMask
	shortLength := (word & shortLengthMask) >> shortLengthShift

	if signalNumber == StreamMetaSignalNumber && typ == TypeEnum.SignalData {
		return Header{}, protoerr.New(protoerr.KindEnum.MalformedHeader, "stream-scoped frame cannot carry signal data")
	}

	length := shortLength

	if shortLength == shortLengthExtended {
		var ext [4]byte

		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return Header{}, protoerr.Wrap(protoerr.KindEnum.TransportError, err, "reading extended frame length")
		}

		length = binary.LittleEndian.Uint32(ext[:])
	}

	return Header{Type: typ, SignalNumber: signalNumber, Length: length}, nil
}
