// Package meta implements the meta envelope described in spec §4.2: a
// 4-byte little-endian meta-type discriminator followed by a MessagePack
// document carrying an optional method name and params.
package meta

import (
	"encoding/binary"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/opendaq/streaming-protocol-go/pkg/protoerr"
)

// MsgPackType is the only meta-type this protocol accepts on the wire.
const MsgPackType uint32 = 2

// Envelope is a decoded meta frame body.
type Envelope struct {
	Method string
	Params any
}

type wireEnvelope struct {
	Method string `msgpack:"method,omitempty"`
	Params any    `msgpack:"params,omitempty"`
}

// Encode serializes an envelope to its on-wire form: [meta-type][msgpack body].
func Encode(env Envelope) ([]byte, error) {
	body, err := msgpack.Marshal(wireEnvelope{Method: env.Method, Params: env.Params})
	if err != nil {
		return nil, protoerr.Wrap(protoerr.KindEnum.BadMeta, err, "encoding meta envelope")
	}

	buf := make([]byte, 4+len(body))
	binary.LittleEndian.PutUint32(buf[:4], MsgPackType)
	copy(buf[4:], body)

	return buf, nil
}

// Decode parses a meta frame's payload. A non-MessagePack meta-type is a
// protocol error on the consumer side (spec §4.2/§4.10); producers never
// emit anything else.
func Decode(payload []byte) (Envelope, error) {
	if len(payload) < 4 {
		return Envelope{}, protoerr.New(protoerr.KindEnum.Protocol, "meta payload shorter than meta-type discriminator")
	}

	metaType := binary.LittleEndian.Uint32(payload[:4])

	if metaType != MsgPackType {
		return Envelope{}, protoerr.New(protoerr.KindEnum.Protocol, "unsupported meta-type %d", metaType)
	}

	var wire wireEnvelope

	if err := msgpack.Unmarshal(payload[4:], &wire); err != nil {
		return Envelope{}, protoerr.Wrap(protoerr.KindEnum.BadMeta, err, "decoding msgpack meta body")
	}

	return Envelope{Method: wire.Method, Params: wire.Params}, nil
}

// DecodeParamsAs re-marshals the already-decoded Params value (a generic
// map/slice from msgpack) into dst, a pointer to a concrete params struct.
func DecodeParamsAs(params any, dst any) error {
	raw, err := msgpack.Marshal(params)
	if err != nil {
		return protoerr.Wrap(protoerr.KindEnum.BadMeta, err, "re-encoding params")
	}

	if err := msgpack.Unmarshal(raw, dst); err != nil {
		return protoerr.Wrap(protoerr.KindEnum.BadMeta, err, "decoding params")
	}

	return nil
}
