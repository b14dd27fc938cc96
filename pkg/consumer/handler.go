// Package consumer implements the consumer-side protocol handler (spec
// §4.10): a read loop that decodes frames off a byte transport and
// dispatches them to the signal container, plus the stream-meta
// interpreter for apiVersion/init/available/unavailable/alive frames.
package consumer

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/opendaq/streaming-protocol-go/pkg/consumer/container"
	"github.com/opendaq/streaming-protocol-go/pkg/metrics"
	"github.com/opendaq/streaming-protocol-go/pkg/protoerr"
	"github.com/opendaq/streaming-protocol-go/pkg/version"
	"github.com/opendaq/streaming-protocol-go/pkg/wire/frame"
	"github.com/opendaq/streaming-protocol-go/pkg/wire/meta"
)

// StreamMetaCallback is invoked once per stream-scoped meta frame
// (signal number 0), after any built-in interpretation.
type StreamMetaCallback func(method string, params any)

// CompletionCallback is invoked exactly once when the read loop ends:
// err is nil on a clean peer EOF, non-nil on any protocol or transport error.
type CompletionCallback func(err error)

// jsonRPCHTTP mirrors the producer's commandInterfaces.jsonrpc-http sub-object.
type jsonRPCHTTP struct {
	HTTPControlPath string `msgpack:"httpControlPath"`
	HTTPControlPort int    `msgpack:"httpControlPort"`
	HTTPVersion     string `msgpack:"httpVersion"`
}

type commandInterfaces struct {
	JSONRPCHTTP *jsonRPCHTTP `msgpack:"jsonrpc-http"`
}

type initParams struct {
	StreamID          string             `msgpack:"streamId"`
	CommandInterfaces *commandInterfaces `msgpack:"commandInterfaces"`
}

type apiVersionParams struct {
	Version string `msgpack:"version"`
}

// Handler is the consumer-side protocol handler for one session.
type Handler struct {
	transport io.Reader
	container *container.Container
	log       *logrus.Entry

	apiVersion      string
	streamID        string
	httpControlPath string
	httpControlPort int
	httpVersion     string

	StreamMetaCb StreamMetaCallback
}

// New creates a Handler reading frames from transport and dispatching
// signal-scoped frames into c.
func New(transport io.Reader, c *container.Container, log *logrus.Entry) *Handler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Handler{transport: transport, container: c, log: log}
}

// StreamID returns the streamId recorded from the session's init frame.
func (h *Handler) StreamID() string { return h.streamID }

// HTTPControlEndpoint returns the control-channel HTTP path and port
// recorded from the session's init frame.
func (h *Handler) HTTPControlEndpoint() (path string, port int) {
	return h.httpControlPath, h.httpControlPort
}

// APIVersion returns the apiVersion string recorded from the session's
// apiVersion frame.
func (h *Handler) APIVersion() string { return h.apiVersion }

// Run drives the read loop until EOF or an unrecoverable error, invoking
// onDone exactly once before returning.
func (h *Handler) Run(onDone CompletionCallback) error {
	err := h.loop()

	if err == io.EOF {
		if onDone != nil {
			onDone(nil)
		}
		return nil
	}

	if onDone != nil {
		onDone(err)
	}
	return err
}

func (h *Handler) loop() error {
	for {
		hdr, err := frame.DecodeHeader(h.transport)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.EOF
			}
			return err
		}

		payload := make([]byte, hdr.Length)
		if hdr.Length > 0 {
			if _, err := io.ReadFull(h.transport, payload); err != nil {
				if err == io.EOF || err == io.ErrUnexpectedEOF {
					return io.EOF
				}
				return protoerr.Wrap(protoerr.KindEnum.TransportError, err, "reading frame payload")
			}
		}

		switch hdr.Type {
		case frame.TypeEnum.SignalData:
			metrics.FramesDecoded.WithLabelValues("data").Inc()
			if err := h.container.ProcessData(hdr.SignalNumber, payload); err != nil {
				return err
			}

		case frame.TypeEnum.MetaInformation:
			metrics.FramesDecoded.WithLabelValues("meta").Inc()
			env, err := meta.Decode(payload)
			if err != nil {
				return err
			}

			if hdr.SignalNumber == frame.StreamMetaSignalNumber {
				if err := h.handleStreamMeta(env.Method, env.Params); err != nil {
					return err
				}
			} else if err := h.container.ProcessMeta(hdr.SignalNumber, env.Method, env.Params); err != nil {
				return err
			}

		default:
			return protoerr.New(protoerr.KindEnum.Protocol, "unrecognized frame type %v", hdr.Type)
		}
	}
}

func (h *Handler) handleStreamMeta(method string, params any) error {
	switch method {
	case "apiVersion":
		var p apiVersionParams
		if err := meta.DecodeParamsAs(params, &p); err != nil {
			return protoerr.Wrap(protoerr.KindEnum.BadMeta, err, "decoding apiVersion params")
		}
		if err := version.Check(p.Version); err != nil {
			return err
		}
		h.apiVersion = p.Version

	case "init":
		var p initParams
		if err := meta.DecodeParamsAs(params, &p); err != nil {
			return protoerr.Wrap(protoerr.KindEnum.BadMeta, err, "decoding init params")
		}
		h.streamID = p.StreamID
		if p.CommandInterfaces != nil && p.CommandInterfaces.JSONRPCHTTP != nil {
			h.httpControlPath = p.CommandInterfaces.JSONRPCHTTP.HTTPControlPath
			h.httpControlPort = p.CommandInterfaces.JSONRPCHTTP.HTTPControlPort
			h.httpVersion = p.CommandInterfaces.JSONRPCHTTP.HTTPVersion
		}

	case "alive", "available", "unavailable":
		// advisory / forwarded as-is to the user callback below.

	default:
		h.log.WithField("method", method).Debug("unrecognized stream-meta method")
	}

	if h.StreamMetaCb != nil {
		h.StreamMetaCb(method, params)
	}

	return nil
}
