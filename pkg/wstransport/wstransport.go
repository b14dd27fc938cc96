// Package wstransport adapts a WebSocket connection to the io.ReadWriteCloser
// the producer and consumer sides exchange frames over (spec §4.1): each
// Write call is sent as one binary WebSocket message, and Read presents the
// incoming message stream as a flat byte stream so frame.DecodeHeader's
// io.ReadFull calls may span WebSocket message boundaries.
package wstransport

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/opendaq/streaming-protocol-go/pkg/protoerr"
)

// Conn wraps a *websocket.Conn as an io.ReadWriteCloser carrying the
// streaming protocol's binary frame stream.
type Conn struct {
	ws *websocket.Conn

	writeMutex sync.Mutex

	readMutex sync.Mutex
	pending   []byte
}

// New wraps an already-established WebSocket connection.
func New(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// Write sends p as a single binary WebSocket message.
func (c *Conn) Write(p []byte) (int, error) {
	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()

	if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, protoerr.Wrap(protoerr.KindEnum.TransportError, err, "writing websocket message")
	}

	return len(p), nil
}

// Read fills p from the buffered tail of the current WebSocket message,
// reading a new message once the buffer is exhausted.
func (c *Conn) Read(p []byte) (int, error) {
	c.readMutex.Lock()
	defer c.readMutex.Unlock()

	for len(c.pending) == 0 {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			return 0, protoerr.Wrap(protoerr.KindEnum.TransportError, err, "reading websocket message")
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		c.pending = data
	}

	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

// Close closes the underlying WebSocket connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}

// DialOptions configures Dial.
type DialOptions struct {
	HandshakeTimeout time.Duration
}

// Dial establishes a client WebSocket connection to url and wraps it.
func Dial(url string, opts DialOptions) (*Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: opts.HandshakeTimeout,
	}
	if dialer.HandshakeTimeout == 0 {
		dialer.HandshakeTimeout = 10 * time.Second
	}

	ws, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, protoerr.Wrap(protoerr.KindEnum.TransportError, err, "dialing %s", url)
	}

	return New(ws), nil
}

// Upgrader upgrades incoming HTTP connections to WebSocket transports for a
// producer's accept loop.
type Upgrader struct {
	upgrader websocket.Upgrader
}

// NewUpgrader creates an Upgrader accepting any origin, matching a
// telemetry producer that expects consumers from arbitrary hosts.
func NewUpgrader() *Upgrader {
	return &Upgrader{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Upgrade upgrades one incoming HTTP request to a WebSocket transport.
func (u *Upgrader) Upgrade(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	ws, err := u.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, protoerr.Wrap(protoerr.KindEnum.TransportError, err, "upgrading websocket connection")
	}

	return New(ws), nil
}
