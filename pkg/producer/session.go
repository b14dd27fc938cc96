// Package producer implements the producer session state machine (spec
// §4.7): the object a server holds per accepted connection, owning a
// stream writer and the registered signals, and drawing signal numbers
// from a process-wide allocator shared with other sessions.
package producer

import (
	"bufio"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tevino/abool/v2"

	"github.com/opendaq/streaming-protocol-go/pkg/metrics"
	"github.com/opendaq/streaming-protocol-go/pkg/producer/signal"
	"github.com/opendaq/streaming-protocol-go/pkg/producer/stream"
	"github.com/opendaq/streaming-protocol-go/pkg/protoerr"
	"github.com/opendaq/streaming-protocol-go/pkg/signalnum"
	"github.com/opendaq/streaming-protocol-go/pkg/thread"
	"github.com/opendaq/streaming-protocol-go/pkg/wire/frame"
)

// State is one state of the producer session state machine.
type State int

// StateEnum groups the four recognized session states.
var StateEnum = struct {
	Created State
	Active  State
	Closing State
	Closed  State
}{
	Created: 0,
	Active:  1,
	Closing: 2,
	Closed:  3,
}

// CommandInterfaces describes the control channel advertised in a
// session's `init` stream-meta frame (spec §4.11).
type CommandInterfaces struct {
	JSONRPCHTTP *JSONRPCHTTP `json:"jsonrpc-http,omitempty" msgpack:"jsonrpc-http,omitempty"`
}

// JSONRPCHTTP describes the HTTP endpoint accepting JSON-RPC 2.0
// subscribe/unsubscribe requests for this session's streamId.
type JSONRPCHTTP struct {
	HTTPControlPath string `json:"httpControlPath" msgpack:"httpControlPath"`
	HTTPControlPort int    `json:"httpControlPort" msgpack:"httpControlPort"`
	HTTPVersion     string `json:"httpVersion" msgpack:"httpVersion"`
}

// ErrorCallback is invoked once, when the session's read loop ends: with
// nil when the peer closes the transport cleanly, or with the read error
// otherwise. Write failures do not invoke it; they are returned only to
// the caller of the writing method. It runs on the session's read-loop
// goroutine; it must not call Stop synchronously, which joins that same
// goroutine and would deadlock.
type ErrorCallback func(err error)

// Session is a producer session: one per accepted connection, advancing
// through CREATED → ACTIVE → CLOSING → CLOSED. All exported methods are
// safe to call from multiple goroutines; ordering invariants among
// addSignal/subscribeSignals/addData calls are the caller's
// responsibility (spec §4.7, §5).
type Session struct {
	mutex sync.Mutex

	state State
	id    string

	transport io.ReadWriteCloser
	writer    *stream.Writer
	allocator *signalnum.Allocator

	signals map[string]signal.Signal

	closing        *abool.AtomicBool
	readLoopThread *thread.Thread
	log            *logrus.Entry
}

// New creates a CREATED-state session over transport, identified by id
// (a caller-chosen identifier, used as both the stream writer ID and the
// streamId announced in init; pkg/producer/server passes a random GUID).
// allocator must be shared across every
// session in the process: signal numbers are unique process-wide (spec
// §4.3), not per session, so a fresh Allocator here would let two
// concurrently connected sessions hand out colliding numbers.
func New(id string, transport io.ReadWriteCloser, allocator *signalnum.Allocator, log *logrus.Entry) *Session {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Session{
		state:     StateEnum.Created,
		id:        id,
		transport: transport,
		writer:    stream.New(id, transport),
		allocator: allocator,
		signals:   make(map[string]signal.Signal),
		closing:   abool.New(),
		log:       log.WithField("streamId", id),
	}
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state
}

// Writer returns the session's stream writer, for constructing signals bound to it.
func (s *Session) Writer() *stream.Writer {
	return s.writer
}

// NextSignalNumber allocates the next signal number for a signal about
// to be registered on this session.
func (s *Session) NextSignalNumber() uint32 {
	return s.allocator.Next()
}

// Start transitions CREATED → ACTIVE: writes the apiVersion frame, then
// the init frame (in that order, per spec §4.7), then begins a
// background read loop that discards inbound bytes until the peer
// closes the connection or a transport error occurs, at which point
// onError is invoked exactly once and the session moves to CLOSED.
func (s *Session) Start(apiVersion string, interfaces *CommandInterfaces, onError ErrorCallback) error {
	s.mutex.Lock()
	if s.state != StateEnum.Created {
		s.mutex.Unlock()
		return protoerr.New(protoerr.KindEnum.Protocol, "session %s: start() called outside CREATED state", s.id)
	}
	s.state = StateEnum.Active
	s.mutex.Unlock()

	if err := s.writer.WriteMetaInformation(frame.StreamMetaSignalNumber, "apiVersion", map[string]any{"version": apiVersion}); err != nil {
		return err
	}

	initParams := map[string]any{"streamId": s.id}
	if interfaces != nil {
		initParams["commandInterfaces"] = interfaces
	}
	if err := s.writer.WriteMetaInformation(frame.StreamMetaSignalNumber, "init", initParams); err != nil {
		return err
	}

	s.readLoopThread = thread.New(func() { s.readLoop(onError) })
	s.readLoopThread.Start()

	return nil
}

// readLoop discards inbound bytes until EOF or a read error, then
// reports the session's end via onError (nil on clean peer EOF) and
// transitions to CLOSED.
func (s *Session) readLoop(onError ErrorCallback) {
	reader := bufio.NewReader(s.transport)
	buf := make([]byte, 4096)

	var readErr error
	for {
		if _, err := reader.Read(buf); err != nil {
			if err != io.EOF {
				readErr = protoerr.Wrap(protoerr.KindEnum.TransportError, err, "session %s: read loop", s.id)
			}
			break
		}
	}

	s.mutex.Lock()
	s.state = StateEnum.Closed
	s.mutex.Unlock()

	if onError != nil {
		onError(readErr)
	}
}

// AddSignal registers s on this session. If s is a data signal, an
// `available` meta frame listing its ID is emitted.
func (s *Session) AddSignal(sig signal.Signal) error {
	return s.AddSignals([]signal.Signal{sig})
}

// AddSignals registers every signal in sigs under a single `available`
// meta frame listing the IDs of any that are data signals.
func (s *Session) AddSignals(sigs []signal.Signal) error {
	s.mutex.Lock()
	var available []string
	for _, sig := range sigs {
		s.signals[sig.ID()] = sig
		if sig.IsDataSignal() {
			available = append(available, sig.ID())
		}
	}
	s.mutex.Unlock()

	if len(available) == 0 {
		return nil
	}

	return s.writer.WriteMetaInformation(frame.StreamMetaSignalNumber, "available", map[string]any{"signalIds": available})
}

// RemoveSignal unregisters id from this session. If it was a data
// signal, an `unavailable` meta frame listing it is emitted.
func (s *Session) RemoveSignal(id string) error {
	return s.RemoveSignals([]string{id})
}

// RemoveSignals unregisters every ID in ids under a single `unavailable`
// meta frame listing those that were data signals.
func (s *Session) RemoveSignals(ids []string) error {
	s.mutex.Lock()
	var unavailable []string
	for _, id := range ids {
		sig, ok := s.signals[id]
		if !ok {
			continue
		}
		delete(s.signals, id)
		if sig.IsDataSignal() {
			unavailable = append(unavailable, id)
		}
	}
	s.mutex.Unlock()

	if len(unavailable) == 0 {
		return nil
	}

	return s.writer.WriteMetaInformation(frame.StreamMetaSignalNumber, "unavailable", map[string]any{"signalIds": unavailable})
}

// SubscribeSignals invokes Subscribe on every owned signal in ids (which
// writes that signal's subscribe ack and descriptor), returning the
// count matched.
func (s *Session) SubscribeSignals(ids []string) (int, error) {
	matched := 0
	for _, id := range ids {
		s.mutex.Lock()
		sig, ok := s.signals[id]
		s.mutex.Unlock()
		if !ok {
			continue
		}

		if err := sig.Subscribe(); err != nil {
			return matched, err
		}
		matched++
	}

	if matched > 0 {
		metrics.ActiveSubscriptions.Add(float64(matched))
	}

	return matched, nil
}

// UnsubscribeSignals invokes Unsubscribe on every owned signal in ids,
// returning the count matched.
func (s *Session) UnsubscribeSignals(ids []string) (int, error) {
	matched := 0
	for _, id := range ids {
		s.mutex.Lock()
		sig, ok := s.signals[id]
		s.mutex.Unlock()
		if !ok {
			continue
		}

		if err := sig.Unsubscribe(); err != nil {
			return matched, err
		}
		matched++
	}

	if matched > 0 {
		metrics.ActiveSubscriptions.Sub(float64(matched))
	}

	return matched, nil
}

// Stop transitions the session to CLOSING then CLOSED and closes the
// underlying transport. Further addData calls on this session's signals
// are undefined, per spec §4.7.
func (s *Session) Stop() error {
	s.mutex.Lock()
	if s.state == StateEnum.Closed {
		s.mutex.Unlock()
		return nil
	}
	s.state = StateEnum.Closing
	s.mutex.Unlock()

	s.closing.Set()

	err := s.transport.Close()

	if s.readLoopThread != nil {
		s.readLoopThread.Join()
	}

	s.mutex.Lock()
	s.state = StateEnum.Closed
	s.mutex.Unlock()

	if err != nil {
		return protoerr.Wrap(protoerr.KindEnum.TransportError, err, "session %s: stop()", s.id)
	}

	return nil
}
