// Package server implements the producer-side connection registry (spec
// §4.7's "a server holds per accepted connection"): it accepts incoming
// WebSocket connections, wraps each in a Session, and keeps the mutex-
// guarded bookkeeping a real producer needs to route control-channel
// commands to the right session and to stop every session on shutdown.
package server

import (
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/opendaq/streaming-protocol-go/pkg/control"
	"github.com/opendaq/streaming-protocol-go/pkg/guid"
	"github.com/opendaq/streaming-protocol-go/pkg/metrics"
	"github.com/opendaq/streaming-protocol-go/pkg/producer"
	"github.com/opendaq/streaming-protocol-go/pkg/producer/signal"
	"github.com/opendaq/streaming-protocol-go/pkg/signalnum"
	"github.com/opendaq/streaming-protocol-go/pkg/wstransport"
)

// apiVersion is the version this server announces in every session's
// apiVersion stream-meta frame.
const apiVersion = "1.0.0"

// SessionFactory builds the signals a newly accepted session should own,
// called once per connection after the session reaches ACTIVE.
type SessionFactory func(s *producer.Session) []signal.Signal

// Server accepts WebSocket connections on an HTTP endpoint and turns each
// into a producer session, keeping a registry of live sessions so control
// commands can be routed and all sessions stopped together.
type Server struct {
	mutex    sync.Mutex
	sessions map[string]*producer.Session

	upgrader  *wstransport.Upgrader
	registry  *control.Registry
	allocator *signalnum.Allocator
	log       *logrus.Entry

	controlPath string
	controlPort int

	onSession SessionFactory
}

// New creates a Server. controlPath/controlPort, when controlPort is
// nonzero, are advertised to every session as the JSON-RPC control
// channel endpoint and the session is registered with registry under its
// streamId so control commands can reach it. A single signalnum.Allocator
// is shared by every session the server creates, since signal numbers
// must be unique across the whole process (spec §4.3), not just within
// one connection.
func New(registry *control.Registry, controlPath string, controlPort int, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{
		sessions:    make(map[string]*producer.Session),
		upgrader:    wstransport.NewUpgrader(),
		registry:    registry,
		allocator:   signalnum.New(),
		log:         log,
		controlPath: controlPath,
		controlPort: controlPort,
	}
}

// OnSession sets the callback invoked once per accepted connection to
// populate the new session's signals.
func (s *Server) OnSession(factory SessionFactory) {
	s.onSession = factory
}

// SessionCount returns the number of currently registered sessions.
func (s *Server) SessionCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.sessions)
}

// ServeHTTP upgrades the request to a WebSocket connection and starts a
// new producer session over it, using a freshly generated GUID as the
// session's stream ID. It implements http.Handler so it can be registered directly
// on a ServeMux or used standalone with http.ListenAndServe.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r)
	if err != nil {
		s.log.WithError(err).Error("websocket upgrade failed")
		return
	}

	streamID := guid.New().String()
	sess := producer.New(streamID, conn, s.allocator, s.log.WithFields(logrus.Fields{"streamId": streamID, "remoteAddr": r.RemoteAddr}))

	var interfaces *producer.CommandInterfaces
	if s.controlPort != 0 {
		interfaces = &producer.CommandInterfaces{
			JSONRPCHTTP: &producer.JSONRPCHTTP{
				HTTPControlPath: s.controlPath,
				HTTPControlPort: s.controlPort,
				HTTPVersion:     "1.1",
			},
		}
	}

	s.mutex.Lock()
	s.sessions[streamID] = sess
	s.mutex.Unlock()
	metrics.ActiveSessions.Inc()

	if s.registry != nil {
		s.registry.Register(streamID, sess)
	}

	onError := func(err error) {
		s.log.WithError(err).WithField("streamId", streamID).Info("session ended")
		s.removeSession(streamID)
	}

	if err := sess.Start(apiVersion, interfaces, onError); err != nil {
		s.log.WithError(err).Error("failed to start session")
		s.removeSession(streamID)
		return
	}

	if s.onSession != nil {
		for _, sig := range s.onSession(sess) {
			if err := sess.AddSignal(sig); err != nil {
				s.log.WithError(err).WithField("signalId", sig.ID()).Error("failed to add signal")
			}
		}
	}
}

func (s *Server) removeSession(streamID string) {
	s.mutex.Lock()
	_, existed := s.sessions[streamID]
	delete(s.sessions, streamID)
	s.mutex.Unlock()

	if existed {
		metrics.ActiveSessions.Dec()
	}

	if s.registry != nil {
		s.registry.Unregister(streamID)
	}
}

// Stop stops every registered session and clears the registry.
func (s *Server) Stop() {
	s.mutex.Lock()
	sessions := make([]*producer.Session, 0, len(s.sessions))
	for id, sess := range s.sessions {
		sessions = append(sessions, sess)
		if s.registry != nil {
			s.registry.Unregister(id)
		}
	}
	s.sessions = make(map[string]*producer.Session)
	s.mutex.Unlock()
	metrics.ActiveSessions.Sub(float64(len(sessions)))

	var g errgroup.Group
	for _, sess := range sessions {
		sess := sess
		g.Go(func() error {
			return sess.Stop()
		})
	}

	if err := g.Wait(); err != nil {
		s.log.WithError(err).Warn("error stopping one or more sessions")
	}
}
