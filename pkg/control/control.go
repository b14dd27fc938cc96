// Package control implements the JSON-RPC 2.0 control channel (spec §4.11):
// an HTTP server that routes subscribe/unsubscribe commands to producer
// sessions by stream ID, and a client for issuing them.
//
// A command's method is "<streamId>.<command>" with command one of
// subscribe or unsubscribe, and params is a JSON array of signal IDs. The
// original implementation this protocol was distilled from never actually
// wired the routed command to a session (a left-behind `/// \todo`); this
// package completes that wiring and always returns a well-formed JSON-RPC
// result or error, per spec.
package control

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opendaq/streaming-protocol-go/pkg/guid"
	"github.com/opendaq/streaming-protocol-go/pkg/metrics"
	"github.com/opendaq/streaming-protocol-go/pkg/protoerr"
)

// Reserved JSON-RPC 2.0 error codes.
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

// Request is a JSON-RPC 2.0 request object.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id,omitempty"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string { return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message) }

// Response is a JSON-RPC 2.0 response object. Result and Error are
// mutually exclusive per the spec.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
	ID      any    `json:"id"`
}

// SignalSubscriber is the subset of a producer session the control server
// needs: the two commands it can route.
type SignalSubscriber interface {
	SubscribeSignals(ids []string) (int, error)
	UnsubscribeSignals(ids []string) (int, error)
}

// Registry maps stream IDs to the live sessions a control server may route
// commands to. A producer server registers each session as it starts and
// unregisters it on close.
type Registry struct {
	mutex    sync.RWMutex
	sessions map[string]SignalSubscriber
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]SignalSubscriber)}
}

// Register associates streamID with subscriber, replacing any prior entry.
func (r *Registry) Register(streamID string, subscriber SignalSubscriber) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.sessions[streamID] = subscriber
}

// Unregister removes streamID, if present.
func (r *Registry) Unregister(streamID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.sessions, streamID)
}

// Lookup returns the subscriber registered for streamID.
func (r *Registry) Lookup(streamID string) (SignalSubscriber, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	s, ok := r.sessions[streamID]
	return s, ok
}

// Server is an http.Handler serving the JSON-RPC 2.0 control channel at
// the path a producer session advertises as httpControlPath.
type Server struct {
	registry *Registry
	log      *logrus.Entry
}

// NewServer creates a Server routing commands through registry.
func NewServer(registry *Registry, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{registry: registry, log: log}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "only POST is supported", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		s.writeError(w, nil, InvalidRequest, "failed to read request body")
		return
	}

	var rpcReq Request
	if err := json.Unmarshal(body, &rpcReq); err != nil {
		s.writeError(w, nil, ParseError, "invalid json")
		return
	}

	if rpcReq.ID == nil {
		s.writeError(w, nil, InvalidRequest, "request without id")
		return
	}
	if rpcReq.Method == "" {
		s.writeError(w, rpcReq.ID, InvalidRequest, "request without method")
		return
	}

	streamID, command, ok := splitMethod(rpcReq.Method)
	if !ok {
		s.writeError(w, rpcReq.ID, InvalidRequest, fmt.Sprintf("invalid method %q, expecting <streamId>.<command>", rpcReq.Method))
		return
	}

	var signalIDs []string
	if len(rpcReq.Params) > 0 {
		if err := json.Unmarshal(rpcReq.Params, &signalIDs); err != nil {
			s.writeError(w, rpcReq.ID, InvalidParams, "params must be an array of signal ids")
			return
		}
	}

	subscriber, ok := s.registry.Lookup(streamID)
	if !ok {
		s.writeError(w, rpcReq.ID, MethodNotFound, fmt.Sprintf("unknown stream %q", streamID))
		return
	}

	start := time.Now()

	var count int
	switch command {
	case "subscribe":
		count, err = subscriber.SubscribeSignals(signalIDs)
	case "unsubscribe":
		count, err = subscriber.UnsubscribeSignals(signalIDs)
	default:
		s.writeError(w, rpcReq.ID, MethodNotFound, fmt.Sprintf("unknown command %q", command))
		return
	}

	metrics.ControlRequestDuration.WithLabelValues(command).Observe(time.Since(start).Seconds())

	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"streamId": streamID, "command": command}).Error("control command failed")
		s.writeError(w, rpcReq.ID, InternalError, err.Error())
		return
	}

	s.writeResult(w, rpcReq.ID, map[string]any{"subscribed": count})
}

func splitMethod(method string) (streamID, command string, ok bool) {
	i := strings.LastIndex(method, ".")
	if i <= 0 || i == len(method)-1 {
		return "", "", false
	}
	return method[:i], method[i+1:], true
}

func (s *Server) writeResult(w http.ResponseWriter, id any, result any) {
	s.write(w, Response{JSONRPC: "2.0", Result: result, ID: id})
}

func (s *Server) writeError(w http.ResponseWriter, id any, code int, message string) {
	s.write(w, Response{JSONRPC: "2.0", Error: &Error{Code: code, Message: message}, ID: id})
}

func (s *Server) write(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.WithError(err).Error("failed to encode control response")
	}
}

// Client issues JSON-RPC 2.0 subscribe/unsubscribe commands against a
// producer's control endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a Client posting requests to baseURL (the producer's
// httpControlPath, fully qualified with scheme/host/port).
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient, baseURL: baseURL}
}

// Subscribe asks the producer identified by streamID to subscribe
// signalIDs, returning the count it reports having subscribed.
func (c *Client) Subscribe(streamID string, signalIDs []string) (int, error) {
	return c.call(streamID, "subscribe", signalIDs)
}

// Unsubscribe asks the producer identified by streamID to unsubscribe signalIDs.
func (c *Client) Unsubscribe(streamID string, signalIDs []string) (int, error) {
	return c.call(streamID, "unsubscribe", signalIDs)
}

func (c *Client) call(streamID, command string, signalIDs []string) (int, error) {
	params, err := json.Marshal(signalIDs)
	if err != nil {
		return 0, protoerr.Wrap(protoerr.KindEnum.ControlRequestFailed, err, "encoding params")
	}

	reqBody, err := json.Marshal(Request{
		JSONRPC: "2.0",
		Method:  streamID + "." + command,
		Params:  params,
		ID:      guid.New().String(),
	})
	if err != nil {
		return 0, protoerr.Wrap(protoerr.KindEnum.ControlRequestFailed, err, "encoding request")
	}

	httpResp, err := c.httpClient.Post(c.baseURL, "application/json", bytes.NewReader(reqBody))
	if err != nil {
		return 0, protoerr.Wrap(protoerr.KindEnum.ControlRequestFailed, err, "posting control request")
	}
	defer httpResp.Body.Close()

	var rpcResp Response
	if err := json.NewDecoder(httpResp.Body).Decode(&rpcResp); err != nil {
		return 0, protoerr.Wrap(protoerr.KindEnum.ControlRequestFailed, err, "decoding control response")
	}

	if rpcResp.Error != nil {
		return 0, protoerr.Wrap(protoerr.KindEnum.ControlRequestFailed, rpcResp.Error, "%s.%s rejected", streamID, command)
	}

	resultMap, ok := rpcResp.Result.(map[string]any)
	if !ok {
		return 0, nil
	}
	count, _ := resultMap["subscribed"].(float64)
	return int(count), nil
}
