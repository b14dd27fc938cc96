package server

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opendaq/streaming-protocol-go/pkg/control"
	"github.com/opendaq/streaming-protocol-go/pkg/guid"
	"github.com/opendaq/streaming-protocol-go/pkg/producer"
	"github.com/opendaq/streaming-protocol-go/pkg/producer/signal"
	"github.com/opendaq/streaming-protocol-go/pkg/wire/descriptor"
	"github.com/opendaq/streaming-protocol-go/pkg/wire/frame"
	"github.com/opendaq/streaming-protocol-go/pkg/wire/meta"
	"github.com/opendaq/streaming-protocol-go/pkg/wstransport"
)

func readFrame(t *testing.T, r io.Reader) (frame.Header, meta.Envelope) {
	t.Helper()
	hdr, err := frame.DecodeHeader(r)
	require.NoError(t, err)
	payload := make([]byte, hdr.Length)
	_, err = io.ReadFull(r, payload)
	require.NoError(t, err)
	env, err := meta.Decode(payload)
	require.NoError(t, err)
	return hdr, env
}

func TestServerAcceptsConnectionAndAddsSignal(t *testing.T) {
	registry := control.NewRegistry()
	srv := New(registry, "/control", 0, nil)
	srv.OnSession(func(s *producer.Session) []signal.Signal {
		sig := signal.NewSynchronousValueSignal[float64]("volt", "T", s.NextSignalNumber(), descriptor.SampleTypeEnum.Real64, s.Writer())
		return []signal.Signal{sig}
	})

	httpSrv := httptest.NewServer(srv)
	defer httpSrv.Close()

	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/"
	conn, err := wstransport.Dial(url, wstransport.DialOptions{})
	require.NoError(t, err)
	defer conn.Close()

	_, env := readFrame(t, conn)
	require.Equal(t, "apiVersion", env.Method)

	_, env = readFrame(t, conn)
	require.Equal(t, "init", env.Method)

	_, env = readFrame(t, conn)
	require.Equal(t, "available", env.Method)

	require.Eventually(t, func() bool { return srv.SessionCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestServerAssignsDistinctGuidStreamIDsPerConnection(t *testing.T) {
	registry := control.NewRegistry()
	srv := New(registry, "/control", 0, nil)

	httpSrv := httptest.NewServer(srv)
	defer httpSrv.Close()

	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/"

	connA, err := wstransport.Dial(url, wstransport.DialOptions{})
	require.NoError(t, err)
	defer connA.Close()
	_, envA := readFrame(t, connA) // apiVersion
	_, envA = readFrame(t, connA)  // init
	idA := envA.Params.(map[string]any)["streamId"].(string)

	connB, err := wstransport.Dial(url, wstransport.DialOptions{})
	require.NoError(t, err)
	defer connB.Close()
	_, envB := readFrame(t, connB)
	_, envB = readFrame(t, connB)
	idB := envB.Params.(map[string]any)["streamId"].(string)

	require.NotEqual(t, idA, idB)

	_, err = guid.Parse(idA)
	require.NoError(t, err)
	_, err = guid.Parse(idB)
	require.NoError(t, err)
}

// TestServerAssignsProcessWideUniqueSignalNumbers guards spec §4.3's
// uniqueness invariant: two sessions accepted by the same server must
// never hand out the same signal number, even though each calls
// NextSignalNumber() starting from a fresh session.
func TestServerAssignsProcessWideUniqueSignalNumbers(t *testing.T) {
	registry := control.NewRegistry()
	srv := New(registry, "/control", 0, nil)

	var numbers []uint32
	var mutex sync.Mutex
	srv.OnSession(func(s *producer.Session) []signal.Signal {
		n := s.NextSignalNumber()
		mutex.Lock()
		numbers = append(numbers, n)
		mutex.Unlock()
		return nil
	})

	httpSrv := httptest.NewServer(srv)
	defer httpSrv.Close()

	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/"

	connA, err := wstransport.Dial(url, wstransport.DialOptions{})
	require.NoError(t, err)
	defer connA.Close()
	readFrame(t, connA)
	readFrame(t, connA)

	connB, err := wstransport.Dial(url, wstransport.DialOptions{})
	require.NoError(t, err)
	defer connB.Close()
	readFrame(t, connB)
	readFrame(t, connB)

	require.Eventually(t, func() bool {
		mutex.Lock()
		defer mutex.Unlock()
		return len(numbers) == 2
	}, time.Second, 10*time.Millisecond)

	mutex.Lock()
	defer mutex.Unlock()
	require.NotEqual(t, numbers[0], numbers[1])
}
