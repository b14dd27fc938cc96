package control

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opendaq/streaming-protocol-go/pkg/guid"
)

type fakeSubscriber struct {
	subscribeIDs   []string
	unsubscribeIDs []string
	err            error
}

func (f *fakeSubscriber) SubscribeSignals(ids []string) (int, error) {
	f.subscribeIDs = ids
	if f.err != nil {
		return 0, f.err
	}
	return len(ids), nil
}

func (f *fakeSubscriber) UnsubscribeSignals(ids []string) (int, error) {
	f.unsubscribeIDs = ids
	if f.err != nil {
		return 0, f.err
	}
	return len(ids), nil
}

func TestClientSubscribeRoutesToRegisteredSession(t *testing.T) {
	registry := NewRegistry()
	sub := &fakeSubscriber{}
	registry.Register("tcp://example:1234", sub)

	srv := httptest.NewServer(NewServer(registry, nil))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	count, err := client.Subscribe("tcp://example:1234", []string{"volt", "amp"})
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.Equal(t, []string{"volt", "amp"}, sub.subscribeIDs)
}

func TestClientUnsubscribeRoutesToRegisteredSession(t *testing.T) {
	registry := NewRegistry()
	sub := &fakeSubscriber{}
	registry.Register("s1", sub)

	srv := httptest.NewServer(NewServer(registry, nil))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	count, err := client.Unsubscribe("s1", []string{"volt"})
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Equal(t, []string{"volt"}, sub.unsubscribeIDs)
}

func TestClientUnknownStreamReturnsError(t *testing.T) {
	registry := NewRegistry()
	srv := httptest.NewServer(NewServer(registry, nil))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	_, err := client.Subscribe("nope", []string{"volt"})
	require.Error(t, err)
}

func TestClientSessionErrorPropagates(t *testing.T) {
	registry := NewRegistry()
	registry.Register("s1", &fakeSubscriber{err: errBoom{}})

	srv := httptest.NewServer(NewServer(registry, nil))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	_, err := client.Subscribe("s1", []string{"volt"})
	require.Error(t, err)
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func TestClientStampsEachRequestWithAUniqueGuidID(t *testing.T) {
	var ids []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		idStr, ok := req.ID.(string)
		require.True(t, ok, "request id must be a string guid")
		_, err := guid.Parse(idStr)
		require.NoError(t, err)
		ids = append(ids, idStr)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Response{JSONRPC: "2.0", Result: map[string]any{"subscribed": 0}, ID: req.ID})
	})

	srv := httptest.NewServer(handler)
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	_, err := client.Subscribe("s1", []string{"volt"})
	require.NoError(t, err)
	_, err = client.Subscribe("s1", []string{"amp"})
	require.NoError(t, err)

	require.Len(t, ids, 2)
	require.NotEqual(t, ids[0], ids[1])
}

func TestRegistryUnregisterRemovesSession(t *testing.T) {
	registry := NewRegistry()
	registry.Register("s1", &fakeSubscriber{})
	registry.Unregister("s1")

	_, ok := registry.Lookup("s1")
	require.False(t, ok)
}
