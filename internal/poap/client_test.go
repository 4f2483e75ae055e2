package poap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wallet = "0x1111111111111111111111111111111111111111"

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, time.Second)
}

func TestClient_Events(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/events", r.URL.Path)
		w.Write([]byte(`[{"id":42,"name":"DevConnect","image_url":"https://img.example/42.png"}]`))
	})

	events, err := client.Events(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int64(42), events[0].ID)
	assert.Equal(t, "DevConnect", events[0].Name)
}

func TestClient_EventByID(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/events/id/42", r.URL.Path)
		w.Write([]byte(`{"id":42,"name":"DevConnect"}`))
	})

	event, err := client.EventByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "DevConnect", event.Name)
}

func TestClient_HoldsEvent(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/actions/scan/"+wallet, r.URL.Path)
		w.Write([]byte(`[{"event":{"id":7}},{"event":{"id":42}}]`))
	})

	holds, err := client.HoldsEvent(context.Background(), wallet, 42)
	require.NoError(t, err)
	assert.True(t, holds)

	holds, err = client.HoldsEvent(context.Background(), wallet, 99)
	require.NoError(t, err)
	assert.False(t, holds)
}

func TestClient_HoldsEvent_APIFailure(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	// a failed check is an error, never a silent "does not hold"
	_, err := client.HoldsEvent(context.Background(), wallet, 42)
	assert.Error(t, err)
}
