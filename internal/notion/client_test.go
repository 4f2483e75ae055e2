package notion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charmverse/token-gate/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", time.Second)
}

func TestClient_UserByEmail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/byEmail", r.URL.Path)
		require.Equal(t, "visitor@example.com", r.URL.Query().Get("email"))
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"userId":"notion-user-1"}`))
	})

	id, err := client.UserByEmail(context.Background(), "visitor@example.com")
	require.NoError(t, err)
	assert.Equal(t, "notion-user-1", id)
}

func TestClient_UserByEmail_Unknown(t *testing.T) {
	t.Run("404", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		_, err := client.UserByEmail(context.Background(), "nobody@example.com")
		assert.ErrorIs(t, err, domain.ErrUnknownNotionUser)
	})

	t.Run("empty id", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		})
		_, err := client.UserByEmail(context.Background(), "nobody@example.com")
		assert.ErrorIs(t, err, domain.ErrUnknownNotionUser)
	})
}

func TestClient_AddMember(t *testing.T) {
	role := domain.RoleReader
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/spaces/space-1/members", r.URL.Path)

		var req AddMemberRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "notion-user-1", req.UserID)
		require.NotNil(t, req.Role)
		assert.Equal(t, role, *req.Role)

		w.WriteHeader(http.StatusCreated)
	})

	err := client.AddMember(context.Background(), AddMemberRequest{
		SpaceID: "space-1",
		UserID:  "notion-user-1",
		Role:    &role,
	})
	assert.NoError(t, err)
}

func TestClient_RemoveMember(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/spaces/space-1/members/notion-user-1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.RemoveMember(context.Background(), "space-1", "notion-user-1")
	assert.NoError(t, err)
}

func TestClient_AddMember_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := client.AddMember(context.Background(), AddMemberRequest{SpaceID: "space-1"})
	assert.Error(t, err)
}
