package controlplane

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserAgentAndAuthHeader(t *testing.T) {
	var gotUA, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"ok": "true"})
	}))
	defer srv.Close()

	c := New(srv.URL, ModeShort, true, WithAPIKey("sk-abc"))
	var out map[string]string
	err := c.Get(context.Background(), "/ping", &out)
	require.NoError(t, err)

	assert.Contains(t, gotUA, "Flash/")
	assert.Equal(t, "Bearer sk-abc", gotAuth)
}

func TestCallerKeyOverridesConfiguredKey(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	c := New(srv.URL, ModeShort, true, WithAPIKey("configured-key"))
	ctx := WithCallerKey(context.Background(), "override-key")
	err := c.Get(ctx, "/ping", nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer override-key", gotAuth)
}

func TestRequireAPIKey_MissingFails(t *testing.T) {
	c := New("http://example.invalid", ModeShort, true)
	err := c.Get(context.Background(), "/ping", nil)
	require.Error(t, err)
}

func TestRequireAPIKey_FalseAllowsUnauthenticated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	c := New(srv.URL, ModeShort, false)
	err := c.Get(context.Background(), "/login", nil)
	require.NoError(t, err)
}

func TestHTTPError_ReportsControlPlaneCategory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("server exploded"))
	}))
	defer srv.Close()

	c := New(srv.URL, ModeShort, false)
	err := c.Get(context.Background(), "/boom", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "control_plane")
}

func TestGraphQL_ErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]string{{"message": "resource not found"}},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, ModeShort, false)
	err := c.GraphQL(context.Background(), `query { app(id: "x") { id } }`, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "control_plane")
}

func TestGraphQL_DecodesData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"saveEndpoint": map[string]any{"id": "ep-1"}},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, ModeShort, false)
	result, err := c.SaveEndpoint(context.Background(), map[string]any{"name": "w"})
	require.NoError(t, err)
	assert.Equal(t, "ep-1", result.ID)
}
