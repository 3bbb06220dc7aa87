package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runpod/flash/internal/codec"
	"github.com/runpod/flash/internal/credctx"
)

func createItem(ctx context.Context, name string, price float64, quantity float64) map[string]any {
	return map[string]any{
		"name":  name,
		"total": price * quantity,
	}
}

func TestLBHandler_AutoSchema_Success(t *testing.T) {
	h := &LBHandler{Routes: []Route{
		{
			Method:     http.MethodPost,
			Path:       "/items",
			ParamNames: []string{"name", "price", "quantity"},
			Defaults:   map[string]any{"quantity": 1.0},
			Handler:    createItem,
		},
	}}

	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	body, _ := json.Marshal(map[string]any{"name": "Widget", "price": 9.99, "quantity": 3})
	resp, err := http.Post(srv.URL+"/items", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.InDelta(t, 29.97, out["total"], 0.001)
}

func TestLBHandler_AutoSchema_MissingRequiredField(t *testing.T) {
	h := &LBHandler{Routes: []Route{
		{
			Method:     http.MethodPost,
			Path:       "/items",
			ParamNames: []string{"name", "price", "quantity"},
			Defaults:   map[string]any{"quantity": 1.0},
			Handler:    createItem,
		},
	}}

	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	body, _ := json.Marshal(map[string]any{"price": 9.99})
	resp, err := http.Post(srv.URL+"/items", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLBHandler_DefaultApplied(t *testing.T) {
	h := &LBHandler{Routes: []Route{
		{
			Method:     http.MethodPost,
			Path:       "/items",
			ParamNames: []string{"name", "price", "quantity"},
			Defaults:   map[string]any{"quantity": 1.0},
			Handler:    createItem,
		},
	}}

	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	body, _ := json.Marshal(map[string]any{"name": "Widget", "price": 10.0})
	resp, err := http.Post(srv.URL+"/items", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.InDelta(t, 10.0, out["total"], 0.001)
}

func zeroParamHandler(ctx context.Context) map[string]bool {
	return map[string]bool{"ok": true}
}

func TestLBHandler_ZeroParamRoute_NoBodyNeeded(t *testing.T) {
	h := &LBHandler{Routes: []Route{
		{Method: http.MethodGet, Path: "/health", Handler: zeroParamHandler},
	}}
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

var capturedKey string

func echoCredential(ctx context.Context) map[string]string {
	capturedKey = credctx.Get(ctx)
	return map[string]string{"key": capturedKey}
}

func TestLBHandler_CredentialMiddleware_ExtractsBearerToken(t *testing.T) {
	h := &LBHandler{Routes: []Route{
		{Method: http.MethodGet, Path: "/whoami", Handler: echoCredential},
	}}
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/whoami", nil)
	req.Header.Set("Authorization", "Bearer sk-test-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "sk-test-123", out["key"])
}

func TestLBHandler_Eval_DispatchesRegisteredFunction(t *testing.T) {
	h := &LBHandler{
		IncludeEval:   true,
		EvalFunctions: FunctionRegistry{"add": add},
	}
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	argA, err := codec.EncodeOne(2)
	require.NoError(t, err)
	argB, err := codec.EncodeOne(3)
	require.NoError(t, err)

	body, _ := json.Marshal(evalRequest{FunctionName: "add", Args: []string{argA, argB}})
	resp, err := http.Post(srv.URL+"/execute", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out JobResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Success)
}
