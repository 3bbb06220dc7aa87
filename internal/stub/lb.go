package stub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/runpod/flash/internal/credctx"
	flasherrors "github.com/runpod/flash/internal/errors"
)

// EndpointResolver is the narrow registry.Registry surface the LB Stub
// needs, kept as an interface to avoid importing internal/registry
// directly and to let tests fake URL resolution.
type EndpointResolver interface {
	EndpointFor(ctx context.Context, name string) string
}

// LBStub calls a load-balanced resource's route by issuing a real HTTP
// request against its resolved base URL (spec §4.14).
type LBStub struct {
	Resolver   EndpointResolver
	HTTPClient *http.Client
}

// bodyBearingMethods mirrors dispatch.Route.bodyBearing's rule: only
// these methods carry a JSON request body.
var bodyBearingMethods = map[string]bool{
	http.MethodPost: true, http.MethodPut: true, http.MethodPatch: true,
}

// Call resolves resourceName's base URL via the Service Registry, issues
// method against baseURL+path with args/kwargs as the JSON body (for
// body-bearing methods), propagates the active credential as a bearer
// token, and decodes the JSON response body into the returned value.
func (s *LBStub) Call(ctx context.Context, resourceName, method, path string, args []any, kwargs map[string]any) (any, error) {
	baseURL := s.Resolver.EndpointFor(ctx, resourceName)
	if baseURL == "" {
		return nil, flasherrors.Newf(flasherrors.CategoryControlPlane, flasherrors.CodeControlPlaneHTTP,
			"no known endpoint URL for resource %s", resourceName)
	}

	var bodyReader io.Reader
	if bodyBearingMethods[method] {
		payload := kwargs
		if payload == nil {
			payload = map[string]any{}
		}
		if len(args) > 0 {
			payload["args"] = args
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, flasherrors.Wrap(err, flasherrors.CategorySerialization, flasherrors.CodeSerializationEncode,
				"failed to encode request body")
		}
		bodyReader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, bodyReader)
	if err != nil {
		return nil, flasherrors.Wrap(err, flasherrors.CategoryControlPlane, flasherrors.CodeControlPlaneHTTP,
			"failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if key := credctx.Get(ctx); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	client := s.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, flasherrors.Wrap(err, flasherrors.CategoryControlPlane, flasherrors.CodeControlPlaneTimeout,
			"lb stub request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, flasherrors.Wrap(err, flasherrors.CategorySerialization, flasherrors.CodeSerializationDecode,
			"failed to read response body")
	}
	if resp.StatusCode >= 300 {
		return nil, flasherrors.ControlPlane(flasherrors.CodeControlPlaneHTTP,
			fmt.Sprintf("lb endpoint returned HTTP %d", resp.StatusCode), string(raw))
	}

	if len(raw) == 0 {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, flasherrors.Wrap(err, flasherrors.CategorySerialization, flasherrors.CodeSerializationDecode,
			"failed to decode response body")
	}
	return out, nil
}
