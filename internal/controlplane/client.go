// Package controlplane implements the Control-Plane Client (C4): an
// authenticated JSON-over-HTTP client speaking both REST (job submit,
// status, logs) and GraphQL (resource/app/env CRUD, auth-request flow)
// against the cloud control plane.
package controlplane

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/runpod/flash/internal/backoff"
	flasherrors "github.com/runpod/flash/internal/errors"
	"github.com/runpod/flash/internal/version"
)

// Mode selects the client's default timeout profile.
type Mode int

const (
	// ModeShort is the default for interactive calls (30s).
	ModeShort Mode = iota
	// ModeLong is for bulk operations like build uploads (300s).
	ModeLong
	// ModeBlocking issues requests synchronously with no extra timeout
	// beyond what the caller's context specifies.
	ModeBlocking
)

const (
	shortTimeout = 30 * time.Second
	longTimeout  = 300 * time.Second

	maxBodyBytes = 500
)

// DefaultBaseURL is the production control-plane host, overridable via
// RUNPOD_API_BASE_URL for testing against a staging environment.
const DefaultBaseURL = "https://api.runpod.ai"

// ResolveBaseURL returns RUNPOD_API_BASE_URL if set, else DefaultBaseURL.
func ResolveBaseURL() string {
	if v := os.Getenv("RUNPOD_API_BASE_URL"); v != "" {
		return v
	}
	return DefaultBaseURL
}

// Client is the shared HTTP client for both REST and GraphQL calls.
type Client struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	requireKey bool
	retries    int
	strategy   backoff.Strategy
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the credential used for Authorization unless overridden
// per-call via context (see WithCallerKey).
func WithAPIKey(key string) Option { return func(c *Client) { c.apiKey = key } }

// WithRetries sets the number of retries on transport failure (0 disables
// retrying).
func WithRetries(n int, strategy backoff.Strategy) Option {
	return func(c *Client) { c.retries = n; c.strategy = strategy }
}

// New builds a Client. requireAPIKey mirrors the GraphQL constructor's
// `require_api_key` switch (spec §4.4): when false, an unauthenticated
// session is built, used by the login flow before a key exists.
func New(baseURL string, mode Mode, requireAPIKey bool, opts ...Option) *Client {
	timeout := shortTimeout
	switch mode {
	case ModeLong:
		timeout = longTimeout
	case ModeBlocking:
		timeout = 0
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		requireKey: requireAPIKey,
		strategy:   backoff.NewExponential(200*time.Millisecond, 5*time.Second, 0.2),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type callerKeyType struct{}

var callerKeyCtxKey = callerKeyType{}

// WithCallerKey returns a context carrying an api_key_override that
// trumps the Client's configured key for the duration of one call
// (spec §4.4).
func WithCallerKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, callerKeyCtxKey, key)
}

func callerKeyFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(callerKeyCtxKey).(string)
	return v, ok
}

func userAgent() string {
	return fmt.Sprintf("Flash/%s (%s %s)", version.Version, runtime.Version(), runtime.GOOS)
}

func (c *Client) resolveKey(ctx context.Context) (string, error) {
	if override, ok := callerKeyFromContext(ctx); ok && override != "" {
		return override, nil
	}
	if c.apiKey != "" {
		return c.apiKey, nil
	}
	if c.requireKey {
		return "", flasherrors.New(flasherrors.CategoryAuth, flasherrors.CodeAuthMissingKey, "no API key available")
	}
	return "", nil
}

// doRequest issues a single HTTP request with standard headers, retrying
// on transport-level failures per the configured backoff strategy.
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	key, err := c.resolveKey(ctx)
	if err != nil {
		return nil, err
	}

	var lastErr error
	attempts := c.retries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.strategy.Delay(attempt - 1)):
			}
		}

		req, reqErr := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if reqErr != nil {
			return nil, flasherrors.Wrap(reqErr, flasherrors.CategoryControlPlane, flasherrors.CodeControlPlaneHTTP,
				"failed to build request")
		}
		req.Header.Set("User-Agent", userAgent())
		req.Header.Set("Content-Type", "application/json")
		if key != "" {
			req.Header.Set("Authorization", "Bearer "+key)
		}

		resp, doErr := c.httpClient.Do(req)
		if doErr == nil {
			return resp, nil
		}
		lastErr = doErr
	}

	return nil, flasherrors.Wrap(lastErr, flasherrors.CategoryControlPlane, flasherrors.CodeControlPlaneTimeout,
		"control plane request failed after retries")
}

func truncatedBody(r io.Reader) string {
	buf := make([]byte, maxBodyBytes)
	n, _ := io.ReadFull(r, buf)
	return string(buf[:n])
}

// httpError builds a ControlPlaneError carrying the truncated body.
func httpError(resp *http.Response) error {
	defer resp.Body.Close()
	body := truncatedBody(resp.Body)
	return flasherrors.ControlPlane(flasherrors.CodeControlPlaneHTTP,
		fmt.Sprintf("control plane returned HTTP %d", resp.StatusCode), body)
}

// Post issues a JSON POST to path and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	var body []byte
	var err error
	if in != nil {
		body, err = json.Marshal(in)
		if err != nil {
			return flasherrors.Wrap(err, flasherrors.CategorySerialization, flasherrors.CodeSerializationEncode,
				"failed to marshal request body")
		}
	}

	resp, err := c.doRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return httpError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return flasherrors.Wrap(err, flasherrors.CategorySerialization, flasherrors.CodeSerializationDecode,
			"failed to decode response body")
	}
	return nil
}

// Get issues a GET to path and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return httpError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return flasherrors.Wrap(err, flasherrors.CategorySerialization, flasherrors.CodeSerializationDecode,
			"failed to decode response body")
	}
	return nil
}
