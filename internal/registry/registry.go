// Package registry implements the Service Registry (C16): a
// per-process, TTL-gated cache mapping a resource name to its deployed
// URL, consulted by the LB Stub before issuing a cross-endpoint HTTP
// call (spec §4.16).
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/runpod/flash/internal/manifest"
	"github.com/runpod/flash/internal/util"
)

// DefaultTTL matches the spec's suggested refresh cadence for peer
// endpoint URLs.
const DefaultTTL = 60 * time.Second

// StateManagerClient is the subset of the control-plane client the
// registry needs, kept narrow so tests can fake it without standing up
// an HTTP server.
type StateManagerClient interface {
	StateManagerEndpoints(ctx context.Context, endpointID string) (map[string]string, error)
}

// Registry caches endpoint-name -> URL, refreshed with a TTL and a
// manifest-backed fallback (spec §4.16).
type Registry struct {
	Client             StateManagerClient
	CurrentEndpointID  string
	CurrentResourceName string
	Manifest           *manifest.Manifest
	TTL                time.Duration
	now                func() time.Time

	mu        sync.Mutex
	loadGuard sync.Mutex
	endpoints map[string]string
	loadedAt  time.Time
}

// New builds a Registry. m is consulted both for the
// makes_remote_calls(currentResourceName) skip-optimization and as the
// fallback source of resources_endpoints.
func New(client StateManagerClient, currentEndpointID, currentResourceName string, m *manifest.Manifest) *Registry {
	return &Registry{
		Client:              client,
		CurrentEndpointID:   currentEndpointID,
		CurrentResourceName: currentResourceName,
		Manifest:            m,
		TTL:                 DefaultTTL,
		now:                 time.Now,
		endpoints:           map[string]string{},
	}
}

// EndpointFor resolves name's URL, loading (or reloading, if the TTL has
// elapsed) the endpoint map first if needed. Never returns an error on
// its own account; a transport failure during load falls back to the
// manifest and is logged, not surfaced (spec §4.16, §7 "Service Registry
// never raises").
func (r *Registry) EndpointFor(ctx context.Context, name string) string {
	r.ensureLoaded(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.endpoints[name]
}

// ensureLoaded loads the endpoint map if the TTL has elapsed since the
// last load, serialized by loadGuard so concurrent EndpointFor callers
// within one TTL window collapse into a single State Manager query
// (spec §5 "Service Registry load is guarded").
func (r *Registry) ensureLoaded(ctx context.Context) {
	r.loadGuard.Lock()
	defer r.loadGuard.Unlock()

	ttl := r.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if !r.loadedAt.IsZero() && r.now().Sub(r.loadedAt) < ttl {
		return
	}

	if r.skipRemoteLookup() {
		r.setEndpoints(map[string]string{})
		r.loadedAt = r.now()
		return
	}

	endpoints, err := r.Client.StateManagerEndpoints(ctx, r.CurrentEndpointID)
	if err != nil {
		util.Warn("service registry: state manager query failed, falling back to manifest: %v", err)
		r.setEndpoints(r.manifestEndpoints())
		r.loadedAt = r.now()
		return
	}
	if len(endpoints) == 0 {
		endpoints = r.manifestEndpoints()
	}
	r.setEndpoints(endpoints)
	r.loadedAt = r.now()
}

// skipRemoteLookup implements the hot-path optimization: a terminal
// endpoint that itself makes no remote calls never needs a peer map.
func (r *Registry) skipRemoteLookup() bool {
	if r.Manifest == nil || r.CurrentResourceName == "" {
		return false
	}
	rc, ok := r.Manifest.Resources[r.CurrentResourceName]
	return ok && !rc.MakesRemoteCalls
}

func (r *Registry) manifestEndpoints() map[string]string {
	if r.Manifest == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(r.Manifest.ResourcesEndpoints))
	for k, v := range r.Manifest.ResourcesEndpoints {
		out[k] = v
	}
	return out
}

func (r *Registry) setEndpoints(m map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints = m
}
