package registry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runpod/flash/internal/manifest"
)

type fakeStateManager struct {
	calls  int32
	result map[string]string
	err    error
}

func (f *fakeStateManager) StateManagerEndpoints(ctx context.Context, endpointID string) (map[string]string, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.result, f.err
}

func TestEndpointFor_LoadsAndCaches(t *testing.T) {
	client := &fakeStateManager{result: map[string]string{"queueA": "https://a.example"}}
	r := New(client, "ep-self", "selfResource", nil)

	got := r.EndpointFor(context.Background(), "queueA")
	assert.Equal(t, "https://a.example", got)

	r.EndpointFor(context.Background(), "queueA")
	assert.EqualValues(t, 1, client.calls, "second call within TTL should not re-query")
}

func TestEndpointFor_ReloadsAfterTTL(t *testing.T) {
	client := &fakeStateManager{result: map[string]string{"queueA": "https://a.example"}}
	r := New(client, "ep-self", "selfResource", nil)
	r.TTL = time.Millisecond

	clock := time.Now()
	r.now = func() time.Time { return clock }

	r.EndpointFor(context.Background(), "queueA")
	clock = clock.Add(time.Second)
	r.EndpointFor(context.Background(), "queueA")

	assert.EqualValues(t, 2, client.calls)
}

func TestEndpointFor_TransportFailureFallsBackToManifest(t *testing.T) {
	client := &fakeStateManager{err: errors.New("connection refused")}
	m := &manifest.Manifest{ResourcesEndpoints: map[string]string{"queueA": "https://manifest.example"}}
	r := New(client, "ep-self", "selfResource", m)

	got := r.EndpointFor(context.Background(), "queueA")
	assert.Equal(t, "https://manifest.example", got)
}

func TestEndpointFor_EmptyRemoteResultFallsBackToManifest(t *testing.T) {
	client := &fakeStateManager{result: map[string]string{}}
	m := &manifest.Manifest{ResourcesEndpoints: map[string]string{"queueA": "https://manifest.example"}}
	r := New(client, "ep-self", "selfResource", m)

	got := r.EndpointFor(context.Background(), "queueA")
	assert.Equal(t, "https://manifest.example", got)
}

func TestEndpointFor_SkipsRemoteWhenCurrentResourceMakesNoRemoteCalls(t *testing.T) {
	client := &fakeStateManager{result: map[string]string{"queueA": "https://a.example"}}
	m := &manifest.Manifest{
		Resources: map[string]manifest.ResourceConfig{
			"selfResource": {MakesRemoteCalls: false},
		},
	}
	r := New(client, "ep-self", "selfResource", m)

	got := r.EndpointFor(context.Background(), "queueA")
	assert.Equal(t, "", got)
	assert.EqualValues(t, 0, client.calls)
}

func TestEndpointFor_UnknownNameReturnsEmpty(t *testing.T) {
	client := &fakeStateManager{result: map[string]string{}}
	r := New(client, "ep-self", "selfResource", nil)
	require.Equal(t, "", r.EndpointFor(context.Background(), "ghost"))
}
