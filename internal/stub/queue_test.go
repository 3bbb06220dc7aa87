package stub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runpod/flash/internal/codec"
	"github.com/runpod/flash/internal/controlplane"
	"github.com/runpod/flash/internal/resource"
	"github.com/runpod/flash/internal/resourcemanager"
)

type fakeDeployer struct{}

func (fakeDeployer) Deploy(ctx context.Context, d *resource.Descriptor) error {
	d.SetID("ep-" + d.Name)
	return nil
}
func (fakeDeployer) Update(ctx context.Context, d *resource.Descriptor) error   { return nil }
func (fakeDeployer) Undeploy(ctx context.Context, d *resource.Descriptor) error { return nil }

func newTestManager(t *testing.T) *resourcemanager.Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.gob")
	m, err := resourcemanager.New(path, fakeDeployer{})
	require.NoError(t, err)
	return m
}

func sampleDescriptor(t *testing.T) *resource.Descriptor {
	t.Helper()
	d, err := resource.New(resource.ClassQueueServerless, "worker-fn", resource.WithImageRef("img:latest"))
	require.NoError(t, err)
	return d
}

func TestQueueStub_Call_SubmitsJobAndDecodesResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result, _ := codec.EncodeOne(42)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"req-1","status":"COMPLETED","output":{"success":true,"result":"` + result + `"}}`))
	}))
	defer srv.Close()

	client := controlplane.New(srv.URL, controlplane.ModeShort, false)
	manager := newTestManager(t)
	qs := &QueueStub{Manager: manager, Client: client}

	got, err := qs.Call(context.Background(), sampleDescriptor(t), "DoWork", []any{1, 2}, nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 42, got)
}

func TestQueueStub_Call_RemoteFailureBecomesError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"req-1","status":"COMPLETED","output":{"success":false,"error":"boom"}}`))
	}))
	defer srv.Close()

	client := controlplane.New(srv.URL, controlplane.ModeShort, false)
	manager := newTestManager(t)
	qs := &QueueStub{Manager: manager, Client: client}

	_, err := qs.Call(context.Background(), sampleDescriptor(t), "DoWork", nil, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestQueueStub_Call_TransportFailurePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := controlplane.New(srv.URL, controlplane.ModeShort, false)
	manager := newTestManager(t)
	qs := &QueueStub{Manager: manager, Client: client}

	_, err := qs.Call(context.Background(), sampleDescriptor(t), "DoWork", nil, nil, nil)
	require.Error(t, err)
}
