package stub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runpod/flash/internal/codec"
	"github.com/runpod/flash/internal/controlplane"
	"github.com/runpod/flash/internal/resource"
)

func TestFactory_ForFunction_QueueVariantUsesQueueStub(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result, _ := codec.EncodeOne("ok")
		w.Write([]byte(`{"id":"r1","status":"COMPLETED","output":{"success":true,"result":"` + result + `"}}`))
	}))
	defer srv.Close()

	client := controlplane.New(srv.URL, controlplane.ModeShort, false)
	manager := newTestManager(t)
	f := New(&QueueStub{Manager: manager, Client: client}, nil)

	d, err := resource.New(resource.ClassQueueServerless, "worker-fn", resource.WithImageRef("img:latest"))
	require.NoError(t, err)

	fn := f.ForFunction(d, "DoWork", "", "", nil)
	got, err := fn(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestFactory_ForFunction_LBVariantUsesLBStub(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	d, err := resource.New(resource.ClassLBServerless, "items-api", resource.WithImageRef("img:latest"))
	require.NoError(t, err)
	resourceName, err := d.ResourceID()
	require.NoError(t, err)

	resolver := &fakeResolver{urls: map[string]string{resourceName: srv.URL}}
	f := New(nil, &LBStub{Resolver: resolver})

	fn := f.ForFunction(d, "CreateItem", http.MethodGet, "/items", nil)
	got, err := fn(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, got)
}
