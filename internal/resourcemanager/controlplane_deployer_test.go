package resourcemanager

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runpod/flash/internal/controlplane"
	flasherrors "github.com/runpod/flash/internal/errors"
	"github.com/runpod/flash/internal/resource"
)

func newDeployerTestDescriptor(t *testing.T) *resource.Descriptor {
	t.Helper()
	d, err := resource.New(resource.ClassQueueServerless, "worker-fn",
		resource.WithImageRef("img:latest"), resource.WithWorkers(0, 3))
	require.NoError(t, err)
	return d
}

func TestControlPlaneDeployer_Deploy_SetsID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Variables struct {
				Input map[string]any `json:"input"`
			} `json:"variables"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "img:latest", body.Variables.Input["imageName"])

		w.Write([]byte(`{"data":{"saveEndpoint":{"id":"ep-123"}}}`))
	}))
	defer srv.Close()

	client := controlplane.New(srv.URL, controlplane.ModeShort, false)
	deployer := NewControlPlaneDeployer(client)

	d := newDeployerTestDescriptor(t)
	require.NoError(t, deployer.Deploy(context.Background(), d))
	assert.Equal(t, "ep-123", d.Id)
}

func TestControlPlaneDeployer_Undeploy_CallsDelete(t *testing.T) {
	var gotID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Variables struct {
				ID string `json:"id"`
			} `json:"variables"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		gotID = body.Variables.ID
		w.Write([]byte(`{"data":{"deleteEndpoint":{"id":"ep-123"}}}`))
	}))
	defer srv.Close()

	client := controlplane.New(srv.URL, controlplane.ModeShort, false)
	deployer := NewControlPlaneDeployer(client)

	d := newDeployerTestDescriptor(t)
	d.SetID("ep-123")
	require.NoError(t, deployer.Undeploy(context.Background(), d))
	assert.Equal(t, "ep-123", gotID)
}

func TestControlPlaneDeployer_Undeploy_RejectsLiveResource(t *testing.T) {
	var called bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.Write([]byte(`{"data":{"deleteEndpoint":{"id":"ep-live"}}}`))
	}))
	defer srv.Close()

	client := controlplane.New(srv.URL, controlplane.ModeShort, false)
	deployer := NewControlPlaneDeployer(client)

	d, err := resource.New(resource.ClassDeployedQueue, "live-worker")
	require.NoError(t, err)
	d.SetID("ep-live")

	err = deployer.Undeploy(context.Background(), d)
	require.Error(t, err)
	assert.True(t, flasherrors.InCategory(err, flasherrors.CategoryNotImplemented))
	assert.False(t, called, "must not call the control plane for a class that cannot be undeployed")
}
