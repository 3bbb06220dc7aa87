package depresolver

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func descriptorFor(t *testing.T, name string) *resource.Descriptor {
	t.Helper()
	d, err := resource.New(resource.ClassQueueServerless, name, resource.WithImageRef("img:latest"))
	require.NoError(t, err)
	return d
}

func TestResolve_FindsAndProvisionsDirectCall(t *testing.T) {
	manager := newTestManager(t)
	registry := map[string]Candidate{
		"Summarize": {Name: "Summarize", Descriptor: descriptorFor(t, "summarize")},
	}

	deps, err := Resolve(context.Background(), []string{"Summarize"}, registry, manager)
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "Summarize", deps[0].Name)
	assert.Equal(t, "ep-summarize", deps[0].EndpointID)
}

func TestResolve_IgnoresUnregisteredNames(t *testing.T) {
	manager := newTestManager(t)
	registry := map[string]Candidate{}

	deps, err := Resolve(context.Background(), []string{"len", "helperNotRegistered"}, registry, manager)
	require.NoError(t, err)
	assert.Empty(t, deps)
}

func TestResolve_DeduplicatesRepeatedCalls(t *testing.T) {
	manager := newTestManager(t)
	registry := map[string]Candidate{
		"Summarize": {Name: "Summarize", Descriptor: descriptorFor(t, "summarize")},
	}

	deps, err := Resolve(context.Background(), []string{"Summarize", "Summarize"}, registry, manager)
	require.NoError(t, err)
	require.Len(t, deps, 1)
}

func TestResolve_PropagatesDeployFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.gob")
	manager, err := resourcemanager.New(path, failingDeployer{})
	require.NoError(t, err)

	registry := map[string]Candidate{
		"Summarize": {Name: "Summarize", Descriptor: descriptorFor(t, "summarize")},
	}

	_, err = Resolve(context.Background(), []string{"Summarize"}, registry, manager)
	require.Error(t, err)
}

type failingDeployer struct{}

func (failingDeployer) Deploy(ctx context.Context, d *resource.Descriptor) error {
	return assert.AnError
}
func (failingDeployer) Update(ctx context.Context, d *resource.Descriptor) error   { return nil }
func (failingDeployer) Undeploy(ctx context.Context, d *resource.Descriptor) error { return nil }
