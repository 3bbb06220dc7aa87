package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runpod/flash/internal/depresolver"
	"github.com/runpod/flash/internal/manifest"
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

func newDeployTestManager(t *testing.T) *resourcemanager.Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.gob")
	m, err := resourcemanager.New(path, fakeDeployer{})
	require.NoError(t, err)
	return m
}

func TestBuildDependencyRegistry_MapsFunctionsToOwningDescriptor(t *testing.T) {
	m := &manifest.Manifest{
		FunctionRegistry: map[string]string{
			"Summarize": "summaryQueue",
			"Orphan":    "unknownResource",
		},
	}
	desc, err := resource.New(resource.ClassQueueServerless, "summaryQueue", resource.WithImageRef("img"))
	require.NoError(t, err)
	descriptors := map[string]*resource.Descriptor{"summaryQueue": desc}

	registry := buildDependencyRegistry(m, descriptors)

	require.Contains(t, registry, "Summarize")
	assert.Equal(t, desc, registry["Summarize"].Descriptor)
	assert.NotContains(t, registry, "Orphan", "no descriptor was declared for unknownResource")
}

func TestProvisionDependencies_DeploysCalledResource(t *testing.T) {
	manager := newDeployTestManager(t)
	desc, err := resource.New(resource.ClassQueueServerless, "summaryQueue", resource.WithImageRef("img"))
	require.NoError(t, err)

	m := &manifest.Manifest{
		FunctionRegistry: map[string]string{"Summarize": "summaryQueue"},
		Resources: map[string]manifest.ResourceConfig{
			"itemsAPI": {
				Functions: []manifest.FunctionConfig{
					{Name: "HandleRequest", CallTargets: []string{"len", "Summarize"}},
				},
			},
		},
	}
	registry := map[string]depresolver.Candidate{
		"Summarize": {Name: "Summarize", Descriptor: desc},
	}

	require.NoError(t, provisionDependencies(context.Background(), m, registry, manager, "itemsAPI"))
	assert.Equal(t, "ep-summaryQueue", desc.Id, "Summarize's owning resource should have been deployed")
}

func TestProvisionDependencies_NoCallTargetsIsNoop(t *testing.T) {
	manager := newDeployTestManager(t)
	m := &manifest.Manifest{
		Resources: map[string]manifest.ResourceConfig{
			"itemsAPI": {Functions: []manifest.FunctionConfig{{Name: "HandleRequest"}}},
		},
	}

	require.NoError(t, provisionDependencies(context.Background(), m, nil, manager, "itemsAPI"))
}
