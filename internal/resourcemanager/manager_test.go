package resourcemanager

import (
	"bytes"
	"context"
	"encoding/gob"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runpod/flash/internal/resource"
)

type fakeDeployer struct {
	mu          sync.Mutex
	deployCalls int32
	updateCalls int32
	deployDelay func()
}

func (f *fakeDeployer) Deploy(ctx context.Context, d *resource.Descriptor) error {
	atomic.AddInt32(&f.deployCalls, 1)
	if f.deployDelay != nil {
		f.deployDelay()
	}
	d.SetID("ep-" + d.Name)
	return nil
}

func (f *fakeDeployer) Update(ctx context.Context, d *resource.Descriptor) error {
	atomic.AddInt32(&f.updateCalls, 1)
	return nil
}

func (f *fakeDeployer) Undeploy(ctx context.Context, d *resource.Descriptor) error {
	return nil
}

func newTestManager(t *testing.T, deployer Deployer) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resources.bin")
	m, err := New(path, deployer)
	require.NoError(t, err)
	return m
}

func TestGetOrDeploy_FreshDeploy(t *testing.T) {
	deployer := &fakeDeployer{}
	m := newTestManager(t, deployer)

	d, err := resource.New(resource.ClassQueueServerless, "w",
		resource.WithImageRef("img"), resource.WithWorkers(0, 1))
	require.NoError(t, err)

	out, err := m.GetOrDeploy(context.Background(), d)
	require.NoError(t, err)
	assert.True(t, out.IsDeployed())
	assert.Equal(t, int32(1), deployer.deployCalls)
}

func TestGetOrDeploy_DriftTriggersUpdate(t *testing.T) {
	deployer := &fakeDeployer{}
	m := newTestManager(t, deployer)

	a, err := resource.New(resource.ClassQueueServerless, "w",
		resource.WithImageRef("img"), resource.WithWorkers(0, 1))
	require.NoError(t, err)
	_, err = m.GetOrDeploy(context.Background(), a)
	require.NoError(t, err)

	b, err := resource.New(resource.ClassQueueServerless, "w",
		resource.WithImageRef("img"), resource.WithWorkers(0, 5))
	require.NoError(t, err)
	// Simulate the registry already knowing about this endpoint's id.
	key, err := b.ResourceKey()
	require.NoError(t, err)
	require.NoError(t, m.reload())
	existing := m.store.Resources[key]
	b.SetID(existing.Id)

	out, err := m.GetOrDeploy(context.Background(), b)
	require.NoError(t, err)

	assert.Equal(t, int32(1), deployer.deployCalls)
	assert.Equal(t, int32(1), deployer.updateCalls)

	hb, err := b.ConfigHash()
	require.NoError(t, err)
	require.NoError(t, m.reload())
	assert.Equal(t, hb, m.store.LastHashes[key])
	_ = out
}

func TestGetOrDeploy_Idempotent_NoDriftSkipsDeploy(t *testing.T) {
	deployer := &fakeDeployer{}
	m := newTestManager(t, deployer)

	d, err := resource.New(resource.ClassQueueServerless, "w",
		resource.WithImageRef("img"), resource.WithWorkers(0, 1))
	require.NoError(t, err)

	_, err = m.GetOrDeploy(context.Background(), d)
	require.NoError(t, err)
	_, err = m.GetOrDeploy(context.Background(), d)
	require.NoError(t, err)

	assert.Equal(t, int32(1), deployer.deployCalls)
}

func TestGetOrDeploy_ConcurrentSameKey_SingleDeploy(t *testing.T) {
	deployer := &fakeDeployer{}
	m := newTestManager(t, deployer)

	d, err := resource.New(resource.ClassQueueServerless, "w",
		resource.WithImageRef("img"), resource.WithWorkers(0, 1))
	require.NoError(t, err)

	const n = 10
	var wg sync.WaitGroup
	wg.Add(n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = m.GetOrDeploy(context.Background(), d)
		}(i)
	}
	wg.Wait()

	for _, e := range errs {
		assert.NoError(t, e)
	}
	assert.Equal(t, int32(1), deployer.deployCalls)
}

func TestUndeploy_RemovesEntry(t *testing.T) {
	deployer := &fakeDeployer{}
	m := newTestManager(t, deployer)

	d, err := resource.New(resource.ClassQueueServerless, "w",
		resource.WithImageRef("img"), resource.WithWorkers(0, 1))
	require.NoError(t, err)
	_, err = m.GetOrDeploy(context.Background(), d)
	require.NoError(t, err)

	key, err := d.ResourceKey()
	require.NoError(t, err)

	result, err := m.Undeploy(context.Background(), key, false)
	require.NoError(t, err)
	assert.True(t, result.Success)

	require.NoError(t, m.reload())
	_, exists := m.store.Resources[key]
	assert.False(t, exists)
}

func TestUndeploy_NotFound(t *testing.T) {
	m := newTestManager(t, &fakeDeployer{})
	result, err := m.Undeploy(context.Background(), "QueueServerless:missing", false)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "not found", result.Message)
}

// legacyStoreFixture mirrors the pre-last_hashes on-disk registry shape,
// used only to synthesize a legacy-format fixture file for the
// backward-compatible load test (S5).
type legacyStoreFixture struct {
	Resources map[string]*resource.Descriptor
}

func TestLoadStore_LegacyFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resources.bin")

	d, err := resource.New(resource.ClassQueueServerless, "w",
		resource.WithImageRef("img"), resource.WithWorkers(0, 1))
	require.NoError(t, err)
	d.SetID("ep-1")
	key, err := d.ResourceKey()
	require.NoError(t, err)

	legacy := legacyStoreFixture{Resources: map[string]*resource.Descriptor{key: d}}
	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(legacy))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	m, err := New(path, &fakeDeployer{})
	require.NoError(t, err)

	h, err := d.ConfigHash()
	require.NoError(t, err)

	entry := m.store.Resources[key]
	require.NotNil(t, entry)
	assert.Equal(t, h, m.store.LastHashes[key])
}
