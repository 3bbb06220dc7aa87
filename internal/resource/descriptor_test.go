package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQueueDescriptor(t *testing.T, workersMax int) *Descriptor {
	t.Helper()
	d, err := New(ClassQueueServerless, "w",
		WithImageRef("img"),
		WithWorkers(0, workersMax),
	)
	require.NoError(t, err)
	return d
}

func TestConfigHash_IgnoresID(t *testing.T) {
	d := newQueueDescriptor(t, 1)
	h1, err := d.ConfigHash()
	require.NoError(t, err)

	d.SetID("endpoint-123")
	h2, err := d.ConfigHash()
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
}

func TestConfigHash_ChangesWithConfig(t *testing.T) {
	a := newQueueDescriptor(t, 1)
	b := newQueueDescriptor(t, 5)

	ha, err := a.ConfigHash()
	require.NoError(t, err)
	hb, err := b.ConfigHash()
	require.NoError(t, err)

	assert.NotEqual(t, ha, hb)
}

func TestConfigHash_Deterministic(t *testing.T) {
	a := newQueueDescriptor(t, 2)
	b := newQueueDescriptor(t, 2)

	ha, err := a.ConfigHash()
	require.NoError(t, err)
	hb, err := b.ConfigHash()
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
}

func TestResourceID_StableAcrossLifecycle(t *testing.T) {
	d := newQueueDescriptor(t, 1)
	id1, err := d.ResourceID()
	require.NoError(t, err)

	d.SetID("endpoint-abc")
	id2, err := d.ResourceID()
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Contains(t, id1, "QueueServerless_")
}

func TestResourceKey_PrefersName(t *testing.T) {
	d := newQueueDescriptor(t, 1)
	key, err := d.ResourceKey()
	require.NoError(t, err)
	assert.Equal(t, "QueueServerless:w", key)
}

func TestValidate_RejectsNegativeWorkers(t *testing.T) {
	_, err := New(ClassQueueServerless, "w", WithImageRef("img"), WithWorkers(-1, 2))
	require.Error(t, err)
}

func TestValidate_AcceptsZeroZero(t *testing.T) {
	d, err := New(ClassQueueServerless, "w", WithImageRef("img"), WithWorkers(0, 0))
	require.NoError(t, err)
	assert.Equal(t, 0, d.WorkersMax)
}

func TestValidate_RequiresImageOrTemplate(t *testing.T) {
	_, err := New(ClassQueueServerless, "w")
	require.Error(t, err)
}

func TestValidate_RejectsBothImageAndTemplate(t *testing.T) {
	_, err := New(ClassQueueServerless, "w", WithImageRef("img"), WithTemplateRef("tmpl"))
	require.Error(t, err)
}

func TestValidate_LiveResourceNeedsNoImage(t *testing.T) {
	d, err := New(ClassDeployedQueue, "w")
	require.NoError(t, err)
	assert.True(t, d.Class.IsLiveResource())
}

func TestBindFunction_QueueRejectsSecondBinding(t *testing.T) {
	d := newQueueDescriptor(t, 1)
	require.NoError(t, d.BindFunction())
	require.Error(t, d.BindFunction())
}

func TestBindFunction_LBAllowsMany(t *testing.T) {
	d, err := New(ClassLBServerless, "api", WithImageRef("img"), WithWorkers(0, 1))
	require.NoError(t, err)
	require.NoError(t, d.BindFunction())
	require.NoError(t, d.BindFunction())
	require.NoError(t, d.BindFunction())
}

func TestIsLoadBalanced(t *testing.T) {
	assert.True(t, ClassLBServerless.IsLoadBalanced())
	assert.True(t, ClassCpuLBServerless.IsLoadBalanced())
	assert.False(t, ClassQueueServerless.IsLoadBalanced())
}
