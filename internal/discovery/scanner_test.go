package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan_FindsRegisteredCallables(t *testing.T) {
	found, err := Scan("testdata/sample")
	require.NoError(t, err)
	require.Len(t, found, 2)

	byName := map[string]FunctionMetadata{}
	for _, f := range found {
		byName[f.FunctionName] = f
	}

	queue := byName["HandleJob"]
	assert.Equal(t, "QueueServerless", queue.ResourceType)
	assert.Equal(t, "QueueA", queue.ConfigVariable)
	assert.False(t, queue.IsLoadBalanced)
	assert.False(t, queue.IsLBRouteHandler)
	assert.Equal(t, []string{"id", "count"}, queue.Params)

	lb := byName["CreateItem"]
	assert.Equal(t, "LBServerless", lb.ResourceType)
	assert.True(t, lb.IsLoadBalanced)
	assert.True(t, lb.IsLBRouteHandler)
	assert.Equal(t, "POST", lb.HTTPMethod)
	assert.Equal(t, "/items", lb.HTTPPath)
}

func TestScan_CapturesCallTargets(t *testing.T) {
	dir := t.TempDir()
	src := `package sample

import "discovery"

var QueueA = discovery.NewQueueDescriptor("queue-a")

func Summarize(s string) string { return s }

func HandleJob(id string) string {
	x := len(id)
	_ = x
	return Summarize(id)
}

func init() {
	discovery.RegisterQueue(QueueA, HandleJob)
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "worker.go"), []byte(src), 0o644))

	found, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.ElementsMatch(t, []string{"len", "Summarize"}, found[0].CallTargets)
}

func TestScan_ExcludesGeneratedAndDocFiles(t *testing.T) {
	found, err := Scan("testdata/sample")
	require.NoError(t, err)
	for _, f := range found {
		assert.NotEqual(t, "ShouldNotBeFound", f.FunctionName)
	}
}

func TestScan_HonorsIgnoreFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".flashignore.jsonc"), []byte(`{
		// skip the whole skipped dir
		"paths": ["skipped"]
	}`), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "skipped"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skipped", "worker.go"), []byte(`package skipped

import "discovery"

var Q = discovery.NewQueueDescriptor("q")

func Handle() {}

func init() { discovery.RegisterQueue(Q, Handle) }
`), 0o644))

	found, err := Scan(dir)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestURLPrefix(t *testing.T) {
	assert.Equal(t, "/billing/invoices", URLPrefix("billing.invoices"))
}

func TestToModulePath(t *testing.T) {
	assert.Equal(t, "sub.worker", toModulePath("/root", "/root/sub/worker.go"))
}
