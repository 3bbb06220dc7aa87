package handlergen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runpod/flash/internal/manifest"
)

func sampleManifest() *manifest.Manifest {
	return &manifest.Manifest{
		Version:          1,
		ProjectName:      "proj",
		FunctionRegistry: map[string]string{"HandleJob": "queueA", "CreateItem": "itemsAPI"},
		Resources: map[string]manifest.ResourceConfig{
			"queueA": {
				ResourceType: "QueueServerless",
				Functions:    []manifest.FunctionConfig{{Name: "HandleJob", Module: "worker"}},
			},
			"itemsAPI": {
				ResourceType:   "LBServerless",
				IsLoadBalanced: true,
				Functions: []manifest.FunctionConfig{
					{Name: "CreateItem", Module: "api", HTTPMethod: "POST", HTTPPath: "/items", ParamNames: []string{"itemID"}},
				},
			},
		},
	}
}

func TestGenerate_WritesOneFilePerResource(t *testing.T) {
	dir := t.TempDir()
	m := sampleManifest()
	written, err := Generate(m, Options{BuildDir: dir, SourcePackage: "example.com/proj/user"})
	require.NoError(t, err)
	require.Len(t, written, 2)

	for name, path := range written {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "Code generated by flash build")
		assert.Equal(t, path, m.Resources[name].HandlerFile)
	}
}

func TestGenerate_LBFileHasRoutesAndEval(t *testing.T) {
	dir := t.TempDir()
	m := sampleManifest()
	rc := m.Resources["itemsAPI"]
	rc.IsLiveResource = true
	m.Resources["itemsAPI"] = rc

	written, err := Generate(m, Options{BuildDir: dir, SourcePackage: "example.com/proj/user"})
	require.NoError(t, err)

	data, err := os.ReadFile(written["itemsAPI"])
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, `Method: "POST"`)
	assert.Contains(t, content, `Path: "/items"`)
	assert.Contains(t, content, "IncludeEval: true")
	assert.Contains(t, content, `ParamNames: []string{"itemID"}`)
}

func TestGenerate_LBRouteWithNoParamsEmitsNilParamNames(t *testing.T) {
	dir := t.TempDir()
	m := sampleManifest()
	rc := m.Resources["itemsAPI"]
	rc.Functions = []manifest.FunctionConfig{
		{Name: "CreateItem", Module: "api", HTTPMethod: "POST", HTTPPath: "/items"},
	}
	m.Resources["itemsAPI"] = rc

	written, err := Generate(m, Options{BuildDir: dir, SourcePackage: "example.com/proj/user"})
	require.NoError(t, err)

	data, err := os.ReadFile(written["itemsAPI"])
	require.NoError(t, err)
	assert.Contains(t, string(data), "ParamNames: nil")
}

func TestGenerate_IsIdempotent(t *testing.T) {
	dir := t.TempDir()
	m := sampleManifest()

	_, err := Generate(m, Options{BuildDir: dir, SourcePackage: "example.com/proj/user"})
	require.NoError(t, err)
	first, err := os.ReadFile(filepath.Join(dir, "queueA_handler.go"))
	require.NoError(t, err)

	_, err = Generate(m, Options{BuildDir: dir, SourcePackage: "example.com/proj/user"})
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(dir, "queueA_handler.go"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSanitizeIdent(t *testing.T) {
	assert.Equal(t, "ItemsApi", sanitizeIdent("items-api"))
	assert.Equal(t, "QueueA", sanitizeIdent("queueA"))
}
