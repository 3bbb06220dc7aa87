package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-home")

	paths, err := GetPaths("/project")
	require.NoError(t, err)

	assert.Equal(t, "/project/.runpod", paths.FlashDir)
	assert.Equal(t, "/project/flash.yaml", paths.ManifestFile)
	assert.Equal(t, filepath.Join("/project/.runpod", "resources.bin"), paths.RegistryFile)
	assert.Equal(t, filepath.Join("/tmp/xdg-home", "runpod", "credentials.toml"), paths.CredentialsFile)
	assert.Equal(t, filepath.Join("/tmp/xdg-home", "runpod", "update_check.json"), paths.UpdateCacheFile)
}

func TestGetPaths_EnvOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-home")
	t.Setenv("FLASH_MANIFEST_PATH", "/custom/flash.json")
	t.Setenv("RUNPOD_CREDENTIALS_FILE", "/custom/credentials.toml")

	paths, err := GetPaths("/project")
	require.NoError(t, err)

	assert.Equal(t, "/custom/flash.json", paths.ManifestFile)
	assert.Equal(t, "/custom/credentials.toml", paths.CredentialsFile)
}
