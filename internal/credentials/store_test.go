package credentials

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveThenGet_RoundTrips(t *testing.T) {
	dir := t.TempDir()

	path, err := SaveAPIKey(dir, "sk-test-123")
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	key, err := GetAPIKey(dir)
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", key)
}

func TestGetAPIKey_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	_, err := SaveAPIKey(dir, "from-file")
	require.NoError(t, err)

	t.Setenv(EnvVar, "from-env")
	key, err := GetAPIKey(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)
}

func TestGetAPIKey_BlankEnvIsIgnored(t *testing.T) {
	dir := t.TempDir()
	_, err := SaveAPIKey(dir, "from-file")
	require.NoError(t, err)

	t.Setenv(EnvVar, "")
	key, err := GetAPIKey(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-file", key)
}

func TestGetAPIKey_MissingFileYieldsEmpty(t *testing.T) {
	dir := t.TempDir()
	key, err := GetAPIKey(dir)
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestGetAPIKey_MalformedFileYieldsEmpty(t *testing.T) {
	dir := t.TempDir()
	path, err := CredentialsPath(dir)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(dirOf(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("not valid toml {{{"), 0o600))

	key, err := GetAPIKey(dir)
	require.NoError(t, err)
	assert.Empty(t, key)
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
