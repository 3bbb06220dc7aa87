// Package credentials implements the Credential Store (C3): reading and
// writing the per-user API key, following the environment-then-file
// precedence rule in spec §4.3/§6.
package credentials

import (
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/runpod/flash/internal/config"
	flasherrors "github.com/runpod/flash/internal/errors"
)

// EnvVar is the environment variable consulted before the credentials
// file.
const EnvVar = "RUNPOD_API_KEY"

// credentialsDoc is the TOML shape of the credentials file: a single
// `api_key` string field.
type credentialsDoc struct {
	APIKey string `toml:"api_key"`
}

// CredentialsPath resolves the credentials file location for projectDir,
// honoring RUNPOD_CREDENTIALS_FILE.
func CredentialsPath(projectDir string) (string, error) {
	paths, err := config.GetPaths(projectDir)
	if err != nil {
		return "", err
	}
	return paths.CredentialsFile, nil
}

// GetAPIKey resolves the API key by precedence: RUNPOD_API_KEY (if
// non-blank) first, then the credentials file. A blank env value is
// treated as absent. A malformed or missing file yields "no key" rather
// than an error, matching spec §4.3.
func GetAPIKey(projectDir string) (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvVar)); v != "" {
		return v, nil
	}

	path, err := CredentialsPath(projectDir)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil // missing file: no key, not an error
	}

	var doc credentialsDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return "", nil // malformed file: treated as no key
	}

	key := strings.TrimSpace(doc.APIKey)
	return key, nil
}

// SaveAPIKey writes key to the credentials file, creating parent
// directories and setting owner-only (0600) permissions. Returns the
// path written.
func SaveAPIKey(projectDir, key string) (string, error) {
	path, err := CredentialsPath(projectDir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(parentDir(path), 0o700); err != nil {
		return "", flasherrors.Wrap(err, flasherrors.CategoryConfiguration, flasherrors.CodeConfigInvalid,
			"failed to create credentials directory")
	}

	data, err := toml.Marshal(credentialsDoc{APIKey: key})
	if err != nil {
		return "", flasherrors.Wrap(err, flasherrors.CategorySerialization, flasherrors.CodeSerializationEncode,
			"failed to marshal credentials")
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", flasherrors.Wrap(err, flasherrors.CategoryConfiguration, flasherrors.CodeConfigInvalid,
			"failed to write credentials file")
	}
	// WriteFile applies umask to the mode; re-assert 0600 explicitly.
	if err := os.Chmod(path, 0o600); err != nil {
		return "", flasherrors.Wrap(err, flasherrors.CategoryConfiguration, flasherrors.CodeConfigInvalid,
			"failed to set credentials file permissions")
	}

	return path, nil
}

func parentDir(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return "."
	}
	return path[:idx]
}
