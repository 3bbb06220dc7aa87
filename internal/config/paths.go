package config

import (
	"os"
	"path/filepath"
)

// FlashPaths mirrors the original project's FlashPaths: a bundle of the
// well-known locations flash reads and writes, rooted either at the
// project directory (working state, `.runpod/` per §6) or at
// XDG_CONFIG_HOME (credentials, update-check cache, both under a
// `runpod/` subdirectory per §6).
type FlashPaths struct {
	// FlashDir is the project-local `.runpod/` working directory.
	FlashDir string
	// ManifestFile is the project's manifest path (flash.yaml or flash.json),
	// overridable via FLASH_MANIFEST_PATH.
	ManifestFile string
	// RegistryFile is the deployed-resource registry (`.runpod/resources.bin`).
	RegistryFile string
	// LogsDir holds per-deploy log files.
	LogsDir string
	// ConfigDir is the XDG_CONFIG_HOME-rooted `runpod/` directory holding
	// credentials.toml and the update-check cache.
	ConfigDir string
	// CredentialsFile holds the TOML credential store (C3).
	CredentialsFile string
	// UpdateCacheFile holds the update-check cache JSON (C18).
	UpdateCacheFile string
}

// GetPaths resolves FlashPaths for a project rooted at projectDir.
func GetPaths(projectDir string) (FlashPaths, error) {
	flashDir := filepath.Join(projectDir, ".runpod")
	configDir, err := userConfigDir()
	if err != nil {
		return FlashPaths{}, err
	}
	configDir = filepath.Join(configDir, "runpod")

	manifestFile := filepath.Join(projectDir, "flash.yaml")
	if override := os.Getenv("FLASH_MANIFEST_PATH"); override != "" {
		manifestFile = override
	}

	credentialsFile := filepath.Join(configDir, "credentials.toml")
	if override := os.Getenv("RUNPOD_CREDENTIALS_FILE"); override != "" {
		credentialsFile = override
	}

	return FlashPaths{
		FlashDir:        flashDir,
		ManifestFile:    manifestFile,
		RegistryFile:    filepath.Join(flashDir, "resources.bin"),
		LogsDir:         filepath.Join(flashDir, "logs"),
		ConfigDir:       configDir,
		CredentialsFile: credentialsFile,
		UpdateCacheFile: filepath.Join(configDir, "update_check.json"),
	}, nil
}

// EnsureFlashDir creates the project-local .runpod directory (and logs
// subdirectory) if absent.
func (p FlashPaths) EnsureFlashDir() error {
	if err := os.MkdirAll(p.LogsDir, 0o755); err != nil {
		return err
	}
	return nil
}

// EnsureConfigDir creates the XDG config directory if absent.
func (p FlashPaths) EnsureConfigDir() error {
	return os.MkdirAll(p.ConfigDir, 0o700)
}

// userConfigDir resolves XDG_CONFIG_HOME, falling back to os.UserConfigDir.
func userConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return xdg, nil
	}
	return os.UserConfigDir()
}
