package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// IgnoreFile is the optional project-local `.flashignore.jsonc` that tells
// discovery (C7) which paths to skip, in relaxed JSON (comments and
// trailing commas allowed), the same convenience the teacher gives
// devcontainer.json.
type IgnoreFile struct {
	// Paths are glob patterns, relative to the project root, excluded from
	// discovery's package walk.
	Paths []string `json:"paths"`
}

// LoadIgnoreFile parses a .flashignore.jsonc file. A missing file is not
// an error; it yields a zero-value IgnoreFile.
func LoadIgnoreFile(path string) (*IgnoreFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &IgnoreFile{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	stripped := jsonc.ToJSON(data)

	var f IgnoreFile
	if err := json.Unmarshal(stripped, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &f, nil
}
