package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/gowebpki/jcs"
)

// hashSchemaVersion is bumped when the hash computation logic changes in
// a way that should force every resource to be treated as changed.
const hashSchemaVersion = "1"

// hashInput is the data structure used for resource config_hash
// computation (C2): everything that should trigger a redeploy when it
// changes.
type hashInput struct {
	SchemaVersion string          `json:"schema_version"`
	Descriptor    json.RawMessage `json:"descriptor"`
}

// ComputeHash computes config_hash for a resource descriptor's raw JSON
// representation, using RFC 8785 JSON Canonicalization so that key
// ordering and whitespace never affect the hash.
func ComputeHash(descriptorJSON []byte) (string, error) {
	input := hashInput{
		SchemaVersion: hashSchemaVersion,
		Descriptor:    descriptorJSON,
	}
	return computeHashFromStruct(input)
}

func computeHashFromStruct(input hashInput) (string, error) {
	jsonBytes, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("failed to marshal hash input: %w", err)
	}

	canonical, err := jcs.Transform(jsonBytes)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize JSON: %w", err)
	}

	hash := sha256.Sum256(canonical)
	return hex.EncodeToString(hash[:]), nil
}

// ComputeSimpleHash computes a plain SHA-256 hash of a byte slice.
func ComputeSimpleHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ComputeMapHash computes a deterministic hash of a string map, used for
// hashing environment variable sets and dependency version pins.
func ComputeMapHash(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var data []byte
	for _, k := range keys {
		data = append(data, k...)
		data = append(data, '=')
		data = append(data, m[k]...)
		data = append(data, '\n')
	}

	return ComputeSimpleHash(data)
}
