package resourcemanager

import (
	"bytes"
	"encoding/gob"
	"os"

	flasherrors "github.com/runpod/flash/internal/errors"
	"github.com/runpod/flash/internal/resource"
)

// store is the in-memory, persisted shape of the registry: a
// resource_key -> descriptor map plus a parallel resource_key ->
// last_config_hash map (spec §3).
type store struct {
	Resources  map[string]*resource.Descriptor
	LastHashes map[string]string
}

func newStore() *store {
	return &store{
		Resources:  make(map[string]*resource.Descriptor),
		LastHashes: make(map[string]string),
	}
}

func init() {
	gob.Register(&resource.Descriptor{})
}

// loadStore reads the registry file, accepting both the current
// (resources, last_hashes) form and the legacy (resources only) form. A
// missing file yields an empty store. When the legacy form is loaded,
// last_hashes is recomputed from each entry's current ConfigHash
// (spec §6: backwards-compatible load).
func loadStore(path string) (*store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return newStore(), nil
		}
		return nil, flasherrors.Wrap(err, flasherrors.CategoryConfiguration, flasherrors.CodeConfigInvalid,
			"failed to read registry file")
	}
	if len(data) == 0 {
		return newStore(), nil
	}

	// gob tolerates decoding data with fewer fields than the receiver
	// struct, so a legacy (resources-only) blob decodes cleanly here
	// too — it just leaves LastHashes empty. That's how we detect it:
	// any non-empty Resources with an empty LastHashes means the file
	// predates that field.
	var s store
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return nil, flasherrors.Wrap(err, flasherrors.CategorySerialization, flasherrors.CodeSerializationDecode,
			"failed to decode registry file")
	}
	if s.Resources == nil {
		s.Resources = make(map[string]*resource.Descriptor)
	}
	if s.LastHashes == nil {
		s.LastHashes = make(map[string]string)
	}

	if len(s.Resources) > 0 && len(s.LastHashes) == 0 {
		for key, d := range s.Resources {
			// Per spec §9 Open Questions: an unrecomputable hash forces
			// a drift-update on next deploy; a recomputable one is
			// treated as the deployed truth so no spurious redeploy
			// happens.
			if h, err := d.ConfigHash(); err == nil {
				s.LastHashes[key] = h
			}
		}
	}
	return &s, nil
}

func (s *store) save(path string) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return flasherrors.Wrap(err, flasherrors.CategorySerialization, flasherrors.CodeSerializationEncode,
			"failed to encode registry")
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return flasherrors.Wrap(err, flasherrors.CategoryConfiguration, flasherrors.CodeConfigInvalid,
			"failed to write registry file")
	}
	return nil
}
