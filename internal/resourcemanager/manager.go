// Package resourcemanager implements the Resource Manager (C6): the
// content-addressed, file-lock-guarded, on-disk registry of declared
// resources, with drift detection, idempotent deploy, single-flight
// reconciliation, and cleanup-on-failure.
package resourcemanager

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	flasherrors "github.com/runpod/flash/internal/errors"
	"github.com/runpod/flash/internal/filelock"
	"github.com/runpod/flash/internal/resource"
	"github.com/runpod/flash/internal/util"
)

// Deployer abstracts the control-plane operations a Descriptor needs
// across its lifecycle, the Go equivalent of the reference system's
// descriptor.deploy()/update()/undeploy() instance methods (spec §4.6).
type Deployer interface {
	// Deploy creates the remote resource. On success it must call
	// d.SetID with the assigned id. If it returns an error after
	// having already called SetID (partial creation), the Manager
	// still records the descriptor so a later Undeploy can clean up.
	Deploy(ctx context.Context, d *resource.Descriptor) error
	// Update reconciles drift: the remote resource already exists
	// (d.Id is set) but the descriptor's configuration has changed.
	Update(ctx context.Context, d *resource.Descriptor) error
	// Undeploy tears down the remote resource. Returns a
	// NotImplemented-category FlashError if the variant does not
	// support teardown (e.g. CanUndeploy() == false).
	Undeploy(ctx context.Context, d *resource.Descriptor) error
}

// LockTimeout bounds how long Manager waits for the registry file lock.
const LockTimeout = 30 * time.Second

// Manager is the on-disk resource registry.
type Manager struct {
	store     *store
	registryPath string
	lockPath  string
	deployer  Deployer
	sf        singleflight.Group
}

// New constructs a Manager backed by the registry file at registryPath,
// loading any existing entries.
func New(registryPath string, deployer Deployer) (*Manager, error) {
	s, err := loadStore(registryPath)
	if err != nil {
		return nil, err
	}
	return &Manager{
		store:        s,
		registryPath: registryPath,
		lockPath:     registryPath + ".lock",
		deployer:     deployer,
	}, nil
}

// UndeployResult is the outcome of Undeploy.
type UndeployResult struct {
	Success bool
	Message string
}

// Register records descriptor without deploying it.
func (m *Manager) Register(descriptor *resource.Descriptor) (string, error) {
	key, err := descriptor.ResourceKey()
	if err != nil {
		return "", err
	}

	return key, filelock.With(context.Background(), m.lockPath, true, LockTimeout, func() error {
		if err := m.reload(); err != nil {
			return err
		}
		m.store.Resources[key] = descriptor
		return m.persist()
	})
}

// GetOrDeploy is the core reconciliation loop (spec §4.6). Per-key calls
// are coalesced by a singleflight.Group so concurrent callers for the
// same key observe exactly one outbound deploy/update.
func (m *Manager) GetOrDeploy(ctx context.Context, descriptor *resource.Descriptor) (*resource.Descriptor, error) {
	key, err := descriptor.ResourceKey()
	if err != nil {
		return nil, err
	}

	result, err, _ := m.sf.Do(key, func() (any, error) {
		return m.getOrDeployLocked(ctx, key, descriptor)
	})
	if err != nil {
		return nil, err
	}
	return result.(*resource.Descriptor), nil
}

// getOrDeployLocked runs the read-compare-deploy-persist sequence for one
// key. The in-memory singleflight.Group (not the file lock) is what
// serializes concurrent callers for the *same* key and lets different
// keys' network deploys run concurrently (spec §5); the file lock is
// taken twice, briefly, purely to linearize on-disk reads and writes
// against other processes.
func (m *Manager) getOrDeployLocked(ctx context.Context, key string, descriptor *resource.Descriptor) (*resource.Descriptor, error) {
	h, err := descriptor.ConfigHash()
	if err != nil {
		return nil, err
	}

	var existing *resource.Descriptor
	var lastHash string
	var hashKnown bool
	if err := filelock.With(ctx, m.lockPath, false, LockTimeout, func() error {
		if err := m.reload(); err != nil {
			return err
		}
		if e, ok := m.store.Resources[key]; ok {
			existing = e
		}
		lastHash, hashKnown = m.store.LastHashes[key]
		return nil
	}); err != nil {
		return nil, err
	}

	if existing != nil && existing.IsDeployed() {
		if hashKnown && lastHash == h {
			return existing, nil
		}

		// Drift (or unknown prior hash: per spec §9 Open Questions,
		// treat it as "force update on next deploy").
		util.Debug("resourcemanager: drift detected for %s, updating", key)
		descriptor.SetID(existing.Id)
		if err := m.deployer.Update(ctx, descriptor); err != nil {
			return nil, err
		}
		if err := filelock.With(ctx, m.lockPath, true, LockTimeout, func() error {
			if err := m.reload(); err != nil {
				return err
			}
			m.store.Resources[key] = descriptor
			m.store.LastHashes[key] = h
			return m.persist()
		}); err != nil {
			return nil, err
		}
		return descriptor, nil
	}

	deployErr := m.deployer.Deploy(ctx, descriptor)
	if deployErr != nil {
		if descriptor.Id != "" {
			// Partially created: keep it recorded so a later
			// undeploy(force_remove=true) can clean it up.
			lockErr := filelock.With(ctx, m.lockPath, true, LockTimeout, func() error {
				if err := m.reload(); err != nil {
					return err
				}
				m.store.Resources[key] = descriptor
				return m.persist()
			})
			if lockErr != nil {
				util.Warn("resourcemanager: failed to persist partial entry for %s: %v", key, lockErr)
			}
		}
		return nil, deployErr
	}

	if err := filelock.With(ctx, m.lockPath, true, LockTimeout, func() error {
		if err := m.reload(); err != nil {
			return err
		}
		m.store.Resources[key] = descriptor
		m.store.LastHashes[key] = h
		return m.persist()
	}); err != nil {
		return nil, err
	}
	return descriptor, nil
}

// Undeploy tears down the resource at key.
func (m *Manager) Undeploy(ctx context.Context, key string, forceRemove bool) (UndeployResult, error) {
	var result UndeployResult

	err := filelock.With(ctx, m.lockPath, true, LockTimeout, func() error {
		if err := m.reload(); err != nil {
			return err
		}

		entry, ok := m.store.Resources[key]
		if !ok {
			result = UndeployResult{Success: false, Message: "not found"}
			return nil
		}

		err := m.deployer.Undeploy(ctx, entry)
		if err == nil {
			delete(m.store.Resources, key)
			delete(m.store.LastHashes, key)
			result = UndeployResult{Success: true}
			return m.persist()
		}

		if flasherrors.InCategory(err, flasherrors.CategoryNotImplemented) {
			result = UndeployResult{Success: false, Message: "cannot undeploy"}
			return nil
		}

		if forceRemove {
			delete(m.store.Resources, key)
			delete(m.store.LastHashes, key)
			result = UndeployResult{Success: false, Message: err.Error()}
			return m.persist()
		}

		return err
	})
	if err != nil {
		return UndeployResult{}, err
	}
	return result, nil
}

// FindByName returns every (key, descriptor) pair whose descriptor has
// the given user-chosen Name.
func (m *Manager) FindByName(name string) ([]Entry, error) {
	if err := m.reloadWithLock(); err != nil {
		return nil, err
	}
	var out []Entry
	for key, d := range m.store.Resources {
		if d.Name == name {
			out = append(out, Entry{Key: key, Descriptor: d})
		}
	}
	return out, nil
}

// FindByProviderID returns every (key, descriptor) pair whose descriptor
// has the given post-deploy Id.
func (m *Manager) FindByProviderID(id string) ([]Entry, error) {
	if err := m.reloadWithLock(); err != nil {
		return nil, err
	}
	var out []Entry
	for key, d := range m.store.Resources {
		if d.Id == id {
			out = append(out, Entry{Key: key, Descriptor: d})
		}
	}
	return out, nil
}

// Entry pairs a resource key with its descriptor, for find results.
type Entry struct {
	Key        string
	Descriptor *resource.Descriptor
}

func (m *Manager) reloadWithLock() error {
	return filelock.With(context.Background(), m.lockPath, false, LockTimeout, m.reload)
}

func (m *Manager) reload() error {
	s, err := loadStore(m.registryPath)
	if err != nil {
		return err
	}
	m.store = s
	return nil
}

func (m *Manager) persist() error {
	return m.store.save(m.registryPath)
}
