// Package filelock implements the File Lock (C5): an advisory,
// cross-process lock over the resource registry file, built on
// gofrs/flock (already pulled in transitively by the docker/buildx
// stack) rather than hand-rolled syscall.Flock, since it gives us a
// portable timeout/retry loop for free.
package filelock

import (
	"context"
	"time"

	"github.com/gofrs/flock"

	flasherrors "github.com/runpod/flash/internal/errors"
)

// DefaultRetryInterval is used when the caller does not specify one.
const DefaultRetryInterval = 50 * time.Millisecond

// Lock wraps a *flock.Flock for the lifetime of one critical section.
type Lock struct {
	fl *flock.Flock
}

// Acquire blocks until the lock at path is obtained (exclusive or
// shared), the timeout elapses, or ctx is canceled. timeout == 0 means
// retry indefinitely (spec §4.5: "timeout=None means retry
// indefinitely"). The returned Lock must be released via Release,
// typically deferred immediately after a successful Acquire so every
// exit path — including cancellation — releases it.
func Acquire(ctx context.Context, path string, exclusive bool, timeout time.Duration, retryInterval time.Duration) (*Lock, error) {
	if retryInterval <= 0 {
		retryInterval = DefaultRetryInterval
	}

	fl := flock.New(path)

	var (
		locked bool
		err    error
	)

	if timeout <= 0 {
		lockFn := fl.TryLockContext
		if !exclusive {
			lockFn = fl.TryRLockContext
		}
		locked, err = lockFn(ctx, retryInterval)
	} else {
		lockCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		lockFn := fl.TryLockContext
		if !exclusive {
			lockFn = fl.TryRLockContext
		}
		locked, err = lockFn(lockCtx, retryInterval)
	}

	if err != nil {
		return nil, flasherrors.Wrap(err, flasherrors.CategoryRegistryLock, flasherrors.CodeRegistryLockTimeout,
			"failed to acquire registry lock")
	}
	if !locked {
		return nil, flasherrors.New(flasherrors.CategoryRegistryLock, flasherrors.CodeRegistryLockTimeout,
			"timed out waiting for registry lock at "+path)
	}
	return &Lock{fl: fl}, nil
}

// Release unlocks the file and frees the underlying file descriptor. It
// is safe to call Release multiple times; only the first call does
// anything.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	err := l.fl.Unlock()
	l.fl = nil
	if err != nil {
		return flasherrors.Wrap(err, flasherrors.CategoryRegistryLock, flasherrors.CodeRegistryLockLost,
			"failed to release registry lock")
	}
	return nil
}

// With runs fn while holding the lock at path, guaranteeing release on
// every return path (including panics propagated from fn).
func With(ctx context.Context, path string, exclusive bool, timeout time.Duration, fn func() error) error {
	l, err := Acquire(ctx, path, exclusive, timeout, 0)
	if err != nil {
		return err
	}
	defer l.Release()
	return fn()
}
