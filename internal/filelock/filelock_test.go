package filelock

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease_Basic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.lock")

	l, err := Acquire(context.Background(), path, true, 0, 0)
	require.NoError(t, err)
	require.NoError(t, l.Release())
}

func TestRelease_IsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.lock")

	l, err := Acquire(context.Background(), path, true, 0, 0)
	require.NoError(t, err)
	require.NoError(t, l.Release())
	require.NoError(t, l.Release())
}

func TestAcquire_TimesOutWhenHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.lock")

	holder, err := Acquire(context.Background(), path, true, 0, 0)
	require.NoError(t, err)
	defer holder.Release()

	_, err = Acquire(context.Background(), path, true, 50*time.Millisecond, 10*time.Millisecond)
	require.Error(t, err)
}

func TestWith_SerializesConcurrentExclusiveAcquirers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.lock")

	var (
		counter int64
		mu      sync.Mutex
		maxSeen int64
	)

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			err := With(context.Background(), path, true, 2*time.Second, func() error {
				v := atomic.AddInt64(&counter, 1)
				mu.Lock()
				if v > maxSeen {
					maxSeen = v
				}
				mu.Unlock()
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt64(&counter, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), maxSeen, "exclusive lock must serialize critical sections")
}

func TestWith_ReleasesOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.lock")

	err := With(context.Background(), path, true, time.Second, func() error {
		return assert.AnError
	})
	require.Error(t, err)

	// A subsequent acquire must succeed promptly, proving the lock was
	// released on the error path.
	l, err := Acquire(context.Background(), path, true, 500*time.Millisecond, 0)
	require.NoError(t, err)
	require.NoError(t, l.Release())
}
