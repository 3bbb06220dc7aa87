package credctx

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetGet_Roundtrips(t *testing.T) {
	ctx, _ := Set(context.Background(), "key-123")
	assert.Equal(t, "key-123", Get(ctx))
}

func TestGet_DefaultsToEmpty(t *testing.T) {
	assert.Equal(t, "", Get(context.Background()))
}

func TestClear_RestoresOuterValue(t *testing.T) {
	outer, _ := Set(context.Background(), "outer-key")
	inner, tok := Set(outer, "inner-key")
	assert.Equal(t, "inner-key", Get(inner))

	restored := Clear(tok)
	assert.Equal(t, "outer-key", Get(restored))
}

func TestClear_NestedRestoresEmpty(t *testing.T) {
	ctx, tok := Set(context.Background(), "key")
	assert.Equal(t, "key", Get(ctx))

	restored := Clear(tok)
	assert.Equal(t, "", Get(restored))
}

func TestConcurrentTasks_DoNotLeak(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ctx, _ := Set(context.Background(), "task-key")
			assert.Equal(t, "task-key", Get(ctx))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, "", Get(context.Background()))
}
