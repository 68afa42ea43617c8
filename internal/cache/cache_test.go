package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyDigest(t *testing.T) {
	a := Key{Prompt: "explain goroutines", Model: "gemini-2.0-flash"}
	b := Key{Prompt: "explain goroutines", Model: "gemini-1.5-pro"}

	assert.Len(t, a.Digest(), 64)
	assert.Equal(t, a.Digest(), Key{Prompt: "explain goroutines", Model: "gemini-2.0-flash"}.Digest())
	assert.NotEqual(t, a.Digest(), b.Digest())
	assert.NotEqual(t, Key{Prompt: "ab", Model: "c"}.Digest(), Key{Prompt: "b", Model: "ca"}.Digest())
}

func TestCaches(t *testing.T) {
	bounded, err := NewLRU(8, 0)
	require.NoError(t, err)
	expiring, err := NewLRU(8, time.Hour)
	require.NoError(t, err)

	caches := map[string]Cache{
		"unbounded": NewUnbounded(),
		"lru":       bounded,
		"expirable": expiring,
	}

	for name, c := range caches {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := Key{Prompt: "p", Model: "m"}

			_, ok := c.Get(ctx, key)
			assert.False(t, ok)

			c.Set(ctx, key, `{"a":1}`)
			v, ok := c.Get(ctx, key)
			require.True(t, ok)
			assert.Equal(t, `{"a":1}`, v)

			_, ok = c.Get(ctx, Key{Prompt: "p", Model: "other"})
			assert.False(t, ok)
		})
	}
}

func TestLRUEvicts(t *testing.T) {
	c, err := NewLRU(2, 0)
	require.NoError(t, err)
	ctx := context.Background()

	c.Set(ctx, Key{Prompt: "1"}, "a")
	c.Set(ctx, Key{Prompt: "2"}, "b")
	c.Set(ctx, Key{Prompt: "3"}, "c")

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(ctx, Key{Prompt: "1"})
	assert.False(t, ok)

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestLRUExpires(t *testing.T) {
	c, err := NewLRU(4, 20*time.Millisecond)
	require.NoError(t, err)
	ctx := context.Background()

	c.Set(ctx, Key{Prompt: "p"}, "v")
	assert.Eventually(t, func() bool {
		_, ok := c.Get(ctx, Key{Prompt: "p"})
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestNewLRURejectsNonPositiveSize(t *testing.T) {
	_, err := NewLRU(0, 0)
	assert.Error(t, err)
}

func TestUnboundedConcurrentWriters(t *testing.T) {
	c := NewUnbounded()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Set(ctx, Key{Prompt: "shared"}, "same")
			c.Set(ctx, Key{Prompt: fmt.Sprintf("p%d", i)}, "v")
			c.Get(ctx, Key{Prompt: "shared"})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 51, c.Len())
	v, ok := c.Get(ctx, Key{Prompt: "shared"})
	assert.True(t, ok)
	assert.Equal(t, "same", v)
}
