package cache_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/junioryono/beans/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_LoadOrCompute(t *testing.T) {
	t.Parallel()

	c := cache.New[string, int]()
	calls := 0

	compute := func() (int, error) {
		calls++
		return 42, nil
	}

	v, err := c.LoadOrCompute("answer", compute)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = c.LoadOrCompute("answer", compute)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)
}

func TestCache_Observer(t *testing.T) {
	t.Parallel()

	var hits, misses int
	c := cache.New[string, int](cache.WithObserver(func(hit bool) {
		if hit {
			hits++
		} else {
			misses++
		}
	}))

	_, ok := c.Load("k")
	assert.False(t, ok)

	c.Store(c.Generation(), "k", 1)
	_, ok = c.Load("k")
	assert.True(t, ok)

	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
}

func TestCache_ComputeErrorIsNotCached(t *testing.T) {
	t.Parallel()

	c := cache.New[string, int]()
	boom := errors.New("boom")

	_, err := c.LoadOrCompute("k", func() (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
}

func TestCache_StaleStoreIsDropped(t *testing.T) {
	t.Parallel()

	c := cache.New[string, []string]()

	gen := c.Generation()
	c.Invalidate()

	stored := c.Store(gen, "candidates", []string{"stale"})
	assert.False(t, stored)

	_, ok := c.Load("candidates")
	assert.False(t, ok)

	assert.True(t, c.Store(c.Generation(), "candidates", []string{"fresh"}))
	v, ok := c.Load("candidates")
	require.True(t, ok)
	assert.Equal(t, []string{"fresh"}, v)
}

func TestCache_InvalidateClears(t *testing.T) {
	t.Parallel()

	c := cache.New[int, int]()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, _ = c.LoadOrCompute(n, func() (int, error) { return n * n, nil })
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, c.Len())

	before := c.Generation()
	c.Invalidate()
	assert.Equal(t, 0, c.Len())
	assert.Greater(t, c.Generation(), before)
}
