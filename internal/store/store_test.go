package store_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/junioryono/beans/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type key string

func (k key) String() string { return string(k) }

type instance struct {
	id int64
}

func TestStore_GetOrCreate(t *testing.T) {
	t.Run("concurrent callers share one creation", func(t *testing.T) {
		t.Parallel()

		s := store.New[key, *instance]()

		var constructed atomic.Int64
		start := make(chan struct{})

		const callers = 64
		results := make([]*instance, callers)

		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				<-start

				v, _, err := s.GetOrCreate("engine", func() (*instance, error) {
					time.Sleep(10 * time.Millisecond)
					return &instance{id: constructed.Add(1)}, nil
				})
				assert.NoError(t, err)
				results[idx] = v
			}(i)
		}

		close(start)
		wg.Wait()

		assert.Equal(t, int64(1), constructed.Load())
		for _, r := range results {
			assert.Same(t, results[0], r)
		}
	})

	t.Run("distinct keys create independently", func(t *testing.T) {
		t.Parallel()

		s := store.New[key, *instance]()

		a, createdA, err := s.GetOrCreate("a", func() (*instance, error) { return &instance{id: 1}, nil })
		require.NoError(t, err)
		b, createdB, err := s.GetOrCreate("b", func() (*instance, error) { return &instance{id: 2}, nil })
		require.NoError(t, err)

		assert.True(t, createdA)
		assert.True(t, createdB)
		assert.NotSame(t, a, b)
		assert.Equal(t, 2, s.Len())
	})

	t.Run("failed creation leaves no entry", func(t *testing.T) {
		t.Parallel()

		s := store.New[key, *instance]()
		boom := errors.New("boom")

		_, _, err := s.GetOrCreate("x", func() (*instance, error) { return nil, boom })
		require.ErrorIs(t, err, boom)

		_, ok := s.Get("x")
		assert.False(t, ok)

		v, created, err := s.GetOrCreate("x", func() (*instance, error) { return &instance{id: 7}, nil })
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, int64(7), v.id)
	})

	t.Run("hit does not call factory", func(t *testing.T) {
		t.Parallel()

		s := store.New[key, *instance]()
		_, _, err := s.GetOrCreate("x", func() (*instance, error) { return &instance{id: 1}, nil })
		require.NoError(t, err)

		v, created, err := s.GetOrCreate("x", func() (*instance, error) {
			t.Fatal("factory must not run on a hit")
			return nil, nil
		})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, int64(1), v.id)
	})
}

func TestStore_RemoveAndClear(t *testing.T) {
	t.Parallel()

	s := store.New[key, *instance]()
	for i, k := range []key{"first", "second", "third"} {
		id := int64(i + 1)
		_, _, err := s.GetOrCreate(k, func() (*instance, error) { return &instance{id: id}, nil })
		require.NoError(t, err)
	}

	removed, ok := s.Remove("second")
	require.True(t, ok)
	assert.Equal(t, int64(2), removed.id)

	_, ok = s.Remove("second")
	assert.False(t, ok)

	values := s.Values()
	require.Len(t, values, 2)
	assert.Equal(t, int64(1), values[0].id)
	assert.Equal(t, int64(3), values[1].id)

	cleared := s.Clear()
	require.Len(t, cleared, 2)
	assert.Equal(t, int64(1), cleared[0].id)
	assert.Equal(t, 0, s.Len())
}

func TestStore_PutAndCompareAndRemove(t *testing.T) {
	t.Parallel()

	s := store.New[key, *instance]()
	first := &instance{id: 1}
	second := &instance{id: 2}

	_, replaced := s.Put("k", first)
	assert.False(t, replaced)

	prev, replaced := s.Put("k", second)
	assert.True(t, replaced)
	assert.Same(t, first, prev)

	assert.False(t, s.CompareAndRemove("k", func(v *instance) bool { return v == first }))
	assert.True(t, s.CompareAndRemove("k", func(v *instance) bool { return v == second }))

	_, ok := s.Get("k")
	assert.False(t, ok)
}
