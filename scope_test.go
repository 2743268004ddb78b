package beans_test

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/beans"
	"github.com/junioryono/beans/internal/testutil"
)

func TestScope_CustomScopeCaches(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	log := &testutil.EventLog{}
	var created testutil.Counter

	c := testutil.NewContainerBuilder(t).
		With(testutil.EngineDefinition(&created, beans.WithScope("request"), testutil.RecordDestroy(log, "engine"))).
		WithOptions(beans.WithScopes(beans.NewScope("request"))).
		Build()

	first := testutil.AssertResolvable[*testutil.Engine](t, c)
	assert.Same(t, first, testutil.AssertResolvable[*testutil.Engine](t, c))
	assert.Equal(t, int64(1), created.Load())

	t.Run("refresh rebuilds", func(t *testing.T) {
		require.NoError(t, c.RefreshScope(ctx, "request"))
		assert.Equal(t, []string{"destroy engine"}, log.Events())

		second := testutil.AssertResolvable[*testutil.Engine](t, c)
		assert.NotSame(t, first, second)
		assert.Equal(t, int64(2), created.Load())
	})

	t.Run("destroy unregisters", func(t *testing.T) {
		require.NoError(t, c.DestroyScope(ctx, "request"))
		assert.Equal(t, []string{"destroy engine", "destroy engine"}, log.Events())

		_, err := beans.Get[*testutil.Engine](ctx, c)
		var noScope *beans.NoSuchScopeError
		require.ErrorAs(t, err, &noScope)
		assert.Equal(t, "request", noScope.Name)

		err = c.DestroyScope(ctx, "request")
		assert.ErrorAs(t, err, &noScope)
	})
}

func TestScope_FromConfig(t *testing.T) {
	t.Parallel()

	cfg := beans.DefaultConfig()
	cfg.CustomScopes = []string{"session"}

	c := testutil.NewContainerBuilder(t).
		With(testutil.EngineDefinition(nil, beans.WithScope("session"))).
		WithOptions(beans.WithConfig(cfg)).
		Build()

	testutil.AssertResolvable[*testutil.Engine](t, c)
	require.NoError(t, c.RefreshScope(context.Background(), "session"))
}

func TestScope_UnknownScope(t *testing.T) {
	t.Parallel()

	c := testutil.NewContainerBuilder(t).
		With(testutil.EngineDefinition(nil, beans.WithScope("missing"))).
		Build()

	_, err := beans.Get[*testutil.Engine](context.Background(), c)
	var noScope *beans.NoSuchScopeError
	assert.ErrorAs(t, err, &noScope)

	assert.ErrorAs(t, c.RefreshScope(context.Background(), "missing"), &noScope)
}

func TestScope_RegisterScope(t *testing.T) {
	t.Parallel()

	c := testutil.NewContainerBuilder(t).Build()

	require.NoError(t, c.RegisterScope(beans.NewScope("tenant")))
	assert.Error(t, c.RegisterScope(beans.NewScope("tenant")))
	assert.Error(t, c.RegisterScope(beans.NewScope(beans.ScopeSingleton)))
	assert.Error(t, c.RegisterScope(beans.NewScope(beans.ScopePrototype)))
	assert.Error(t, c.RegisterScope(beans.NewScope("")))
	assert.Error(t, c.RegisterScope(nil))
}

func TestScope_Operations(t *testing.T) {
	t.Parallel()

	s := beans.NewScope("test")
	assert.Equal(t, "test", s.Name())

	c := testutil.NewContainerBuilder(t).With(testutil.EngineDefinition(nil), testutil.CarDefinition(nil)).Build()
	engine, err := c.GetBeanRegistration(context.Background(), reflect.TypeFor[*testutil.Engine](), nil)
	require.NoError(t, err)
	car, err := c.GetBeanRegistration(context.Background(), reflect.TypeFor[*testutil.Car](), nil)
	require.NoError(t, err)

	k1 := beans.ScopeKey("engine")
	k2 := beans.ScopeKey("car")

	_, ok := s.Get(k1)
	assert.False(t, ok)

	got, created, err := s.GetOrCreate(k1, func() (*beans.BeanRegistration, error) { return engine, nil })
	require.NoError(t, err)
	assert.True(t, created)
	assert.Same(t, engine, got)

	got, created, err = s.GetOrCreate(k1, func() (*beans.BeanRegistration, error) {
		t.Fatal("create called for a live key")
		return nil, nil
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, engine, got)

	_, _, err = s.GetOrCreate(k2, func() (*beans.BeanRegistration, error) { return nil, testutil.ErrConstructor })
	assert.ErrorIs(t, err, testutil.ErrConstructor)
	_, ok = s.Get(k2)
	assert.False(t, ok, "failed creation must not leave an entry")

	prev, replaced := s.Put(k2, car)
	assert.Nil(t, prev)
	assert.False(t, replaced)
	assert.Equal(t, []*beans.BeanRegistration{engine, car}, s.Registrations())

	assert.False(t, s.Release(k1, car))
	assert.True(t, s.Release(k1, engine))

	removed, ok := s.Remove(k2)
	assert.True(t, ok)
	assert.Same(t, car, removed)
	assert.Empty(t, s.Clear())
}

func TestScope_ConcurrentGetOrCreate(t *testing.T) {
	t.Parallel()

	s := beans.NewScope("test")
	key := beans.ScopeKey("engine")

	c := testutil.NewContainerBuilder(t).With(testutil.EngineDefinition(nil)).Build()
	reg, err := c.GetBeanRegistration(context.Background(), reflect.TypeFor[*testutil.Engine](), nil)
	require.NoError(t, err)

	var calls testutil.Counter
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, _, err := s.GetOrCreate(key, func() (*beans.BeanRegistration, error) {
				calls.Inc()
				return reg, nil
			})
			assert.NoError(t, err)
			assert.Same(t, reg, got)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
}
