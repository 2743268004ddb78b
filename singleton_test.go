package beans_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/beans"
	"github.com/junioryono/beans/internal/testutil"
)

type Garage struct {
	Engine *testutil.Engine
	Opened bool
}

func garageDefinition(ctorCalls *testutil.Counter) *beans.Definition {
	return beans.Define(func([]any) (*Garage, error) {
		ctorCalls.Inc()
		return &Garage{}, nil
	},
		beans.WithInjections(beans.Field("Engine", beans.Arg[*testutil.Engine](""), func(instance, value any) {
			instance.(*Garage).Engine = value.(*testutil.Engine)
		})),
		beans.PostConstruct(func(instance any) error {
			instance.(*Garage).Opened = true
			return nil
		}),
	)
}

func TestRegisterSingleton_AttachesToDefinition(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var ctorCalls, engines testutil.Counter

	c := testutil.NewContainerBuilder(t).
		With(garageDefinition(&ctorCalls), testutil.EngineDefinition(&engines)).
		Build()

	g := &Garage{}
	reg, err := c.RegisterSingleton(ctx, g)
	require.NoError(t, err)

	assert.Zero(t, ctorCalls.Load(), "constructor must not run for a provided instance")
	assert.Equal(t, int64(1), engines.Load())
	require.NotNil(t, g.Engine)
	assert.True(t, g.Opened)
	assert.False(t, reg.Definition().IsProvided())

	got := testutil.AssertResolvable[*Garage](t, c)
	assert.Same(t, g, got)
	assert.Zero(t, ctorCalls.Load())
}

func TestRegisterSingleton_ReplacesLiveBean(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	log := &testutil.EventLog{}
	var ctorCalls testutil.Counter

	c := testutil.NewContainerBuilder(t).
		With(garageDefinition(&ctorCalls), testutil.EngineDefinition(nil, testutil.RecordDestroy(log, "engine"))).
		Build()

	built := testutil.AssertResolvable[*testutil.Engine](t, c)

	provided := testutil.NewEngine()
	_, err := c.RegisterSingleton(ctx, provided)
	require.NoError(t, err)

	assert.Equal(t, []string{"destroy engine"}, log.Events())
	got := testutil.AssertResolvable[*testutil.Engine](t, c)
	assert.Same(t, provided, got)
	assert.NotSame(t, built, got)
}

func TestRegisterSingleton_WithoutDefinition(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := testutil.NewContainerBuilder(t).With(testutil.CarDefinition(nil)).Build()

	engine := testutil.NewEngine()
	reg, err := c.RegisterSingleton(ctx, engine, beans.WithName("provided"))
	require.NoError(t, err)
	assert.True(t, reg.Definition().IsProvided())
	assert.Equal(t, "provided", reg.Definition().Name())

	car := testutil.AssertResolvable[*testutil.Car](t, c)
	assert.Same(t, engine, car.Engine)
	assert.Same(t, engine, testutil.AssertResolvable[*testutil.Engine](t, c, beans.Named("provided")))
}

func TestRegisterSingleton_OverridesPrototype(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := testutil.NewContainerBuilder(t).
		With(testutil.EngineDefinition(nil, beans.Prototype())).
		Build()

	engine := testutil.NewEngine()
	_, err := c.RegisterSingleton(ctx, engine)
	require.NoError(t, err)

	assert.Same(t, engine, testutil.AssertResolvable[*testutil.Engine](t, c))
	assert.Len(t, c.FindBeanDefinitions(ctx, reflect.TypeFor[*testutil.Engine](), nil), 1)
}

func TestRegisterSingleton_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := testutil.NewContainerBuilder(t).Build()

	_, err := c.RegisterSingleton(ctx, nil)
	assert.ErrorIs(t, err, beans.ErrNilInstance)

	var nilEngine *testutil.Engine
	_, err = c.RegisterSingleton(ctx, nilEngine)
	assert.ErrorIs(t, err, beans.ErrNilInstance)

	// Injection failures leave nothing registered.
	var ctorCalls testutil.Counter
	c2 := testutil.NewContainerBuilder(t).With(garageDefinition(&ctorCalls)).Build()

	_, err = c2.RegisterSingleton(ctx, &Garage{})
	testutil.AssertNoSuchBean(t, err)
	assert.False(t, c2.ContainsBean(ctx, reflect.TypeFor[*testutil.Engine](), nil))

	require.NoError(t, c.Stop(ctx))
	_, err = c.RegisterSingleton(ctx, testutil.NewEngine())
	assert.ErrorIs(t, err, beans.ErrContainerStopped)
}

func TestRegisterSingleton_ReplacesProvidedInstance(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := testutil.NewContainerBuilder(t).Build()

	first := testutil.NewTestDisposable()
	second := testutil.NewTestDisposable()

	_, err := c.RegisterSingleton(ctx, first)
	require.NoError(t, err)
	_, err = c.RegisterSingleton(ctx, second)
	require.NoError(t, err)

	assert.Same(t, second, testutil.AssertResolvable[*testutil.TestDisposable](t, c))
	assert.True(t, first.IsDisposed(), "the displaced instance is destroyed right away")
	assert.False(t, second.IsDisposed())

	regs, err := c.GetBeanRegistrations(ctx, reflect.TypeFor[*testutil.TestDisposable](), nil)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Same(t, second, regs[0].Instance())
}
