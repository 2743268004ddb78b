package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/junioryono/beans"
)

// ContainerBuilder provides a fluent interface for building test containers.
type ContainerBuilder struct {
	t    *testing.T
	defs []beans.Reference
	opts []beans.Option
}

// NewContainerBuilder creates a new ContainerBuilder.
func NewContainerBuilder(t *testing.T) *ContainerBuilder {
	return &ContainerBuilder{t: t}
}

// With adds definitions or references.
func (b *ContainerBuilder) With(refs ...beans.Reference) *ContainerBuilder {
	b.defs = append(b.defs, refs...)
	return b
}

// WithOptions adds container options.
func (b *ContainerBuilder) WithOptions(opts ...beans.Option) *ContainerBuilder {
	b.opts = append(b.opts, opts...)
	return b
}

// Build creates the container and stops it when the test ends.
func (b *ContainerBuilder) Build() *beans.Container {
	b.t.Helper()

	opts := append([]beans.Option{beans.WithDefinitions(b.defs...)}, b.opts...)
	c, err := beans.New(opts...)
	require.NoError(b.t, err)

	b.t.Cleanup(func() {
		_ = c.Stop(context.Background())
	})

	return c
}

// Start builds and starts the container.
func (b *ContainerBuilder) Start() *beans.Container {
	b.t.Helper()

	c := b.Build()
	require.NoError(b.t, c.Start(context.Background()))
	return c
}

// EngineDefinition defines *Engine, counting constructor calls.
func EngineDefinition(counter *Counter, opts ...beans.DefinitionOption) *beans.Definition {
	return beans.Define(func([]any) (*Engine, error) {
		if counter != nil {
			counter.Inc()
		}
		return NewEngine(), nil
	}, opts...)
}

// CarDefinition defines *Car with a constructor-injected *Engine.
func CarDefinition(counter *Counter, opts ...beans.DefinitionOption) *beans.Definition {
	opts = append([]beans.DefinitionOption{beans.WithArguments(beans.Arg[*Engine]("engine"))}, opts...)
	return beans.Define(func(args []any) (*Car, error) {
		if counter != nil {
			counter.Inc()
		}
		engine, _ := args[0].(*Engine)
		return NewCar(engine), nil
	}, opts...)
}

// RecordDestroy is a pre-destroy hook logging "destroy <name>".
func RecordDestroy(log *EventLog, name string) beans.DefinitionOption {
	return beans.PreDestroy(func(any) error {
		log.Add("destroy %s", name)
		return nil
	})
}
