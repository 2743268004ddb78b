package beans

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/junioryono/beans/internal/graph"
)

// ScopeMismatchError indicates a singleton that requires a bean of a shorter-lived
// custom scope. The singleton would keep the first instance past its scope.
type ScopeMismatchError struct {
	Definition *Definition
	Dependency *Definition
}

func (e *ScopeMismatchError) Error() string {
	return fmt.Sprintf("singleton %s depends on %s in scope %q", e.Definition, e.Dependency, e.Dependency.scope)
}

// Validate checks every registered definition without building any bean: each
// required constructor argument must resolve to exactly one definition, singletons
// must not require custom-scoped beans, and constructor dependencies must not form
// a cycle. All problems found are joined into the returned error.
func (c *Container) Validate(ctx context.Context) error {
	g, errs := c.dependencyGraph(ctx)

	if err := g.DetectCycles(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// WriteGraph writes the constructor dependency graph in Graphviz DOT format.
func (c *Container) WriteGraph(ctx context.Context, w io.Writer) error {
	g, _ := c.dependencyGraph(ctx)
	return g.WriteDOT(w)
}

func (c *Container) dependencyGraph(ctx context.Context) (*graph.DependencyGraph, []error) {
	rc := NewResolutionContext(ctx)
	g := graph.NewDependencyGraph()

	var errs []error
	for _, d := range c.definitions() {
		if d.abstract || !d.IsEnabled(c, rc) {
			continue
		}

		var deps []string

		if d.kind == KindProxy && d.target != nil {
			deps = append(deps, d.target.id)
		}

		for _, a := range d.arguments {
			if a.Nullable || a.HasDefault || a.Collection {
				continue
			}
			if d.eachOf != nil && d.eachOf.AssignableTo(a.Type) && a.Qualifier == nil {
				continue
			}

			dep, err := c.pickDefinition(rc, BeanKey{Type: a.Type, Qualifier: a.Qualifier})
			if err != nil {
				errs = append(errs, &DependencyInjectionError{Definition: d, Argument: a.Name, Cause: err})
				continue
			}

			if d.IsSingleton() && dep.scope != ScopeSingleton && dep.scope != ScopePrototype {
				errs = append(errs, &ScopeMismatchError{Definition: d, Dependency: dep})
			}

			deps = append(deps, dep.base().id)
		}

		g.AddNode(d.id, d.String(), deps...)
	}

	return g, errs
}
