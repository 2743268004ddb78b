// Package beans is the runtime core of a bean container: given definitions of how
// components are built, it resolves, constructs, caches and tears down component
// instances ("beans") on demand.
//
// # Overview
//
// The container provides:
//   - Singleton, prototype and custom scopes
//   - Constructor, field and method injection through opaque injection points
//   - Qualifiers by name, annotation, type argument and interceptor binding
//   - Primary, secondary and ordered candidates
//   - Replacement of definitions, proxies and each-style expansions
//   - Nullable cycle short-circuiting and cycle errors with the resolution path
//   - Lifecycle listeners and dependency-ordered destruction
//   - Thread-safe single construction per scope
//
// # Basic Usage
//
// Describe beans with definitions, create a container, then resolve:
//
//	engine := beans.Define(func([]any) (*Engine, error) {
//	    return &Engine{}, nil
//	})
//	car := beans.Define(func(args []any) (*Car, error) {
//	    return &Car{Engine: args[0].(*Engine)}, nil
//	}, beans.WithArguments(beans.Arg[*Engine]("engine")))
//
//	c, err := beans.New(beans.WithDefinitions(engine, car))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := c.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Stop(ctx)
//
//	myCar, err := beans.Get[*Car](ctx, c)
//
// # Scopes
//
//   - ScopeSingleton: one bean per container, destroyed by Stop
//   - ScopePrototype: a new bean per resolution, destroyed with the bean it was built for
//   - Custom scopes: registered with RegisterScope, torn down by RefreshScope or DestroyScope
//
// # Choosing Among Candidates
//
// When several definitions match a request, a qualifier narrows them first. Of
// what remains, a primary definition wins; secondary definitions are dropped;
// then the lowest order wins once any candidate declares one; finally a single
// definition of exactly the requested type wins. Anything else is a
// NonUniqueBeanError listing the candidates.
//
// # Cycles
//
// A bean requested again while its constructor arguments are still resolving is a
// cycle. If any slot on the cycle is nullable it receives nil; otherwise the request
// fails with a DependencyInjectionError wrapping a CircularDependencyError. A bean
// requested again from its own field or method injections receives the partially
// built instance.
//
// # Lifecycle
//
// After construction and injection the container runs BeanInitializedListener
// beans, post-construct hooks, Lifecycle.Start, BeanCreatedListener beans and the
// validation hook. Listeners may substitute the bean. Destruction runs
// BeanPreDestroyListener beans, pre-destroy hooks, Lifecycle.Stop, Close, the
// bean's dependents in reverse creation order, and BeanDestroyedListener beans.
// Destruction failures are logged and never stop the remaining teardown.
//
// # Observability
//
// WithLogger sets a zap logger, WithMetrics registers Prometheus collectors, and
// WithTracerProvider records a span per bean construction.
package beans
