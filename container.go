package beans

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/junioryono/beans/internal/cache"
	"github.com/junioryono/beans/internal/metrics"
)

const tracerName = "github.com/junioryono/beans"

const (
	stateCreated int32 = iota
	stateRunning
	stateStopped
)

// Container owns every mutable table of a bean context: the definition registry,
// the scopes and their instances, and the lookup caches. It is safe for concurrent
// use.
type Container struct {
	id     string
	config Config

	registry   *registry
	singletons Scope

	scopesMu sync.RWMutex
	scopes   map[string]Scope

	// Lookup caches, invalidated on registry mutation.
	candidates *cache.Cache[mapKey, []*Definition]
	concrete   *cache.Cache[mapKey, *Definition]
	contains   *cache.Cache[mapKey, bool]

	// Per-type singleton collections, invalidated whenever a singleton is
	// registered or destroyed.
	singletonsByType *cache.Cache[mapKey, []*BeanRegistration]

	// delegates holds each-style expansions so the same expansion is always the
	// same definition.
	delegates sync.Map // map[string]*Definition

	listenerSet atomic.Pointer[listenerSet]
	listenerMu  sync.Mutex

	logger  *zap.Logger
	tracer  trace.Tracer
	metrics metrics.Recorder

	state atomic.Int32

	parallelMu   sync.Mutex
	parallelDone chan struct{}
	parallelErr  error
}

// Option configures a Container.
type Option interface {
	apply(*options)
}

type options struct {
	logger     *zap.Logger
	tracer     trace.TracerProvider
	registerer prometheus.Registerer
	config     *Config
	refs       []Reference
	scopes     []Scope
}

type optionFunc func(*options)

func (f optionFunc) apply(o *options) {
	f(o)
}

// WithLogger sets the logger. The default discards everything unless the config
// sets a log level.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = logger
	})
}

// WithTracerProvider enables a trace span per bean instantiation.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return optionFunc(func(o *options) {
		o.tracer = tp
	})
}

// WithMetrics registers the container's Prometheus collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return optionFunc(func(o *options) {
		o.registerer = reg
	})
}

// WithConfig sets the container configuration.
func WithConfig(cfg Config) Option {
	return optionFunc(func(o *options) {
		o.config = &cfg
	})
}

// WithDefinitions registers definitions or references at construction.
func WithDefinitions(refs ...Reference) Option {
	return optionFunc(func(o *options) {
		o.refs = append(o.refs, refs...)
	})
}

// WithScopes registers custom scopes at construction.
func WithScopes(scopes ...Scope) Option {
	return optionFunc(func(o *options) {
		o.scopes = append(o.scopes, scopes...)
	})
}

// New creates a container. Beans can be resolved right away; Start runs eager
// initialization and Stop tears everything down.
func New(opts ...Option) (*Container, error) {
	o := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(o)
		}
	}

	cfg := DefaultConfig()
	if o.config != nil {
		cfg = *o.config
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := o.logger
	if logger == nil {
		if cfg.LogLevel == "" {
			logger = zap.NewNop()
		} else {
			var err error
			if logger, err = newLogger(cfg.LogLevel); err != nil {
				return nil, err
			}
		}
	}

	var recorder metrics.Recorder = metrics.NewNoop()
	if o.registerer != nil {
		p, err := metrics.NewPrometheus(o.registerer, cfg.MetricsNamespace)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		recorder = p
	}

	tp := o.tracer
	if tp == nil {
		tp = noop.NewTracerProvider()
	}

	c := &Container{
		id:               uuid.NewString(),
		config:           cfg,
		registry:         newRegistry(listenerMarkers...),
		singletons:       NewScope(ScopeSingleton),
		scopes:           make(map[string]Scope),
		candidates:       cache.New[mapKey, []*Definition](observeCache(recorder, "candidates")),
		concrete:         cache.New[mapKey, *Definition](observeCache(recorder, "concrete")),
		contains:         cache.New[mapKey, bool](observeCache(recorder, "contains")),
		singletonsByType: cache.New[mapKey, []*BeanRegistration](observeCache(recorder, "singletons_by_type")),
		tracer:           tp.Tracer(tracerName),
		metrics:          recorder,
	}
	c.logger = logger.With(zap.String("container", c.id))

	for _, name := range cfg.CustomScopes {
		c.scopes[name] = NewScope(name)
	}
	for _, s := range o.scopes {
		if err := c.RegisterScope(s); err != nil {
			return nil, err
		}
	}

	c.registry.add(o.refs...)

	return c, nil
}

// ID returns the unique identifier of the container.
func (c *Container) ID() string {
	return c.id
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Running reports whether Start has been called and Stop has not.
func (c *Container) Running() bool {
	return c.state.Load() == stateRunning
}

func (c *Container) checkUsable() error {
	if c.state.Load() == stateStopped {
		return ErrContainerStopped
	}
	return nil
}

// Start initializes eager beans and dispatches parallel beans onto a worker pool.
// It returns once every eager bean exists; parallel beans may still be building.
// If an eager bean fails the container is stopped and the error returned.
func (c *Container) Start(ctx context.Context) error {
	if !c.state.CompareAndSwap(stateCreated, stateRunning) {
		if c.state.Load() == stateStopped {
			return ErrContainerStopped
		}
		return ErrContainerAlreadyRunning
	}

	c.logger.Info("starting container", zap.Int("definitions", c.registry.len()))

	rc := NewResolutionContext(ctx)
	c.listeners(rc)

	var parallel []*Definition
	for _, d := range c.definitions() {
		if d.abstract {
			continue
		}
		if d.parallel {
			parallel = append(parallel, d)
			continue
		}
		if !d.eager && !(c.config.EagerInitSingletons && d.IsSingleton()) {
			continue
		}

		if err := c.initEager(rc, d); err != nil {
			c.logger.Error("eager bean initialization failed", zap.Stringer("bean", d), zap.Error(err))
			_ = c.Stop(ctx)
			return err
		}
	}

	c.startParallel(ctx, parallel)

	c.logger.Info("container started")
	return nil
}

// initEager builds d, or every expansion of an each-style d, in its scope.
// Disabled, suppressed and replaced definitions are skipped.
func (c *Container) initEager(rc *ResolutionContext, d *Definition) error {
	if !d.IsEnabled(c, rc) {
		return nil
	}

	for _, cand := range c.findCandidates(rc, d.beanType, nil) {
		if cand != d && cand.base() != d {
			continue
		}

		if _, err := c.obtain(rc, cand, BeanKey{Type: cand.beanType}); err != nil {
			if isDisabled(err) {
				c.logger.Debug("skipping disabled eager bean", zap.Stringer("bean", cand), zap.Error(err))
				continue
			}
			return err
		}
	}

	return nil
}

func (c *Container) startParallel(ctx context.Context, defs []*Definition) {
	done := make(chan struct{})

	c.parallelMu.Lock()
	c.parallelDone = done
	c.parallelErr = nil
	c.parallelMu.Unlock()

	if len(defs) == 0 {
		close(done)
		return
	}

	bg := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(c.config.ParallelWorkers)

	for _, d := range defs {
		g.Go(func() error {
			if err := c.initEager(NewResolutionContext(bg), d); err != nil {
				c.logger.Error("parallel bean initialization failed", zap.Stringer("bean", d), zap.Error(err))
				return err
			}
			return nil
		})
	}

	go func() {
		err := g.Wait()

		c.parallelMu.Lock()
		c.parallelErr = err
		c.parallelMu.Unlock()
		close(done)

		if err != nil && c.config.ShutdownOnParallelFailure {
			c.logger.Error("stopping container after parallel initialization failure", zap.Error(err))
			if stopErr := c.Stop(bg); stopErr != nil {
				c.logger.Warn("stop after parallel failure", zap.Error(stopErr))
			}
		}
	}()
}

// AwaitParallelInit blocks until every parallel bean dispatched by Start has been
// attempted and returns the first failure.
func (c *Container) AwaitParallelInit(ctx context.Context) error {
	c.parallelMu.Lock()
	done := c.parallelDone
	c.parallelMu.Unlock()

	if done == nil {
		return ErrContainerNotRunning
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.parallelMu.Lock()
	defer c.parallelMu.Unlock()
	return c.parallelErr
}

// Stop destroys every live bean in dependency order, listener beans last, and
// clears all scopes. Teardown failures are logged, never returned.
func (c *Container) Stop(ctx context.Context) error {
	if prev := c.state.Swap(stateStopped); prev == stateStopped {
		return ErrContainerStopped
	}

	c.logger.Info("stopping container")

	ls := c.listenerSet.Load()

	regs := c.singletons.Registrations()
	for _, s := range c.customScopes() {
		regs = append(regs, s.Registrations()...)
	}

	var ordinary, listenerBeans []*BeanRegistration
	for _, reg := range regs {
		if isListenerInstance(reg.instance) {
			listenerBeans = append(listenerBeans, reg)
		} else {
			ordinary = append(ordinary, reg)
		}
	}

	c.destroyOrdered(ctx, ordinary, ls)
	c.destroyOrdered(ctx, listenerBeans, ls)

	c.singletons.Clear()
	for _, s := range c.customScopes() {
		s.Clear()
	}

	c.invalidateAll()
	c.logger.Info("container stopped")

	return nil
}

// RegisterDefinition adds definitions or references at runtime. Every lookup cache
// is invalidated.
func (c *Container) RegisterDefinition(refs ...Reference) error {
	if err := c.checkUsable(); err != nil {
		return err
	}

	n := c.registry.add(refs...)
	c.invalidateAll()
	c.logger.Debug("registered definitions", zap.Int("count", n))

	return nil
}

// RegisterScope adds a custom scope.
func (c *Container) RegisterScope(s Scope) error {
	if s == nil {
		return fmt.Errorf("scope cannot be nil")
	}

	name := s.Name()
	if name == "" || name == ScopeSingleton || name == ScopePrototype {
		return fmt.Errorf("scope name %q is reserved", name)
	}

	c.scopesMu.Lock()
	defer c.scopesMu.Unlock()

	if _, exists := c.scopes[name]; exists {
		return fmt.Errorf("scope %q already registered", name)
	}
	c.scopes[name] = s

	return nil
}

// RefreshScope destroys every bean of a custom scope. The scope stays registered,
// so the next request builds fresh beans.
func (c *Container) RefreshScope(ctx context.Context, name string) error {
	s, err := c.customScope(name)
	if err != nil {
		return err
	}

	c.teardownScope(ctx, s)
	c.logger.Debug("refreshed scope", zap.String("scope", name))

	return nil
}

// DestroyScope destroys every bean of a custom scope and unregisters it.
func (c *Container) DestroyScope(ctx context.Context, name string) error {
	c.scopesMu.Lock()
	s, ok := c.scopes[name]
	delete(c.scopes, name)
	c.scopesMu.Unlock()

	if !ok {
		return &NoSuchScopeError{Name: name}
	}

	c.teardownScope(ctx, s)
	c.logger.Debug("destroyed scope", zap.String("scope", name))

	return nil
}

func (c *Container) teardownScope(ctx context.Context, s Scope) {
	ls := c.listeners(NewResolutionContext(ctx))
	c.destroyOrdered(ctx, s.Registrations(), ls)
	s.Clear()
	c.invalidateInstances()
}

func (c *Container) customScope(name string) (Scope, error) {
	c.scopesMu.RLock()
	defer c.scopesMu.RUnlock()

	s, ok := c.scopes[name]
	if !ok {
		return nil, &NoSuchScopeError{Name: name}
	}
	return s, nil
}

func (c *Container) customScopes() []Scope {
	c.scopesMu.RLock()
	defer c.scopesMu.RUnlock()

	out := make([]Scope, 0, len(c.scopes))
	for _, s := range c.scopes {
		out = append(out, s)
	}
	return out
}

// scopeFor returns the scope caching def's beans, or nil for prototypes.
func (c *Container) scopeFor(def *Definition) (Scope, error) {
	switch def.scope {
	case ScopeSingleton, "":
		return c.singletons, nil
	case ScopePrototype:
		return nil, nil
	default:
		return c.customScope(def.scope)
	}
}

// definitions loads every registered definition.
func (c *Container) definitions() []*Definition {
	refs := c.registry.all()
	defs := make([]*Definition, 0, len(refs))
	for _, ref := range refs {
		d, err := ref.Load(c)
		if err != nil {
			c.logger.Warn("failed to load bean definition", zap.String("type", formatType(ref.BeanType())), zap.Error(err))
			continue
		}
		defs = append(defs, d)
	}
	return defs
}

// invalidateAll drops every lookup cache and the loaded listeners.
func (c *Container) invalidateAll() {
	c.candidates.Invalidate()
	c.concrete.Invalidate()
	c.contains.Invalidate()
	c.singletonsByType.Invalidate()
	c.metrics.CachesInvalidated()
}

func observeCache(recorder metrics.Recorder, name string) cache.Option {
	return cache.WithObserver(func(hit bool) {
		recorder.CacheLookup(name, hit)
	})
}

// invalidateInstances drops the caches that hold live instances.
func (c *Container) invalidateInstances() {
	c.singletonsByType.Invalidate()
}

var listenerMarkers = []reflect.Type{
	reflect.TypeFor[BeanCreatedListener](),
	reflect.TypeFor[BeanInitializedListener](),
	reflect.TypeFor[BeanPreDestroyListener](),
	reflect.TypeFor[BeanDestroyedListener](),
}
