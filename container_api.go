package beans

import (
	"context"
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// GetBean returns the bean of type t accepted by q, building it if its scope does
// not hold one yet. q may be nil.
func (c *Container) GetBean(ctx context.Context, t reflect.Type, q Qualifier) (any, error) {
	reg, err := c.GetBeanRegistration(ctx, t, q)
	if err != nil {
		return nil, err
	}
	return reg.instance, nil
}

// GetBeanRegistration returns the live registration of the bean GetBean would return.
func (c *Container) GetBeanRegistration(ctx context.Context, t reflect.Type, q Qualifier) (*BeanRegistration, error) {
	if err := c.checkRequest(t); err != nil {
		return nil, err
	}

	key := BeanKey{Type: t, Qualifier: q}
	reg, err := c.resolve(NewResolutionContext(ctx), key)
	if err != nil {
		return nil, c.resolutionFailed(key, err)
	}
	if reg == nil {
		return nil, c.resolutionFailed(key, &NoSuchBeanError{Type: t, Qualifier: q})
	}
	return reg, nil
}

// FindBean is GetBean for optional beans: a missing bean is reported through the
// boolean instead of an error. Other failures are still returned.
func (c *Container) FindBean(ctx context.Context, t reflect.Type, q Qualifier) (any, bool, error) {
	v, err := c.GetBean(ctx, t, q)
	if err != nil {
		if _, missing := err.(*NoSuchBeanError); missing {
			return nil, false, nil
		}
		return nil, false, err
	}
	return v, true, nil
}

// GetBeansOfType returns every bean of type t accepted by q, ordered by explicit
// order then registration order. Disabled beans are skipped.
func (c *Container) GetBeansOfType(ctx context.Context, t reflect.Type, q Qualifier) ([]any, error) {
	regs, err := c.GetBeanRegistrations(ctx, t, q)
	if err != nil {
		return nil, err
	}

	out := make([]any, len(regs))
	for i, reg := range regs {
		out[i] = reg.instance
	}
	return out, nil
}

// GetBeanRegistrations returns the registrations behind GetBeansOfType. Results made
// only of singletons are cached until a singleton is registered or destroyed.
func (c *Container) GetBeanRegistrations(ctx context.Context, t reflect.Type, q Qualifier) ([]*BeanRegistration, error) {
	if err := c.checkRequest(t); err != nil {
		return nil, err
	}

	key := BeanKey{Type: t, Qualifier: q}
	mk := key.mapKey()
	if regs, ok := c.singletonsByType.Load(mk); ok {
		return append([]*BeanRegistration(nil), regs...), nil
	}

	gen := c.singletonsByType.Generation()
	regs, err := c.registrationsOfType(NewResolutionContext(ctx), t, q)
	if err != nil {
		return nil, c.resolutionFailed(key, err)
	}

	cacheable := true
	for _, reg := range regs {
		if !reg.def.IsSingleton() {
			cacheable = false
			break
		}
	}
	if cacheable {
		c.singletonsByType.Store(gen, mk, regs)
	}

	return append([]*BeanRegistration(nil), regs...), nil
}

// CreateBean builds a new bean from the definition GetBean would use, bypassing
// its scope. The caller owns the result; the container does not destroy it.
func (c *Container) CreateBean(ctx context.Context, t reflect.Type, q Qualifier) (any, error) {
	if err := c.checkRequest(t); err != nil {
		return nil, err
	}

	key := BeanKey{Type: t, Qualifier: q}
	rc := NewResolutionContext(ctx)

	def, err := c.pickDefinition(rc, key)
	if err != nil {
		return nil, c.resolutionFailed(key, err)
	}

	reg, err := c.create(rc, def, key)
	if err != nil {
		return nil, c.resolutionFailed(key, err)
	}
	return reg.instance, nil
}

// GetBeanForDefinition returns the bean of def, built in def's scope.
func (c *Container) GetBeanForDefinition(ctx context.Context, def *Definition) (any, error) {
	if def == nil {
		return nil, ErrBeanTypeNil
	}
	if err := c.checkUsable(); err != nil {
		return nil, err
	}

	key := BeanKey{Type: def.beanType}
	reg, err := c.obtain(NewResolutionContext(ctx), def, key)
	if err != nil {
		return nil, c.resolutionFailed(key, err)
	}
	if reg == nil {
		return nil, c.resolutionFailed(key, &NoSuchBeanError{Type: def.beanType})
	}
	return reg.instance, nil
}

// DestroyBean destroys the live bean of type t accepted by q and returns it. It
// returns nil when the bean's scope holds no instance.
func (c *Container) DestroyBean(ctx context.Context, t reflect.Type, q Qualifier) (any, error) {
	if err := c.checkRequest(t); err != nil {
		return nil, err
	}

	key := BeanKey{Type: t, Qualifier: q}
	rc := NewResolutionContext(ctx)

	def, err := c.pickDefinition(rc, key)
	if err != nil {
		return nil, c.resolutionFailed(key, err)
	}

	scope, err := c.scopeFor(def)
	if err != nil {
		return nil, err
	}
	if scope == nil {
		return nil, nil
	}

	reg, ok := scope.Get(scopeKeyOf(def))
	if !ok {
		return nil, nil
	}

	c.destroyRegistration(ctx, reg, c.listeners(rc))
	c.invalidateInstances()

	return reg.instance, nil
}

// DestroyRegistration destroys reg and everything it created.
func (c *Container) DestroyRegistration(ctx context.Context, reg *BeanRegistration) error {
	if reg == nil {
		return fmt.Errorf("registration cannot be nil")
	}

	c.destroyRegistration(ctx, reg, c.listeners(NewResolutionContext(ctx)))
	c.invalidateInstances()

	return nil
}

// RegisterSingleton adds an already built bean. Its constructor is never called,
// but field and method injections, post-construct hooks and listeners run once.
//
// Without options the instance is attached to an existing singleton definition of
// its exact type, if there is one. Otherwise a provided definition is registered,
// replacing other definitions of the same type.
func (c *Container) RegisterSingleton(ctx context.Context, instance any, opts ...DefinitionOption) (*BeanRegistration, error) {
	if isNil(instance) {
		return nil, ErrNilInstance
	}
	if err := c.checkUsable(); err != nil {
		return nil, err
	}

	t := reflect.TypeOf(instance)

	def := c.existingSingleton(t)
	var displaced []*Definition
	if def == nil || len(opts) > 0 {
		def = c.providedDefinition(t, instance, opts)
		displaced = c.replacedBy(def)
		c.registry.add(def)
		c.invalidateAll()
	}

	key := BeanKey{Type: t}
	rc := NewResolutionContext(ctx)
	rc.Push(Segment{Kind: SegmentRoot, Definition: def})

	reg := newRegistration(def, key, instance)

	sk := scopeKeyOf(def)
	rc.MarkInFlight(sk, reg)
	rc.pushDependents()

	err := c.inject(rc, def, reg)
	if err == nil {
		err = c.initialize(rc, def, reg)
	}

	reg.dependents = rc.popDependents()
	rc.ClearInFlight(sk)

	if err != nil {
		for i := len(reg.dependents) - 1; i >= 0; i-- {
			c.destroyRegistration(ctx, reg.dependents[i], c.listenerSet.Load())
		}
		return nil, c.resolutionFailed(key, err)
	}

	reg.scope = c.singletons
	if prev, ok := c.singletons.Put(sk, reg); ok && prev != reg {
		c.destroyRegistration(ctx, prev, c.listenerSet.Load())
	}
	for _, old := range displaced {
		c.destroyLive(ctx, old)
	}
	c.invalidateInstances()

	c.logger.Debug("registered singleton", zap.Stringer("bean", def))
	return reg, nil
}

// existingSingleton returns the one non-provided singleton definition of exactly t.
func (c *Container) existingSingleton(t reflect.Type) *Definition {
	var found *Definition
	for _, ref := range c.registry.exact(t) {
		d, err := ref.Load(c)
		if err != nil || d.provided || !d.IsSingleton() || d.abstract || d.kind != KindPlain {
			continue
		}
		if found != nil {
			return nil
		}
		found = d
	}
	return found
}

// replacedBy returns the registered definitions of def's type that def replaces.
func (c *Container) replacedBy(def *Definition) []*Definition {
	var out []*Definition
	for _, ref := range c.registry.exact(def.beanType) {
		d, err := ref.Load(c)
		if err != nil || d == def || def.replaces == nil || !replaces(def, d) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// destroyLive destroys the bean of def its scope currently holds, if any.
func (c *Container) destroyLive(ctx context.Context, def *Definition) {
	scope, err := c.scopeFor(def)
	if err != nil || scope == nil {
		return
	}
	if reg, ok := scope.Get(scopeKeyOf(def)); ok {
		c.destroyRegistration(ctx, reg, c.listenerSet.Load())
	}
}

func (c *Container) providedDefinition(t reflect.Type, instance any, opts []DefinitionOption) *Definition {
	all := append([]DefinitionOption{provided()}, opts...)
	if len(c.registry.exact(t)) > 0 {
		all = append(all, WithReplaces(Replaces{Type: t}))
	}

	return NewDefinition(t, func([]any) (any, error) { return instance, nil }, all...)
}

// ContainsBean reports whether a bean of type t accepted by q could be resolved.
func (c *Container) ContainsBean(ctx context.Context, t reflect.Type, q Qualifier) bool {
	if t == nil {
		return false
	}

	key := BeanKey{Type: t, Qualifier: q}
	found, _ := c.contains.LoadOrCompute(key.mapKey(), func() (bool, error) {
		defs := c.findCandidates(NewResolutionContext(ctx), t, q)
		if q != nil {
			defs = q.Reduce(t, defs)
		}
		return len(defs) > 0, nil
	})
	return found
}

// FindBeanDefinition returns the definition GetBean would build for t and q.
// A missing definition is reported through the boolean; ambiguity is an error.
func (c *Container) FindBeanDefinition(ctx context.Context, t reflect.Type, q Qualifier) (*Definition, bool, error) {
	def, err := c.GetBeanDefinition(ctx, t, q)
	if err != nil {
		if _, missing := err.(*NoSuchBeanError); missing {
			return nil, false, nil
		}
		return nil, false, err
	}
	return def, true, nil
}

// GetBeanDefinition returns the definition GetBean would build for t and q.
func (c *Container) GetBeanDefinition(ctx context.Context, t reflect.Type, q Qualifier) (*Definition, error) {
	if err := c.checkRequest(t); err != nil {
		return nil, err
	}

	key := BeanKey{Type: t, Qualifier: q}
	def, err := c.pickDefinition(NewResolutionContext(ctx), key)
	if err != nil {
		return nil, c.resolutionFailed(key, err)
	}
	return def, nil
}

// FindBeanDefinitions returns every candidate definition for t accepted by q.
func (c *Container) FindBeanDefinitions(ctx context.Context, t reflect.Type, q Qualifier) []*Definition {
	if t == nil {
		return nil
	}

	defs := c.findCandidates(NewResolutionContext(ctx), t, q)
	if q != nil {
		defs = q.Reduce(t, defs)
	}
	return append([]*Definition(nil), defs...)
}

func (c *Container) checkRequest(t reflect.Type) error {
	if t == nil {
		return ErrBeanTypeNil
	}
	return c.checkUsable()
}

// resolutionFailed records err and reports a disabled bean as a missing one.
func (c *Container) resolutionFailed(key BeanKey, err error) error {
	if disabled, ok := err.(*DisabledBeanError); ok {
		err = &NoSuchBeanError{Type: key.Type, Qualifier: key.Qualifier, Cause: disabled}
	}

	c.metrics.ResolutionFailed(errorKind(err))
	c.logger.Debug("bean resolution failed", zap.Stringer("key", key), zap.Error(err))

	return err
}

// Get returns the bean of type T. Multiple qualifiers are combined with And.
func Get[T any](ctx context.Context, c *Container, qualifiers ...Qualifier) (T, error) {
	var zero T

	v, err := c.GetBean(ctx, reflect.TypeFor[T](), And(qualifiers...))
	if err != nil {
		return zero, err
	}

	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("bean of type %T does not implement %s", v, formatType(reflect.TypeFor[T]()))
	}
	return t, nil
}

// MustGet is Get that panics on failure.
func MustGet[T any](ctx context.Context, c *Container, qualifiers ...Qualifier) T {
	v, err := Get[T](ctx, c, qualifiers...)
	if err != nil {
		panic(err)
	}
	return v
}

// Find returns the bean of type T if one exists.
func Find[T any](ctx context.Context, c *Container, qualifiers ...Qualifier) (T, bool, error) {
	var zero T

	v, ok, err := c.FindBean(ctx, reflect.TypeFor[T](), And(qualifiers...))
	if err != nil || !ok {
		return zero, false, err
	}

	t, ok := v.(T)
	if !ok {
		return zero, false, fmt.Errorf("bean of type %T does not implement %s", v, formatType(reflect.TypeFor[T]()))
	}
	return t, true, nil
}

// All returns every bean of type T in order.
func All[T any](ctx context.Context, c *Container, qualifiers ...Qualifier) ([]T, error) {
	values, err := c.GetBeansOfType(ctx, reflect.TypeFor[T](), And(qualifiers...))
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(values))
	for _, v := range values {
		t, ok := v.(T)
		if !ok {
			return nil, fmt.Errorf("bean of type %T does not implement %s", v, formatType(reflect.TypeFor[T]()))
		}
		out = append(out, t)
	}
	return out, nil
}

// Create builds a new bean of type T outside its scope.
func Create[T any](ctx context.Context, c *Container, qualifiers ...Qualifier) (T, error) {
	var zero T

	v, err := c.CreateBean(ctx, reflect.TypeFor[T](), And(qualifiers...))
	if err != nil {
		return zero, err
	}

	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("bean of type %T does not implement %s", v, formatType(reflect.TypeFor[T]()))
	}
	return t, nil
}
