package beans

import (
	"errors"
	"reflect"
	"runtime/debug"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// resolve picks the definition for key and returns its registration. A nil
// registration with a nil error means a nullable slot closed a constructor cycle.
func (c *Container) resolve(rc *ResolutionContext, key BeanKey) (*BeanRegistration, error) {
	def, err := c.pickDefinition(rc, key)
	if err != nil {
		return nil, err
	}
	return c.obtain(rc, def, key)
}

// obtain returns a registration for def: the in-flight partial bean, the bean
// cached in def's scope, or a newly built one.
func (c *Container) obtain(rc *ResolutionContext, def *Definition, key BeanKey) (*BeanRegistration, error) {
	sk := scopeKeyOf(def)
	if reg, ok := rc.InFlight(sk); ok {
		return reg, nil
	}

	scope, err := c.scopeFor(def)
	if err != nil {
		return nil, err
	}

	if scope != nil {
		if reg, ok := scope.Get(sk); ok {
			c.metrics.ScopeLookup(scope.Name(), true)
			return reg, nil
		}
	}

	// def is still resolving its constructor arguments further up the path.
	if i := rc.cycleStart(def); i >= 0 {
		if rc.nullableFrom(i) {
			return nil, nil
		}

		top := rc.path[len(rc.path)-1]
		return nil, &DependencyInjectionError{
			Definition: top.Definition,
			Argument:   top.Name,
			Path:       rc.Path(),
			Cause:      &CircularDependencyError{Path: rc.cycleLabels(i)},
		}
	}

	if scope == nil {
		reg, err := c.create(rc, def, key)
		if err != nil {
			return nil, err
		}
		rc.addDependent(reg)
		return reg, nil
	}

	c.metrics.ScopeLookup(scope.Name(), false)
	reg, _, err := scope.GetOrCreate(sk, func() (*BeanRegistration, error) {
		reg, err := c.create(rc, def, key)
		if err != nil {
			return nil, err
		}
		reg.scope = scope
		return reg, nil
	})
	if err != nil {
		return nil, err
	}

	return reg, nil
}

// create builds a new registration for def without consulting any scope.
func (c *Container) create(rc *ResolutionContext, def *Definition, key BeanKey) (reg *BeanRegistration, err error) {
	start := time.Now()

	ctx, span := c.tracer.Start(rc.ctx, "beans.create",
		trace.WithAttributes(
			attribute.String("bean.type", formatType(def.beanType)),
			attribute.String("bean.scope", def.scope),
			attribute.String("bean.kind", def.kind.String()),
		),
	)
	parent := rc.ctx
	rc.ctx = ctx

	defer func() {
		rc.ctx = parent
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "bean creation failed")
		}
		span.End()
	}()

	if rc.Depth() == 0 {
		rc.Push(Segment{Kind: SegmentRoot, Definition: def})
		defer rc.Pop()
	}

	if def.kind == KindDelegate && def.target != nil && def.target.eachOf != nil {
		rc.eachDepth++
		rc.PushQualifier(def.qualifier)
		defer func() {
			rc.PopQualifier()
			rc.eachDepth--
		}()
	}

	rc.pushDependents()
	reg, err = c.build(rc, def, key)
	deps := rc.popDependents()

	if err != nil {
		// Prototypes built for a bean that never came to be are released.
		for i := len(deps) - 1; i >= 0; i-- {
			c.destroyRegistration(ctx, deps[i], c.listenerSet.Load())
		}
		return nil, err
	}

	reg.dependents = deps

	elapsed := time.Since(start)
	c.metrics.BeanCreated(def.scope, elapsed)
	c.logger.Debug("bean created",
		zap.Stringer("bean", def),
		zap.String("scope", def.scope),
		zap.Int("dependents", len(deps)),
		zap.Duration("elapsed", elapsed),
	)

	return reg, nil
}

// build runs construction: constructor arguments, the constructor, field and
// method injection, then initialization.
func (c *Container) build(rc *ResolutionContext, def *Definition, key BeanKey) (*BeanRegistration, error) {
	var (
		args   []any
		target *BeanRegistration
	)

	if def.kind == KindProxy {
		if def.target == nil {
			return nil, &BeanInstantiationError{Definition: def, Path: rc.Path(), Cause: errors.New("proxy has no target")}
		}

		rc.Push(Segment{Kind: SegmentConstructor, Definition: def, Name: "target", Type: def.target.beanType})
		t, err := c.obtain(rc, def.target, BeanKey{Type: def.target.beanType, Qualifier: ProxyTarget()})
		rc.Pop()
		if err != nil {
			return nil, c.argumentFailed(rc, def, "target", err)
		}
		if t != nil {
			target = t
			args = append(args, t.instance)
		} else {
			args = append(args, nil)
		}
	}

	values, err := c.resolveArguments(rc, def, SegmentConstructor, "", def.arguments)
	if err != nil {
		return nil, disabledOr(def, err)
	}
	args = append(args, values...)

	if def.constructor == nil {
		return nil, &BeanInstantiationError{Definition: def, Path: rc.Path(), Cause: ErrConstructorNil}
	}

	instance, err := invoke(def, func() (any, error) { return def.constructor(args) })
	if err != nil {
		var disabled *DisabledBeanError
		if errors.As(err, &disabled) {
			return nil, &DisabledBeanError{Definition: def, Reason: disabled.Reason, Cause: err}
		}
		return nil, &BeanInstantiationError{Definition: def, Path: rc.Path(), Cause: err}
	}
	if isNil(instance) {
		return nil, &BeanInstantiationError{Definition: def, Path: rc.Path(), Cause: ErrNilInstance}
	}

	reg := newRegistration(def, key, instance)
	reg.target = target

	sk := scopeKeyOf(def)
	rc.MarkInFlight(sk, reg)
	defer rc.ClearInFlight(sk)

	if err := c.inject(rc, def, reg); err != nil {
		return nil, disabledOr(def, err)
	}

	if err := c.initialize(rc, def, reg); err != nil {
		return nil, err
	}

	return reg, nil
}

// inject runs field and method injection points in declaration order.
func (c *Container) inject(rc *ResolutionContext, def *Definition, reg *BeanRegistration) error {
	for _, inj := range def.injections {
		kind := SegmentField
		if inj.Kind == InjectMethod {
			kind = SegmentMethod
		}

		values, err := c.resolveArguments(rc, def, kind, inj.Name, inj.Arguments)
		if err != nil {
			return err
		}

		if inj.Apply == nil {
			continue
		}

		instance := reg.instance
		if _, err := invoke(def, func() (struct{}, error) { return struct{}{}, inj.Apply(instance, values) }); err != nil {
			return &BeanInstantiationError{Definition: def, Path: rc.Path(), Cause: err}
		}
	}

	return nil
}

// initialize runs initialized listeners, post-construct hooks, Start, created
// listeners and the validation hook. Listeners and validation may substitute the
// instance.
func (c *Container) initialize(rc *ResolutionContext, def *Definition, reg *BeanRegistration) error {
	var ls *listenerSet
	if !rc.loadingListeners {
		ls = c.listeners(rc)
	}

	fail := func(err error) error {
		return &BeanInstantiationError{Definition: def, Path: rc.Path(), Cause: err}
	}

	if ls != nil {
		for _, l := range ls.initialized {
			if !interested(l.InterestType(), def, reg.instance) {
				continue
			}
			next, err := invoke(def, func() (any, error) { return l.OnBeanInitializing(c.event(reg)), nil })
			if err != nil {
				return fail(err)
			}
			if isNil(next) {
				return fail(ErrListenerReturnedNil)
			}
			reg.instance = next
		}
	}

	if err := c.runPostConstruct(def, reg); err != nil {
		return fail(err)
	}

	if lc, ok := reg.instance.(Lifecycle); ok {
		if _, err := invoke(def, func() (struct{}, error) { return struct{}{}, lc.Start(rc.ctx) }); err != nil {
			return fail(err)
		}
	}

	if ls != nil {
		for _, l := range ls.created {
			if !interested(l.InterestType(), def, reg.instance) {
				continue
			}
			next, err := invoke(def, func() (any, error) { return l.OnBeanCreated(c.event(reg)), nil })
			if err != nil {
				return fail(err)
			}
			if isNil(next) {
				return fail(ErrListenerReturnedNil)
			}
			reg.instance = next
		}
	}

	if def.validate != nil {
		instance := reg.instance
		next, err := invoke(def, func() (any, error) { return def.validate(instance) })
		if err != nil {
			return fail(err)
		}
		if !isNil(next) {
			reg.instance = next
		}
	}

	return nil
}

func (c *Container) runPostConstruct(def *Definition, reg *BeanRegistration) error {
	for _, hook := range def.postConstruct {
		instance := reg.instance
		if _, err := invoke(def, func() (struct{}, error) { return struct{}{}, hook(instance) }); err != nil {
			return err
		}
	}
	return nil
}

// resolveArguments resolves args in declaration order, each under its own path
// segment owned by owner.
func (c *Container) resolveArguments(rc *ResolutionContext, owner *Definition, kind SegmentKind, member string, args []Argument) ([]any, error) {
	if len(args) == 0 {
		return nil, nil
	}

	values := make([]any, len(args))
	for i, a := range args {
		name := a.Name
		if member != "" {
			name = member
		}

		rc.Push(Segment{Kind: kind, Definition: owner, Name: name, Index: i, Type: a.Type, Nullable: a.Nullable})
		v, err := c.resolveArgument(rc, owner, a)
		rc.Pop()

		if err != nil {
			return nil, err
		}
		values[i] = v
	}

	return values, nil
}

// resolveArgument resolves one slot. Missing beans fall back to the default value,
// then to nil for nullable slots.
func (c *Container) resolveArgument(rc *ResolutionContext, owner *Definition, a Argument) (any, error) {
	if a.Collection {
		return c.resolveCollection(rc, owner, a)
	}

	q := a.Qualifier
	if q == nil && owner.kind == KindDelegate && owner.target != nil && owner.target.eachOf != nil &&
		owner.target.eachOf.AssignableTo(a.Type) {
		q = rc.CurrentQualifier()
	}

	reg, err := c.resolve(rc, BeanKey{Type: a.Type, Qualifier: q})
	if err == nil {
		if reg == nil {
			return nil, nil
		}
		return reg.instance, nil
	}

	if isDisabled(err) && rc.InEachExpansion() {
		return nil, err
	}

	if isMissing(err) {
		if a.HasDefault {
			return a.Default, nil
		}
		if a.Nullable {
			return nil, nil
		}
	}

	return nil, c.argumentFailed(rc, owner, a.Name, err)
}

func (c *Container) resolveCollection(rc *ResolutionContext, owner *Definition, a Argument) (any, error) {
	if a.Type == nil || a.Type.Kind() != reflect.Slice {
		return nil, c.argumentFailed(rc, owner, a.Name, errors.New("collection argument must be a slice type"))
	}

	regs, err := c.registrationsOfType(rc, a.Type.Elem(), a.Qualifier)
	if err != nil {
		return nil, c.argumentFailed(rc, owner, a.Name, err)
	}

	slice := reflect.MakeSlice(a.Type, 0, len(regs))
	for _, reg := range regs {
		slice = reflect.Append(slice, reflect.ValueOf(reg.instance))
	}

	return slice.Interface(), nil
}

// argumentFailed wraps err as a DependencyInjectionError unless it already is one.
func (c *Container) argumentFailed(rc *ResolutionContext, owner *Definition, name string, err error) error {
	var inject *DependencyInjectionError
	if errors.As(err, &inject) {
		return err
	}
	return &DependencyInjectionError{Definition: owner, Argument: name, Path: rc.Path(), Cause: err}
}

// registrationsOfType returns a registration for every candidate of t accepted by
// q, ordered by explicit order. Disabled beans are skipped.
func (c *Container) registrationsOfType(rc *ResolutionContext, t reflect.Type, q Qualifier) ([]*BeanRegistration, error) {
	defs := c.findCandidates(rc, t, q)
	if q != nil {
		defs = q.Reduce(t, defs)
	}

	defs = append([]*Definition(nil), defs...)
	sort.SliceStable(defs, func(i, j int) bool {
		return defs[i].order < defs[j].order
	})

	regs := make([]*BeanRegistration, 0, len(defs))
	for _, d := range defs {
		reg, err := c.obtain(rc, d, BeanKey{Type: t, Qualifier: q})
		if err != nil {
			if isDisabled(err) {
				continue
			}
			return nil, err
		}
		if reg != nil {
			regs = append(regs, reg)
		}
	}

	return regs, nil
}

// disabledOr re-raises a disabled dependency as def being disabled.
func disabledOr(def *Definition, err error) error {
	if isDisabled(err) {
		return &DisabledBeanError{Definition: def, Cause: err}
	}
	return err
}

// invoke calls fn, turning a panic into a ConstructorPanicError.
func invoke[T any](def *Definition, fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ConstructorPanicError{Definition: def, Panic: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

func isNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// isMissing reports whether err means no bean exists, as opposed to a bean that
// exists but failed.
func isMissing(err error) bool {
	switch err.(type) {
	case *NoSuchBeanError, *DisabledBeanError:
		return true
	default:
		return false
	}
}

func isDisabled(err error) bool {
	_, ok := err.(*DisabledBeanError)
	return ok
}
