package beans

import (
	"context"

	"go.uber.org/zap"

	"github.com/junioryono/beans/internal/graph"
)

// destroyOrdered destroys regs so that every bean goes before the beans it
// requires. Cycles are broken in registration order.
func (c *Container) destroyOrdered(ctx context.Context, regs []*BeanRegistration, ls *listenerSet) {
	order, forced := graph.DestroyOrder(regs)
	for _, reg := range forced {
		c.logger.Warn("dependency cycle while ordering bean destruction", zap.Stringer("bean", reg.def))
	}

	for _, reg := range order {
		c.destroyRegistration(ctx, reg, ls)
	}
}

// destroyRegistration tears down reg exactly once. Failures of a step are logged
// and the remaining steps still run.
func (c *Container) destroyRegistration(ctx context.Context, reg *BeanRegistration, ls *listenerSet) {
	if reg == nil || !reg.destroyed.CompareAndSwap(false, true) {
		return
	}

	def := reg.def
	if def.kind == KindProxy && reg.target != nil {
		c.destroyProxy(ctx, reg, ls)
		return
	}

	instance := reg.instance
	fail := func(phase string, err error) {
		c.destructionFailed(&BeanDestructionError{Definition: def, Phase: phase, Cause: err})
	}

	if ls != nil {
		for _, l := range ls.preDestroy {
			if !interested(l.InterestType(), def, instance) {
				continue
			}
			ev := BeanEvent{Container: c, Registration: reg, Instance: instance}
			next, err := invoke(def, func() (any, error) { return l.OnBeanPreDestroy(ev), nil })
			if err != nil {
				fail("pre-destroy", err)
				continue
			}
			if isNil(next) {
				fail("pre-destroy", ErrListenerReturnedNil)
				continue
			}
			instance = next
		}
	}

	for _, hook := range def.preDestroy {
		if _, err := invoke(def, func() (struct{}, error) { return struct{}{}, hook(instance) }); err != nil {
			fail("dispose", err)
		}
	}

	if lc, ok := instance.(Lifecycle); ok {
		if _, err := invoke(def, func() (struct{}, error) { return struct{}{}, lc.Stop(ctx) }); err != nil {
			fail("stop", err)
		}
	}

	switch d := instance.(type) {
	case DisposableWithContext:
		if _, err := invoke(def, func() (struct{}, error) { return struct{}{}, d.Close(ctx) }); err != nil {
			fail("close", err)
		}
	case Disposable:
		if _, err := invoke(def, func() (struct{}, error) { return struct{}{}, d.Close() }); err != nil {
			fail("close", err)
		}
	}

	c.destroyDependents(ctx, reg, ls)
	c.release(reg)

	if ls != nil {
		ev := BeanEvent{Container: c, Registration: reg, Instance: instance}
		for _, l := range ls.destroyed {
			if !interested(l.InterestType(), def, instance) {
				continue
			}
			if _, err := invoke(def, func() (struct{}, error) { l.OnBeanDestroyed(ev); return struct{}{}, nil }); err != nil {
				fail("destroyed", err)
			}
		}
	}

	c.metrics.BeanDestroyed(def.scope)
	c.logger.Debug("bean destroyed", zap.Stringer("bean", def), zap.String("scope", def.scope))
}

// destroyProxy tears down the proxied bean, unless its scope still holds it, then
// the proxy's own dependents.
func (c *Container) destroyProxy(ctx context.Context, reg *BeanRegistration, ls *listenerSet) {
	target := reg.target
	if !stillCached(target) {
		c.destroyRegistration(ctx, target, ls)
	}

	c.destroyDependents(ctx, reg, ls)
	c.release(reg)

	c.metrics.BeanDestroyed(reg.def.scope)
	c.logger.Debug("proxy destroyed", zap.Stringer("bean", reg.def))
}

func (c *Container) destroyDependents(ctx context.Context, reg *BeanRegistration, ls *listenerSet) {
	for i := len(reg.dependents) - 1; i >= 0; i-- {
		c.destroyRegistration(ctx, reg.dependents[i], ls)
	}
}

// release frees reg's scope slot if reg still owns it.
func (c *Container) release(reg *BeanRegistration) {
	if reg.scope == nil {
		return
	}
	if reg.scope.Release(scopeKeyOf(reg.def), reg) && reg.def.IsSingleton() {
		c.invalidateInstances()
	}
}

// stillCached reports whether reg is the live entry of its scope.
func stillCached(reg *BeanRegistration) bool {
	if reg.scope == nil || reg.destroyed.Load() {
		return false
	}
	live, ok := reg.scope.Get(scopeKeyOf(reg.def))
	return ok && live == reg
}

func (c *Container) destructionFailed(err *BeanDestructionError) {
	c.metrics.DestructionFailed(err.Definition.scope)
	c.logger.Error("bean destruction failed",
		zap.Stringer("bean", err.Definition),
		zap.String("phase", err.Phase),
		zap.Error(err),
	)
}
