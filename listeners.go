package beans

import (
	"reflect"

	"go.uber.org/zap"
)

// BeanEvent describes a bean at a lifecycle transition.
type BeanEvent struct {
	Container    *Container
	Registration *BeanRegistration
	Instance     any
}

// Definition returns the definition of the bean.
func (e BeanEvent) Definition() *Definition {
	return e.Registration.Definition()
}

// BeanInitializedListener is notified after injection and before post-construct
// hooks. The returned value replaces the bean and must not be nil.
type BeanInitializedListener interface {
	// InterestType limits notifications to beans assignable to it. Nil means all.
	InterestType() reflect.Type
	OnBeanInitializing(event BeanEvent) any
}

// BeanCreatedListener is notified once a bean is fully initialized. The returned
// value replaces the bean and must not be nil.
type BeanCreatedListener interface {
	InterestType() reflect.Type
	OnBeanCreated(event BeanEvent) any
}

// BeanPreDestroyListener is notified before a bean is torn down. A non-nil returned
// value replaces the bean passed to the remaining destruction steps.
type BeanPreDestroyListener interface {
	InterestType() reflect.Type
	OnBeanPreDestroy(event BeanEvent) any
}

// BeanDestroyedListener is notified after a bean has been torn down.
type BeanDestroyedListener interface {
	InterestType() reflect.Type
	OnBeanDestroyed(event BeanEvent)
}

// listenerSet holds the listener beans loaded for a registry generation.
type listenerSet struct {
	gen uint64

	initialized []BeanInitializedListener
	created     []BeanCreatedListener
	preDestroy  []BeanPreDestroyListener
	destroyed   []BeanDestroyedListener
}

// listeners returns the listener beans, loading them on first use and again after
// the registry changes. Beans built while listeners load are not announced.
//
// Only one goroutine loads at a time. Others get the last published set, possibly
// nil, and never wait on the load.
func (c *Container) listeners(rc *ResolutionContext) *listenerSet {
	gen := c.candidates.Generation()
	current := c.listenerSet.Load()
	if current != nil && current.gen == gen {
		return current
	}
	if rc.loadingListeners {
		return nil
	}

	if !c.listenerMu.TryLock() {
		return current
	}
	defer c.listenerMu.Unlock()

	if ls := c.listenerSet.Load(); ls != nil && ls.gen == gen {
		return ls
	}

	rc.loadingListeners = true
	defer func() { rc.loadingListeners = false }()

	ls := &listenerSet{
		gen:         gen,
		initialized: loadListeners[BeanInitializedListener](c, rc),
		created:     loadListeners[BeanCreatedListener](c, rc),
		preDestroy:  loadListeners[BeanPreDestroyListener](c, rc),
		destroyed:   loadListeners[BeanDestroyedListener](c, rc),
	}
	c.listenerSet.Store(ls)

	c.logger.Debug("loaded bean listeners",
		zap.Int("initialized", len(ls.initialized)),
		zap.Int("created", len(ls.created)),
		zap.Int("pre_destroy", len(ls.preDestroy)),
		zap.Int("destroyed", len(ls.destroyed)),
	)

	return ls
}

// loadListeners builds every bean of listener type L in order. Failures are logged
// and the listener skipped.
func loadListeners[L any](c *Container, rc *ResolutionContext) []L {
	t := reflect.TypeFor[L]()

	regs, err := c.registrationsOfType(rc, t, nil)
	if err != nil {
		c.logger.Error("failed to load bean listeners", zap.String("type", formatType(t)), zap.Error(err))
		return nil
	}

	out := make([]L, 0, len(regs))
	for _, reg := range regs {
		if l, ok := reg.instance.(L); ok {
			out = append(out, l)
		}
	}
	return out
}

// interested reports whether a listener with interest type want should see a bean
// of def holding instance.
func interested(want reflect.Type, def *Definition, instance any) bool {
	if want == nil {
		return true
	}
	if def.beanType != nil && def.beanType.AssignableTo(want) {
		return true
	}
	return instance != nil && reflect.TypeOf(instance).AssignableTo(want)
}

func isListenerInstance(instance any) bool {
	switch instance.(type) {
	case BeanInitializedListener, BeanCreatedListener, BeanPreDestroyListener, BeanDestroyedListener:
		return true
	default:
		return false
	}
}

func (c *Container) event(reg *BeanRegistration) BeanEvent {
	return BeanEvent{Container: c, Registration: reg, Instance: reg.instance}
}
