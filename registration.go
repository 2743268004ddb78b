package beans

import (
	"fmt"
	"reflect"
	"sync/atomic"

	"github.com/google/uuid"
)

// BeanRegistration is a live bean: its definition, the instance, and the dependent
// beans created while building it.
type BeanRegistration struct {
	id       string
	def      *Definition
	key      BeanKey
	instance any

	// dependents are prototype beans created while building this bean, in creation
	// order. Finalized before the registration is published.
	dependents []*BeanRegistration

	// target is the proxied registration of a proxy bean.
	target *BeanRegistration

	// scope owns the registration. Nil for prototype beans.
	scope Scope

	destroyed atomic.Bool
}

func newRegistration(def *Definition, key BeanKey, instance any) *BeanRegistration {
	return &BeanRegistration{
		id:       uuid.NewString(),
		def:      def,
		key:      key,
		instance: instance,
	}
}

// ID returns the unique identifier of the registration.
func (r *BeanRegistration) ID() string { return r.id }

// Definition returns the definition the bean was built from.
func (r *BeanRegistration) Definition() *Definition { return r.def }

// Key returns the key the bean was first requested with.
func (r *BeanRegistration) Key() BeanKey { return r.key }

// Instance returns the bean.
func (r *BeanRegistration) Instance() any { return r.instance }

// Dependents returns the beans created while building this one, in creation order.
func (r *BeanRegistration) Dependents() []*BeanRegistration {
	return append([]*BeanRegistration(nil), r.dependents...)
}

// Destroyed reports whether the bean has been torn down.
func (r *BeanRegistration) Destroyed() bool { return r.destroyed.Load() }

// BeanType returns the definition's bean type.
func (r *BeanRegistration) BeanType() reflect.Type { return r.def.BeanType() }

// RequiredComponents returns the types the bean depends on.
func (r *BeanRegistration) RequiredComponents() []reflect.Type {
	return r.def.RequiredComponents()
}

func (r *BeanRegistration) String() string {
	return fmt.Sprintf("%s[%s]", r.def, r.id)
}
