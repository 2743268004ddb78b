package beans

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// Reference is a possibly not yet loaded definition. Loading may be expensive and
// must be idempotent.
type Reference interface {
	// BeanType returns the type of bean the referenced definition produces.
	BeanType() reflect.Type

	// IsCandidateBean is a cheap pre-filter consulted before loading.
	IsCandidateBean(requested reflect.Type) bool

	// IsEnabled evaluates the referenced definition's enablement predicate.
	IsEnabled(c *Container, rc *ResolutionContext) bool

	// Load returns the definition.
	Load(c *Container) (*Definition, error)
}

var (
	_ Reference = (*Definition)(nil)
	_ Reference = (*LazyReference)(nil)
)

// IsCandidateBean reports whether the definition can satisfy a request for
// requested. Container-kind definitions only satisfy their exact type.
func (d *Definition) IsCandidateBean(requested reflect.Type) bool {
	if d.beanType == nil || requested == nil {
		return false
	}
	if d.kind == KindContainer {
		return d.beanType == requested
	}
	return d.beanType == requested || d.beanType.AssignableTo(requested)
}

// Load returns the definition itself. A Definition is its own eager reference.
func (d *Definition) Load(*Container) (*Definition, error) {
	return d, nil
}

// LazyReference defers building a definition until a request could use it.
type LazyReference struct {
	beanType  reflect.Type
	container bool
	load      func() (*Definition, error)

	once   sync.Once
	def    *Definition
	err    error
	loaded atomic.Bool
}

// NewLazyReference creates a reference to a definition of beanType produced by load.
func NewLazyReference(beanType reflect.Type, load func() (*Definition, error)) *LazyReference {
	return &LazyReference{beanType: beanType, load: load}
}

// NewLazyContainerReference creates a reference to a container-kind definition.
func NewLazyContainerReference(beanType reflect.Type, load func() (*Definition, error)) *LazyReference {
	return &LazyReference{beanType: beanType, container: true, load: load}
}

func (r *LazyReference) BeanType() reflect.Type {
	return r.beanType
}

func (r *LazyReference) IsCandidateBean(requested reflect.Type) bool {
	if r.beanType == nil || requested == nil {
		return false
	}
	if r.container {
		return r.beanType == requested
	}
	return r.beanType == requested || r.beanType.AssignableTo(requested)
}

func (r *LazyReference) IsEnabled(c *Container, rc *ResolutionContext) bool {
	d, err := r.Load(c)
	if err != nil {
		return false
	}
	return d.IsEnabled(c, rc)
}

func (r *LazyReference) Load(*Container) (*Definition, error) {
	r.once.Do(func() {
		r.def, r.err = r.load()
		if r.err == nil && r.def == nil {
			r.err = ErrConstructorNil
		}
		r.loaded.Store(true)
	})
	return r.def, r.err
}

// Loaded reports whether the definition has been built.
func (r *LazyReference) Loaded() bool {
	return r.loaded.Load()
}
