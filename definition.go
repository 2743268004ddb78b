package beans

import (
	"fmt"
	"reflect"
	"sort"
	"sync/atomic"

	"github.com/google/uuid"
)

// Scope names understood by every container.
const (
	ScopeSingleton = "singleton"
	ScopePrototype = "prototype"
)

// Kind tags the shape of a definition. Resolution branches on it instead of probing
// for optional behavior.
type Kind uint8

const (
	// KindPlain is an ordinary definition.
	KindPlain Kind = iota

	// KindProxy wraps another definition. Its constructor receives the target
	// instance as the first argument.
	KindProxy

	// KindDelegate is a definition presented under an extra name qualifier, such as
	// one expansion of an each-style definition.
	KindDelegate

	// KindContainer produces a container type (a slice or map of beans). It only
	// matches requests for its exact type.
	KindContainer
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindProxy:
		return "proxy"
	case KindDelegate:
		return "delegate"
	case KindContainer:
		return "container"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Constructor builds a bean from its resolved constructor arguments, supplied in
// declaration order. Nullable arguments that could not be resolved are nil.
type Constructor func(args []any) (any, error)

// Argument describes one injection slot.
type Argument struct {
	// Name is used in diagnostics.
	Name string

	// Type is the requested bean type. For collection arguments it is a slice type.
	Type reflect.Type

	// Qualifier narrows the candidates. Nil means unqualified.
	Qualifier Qualifier

	// Nullable arguments receive nil when no bean exists or when resolving them
	// would close a constructor cycle.
	Nullable bool

	// Default is used when no bean exists and HasDefault is set.
	Default    any
	HasDefault bool

	// Collection injects every bean of Type's element type as a slice of Type.
	Collection bool
}

// Arg builds an Argument for type T.
func Arg[T any](name string) Argument {
	return Argument{Name: name, Type: reflect.TypeFor[T]()}
}

// AsNullable returns a copy of a that may resolve to nil.
func (a Argument) AsNullable() Argument {
	a.Nullable = true
	return a
}

// WithDefault returns a copy of a that falls back to v when no bean exists.
func (a Argument) WithDefault(v any) Argument {
	a.Default = v
	a.HasDefault = true
	return a
}

// Qualified returns a copy of a narrowed by q.
func (a Argument) Qualified(q Qualifier) Argument {
	a.Qualifier = q
	return a
}

// elemType is the bean type the argument actually looks up.
func (a Argument) elemType() reflect.Type {
	if a.Collection && a.Type != nil && a.Type.Kind() == reflect.Slice {
		return a.Type.Elem()
	}
	return a.Type
}

// InjectionKind distinguishes field from method injection points.
type InjectionKind uint8

const (
	InjectField InjectionKind = iota
	InjectMethod
)

// Injection is a field or method injection point, run after construction in
// declaration order.
type Injection struct {
	Kind      InjectionKind
	Name      string
	Arguments []Argument
	Apply     func(instance any, args []any) error
}

// Field returns a field injection point setting a single value.
func Field(name string, arg Argument, set func(instance, value any)) Injection {
	if arg.Name == "" {
		arg.Name = name
	}
	return Injection{
		Kind:      InjectField,
		Name:      name,
		Arguments: []Argument{arg},
		Apply: func(instance any, args []any) error {
			set(instance, args[0])
			return nil
		},
	}
}

// Method returns a method injection point.
func Method(name string, fn func(instance any, args []any) error, args ...Argument) Injection {
	return Injection{
		Kind:      InjectMethod,
		Name:      name,
		Arguments: args,
		Apply:     fn,
	}
}

// Replaces declares that a definition suppresses another candidate. The target is
// matched by Qualifier, by Named, by Factory (declaring type), or otherwise by type.
type Replaces struct {
	Type      reflect.Type
	Named     string
	Qualifier Qualifier
	Factory   reflect.Type
}

// Metadata is derived data computed on first use.
type Metadata struct {
	Label              string
	RequiredComponents []reflect.Type
	Annotations        map[string]string
	InterceptorBinding []string
}

// Definition is an immutable descriptor of a constructible bean.
//
// Definitions are built once with NewDefinition and never mutated afterwards. The
// only lazily filled field is the memoized Metadata, which is idempotent if computed
// concurrently.
type Definition struct {
	id            string
	beanType      reflect.Type
	declaringType reflect.Type
	kind          Kind

	name      string
	qualifier Qualifier
	scope     string

	abstract       bool
	primary        bool
	secondary      bool
	provided       bool
	infrastructure bool
	needsProxy     bool
	eager          bool
	parallel       bool

	order    int
	hasOrder bool

	eachOf reflect.Type

	constructor Constructor
	arguments   []Argument
	injections  []Injection
	requires    []reflect.Type
	replaces    *Replaces
	enabled     func(c *Container, rc *ResolutionContext) bool

	postConstruct []func(instance any) error
	preDestroy    []func(instance any) error
	validate      func(instance any) (any, error)

	annotations   map[string]string
	bindings      []string
	typeArguments []reflect.Type

	// target is the proxied definition for KindProxy and the base definition for
	// KindDelegate.
	target *Definition
	// source is the bean an each-style delegate was expanded from.
	source *Definition

	metadata atomic.Pointer[Metadata]
}

// DefinitionOption configures a Definition.
type DefinitionOption interface {
	applyDefinition(*Definition)
}

type definitionOptionFunc func(*Definition)

func (f definitionOptionFunc) applyDefinition(d *Definition) {
	f(d)
}

// NewDefinition creates a definition of beanType built by ctor.
func NewDefinition(beanType reflect.Type, ctor Constructor, opts ...DefinitionOption) *Definition {
	d := &Definition{
		id:          uuid.NewString(),
		beanType:    beanType,
		scope:       ScopeSingleton,
		constructor: ctor,
	}

	for _, opt := range opts {
		if opt != nil {
			opt.applyDefinition(d)
		}
	}

	return d
}

// Define creates a definition of T.
func Define[T any](ctor func(args []any) (T, error), opts ...DefinitionOption) *Definition {
	return NewDefinition(reflect.TypeFor[T](), func(args []any) (any, error) {
		return ctor(args)
	}, opts...)
}

// WithArguments declares the constructor arguments.
func WithArguments(args ...Argument) DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.arguments = append(d.arguments, args...)
	})
}

// WithInjections declares field and method injection points.
func WithInjections(injections ...Injection) DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.injections = append(d.injections, injections...)
	})
}

// WithName gives the definition a name matched by the Named qualifier.
func WithName(name string) DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.name = name
	})
}

// WithQualifier attaches a declared qualifier to the definition.
func WithQualifier(q Qualifier) DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.qualifier = q
	})
}

// WithScope sets the scope name.
func WithScope(scope string) DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.scope = scope
	})
}

// Prototype makes the definition uncached: every resolution builds a new instance.
func Prototype() DefinitionOption {
	return WithScope(ScopePrototype)
}

// Primary marks the definition as preferred among candidates of the same type.
func Primary() DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.primary = true
	})
}

// Secondary marks the definition as a fallback among candidates of the same type.
func Secondary() DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.secondary = true
	})
}

// Abstract excludes the definition from candidate selection.
func Abstract() DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.abstract = true
	})
}

// WithOrder sets the explicit order. Lower values win disambiguation.
func WithOrder(order int) DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.order = order
		d.hasOrder = true
	})
}

// EachOf makes the definition each-style: one bean is created per bean of t, named
// after it.
func EachOf(t reflect.Type) DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.eachOf = t
	})
}

// ContainerType marks the definition as producing a container type.
func ContainerType() DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.kind = KindContainer
	})
}

// ProxyOf makes the definition a proxy of target.
func ProxyOf(target *Definition) DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.kind = KindProxy
		d.target = target
	})
}

// NeedsProxy records that instances are expected to be accessed through a proxy.
func NeedsProxy() DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.needsProxy = true
	})
}

// Infrastructure protects the definition from being replaced.
func Infrastructure() DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.infrastructure = true
	})
}

// Eager creates the bean when the container starts.
func Eager() DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.eager = true
	})
}

// Parallel creates the bean on the startup worker pool without blocking Start.
func Parallel() DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.parallel = true
	})
}

// DeclaredBy records the factory type declaring the definition.
func DeclaredBy(t reflect.Type) DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.declaringType = t
	})
}

// Requires declares additional required component types used for destroy ordering
// and validation.
func Requires(types ...reflect.Type) DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.requires = append(d.requires, types...)
	})
}

// WithReplaces makes the definition replace the candidates matched by r.
func WithReplaces(r Replaces) DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.replaces = &r
	})
}

// Enabled sets the enablement predicate. It is evaluated with the resolution in
// progress and should be deterministic for a given container.
func Enabled(fn func(c *Container, rc *ResolutionContext) bool) DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.enabled = fn
	})
}

// PostConstruct adds a hook run after injection, in declaration order.
func PostConstruct(fn func(instance any) error) DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.postConstruct = append(d.postConstruct, fn)
	})
}

// PreDestroy adds a dispose hook run during teardown, in declaration order.
func PreDestroy(fn func(instance any) error) DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.preDestroy = append(d.preDestroy, fn)
	})
}

// Validate sets the validation hook. It runs last and may substitute the instance.
func Validate(fn func(instance any) (any, error)) DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.validate = fn
	})
}

// WithAnnotation attaches an annotation value matched by the Annotated qualifier.
func WithAnnotation(key, value string) DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		if d.annotations == nil {
			d.annotations = make(map[string]string)
		}
		d.annotations[key] = value
	})
}

// WithInterceptorBindings attaches interceptor bindings.
func WithInterceptorBindings(bindings ...string) DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.bindings = append(d.bindings, bindings...)
	})
}

// WithTypeArguments records the generic type arguments the bean was declared with.
func WithTypeArguments(types ...reflect.Type) DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.typeArguments = append(d.typeArguments, types...)
	})
}

func provided() DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.provided = true
	})
}

// newDelegate presents base under name. Delegate identity is derived from the base
// so the same expansion always maps to the same scope slot.
func newDelegate(base, source *Definition, name string) *Definition {
	d := &Definition{
		id:             base.id + "@" + name,
		beanType:       base.beanType,
		declaringType:  base.declaringType,
		kind:           KindDelegate,
		name:           name,
		qualifier:      Named(name),
		scope:          base.scope,
		primary:        base.primary || (source != nil && source.primary),
		secondary:      base.secondary,
		infrastructure: base.infrastructure,
		eager:          base.eager,
		parallel:       base.parallel,
		order:          base.order,
		hasOrder:       base.hasOrder,
		constructor:    base.constructor,
		arguments:      base.arguments,
		injections:     base.injections,
		requires:       base.requires,
		replaces:       base.replaces,
		postConstruct:  base.postConstruct,
		preDestroy:     base.preDestroy,
		validate:       base.validate,
		annotations:    base.annotations,
		bindings:       base.bindings,
		typeArguments:  base.typeArguments,
		target:         base,
		source:         source,
	}
	return d
}

// ID returns the definition's identifier.
func (d *Definition) ID() string { return d.id }

// BeanType returns the type of bean the definition produces.
func (d *Definition) BeanType() reflect.Type { return d.beanType }

// DeclaringType returns the factory type declaring the definition, if any.
func (d *Definition) DeclaringType() reflect.Type { return d.declaringType }

func (d *Definition) Kind() Kind           { return d.kind }
func (d *Definition) Name() string         { return d.name }
func (d *Definition) Qualifier() Qualifier { return d.qualifier }
func (d *Definition) Scope() string        { return d.scope }
func (d *Definition) IsAbstract() bool     { return d.abstract }
func (d *Definition) IsPrimary() bool      { return d.primary }
func (d *Definition) IsSecondary() bool    { return d.secondary }
func (d *Definition) IsProvided() bool     { return d.provided }
func (d *Definition) NeedsProxy() bool     { return d.needsProxy }
func (d *Definition) IsSingleton() bool    { return d.scope == ScopeSingleton }
func (d *Definition) IsEager() bool        { return d.eager }
func (d *Definition) IsParallel() bool     { return d.parallel }

// IsInfrastructure reports whether the definition is protected from replacement.
func (d *Definition) IsInfrastructure() bool { return d.infrastructure }

// Order returns the explicit order and whether one was declared.
func (d *Definition) Order() (int, bool) { return d.order, d.hasOrder }

// EachOf returns the type an each-style definition iterates, or nil.
func (d *Definition) EachOf() reflect.Type { return d.eachOf }

// Target returns the proxied definition of a proxy or the base of a delegate.
func (d *Definition) Target() *Definition { return d.target }

// Arguments returns the constructor arguments.
func (d *Definition) Arguments() []Argument { return d.arguments }

// Injections returns the field and method injection points.
func (d *Definition) Injections() []Injection { return d.injections }

// Replaces returns the replacement rule, or nil.
func (d *Definition) Replaces() *Replaces { return d.replaces }

// Annotation returns the value of an annotation.
func (d *Definition) Annotation(key string) (string, bool) {
	v, ok := d.annotations[key]
	return v, ok
}

// InterceptorBindings returns the interceptor bindings.
func (d *Definition) InterceptorBindings() []string { return d.bindings }

// TypeArguments returns the declared generic type arguments.
func (d *Definition) TypeArguments() []reflect.Type { return d.typeArguments }

// IsEnabled evaluates the enablement predicate.
func (d *Definition) IsEnabled(c *Container, rc *ResolutionContext) bool {
	if d.target != nil && d.kind == KindDelegate && !d.target.IsEnabled(c, rc) {
		return false
	}
	return d.enabled == nil || d.enabled(c, rc)
}

// isProxyOf reports whether d proxies other.
func (d *Definition) isProxyOf(other *Definition) bool {
	return d.kind == KindProxy && d.target == other
}

// base returns the definition a delegate was derived from, or d itself.
func (d *Definition) base() *Definition {
	if d.kind == KindDelegate && d.target != nil {
		return d.target
	}
	return d
}

// Metadata returns derived data, computing it on first use. Concurrent first calls
// may each compute it; the first to publish wins and all computations are equal.
func (d *Definition) Metadata() *Metadata {
	if m := d.metadata.Load(); m != nil {
		return m
	}

	m := d.computeMetadata()
	if d.metadata.CompareAndSwap(nil, m) {
		return m
	}
	return d.metadata.Load()
}

// RequiredComponents returns every bean type the definition depends on.
func (d *Definition) RequiredComponents() []reflect.Type {
	return d.Metadata().RequiredComponents
}

func (d *Definition) computeMetadata() *Metadata {
	seen := make(map[reflect.Type]struct{})
	var required []reflect.Type
	add := func(t reflect.Type) {
		if t == nil {
			return
		}
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		required = append(required, t)
	}

	if d.kind == KindProxy && d.target != nil {
		add(d.target.beanType)
	}
	for _, a := range d.arguments {
		add(a.elemType())
	}
	for _, inj := range d.injections {
		for _, a := range inj.Arguments {
			add(a.elemType())
		}
	}
	for _, t := range d.requires {
		add(t)
	}

	annotations := make(map[string]string, len(d.annotations))
	for k, v := range d.annotations {
		annotations[k] = v
	}

	bindings := append([]string(nil), d.bindings...)
	sort.Strings(bindings)

	return &Metadata{
		Label:              d.label(),
		RequiredComponents: required,
		Annotations:        annotations,
		InterceptorBinding: bindings,
	}
}

func (d *Definition) label() string {
	label := formatType(d.beanType)
	if d.name != "" {
		label += fmt.Sprintf("(%s)", d.name)
	}
	if d.kind == KindProxy {
		label = "proxy " + label
	}
	return label
}

func (d *Definition) String() string {
	if d == nil {
		return "<nil definition>"
	}
	return d.Metadata().Label
}
