package beans

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/junioryono/beans/internal/graph"
)

// ========================================
// Sentinel Errors
// ========================================

var (
	// Container state errors.
	ErrContainerNotRunning     = errors.New("container is not running")
	ErrContainerAlreadyRunning = errors.New("container is already running")
	ErrContainerStopped        = errors.New("container has been stopped")

	// Construction errors.
	ErrNilInstance         = errors.New("bean instance cannot be nil")
	ErrListenerReturnedNil = errors.New("listener returned a nil bean")
	ErrBeanTypeNil         = errors.New("bean type cannot be nil")
	ErrConstructorNil      = errors.New("constructor cannot be nil")
)

var (
	_ error = (*NoSuchBeanError)(nil)
	_ error = (*NonUniqueBeanError)(nil)
	_ error = (*DisabledBeanError)(nil)
	_ error = (*DependencyInjectionError)(nil)
	_ error = (*BeanInstantiationError)(nil)
	_ error = (*BeanDestructionError)(nil)
	_ error = (*ConstructorPanicError)(nil)
	_ error = (*NoSuchScopeError)(nil)
	_ error = (*CircularDependencyError)(nil)
)

// CircularDependencyError is carried inside a DependencyInjectionError when a
// constructor cycle cannot be short-circuited.
type CircularDependencyError = graph.CircularDependencyError

// ========================================
// Typed Errors
// ========================================

// NoSuchBeanError indicates no candidate survived filtering and disambiguation.
type NoSuchBeanError struct {
	Type      reflect.Type
	Qualifier Qualifier
	Cause     error
}

func (e *NoSuchBeanError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("no bean of type %s", formatType(e.Type)))
	if e.Qualifier != nil {
		b.WriteString(fmt.Sprintf(" for qualifier %s", e.Qualifier))
	}
	b.WriteString(" exists")

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	return b.String()
}

func (e *NoSuchBeanError) Unwrap() error {
	return e.Cause
}

// NonUniqueBeanError indicates that more than one candidate survived disambiguation.
type NonUniqueBeanError struct {
	Type       reflect.Type
	Qualifier  Qualifier
	Candidates []*Definition
}

func (e *NonUniqueBeanError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("multiple beans of type %s", formatType(e.Type)))
	if e.Qualifier != nil {
		b.WriteString(fmt.Sprintf(" for qualifier %s", e.Qualifier))
	}
	b.WriteString(fmt.Sprintf(" exist (%d candidates):\n", len(e.Candidates)))

	for _, d := range e.Candidates {
		b.WriteString(fmt.Sprintf("  • %s\n", d))
	}

	b.WriteString("\nTo resolve this:\n")
	b.WriteString("  • Mark one of the candidates as primary\n")
	b.WriteString("  • Give the candidates distinct orders\n")
	b.WriteString("  • Request the bean with a qualifier\n")

	return b.String()
}

// DisabledBeanError indicates a bean refused to be created. Constructors return it
// through Disabled.
type DisabledBeanError struct {
	Definition *Definition
	Reason     string
	Cause      error
}

// Disabled returns an error a constructor can return to disable its bean.
func Disabled(reason string) error {
	return &DisabledBeanError{Reason: reason}
}

func (e *DisabledBeanError) Error() string {
	name := "bean"
	if e.Definition != nil {
		name = e.Definition.String()
	}

	if e.Reason != "" {
		return fmt.Sprintf("%s is disabled: %s", name, e.Reason)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s is disabled: %v", name, e.Cause)
	}
	return fmt.Sprintf("%s is disabled", name)
}

func (e *DisabledBeanError) Unwrap() error {
	return e.Cause
}

// DependencyInjectionError indicates that an argument, field or method parameter of
// a bean could not be resolved.
type DependencyInjectionError struct {
	Definition *Definition
	Argument   string
	Path       Path
	Cause      error
}

func (e *DependencyInjectionError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("failed to inject %q of %s: %v", e.Argument, e.Definition, e.Cause))
	if len(e.Path) > 0 {
		b.WriteString("\n\nPath taken: ")
		b.WriteString(e.Path.String())
	}

	return b.String()
}

func (e *DependencyInjectionError) Unwrap() error {
	return e.Cause
}

// BeanInstantiationError indicates that a constructor, hook or listener failed while
// building a bean.
type BeanInstantiationError struct {
	Definition *Definition
	Path       Path
	Cause      error
}

func (e *BeanInstantiationError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("failed to instantiate %s: %v", e.Definition, e.Cause))
	if len(e.Path) > 0 {
		b.WriteString("\n\nPath taken: ")
		b.WriteString(e.Path.String())
	}

	return b.String()
}

func (e *BeanInstantiationError) Unwrap() error {
	return e.Cause
}

// BeanDestructionError describes a teardown failure. It is logged, never returned
// from a shutdown.
type BeanDestructionError struct {
	Definition *Definition
	Phase      string // "pre-destroy", "dispose", "stop", "close", "destroyed"
	Cause      error
}

func (e *BeanDestructionError) Error() string {
	return fmt.Sprintf("failed to destroy %s during %s: %v", e.Definition, e.Phase, e.Cause)
}

func (e *BeanDestructionError) Unwrap() error {
	return e.Cause
}

// ConstructorPanicError indicates a constructor, hook or listener panicked.
// It captures the panic value and stack trace for debugging.
type ConstructorPanicError struct {
	Definition *Definition
	Panic      any
	Stack      []byte
}

func (e *ConstructorPanicError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s panicked: %v\n", e.Definition, e.Panic))

	b.WriteString("\nTo resolve this:\n")
	b.WriteString("  • Check for nil pointer dereferences in the constructor\n")
	b.WriteString("  • Mark arguments that may be nil as nullable and handle nil\n")

	if len(e.Stack) > 0 {
		b.WriteString("\nStack trace:\n")
		b.Write(e.Stack)
	}

	return b.String()
}

// NoSuchScopeError indicates a definition names a scope that is not registered.
type NoSuchScopeError struct {
	Name string
}

func (e *NoSuchScopeError) Error() string {
	return fmt.Sprintf("no scope named %q is registered", e.Name)
}

// errorKind labels an error for metrics.
func errorKind(err error) string {
	var (
		noSuch    *NoSuchBeanError
		nonUnique *NonUniqueBeanError
		disabled  *DisabledBeanError
		inject    *DependencyInjectionError
		inst      *BeanInstantiationError
	)

	switch {
	case errors.As(err, &nonUnique):
		return "non_unique"
	case errors.As(err, &inject):
		return "dependency_injection"
	case errors.As(err, &inst):
		return "instantiation"
	case errors.As(err, &noSuch):
		return "no_such_bean"
	case errors.As(err, &disabled):
		return "disabled"
	default:
		return "other"
	}
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + elem.Name()
		}
		return t.String()
	case reflect.Slice:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "[]" + elem.Name()
		}
		return t.String()
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}
