package beans

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors(t *testing.T) {
	sentinelErrors := []struct {
		err     error
		message string
	}{
		{ErrContainerNotRunning, "container is not running"},
		{ErrContainerAlreadyRunning, "container is already running"},
		{ErrContainerStopped, "container has been stopped"},
		{ErrNilInstance, "bean instance cannot be nil"},
		{ErrListenerReturnedNil, "listener returned a nil bean"},
		{ErrBeanTypeNil, "bean type cannot be nil"},
		{ErrConstructorNil, "constructor cannot be nil"},
	}

	for _, tt := range sentinelErrors {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.message, tt.err.Error())
		})
	}
}

func TestNoSuchBeanError(t *testing.T) {
	engineType := reflect.TypeFor[*resolutionEngine]()

	err := &NoSuchBeanError{Type: engineType}
	assert.Equal(t, "no bean of type *resolutionEngine exists", err.Error())

	err = &NoSuchBeanError{Type: engineType, Qualifier: Named("x"), Cause: errTestCause}
	assert.Equal(t, "no bean of type *resolutionEngine for qualifier @Named(x) exists: cause", err.Error())
	assert.ErrorIs(t, err, errTestCause)
}

var errTestCause = errors.New("cause")

func TestNonUniqueBeanError(t *testing.T) {
	a := testDefinition[*resolutionEngine](WithName("a"))
	b := testDefinition[*resolutionEngine](WithName("b"))

	err := &NonUniqueBeanError{Type: a.BeanType(), Candidates: []*Definition{a, b}}
	msg := err.Error()

	assert.Contains(t, msg, "multiple beans of type *resolutionEngine exist (2 candidates)")
	assert.Contains(t, msg, "*resolutionEngine(a)")
	assert.Contains(t, msg, "*resolutionEngine(b)")
	assert.Contains(t, msg, "Mark one of the candidates as primary")
}

func TestDisabledBeanError(t *testing.T) {
	d := testDefinition[*resolutionEngine]()

	assert.Equal(t, "bean is disabled: off", Disabled("off").Error())
	assert.Equal(t, "*resolutionEngine is disabled", (&DisabledBeanError{Definition: d}).Error())

	wrapped := &DisabledBeanError{Definition: d, Cause: Disabled("upstream")}
	assert.Equal(t, "*resolutionEngine is disabled: bean is disabled: upstream", wrapped.Error())

	var inner *DisabledBeanError
	require.ErrorAs(t, wrapped.Unwrap(), &inner)
	assert.Equal(t, "upstream", inner.Reason)
}

func TestDependencyInjectionError(t *testing.T) {
	car := testDefinition[*resolutionCar]()
	engineType := reflect.TypeFor[*resolutionEngine]()

	err := &DependencyInjectionError{
		Definition: car,
		Argument:   "engine",
		Path: Path{
			{Kind: SegmentRoot, Definition: car},
			{Kind: SegmentConstructor, Definition: car, Name: "engine", Type: engineType},
		},
		Cause: &NoSuchBeanError{Type: engineType},
	}

	msg := err.Error()
	assert.Contains(t, msg, `failed to inject "engine" of *resolutionCar`)
	assert.Contains(t, msg, "Path taken: *resolutionCar --> *resolutionCar(engine *resolutionEngine)")

	var noSuch *NoSuchBeanError
	assert.ErrorAs(t, err, &noSuch)
}

func TestBeanInstantiationError(t *testing.T) {
	d := testDefinition[*resolutionEngine]()

	err := &BeanInstantiationError{Definition: d, Cause: errTestCause}
	assert.Equal(t, "failed to instantiate *resolutionEngine: cause", err.Error())
	assert.ErrorIs(t, err, errTestCause)
}

func TestBeanDestructionError(t *testing.T) {
	d := testDefinition[*resolutionEngine]()

	err := &BeanDestructionError{Definition: d, Phase: "close", Cause: errTestCause}
	assert.Equal(t, "failed to destroy *resolutionEngine during close: cause", err.Error())
	assert.ErrorIs(t, err, errTestCause)
}

func TestConstructorPanicError(t *testing.T) {
	d := testDefinition[*resolutionEngine]()

	_, err := invoke(d, func() (any, error) { panic("boom") })

	var panicErr *ConstructorPanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "boom", panicErr.Panic)
	assert.NotEmpty(t, panicErr.Stack)
	assert.Contains(t, err.Error(), "*resolutionEngine panicked: boom")
	assert.Contains(t, err.Error(), "Stack trace:")
}

func TestErrorKind(t *testing.T) {
	engineType := reflect.TypeFor[*resolutionEngine]()

	tests := []struct {
		err  error
		want string
	}{
		{&NoSuchBeanError{Type: engineType}, "no_such_bean"},
		{&NonUniqueBeanError{Type: engineType}, "non_unique"},
		{Disabled("off"), "disabled"},
		{&DependencyInjectionError{Cause: &NoSuchBeanError{Type: engineType}}, "dependency_injection"},
		{&BeanInstantiationError{Cause: errTestCause}, "instantiation"},
		{ErrContainerStopped, "other"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, errorKind(tt.err))
		})
	}
}

func TestFormatType(t *testing.T) {
	tests := []struct {
		typ  reflect.Type
		want string
	}{
		{nil, "<nil>"},
		{reflect.TypeFor[*resolutionEngine](), "*resolutionEngine"},
		{reflect.TypeFor[[]resolutionChauffeur](), "[]resolutionChauffeur"},
		{reflect.TypeFor[resolutionDriver](), "resolutionDriver"},
		{reflect.TypeFor[*int](), "*int"},
		{reflect.TypeFor[map[string]int](), "map[string]int"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatType(tt.typ))
		})
	}
}
