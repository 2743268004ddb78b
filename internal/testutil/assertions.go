package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/beans"
)

// AssertResolvable checks that a bean of type T can be resolved.
func AssertResolvable[T any](t *testing.T, c *beans.Container, qualifiers ...beans.Qualifier) T {
	t.Helper()
	v, err := beans.Get[T](context.Background(), c, qualifiers...)
	require.NoError(t, err, "failed to resolve bean of type %T", *new(T))
	require.NotNil(t, v, "resolved bean is nil")
	return v
}

// AssertNoSuchBean checks that err is a NoSuchBeanError.
func AssertNoSuchBean(t *testing.T, err error) *beans.NoSuchBeanError {
	t.Helper()
	var target *beans.NoSuchBeanError
	require.Error(t, err)
	require.True(t, errors.As(err, &target), "expected NoSuchBeanError, got: %v", err)
	return target
}

// AssertNonUnique checks that err is a NonUniqueBeanError with n candidates.
func AssertNonUnique(t *testing.T, err error, n int) *beans.NonUniqueBeanError {
	t.Helper()
	var target *beans.NonUniqueBeanError
	require.Error(t, err)
	require.True(t, errors.As(err, &target), "expected NonUniqueBeanError, got: %v", err)
	assert.Len(t, target.Candidates, n)
	return target
}

// AssertCircular checks that err is a DependencyInjectionError carrying a
// CircularDependencyError.
func AssertCircular(t *testing.T, err error) *beans.CircularDependencyError {
	t.Helper()
	var inject *beans.DependencyInjectionError
	var circular *beans.CircularDependencyError
	require.Error(t, err)
	require.True(t, errors.As(err, &inject), "expected DependencyInjectionError, got: %v", err)
	require.True(t, errors.As(err, &circular), "expected CircularDependencyError, got: %v", err)
	return circular
}
