package beans

import (
	"reflect"
)

// BeanKey identifies a request: a bean type and an optional qualifier.
// Generic instantiations are distinct reflect.Types, so the type carries its type
// arguments.
type BeanKey struct {
	Type      reflect.Type
	Qualifier Qualifier
}

// KeyOf returns the key for T.
func KeyOf[T any](q Qualifier) BeanKey {
	return BeanKey{Type: reflect.TypeFor[T](), Qualifier: q}
}

// Equal reports whether two keys have the same type and qualifier.
func (k BeanKey) Equal(other BeanKey) bool {
	return k.mapKey() == other.mapKey()
}

func (k BeanKey) String() string {
	if k.Qualifier == nil {
		return formatType(k.Type)
	}
	return formatType(k.Type) + " " + k.Qualifier.String()
}

// mapKey is the comparable form of a BeanKey.
type mapKey struct {
	t reflect.Type
	q string
}

func (k BeanKey) mapKey() mapKey {
	return mapKey{t: k.Type, q: qualifierString(k.Qualifier)}
}

// ScopeKey identifies a cached registration inside a scope.
type ScopeKey string

func (k ScopeKey) String() string {
	return string(k)
}

func scopeKeyOf(d *Definition) ScopeKey {
	return ScopeKey(d.id)
}
