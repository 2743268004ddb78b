package beans

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"
)

// Qualifier narrows a set of candidate definitions. Qualifiers are stateless; two
// qualifiers with the same String are interchangeable.
type Qualifier interface {
	// Reduce returns the candidates the qualifier accepts, preserving order.
	Reduce(beanType reflect.Type, candidates []*Definition) []*Definition

	// String is the canonical form used for keying.
	String() string
}

func filter(candidates []*Definition, keep func(*Definition) bool) []*Definition {
	out := make([]*Definition, 0, len(candidates))
	for _, d := range candidates {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

// Named matches definitions by name or by an equal declared qualifier. An unnamed
// each-style source is matched by its identifier.
func Named(name string) Qualifier {
	return namedQualifier(name)
}

type namedQualifier string

func (q namedQualifier) Reduce(_ reflect.Type, candidates []*Definition) []*Definition {
	return filter(candidates, func(d *Definition) bool {
		if d.name == string(q) || d.id == string(q) {
			return true
		}
		return d.qualifier != nil && d.qualifier.String() == q.String()
	})
}

func (q namedQualifier) String() string {
	return fmt.Sprintf("@Named(%s)", string(q))
}

// Annotated matches definitions carrying an annotation. An empty value matches any
// value of the annotation.
func Annotated(key, value string) Qualifier {
	return annotationQualifier{key: key, value: value}
}

type annotationQualifier struct {
	key   string
	value string
}

func (q annotationQualifier) Reduce(_ reflect.Type, candidates []*Definition) []*Definition {
	return filter(candidates, func(d *Definition) bool {
		v, ok := d.Annotation(q.key)
		return ok && (q.value == "" || v == q.value)
	})
}

func (q annotationQualifier) String() string {
	if q.value == "" {
		return fmt.Sprintf("@%s", q.key)
	}
	return fmt.Sprintf("@%s(%s)", q.key, q.value)
}

// TypeArgs matches definitions declared with the given generic type arguments.
// Each declared argument must be assignable to the requested one.
func TypeArgs(types ...reflect.Type) Qualifier {
	return typeArgumentQualifier(types)
}

type typeArgumentQualifier []reflect.Type

func (q typeArgumentQualifier) Reduce(_ reflect.Type, candidates []*Definition) []*Definition {
	return filter(candidates, func(d *Definition) bool {
		declared := d.TypeArguments()
		if len(declared) != len(q) {
			return false
		}
		for i, t := range q {
			if declared[i] == nil || !declared[i].AssignableTo(t) {
				return false
			}
		}
		return true
	})
}

func (q typeArgumentQualifier) String() string {
	names := make([]string, len(q))
	for i, t := range q {
		names[i] = formatType(t)
	}
	return fmt.Sprintf("<%s>", strings.Join(names, ","))
}

// Intercepted matches definitions carrying every given interceptor binding.
func Intercepted(bindings ...string) Qualifier {
	sorted := append([]string(nil), bindings...)
	sort.Strings(sorted)
	return bindingQualifier(sorted)
}

type bindingQualifier []string

func (q bindingQualifier) Reduce(_ reflect.Type, candidates []*Definition) []*Definition {
	return filter(candidates, func(d *Definition) bool {
		for _, b := range q {
			if !slices.Contains(d.bindings, b) {
				return false
			}
		}
		return true
	})
}

func (q bindingQualifier) String() string {
	return fmt.Sprintf("@InterceptorBinding(%s)", strings.Join(q, ","))
}

// And is the conjunction of qualifiers. Nil entries are ignored.
func And(qualifiers ...Qualifier) Qualifier {
	var flat []Qualifier
	for _, q := range qualifiers {
		switch v := q.(type) {
		case nil:
		case allQualifier:
			flat = append(flat, v...)
		default:
			flat = append(flat, q)
		}
	}

	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	default:
		return allQualifier(flat)
	}
}

type allQualifier []Qualifier

func (q allQualifier) Reduce(beanType reflect.Type, candidates []*Definition) []*Definition {
	for _, inner := range q {
		candidates = inner.Reduce(beanType, candidates)
		if len(candidates) == 0 {
			break
		}
	}
	return candidates
}

func (q allQualifier) String() string {
	parts := make([]string, len(q))
	for i, inner := range q {
		parts[i] = inner.String()
	}
	return strings.Join(parts, " && ")
}

// ProxyTarget requests the un-proxied target of a proxied bean.
func ProxyTarget() Qualifier {
	return proxyTargetQualifier{}
}

type proxyTargetQualifier struct{}

func (proxyTargetQualifier) Reduce(_ reflect.Type, candidates []*Definition) []*Definition {
	return filter(candidates, func(d *Definition) bool {
		return d.kind != KindProxy
	})
}

func (proxyTargetQualifier) String() string {
	return "@ProxyTarget"
}

// Any accepts the first candidate, ending disambiguation.
func Any() Qualifier {
	return anyQualifier{}
}

type anyQualifier struct{}

func (anyQualifier) Reduce(_ reflect.Type, candidates []*Definition) []*Definition {
	if len(candidates) > 1 {
		return candidates[:1]
	}
	return candidates
}

func (anyQualifier) String() string {
	return "@Any"
}

// hasProxyTarget reports whether q asks for proxy targets.
func hasProxyTarget(q Qualifier) bool {
	switch v := q.(type) {
	case proxyTargetQualifier:
		return true
	case allQualifier:
		return slices.ContainsFunc(v, hasProxyTarget)
	default:
		return false
	}
}

func qualifierString(q Qualifier) string {
	if q == nil {
		return ""
	}
	return q.String()
}
