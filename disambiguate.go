package beans

import (
	"reflect"
)

// pickDefinition returns the single definition satisfying key, caching the answer
// until the registry changes.
func (c *Container) pickDefinition(rc *ResolutionContext, key BeanKey) (*Definition, error) {
	return c.concrete.LoadOrCompute(key.mapKey(), func() (*Definition, error) {
		return pick(key.Type, key.Qualifier, c.findCandidates(rc, key.Type, key.Qualifier))
	})
}

// pick reduces candidates by the qualifier and disambiguates what remains.
func pick(t reflect.Type, q Qualifier, candidates []*Definition) (*Definition, error) {
	if q != nil {
		candidates = q.Reduce(t, candidates)
	}

	switch len(candidates) {
	case 0:
		return nil, &NoSuchBeanError{Type: t, Qualifier: q}
	case 1:
		return candidates[0], nil
	default:
		return disambiguate(t, q, candidates)
	}
}

// disambiguate chooses among several candidates: primaries first, then without
// secondaries, then the lowest explicit order, then the exact requested type.
//
// Once any candidate declares an order, candidates without one count as order 0.
// A tie at the lowest order is not broken by the exact type check.
func disambiguate(t reflect.Type, q Qualifier, candidates []*Definition) (*Definition, error) {
	if primaries := filter(candidates, (*Definition).IsPrimary); len(primaries) > 0 {
		candidates = primaries
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	if rest := filter(candidates, func(d *Definition) bool { return !d.secondary }); len(rest) > 0 {
		candidates = rest
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	if anyOrdered(candidates) {
		lowest := candidates[0].order
		for _, d := range candidates[1:] {
			if d.order < lowest {
				lowest = d.order
			}
		}

		winners := filter(candidates, func(d *Definition) bool { return d.order == lowest })
		if len(winners) == 1 {
			return winners[0], nil
		}
		return nil, &NonUniqueBeanError{Type: t, Qualifier: q, Candidates: winners}
	}

	if exact := filter(candidates, func(d *Definition) bool { return d.beanType == t }); len(exact) == 1 {
		return exact[0], nil
	}

	return nil, &NonUniqueBeanError{Type: t, Qualifier: q, Candidates: candidates}
}

func anyOrdered(defs []*Definition) bool {
	for _, d := range defs {
		if d.hasOrder {
			return true
		}
	}
	return false
}
