package beans

import (
	"reflect"

	"go.uber.org/zap"
)

// findCandidates returns the definitions that may satisfy a request for t, in
// registration order. It never fails; an empty result means no match.
//
// Results are cached until the registry changes. Enablement predicates are
// evaluated when the cache is filled, so they must be deterministic per container.
func (c *Container) findCandidates(rc *ResolutionContext, t reflect.Type, q Qualifier) []*Definition {
	key := mapKey{t: t}
	if hasProxyTarget(q) {
		key.q = ProxyTarget().String()
	}

	defs, _ := c.candidates.LoadOrCompute(key, func() ([]*Definition, error) {
		return c.collectCandidates(rc, t, hasProxyTarget(q)), nil
	})
	return defs
}

func (c *Container) collectCandidates(rc *ResolutionContext, t reflect.Type, wantProxyTarget bool) []*Definition {
	var defs []*Definition

	for _, ref := range c.registry.candidates(t) {
		if !ref.IsCandidateBean(t) || !ref.IsEnabled(c, rc) {
			continue
		}

		d, err := ref.Load(c)
		if err != nil {
			c.logger.Warn("failed to load bean definition",
				zap.String("type", formatType(ref.BeanType())),
				zap.Error(err),
			)
			continue
		}

		if d.abstract || !d.IsCandidateBean(t) {
			continue
		}

		if d.eachOf != nil && d.kind != KindDelegate {
			defs = append(defs, c.expandEach(rc, d)...)
			continue
		}

		defs = append(defs, d)
	}

	if !wantProxyTarget {
		defs = suppressProxyTargets(defs)
	}
	defs = preferDelegates(defs)
	defs = filterReplaced(defs)

	return defs
}

// expandEach returns one delegate of d per bean of d's each type. A delegate is
// named after its source bean, or after the source's identifier when the source is
// unnamed.
func (c *Container) expandEach(rc *ResolutionContext, d *Definition) []*Definition {
	if d.IsCandidateBean(d.eachOf) {
		c.logger.Warn("each-style definition iterates its own type", zap.Stringer("bean", d))
		return nil
	}

	rc.eachDepth++
	defer func() { rc.eachDepth-- }()

	sources := c.findCandidates(rc, d.eachOf, nil)
	out := make([]*Definition, 0, len(sources))

	for _, s := range sources {
		name := s.name
		if name == "" {
			name = s.id
		}
		out = append(out, c.delegate(d, s, name))
	}

	return out
}

func (c *Container) delegate(base, source *Definition, name string) *Definition {
	key := base.id + "@" + name
	if d, ok := c.delegates.Load(key); ok {
		return d.(*Definition)
	}

	d, _ := c.delegates.LoadOrStore(key, newDelegate(base, source, name))
	return d.(*Definition)
}

// suppressProxyTargets drops definitions that are proxied by another candidate.
func suppressProxyTargets(defs []*Definition) []*Definition {
	proxied := make(map[*Definition]struct{})
	for _, d := range defs {
		if d.kind == KindProxy && d.target != nil {
			proxied[d.target] = struct{}{}
		}
	}
	if len(proxied) == 0 {
		return defs
	}

	return filter(defs, func(d *Definition) bool {
		_, ok := proxied[d]
		return !ok
	})
}

// preferDelegates drops definitions also present as a delegate.
func preferDelegates(defs []*Definition) []*Definition {
	bases := make(map[*Definition]struct{})
	for _, d := range defs {
		if d.kind == KindDelegate && d.target != nil {
			bases[d.target] = struct{}{}
		}
	}
	if len(bases) == 0 {
		return defs
	}

	return filter(defs, func(d *Definition) bool {
		_, ok := bases[d]
		return !ok
	})
}

// filterReplaced applies the replacement rules declared among the candidates.
func filterReplaced(defs []*Definition) []*Definition {
	var replacing []*Definition
	for _, d := range defs {
		if d.replaces != nil {
			replacing = append(replacing, d)
		}
	}
	if len(replacing) == 0 {
		return defs
	}

	return filter(defs, func(candidate *Definition) bool {
		for _, r := range replacing {
			if replaces(r, candidate) {
				return false
			}
		}
		return true
	})
}

// replaces reports whether r suppresses candidate.
func replaces(r, candidate *Definition) bool {
	if r == candidate || r.isProxyOf(candidate) || candidate.infrastructure {
		return false
	}
	if r.base() == candidate.base() {
		return false
	}

	rule := r.replaces
	typeMatch := func() bool {
		t := rule.Type
		if t == nil {
			t = r.beanType
		}
		if assignable(candidate.beanType, t) {
			return true
		}
		// Introduction and around advice proxies stand in for their target type.
		return candidate.kind == KindProxy && candidate.target != nil && assignable(candidate.target.beanType, t)
	}

	switch {
	case rule.Qualifier != nil:
		matched := len(rule.Qualifier.Reduce(candidate.beanType, []*Definition{candidate})) == 1
		return matched && (rule.Type == nil || typeMatch())
	case rule.Named != "":
		return candidate.name == rule.Named && (rule.Type == nil || typeMatch())
	case rule.Factory != nil:
		return candidate.declaringType == rule.Factory && (rule.Type == nil || typeMatch())
	default:
		return typeMatch()
	}
}

func assignable(candidate, t reflect.Type) bool {
	if candidate == nil || t == nil {
		return false
	}
	return candidate == t || candidate.AssignableTo(t)
}
