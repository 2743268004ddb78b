package beans

import (
	"reflect"
	"sync"
)

// registry holds every known reference in registration order, indexed by exact
// bean type and by a small set of marker interfaces.
type registry struct {
	mu       sync.RWMutex
	refs     []Reference
	byType   map[reflect.Type][]Reference
	byMarker map[reflect.Type][]Reference
	markers  []reflect.Type
}

func newRegistry(markers ...reflect.Type) *registry {
	r := &registry{
		byType:   make(map[reflect.Type][]Reference),
		byMarker: make(map[reflect.Type][]Reference, len(markers)),
		markers:  markers,
	}
	for _, m := range markers {
		r.byMarker[m] = nil
	}
	return r
}

// add appends references. It reports how many were added.
func (r *registry) add(refs ...Reference) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, ref := range refs {
		if ref == nil || ref.BeanType() == nil {
			continue
		}

		t := ref.BeanType()
		r.refs = append(r.refs, ref)
		r.byType[t] = append(r.byType[t], ref)

		for _, m := range r.markers {
			if t.Implements(m) {
				r.byMarker[m] = append(r.byMarker[m], ref)
			}
		}
		n++
	}

	return n
}

// candidates returns the references that may satisfy requested, in registration
// order. Marker interface requests are served from the marker index.
func (r *registry) candidates(requested reflect.Type) []Reference {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if indexed, ok := r.byMarker[requested]; ok {
		return append([]Reference(nil), indexed...)
	}

	var out []Reference
	for _, ref := range r.refs {
		if ref.IsCandidateBean(requested) {
			out = append(out, ref)
		}
	}
	return out
}

// exact returns the references whose bean type is exactly t.
func (r *registry) exact(t reflect.Type) []Reference {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Reference(nil), r.byType[t]...)
}

// all returns every reference in registration order.
func (r *registry) all() []Reference {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Reference(nil), r.refs...)
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.refs)
}
