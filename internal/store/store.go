// Package store provides a concurrent get-or-create instance store used by the
// container's caching scopes.
package store

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Key is the constraint for store keys. The string form must be unique per key,
// it is used to coalesce concurrent creators.
type Key interface {
	comparable
	fmt.Stringer
}

// entry pairs a stored value with its creation sequence.
type entry[V any] struct {
	value V
	seq   uint64
}

// Store caches values by key and guarantees that a value is created at most once
// while it is live, no matter how many goroutines ask for the same key.
//
// Lookups never take an exclusive lock. On a miss, creation for a key runs in
// exactly one goroutine; concurrent callers for the same key wait and observe the
// same value. A failed creation leaves no entry behind.
type Store[K Key, V any] struct {
	entries sync.Map // map[K]*entry[V]
	group   singleflight.Group
	seq     atomic.Uint64

	// mu serializes removal against the final publish of a creation so a
	// concurrent Remove can never leave a half-registered slot.
	mu sync.Mutex
}

// New creates an empty store.
func New[K Key, V any]() *Store[K, V] {
	return &Store[K, V]{}
}

// Get returns the value for key if present.
func (s *Store[K, V]) Get(key K) (V, bool) {
	if e, ok := s.entries.Load(key); ok {
		return e.(*entry[V]).value, true
	}

	var zero V
	return zero, false
}

// GetOrCreate returns the value for key, creating it with create on a miss.
// The boolean reports whether this call (or the call it waited on) created the value.
func (s *Store[K, V]) GetOrCreate(key K, create func() (V, error)) (V, bool, error) {
	if v, ok := s.Get(key); ok {
		return v, false, nil
	}

	res, err, _ := s.group.Do(key.String(), func() (any, error) {
		// Double check: a previous flight may have published between our
		// lookup and joining this one.
		if v, ok := s.Get(key); ok {
			return createResult[V]{value: v}, nil
		}

		v, err := create()
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.entries.Store(key, &entry[V]{value: v, seq: s.seq.Add(1)})
		s.mu.Unlock()

		return createResult[V]{value: v, created: true}, nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}

	r := res.(createResult[V])
	return r.value, r.created, nil
}

type createResult[V any] struct {
	value   V
	created bool
}

// Put stores value under key, replacing any existing value. The replaced value,
// if any, is returned.
func (s *Store[K, V]) Put(key K, value V) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, loaded := s.entries.Swap(key, &entry[V]{value: value, seq: s.seq.Add(1)})
	if loaded {
		return prev.(*entry[V]).value, true
	}

	var zero V
	return zero, false
}

// Remove deletes the entry for key and returns its value. Teardown of the value is
// the caller's responsibility.
func (s *Store[K, V]) Remove(key K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries.LoadAndDelete(key); ok {
		return e.(*entry[V]).value, true
	}

	var zero V
	return zero, false
}

// CompareAndRemove deletes the entry for key only if match reports true for the
// stored value.
func (s *Store[K, V]) CompareAndRemove(key K, match func(V) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries.Load(key)
	if !ok || !match(e.(*entry[V]).value) {
		return false
	}

	s.entries.Delete(key)
	return true
}

// Values returns all live values in creation order.
func (s *Store[K, V]) Values() []V {
	return s.sorted(false)
}

// Clear removes every entry and returns the removed values in creation order.
func (s *Store[K, V]) Clear() []V {
	return s.sorted(true)
}

// Len returns the number of live entries.
func (s *Store[K, V]) Len() int {
	n := 0
	s.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (s *Store[K, V]) sorted(remove bool) []V {
	if remove {
		s.mu.Lock()
		defer s.mu.Unlock()
	}

	var collected []*entry[V]
	s.entries.Range(func(k, v any) bool {
		collected = append(collected, v.(*entry[V]))
		if remove {
			s.entries.Delete(k)
		}
		return true
	})

	sort.Slice(collected, func(i, j int) bool {
		return collected[i].seq < collected[j].seq
	})

	values := make([]V, len(collected))
	for i, e := range collected {
		values[i] = e.value
	}

	return values
}
