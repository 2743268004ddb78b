package beans

import (
	"github.com/junioryono/beans/internal/store"
)

// Scope caches bean registrations for a lifetime domain. The singleton scope lives
// as long as the container; custom scopes are cleared by DestroyScope and
// RefreshScope. Prototype beans are never cached and have no Scope.
//
// Implementations must create at most one registration per key while it is live,
// even under concurrent GetOrCreate calls, and must not keep an entry when create
// fails. Teardown is the container's job: Remove and Clear only release entries.
type Scope interface {
	// Name returns the scope name definitions refer to.
	Name() string

	// Get returns the live registration for key.
	Get(key ScopeKey) (*BeanRegistration, bool)

	// GetOrCreate returns the live registration for key, calling create on a miss.
	// The boolean reports whether a registration was created.
	GetOrCreate(key ScopeKey, create func() (*BeanRegistration, error)) (*BeanRegistration, bool, error)

	// Put stores reg, returning the registration it replaced.
	Put(key ScopeKey, reg *BeanRegistration) (*BeanRegistration, bool)

	// Remove releases the entry for key.
	Remove(key ScopeKey) (*BeanRegistration, bool)

	// Release removes reg only if it is still the entry for key.
	Release(key ScopeKey, reg *BeanRegistration) bool

	// Registrations returns the live registrations in creation order.
	Registrations() []*BeanRegistration

	// Clear releases every entry and returns them in creation order.
	Clear() []*BeanRegistration
}

// NewScope creates a caching scope named name.
func NewScope(name string) Scope {
	return &cachingScope{
		name:    name,
		entries: store.New[ScopeKey, *BeanRegistration](),
	}
}

type cachingScope struct {
	name    string
	entries *store.Store[ScopeKey, *BeanRegistration]
}

func (s *cachingScope) Name() string {
	return s.name
}

func (s *cachingScope) Get(key ScopeKey) (*BeanRegistration, bool) {
	return s.entries.Get(key)
}

func (s *cachingScope) GetOrCreate(key ScopeKey, create func() (*BeanRegistration, error)) (*BeanRegistration, bool, error) {
	return s.entries.GetOrCreate(key, create)
}

func (s *cachingScope) Put(key ScopeKey, reg *BeanRegistration) (*BeanRegistration, bool) {
	return s.entries.Put(key, reg)
}

func (s *cachingScope) Remove(key ScopeKey) (*BeanRegistration, bool) {
	return s.entries.Remove(key)
}

func (s *cachingScope) Release(key ScopeKey, reg *BeanRegistration) bool {
	return s.entries.CompareAndRemove(key, func(live *BeanRegistration) bool {
		return live == reg
	})
}

func (s *cachingScope) Registrations() []*BeanRegistration {
	return s.entries.Values()
}

func (s *cachingScope) Clear() []*BeanRegistration {
	return s.entries.Clear()
}
