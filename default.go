package beans

import "sync/atomic"

var defaultContainer atomic.Pointer[Container]

// SetDefault sets the container returned by Default. This is similar to
// slog.SetDefault. Pass nil to remove it.
func SetDefault(c *Container) {
	defaultContainer.Store(c)
}

// Default returns the container set by SetDefault, or nil.
func Default() *Container {
	return defaultContainer.Load()
}
