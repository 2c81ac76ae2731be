package prefkit

import (
	"log/slog"
	"sync"

	"github.com/dmitrymomot/prefkit/pkg/store"
)

// Container is the configuration cell that names the store typed keys
// resolve against, plus an optional key prefix. All access goes through its
// lock, so the store can be swapped at runtime — for example to a
// [store.MemoryStore] test double — without readers ever observing a torn
// value. Key operations re-read the container on every call rather than
// caching the store, which is what makes the swap take effect immediately.
type Container struct {
	mu     sync.RWMutex
	st     store.Store
	prefix string
	log    *slog.Logger

	fallbackOnce sync.Once
	fallback     *store.MemoryStore
}

// Default is the process-wide container used when a nil *Container is passed
// to key operations.
var Default = NewContainer()

// ContainerOption configures a Container at construction time.
type ContainerOption func(*Container)

// WithStore sets the initial backing store.
func WithStore(st store.Store) ContainerOption {
	return func(c *Container) { c.st = st }
}

// WithKeyPrefix sets the prefix prepended to every key name.
func WithKeyPrefix(prefix string) ContainerOption {
	return func(c *Container) { c.prefix = prefix }
}

// WithLogger sets the logger propagated to observations created through this
// container. Defaults to slog.Default(). Nil loggers are ignored.
func WithLogger(log *slog.Logger) ContainerOption {
	return func(c *Container) {
		if log != nil {
			c.log = log
		}
	}
}

// NewContainer creates a container. Without WithStore it serves reads and
// writes from a container-owned in-memory store until Configure is called.
func NewContainer(opts ...ContainerOption) *Container {
	c := &Container{log: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configure swaps the backing store. Existing observations keep following
// the store they were built against; binding observers re-bound on their
// next Observe call pick up the new store.
func (c *Container) Configure(st store.Store) {
	c.mu.Lock()
	c.st = st
	c.mu.Unlock()
}

// SetKeyPrefix changes the prefix prepended to every key name.
func (c *Container) SetKeyPrefix(prefix string) {
	c.mu.Lock()
	c.prefix = prefix
	c.mu.Unlock()
}

// KeyPrefix returns the current key prefix.
func (c *Container) KeyPrefix() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.prefix
}

// Store returns the currently configured store. When none has been
// configured it returns a lazily created, container-owned in-memory store,
// so observing before configuration is well-defined rather than an error.
// The fallback keeps a stable identity across calls.
func (c *Container) Store() store.Store {
	c.mu.RLock()
	st := c.st
	c.mu.RUnlock()
	if st != nil {
		return st
	}
	c.fallbackOnce.Do(func() {
		c.fallback = store.NewMemoryStore()
	})
	return c.fallback
}

// RegisterDefaults forwards defaults to the current store, applying the
// container's key prefix to every name.
func (c *Container) RegisterDefaults(defaults map[string]string) error {
	prefix := c.KeyPrefix()
	if prefix != "" {
		prefixed := make(map[string]string, len(defaults))
		for k, v := range defaults {
			prefixed[prefix+k] = v
		}
		defaults = prefixed
	}
	return c.Store().RegisterDefaults(defaults)
}

func (c *Container) fullKey(name string) string {
	return c.KeyPrefix() + name
}

func (c *Container) logger() *slog.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.log
}

func orDefault(c *Container) *Container {
	if c == nil {
		return Default
	}
	return c
}
