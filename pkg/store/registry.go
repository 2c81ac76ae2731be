package store

import (
	"sync"
	"sync/atomic"
)

// registry is the per-key observer set shared by all store backends. It only
// tracks registrations; each backend decides on which goroutine deliver runs.
type registry struct {
	mu   sync.RWMutex
	keys map[string]map[*registration]struct{}
}

func newRegistry() *registry {
	return &registry{keys: make(map[string]map[*registration]struct{})}
}

func (g *registry) add(key string, fn ObserveFunc) *registration {
	reg := &registration{g: g, key: key, fn: fn}

	g.mu.Lock()
	set, ok := g.keys[key]
	if !ok {
		set = make(map[*registration]struct{})
		g.keys[key] = set
	}
	set[reg] = struct{}{}
	g.mu.Unlock()

	return reg
}

// deliver invokes the callbacks registered for c.Key. Callbacks run outside
// the registry lock so they may freely call back into the store or cancel
// their own registration. A registration cancelled after the snapshot was
// taken may still receive this one in-flight change.
func (g *registry) deliver(c Change) {
	g.mu.RLock()
	regs := make([]*registration, 0, len(g.keys[c.Key]))
	for reg := range g.keys[c.Key] {
		regs = append(regs, reg)
	}
	g.mu.RUnlock()

	for _, reg := range regs {
		if reg.cancelled.Load() {
			continue
		}
		reg.fn(c)
	}
}

// registration is one active observation. It implements [Registration].
type registration struct {
	g         *registry
	key       string
	fn        ObserveFunc
	once      sync.Once
	cancelled atomic.Bool
}

// Cancel deregisters the observation exactly once and clears the back
// reference to the registry, leaving the registration inert.
func (r *registration) Cancel() {
	r.once.Do(func() {
		r.cancelled.Store(true)
		r.g.mu.Lock()
		if set, ok := r.g.keys[r.key]; ok {
			delete(set, r)
			if len(set) == 0 {
				delete(r.g.keys, r.key)
			}
		}
		r.g.mu.Unlock()
		r.g = nil
	})
}
