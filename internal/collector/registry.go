package collector

import (
	"fmt"
	"slices"
	"sync"

	"github.com/newthinker/augur/internal/core"
)

// Registry holds the available collectors by name.
type Registry struct {
	mu         sync.RWMutex
	collectors map[string]Collector
}

// NewRegistry returns a registry preloaded with cs.
func NewRegistry(cs ...Collector) *Registry {
	r := &Registry{collectors: make(map[string]Collector, len(cs))}
	for _, c := range cs {
		r.Register(c)
	}
	return r
}

// Register adds c, replacing any collector with the same name.
func (r *Registry) Register(c Collector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collectors[c.Name()] = c
}

// Get looks a collector up by name.
func (r *Registry) Get(name string) (Collector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.collectors[name]
	return c, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.collectors))
	for name := range r.collectors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Build initializes the named collector with cfg. An unknown name is
// core.ErrConfigInvalid.
func (r *Registry) Build(name string, cfg Config) (Collector, error) {
	c, ok := r.Get(name)
	if !ok {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown collector %q, have %v", name, r.Names()))
	}
	if err := c.Init(cfg); err != nil {
		return nil, fmt.Errorf("init collector %s: %w", name, err)
	}
	return c, nil
}
