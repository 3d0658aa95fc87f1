package volume

import (
	"sync"

	"github.com/blocklab/volsim/pkg/backend"
)

// BackingConfig describes the device behind one volume identifier.
type BackingConfig struct {
	Path      string
	Capacity  int64
	MaxIOSize int64
	Kind      backend.Kind
}

// Registry maps volume identifiers to backing configurations. Identifiers
// without an entry route to the fallback, so the caching engine can open
// any core identifier without the registry knowing it upfront.
type Registry struct {
	entries  map[string]BackingConfig
	fallback BackingConfig
	mu       sync.RWMutex
}

func NewRegistry(fallback BackingConfig) *Registry {
	return &Registry{
		entries:  make(map[string]BackingConfig),
		fallback: fallback,
	}
}

func (r *Registry) Register(name string, cfg BackingConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[name] = cfg
}

func (r *Registry) Lookup(name string) BackingConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.entries[name]
	if !ok {
		return r.fallback
	}

	return cfg
}
