package strategyadapter

import (
	"sync"

	"github.com/payflow/backend/internal/domain/treasury"
)

// Registry implements treasury.AdapterRegistry with a concurrency-safe map
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]treasury.StrategyAdapter
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]treasury.StrategyAdapter),
	}
}

// Register makes an adapter resolvable by its name
func (r *Registry) Register(adapter treasury.StrategyAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.Name()] = adapter
}

// Resolve returns the adapter for a strategy name
func (r *Registry) Resolve(name string) (treasury.StrategyAdapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[name]
	return adapter, ok
}

// Names returns the names of all registered adapters
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}

// Ensure Registry implements AdapterRegistry
var _ treasury.AdapterRegistry = (*Registry)(nil)
