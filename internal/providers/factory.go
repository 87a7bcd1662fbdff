package providers

import (
	"fmt"
	"sort"
	"sync"
)

// Builder creates an adapter from its resolved configuration
type Builder func(cfg ProviderConfig) Adapter

// Registration describes how to construct one provider type.
// Provider packages export a Registration value that the app adds to the factory.
type Registration struct {
	Type string
	New  Builder
}

// ProviderFactory maps provider types to builders.
type ProviderFactory struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewProviderFactory creates an empty factory.
func NewProviderFactory() *ProviderFactory {
	return &ProviderFactory{builders: make(map[string]Builder)}
}

// Register adds or replaces the builder for a provider type.
func (f *ProviderFactory) Register(providerType string, builder Builder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[providerType] = builder
}

// Add registers a provider package's Registration.
func (f *ProviderFactory) Add(reg Registration) {
	f.Register(reg.Type, reg.New)
}

// Create instantiates an adapter based on configuration
func (f *ProviderFactory) Create(cfg ProviderConfig) (Adapter, error) {
	f.mu.RLock()
	builder, ok := f.builders[cfg.Type]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
	return builder(cfg), nil
}

// ListRegistered returns the registered provider types in sorted order
func (f *ProviderFactory) ListRegistered() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	types := make([]string, 0, len(f.builders))
	for t := range f.builders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
