package endpoint

import (
	"fmt"
	"sync"
)

// SourceFactory creates a source store from loose configuration.
type SourceFactory func(config map[string]any) (SourceStore, error)

// TargetFactory creates a target store from loose configuration.
type TargetFactory func(config map[string]any) (TargetStore, error)

// Registry holds connector factories indexed by template ID
// (e.g. "vector.weaviate", "vector.milvus").
type Registry struct {
	mu      sync.RWMutex
	sources map[string]SourceFactory
	targets map[string]TargetFactory
}

// NewRegistry creates an empty connector registry.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]SourceFactory),
		targets: make(map[string]TargetFactory),
	}
}

// RegisterSource adds a source factory. Panics on duplicate registration.
func (r *Registry) RegisterSource(templateID string, factory SourceFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sources[templateID]; exists {
		panic(fmt.Sprintf("source factory already registered: %s", templateID))
	}
	r.sources[templateID] = factory
}

// RegisterTarget adds a target factory. Panics on duplicate registration.
func (r *Registry) RegisterTarget(templateID string, factory TargetFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.targets[templateID]; exists {
		panic(fmt.Sprintf("target factory already registered: %s", templateID))
	}
	r.targets[templateID] = factory
}

// CreateSource instantiates a source store by template ID.
func (r *Registry) CreateSource(templateID string, config map[string]any) (SourceStore, error) {
	r.mu.RLock()
	factory, ok := r.sources[templateID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown source template: %s", templateID)
	}
	return factory(config)
}

// CreateTarget instantiates a target store by template ID.
func (r *Registry) CreateTarget(templateID string, config map[string]any) (TargetStore, error) {
	r.mu.RLock()
	factory, ok := r.targets[templateID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown target template: %s", templateID)
	}
	return factory(config)
}

// List returns all registered template IDs.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sources)+len(r.targets))
	for id := range r.sources {
		ids = append(ids, id)
	}
	for id := range r.targets {
		ids = append(ids, id)
	}
	return ids
}

// --- Default Global Registry ---

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the global connector registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// RegisterSource adds a source factory to the default registry.
func RegisterSource(templateID string, factory SourceFactory) {
	defaultRegistry.RegisterSource(templateID, factory)
}

// RegisterTarget adds a target factory to the default registry.
func RegisterTarget(templateID string, factory TargetFactory) {
	defaultRegistry.RegisterTarget(templateID, factory)
}
