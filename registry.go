package records

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is the composition root for models. Every model it defines shares
// one identity cache and the registry-wide options, so records of the same
// type and id converge on one instance across stores.
type Registry struct {
	mu     sync.RWMutex
	cache  IdentityCache
	shared []ModelOption
	models map[string]*Model
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithSharedCache replaces the registry's identity cache.
func WithSharedCache(cache IdentityCache) RegistryOption {
	return func(r *Registry) {
		if cache != nil {
			r.cache = cache
		}
	}
}

// WithModelDefaults applies opts to every model defined afterwards. Options
// passed to Define run after these and win.
func WithModelDefaults(opts ...ModelOption) RegistryOption {
	return func(r *Registry) {
		r.shared = append(r.shared, opts...)
	}
}

// NewRegistry constructs an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		cache:  NewMemoryIdentityCache(),
		models: map[string]*Model{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Define builds and registers the model name. Redefining a name replaces it.
func (r *Registry) Define(name string, opts ...ModelOption) *Model {
	all := make([]ModelOption, 0, len(r.shared)+len(opts)+1)
	all = append(all, WithIdentityCache(r.cache))
	all = append(all, r.shared...)
	all = append(all, opts...)
	model := NewModel(name, all...)

	r.mu.Lock()
	r.models[name] = model
	r.mu.Unlock()
	return model
}

// Model returns the registered model name.
func (r *Registry) Model(name string) (*Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	model, ok := r.models[name]
	return model, ok
}

// MustModel returns the registered model name or panics.
func (r *Registry) MustModel(name string) *Model {
	model, ok := r.Model(name)
	if !ok {
		panic(fmt.Sprintf("records: model %q not defined", name))
	}
	return model
}

// Names lists the defined model names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cache returns the shared identity cache.
func (r *Registry) Cache() IdentityCache { return r.cache }

// NewStore builds a store for the registered model name.
func (r *Registry) NewStore(name string, opts ...StoreOption) (*Store, error) {
	model, ok := r.Model(name)
	if !ok {
		return nil, fmt.Errorf("records: model %q not defined", name)
	}
	return NewStore(model, opts...), nil
}
