package provider

import (
	"fmt"
	"strings"
	"sync"

	"github.com/arbor-chat/arbor/pkg/types"
)

// Registry manages the available providers and resolves model ids to
// the provider serving them.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID()] = p
}

// Get retrieves a provider by id.
func (r *Registry) Get(providerID string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[providerID]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", providerID)
	}
	return p, nil
}

// Resolve finds the provider serving a model id, along with the model
// entry itself.
func (r *Registry) Resolve(modelID string) (Provider, *types.Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.providers {
		for _, m := range p.Models() {
			if m.ID == modelID {
				model := m
				return p, &model, nil
			}
		}
	}
	return nil, nil, fmt.Errorf("model not found: %s", modelID)
}

// ResolveRef resolves a "provider/model" reference. An empty ref
// falls back to the first model of any registered provider.
func (r *Registry) ResolveRef(ref string) (Provider, *types.Model, error) {
	if ref == "" {
		r.mu.RLock()
		defer r.mu.RUnlock()
		for _, p := range r.providers {
			models := p.Models()
			if len(models) > 0 {
				model := models[0]
				return p, &model, nil
			}
		}
		return nil, nil, fmt.Errorf("no providers registered")
	}

	parts := strings.SplitN(ref, "/", 2)
	if len(parts) != 2 {
		return r.Resolve(ref)
	}

	p, err := r.Get(parts[0])
	if err != nil {
		return nil, nil, err
	}
	for _, m := range p.Models() {
		if m.ID == parts[1] {
			model := m
			return p, &model, nil
		}
	}
	return nil, nil, fmt.Errorf("model not found: %s", ref)
}

// AllModels returns the combined model catalog.
func (r *Registry) AllModels() []types.Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var models []types.Model
	for _, p := range r.providers {
		models = append(models, p.Models()...)
	}
	return models
}
