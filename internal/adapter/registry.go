package adapter

import (
	"fmt"

	"github.com/polychat/polychat-api/internal/domain"
)

// ErrUnknownProvider is returned by Registry.Get for providers that are not
// registered, either because the type is unknown or no API key was configured.
type ErrUnknownProvider struct {
	Provider domain.ProviderType
}

func (e *ErrUnknownProvider) Error() string {
	return fmt.Sprintf("unsupported provider: %q", e.Provider)
}

// Registry maps provider types to their adapters. It is populated once at
// startup and read-only afterwards, so no locking is needed.
type Registry struct {
	adapters map[domain.ProviderType]Provider
}

// NewRegistry creates a registry from the given adapters.
// A nil adapter is skipped so callers can pass construction results directly.
func NewRegistry(adapters ...Provider) *Registry {
	r := &Registry{
		adapters: make(map[domain.ProviderType]Provider, len(adapters)),
	}
	for _, a := range adapters {
		if a != nil {
			r.adapters[a.Name()] = a
		}
	}
	return r
}

// Get returns the adapter for the given provider type.
func (r *Registry) Get(provider domain.ProviderType) (Provider, error) {
	a, ok := r.adapters[provider]
	if !ok {
		return nil, &ErrUnknownProvider{Provider: provider}
	}
	return a, nil
}

// Models returns the combined model catalog of every registered adapter,
// in the canonical provider order.
func (r *Registry) Models() []domain.ModelInfo {
	var models []domain.ModelInfo
	for _, provider := range domain.AllProviders {
		if a, ok := r.adapters[provider]; ok {
			models = append(models, a.Models()...)
		}
	}
	return models
}

// Providers returns the provider types that are registered.
func (r *Registry) Providers() []domain.ProviderType {
	var providers []domain.ProviderType
	for _, provider := range domain.AllProviders {
		if _, ok := r.adapters[provider]; ok {
			providers = append(providers, provider)
		}
	}
	return providers
}

// Len returns the number of registered adapters.
func (r *Registry) Len() int {
	return len(r.adapters)
}
