// Package domain contains the core business entities and value objects.
// These structs are framework-agnostic and represent the heart of the application.
package domain

// ProviderType identifies an external LLM vendor.
type ProviderType string

const (
	ProviderOpenAI    ProviderType = "openai"
	ProviderGoogle    ProviderType = "google"
	ProviderAnthropic ProviderType = "anthropic"
)

// AllProviders lists every provider type the service knows about.
var AllProviders = []ProviderType{ProviderOpenAI, ProviderGoogle, ProviderAnthropic}

// IsValid reports whether p is a known provider type.
func (p ProviderType) IsValid() bool {
	switch p {
	case ProviderOpenAI, ProviderGoogle, ProviderAnthropic:
		return true
	default:
		return false
	}
}

// ModelInfo describes a single model offered by a provider.
type ModelInfo struct {
	// Provider is the vendor that hosts this model.
	Provider ProviderType `json:"provider"`

	// Name is the model identifier sent on the wire (e.g. "gpt-4-turbo-preview").
	Name string `json:"name"`

	// DisplayName is the human-readable name shown in model pickers.
	DisplayName string `json:"display_name"`

	// Description is a one-line summary of the model's strengths.
	Description string `json:"description"`

	// MaxTokens is the maximum completion length the service allows for this model.
	MaxTokens int `json:"max_tokens"`
}
