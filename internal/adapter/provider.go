// Package adapter provides implementations for external AI provider integrations.
// It uses the Adapter pattern to abstract provider-specific APIs behind a common interface.
package adapter

import (
	"context"
	"time"

	"github.com/polychat/polychat-api/internal/domain"
)

// DefaultTimeout is the default HTTP client timeout for provider calls.
const DefaultTimeout = 60 * time.Second

// ChatRequest is the generic chat completion request shape. Each adapter
// translates it into the provider's own wire format.
type ChatRequest struct {
	// Model is the provider-specific model identifier.
	Model string

	// Messages is the full conversation history in insertion order.
	// System messages are hoisted by adapters that need them elsewhere.
	Messages []domain.Message

	// Temperature controls randomness. Nil means "provider default";
	// an explicit zero requests deterministic sampling and is sent as-is.
	Temperature *float64

	// MaxTokens limits the completion length. Zero means "provider default".
	MaxTokens int

	// SystemPrompt is an optional instruction prepended to the conversation.
	SystemPrompt string
}

// Usage reports token consumption for a single completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the normalized result of a chat completion.
type ChatResponse struct {
	// Content is the assistant's reply text.
	Content string `json:"content"`

	// Model is the concrete model that produced the reply, as reported by
	// the provider (may differ from the requested alias).
	Model string `json:"model"`

	// FinishReason is the canonical stop reason: "stop", "length" or
	// "content_filter".
	FinishReason string `json:"finish_reason,omitempty"`

	// Usage is token accounting when the provider reports it.
	Usage *Usage `json:"usage,omitempty"`
}

// Provider defines the interface for AI provider adapters.
// All provider implementations must satisfy this interface.
type Provider interface {
	// ChatCompletion sends a generic chat request and returns the
	// normalized response. Failures are reported as *ProviderError.
	ChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error)

	// Name returns the provider's identifier.
	Name() domain.ProviderType

	// Models returns the static catalog of models this adapter serves.
	Models() []domain.ModelInfo

	// ValidateModel reports whether model is in the adapter's catalog.
	ValidateModel(model string) bool
}
