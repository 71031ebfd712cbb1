package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/polychat/polychat-api/internal/domain"
)

// ErrorKind categorizes provider failures so the HTTP layer can map them
// without string matching.
type ErrorKind string

const (
	// KindAuth means the provider rejected our API key.
	KindAuth ErrorKind = "auth"

	// KindRateLimit means the provider throttled the request.
	KindRateLimit ErrorKind = "rate_limit"

	// KindInvalidModel means the requested model is unknown to the provider.
	KindInvalidModel ErrorKind = "invalid_model"

	// KindTimeout means the call exceeded its deadline or was cancelled.
	KindTimeout ErrorKind = "timeout"

	// KindUpstream covers all other provider-side failures.
	KindUpstream ErrorKind = "upstream"
)

// ProviderError is the normalized error for a failed provider call.
type ProviderError struct {
	// Provider is the adapter that produced the error.
	Provider domain.ProviderType

	// Kind is the failure category.
	Kind ErrorKind

	// Status is the upstream HTTP status code, when one was received.
	Status int

	// Message is the provider's error description.
	Message string
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s error [%d]: %s", e.Provider, e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s error: %s", e.Provider, e.Kind, e.Message)
}

// AsProviderError unwraps err to a *ProviderError if possible.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// classifyStatus maps an upstream HTTP status code to an ErrorKind.
// 404 is treated as invalid-model: all three provider APIs return 404 for an
// unknown model identifier.
func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status == http.StatusNotFound:
		return KindInvalidModel
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout
	default:
		return KindUpstream
	}
}

// wrapTransportError converts a failed outbound call into a ProviderError,
// distinguishing context cancellation from generic network failures.
// Transport errors can quote the request URL or headers, so the message is
// scrubbed of key material before it reaches logs or clients.
func wrapTransportError(provider domain.ProviderType, err error) *ProviderError {
	kind := KindUpstream
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		kind = KindTimeout
	}
	return &ProviderError{
		Provider: provider,
		Kind:     kind,
		Message:  redactSecrets(err.Error()),
	}
}

// secretPatterns matches API key material in common vendor formats, plus
// keys quoted inside URLs or auth headers by transport errors.
var secretPatterns = []*regexp.Regexp{
	// Anthropic keys: sk-ant-...
	regexp.MustCompile(`sk-ant-[a-zA-Z0-9_-]{20,}`),
	// OpenAI keys: sk-...
	regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`),
	// Google AI keys: AIza...
	regexp.MustCompile(`AIza[a-zA-Z0-9_-]{30,}`),
	// Bearer tokens
	regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._-]{20,}`),
	// Keys in query params: key=...
	regexp.MustCompile(`key=[a-zA-Z0-9_-]{10,}`),
}

// redactSecrets replaces API key material in s with a placeholder.
func redactSecrets(s string) string {
	for _, pattern := range secretPatterns {
		s = pattern.ReplaceAllString(s, "***")
	}
	return s
}
