package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/polychat/polychat-api/internal/domain"
)

const (
	// DefaultAnthropicBaseURL is the default Anthropic Messages API endpoint.
	DefaultAnthropicBaseURL = "https://api.anthropic.com/v1"

	// anthropicVersion pins the Messages API wire format. Anthropic versions
	// response shapes with this header rather than the URL.
	anthropicVersion = "2023-06-01"

	// anthropicDefaultMaxTokens is used when the request does not set a
	// budget. The Messages API requires max_tokens on every request.
	anthropicDefaultMaxTokens = 4096
)

// anthropicCatalog is the static model catalog served by the Anthropic adapter.
var anthropicCatalog = []domain.ModelInfo{
	{
		Provider:    domain.ProviderAnthropic,
		Name:        "claude-3-opus-20240229",
		DisplayName: "Claude 3 Opus",
		Description: "Most capable Claude model for complex tasks",
		MaxTokens:   4096,
	},
	{
		Provider:    domain.ProviderAnthropic,
		Name:        "claude-3-sonnet-20240229",
		DisplayName: "Claude 3 Sonnet",
		Description: "Balanced performance and speed",
		MaxTokens:   4096,
	},
	{
		Provider:    domain.ProviderAnthropic,
		Name:        "claude-3-haiku-20240307",
		DisplayName: "Claude 3 Haiku",
		Description: "Fastest Claude model for lightweight tasks",
		MaxTokens:   4096,
	},
}

// AnthropicAdapter implements Provider for the Anthropic Messages API.
// It translates generic chat requests to the Messages wire format and back.
type AnthropicAdapter struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// AnthropicOption is a functional option for configuring AnthropicAdapter.
type AnthropicOption func(*AnthropicAdapter)

// WithAnthropicBaseURL sets a custom base URL for the Messages API.
func WithAnthropicBaseURL(url string) AnthropicOption {
	return func(a *AnthropicAdapter) {
		a.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithAnthropicHTTPClient sets a custom HTTP client.
func WithAnthropicHTTPClient(client *http.Client) AnthropicOption {
	return func(a *AnthropicAdapter) {
		a.httpClient = client
	}
}

// NewAnthropicAdapter creates an AnthropicAdapter with the given API key.
func NewAnthropicAdapter(apiKey string, opts ...AnthropicOption) *AnthropicAdapter {
	a := &AnthropicAdapter{
		apiKey:  apiKey,
		baseURL: DefaultAnthropicBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Name returns the provider identifier.
func (a *AnthropicAdapter) Name() domain.ProviderType {
	return domain.ProviderAnthropic
}

// Models returns the Anthropic model catalog.
func (a *AnthropicAdapter) Models() []domain.ModelInfo {
	return anthropicCatalog
}

// ValidateModel reports whether model is a known Anthropic model.
func (a *AnthropicAdapter) ValidateModel(model string) bool {
	for _, m := range anthropicCatalog {
		if m.Name == model {
			return true
		}
	}
	return false
}

// ChatCompletion performs a chat completion request using the Messages API.
// Authentication uses the x-api-key header; Anthropic does not use Bearer tokens.
func (a *AnthropicAdapter) ChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	anthropicReq := a.mapToAnthropicRequest(req)

	body, err := json.Marshal(anthropicReq)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("failed to marshal anthropic request: %w", err)
	}

	url := a.baseURL + "/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return ChatResponse{}, fmt.Errorf("failed to create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return ChatResponse{}, wrapTransportError(domain.ProviderAnthropic, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ChatResponse{}, wrapTransportError(domain.ProviderAnthropic, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := string(respBody)
		var anthropicErr anthropicErrorResponse
		if err := json.Unmarshal(respBody, &anthropicErr); err == nil && anthropicErr.Error.Message != "" {
			msg = anthropicErr.Error.Message
		}
		return ChatResponse{}, &ProviderError{
			Provider: domain.ProviderAnthropic,
			Kind:     classifyStatus(resp.StatusCode),
			Status:   resp.StatusCode,
			Message:  msg,
		}
	}

	var anthropicResp anthropicResponse
	if err := json.Unmarshal(respBody, &anthropicResp); err != nil {
		return ChatResponse{}, fmt.Errorf("failed to unmarshal anthropic response: %w", err)
	}

	return a.mapToChatResponse(anthropicResp, req.Model), nil
}

// mapToAnthropicRequest converts a generic request to the Messages format.
// System content goes in the top-level system field, and max_tokens is
// defaulted because the API rejects requests without it.
func (a *AnthropicAdapter) mapToAnthropicRequest(req ChatRequest) anthropicRequest {
	anthropicReq := anthropicRequest{
		Model:     req.Model,
		MaxTokens: anthropicDefaultMaxTokens,
		Messages:  make([]anthropicMessage, 0, len(req.Messages)),
	}

	system := req.SystemPrompt

	for _, msg := range req.Messages {
		switch msg.Role {
		case domain.RoleSystem:
			if system == "" {
				system = msg.Content
			}
		case domain.RoleUser:
			anthropicReq.Messages = append(anthropicReq.Messages, anthropicMessage{
				Role:    "user",
				Content: msg.Content,
			})
		case domain.RoleAssistant:
			anthropicReq.Messages = append(anthropicReq.Messages, anthropicMessage{
				Role:    "assistant",
				Content: msg.Content,
			})
		}
	}

	anthropicReq.System = system

	if req.Temperature != nil {
		temp := *req.Temperature
		anthropicReq.Temperature = &temp
	}
	if req.MaxTokens > 0 {
		anthropicReq.MaxTokens = req.MaxTokens
	}

	return anthropicReq
}

// mapToChatResponse converts a Messages API response to the normalized shape.
// Multiple text blocks are joined with newlines; non-text blocks are skipped
// for forward-compatibility with future content types.
func (a *AnthropicAdapter) mapToChatResponse(resp anthropicResponse, model string) ChatResponse {
	var textParts []string
	for _, block := range resp.Content {
		if block.Type == "text" {
			textParts = append(textParts, block.Text)
		}
	}

	out := ChatResponse{
		Content:      strings.Join(textParts, "\n"),
		Model:        resp.Model,
		FinishReason: mapAnthropicStopReason(resp.StopReason),
	}
	if out.Model == "" {
		out.Model = model
	}

	out.Usage = &Usage{
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}

	return out
}

// mapAnthropicStopReason converts stop_reason values to the canonical form.
func mapAnthropicStopReason(reason string) string {
	switch reason {
	case "max_tokens":
		return "length"
	case "end_turn", "stop_sequence":
		return "stop"
	default:
		return "stop"
	}
}

// ============================================================================
// Anthropic API Types
// ============================================================================

// anthropicRequest represents a Messages API request.
type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
}

// anthropicMessage is a single turn in the Messages format.
type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicResponse represents a Messages API response.
type anthropicResponse struct {
	ID         string                  `json:"id"`
	Model      string                  `json:"model"`
	StopReason string                  `json:"stop_reason"`
	Content    []anthropicContentBlock `json:"content"`
	Usage      anthropicUsage          `json:"usage"`
}

// anthropicContentBlock is one block of response content.
type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// anthropicUsage contains token usage information.
type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// anthropicErrorResponse represents an error response from the Messages API.
type anthropicErrorResponse struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

var _ Provider = (*AnthropicAdapter)(nil)
