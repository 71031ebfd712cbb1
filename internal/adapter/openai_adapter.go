package adapter

import (
	"context"
	"errors"
	"math"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/polychat/polychat-api/internal/domain"
)

// openaiCatalog is the static model catalog served by the OpenAI adapter.
var openaiCatalog = []domain.ModelInfo{
	{
		Provider:    domain.ProviderOpenAI,
		Name:        "gpt-4-turbo-preview",
		DisplayName: "GPT-4 Turbo",
		Description: "Latest GPT-4 model with improved performance",
		MaxTokens:   4096,
	},
	{
		Provider:    domain.ProviderOpenAI,
		Name:        "gpt-4",
		DisplayName: "GPT-4",
		Description: "High-quality reasoning model",
		MaxTokens:   8192,
	},
	{
		Provider:    domain.ProviderOpenAI,
		Name:        "gpt-3.5-turbo",
		DisplayName: "GPT-3.5 Turbo",
		Description: "Fast and efficient model",
		MaxTokens:   4096,
	},
}

// OpenAIAdapter implements Provider on top of the go-openai SDK.
type OpenAIAdapter struct {
	client *openai.Client
}

// OpenAIOption is a functional option for configuring OpenAIAdapter.
type OpenAIOption func(*openai.ClientConfig)

// WithOpenAIBaseURL points the SDK at a custom endpoint (proxies, tests).
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(cfg *openai.ClientConfig) {
		cfg.BaseURL = url
	}
}

// WithOpenAIHTTPClient sets a custom HTTP client.
func WithOpenAIHTTPClient(client *http.Client) OpenAIOption {
	return func(cfg *openai.ClientConfig) {
		cfg.HTTPClient = client
	}
}

// NewOpenAIAdapter creates an OpenAIAdapter with the given API key.
func NewOpenAIAdapter(apiKey string, opts ...OpenAIOption) *OpenAIAdapter {
	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = &http.Client{Timeout: DefaultTimeout}

	for _, opt := range opts {
		opt(&cfg)
	}

	return &OpenAIAdapter{
		client: openai.NewClientWithConfig(cfg),
	}
}

// Name returns the provider identifier.
func (o *OpenAIAdapter) Name() domain.ProviderType {
	return domain.ProviderOpenAI
}

// Models returns the OpenAI model catalog.
func (o *OpenAIAdapter) Models() []domain.ModelInfo {
	return openaiCatalog
}

// ValidateModel reports whether model is a known OpenAI model.
func (o *OpenAIAdapter) ValidateModel(model string) bool {
	for _, m := range openaiCatalog {
		if m.Name == model {
			return true
		}
	}
	return false
}

// ChatCompletion performs a chat completion request via the OpenAI SDK.
// The optional system prompt becomes the leading system message, which is
// how the Chat Completions API expects instructions to arrive.
func (o *OpenAIAdapter) ChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)

	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}

	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	chatReq := openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		if temp == 0 {
			// The SDK's omitempty drops an exact zero; the smallest non-zero
			// float survives serialization and the API rounds it to zero.
			temp = math.SmallestNonzeroFloat32
		}
		chatReq.Temperature = temp
	}

	resp, err := o.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return ChatResponse{}, o.mapError(err)
	}

	if len(resp.Choices) == 0 {
		return ChatResponse{}, &ProviderError{
			Provider: domain.ProviderOpenAI,
			Kind:     KindUpstream,
			Message:  "openai returned no choices",
		}
	}

	choice := resp.Choices[0]

	return ChatResponse{
		Content:      choice.Message.Content,
		Model:        resp.Model,
		FinishReason: mapOpenAIFinishReason(choice.FinishReason),
		Usage: &Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// mapError converts SDK errors to the normalized ProviderError.
func (o *OpenAIAdapter) mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{
			Provider: domain.ProviderOpenAI,
			Kind:     classifyStatus(apiErr.HTTPStatusCode),
			Status:   apiErr.HTTPStatusCode,
			Message:  apiErr.Message,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ProviderError{
			Provider: domain.ProviderOpenAI,
			Kind:     classifyStatus(reqErr.HTTPStatusCode),
			Status:   reqErr.HTTPStatusCode,
			Message:  reqErr.Error(),
		}
	}

	return wrapTransportError(domain.ProviderOpenAI, err)
}

// mapOpenAIFinishReason converts SDK finish reasons to the canonical form.
func mapOpenAIFinishReason(reason openai.FinishReason) string {
	switch reason {
	case openai.FinishReasonLength:
		return "length"
	case openai.FinishReasonContentFilter:
		return "content_filter"
	default:
		return "stop"
	}
}

var _ Provider = (*OpenAIAdapter)(nil)
