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

// DefaultGeminiBaseURL is the default Gemini API endpoint.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// geminiCatalog is the static model catalog served by the Gemini adapter.
var geminiCatalog = []domain.ModelInfo{
	{
		Provider:    domain.ProviderGoogle,
		Name:        "gemini-1.5-pro",
		DisplayName: "Gemini 1.5 Pro",
		Description: "Google's most capable model with a long context window",
		MaxTokens:   8192,
	},
	{
		Provider:    domain.ProviderGoogle,
		Name:        "gemini-1.5-flash",
		DisplayName: "Gemini 1.5 Flash",
		Description: "Fast and cost-efficient multimodal model",
		MaxTokens:   8192,
	},
	{
		Provider:    domain.ProviderGoogle,
		Name:        "gemini-1.5-flash-8b",
		DisplayName: "Gemini 1.5 Flash 8B",
		Description: "Smallest Gemini model for high-volume tasks",
		MaxTokens:   8192,
	},
}

// GeminiAdapter implements Provider for the Google Gemini API.
// It translates generic chat requests to Gemini generateContent calls and back.
type GeminiAdapter struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// GeminiOption is a functional option for configuring GeminiAdapter.
type GeminiOption func(*GeminiAdapter)

// WithGeminiBaseURL sets a custom base URL for the Gemini API.
func WithGeminiBaseURL(url string) GeminiOption {
	return func(g *GeminiAdapter) {
		g.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithGeminiHTTPClient sets a custom HTTP client.
func WithGeminiHTTPClient(client *http.Client) GeminiOption {
	return func(g *GeminiAdapter) {
		g.httpClient = client
	}
}

// NewGeminiAdapter creates a GeminiAdapter with the given API key.
func NewGeminiAdapter(apiKey string, opts ...GeminiOption) *GeminiAdapter {
	g := &GeminiAdapter{
		apiKey:  apiKey,
		baseURL: DefaultGeminiBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Name returns the provider identifier.
func (g *GeminiAdapter) Name() domain.ProviderType {
	return domain.ProviderGoogle
}

// Models returns the Gemini model catalog.
func (g *GeminiAdapter) Models() []domain.ModelInfo {
	return geminiCatalog
}

// ValidateModel reports whether model is a known Gemini model.
func (g *GeminiAdapter) ValidateModel(model string) bool {
	for _, m := range geminiCatalog {
		if m.Name == model {
			return true
		}
	}
	return false
}

// ChatCompletion performs a chat completion request using the Gemini API.
// It translates the generic request to Gemini format, makes the API call,
// and translates the response back.
func (g *GeminiAdapter) ChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	geminiReq := g.mapToGeminiRequest(req)

	// The key travels in a header rather than the ?key= query param, so a
	// transport error quoting the URL can never expose it.
	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, req.Model)

	body, err := json.Marshal(geminiReq)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("failed to marshal gemini request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return ChatResponse{}, fmt.Errorf("failed to create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return ChatResponse{}, wrapTransportError(domain.ProviderGoogle, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ChatResponse{}, wrapTransportError(domain.ProviderGoogle, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := string(respBody)
		var geminiErr geminiErrorResponse
		if err := json.Unmarshal(respBody, &geminiErr); err == nil && geminiErr.Error.Message != "" {
			msg = geminiErr.Error.Message
		}
		return ChatResponse{}, &ProviderError{
			Provider: domain.ProviderGoogle,
			Kind:     classifyStatus(resp.StatusCode),
			Status:   resp.StatusCode,
			Message:  msg,
		}
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		return ChatResponse{}, fmt.Errorf("failed to unmarshal gemini response: %w", err)
	}

	if len(geminiResp.Candidates) == 0 {
		return ChatResponse{}, &ProviderError{
			Provider: domain.ProviderGoogle,
			Kind:     KindUpstream,
			Message:  "gemini returned no candidates",
		}
	}

	return g.mapToChatResponse(geminiResp, req.Model), nil
}

// mapToGeminiRequest converts a generic request to Gemini format.
// Gemini has no system role: the system prompt and any system messages go
// into systemInstruction, and "assistant" maps to Gemini's "model" role.
func (g *GeminiAdapter) mapToGeminiRequest(req ChatRequest) geminiRequest {
	geminiReq := geminiRequest{
		Contents: make([]geminiContent, 0, len(req.Messages)),
	}

	systemInstruction := req.SystemPrompt

	for _, msg := range req.Messages {
		switch msg.Role {
		case domain.RoleSystem:
			if systemInstruction == "" {
				systemInstruction = msg.Content
			}
		case domain.RoleUser:
			geminiReq.Contents = append(geminiReq.Contents, geminiContent{
				Role:  "user",
				Parts: []geminiPart{{Text: msg.Content}},
			})
		case domain.RoleAssistant:
			geminiReq.Contents = append(geminiReq.Contents, geminiContent{
				Role:  "model",
				Parts: []geminiPart{{Text: msg.Content}},
			})
		}
	}

	if systemInstruction != "" {
		geminiReq.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: systemInstruction}},
		}
	}

	if req.Temperature != nil {
		temp := *req.Temperature
		geminiReq.GenerationConfig.Temperature = &temp
	}
	if req.MaxTokens > 0 {
		maxTokens := req.MaxTokens
		geminiReq.GenerationConfig.MaxOutputTokens = &maxTokens
	}

	return geminiReq
}

// mapToChatResponse converts a Gemini response to the normalized shape.
func (g *GeminiAdapter) mapToChatResponse(resp geminiResponse, model string) ChatResponse {
	candidate := resp.Candidates[0]

	content := ""
	if len(candidate.Content.Parts) > 0 {
		content = candidate.Content.Parts[0].Text
	}

	out := ChatResponse{
		Content:      content,
		Model:        model,
		FinishReason: mapGeminiFinishReason(candidate.FinishReason),
	}

	if resp.UsageMetadata != nil {
		out.Usage = &Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		}
	}

	return out
}

// mapGeminiFinishReason converts Gemini finish reasons to the canonical form.
func mapGeminiFinishReason(reason string) string {
	switch reason {
	case "STOP", "OTHER", "FINISH_REASON_UNSPECIFIED", "":
		return "stop"
	case "MAX_TOKENS":
		return "length"
	case "SAFETY", "RECITATION":
		return "content_filter"
	default:
		return "stop"
	}
}

// ============================================================================
// Gemini API Types
// ============================================================================

// geminiRequest represents a Gemini generateContent request.
type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig,omitempty"`
}

// geminiContent represents a content block in Gemini format.
type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

// geminiPart represents a part of a content block.
type geminiPart struct {
	Text string `json:"text,omitempty"`
}

// geminiGenerationConfig contains generation parameters.
type geminiGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

// geminiResponse represents a Gemini generateContent response.
type geminiResponse struct {
	Candidates    []geminiCandidate    `json:"candidates"`
	UsageMetadata *geminiUsageMetadata `json:"usageMetadata,omitempty"`
}

// geminiCandidate represents a single generated candidate.
type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
	Index        int           `json:"index"`
}

// geminiUsageMetadata contains token usage information.
type geminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// geminiErrorResponse represents an error response from the Gemini API.
type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

var _ Provider = (*GeminiAdapter)(nil)
