package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/polychat/polychat-api/internal/domain"
)

func TestOpenAIAdapter_ChatCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s, want /chat/completions", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-api-key" {
			t.Errorf("Authorization = %s, want Bearer test-api-key", r.Header.Get("Authorization"))
		}

		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Model != "gpt-4" {
			t.Errorf("Model = %s, want gpt-4", req.Model)
		}
		// Leading system message carries the system prompt.
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("Messages = %+v, want system prompt first", req.Messages)
		}

		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Model: "gpt-4",
			Choices: []openai.ChatCompletionChoice{
				{
					Message:      openai.ChatCompletionMessage{Role: "assistant", Content: "pong"},
					FinishReason: openai.FinishReasonStop,
				},
			},
			Usage: openai.Usage{PromptTokens: 8, CompletionTokens: 2, TotalTokens: 10},
		})
	}))
	defer srv.Close()

	adapter := NewOpenAIAdapter("test-api-key", WithOpenAIBaseURL(srv.URL))

	resp, err := adapter.ChatCompletion(context.Background(), ChatRequest{
		Model:        "gpt-4",
		SystemPrompt: "Be brief.",
		Messages:     []domain.Message{{Role: domain.RoleUser, Content: "ping"}},
	})
	if err != nil {
		t.Fatalf("ChatCompletion() error = %v", err)
	}
	if resp.Content != "pong" {
		t.Errorf("Content = %s, want pong", resp.Content)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("FinishReason = %s, want stop", resp.FinishReason)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 10 {
		t.Errorf("Usage = %+v, want TotalTokens 10", resp.Usage)
	}
}

func TestOpenAIAdapter_ChatCompletion_ZeroTemperature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var wire map[string]any
		if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}

		// An explicit zero must reach the wire instead of being dropped by
		// the SDK's omitempty; it is sent as the smallest non-zero float.
		raw, ok := wire["temperature"]
		if !ok {
			t.Error("temperature missing from request body, want explicit value")
		} else if temp := raw.(float64); temp > 1e-6 {
			t.Errorf("temperature = %v, want effectively 0", temp)
		}

		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Model: "gpt-4",
			Choices: []openai.ChatCompletionChoice{
				{
					Message:      openai.ChatCompletionMessage{Role: "assistant", Content: "ok"},
					FinishReason: openai.FinishReasonStop,
				},
			},
		})
	}))
	defer srv.Close()

	adapter := NewOpenAIAdapter("test-api-key", WithOpenAIBaseURL(srv.URL))

	zero := 0.0
	_, err := adapter.ChatCompletion(context.Background(), ChatRequest{
		Model:       "gpt-4",
		Messages:    []domain.Message{{Role: domain.RoleUser, Content: "ping"}},
		Temperature: &zero,
	})
	if err != nil {
		t.Fatalf("ChatCompletion() error = %v", err)
	}
}

func TestOpenAIAdapter_ChatCompletion_AuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	adapter := NewOpenAIAdapter("bad-key", WithOpenAIBaseURL(srv.URL))

	_, err := adapter.ChatCompletion(context.Background(), ChatRequest{
		Model:    "gpt-4",
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "ping"}},
	})
	if err == nil {
		t.Fatal("ChatCompletion() succeeded, want error")
	}

	provErr, ok := AsProviderError(err)
	if !ok {
		t.Fatalf("error = %v, want *ProviderError", err)
	}
	if provErr.Kind != KindAuth {
		t.Errorf("Kind = %s, want %s", provErr.Kind, KindAuth)
	}
	if provErr.Status != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", provErr.Status)
	}
}

func TestOpenAIAdapter_ChatCompletion_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{Model: "gpt-4"})
	}))
	defer srv.Close()

	adapter := NewOpenAIAdapter("test-api-key", WithOpenAIBaseURL(srv.URL))

	_, err := adapter.ChatCompletion(context.Background(), ChatRequest{
		Model:    "gpt-4",
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "ping"}},
	})
	if err == nil {
		t.Fatal("ChatCompletion() succeeded, want error for empty choices")
	}
	provErr, ok := AsProviderError(err)
	if !ok || provErr.Kind != KindUpstream {
		t.Errorf("error = %v, want upstream ProviderError", err)
	}
}

func TestOpenAIAdapter_mapFinishReason(t *testing.T) {
	tests := []struct {
		input    openai.FinishReason
		expected string
	}{
		{openai.FinishReasonStop, "stop"},
		{openai.FinishReasonLength, "length"},
		{openai.FinishReasonContentFilter, "content_filter"},
		{openai.FinishReason("weird"), "stop"},
	}

	for _, tt := range tests {
		if got := mapOpenAIFinishReason(tt.input); got != tt.expected {
			t.Errorf("mapOpenAIFinishReason(%s) = %s, want %s", tt.input, got, tt.expected)
		}
	}
}

func TestOpenAIAdapter_ValidateModel(t *testing.T) {
	adapter := NewOpenAIAdapter("test-api-key")

	if !adapter.ValidateModel("gpt-3.5-turbo") {
		t.Error("ValidateModel(gpt-3.5-turbo) = false, want true")
	}
	if adapter.ValidateModel("gemini-1.5-pro") {
		t.Error("ValidateModel(gemini-1.5-pro) = true, want false")
	}
}
