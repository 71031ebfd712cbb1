package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/polychat/polychat-api/internal/domain"
)

func TestGeminiAdapter_mapToGeminiRequest(t *testing.T) {
	adapter := NewGeminiAdapter("test-api-key")

	tests := []struct {
		name     string
		input    ChatRequest
		validate func(*testing.T, geminiRequest)
	}{
		{
			name: "simple user message",
			input: ChatRequest{
				Model: "gemini-1.5-flash",
				Messages: []domain.Message{
					{Role: domain.RoleUser, Content: "Hello, world!"},
				},
			},
			validate: func(t *testing.T, req geminiRequest) {
				if len(req.Contents) != 1 {
					t.Errorf("len(Contents) = %d, want 1", len(req.Contents))
				}
				if req.Contents[0].Role != "user" {
					t.Errorf("Contents[0].Role = %s, want user", req.Contents[0].Role)
				}
				if req.Contents[0].Parts[0].Text != "Hello, world!" {
					t.Errorf("Contents[0].Parts[0].Text = %s, want 'Hello, world!'", req.Contents[0].Parts[0].Text)
				}
			},
		},
		{
			name: "assistant role maps to model",
			input: ChatRequest{
				Model: "gemini-1.5-flash",
				Messages: []domain.Message{
					{Role: domain.RoleUser, Content: "Hi"},
					{Role: domain.RoleAssistant, Content: "Hello!"},
					{Role: domain.RoleUser, Content: "How are you?"},
				},
			},
			validate: func(t *testing.T, req geminiRequest) {
				if len(req.Contents) != 3 {
					t.Errorf("len(Contents) = %d, want 3", len(req.Contents))
				}
				if req.Contents[1].Role != "model" {
					t.Errorf("Contents[1].Role = %s, want model (assistant mapped to model)", req.Contents[1].Role)
				}
			},
		},
		{
			name: "system message becomes systemInstruction",
			input: ChatRequest{
				Model: "gemini-1.5-flash",
				Messages: []domain.Message{
					{Role: domain.RoleSystem, Content: "You are a helpful assistant."},
					{Role: domain.RoleUser, Content: "Hi"},
				},
			},
			validate: func(t *testing.T, req geminiRequest) {
				if len(req.Contents) != 1 {
					t.Errorf("len(Contents) = %d, want 1 (system not in contents)", len(req.Contents))
				}
				if req.SystemInstruction == nil {
					t.Error("SystemInstruction is nil, expected system message")
				} else if req.SystemInstruction.Parts[0].Text != "You are a helpful assistant." {
					t.Errorf("SystemInstruction.Parts[0].Text = %s, want 'You are a helpful assistant.'", req.SystemInstruction.Parts[0].Text)
				}
			},
		},
		{
			name: "system prompt wins over system message",
			input: ChatRequest{
				Model:        "gemini-1.5-flash",
				SystemPrompt: "Answer in French.",
				Messages: []domain.Message{
					{Role: domain.RoleSystem, Content: "ignored"},
					{Role: domain.RoleUser, Content: "Hi"},
				},
			},
			validate: func(t *testing.T, req geminiRequest) {
				if req.SystemInstruction == nil {
					t.Fatal("SystemInstruction is nil")
				}
				if req.SystemInstruction.Parts[0].Text != "Answer in French." {
					t.Errorf("SystemInstruction = %s, want explicit system prompt", req.SystemInstruction.Parts[0].Text)
				}
			},
		},
		{
			name: "generation config mapping",
			input: ChatRequest{
				Model:       "gemini-1.5-flash",
				Messages:    []domain.Message{{Role: domain.RoleUser, Content: "test"}},
				Temperature: ptrFloat(0.8),
				MaxTokens:   100,
			},
			validate: func(t *testing.T, req geminiRequest) {
				if req.GenerationConfig.Temperature == nil || *req.GenerationConfig.Temperature != 0.8 {
					t.Error("Temperature not mapped correctly")
				}
				if req.GenerationConfig.MaxOutputTokens == nil || *req.GenerationConfig.MaxOutputTokens != 100 {
					t.Error("MaxOutputTokens not mapped correctly")
				}
			},
		},
		{
			name: "explicit zero temperature carried",
			input: ChatRequest{
				Model:       "gemini-1.5-flash",
				Messages:    []domain.Message{{Role: domain.RoleUser, Content: "test"}},
				Temperature: ptrFloat(0),
			},
			validate: func(t *testing.T, req geminiRequest) {
				if req.GenerationConfig.Temperature == nil {
					t.Fatal("Temperature omitted, want explicit 0")
				}
				if *req.GenerationConfig.Temperature != 0 {
					t.Errorf("Temperature = %v, want 0", *req.GenerationConfig.Temperature)
				}
			},
		},
		{
			name: "unset temperature omitted",
			input: ChatRequest{
				Model:    "gemini-1.5-flash",
				Messages: []domain.Message{{Role: domain.RoleUser, Content: "test"}},
			},
			validate: func(t *testing.T, req geminiRequest) {
				if req.GenerationConfig.Temperature != nil {
					t.Errorf("Temperature = %v, want omitted", *req.GenerationConfig.Temperature)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := adapter.mapToGeminiRequest(tt.input)
			tt.validate(t, result)
		})
	}
}

func TestGeminiAdapter_mapToChatResponse(t *testing.T) {
	adapter := NewGeminiAdapter("test-api-key")

	geminiResp := geminiResponse{
		Candidates: []geminiCandidate{
			{
				Content: geminiContent{
					Parts: []geminiPart{{Text: "Hello from Gemini!"}},
				},
				FinishReason: "STOP",
				Index:        0,
			},
		},
		UsageMetadata: &geminiUsageMetadata{
			PromptTokenCount:     10,
			CandidatesTokenCount: 5,
			TotalTokenCount:      15,
		},
	}

	result := adapter.mapToChatResponse(geminiResp, "gemini-1.5-flash")

	if result.Content != "Hello from Gemini!" {
		t.Errorf("Content = %s, want 'Hello from Gemini!'", result.Content)
	}
	if result.Model != "gemini-1.5-flash" {
		t.Errorf("Model = %s, want gemini-1.5-flash", result.Model)
	}
	if result.FinishReason != "stop" {
		t.Errorf("FinishReason = %s, want stop", result.FinishReason)
	}
	if result.Usage == nil {
		t.Fatal("Usage is nil")
	}
	if result.Usage.PromptTokens != 10 || result.Usage.CompletionTokens != 5 || result.Usage.TotalTokens != 15 {
		t.Errorf("Usage = %+v, want 10/5/15", result.Usage)
	}
}

func TestGeminiAdapter_mapFinishReason(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"STOP", "stop"},
		{"MAX_TOKENS", "length"},
		{"SAFETY", "content_filter"},
		{"RECITATION", "content_filter"},
		{"OTHER", "stop"},
		{"UNKNOWN", "stop"},
		{"", "stop"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := mapGeminiFinishReason(tt.input)
			if result != tt.expected {
				t.Errorf("mapGeminiFinishReason(%s) = %s, want %s", tt.input, result, tt.expected)
			}
		})
	}
}

func TestGeminiAdapter_ValidateModel(t *testing.T) {
	adapter := NewGeminiAdapter("test-api-key")

	if !adapter.ValidateModel("gemini-1.5-flash") {
		t.Error("ValidateModel(gemini-1.5-flash) = false, want true")
	}
	if adapter.ValidateModel("gpt-4") {
		t.Error("ValidateModel(gpt-4) = true, want false")
	}
}

func TestGeminiAdapter_ChatCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "test-api-key" {
			t.Errorf("x-goog-api-key = %s, want test-api-key", r.Header.Get("x-goog-api-key"))
		}
		if r.URL.RawQuery != "" {
			t.Errorf("query = %s, want no query parameters", r.URL.RawQuery)
		}

		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if len(req.Contents) != 1 {
			t.Errorf("len(Contents) = %d, want 1", len(req.Contents))
		}

		json.NewEncoder(w).Encode(geminiResponse{
			Candidates: []geminiCandidate{
				{
					Content:      geminiContent{Parts: []geminiPart{{Text: "pong"}}},
					FinishReason: "STOP",
				},
			},
		})
	}))
	defer srv.Close()

	adapter := NewGeminiAdapter("test-api-key", WithGeminiBaseURL(srv.URL))

	resp, err := adapter.ChatCompletion(context.Background(), ChatRequest{
		Model:    "gemini-1.5-flash",
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "ping"}},
	})
	if err != nil {
		t.Fatalf("ChatCompletion() error = %v", err)
	}
	if resp.Content != "pong" {
		t.Errorf("Content = %s, want pong", resp.Content)
	}
}

func TestGeminiAdapter_ChatCompletion_AuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`))
	}))
	defer srv.Close()

	adapter := NewGeminiAdapter("bad-key", WithGeminiBaseURL(srv.URL))

	_, err := adapter.ChatCompletion(context.Background(), ChatRequest{
		Model:    "gemini-1.5-flash",
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
	if provErr.Status != http.StatusForbidden {
		t.Errorf("Status = %d, want 403", provErr.Status)
	}
	if provErr.Message != "API key not valid" {
		t.Errorf("Message = %q, want upstream message extracted", provErr.Message)
	}
}

func TestGeminiAdapter_ChatCompletion_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	adapter := NewGeminiAdapter("test-api-key", WithGeminiBaseURL(srv.URL))

	_, err := adapter.ChatCompletion(context.Background(), ChatRequest{
		Model:    "gemini-1.5-flash",
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "ping"}},
	})
	if err == nil {
		t.Fatal("ChatCompletion() succeeded, want error for empty candidates")
	}
	provErr, ok := AsProviderError(err)
	if !ok || provErr.Kind != KindUpstream {
		t.Errorf("error = %v, want upstream ProviderError", err)
	}
}

func TestGeminiAdapter_TransportErrorHidesKey(t *testing.T) {
	apiKey := "AIzaSyFAKEFAKEFAKEFAKEFAKEFAKEFAKE01"

	// A closed server guarantees a connection failure whose url.Error quotes
	// the full request URL.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	adapter := NewGeminiAdapter(apiKey, WithGeminiBaseURL(srv.URL))

	_, err := adapter.ChatCompletion(context.Background(), ChatRequest{
		Model:    "gemini-1.5-pro",
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "ping"}},
	})
	if err == nil {
		t.Fatal("ChatCompletion() succeeded against closed server, want error")
	}
	if strings.Contains(err.Error(), apiKey) {
		t.Errorf("error message contains the API key: %q", err.Error())
	}
}

func TestNewGeminiAdapter_Options(t *testing.T) {
	customURL := "https://custom.api.google.com"
	adapter := NewGeminiAdapter("test-api-key", WithGeminiBaseURL(customURL+"/"))

	if adapter.baseURL != customURL {
		t.Errorf("baseURL = %s, want %s (trailing slash trimmed)", adapter.baseURL, customURL)
	}
}

// Helper functions
func ptrFloat(f float64) *float64 {
	return &f
}
