// Package chat orchestrates conversations: it resolves the provider adapter,
// maintains conversation state in the store, and shapes send-message results.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/polychat/polychat-api/internal/adapter"
	"github.com/polychat/polychat-api/internal/domain"
	"github.com/polychat/polychat-api/internal/store"
)

// SendRequest carries one user turn. ConversationID is optional: when empty
// or unknown, a new conversation is created with the request's settings.
type SendRequest struct {
	ConversationID string
	Message        string
	Settings       domain.ModelSettings
}

// SendResult is the outcome of a completed user turn.
type SendResult struct {
	Message        string         `json:"message"`
	ConversationID string         `json:"conversation_id"`
	ModelUsed      string         `json:"model_used"`
	Timestamp      time.Time      `json:"timestamp"`
	Usage          *adapter.Usage `json:"usage,omitempty"`
}

// Service coordinates the adapter registry and the conversation store.
type Service struct {
	registry *adapter.Registry
	store    store.Store
	logger   *slog.Logger
}

// ServiceOption is a functional option for configuring Service.
type ServiceOption func(*Service)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a chat service.
func NewService(registry *adapter.Registry, st store.Store, opts ...ServiceOption) *Service {
	s := &Service{
		registry: registry,
		store:    st,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendMessage runs one full user turn: validate the provider and model,
// resolve or create the conversation, append the user message, call the
// provider with the full history, and append the assistant reply.
//
// Provider and model are validated before any store mutation, so a request
// for an unsupported provider or model leaves the store untouched.
func (s *Service) SendMessage(ctx context.Context, req SendRequest) (*SendResult, error) {
	prov, err := s.registry.Get(req.Settings.Provider)
	if err != nil {
		return nil, err
	}
	if !prov.ValidateModel(req.Settings.Model) {
		return nil, &adapter.ProviderError{
			Provider: req.Settings.Provider,
			Kind:     adapter.KindInvalidModel,
			Message:  fmt.Sprintf("invalid model: %s", req.Settings.Model),
		}
	}

	conv, created, err := s.resolveConversation(req)
	if err != nil {
		return nil, err
	}

	userMsg := domain.NewMessage(domain.RoleUser, req.Message)
	if err := s.store.AppendMessage(conv.ID, userMsg); err != nil {
		return nil, fmt.Errorf("failed to append user message: %w", err)
	}
	conv.AppendMessage(userMsg)

	resp, err := prov.ChatCompletion(ctx, adapter.ChatRequest{
		Model:        req.Settings.Model,
		Messages:     conv.Messages,
		Temperature:  &req.Settings.Temperature,
		MaxTokens:    req.Settings.MaxTokens,
		SystemPrompt: req.Settings.SystemPrompt,
	})
	if err != nil {
		s.logger.Error("provider call failed",
			slog.String("provider", string(req.Settings.Provider)),
			slog.String("model", req.Settings.Model),
			slog.String("conversation_id", conv.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	assistantMsg := domain.NewMessage(domain.RoleAssistant, resp.Content)
	assistantMsg.ModelUsed = resp.Model
	if err := s.store.AppendMessage(conv.ID, assistantMsg); err != nil {
		return nil, fmt.Errorf("failed to append assistant message: %w", err)
	}

	s.logger.Info("message completed",
		slog.String("provider", string(req.Settings.Provider)),
		slog.String("model", resp.Model),
		slog.String("conversation_id", conv.ID),
		slog.Bool("new_conversation", created),
		slog.String("finish_reason", resp.FinishReason),
	)

	return &SendResult{
		Message:        resp.Content,
		ConversationID: conv.ID,
		ModelUsed:      resp.Model,
		Timestamp:      assistantMsg.Timestamp,
		Usage:          resp.Usage,
	}, nil
}

// resolveConversation loads the referenced conversation or creates a fresh
// one when the id is empty or unknown, mirroring the send-message contract.
// The returned flag reports whether a conversation was created.
func (s *Service) resolveConversation(req SendRequest) (*domain.Conversation, bool, error) {
	if req.ConversationID != "" {
		conv, err := s.store.Get(req.ConversationID)
		if err == nil {
			return conv, false, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, false, err
		}
	}

	conv := domain.NewConversation("", req.Settings)
	if err := s.store.Create(conv); err != nil {
		return nil, false, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, true, nil
}

// CreateConversation creates an empty conversation with the given title and
// settings.
func (s *Service) CreateConversation(title string, settings domain.ModelSettings) (*domain.Conversation, error) {
	conv := domain.NewConversation(title, settings)
	if err := s.store.Create(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// GetConversation returns a conversation by id.
func (s *Service) GetConversation(id string) (*domain.Conversation, error) {
	return s.store.Get(id)
}

// ListConversations returns conversation metadata, most recent first.
func (s *Service) ListConversations() ([]domain.ConversationMeta, error) {
	return s.store.List()
}

// SearchConversations returns conversations matching the query.
func (s *Service) SearchConversations(query string) ([]domain.ConversationMeta, error) {
	return s.store.Search(query)
}

// DeleteConversation removes a conversation by id.
func (s *Service) DeleteConversation(id string) error {
	return s.store.Delete(id)
}

// RenameConversation updates a conversation title.
func (s *Service) RenameConversation(id, title string) error {
	return s.store.Rename(id, title)
}

// ClearMessages removes all messages from a conversation.
func (s *Service) ClearMessages(id string) error {
	return s.store.ClearMessages(id)
}

// AvailableModels returns the combined catalog of all configured providers.
func (s *Service) AvailableModels() []domain.ModelInfo {
	return s.registry.Models()
}

// Stats reports storage statistics.
func (s *Service) Stats() (store.Stats, error) {
	return s.store.Stats()
}
