// Package handler provides the HTTP handlers for the chat API.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/polychat/polychat-api/internal/adapter"
	"github.com/polychat/polychat-api/internal/chat"
	"github.com/polychat/polychat-api/internal/domain"
	"github.com/polychat/polychat-api/internal/store"
)

// ChatHandler translates REST verbs into chat service calls.
type ChatHandler struct {
	service *chat.Service
	logger  *slog.Logger
}

// ChatHandlerOption is a functional option for configuring ChatHandler.
type ChatHandlerOption func(*ChatHandler)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ChatHandlerOption {
	return func(h *ChatHandler) {
		h.logger = logger
	}
}

// NewChatHandler creates a ChatHandler.
func NewChatHandler(service *chat.Service, opts ...ChatHandlerOption) *ChatHandler {
	h := &ChatHandler{
		service: service,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes attaches all chat API routes to the router.
func (h *ChatHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/chat")
	{
		api.POST("/send", h.HandleSend)
		api.GET("/models", h.HandleModels)
		api.GET("/stats", h.HandleStats)
		api.GET("/conversations", h.HandleListConversations)
		api.POST("/conversations", h.HandleCreateConversation)
		api.GET("/conversations/:id", h.HandleGetConversation)
		api.DELETE("/conversations/:id", h.HandleDeleteConversation)
		api.PUT("/conversations/:id/title", h.HandleRenameConversation)
		api.DELETE("/conversations/:id/messages", h.HandleClearMessages)
	}

	router.GET("/", h.HandleRoot)
	router.GET("/health", h.HandleHealth)
}

// ============================================================================
// Request DTOs
// ============================================================================

// sendMessageRequest is the body of POST /api/chat/send.
type sendMessageRequest struct {
	ConversationID string              `json:"conversation_id"`
	Message        string              `json:"message" binding:"required"`
	Provider       domain.ProviderType `json:"provider" binding:"required"`
	Model          string              `json:"model" binding:"required"`
	Temperature    *float64            `json:"temperature"`
	MaxTokens      int                 `json:"max_tokens"`
	SystemPrompt   string              `json:"system_prompt"`
}

// settings assembles validated model settings, applying the default
// temperature when the client sent none.
func (r *sendMessageRequest) settings() domain.ModelSettings {
	temperature := domain.DefaultTemperature
	if r.Temperature != nil {
		temperature = *r.Temperature
	}
	return domain.ModelSettings{
		Provider:     r.Provider,
		Model:        r.Model,
		Temperature:  temperature,
		MaxTokens:    r.MaxTokens,
		SystemPrompt: r.SystemPrompt,
	}
}

// createConversationRequest is the body of POST /api/chat/conversations.
type createConversationRequest struct {
	Title        string              `json:"title"`
	Provider     domain.ProviderType `json:"provider" binding:"required"`
	Model        string              `json:"model" binding:"required"`
	Temperature  *float64            `json:"temperature"`
	MaxTokens    int                 `json:"max_tokens"`
	SystemPrompt string              `json:"system_prompt"`
}

// renameConversationRequest is the body of PUT /api/chat/conversations/:id/title.
type renameConversationRequest struct {
	Title string `json:"title" binding:"required"`
}

// ============================================================================
// Handlers
// ============================================================================

// HandleSend handles POST /api/chat/send.
func (h *ChatHandler) HandleSend(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, http.StatusBadRequest, "invalid_request_error", "Invalid request body: "+err.Error())
		return
	}

	settings := req.settings()
	if err := settings.Validate(); err != nil {
		h.sendError(c, http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	}

	result, err := h.service.SendMessage(c.Request.Context(), chat.SendRequest{
		ConversationID: req.ConversationID,
		Message:        req.Message,
		Settings:       settings,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandleCreateConversation handles POST /api/chat/conversations.
func (h *ChatHandler) HandleCreateConversation(c *gin.Context) {
	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, http.StatusBadRequest, "invalid_request_error", "Invalid request body: "+err.Error())
		return
	}

	temperature := domain.DefaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	settings := domain.ModelSettings{
		Provider:     req.Provider,
		Model:        req.Model,
		Temperature:  temperature,
		MaxTokens:    req.MaxTokens,
		SystemPrompt: req.SystemPrompt,
	}
	if err := settings.Validate(); err != nil {
		h.sendError(c, http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	}

	conv, err := h.service.CreateConversation(req.Title, settings)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, conv)
}

// HandleListConversations handles GET /api/chat/conversations.
// An optional ?q= parameter searches titles and message content.
func (h *ChatHandler) HandleListConversations(c *gin.Context) {
	var (
		metas []domain.ConversationMeta
		err   error
	)

	if query := c.Query("q"); query != "" {
		metas, err = h.service.SearchConversations(query)
	} else {
		metas, err = h.service.ListConversations()
	}
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if metas == nil {
		metas = []domain.ConversationMeta{}
	}
	c.JSON(http.StatusOK, gin.H{"conversations": metas})
}

// HandleGetConversation handles GET /api/chat/conversations/:id.
func (h *ChatHandler) HandleGetConversation(c *gin.Context) {
	conv, err := h.service.GetConversation(c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// HandleDeleteConversation handles DELETE /api/chat/conversations/:id.
func (h *ChatHandler) HandleDeleteConversation(c *gin.Context) {
	if err := h.service.DeleteConversation(c.Param("id")); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// HandleRenameConversation handles PUT /api/chat/conversations/:id/title.
func (h *ChatHandler) HandleRenameConversation(c *gin.Context) {
	var req renameConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, http.StatusBadRequest, "invalid_request_error", "Invalid request body: "+err.Error())
		return
	}

	if err := h.service.RenameConversation(c.Param("id"), req.Title); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

// HandleClearMessages handles DELETE /api/chat/conversations/:id/messages.
func (h *ChatHandler) HandleClearMessages(c *gin.Context) {
	if err := h.service.ClearMessages(c.Param("id")); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

// HandleModels handles GET /api/chat/models.
func (h *ChatHandler) HandleModels(c *gin.Context) {
	models := h.service.AvailableModels()
	if models == nil {
		models = []domain.ModelInfo{}
	}
	c.JSON(http.StatusOK, gin.H{"models": models})
}

// HandleStats handles GET /api/chat/stats.
func (h *ChatHandler) HandleStats(c *gin.Context) {
	stats, err := h.service.Stats()
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// HandleRoot handles GET /.
func (h *ChatHandler) HandleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Multi-Model Chat API",
		"version": "1.0.0",
	})
}

// HandleHealth handles GET /health.
func (h *ChatHandler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ============================================================================
// Error mapping
// ============================================================================

// handleServiceError maps service-layer errors to HTTP responses.
// Invalid provider or model selections are client errors (400), unknown
// conversations are 404, and upstream provider failures are 502.
func (h *ChatHandler) handleServiceError(c *gin.Context, err error) {
	var unknownProvider *adapter.ErrUnknownProvider
	if errors.As(err, &unknownProvider) {
		h.sendError(c, http.StatusBadRequest, "invalid_request_error", unknownProvider.Error())
		return
	}

	if provErr, ok := adapter.AsProviderError(err); ok {
		if provErr.Kind == adapter.KindInvalidModel && provErr.Status == 0 {
			// Rejected by our own catalog check, not by the provider.
			h.sendError(c, http.StatusBadRequest, "invalid_request_error", provErr.Message)
			return
		}
		h.sendError(c, http.StatusBadGateway, string(provErr.Kind), provErr.Message)
		return
	}

	if errors.Is(err, store.ErrNotFound) {
		h.sendError(c, http.StatusNotFound, "not_found", "conversation not found")
		return
	}

	h.logger.Error("unhandled service error", slog.String("error", err.Error()))
	h.sendError(c, http.StatusInternalServerError, "server_error", "Internal server error")
}

// sendError writes the error envelope shared by all endpoints.
func (h *ChatHandler) sendError(c *gin.Context, status int, errType, message string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"message": message,
			"type":    errType,
		},
	})
}
