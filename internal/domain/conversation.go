package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChatRole is the author role of a message.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
	RoleSystem    ChatRole = "system"
)

// IsValid reports whether r is a known chat role.
func (r ChatRole) IsValid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	default:
		return false
	}
}

// Message is a single entry in a conversation. Messages are immutable once
// appended; the conversation owns them exclusively.
type Message struct {
	ID        string    `json:"id"`
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// ModelUsed records the concrete model that produced an assistant message.
	ModelUsed string `json:"model_used,omitempty"`
}

// NewMessage creates a message with a generated ID and the current timestamp.
func NewMessage(role ChatRole, content string) Message {
	return Message{
		ID:        "msg_" + uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

const (
	// MaxTemperature is the upper bound accepted for sampling temperature.
	MaxTemperature = 2.0

	// MaxTokensLimit is the largest completion budget the API accepts.
	MaxTokensLimit = 32768

	// DefaultTemperature is applied when the client sends none.
	DefaultTemperature = 0.7
)

// ModelSettings holds the generation parameters attached to a conversation.
type ModelSettings struct {
	Provider     ProviderType `json:"provider"`
	Model        string       `json:"model"`
	Temperature  float64      `json:"temperature"`
	MaxTokens    int          `json:"max_tokens,omitempty"`
	SystemPrompt string       `json:"system_prompt,omitempty"`
}

// Validate checks the settings against the documented bounds.
func (s ModelSettings) Validate() error {
	if !s.Provider.IsValid() {
		return fmt.Errorf("unknown provider %q", s.Provider)
	}
	if s.Model == "" {
		return fmt.Errorf("model is required")
	}
	if s.Temperature < 0 || s.Temperature > MaxTemperature {
		return fmt.Errorf("temperature %.2f out of range [0, %.0f]", s.Temperature, MaxTemperature)
	}
	if s.MaxTokens < 0 || s.MaxTokens > MaxTokensLimit {
		return fmt.Errorf("max_tokens %d out of range [0, %d]", s.MaxTokens, MaxTokensLimit)
	}
	return nil
}

// Conversation is a titled, ordered sequence of messages tied to one set of
// model settings.
type Conversation struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Messages  []Message     `json:"messages"`
	Settings  ModelSettings `json:"settings"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewConversation creates an empty conversation with a generated ID.
// When title is empty a timestamped default is used, matching the form
// "Chat 2024-01-02 15:04".
func NewConversation(title string, settings ModelSettings) *Conversation {
	now := time.Now().UTC()
	if title == "" {
		title = "Chat " + now.Local().Format("2006-01-02 15:04")
	}
	return &Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		Messages:  make([]Message, 0),
		Settings:  settings,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AppendMessage adds a message to the end of the conversation and bumps the
// updated timestamp. Insertion order is the only ordering guarantee.
func (c *Conversation) AppendMessage(msg Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now().UTC()
}

// SetTitle renames the conversation.
func (c *Conversation) SetTitle(title string) {
	c.Title = title
	c.UpdatedAt = time.Now().UTC()
}

// ClearMessages removes all messages, keeping identity and settings.
func (c *Conversation) ClearMessages() {
	c.Messages = make([]Message, 0)
	c.UpdatedAt = time.Now().UTC()
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// Preview returns the first user message truncated for list views.
func (c *Conversation) Preview() string {
	for _, msg := range c.Messages {
		if msg.Role == RoleUser && msg.Content != "" {
			return truncate(msg.Content, 80)
		}
	}
	return ""
}

// Clone returns a deep copy of the conversation. Store implementations hand
// out clones so callers can never mutate shared state.
func (c *Conversation) Clone() *Conversation {
	clone := *c
	clone.Messages = make([]Message, len(c.Messages))
	copy(clone.Messages, c.Messages)
	return &clone
}

// Meta returns lightweight metadata for listing.
func (c *Conversation) Meta() ConversationMeta {
	return ConversationMeta{
		ID:           c.ID,
		Title:        c.Title,
		Provider:     c.Settings.Provider,
		Model:        c.Settings.Model,
		MessageCount: len(c.Messages),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		Preview:      c.Preview(),
	}
}

// ConversationMeta is the listing projection of a conversation.
type ConversationMeta struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Provider     ProviderType `json:"provider"`
	Model        string       `json:"model"`
	MessageCount int          `json:"message_count"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Preview      string       `json:"preview"`
}

// truncate shortens s to max runes, appending "..." when cut. Newlines are
// collapsed so previews stay single-line.
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
