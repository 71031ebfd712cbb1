// Package store provides conversation persistence behind a single interface,
// with an in-memory backend and a bbolt-backed one.
package store

import (
	"errors"

	"github.com/polychat/polychat-api/internal/domain"
)

// ErrNotFound is returned when no conversation exists for the given id.
var ErrNotFound = errors.New("conversation not found")

// Stats reports storage statistics.
type Stats struct {
	// Backend names the active implementation ("memory" or "bolt").
	Backend string `json:"backend"`

	// TotalConversations is the number of stored conversations.
	TotalConversations int `json:"total_conversations"`

	// TotalMessages is the number of messages across all conversations.
	TotalMessages int `json:"total_messages"`

	// Path is the database file location for persistent backends.
	Path string `json:"path,omitempty"`
}

// Store is the conversation persistence contract. All methods are safe for
// concurrent use. Implementations return defensive copies: mutating a
// returned conversation never affects stored state.
type Store interface {
	// Create persists a new conversation. The id must not already exist.
	Create(conv *domain.Conversation) error

	// Get returns the conversation with the given id, or ErrNotFound.
	Get(id string) (*domain.Conversation, error)

	// List returns metadata for all conversations, most recently updated first.
	List() ([]domain.ConversationMeta, error)

	// Delete removes the conversation with the given id, or returns ErrNotFound.
	Delete(id string) error

	// AppendMessage appends a message to the conversation's history.
	AppendMessage(id string, msg domain.Message) error

	// Rename updates the conversation title.
	Rename(id, title string) error

	// ClearMessages removes all messages, keeping the conversation itself.
	ClearMessages(id string) error

	// Search returns metadata for conversations whose title or message
	// content contains the query, case-insensitively.
	Search(query string) ([]domain.ConversationMeta, error)

	// Stats reports storage statistics.
	Stats() (Stats, error)

	// Close releases backend resources.
	Close() error
}
