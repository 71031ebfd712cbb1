package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/polychat/polychat-api/internal/domain"
)

// MemoryStore is a thread-safe in-memory conversation store.
// Keys are conversation ids; values are the canonical copies, cloned on the
// way in and out so handlers can never alias shared state.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*domain.Conversation
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*domain.Conversation),
	}
}

// Create persists a new conversation.
func (s *MemoryStore) Create(conv *domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.conversations[conv.ID]; exists {
		return fmt.Errorf("conversation %q already exists", conv.ID)
	}
	s.conversations[conv.ID] = conv.Clone()
	return nil
}

// Get returns a copy of the conversation with the given id.
func (s *MemoryStore) Get(id string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return conv.Clone(), nil
}

// List returns metadata for all conversations, most recently updated first.
func (s *MemoryStore) List() ([]domain.ConversationMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metas := make([]domain.ConversationMeta, 0, len(s.conversations))
	for _, conv := range s.conversations {
		metas = append(metas, conv.Meta())
	}
	sortMetas(metas)
	return metas, nil
}

// Delete removes a conversation by id.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return ErrNotFound
	}
	delete(s.conversations, id)
	return nil
}

// AppendMessage appends a message to the conversation's history.
func (s *MemoryStore) AppendMessage(id string, msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return ErrNotFound
	}
	conv.AppendMessage(msg)
	return nil
}

// Rename updates the conversation title.
func (s *MemoryStore) Rename(id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return ErrNotFound
	}
	conv.SetTitle(title)
	return nil
}

// ClearMessages removes all messages from a conversation.
func (s *MemoryStore) ClearMessages(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return ErrNotFound
	}
	conv.ClearMessages()
	return nil
}

// Search returns conversations whose title or messages contain the query.
func (s *MemoryStore) Search(query string) ([]domain.ConversationMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.ToLower(query)
	var metas []domain.ConversationMeta
	for _, conv := range s.conversations {
		if conversationMatches(conv, query) {
			metas = append(metas, conv.Meta())
		}
	}
	sortMetas(metas)
	return metas, nil
}

// Stats reports storage statistics.
func (s *MemoryStore) Stats() (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totalMessages := 0
	for _, conv := range s.conversations {
		totalMessages += len(conv.Messages)
	}
	return Stats{
		Backend:            "memory",
		TotalConversations: len(s.conversations),
		TotalMessages:      totalMessages,
	}, nil
}

// Close is a no-op for the memory backend.
func (s *MemoryStore) Close() error {
	return nil
}

// conversationMatches reports whether the lower-cased query occurs in the
// conversation title or any message content.
func conversationMatches(conv *domain.Conversation, query string) bool {
	if strings.Contains(strings.ToLower(conv.Title), query) {
		return true
	}
	for _, msg := range conv.Messages {
		if strings.Contains(strings.ToLower(msg.Content), query) {
			return true
		}
	}
	return false
}

// sortMetas orders metadata most recently updated first.
func sortMetas(metas []domain.ConversationMeta) {
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
}

var _ Store = (*MemoryStore)(nil)
