package store

import (
	"encoding/json"
	"fmt"
	"strings"

	bolt "go.etcd.io/bbolt"

	"github.com/polychat/polychat-api/internal/domain"
)

// conversationsBucket holds JSON-encoded conversations keyed by id.
var conversationsBucket = []byte("conversations")

// BoltStore is a bbolt-backed conversation store. A single file on disk holds
// one bucket of JSON-encoded conversations keyed by id.
type BoltStore struct {
	db   *bolt.DB
	path string
}

// NewBoltStore opens (or creates) the database file at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(conversationsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create conversations bucket: %w", err)
	}

	return &BoltStore{db: db, path: path}, nil
}

// Create persists a new conversation.
func (s *BoltStore) Create(conv *domain.Conversation) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(conversationsBucket)
		if bucket.Get([]byte(conv.ID)) != nil {
			return fmt.Errorf("conversation %q already exists", conv.ID)
		}
		return putConversation(bucket, conv)
	})
}

// Get returns the conversation with the given id.
func (s *BoltStore) Get(id string) (*domain.Conversation, error) {
	var conv *domain.Conversation
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		conv, err = getConversation(tx.Bucket(conversationsBucket), id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// List returns metadata for all conversations, most recently updated first.
func (s *BoltStore) List() ([]domain.ConversationMeta, error) {
	var metas []domain.ConversationMeta
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(conversationsBucket).ForEach(func(k, v []byte) error {
			var conv domain.Conversation
			if err := json.Unmarshal(v, &conv); err != nil {
				// Skip corrupted entries rather than failing the listing.
				return nil
			}
			metas = append(metas, conv.Meta())
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortMetas(metas)
	return metas, nil
}

// Delete removes a conversation by id.
func (s *BoltStore) Delete(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(conversationsBucket)
		if bucket.Get([]byte(id)) == nil {
			return ErrNotFound
		}
		return bucket.Delete([]byte(id))
	})
}

// AppendMessage appends a message to the conversation's history.
func (s *BoltStore) AppendMessage(id string, msg domain.Message) error {
	return s.update(id, func(conv *domain.Conversation) {
		conv.AppendMessage(msg)
	})
}

// Rename updates the conversation title.
func (s *BoltStore) Rename(id, title string) error {
	return s.update(id, func(conv *domain.Conversation) {
		conv.SetTitle(title)
	})
}

// ClearMessages removes all messages from a conversation.
func (s *BoltStore) ClearMessages(id string) error {
	return s.update(id, func(conv *domain.Conversation) {
		conv.ClearMessages()
	})
}

// Search returns conversations whose title or messages contain the query.
func (s *BoltStore) Search(query string) ([]domain.ConversationMeta, error) {
	query = strings.ToLower(query)
	var metas []domain.ConversationMeta
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(conversationsBucket).ForEach(func(k, v []byte) error {
			var conv domain.Conversation
			if err := json.Unmarshal(v, &conv); err != nil {
				return nil
			}
			if conversationMatches(&conv, query) {
				metas = append(metas, conv.Meta())
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortMetas(metas)
	return metas, nil
}

// Stats reports storage statistics including the database path.
func (s *BoltStore) Stats() (Stats, error) {
	stats := Stats{Backend: "bolt", Path: s.path}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(conversationsBucket).ForEach(func(k, v []byte) error {
			var conv domain.Conversation
			if err := json.Unmarshal(v, &conv); err != nil {
				return nil
			}
			stats.TotalConversations++
			stats.TotalMessages += len(conv.Messages)
			return nil
		})
	})
	if err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// update loads, mutates and rewrites a conversation inside one transaction.
func (s *BoltStore) update(id string, mutate func(*domain.Conversation)) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(conversationsBucket)
		conv, err := getConversation(bucket, id)
		if err != nil {
			return err
		}
		mutate(conv)
		return putConversation(bucket, conv)
	})
}

// getConversation decodes the stored conversation, or returns ErrNotFound.
func getConversation(bucket *bolt.Bucket, id string) (*domain.Conversation, error) {
	data := bucket.Get([]byte(id))
	if data == nil {
		return nil, ErrNotFound
	}
	var conv domain.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("failed to decode conversation %q: %w", id, err)
	}
	return &conv, nil
}

// putConversation encodes and writes the conversation.
func putConversation(bucket *bolt.Bucket, conv *domain.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to encode conversation %q: %w", conv.ID, err)
	}
	return bucket.Put([]byte(conv.ID), data)
}

var _ Store = (*BoltStore)(nil)
