package message

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store with an in-memory slice. It is the default
// driver and loses its contents on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	items []Message
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make([]Message, 0, 16)}
}

// Save appends the message, assigning ID and CreatedAt when unset.
func (s *MemoryStore) Save(_ context.Context, msg Message) (Message, error) {
	if msg.Name == "" && msg.Email == "" && msg.Body == "" {
		return Message{}, ErrEmptyMessage
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	s.items = append(s.items, msg)
	s.mu.Unlock()

	return msg, nil
}

// List returns up to limit messages, newest first.
func (s *MemoryStore) List(_ context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.items)
	if limit > n {
		limit = n
	}

	out := make([]Message, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.items[i])
	}
	return out, nil
}

// Count returns the number of stored messages.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}
