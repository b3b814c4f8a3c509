package message

import (
	"context"
	"errors"
	"time"
)

// ErrEmptyMessage rejects submissions with no sender or body.
var ErrEmptyMessage = errors.New("message is empty")

// DefaultListLimit caps List calls that pass a non-positive limit.
const DefaultListLimit = 200

// Message is a single contact-form submission.
type Message struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store exposes submission persistence to HTTP handlers.
type Store interface {
	// Save persists the message, assigning ID and CreatedAt when unset,
	// and returns the stored value.
	Save(ctx context.Context, msg Message) (Message, error)
	// List returns up to limit messages, newest first. A non-positive
	// limit falls back to DefaultListLimit.
	List(ctx context.Context, limit int) ([]Message, error)
	// Count returns the total number of stored messages.
	Count(ctx context.Context) (int, error)
}
