package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the persistence operations the relay core depends on.
type Store interface {
	// GetChatbot fetches a chatbot by id.
	GetChatbot(ctx context.Context, id string) (*Chatbot, error)

	// GetTheme fetches a theme by id.
	GetTheme(ctx context.Context, id string) (*Theme, error)

	// SaveChatbot creates or updates a chatbot.
	SaveChatbot(ctx context.Context, chatbot *Chatbot) error

	// SaveTheme creates or updates a theme.
	SaveTheme(ctx context.Context, theme *Theme) error

	// Close closes the database connection.
	Close() error
}
