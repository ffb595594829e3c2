package conversations

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Conversation is a persisted chat thread owned by a user.
type Conversation struct {
	ID        string
	UserID    string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is one turn of a conversation. Route is set on assistant replies.
type Message struct {
	ID             string
	ConversationID string
	Role           string
	Content        string
	Route          string
	CreatedAt      time.Time
}
