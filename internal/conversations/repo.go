package conversations

import "context"

// Repo defines persistence operations for conversations.
type Repo interface {
	Create(ctx context.Context, conv Conversation) error
	Get(ctx context.Context, userID, id string) (Conversation, error)
	List(ctx context.Context, userID string, limit, offset int) ([]Conversation, error)
	// AppendMessages stores msgs in order and bumps the conversation's
	// updated_at. An empty title is replaced by title.
	AppendMessages(ctx context.Context, conv Conversation, msgs ...Message) error
	// Messages returns the last limit messages, oldest first.
	Messages(ctx context.Context, conversationID string, limit int) ([]Message, error)
	Delete(ctx context.Context, userID, id string) error
	ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error)
}
