package conversations

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu       sync.RWMutex
	convs    map[string]Conversation
	messages map[string][]Message
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		convs:    make(map[string]Conversation),
		messages: make(map[string][]Message),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, conv Conversation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.convs[conv.ID] = conv
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, userID, id string) (Conversation, error) {
	if err := ctx.Err(); err != nil {
		return Conversation{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	conv, ok := r.convs[id]
	if !ok || conv.UserID != userID {
		return Conversation{}, ErrNotFound
	}
	return conv, nil
}

// List returns conversations most recently updated first.
func (r *MemoryRepo) List(ctx context.Context, userID string, limit, offset int) ([]Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	var out []Conversation
	for _, conv := range r.convs {
		if conv.UserID == userID {
			out = append(out, conv)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return []Conversation{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) AppendMessages(ctx context.Context, conv Conversation, msgs ...Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.convs[conv.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Title == "" {
		stored.Title = conv.Title
	}
	stored.UpdatedAt = conv.UpdatedAt
	r.convs[conv.ID] = stored
	r.messages[conv.ID] = append(r.messages[conv.ID], msgs...)
	return nil
}

func (r *MemoryRepo) Messages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	msgs := r.messages[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.convs[id]
	if !ok || conv.UserID != userID {
		return ErrNotFound
	}
	delete(r.convs, id)
	delete(r.messages, id)
	return nil
}

func (r *MemoryRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, conv := range r.convs {
		if conv.UserID == guestUserID {
			conv.UserID = authedUserID
			r.convs[id] = conv
			n++
		}
	}
	return n, nil
}

var _ Repo = (*MemoryRepo)(nil)
