package conversations

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"career-hub/internal/llm"
	"career-hub/internal/orchestrator"
	"career-hub/internal/shared/telemetry"
)

const (
	historyWindow  = 10
	maxTitleRunes  = 60
	maxMessageSize = 4000
)

// Answerer produces the assistant reply for a question.
type Answerer interface {
	Answer(ctx context.Context, query string, history []orchestrator.Turn, mode orchestrator.Mode, emit orchestrator.Emitter) orchestrator.Reply
}

// Service contains business logic for conversations.
type Service struct {
	Repo     Repo
	Answerer Answerer
	Now      func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repo, answerer Answerer) *Service {
	return &Service{Repo: repo, Answerer: answerer, Now: time.Now}
}

// Exchange is one user message and the reply it produced.
type Exchange struct {
	User      Message
	Assistant Message
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// Create starts an empty conversation.
func (s *Service) Create(ctx context.Context, userID, title string) (Conversation, error) {
	if userID == "" {
		return Conversation{}, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	now := s.now()
	conv := Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     titleFrom(title),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Create(ctx, conv); err != nil {
		return Conversation{}, err
	}
	return conv, nil
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Conversation, error) {
	return s.Repo.List(ctx, userID, limit, offset)
}

func (s *Service) Get(ctx context.Context, userID, id string) (Conversation, error) {
	return s.Repo.Get(ctx, userID, id)
}

// Messages returns a conversation's messages after checking ownership.
func (s *Service) Messages(ctx context.Context, userID, id string, limit int) ([]Message, error) {
	if _, err := s.Repo.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.Repo.Messages(ctx, id, limit)
}

// Delete clears a conversation and its messages.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.Repo.Delete(ctx, userID, id)
}

// Claim moves a guest's conversations to the authenticated user.
func (s *Service) Claim(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	if guestUserID == "" || authedUserID == "" || guestUserID == authedUserID {
		return 0, nil
	}
	return s.Repo.ClaimGuest(ctx, guestUserID, authedUserID)
}

// ValidateContent trims a chat message and rejects empty or oversized ones.
func ValidateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(content) > maxMessageSize {
		return "", fmt.Errorf("%w: content exceeds %d characters", ErrInvalidInput, maxMessageSize)
	}
	return content, nil
}

// Send answers content in the context of the conversation's recent history
// and stores both turns. Events are forwarded to emit while answering.
func (s *Service) Send(ctx context.Context, userID, id, content string, mode orchestrator.Mode, emit orchestrator.Emitter) (Exchange, error) {
	content, err := ValidateContent(content)
	if err != nil {
		return Exchange{}, err
	}

	conv, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return Exchange{}, err
	}
	prior, err := s.Repo.Messages(ctx, id, historyWindow)
	if err != nil {
		return Exchange{}, fmt.Errorf("load history: %w", err)
	}

	history := make([]orchestrator.Turn, 0, len(prior))
	for _, m := range prior {
		history = append(history, orchestrator.Turn{Role: m.Role, Content: m.Content})
	}

	userMsg := Message{
		ID:             uuid.NewString(),
		ConversationID: id,
		Role:           llm.RoleUser,
		Content:        content,
		CreatedAt:      s.now(),
	}
	reply := s.Answerer.Answer(ctx, content, history, mode, emit)
	assistantMsg := Message{
		ID:             uuid.NewString(),
		ConversationID: id,
		Role:           llm.RoleAssistant,
		Content:        reply.Content,
		Route:          string(reply.Route),
		CreatedAt:      s.now(),
	}
	if !assistantMsg.CreatedAt.After(userMsg.CreatedAt) {
		assistantMsg.CreatedAt = userMsg.CreatedAt.Add(time.Millisecond)
	}

	conv.Title = titleFrom(content)
	conv.UpdatedAt = assistantMsg.CreatedAt
	// Stored even when the client disconnected mid-answer.
	if err := s.Repo.AppendMessages(telemetry.Detach(ctx), conv, userMsg, assistantMsg); err != nil {
		return Exchange{}, fmt.Errorf("store messages: %w", err)
	}

	telemetry.Info("conversation.message", map[string]any{
		"request_id":      telemetry.RequestIDFrom(ctx),
		"conversation_id": id,
		"route":           reply.Route,
		"fallback":        reply.Failed,
	})
	return Exchange{User: userMsg, Assistant: assistantMsg}, nil
}

func titleFrom(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= maxTitleRunes {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:maxTitleRunes])) + "…"
}
