package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Message roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one chat turn. Assistant messages may carry tool calls; tool
// messages answer a call by ToolCallID.
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ToolSpec advertises a callable tool. Parameters is a JSON schema object.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Usage reports token accounting for one request.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ChatRequest is a provider-neutral chat completion request.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature *float32
	Tools       []ToolSpec
}

// ChatResponse is the first choice of a chat completion.
type ChatResponse struct {
	Model     string
	Content   string
	ToolCalls []ToolCall
	Usage     Usage
}

// ChatModel produces chat completions.
type ChatModel interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// Embedder turns texts into vectors, one per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Transcriber converts recorded speech into text.
type Transcriber interface {
	Transcribe(ctx context.Context, fileName string, audio io.Reader) (string, error)
}

var (
	// ErrNotConfigured is returned when no provider credentials are set.
	ErrNotConfigured = errors.New("llm provider not configured")
	// ErrEmptyResponse is returned when the model answers with no content.
	ErrEmptyResponse = errors.New("llm response empty content")
	// ErrToolsUnsupported is returned by providers without function calling.
	ErrToolsUnsupported = errors.New("llm provider does not support tool calling")
)

// StatusError is a non-2xx response from a provider API.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s http status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Unconfigured satisfies every provider interface and always fails with
// ErrNotConfigured, so the API can boot without credentials.
type Unconfigured struct{}

func (Unconfigured) Chat(context.Context, ChatRequest) (ChatResponse, error) {
	return ChatResponse{}, ErrNotConfigured
}

func (Unconfigured) Embed(context.Context, []string) ([][]float32, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) Transcribe(context.Context, string, io.Reader) (string, error) {
	return "", ErrNotConfigured
}

// Temperature converts a config value into the optional request field.
func Temperature(v float64) *float32 {
	f := float32(v)
	return &f
}

// Complete sends an optional system prompt plus one user prompt and returns the
// trimmed answer text.
func Complete(ctx context.Context, model ChatModel, modelName string, temperature *float32, system, user string) (string, error) {
	msgs := make([]Message, 0, 2)
	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: user})

	resp, err := model.Chat(ctx, ChatRequest{Model: modelName, Messages: msgs, Temperature: temperature})
	if err != nil {
		return "", err
	}
	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

var (
	_ ChatModel   = Unconfigured{}
	_ Embedder    = Unconfigured{}
	_ Transcriber = Unconfigured{}
)
