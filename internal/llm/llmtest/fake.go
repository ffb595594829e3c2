// Package llmtest provides scripted model fakes for tests.
package llmtest

import (
	"context"
	"errors"
	"hash/fnv"
	"io"
	"strings"
	"sync"

	"career-hub/internal/llm"
)

// Chat replays scripted replies in order and records every request. When
// Func is set it takes precedence over the script.
type Chat struct {
	mu       sync.Mutex
	Replies  []llm.ChatResponse
	Errs     []error
	Func     func(req llm.ChatRequest) (llm.ChatResponse, error)
	Requests []llm.ChatRequest
	calls    int
}

// NewChat scripts plain text replies.
func NewChat(replies ...string) *Chat {
	c := &Chat{}
	for _, r := range replies {
		c.Replies = append(c.Replies, llm.ChatResponse{Content: r})
	}
	return c
}

func (c *Chat) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return llm.ChatResponse{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Requests = append(c.Requests, req)
	idx := c.calls
	c.calls++

	if c.Func != nil {
		return c.Func(req)
	}
	if idx < len(c.Errs) && c.Errs[idx] != nil {
		return llm.ChatResponse{}, c.Errs[idx]
	}
	if idx >= len(c.Replies) {
		return llm.ChatResponse{}, errors.New("llmtest: no scripted reply left")
	}
	return c.Replies[idx], nil
}

// Calls returns the number of Chat invocations.
func (c *Chat) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// LastUserMessage returns the content of the last user message sent.
func (c *Chat) LastUserMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Requests) == 0 {
		return ""
	}
	msgs := c.Requests[len(c.Requests)-1].Messages
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == llm.RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}

// Embedder hashes words into Dim buckets, so texts sharing words land close
// together under cosine distance.
type Embedder struct {
	Dim int
	Err error

	mu    sync.Mutex
	Calls int
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.Calls++
	e.mu.Unlock()
	if e.Err != nil {
		return nil, e.Err
	}
	dim := e.Dim
	if dim <= 0 {
		dim = 16
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, dim)
		for _, w := range strings.Fields(strings.ToLower(t)) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(strings.Trim(w, ".,:;!?")))
			v[h.Sum32()%uint32(dim)]++
		}
		out[i] = v
	}
	return out, nil
}

// Transcriber returns a fixed transcript and counts calls.
type Transcriber struct {
	Text string
	Err  error

	mu    sync.Mutex
	Calls int
}

func (t *Transcriber) Transcribe(ctx context.Context, fileName string, audio io.Reader) (string, error) {
	t.mu.Lock()
	t.Calls++
	t.mu.Unlock()
	if t.Err != nil {
		return "", t.Err
	}
	_, _ = io.Copy(io.Discard, audio)
	return t.Text, nil
}

var (
	_ llm.ChatModel   = (*Chat)(nil)
	_ llm.Embedder    = (*Embedder)(nil)
	_ llm.Transcriber = (*Transcriber)(nil)
)
