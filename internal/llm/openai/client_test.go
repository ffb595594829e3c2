package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"career-hub/internal/llm"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(Options{APIKey: "sk-test", BaseURL: srv.URL, EmbeddingDimensions: 3})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestIsGPT5(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  bool
	}{
		{name: "gpt5", model: "gpt-5", want: true},
		{name: "gpt5 variant", model: "gpt-5-mini", want: true},
		{name: "gpt5 uppercase", model: " GPT-5o ", want: true},
		{name: "gpt4", model: "gpt-4o-mini", want: false},
		{name: "empty", model: "", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := isGPT5(tt.model); got != tt.want {
				t.Fatalf("isGPT5(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

func TestChatSendsToolsAndParsesToolCalls(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing auth header")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `{
			"model": "gpt-4o-mini",
			"choices": [{"message": {"role": "assistant", "content": null, "tool_calls": [
				{"id": "call_1", "type": "function", "function": {"name": "query_job_database", "arguments": "{\"question\":\"How many jobs?\"}"}}
			]}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`)
	})

	resp, err := c.Chat(context.Background(), llm.ChatRequest{
		Model:       "gpt-4o-mini",
		Temperature: llm.Temperature(0),
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: "How many jobs?"}},
		Tools:       []llm.ToolSpec{{Name: "query_job_database", Description: "SQL", Parameters: json.RawMessage(`{"type":"object"}`)}},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "query_job_database" || resp.ToolCalls[0].ID != "call_1" {
		t.Fatalf("unexpected tool calls %+v", resp.ToolCalls)
	}
	if !strings.Contains(string(resp.ToolCalls[0].Arguments), "How many jobs?") {
		t.Fatalf("unexpected arguments %s", resp.ToolCalls[0].Arguments)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Fatalf("unexpected usage %+v", resp.Usage)
	}
	tools, _ := got["tools"].([]any)
	if len(tools) != 1 {
		t.Fatalf("expected tools in request, got %v", got["tools"])
	}
	if got["temperature"] != float64(0) {
		t.Fatalf("expected temperature 0 in request, got %v", got["temperature"])
	}
}

func TestChatOmitsTemperatureForGPT5(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"hi"}}]}`)
	})
	if _, err := c.Chat(context.Background(), llm.ChatRequest{Model: "gpt-5-mini", Temperature: llm.Temperature(0.7)}); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if _, ok := got["temperature"]; ok {
		t.Fatalf("temperature must be omitted for gpt-5 models")
	}
}

func TestChatStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
	})
	_, err := c.Chat(context.Background(), llm.ChatRequest{Model: "gpt-4o-mini"})
	var statusErr *llm.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != 429 || statusErr.Body != "slow down" || statusErr.RetryAfter.Seconds() != 3 {
		t.Fatalf("unexpected status error %+v", statusErr)
	}
	if !llm.IsTransient(err) {
		t.Fatalf("429 should be transient")
	}
}

func TestChatEmptyContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"   "}}]}`)
	})
	if _, err := c.Chat(context.Background(), llm.ChatRequest{Model: "gpt-4o-mini"}); err == nil || !strings.Contains(err.Error(), "empty content") {
		t.Fatalf("expected empty content error, got %v", err)
	}
}

func TestToWireMessagesAssistantToolCall(t *testing.T) {
	msgs := toWireMessages([]llm.Message{
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "c1", Name: "search_job_knowledge"}}},
		{Role: llm.RoleTool, ToolCallID: "c1", Content: "result"},
	})
	if msgs[0].Content != nil {
		t.Fatalf("assistant tool-call message should have null content")
	}
	if msgs[0].ToolCalls[0].Function.Arguments != "{}" {
		t.Fatalf("expected empty args object, got %q", msgs[0].ToolCalls[0].Function.Arguments)
	}
	if msgs[1].ToolCallID != "c1" || *msgs[1].Content != "result" {
		t.Fatalf("unexpected tool message %+v", msgs[1])
	}
}

func TestEmbedOrdersByIndex(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `{"data":[
			{"index":1,"embedding":[0.4,0.5,0.6]},
			{"index":0,"embedding":[0.1,0.2,0.3]}
		]}`)
	})
	vecs, err := c.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vecs) != 2 || vecs[0][0] != float32(0.1) || vecs[1][2] != float32(0.6) {
		t.Fatalf("unexpected vectors %v", vecs)
	}
	if got["model"] != "text-embedding-3-small" || got["dimensions"] != float64(3) {
		t.Fatalf("unexpected request %v", got)
	}
}

func TestEmbedMissingVector(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":[{"index":0,"embedding":[0.1]}]}`)
	})
	if _, err := c.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatalf("expected error for missing vector")
	}
}

func TestTranscribe(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if r.FormValue("model") != "whisper-1" {
			t.Errorf("unexpected model %q", r.FormValue("model"))
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			data, _ := io.ReadAll(f)
			if string(data) != "RIFFdata" || hdr.Filename != "answer.wav" {
				t.Errorf("unexpected file %q %q", hdr.Filename, data)
			}
		}
		_, _ = io.WriteString(w, `{"text":" I have five years of Go experience. "}`)
	})
	text, err := c.Transcribe(context.Background(), "uploads/answer.wav", strings.NewReader("RIFFdata"))
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "I have five years of Go experience." {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(Options{}); err == nil {
		t.Fatalf("expected missing key error")
	}
}
