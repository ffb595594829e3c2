package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"career-hub/internal/jobs"
	"career-hub/internal/llm/llmtest"
	"career-hub/internal/vectorstore"
)

func newTestAgent(t *testing.T, chat *llmtest.Chat) (*Agent, *vectorstore.MemoryStore) {
	t.Helper()
	store := vectorstore.NewMemoryStore()
	agent := NewAgent(store, &llmtest.Embedder{Dim: 32}, chat, Config{Dimensions: 32})
	return agent, store
}

func TestRunWithoutDocumentsReturnsFallback(t *testing.T) {
	chat := llmtest.NewChat()
	agent, _ := newTestAgent(t, chat)
	if err := agent.EnsureCollection(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	got, err := agent.Run(context.Background(), "what skills does a data engineer need?")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != NoResultsAnswer {
		t.Fatalf("expected fallback answer, got %q", got)
	}
	if chat.Calls() != 0 {
		t.Fatalf("expected no llm call, got %d", chat.Calls())
	}
}

func TestRetrieveErrorsYieldEmptyResult(t *testing.T) {
	chat := llmtest.NewChat()
	store := vectorstore.NewMemoryStore()
	agent := NewAgent(store, &llmtest.Embedder{Err: errors.New("boom")}, chat, Config{})

	if got := agent.Retrieve(context.Background(), "anything", 3); len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}
	got, err := agent.Run(context.Background(), "anything")
	if err != nil || got != NoResultsAnswer {
		t.Fatalf("expected fallback without error, got %q %v", got, err)
	}
}

func TestRunBuildsContextFromNearestListings(t *testing.T) {
	ctx := context.Background()
	chat := llmtest.NewChat("Data engineers need Spark and Airflow.")
	agent, _ := newTestAgent(t, chat)

	n, err := NewIndexer(agent).IndexListings(ctx, []jobs.Listing{
		{ID: "1", Title: "Data Engineer", Skills: []string{"Spark", "Airflow"}, Description: "data engineer pipelines spark airflow"},
		{ID: "2", Title: "Barista", Description: "coffee espresso latte"},
		{ID: "3", Title: "Chef", Description: "kitchen cooking menu"},
		{ID: "4", Title: "Pilot", Description: "aircraft flying"},
	})
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 indexed, got %d", n)
	}

	answer, err := agent.Run(ctx, "data engineer spark airflow skills")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if answer != "Data engineers need Spark and Airflow." {
		t.Fatalf("unexpected answer %q", answer)
	}

	prompt := chat.LastUserMessage()
	if !strings.Contains(prompt, "Title: Data Engineer") {
		t.Fatalf("expected nearest listing in context:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Question: data engineer spark airflow skills") {
		t.Fatalf("expected question in prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "I don't have enough information in my knowledge base to answer this.") {
		t.Fatalf("expected refusal instruction in prompt")
	}
	if got := strings.Count(prompt, "Title: "); got != DefaultLimit {
		t.Fatalf("expected %d passages in context, got %d", DefaultLimit, got)
	}
	req := chat.Requests[0]
	if req.Model != DefaultModel || req.Temperature == nil || *req.Temperature != 0 {
		t.Fatalf("unexpected request settings: model=%s temp=%v", req.Model, req.Temperature)
	}
}

func TestRetrieveFallsBackToPayloadText(t *testing.T) {
	ctx := context.Background()
	agent, store := newTestAgent(t, llmtest.NewChat())
	if err := agent.EnsureCollection(ctx); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	vec, _ := agent.Embedder.Embed(ctx, []string{"remote golang"})
	if err := store.Upsert(ctx, DefaultCollection, []vectorstore.Document{
		{ID: "p", Payload: map[string]any{"content": "Remote Golang role"}, Vector: vec[0]},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	matches := agent.Retrieve(ctx, "remote golang", 3)
	if len(matches) != 1 || matches[0].Text != "Remote Golang role" {
		t.Fatalf("unexpected matches: %+v", matches)
	}
}

func TestJoinContext(t *testing.T) {
	got := JoinContext([]vectorstore.Match{
		{Document: vectorstore.Document{Text: "a"}},
		{Document: vectorstore.Document{Text: "  "}},
		{Document: vectorstore.Document{Text: "b"}},
	})
	if got != "a\n\nb" {
		t.Fatalf("unexpected context %q", got)
	}
}
