package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"career-hub/internal/llm"
	"career-hub/internal/shared/metrics"
	"career-hub/internal/shared/telemetry"
	"career-hub/internal/vectorstore"
)

const (
	DefaultCollection = "job_market"
	DefaultDimensions = 1536
	DefaultLimit      = 3
	DefaultModel      = "gpt-4o-mini"

	// NoResultsAnswer is returned when retrieval finds nothing.
	NoResultsAnswer = "I couldn't find any relevant information in the database."
)

// Agent answers questions from passages retrieved out of the vector store.
type Agent struct {
	Store      vectorstore.Store
	Embedder   llm.Embedder
	LLM        llm.ChatModel
	Model      string
	Collection string
	Dimensions int
}

// Config carries the tunables of an Agent.
type Config struct {
	Model      string
	Collection string
	Dimensions int
}

// NewAgent constructs an Agent, filling defaults for empty settings.
func NewAgent(store vectorstore.Store, embedder llm.Embedder, model llm.ChatModel, cfg Config) *Agent {
	a := &Agent{
		Store:      store,
		Embedder:   embedder,
		LLM:        model,
		Model:      cfg.Model,
		Collection: cfg.Collection,
		Dimensions: cfg.Dimensions,
	}
	if a.Model == "" {
		a.Model = DefaultModel
	}
	if a.Collection == "" {
		a.Collection = DefaultCollection
	}
	if a.Dimensions <= 0 {
		a.Dimensions = DefaultDimensions
	}
	return a
}

// EnsureCollection creates the collection with the configured vector size if
// it does not exist yet.
func (a *Agent) EnsureCollection(ctx context.Context) error {
	if err := a.Store.EnsureCollection(ctx, a.Collection, a.Dimensions); err != nil {
		return fmt.Errorf("ensure collection %s: %w", a.Collection, err)
	}
	telemetry.Info("rag.collection.ready", map[string]any{
		"collection": a.Collection,
		"dimensions": a.Dimensions,
	})
	return nil
}

// Retrieve embeds the query and returns the nearest passages. Failures are
// logged and reported as an empty result.
func (a *Agent) Retrieve(ctx context.Context, query string, limit int) []vectorstore.Match {
	if limit <= 0 {
		limit = DefaultLimit
	}
	start := time.Now()
	matches, err := a.retrieve(ctx, query, limit)
	fields := map[string]any{
		"request_id":  telemetry.RequestIDFrom(ctx),
		"collection":  a.Collection,
		"limit":       limit,
		"duration_ms": metrics.SinceMillis(start),
	}
	if err != nil {
		fields["error"] = err
		telemetry.Error("rag.retrieve.failed", fields)
		metrics.IncAgentError("rag")
		return nil
	}
	fields["results"] = len(matches)
	telemetry.Info("rag.retrieve", fields)
	return matches
}

func (a *Agent) retrieve(ctx context.Context, query string, limit int) ([]vectorstore.Match, error) {
	vectors, err := a.Embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, errors.New("embed query: no vector returned")
	}
	matches, err := a.Store.Search(ctx, a.Collection, vectors[0], limit)
	if err != nil {
		return nil, err
	}
	for i := range matches {
		if strings.TrimSpace(matches[i].Text) == "" {
			matches[i].Text = vectorstore.TextFromPayload(matches[i].Payload)
		}
	}
	return matches, nil
}

// Run retrieves context for query and asks the model to answer from it only.
func (a *Agent) Run(ctx context.Context, query string) (string, error) {
	telemetry.Info("rag.run", map[string]any{
		"request_id": telemetry.RequestIDFrom(ctx),
		"query":      telemetry.TruncateForLog(query, 200),
	})

	matches := a.Retrieve(ctx, query, DefaultLimit)
	if len(matches) == 0 {
		return NoResultsAnswer, nil
	}

	prompt, err := llm.Render(llm.PromptRAG, map[string]string{
		"context":  JoinContext(matches),
		"question": query,
	})
	if err != nil {
		return "", err
	}
	answer, err := llm.Complete(ctx, a.LLM, a.Model, llm.Temperature(0), "", prompt)
	if err != nil {
		metrics.IncAgentError("rag")
		return "", fmt.Errorf("rag generate: %w", err)
	}
	return answer, nil
}

// JoinContext joins passage texts with a blank line between them.
func JoinContext(matches []vectorstore.Match) string {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		if text := strings.TrimSpace(m.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}
