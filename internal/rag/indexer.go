package rag

import (
	"context"
	"fmt"

	"career-hub/internal/jobs"
	"career-hub/internal/shared/telemetry"
	"career-hub/internal/vectorstore"
)

const defaultBatchSize = 64

// Indexer embeds job listings into the agent's collection.
type Indexer struct {
	Agent     *Agent
	BatchSize int
}

// NewIndexer constructs an Indexer for the agent's store and collection.
func NewIndexer(agent *Agent) *Indexer {
	return &Indexer{Agent: agent, BatchSize: defaultBatchSize}
}

// IndexListings embeds listings in batches and upserts them. It returns the
// number of indexed listings.
func (ix *Indexer) IndexListings(ctx context.Context, listings []jobs.Listing) (int, error) {
	if err := ix.Agent.EnsureCollection(ctx); err != nil {
		return 0, err
	}
	batch := ix.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	indexed := 0
	for start := 0; start < len(listings); start += batch {
		end := start + batch
		if end > len(listings) {
			end = len(listings)
		}
		chunk := listings[start:end]

		texts := make([]string, len(chunk))
		for i, l := range chunk {
			texts[i] = l.Document()
		}
		vectors, err := ix.Agent.Embedder.Embed(ctx, texts)
		if err != nil {
			return indexed, fmt.Errorf("embed listings %d-%d: %w", start, end, err)
		}
		if len(vectors) != len(chunk) {
			return indexed, fmt.Errorf("embed listings %d-%d: got %d vectors", start, end, len(vectors))
		}

		docs := make([]vectorstore.Document, len(chunk))
		for i, l := range chunk {
			docs[i] = vectorstore.Document{
				ID:      l.ID,
				Text:    texts[i],
				Payload: l.Payload(),
				Vector:  vectors[i],
			}
		}
		if err := ix.Agent.Store.Upsert(ctx, ix.Agent.Collection, docs); err != nil {
			return indexed, fmt.Errorf("upsert listings %d-%d: %w", start, end, err)
		}
		indexed += len(chunk)
		telemetry.Info("rag.index.batch", map[string]any{
			"collection": ix.Agent.Collection,
			"indexed":    indexed,
			"total":      len(listings),
		})
	}
	return indexed, nil
}

// IndexRepo indexes every listing in the repository.
func (ix *Indexer) IndexRepo(ctx context.Context, repo jobs.Repo) (int, error) {
	listings, err := repo.List(ctx, jobs.Filter{})
	if err != nil {
		return 0, err
	}
	return ix.IndexListings(ctx, listings)
}
