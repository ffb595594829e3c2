package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"
)

// PGStore keeps vectors in Postgres with the pgvector extension. Tables are
// created by the application migrations.
type PGStore struct {
	db *sql.DB
}

// NewPGStore constructs a PGStore.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) EnsureCollection(ctx context.Context, name string, dimensions int) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO vector_collections (name, dimensions)
		VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING
	`, name, dimensions); err != nil {
		return fmt.Errorf("create vector collection %s: %w", name, err)
	}
	existing, err := s.dimensions(ctx, name)
	if err != nil {
		return err
	}
	if existing != dimensions {
		return fmt.Errorf("%w: collection %s has %d dimensions", ErrDimensionMismatch, name, existing)
	}
	return nil
}

func (s *PGStore) Upsert(ctx context.Context, collection string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	dims, err := s.dimensions(ctx, collection)
	if err != nil {
		return err
	}
	if err := validateDocs(docs, dims); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin vector upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, d := range docs {
		payload, err := json.Marshal(d.Payload)
		if err != nil {
			return fmt.Errorf("encode payload %s: %w", d.ID, err)
		}
		if d.Payload == nil {
			payload = []byte("{}")
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO vector_documents (collection, id, content, payload, embedding)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (collection, id) DO UPDATE SET
				content = EXCLUDED.content,
				payload = EXCLUDED.payload,
				embedding = EXCLUDED.embedding
		`, collection, d.ID, d.Text, payload, pgvector.NewVector(d.Vector)); err != nil {
			return fmt.Errorf("upsert vector %s: %w", d.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit vector upsert: %w", err)
	}
	return nil
}

func (s *PGStore) Search(ctx context.Context, collection string, vector []float32, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 3
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, payload, embedding <=> $2 AS distance
		FROM vector_documents
		WHERE collection = $1
		ORDER BY embedding <=> $2
		LIMIT $3
	`, collection, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, fmt.Errorf("search vectors: %w", err)
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var (
			m        Match
			payload  []byte
			distance float64
		)
		if err := rows.Scan(&m.ID, &m.Text, &payload, &distance); err != nil {
			return nil, fmt.Errorf("scan vector match: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &m.Payload); err != nil {
				return nil, fmt.Errorf("decode payload %s: %w", m.ID, err)
			}
		}
		m.Score = 1 - distance
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PGStore) dimensions(ctx context.Context, name string) (int, error) {
	var dims int
	err := s.db.QueryRowContext(ctx, `SELECT dimensions FROM vector_collections WHERE name = $1`, name).Scan(&dims)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if err != nil {
		return 0, fmt.Errorf("read vector collection %s: %w", name, err)
	}
	return dims, nil
}

var _ Store = (*PGStore)(nil)
