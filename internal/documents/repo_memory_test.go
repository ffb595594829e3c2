package documents

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryRepoCurrentListAndClaim(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"d1", "d2", "d3"} {
		doc := Document{ID: id, UserID: "guest:g", FileName: id + ".pdf", CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := repo.Create(ctx, doc); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	current, err := repo.GetCurrentByUser(ctx, "guest:g")
	if err != nil || current.ID != "d3" {
		t.Fatalf("expected d3 current, got %+v %v", current, err)
	}

	tests := []struct {
		name          string
		limit, offset int
		want          []string
	}{
		{name: "all", want: []string{"d3", "d2", "d1"}},
		{name: "page", limit: 1, offset: 1, want: []string{"d2"}},
		{name: "past end", limit: 5, offset: 9, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := repo.ListByUser(ctx, "guest:g", tt.limit, tt.offset)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(docs) != len(tt.want) {
				t.Fatalf("got %d docs, want %v", len(docs), tt.want)
			}
			for i, id := range tt.want {
				if docs[i].ID != id {
					t.Fatalf("position %d: got %s want %s", i, docs[i].ID, id)
				}
			}
		})
	}

	if _, err := repo.GetByID(ctx, "google:other", "d1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other users must not see d1, got %v", err)
	}

	n, err := repo.ClaimGuest(ctx, "guest:g", "google:1")
	if err != nil || n != 3 {
		t.Fatalf("claim: n=%d err=%v", n, err)
	}
	if _, err := repo.GetByID(ctx, "google:1", "d2"); err != nil {
		t.Fatalf("claimed doc not visible: %v", err)
	}
	if _, err := repo.GetCurrentByUser(ctx, "guest:g"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("guest should have no documents left, got %v", err)
	}
}

func TestMemoryRepoFirstExtractionWins(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	if err := repo.Create(ctx, Document{ID: "d1", UserID: "u", FileName: "cv.docx"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	at := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	if err := repo.UpdateExtraction(ctx, "u", "d1", "text/first", at); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := repo.UpdateExtraction(ctx, "u", "d1", "text/second", at.Add(time.Hour)); err != nil {
		t.Fatalf("second: %v", err)
	}
	doc, _ := repo.GetByID(ctx, "u", "d1")
	if doc.ExtractedTextKey != "text/first" || !doc.HasText() || doc.Format() != "docx" {
		t.Fatalf("unexpected doc %+v", doc)
	}
	if err := repo.UpdateExtraction(ctx, "u", "missing", "k", at); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
