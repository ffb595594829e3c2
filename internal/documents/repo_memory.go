package documents

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryRepo keeps résumés in process memory. Each user's ids are kept in
// upload order; the last one is the current résumé.
type MemoryRepo struct {
	mu     sync.RWMutex
	byID   map[string]Document
	byUser map[string][]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:   make(map[string]Document),
		byUser: make(map[string][]string),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[doc.ID]; !exists {
		r.byUser[doc.UserID] = append(r.byUser[doc.UserID], doc.ID)
	}
	r.byID[doc.ID] = doc
	return nil
}

func (r *MemoryRepo) GetCurrentByUser(ctx context.Context, userID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byUser[userID]
	if len(ids) == 0 {
		return Document{}, ErrNotFound
	}
	return r.byID[ids[len(ids)-1]], nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.owned(userID, documentID)
}

func (r *MemoryRepo) owned(userID, documentID string) (Document, error) {
	doc, ok := r.byID[documentID]
	if !ok || doc.UserID != userID {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// UpdateExtraction records where the extracted text was cached. The first
// extraction wins.
func (r *MemoryRepo) UpdateExtraction(ctx context.Context, userID, documentID, extractedKey string, extractedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.owned(userID, documentID)
	if err != nil {
		return err
	}
	if doc.ExtractedTextKey == "" {
		doc.ExtractedTextKey = extractedKey
		doc.ExtractedAt = &extractedAt
		r.byID[documentID] = doc
	}
	return nil
}

// ListByUser pages a user's résumés newest first. A limit of zero means no
// limit.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	ids := r.byUser[userID]
	docs := make([]Document, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		docs = append(docs, r.byID[ids[i]])
	}
	r.mu.RUnlock()

	slices.SortStableFunc(docs, func(a, b Document) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	offset = max(offset, 0)
	if offset >= len(docs) {
		return []Document{}, nil
	}
	docs = docs[offset:]
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs, nil
}

// ClaimGuest reassigns a guest's résumés to authedUserID, after any the
// account already has.
func (r *MemoryRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := r.byUser[guestUserID]
	for _, id := range ids {
		doc := r.byID[id]
		doc.UserID = authedUserID
		r.byID[id] = doc
	}
	r.byUser[authedUserID] = append(r.byUser[authedUserID], ids...)
	delete(r.byUser, guestUserID)
	return len(ids), nil
}

var _ DocumentsRepo = (*MemoryRepo)(nil)
