package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"career-hub/internal/extract"
	"career-hub/internal/shared/storage/object"
	"career-hub/internal/shared/telemetry"
	"career-hub/internal/shared/util"
)

var allowedMimeTypes = map[string]bool{
	"application/pdf": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain": true,
}

// Service contains business logic for documents.
type Service struct {
	Store    object.ObjectStore
	Repo     DocumentsRepo
	Provider string
}

// Upload saves the file to object storage and records the document.
func (s *Service) Upload(ctx context.Context, userID, fileName string, r io.Reader) (Document, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return Document{}, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, userID, fileName, r)
	if errors.Is(err, util.ErrInvalidFileName) {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err != nil {
		return Document{}, err
	}
	mimeType = baseMime(mimeType)
	if !allowedMimeTypes[mimeType] {
		_ = s.Store.Delete(ctx, storageKey)
		return Document{}, fmt.Errorf("%w: unsupported file type %s", ErrInvalidInput, mimeType)
	}
	if size == 0 {
		_ = s.Store.Delete(ctx, storageKey)
		return Document{}, fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}

	doc := Document{
		ID:               uuid.NewString(),
		UserID:           userID,
		FileName:         filepath.Base(fileName),
		OriginalFilename: fileName,
		MimeType:         mimeType,
		SizeBytes:        size,
		StorageProvider:  s.Provider,
		StorageKey:       storageKey,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, err
	}

	telemetry.Info("document.uploaded", map[string]any{
		"request_id":  telemetry.RequestIDFrom(ctx),
		"user_id":     userID,
		"document_id": doc.ID,
		"mime_type":   mimeType,
		"size_bytes":  size,
	})
	return doc, nil
}

// UploadBase64 decodes a base64 (or data URL) payload and uploads it.
func (s *Service) UploadBase64(ctx context.Context, userID, fileName, payload string) (Document, error) {
	data, err := extract.DecodeBase64(payload)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if strings.TrimSpace(fileName) == "" {
		fileName = "resume" + extensionFor(object.DetectContentType(data, ""))
	}
	return s.Upload(ctx, userID, fileName, bytes.NewReader(data))
}

// Current returns the current document for a user.
func (s *Service) Current(ctx context.Context, userID string) (Document, error) {
	if userID == "" {
		return Document{}, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	return s.Repo.GetCurrentByUser(ctx, userID)
}

// Get returns one of the user's documents.
func (s *Service) Get(ctx context.Context, userID, documentID string) (Document, error) {
	if documentID == "" {
		return Document{}, fmt.Errorf("%w: document id required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, userID, documentID)
}

// List returns the user's documents newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// Text returns the document's plain text, extracting and caching it next to
// the original on first use.
func (s *Service) Text(ctx context.Context, userID, documentID string) (string, error) {
	doc, err := s.Get(ctx, userID, documentID)
	if err != nil {
		return "", err
	}
	text, err := extract.CachedText(ctx, s.Store, doc.StorageKey, doc.MimeType, doc.FileName)
	if err != nil {
		return "", fmt.Errorf("document %s mime %s: %w", doc.ID, doc.MimeType, err)
	}
	if doc.ExtractedTextKey == "" {
		if err := s.Repo.UpdateExtraction(ctx, doc.UserID, doc.ID, doc.StorageKey+".extracted.txt", time.Now().UTC()); err != nil {
			return "", fmt.Errorf("document %s: update extraction: %w", doc.ID, err)
		}
	}
	return text, nil
}

// Claim moves a guest's documents to the authenticated user.
func (s *Service) Claim(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	if guestUserID == "" || authedUserID == "" || guestUserID == authedUserID {
		return 0, nil
	}
	return s.Repo.ClaimGuest(ctx, guestUserID, authedUserID)
}

func baseMime(mimeType string) string {
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

func extensionFor(mimeType string) string {
	switch baseMime(mimeType) {
	case "application/pdf":
		return ".pdf"
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip":
		return ".docx"
	default:
		return ".txt"
	}
}
