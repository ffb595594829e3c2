package documents

import (
	"errors"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrInvalidInput = errors.New("invalid document")
)

// Document is an uploaded résumé. The newest upload is the owner's current
// résumé and is what the advisor, chat and interview features read.
type Document struct {
	ID               string
	UserID           string
	FileName         string
	OriginalFilename string
	MimeType         string
	ContentType      string
	SizeBytes        int64
	StorageProvider  string
	StorageKey       string
	ExtractedTextKey string
	ExtractedAt      *time.Time
	CreatedAt        time.Time
}

// Format is the lower-case file extension without the dot, e.g. "pdf".
func (d Document) Format() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(d.FileName)), ".")
}

// HasText reports whether extracted text has been cached for the document.
func (d Document) HasText() bool {
	return d.ExtractedTextKey != ""
}
