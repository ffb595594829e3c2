package object

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrNotFound is returned by Open when no object exists under the key.
var ErrNotFound = errors.New("object not found")

// ObjectStore stores uploaded CVs, interview audio and derived text.
type ObjectStore interface {
	// Save writes r under the owner's namespace and returns the generated key,
	// the stored size and the sniffed MIME type.
	Save(ctx context.Context, ownerID string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
}

// ReadAll loads an object fully, refusing objects larger than limit bytes.
func ReadAll(ctx context.Context, store ObjectStore, storageKey string, limit int64) ([]byte, error) {
	rc, err := store.Open(ctx, storageKey)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", storageKey, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("object %s exceeds %d bytes", storageKey, limit)
	}
	return data, nil
}
