// Package blob stores uploaded receipt images and returns a URL for each.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("blob not found")
	ErrInvalidKey = errors.New("invalid blob key")
)

// Store is implemented by the local filesystem and GCS backends.
type Store interface {
	// Put writes r under key and returns the URL clients should use.
	Put(ctx context.Context, key, contentType string, r io.Reader) (url string, err error)
	Get(ctx context.Context, key string) ([]byte, error)
}

// ReceiptKey returns a fresh object key for a user's receipt image.
func ReceiptKey(userID string) string {
	return fmt.Sprintf("users/%s/receipts/%s.jpg", userID, uuid.NewString())
}

// CleanKey normalises key and rejects anything that escapes the store root.
func CleanKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned != key || cleaned == "." || strings.HasPrefix(cleaned, "../") || cleaned == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}
