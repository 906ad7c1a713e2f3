// Package backend builds the document store and receipt blob store selected
// by configuration.
package backend

import (
	"context"

	"budgethero/internal/blob"
	"budgethero/internal/store"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// StoreResult contains the store instance, its readiness probe and an
// optional cleanup function.
type StoreResult struct {
	Store   store.Store
	Ready   func(ctx context.Context) error
	Cleanup CleanupFunc
}

type BlobResult struct {
	Blobs   blob.Store
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateStore(ctx context.Context, config Config) (*StoreResult, error)
	CreateBlobStore(ctx context.Context, config Config) (*BlobResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	Blob BlobType

	// Local blob specific; BlobBaseURL prefixes returned receipt URLs
	BlobDir     string
	BlobBaseURL string

	// GCS specific
	GCSBucket string
}

// BackendType represents the type of document store
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// BlobType represents the type of receipt storage
type BlobType string

const (
	LocalBlob BlobType = "local"
	GCSBlob   BlobType = "gcs"
)

func (bt BlobType) IsValid() bool {
	return bt == LocalBlob || bt == GCSBlob
}
