package backend

import (
	"context"
	"fmt"
	"log/slog"

	"budgethero/internal/blob"
	"budgethero/internal/store/memory"
	"budgethero/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateStore implements Factory.CreateStore
func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (*StoreResult, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteStore(ctx, config)
	case MemoryBackend:
		return f.createMemoryStore(ctx)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteStore(ctx context.Context, config Config) (*StoreResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	version, dirty, err := storage.SchemaVersion(config.SQLiteDBPath)
	if err != nil {
		f.logger.WarnContext(ctx, "Could not read schema version", "error", err)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"schema_version", version,
		"schema_dirty", dirty)

	return &StoreResult{
		Store:   repo,
		Ready:   repo.Ping,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryStore(ctx context.Context) (*StoreResult, error) {
	f.logger.InfoContext(ctx, "Initialized memory backend")
	return &StoreResult{
		Store: memory.New(),
		Ready: func(context.Context) error { return nil },
	}, nil
}

// CreateBlobStore implements Factory.CreateBlobStore
func (f *DefaultFactory) CreateBlobStore(ctx context.Context, config Config) (*BlobResult, error) {
	switch config.Blob {
	case LocalBlob:
		local, err := blob.NewLocalStore(config.BlobDir, config.BlobBaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local blob store: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized local blob store", "dir", config.BlobDir, "base_url", config.BlobBaseURL)
		return &BlobResult{Blobs: local}, nil
	case GCSBlob:
		gcs, err := blob.NewGCSStore(ctx, config.GCSBucket)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize GCS blob store: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized GCS blob store", "bucket", config.GCSBucket)
		return &BlobResult{Blobs: gcs, Cleanup: gcs.Close}, nil
	default:
		return nil, fmt.Errorf("unsupported blob backend: %s", config.Blob)
	}
}
