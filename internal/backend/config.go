package backend

import (
	"fmt"

	"budgethero/internal/config"
)

// FilesPrefix is the URL path under which local receipt blobs are served.
const FilesPrefix = "/files"

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	blobType := BlobType(appConfig.BlobBackend)
	if !blobType.IsValid() {
		return Config{}, fmt.Errorf("invalid blob backend in config: %s", appConfig.BlobBackend)
	}

	return Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,

		Blob:        blobType,
		BlobDir:     appConfig.BlobDir,
		BlobBaseURL: FilesPrefix,
		GCSBucket:   appConfig.GCSBucket,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}

	switch c.Blob {
	case LocalBlob:
		if c.BlobDir == "" {
			return fmt.Errorf("blob directory is required for local blob backend")
		}
	case GCSBlob:
		if c.GCSBucket == "" {
			return fmt.Errorf("GCS bucket is required for gcs blob backend")
		}
	default:
		return fmt.Errorf("invalid blob backend: %s", c.Blob)
	}
	return nil
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	return []string{SQLiteBackend.String(), MemoryBackend.String()}
}
