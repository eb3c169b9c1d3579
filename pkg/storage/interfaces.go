package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrUpstreamStorage marks failures of the blob storage collaborator.
// Handlers map it to 502.
var ErrUpstreamStorage = errors.New("upstream storage error")

// StoredObject describes a blob after a successful upload
type StoredObject struct {
	Path      string `json:"path"`
	PublicURL string `json:"publicUrl"`
	FileName  string `json:"fileName"`
	MimeType  string `json:"mimeType"`
	Size      int64  `json:"size"`
}

// BlobInfo describes a stored blob when listing
type BlobInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
}

// BlobStorage is the external blob storage collaborator
type BlobStorage interface {
	// Store uploads content under a fresh key derived from originalName
	// and returns the stored object's metadata
	Store(ctx context.Context, content io.Reader, originalName, mimeType string) (*StoredObject, error)

	// Delete removes a blob by path; deleting an absent path is not an error
	Delete(ctx context.Context, path string) error

	// List returns all blobs under the given key prefix
	List(ctx context.Context, prefix string) ([]BlobInfo, error)

	// HealthCheck probes the backend
	HealthCheck(ctx context.Context) error
}

// Config for blob storage backends
type Config struct {
	// "s3" or "filesystem"
	Backend string

	// Filesystem config
	FilesystemRoot string

	// S3 config
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
}
