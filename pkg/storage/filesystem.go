package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FilesystemBlobStorage stores blobs on local disk. Intended for local
// development and tests; public URLs are served relative to /blobs/.
type FilesystemBlobStorage struct {
	root string
}

// NewFilesystemBlobStorage creates a filesystem-backed blob storage rooted
// at the given directory
func NewFilesystemBlobStorage(root string) (*FilesystemBlobStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &FilesystemBlobStorage{root: root}, nil
}

// Store writes content under notes/<uuid>_<originalName>
func (f *FilesystemBlobStorage) Store(ctx context.Context, content io.Reader, originalName, mimeType string) (*StoredObject, error) {
	fileName := fmt.Sprintf("%s_%s", uuid.NewString(), filepath.Base(originalName))
	key := "notes/" + fileName
	fullPath := filepath.Join(f.root, "notes", fileName)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return nil, fmt.Errorf("%w: mkdir: %v", ErrUpstreamStorage, err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("%w: create file: %v", ErrUpstreamStorage, err)
	}
	defer file.Close()

	size, err := io.Copy(file, content)
	if err != nil {
		os.Remove(fullPath)
		return nil, fmt.Errorf("%w: write file: %v", ErrUpstreamStorage, err)
	}

	return &StoredObject{
		Path:      key,
		PublicURL: "/blobs/" + key,
		FileName:  fileName,
		MimeType:  mimeType,
		Size:      size,
	}, nil
}

// Delete removes a blob; an absent path is not an error
func (f *FilesystemBlobStorage) Delete(ctx context.Context, path string) error {
	fullPath := filepath.Join(f.root, filepath.FromSlash(path))
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: remove: %v", ErrUpstreamStorage, err)
	}
	return nil
}

// List returns all blobs under the given prefix
func (f *FilesystemBlobStorage) List(ctx context.Context, prefix string) ([]BlobInfo, error) {
	var blobs []BlobInfo
	err := filepath.Walk(f.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			blobs = append(blobs, BlobInfo{
				Path:         key,
				Size:         info.Size(),
				LastModified: info.ModTime(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walk: %v", ErrUpstreamStorage, err)
	}
	return blobs, nil
}

// HealthCheck verifies the root directory is accessible
func (f *FilesystemBlobStorage) HealthCheck(ctx context.Context) error {
	if _, err := os.Stat(f.root); err != nil {
		return fmt.Errorf("filesystem storage health check failed: %w", err)
	}
	return nil
}
