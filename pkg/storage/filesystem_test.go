package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemStore(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFilesystemBlobStorage(t.TempDir())
	require.NoError(t, err)

	stored, err := fs.Store(ctx, strings.NewReader("hello world"), "greeting.txt", "text/plain")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.Path, "notes/"))
	assert.Contains(t, stored.Path, "greeting.txt")
	assert.Equal(t, int64(len("hello world")), stored.Size)
	assert.Equal(t, "text/plain", stored.MimeType)
	assert.Equal(t, "/blobs/"+stored.Path, stored.PublicURL)

	t.Run("unique keys per upload", func(t *testing.T) {
		second, err := fs.Store(ctx, strings.NewReader("hello again"), "greeting.txt", "text/plain")
		require.NoError(t, err)
		assert.NotEqual(t, stored.Path, second.Path)
	})

	t.Run("path traversal in the name is neutralized", func(t *testing.T) {
		evil, err := fs.Store(ctx, strings.NewReader("x"), "../../etc/passwd", "text/plain")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(evil.Path, "notes/"))
		assert.NotContains(t, evil.Path, "..")
	})
}

func TestFilesystemList(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFilesystemBlobStorage(t.TempDir())
	require.NoError(t, err)

	first, err := fs.Store(ctx, strings.NewReader("a"), "a.txt", "text/plain")
	require.NoError(t, err)
	_, err = fs.Store(ctx, strings.NewReader("b"), "b.txt", "text/plain")
	require.NoError(t, err)

	blobs, err := fs.List(ctx, "notes/")
	require.NoError(t, err)
	assert.Len(t, blobs, 2)

	paths := []string{blobs[0].Path, blobs[1].Path}
	assert.Contains(t, paths, first.Path)

	t.Run("non-matching prefix", func(t *testing.T) {
		blobs, err := fs.List(ctx, "other/")
		require.NoError(t, err)
		assert.Empty(t, blobs)
	})
}

func TestFilesystemDelete(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	fs, err := NewFilesystemBlobStorage(root)
	require.NoError(t, err)

	stored, err := fs.Store(ctx, strings.NewReader("bye"), "d.txt", "text/plain")
	require.NoError(t, err)

	require.NoError(t, fs.Delete(ctx, stored.Path))
	_, statErr := os.Stat(filepath.Join(root, filepath.FromSlash(stored.Path)))
	assert.True(t, os.IsNotExist(statErr))

	t.Run("deleting a missing path is not an error", func(t *testing.T) {
		assert.NoError(t, fs.Delete(ctx, "notes/never-existed"))
	})
}

func TestFilesystemHealthCheck(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	fs, err := NewFilesystemBlobStorage(root)
	require.NoError(t, err)

	assert.NoError(t, fs.HealthCheck(ctx))

	require.NoError(t, os.RemoveAll(root))
	assert.Error(t, fs.HealthCheck(ctx))
}
