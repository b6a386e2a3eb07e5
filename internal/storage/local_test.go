package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/medreport/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalDiskRoundTrip(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "Uploads")
	disk, err := NewLocalDisk(root)
	require.NoError(t, err)
	s := NewStorage(disk)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a.pdf", strings.NewReader("%PDF-1.4"), 8, "application/pdf"))
	assert.FileExists(t, filepath.Join(root, "a.pdf"))
	assert.Equal(t, filepath.Join(root, "a.pdf"), s.Location("a.pdf"))

	rc, err := s.Get(ctx, "a.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	require.NoError(t, s.Delete(ctx, "a.pdf"))
	_, err = s.Get(ctx, "a.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	assert.NoError(t, s.Delete(ctx, "a.pdf"))
}

func TestLocalDiskRejectsTraversal(t *testing.T) {
	t.Parallel()

	disk, err := NewLocalDisk(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", ".", "..", "../x.pdf", "sub/x.pdf", `..\x.pdf`} {
		err := disk.Put(context.Background(), key, strings.NewReader("x"), 1, "")
		assert.Error(t, err, "key %q", key)
	}
}

func TestLocalDiskDoesNotOverwrite(t *testing.T) {
	t.Parallel()

	disk, err := NewLocalDisk(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, disk.Put(ctx, "k.png", strings.NewReader("one"), 3, ""))
	assert.Error(t, disk.Put(ctx, "k.png", strings.NewReader("two"), 3, ""))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk full") }

func TestLocalDiskRemovesPartialWrite(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	disk, err := NewLocalDisk(root)
	require.NoError(t, err)

	err = disk.Put(context.Background(), "p.pdf", io.MultiReader(strings.NewReader("half"), failingReader{}), -1, "")
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(root, "p.pdf"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestLocalDiskHonoursCancellation(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	disk, err := NewLocalDisk(root)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = disk.Put(ctx, "c.pdf", strings.NewReader("data"), 4, "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(root, "c.pdf"))
}

func TestOpenLocal(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "nested", "Uploads")
	s, err := Open(context.Background(), config.StorageConfig{Backend: config.StorageLocal, Root: root})
	require.NoError(t, err)
	assert.DirExists(t, root)
	assert.Equal(t, root, s.Bucket())
}

func TestOpenUnknownBackend(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), config.StorageConfig{Backend: "ftp"})
	assert.Error(t, err)
}

func TestOpenMinioRequiresSettings(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), config.StorageConfig{Backend: config.StorageMinio})
	assert.ErrorContains(t, err, "minio endpoint is required")
}
