package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalDisk stores blobs as flat files under a single root directory.
type LocalDisk struct {
	root string
}

// NewLocalDisk constructs a disk backend rooted at root. The directory is
// created on first write if it does not exist.
func NewLocalDisk(root string) (*LocalDisk, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("storage root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &LocalDisk{root: abs}, nil
}

// EnsureBucket creates the root directory if needed.
func (d *LocalDisk) EnsureBucket(ctx context.Context) error {
	return os.MkdirAll(d.root, 0o750)
}

// Put writes r to root/key. A failed write leaves no file behind.
func (d *LocalDisk) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	path, err := d.path(key)
	if err != nil {
		return err
	}
	if err := d.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("create storage root: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, &contextReader{ctx: ctx, r: r}); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

// Get opens root/key for reading.
func (d *LocalDisk) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := d.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	return f, nil
}

// Delete removes root/key. A missing file is not an error.
func (d *LocalDisk) Delete(ctx context.Context, key string) error {
	path, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Location returns the absolute path of key.
func (d *LocalDisk) Location(key string) string {
	return filepath.Join(d.root, key)
}

// Bucket returns the root directory.
func (d *LocalDisk) Bucket() string {
	return d.root
}

// path rejects keys that would escape the flat root.
func (d *LocalDisk) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) || filepath.Base(key) != key {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(d.root, key), nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
