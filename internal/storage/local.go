package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local publishes into a directory on disk.
type Local struct {
	dir string
}

// NewLocal creates a publisher writing into dir, which is created if needed.
func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		return nil, fmt.Errorf("local storage requires a directory")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Local{dir: abs}, nil
}

// Upload implements Publisher.
func (l *Local) Upload(ctx context.Context, key string, r io.Reader, contentType string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clean := filepath.Clean("/" + key)
	dest := filepath.Join(l.dir, clean)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, err
	}

	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", tmp, err)
	}
	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp) //nolint:errcheck
		return nil, fmt.Errorf("failed to store %s: %w", key, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return nil, err
	}

	rel := strings.TrimPrefix(clean, "/")
	return &Object{
		Path:   rel,
		Key:    filepath.Base(l.dir) + "/" + rel,
		Bucket: filepath.Base(l.dir),
		URL:    "file://" + filepath.ToSlash(dest),
		Size:   n,
	}, nil
}
