// Package storage publishes finished videos to object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/storyreel/internal/config"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// ErrUnknownProvider is returned by New for an unrecognized provider name.
var ErrUnknownProvider = errors.New("unknown storage provider")

// Object describes an uploaded artifact.
type Object struct {
	Path   string `json:"path"`   // key inside the bucket
	Key    string `json:"key"`    // provider's full object key
	Bucket string `json:"bucket"`
	URL    string `json:"url"`
	Size   int64  `json:"size"`
}

// Publisher uploads artifacts.
type Publisher interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (*Object, error)
}

// APIError is a non-success response from a storage service.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storage: unexpected status %d: %s", e.Status, e.Body)
}

// New builds the publisher named by cfg.Storage.Provider.
func New(cfg *config.Config) (Publisher, error) {
	switch cfg.Storage.Provider {
	case "supabase":
		return NewSupabase(SupabaseConfig{
			URL:     cfg.Storage.URL,
			Bucket:  cfg.Storage.Bucket,
			Key:     cfg.Secrets.SupabaseKey,
			Timeout: cfg.Storage.Timeout,
		})
	case "local", "":
		return NewLocal(cfg.Storage.Dir)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Storage.Provider)
	}
}

// NewKey returns a fresh unique object key for a file with extension ext.
func NewKey(ext string) string {
	if ext == "" {
		ext = ".mp4"
	}
	return "video_" + uuid.NewString() + ext
}

// PublishFile uploads the file at path under a new unique key.
func PublishFile(ctx context.Context, p Publisher, path string) (*Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close() //nolint:errcheck

	ext := strings.ToLower(filepath.Ext(path))
	contentType := mime.TypeByExtension(ext)
	if contentType == "" || ext == ".mp4" {
		contentType = "video/mp4"
	}

	obj, err := p.Upload(ctx, NewKey(ext), f, contentType)
	if err != nil {
		return nil, err
	}
	log.Info("artifact published", "key", obj.Key, "size", humanize.Bytes(uint64(obj.Size)))
	return obj, nil
}

// countingReader counts the bytes read through it.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// knownSize returns the length of r when it can be determined up front.
func knownSize(r io.Reader) int64 {
	switch v := r.(type) {
	case interface{ Stat() (os.FileInfo, error) }:
		if fi, err := v.Stat(); err == nil {
			return fi.Size()
		}
	case interface{ Len() int }:
		return int64(v.Len())
	}
	return -1
}
