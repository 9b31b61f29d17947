package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SupabaseConfig holds configuration for Supabase Storage.
type SupabaseConfig struct {
	URL     string // project URL, e.g. https://xyz.supabase.co
	Bucket  string
	Key     string // service role key
	Timeout time.Duration

	HTTPClient *http.Client
}

// Supabase uploads objects through the Supabase Storage REST API.
type Supabase struct {
	base    string
	bucket  string
	key     string
	timeout time.Duration
	client  *http.Client
}

// NewSupabase creates a Supabase publisher.
func NewSupabase(cfg SupabaseConfig) (*Supabase, error) {
	if cfg.URL == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("supabase: project URL and bucket are required")
	}
	if cfg.Key == "" {
		return nil, fmt.Errorf("supabase: service key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &Supabase{
		base:    strings.TrimRight(cfg.URL, "/"),
		bucket:  cfg.Bucket,
		key:     cfg.Key,
		timeout: cfg.Timeout,
		client:  cfg.HTTPClient,
	}, nil
}

type supabaseResponse struct {
	Key string `json:"Key"`
	ID  string `json:"Id"`
}

// Upload implements Publisher.
func (s *Supabase) Upload(ctx context.Context, key string, r io.Reader, contentType string) (*Object, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	objectPath := url.PathEscape(s.bucket) + "/" + escapeKey(key)
	body := &countingReader{r: r}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base+"/storage/v1/object/"+objectPath, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	if size := knownSize(r); size >= 0 {
		req.ContentLength = size
	}
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("apikey", s.key)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var out supabaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	if out.Key == "" {
		out.Key = s.bucket + "/" + key
	}

	return &Object{
		Path:   key,
		Key:    out.Key,
		Bucket: s.bucket,
		URL:    s.base + "/storage/v1/object/public/" + objectPath,
		Size:   body.n,
	}, nil
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
