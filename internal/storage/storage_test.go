package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/dgnsrekt/storyreel/internal/config"
)

func TestSupabase_Upload(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/storage/v1/object/videos/video_1.mp4" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer service" || r.Header.Get("apikey") != "service" {
			t.Error("Missing service key headers")
		}
		if r.Header.Get("Content-Type") != "video/mp4" {
			t.Errorf("Unexpected content type %q", r.Header.Get("Content-Type"))
		}
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		_, _ = w.Write([]byte(`{"Key":"videos/video_1.mp4","Id":"abc"}`))
	}))
	defer srv.Close()

	s, err := NewSupabase(SupabaseConfig{URL: srv.URL + "/", Bucket: "videos", Key: "service"})
	if err != nil {
		t.Fatalf("NewSupabase failed: %v", err)
	}

	obj, err := s.Upload(context.Background(), "video_1.mp4", strings.NewReader("movie"), "video/mp4")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if gotBody != "movie" {
		t.Errorf("Server received %q", gotBody)
	}
	want := Object{
		Path:   "video_1.mp4",
		Key:    "videos/video_1.mp4",
		Bucket: "videos",
		URL:    srv.URL + "/storage/v1/object/public/videos/video_1.mp4",
		Size:   5,
	}
	if *obj != want {
		t.Errorf("Object = %+v, want %+v", *obj, want)
	}
}

func TestSupabase_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Duplicate"}`))
	}))
	defer srv.Close()

	s, _ := NewSupabase(SupabaseConfig{URL: srv.URL, Bucket: "videos", Key: "k"})
	_, err := s.Upload(context.Background(), "x.mp4", strings.NewReader("x"), "video/mp4")

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest || !strings.Contains(apiErr.Body, "Duplicate") {
		t.Errorf("Expected *APIError with status 400, got %v", err)
	}
}

func TestNewSupabase_Validation(t *testing.T) {
	if _, err := NewSupabase(SupabaseConfig{Bucket: "b", Key: "k"}); err == nil {
		t.Error("Expected error without URL")
	}
	if _, err := NewSupabase(SupabaseConfig{URL: "http://x", Bucket: "b"}); err == nil {
		t.Error("Expected error without key")
	}
}

func TestLocal_Upload(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "videos")
	l, err := NewLocal(dir)
	if err != nil {
		t.Fatalf("NewLocal failed: %v", err)
	}

	obj, err := l.Upload(context.Background(), "../../escape.mp4", strings.NewReader("data"), "video/mp4")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if obj.Path != "escape.mp4" || obj.Bucket != "videos" || obj.Size != 4 {
		t.Errorf("Unexpected object %+v", obj)
	}
	data, err := os.ReadFile(filepath.Join(dir, "escape.mp4"))
	if err != nil || string(data) != "data" {
		t.Errorf("Stored file = %q, %v", data, err)
	}
}

func TestPublishFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "final.mp4")
	if err := os.WriteFile(src, []byte("final video"), 0o644); err != nil {
		t.Fatal(err)
	}

	l, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	first, err := PublishFile(context.Background(), l, src)
	if err != nil {
		t.Fatalf("PublishFile failed: %v", err)
	}
	second, err := PublishFile(context.Background(), l, src)
	if err != nil {
		t.Fatalf("PublishFile failed: %v", err)
	}

	pattern := regexp.MustCompile(`^video_[0-9a-f-]{36}\.mp4$`)
	if !pattern.MatchString(first.Path) {
		t.Errorf("Unexpected key %q", first.Path)
	}
	if first.Path == second.Path {
		t.Error("Two uploads reused the same key")
	}
	if first.Size != int64(len("final video")) {
		t.Errorf("Unexpected size %d", first.Size)
	}
}

func TestNew(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Provider = "local"
	cfg.Storage.Dir = t.TempDir()
	if _, err := New(cfg); err != nil {
		t.Errorf("New(local) failed: %v", err)
	}

	cfg.Storage.Provider = "s3"
	if _, err := New(cfg); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("Expected ErrUnknownProvider, got %v", err)
	}
}
