// Package server exposes the pipeline over HTTP.
//
//	GET  /                     health text
//	POST /                     compose caller-supplied image, audio and subtitles
//	POST /generate-screenshot  render a title card PNG
//	POST /stories              run the full pipeline for a story
//	GET  /ws                   run a story and stream its progress events
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/storyreel/internal/config"
	"github.com/dgnsrekt/storyreel/internal/media"
	"github.com/dgnsrekt/storyreel/internal/pipeline"
	"github.com/dgnsrekt/storyreel/internal/story"
	"github.com/dgnsrekt/storyreel/internal/timing"
	"github.com/dgnsrekt/storyreel/internal/titlecard"
)

const (
	defaultMaxUpload      = 200 << 20
	defaultRequestTimeout = 15 * time.Minute
	maxJSONBody           = 1 << 20
	multipartMemory       = 32 << 20
)

// Runner is the part of the pipeline the server drives.
// *pipeline.Pipeline implements it.
type Runner interface {
	Generate(ctx context.Context, st story.Story, opts ...pipeline.Option) (*pipeline.Result, error)
	Compose(ctx context.Context, in pipeline.ComposeInput, opts ...pipeline.Option) (*pipeline.Result, error)
}

// Server serves the HTTP surface.
type Server struct {
	runner    Runner
	renderer  titlecard.Renderer
	maxUpload int64
	timeout   time.Duration
	addr      string
}

// New creates a server. renderer may be nil, in which case the screenshot
// endpoint reports 503.
func New(cfg config.ServerConfig, runner Runner, renderer titlecard.Renderer) *Server {
	s := &Server{
		runner:    runner,
		renderer:  renderer,
		maxUpload: cfg.MaxUploadMB << 20,
		timeout:   cfg.RequestTimeout,
		addr:      cfg.Addr,
	}
	if s.maxUpload <= 0 {
		s.maxUpload = defaultMaxUpload
	}
	if s.timeout <= 0 {
		s.timeout = defaultRequestTimeout
	}
	return s
}

// Handler returns the routed handler with CORS and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHealth)
	mux.HandleFunc("POST /{$}", s.handleCompose)
	mux.HandleFunc("POST /generate-screenshot", s.handleScreenshot)
	mux.HandleFunc("POST /stories", s.handleStory)
	mux.HandleFunc("GET /ws", s.handleWebsocket)
	return logRequests(cors(mux))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", s.addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("connection does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"took", time.Since(start).Round(time.Millisecond))
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("unable to write response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps a pipeline error to an HTTP status: bad input is the
// caller's fault, everything else is ours.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, story.ErrEmptyStory),
		errors.Is(err, media.ErrMissingInput),
		errors.Is(err, timing.ErrInvalidTimeline),
		errors.Is(err, titlecard.ErrEmptyTitle),
		errors.Is(err, titlecard.ErrInvalidCrop):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
