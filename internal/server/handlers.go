package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/storyreel/internal/pipeline"
	"github.com/dgnsrekt/storyreel/internal/story"
	"github.com/dgnsrekt/storyreel/internal/timing"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "Hello World") //nolint:errcheck
}

// handleCompose accepts multipart image, audio and an optional subtitles
// field holding a JSON timeline.
func (s *Server) handleCompose(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		writeError(w, status, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	image, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image and audio are required")
		return
	}
	defer image.Close() //nolint:errcheck

	audio, audioHeader, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image and audio are required")
		return
	}
	defer audio.Close() //nolint:errcheck

	var timeline timing.Timeline
	if raw := strings.TrimSpace(r.FormValue("subtitles")); raw != "" {
		if timeline, err = timing.Parse([]byte(raw)); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	res, err := s.runner.Compose(ctx, pipeline.ComposeInput{
		Image:    image,
		Audio:    audio,
		AudioExt: audioExt(audioHeader),
		Timeline: timeline,
	}, pipeline.WithSource("http"))
	if err != nil {
		log.Error("compose request failed", "err", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res.Object)
}

func audioExt(h *multipart.FileHeader) string {
	if h == nil {
		return ""
	}
	ext := strings.ToLower(filepath.Ext(h.Filename))
	switch ext {
	case ".mp3", ".wav", ".m4a", ".aac", ".ogg", ".flac":
		return ext
	}
	return ""
}

type screenshotRequest struct {
	StoryName  string `json:"storyName"`
	CropTop    *int   `json:"cropTop"`
	CropBottom *int   `json:"cropBottom"`
}

func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	var req screenshotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.StoryName == "" || req.CropTop == nil || req.CropBottom == nil {
		writeError(w, http.StatusBadRequest, "Missing required parameters")
		return
	}
	if s.renderer == nil {
		writeError(w, http.StatusServiceUnavailable, "title card rendering is not configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	png, err := s.renderer.Render(ctx, req.StoryName, *req.CropTop, *req.CropBottom)
	if err != nil {
		log.Error("screenshot failed", "story", req.StoryName, "err", err)
		writeError(w, statusFor(err), "An error occurred while generating the screenshot")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png) //nolint:errcheck
}

type storyRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (r storyRequest) story() story.Story {
	return story.Story{Title: r.Title, Body: r.Body}.Normalize()
}

func (s *Server) handleStory(w http.ResponseWriter, r *http.Request) {
	var req storyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	res, err := s.runner.Generate(ctx, req.story(), pipeline.WithSource("http"))
	if err != nil {
		log.Error("story request failed", "err", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res.Object)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
