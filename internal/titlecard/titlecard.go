// Package titlecard renders the title card shown over the opening seconds
// of a video.
package titlecard

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"image"
	"image/draw"
	"image/png"
	"os"
	"strings"

	"github.com/dgnsrekt/storyreel/internal/config"
)

var (
	// ErrInvalidCrop is returned when the crop removes the whole image.
	ErrInvalidCrop = errors.New("invalid crop")

	// ErrEmptyTitle is returned when there is no title to render.
	ErrEmptyTitle = errors.New("title cannot be empty")
)

//go:embed template.html
var defaultTemplate string

// Renderer produces a PNG title card for a story title with cropTop and
// cropBottom pixels removed.
type Renderer interface {
	Render(ctx context.Context, title string, cropTop, cropBottom int) ([]byte, error)
}

// New returns the renderer selected by cfg.Renderer.
func New(cfg config.TitleCardConfig) (Renderer, error) {
	switch cfg.Renderer {
	case "", "browser":
		return NewBrowser(cfg)
	case "static":
		return NewStatic(cfg.Image)
	default:
		return nil, fmt.Errorf("unknown title card renderer %q", cfg.Renderer)
	}
}

// Page is the data available to a title card template.
type Page struct {
	Title  string
	Author string
}

// LoadTemplate parses the template at path, or the built-in card when path
// is empty.
func LoadTemplate(path string) (*template.Template, error) {
	src := defaultTemplate
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read title card template: %w", err)
		}
		src = string(data)
	}
	tmpl, err := template.New("titlecard").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("invalid title card template: %w", err)
	}
	return tmpl, nil
}

// RenderHTML executes tmpl for title. Titles are HTML-escaped.
func RenderHTML(tmpl *template.Template, title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrEmptyTitle
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, Page{Title: title, Author: "u/storyreel"}); err != nil {
		return "", fmt.Errorf("failed to render title card: %w", err)
	}
	return buf.String(), nil
}

// Crop removes top and bottom pixel rows from a PNG.
func Crop(data []byte, top, bottom int) ([]byte, error) {
	if top < 0 || bottom < 0 {
		return nil, fmt.Errorf("%w: negative crop %d/%d", ErrInvalidCrop, top, bottom)
	}

	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode png: %w", err)
	}
	if top == 0 && bottom == 0 {
		return data, nil
	}

	b := src.Bounds()
	height := b.Dy() - top - bottom
	if height <= 0 {
		return nil, fmt.Errorf("%w: cropping %d+%d pixels from a %d pixel tall image", ErrInvalidCrop, top, bottom, b.Dy())
	}

	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), height))
	draw.Draw(dst, dst.Bounds(), src, image.Pt(b.Min.X, b.Min.Y+top), draw.Src)

	var out bytes.Buffer
	if err := png.Encode(&out, dst); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return out.Bytes(), nil
}

// Static serves a pre-made image, cropped on request.
type Static struct {
	path string
}

// NewStatic creates a renderer that always returns the image at path.
func NewStatic(path string) (*Static, error) {
	if path == "" {
		return nil, fmt.Errorf("static title card requires an image path")
	}
	return &Static{path: path}, nil
}

// Render implements Renderer. The title is ignored.
func (s *Static) Render(ctx context.Context, title string, cropTop, cropBottom int) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read title card: %w", err)
	}
	return Crop(data, cropTop, cropBottom)
}
