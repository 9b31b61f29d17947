package titlecard

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgnsrekt/storyreel/internal/config"
)

// stripes returns a PNG whose row y is filled with gray level y.
func stripes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(y), G: uint8(y), B: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestCrop(t *testing.T) {
	src := stripes(t, 4, 10)

	out, err := Crop(src, 2, 3)
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Cropped output is not a png: %v", err)
	}

	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 5 {
		t.Fatalf("Expected 4x5, got %dx%d", b.Dx(), b.Dy())
	}
	if r, _, _, _ := img.At(0, 0).RGBA(); r>>8 != 2 {
		t.Errorf("First row should be source row 2, got gray %d", r>>8)
	}
	if r, _, _, _ := img.At(0, 4).RGBA(); r>>8 != 6 {
		t.Errorf("Last row should be source row 6, got gray %d", r>>8)
	}
}

func TestCrop_Invalid(t *testing.T) {
	src := stripes(t, 2, 10)

	tests := []struct {
		name        string
		top, bottom int
	}{
		{"everything", 5, 5},
		{"more than height", 20, 0},
		{"negative", -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Crop(src, tt.top, tt.bottom); !errors.Is(err, ErrInvalidCrop) {
				t.Errorf("Expected ErrInvalidCrop, got %v", err)
			}
		})
	}

	if _, err := Crop([]byte("not a png"), 0, 0); err == nil {
		t.Error("Expected decode error")
	}
}

func TestRenderHTML(t *testing.T) {
	tmpl, err := LoadTemplate("")
	if err != nil {
		t.Fatalf("LoadTemplate failed: %v", err)
	}

	html, err := RenderHTML(tmpl, `  My <b>"scary"</b> story  `)
	if err != nil {
		t.Fatalf("RenderHTML failed: %v", err)
	}
	if strings.Contains(html, "<b>") {
		t.Error("Title markup was not escaped")
	}
	if !strings.Contains(html, "My &lt;b&gt;&#34;scary&#34;&lt;/b&gt; story") {
		t.Errorf("Escaped title missing from page:\n%s", html)
	}

	if _, err := RenderHTML(tmpl, "   "); !errors.Is(err, ErrEmptyTitle) {
		t.Errorf("Expected ErrEmptyTitle, got %v", err)
	}
}

func TestLoadTemplate_Custom(t *testing.T) {
	path := filepath.Join(t.TempDir(), "card.html")
	if err := os.WriteFile(path, []byte("<h1>{{.Title}}</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	tmpl, err := LoadTemplate(path)
	if err != nil {
		t.Fatalf("LoadTemplate failed: %v", err)
	}
	html, err := RenderHTML(tmpl, "Hi")
	if err != nil || html != "<h1>Hi</h1>" {
		t.Errorf("RenderHTML = %q, %v", html, err)
	}

	if _, err := LoadTemplate(filepath.Join(t.TempDir(), "missing.html")); err == nil {
		t.Error("Expected error for missing template")
	}
}

func TestStatic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "card.png")
	if err := os.WriteFile(path, stripes(t, 3, 8), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := New(config.TitleCardConfig{Renderer: "static", Image: path})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	out, err := r.Render(context.Background(), "ignored", 1, 1)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	if err != nil || cfg.Height != 6 {
		t.Errorf("Expected 6px tall card, got %+v, %v", cfg, err)
	}

	if _, err := New(config.TitleCardConfig{Renderer: "static"}); err == nil {
		t.Error("Expected error without an image")
	}
	if _, err := New(config.TitleCardConfig{Renderer: "canvas"}); err == nil {
		t.Error("Expected error for unknown renderer")
	}
}

func TestBrowser_Render(t *testing.T) {
	found := false
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "headless-shell"} {
		if _, err := exec.LookPath(name); err == nil {
			found = true
			break
		}
	}
	if !found {
		t.Skip("chrome not available")
	}

	b, err := NewBrowser(config.TitleCardConfig{})
	if err != nil {
		t.Fatalf("NewBrowser failed: %v", err)
	}
	out, err := b.Render(context.Background(), "A title", 10, 20)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Output is not a png: %v", err)
	}
	if cfg.Height != defaultHeight-30 {
		t.Errorf("Expected height %d, got %d", defaultHeight-30, cfg.Height)
	}
}
