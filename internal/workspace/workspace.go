// Package workspace gives each pipeline run its own scratch directory.
// Everything a run writes lives under that directory and is removed by a
// single Close, so intermediates are released on every exit path:
//
//	ws, err := workspace.Open("", "run-")
//	if err != nil {
//		return err
//	}
//	defer ws.Close()
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// ErrClosed is returned when a closed workspace is used.
var ErrClosed = errors.New("workspace closed")

// Workspace is a per-run temporary directory.
type Workspace struct {
	dir string

	mu     sync.Mutex
	closed bool
}

// Open creates a new uniquely named directory under parent. An empty parent
// uses the system temp directory.
func Open(parent, prefix string) (*Workspace, error) {
	if parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create workspace parent: %w", err)
		}
	}
	dir, err := os.MkdirTemp(parent, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	log.Debug("workspace opened", "dir", dir)
	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace root.
func (w *Workspace) Dir() string { return w.dir }

// Path returns the absolute path of name inside the workspace. Names are
// cleaned so they cannot escape the directory.
func (w *Workspace) Path(name string) string {
	clean := filepath.Clean("/" + strings.ReplaceAll(name, "\\", "/"))
	return filepath.Join(w.dir, clean)
}

// Write stores data as name.
func (w *Workspace) Write(name string, data []byte) (string, error) {
	if err := w.check(); err != nil {
		return "", err
	}
	path := w.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return path, nil
}

// Create opens name for writing. The caller closes the file.
func (w *Workspace) Create(name string) (*os.File, error) {
	if err := w.check(); err != nil {
		return nil, err
	}
	path := w.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", name, err)
	}
	return f, nil
}

// Close removes the workspace and everything in it. It is safe to call more
// than once.
func (w *Workspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("failed to remove workspace: %w", err)
	}
	log.Debug("workspace removed", "dir", w.dir)
	return nil
}

func (w *Workspace) check() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	return nil
}
