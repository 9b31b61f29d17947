package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
)

type logConfig struct {
	Debug bool   `env:"STORYREEL_DEBUG"`
	File  string `env:"STORYREEL_LOG_FILE"`
}

func getLogFilePath() (string, error) {
	dir, err := gap.NewScope(gap.User, "storyreel").CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "storyreel.log"), nil
}

// setupLog sends logs to stderr, or to STORYREEL_LOG_FILE when set.
func setupLog() (func() error, error) {
	lc, err := env.ParseAs[logConfig]()
	if err != nil {
		return nil, fmt.Errorf("error parsing log config: %w", err)
	}

	log.SetOutput(os.Stderr)
	log.SetTimeFormat(time.Kitchen)
	log.SetReportTimestamp(true)
	if lc.Debug {
		log.SetLevel(log.DebugLevel)
	}

	if lc.File == "" {
		return func() error { return nil }, nil
	}
	return logToFile(lc.File)
}

// logToFile redirects logging to path, or to the default log file under the
// user cache directory when path is empty. The progress view uses this so
// log lines do not tear the terminal.
func logToFile(path string) (func() error, error) {
	if path == "" {
		p, err := getLogFilePath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec
	if err != nil {
		return nil, err
	}
	log.SetOutput(f)
	return func() error {
		log.SetOutput(io.Discard)
		return f.Close()
	}, nil
}
