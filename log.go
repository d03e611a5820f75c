package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/storycast/internal/config"
)

// setupLog configures the default logger from cfg. It returns a function
// that closes the log file, if one was opened.
func setupLog(cfg config.Config) (func() error, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	log.SetLevel(level)
	log.SetTimeFormat(time.Kitchen)
	log.SetReportTimestamp(false)
	log.SetOutput(os.Stderr)

	if cfg.LogFile == "" {
		return func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil { //nolint:gosec
		return nil, fmt.Errorf("unable to create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("unable to open log file: %w", err)
	}

	log.SetOutput(f)
	log.SetReportTimestamp(true)
	log.SetTimeFormat(time.RFC3339)
	return f.Close, nil
}
