// Package sinks provides the log stream sink implementations: a rotating
// run-log file, a console mirror, and Prometheus record counters.
package sinks

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/joaoloss/uol-harvest/internal/logstream"
)

// FileSink appends rendered record lines to a rotating log file.
type FileSink struct {
	w io.WriteCloser
}

// NewFileSink creates the log directory if needed and opens a
// lumberjack-managed file at path. Harvest runs can last hours, so rotation
// keeps a runaway log from filling the disk.
func NewFileSink(path string, maxSizeMB, maxBackups int) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create log dir for %s: %w", path, err)
	}
	if maxSizeMB <= 0 {
		maxSizeMB = 50
	}
	return &FileSink{
		w: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
		},
	}, nil
}

// Consume writes each record's wire-format line.
func (s *FileSink) Consume(_ context.Context, batch []logstream.Record) error {
	for _, rec := range batch {
		if _, err := io.WriteString(s.w, rec.Line()+"\n"); err != nil {
			return fmt.Errorf("write log line: %w", err)
		}
	}
	return nil
}

// Close closes the underlying file.
func (s *FileSink) Close(context.Context) error {
	return s.w.Close()
}
