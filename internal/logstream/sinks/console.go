package sinks

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joaoloss/uol-harvest/internal/logstream"
)

// ConsoleSink mirrors records to a terminal writer. Debug records are
// suppressed; the console is for progress, the file sink keeps the detail.
type ConsoleSink struct {
	w io.Writer
}

// NewConsoleSink writes to w, defaulting to stdout.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleSink{w: w}
}

// Consume prints each non-debug record line.
func (s *ConsoleSink) Consume(_ context.Context, batch []logstream.Record) error {
	for _, rec := range batch {
		if rec.Level == logstream.LevelDebug {
			continue
		}
		if _, err := fmt.Fprintln(s.w, rec.Line()); err != nil {
			return fmt.Errorf("write console line: %w", err)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *ConsoleSink) Close(context.Context) error {
	return nil
}
