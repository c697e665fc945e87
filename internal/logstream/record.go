// Package logstream provides the cross-worker log channel: many producers
// emit Records into a single ordered queue drained by one consumer goroutine
// that fans them out to pluggable sinks. Sinks therefore never observe
// interleaved partial writes, regardless of how many workers are logging.
package logstream

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Level classifies a Record's severity.
type Level string

// Supported record levels.
const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

// Record is a single log line produced by a worker or stage.
type Record struct {
	// RunID ties the record to one pipeline run.
	RunID uuid.UUID
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Level is the record severity.
	Level Level
	// Source identifies the emitter, e.g. "links/unit-7".
	Source string
	// Message is the formatted log text.
	Message string
}

// Validate performs coarse validation on Record payloads.
func (r Record) Validate() error {
	if r.RunID == uuid.Nil {
		return errors.New("run id is required")
	}
	if r.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	if r.Source == "" {
		return errors.New("source is required")
	}
	switch r.Level {
	case LevelDebug, LevelInfo, LevelError:
	default:
		return fmt.Errorf("unknown level %q", r.Level)
	}
	return nil
}

// Line renders the record in the stream's wire format.
func (r Record) Line() string {
	return fmt.Sprintf("[%s - %s] %s", r.Level, r.Source, r.Message)
}
