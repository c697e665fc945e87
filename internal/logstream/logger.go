package logstream

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Logger is a leveled convenience wrapper that stamps records with a run ID
// and source before emitting them. A nil Logger discards everything, so
// components can treat it as optional.
type Logger struct {
	emitter Emitter
	runID   uuid.UUID
	source  string
}

// NewLogger binds an emitter to a run and a root source identifier.
func NewLogger(e Emitter, runID uuid.UUID, source string) *Logger {
	return &Logger{emitter: e, runID: runID, source: source}
}

// Named derives a child logger whose source is suffixed with name, e.g.
// "links" -> "links/unit-7".
func (l *Logger) Named(name string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{emitter: l.emitter, runID: l.runID, source: l.source + "/" + name}
}

// Debugf emits a DEBUG record.
func (l *Logger) Debugf(format string, args ...any) { l.emit(LevelDebug, format, args...) }

// Infof emits an INFO record.
func (l *Logger) Infof(format string, args ...any) { l.emit(LevelInfo, format, args...) }

// Errorf emits an ERROR record.
func (l *Logger) Errorf(format string, args ...any) { l.emit(LevelError, format, args...) }

func (l *Logger) emit(level Level, format string, args ...any) {
	if l == nil || l.emitter == nil {
		return
	}
	l.emitter.Emit(Record{
		RunID:   l.runID,
		TS:      time.Now().UTC(),
		Level:   level,
		Source:  l.source,
		Message: fmt.Sprintf(format, args...),
	})
}
