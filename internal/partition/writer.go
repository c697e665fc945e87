// Package partition implements the append-only partitioned output files the
// extraction stages write into. Every partition is a monotonically growing
// newline-delimited text file; lines are never rewritten or removed.
package partition

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Writer serializes appends per target file. Concurrent units writing to the
// same partition take the same mutex, so a single append is never interleaved
// or truncated; units writing to different partitions do not contend.
type Writer struct {
	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	logger *zap.Logger
}

// NewWriter builds a Writer.
func NewWriter(logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{
		locks:  make(map[string]*sync.Mutex),
		logger: logger,
	}
}

// Append writes lines (each followed by a newline) to the end of path under
// the path's mutex, creating the partition directory on first use.
func (w *Writer) Append(path string, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	lock := w.lock(path)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create partition dir for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open partition %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			w.logger.Warn("partition close failed", zap.String("path", path), zap.Error(cerr))
		}
	}()

	if _, err := f.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		return fmt.Errorf("append to partition %s: %w", path, err)
	}
	return nil
}

// EnsureDir pre-creates a partition directory. Stages call it for the
// nominal-year directory so the default layout exists even when every
// snapshot lands elsewhere.
func (w *Writer) EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create partition dir %s: %w", dir, err)
	}
	return nil
}

func (w *Writer) lock(path string) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	lock, ok := w.locks[path]
	if !ok {
		lock = &sync.Mutex{}
		w.locks[path] = lock
	}
	return lock
}
