package sinks

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/joaoloss/uol-harvest/internal/logstream"
)

func batch(levels ...logstream.Level) []logstream.Record {
	records := make([]logstream.Record, 0, len(levels))
	for _, level := range levels {
		records = append(records, logstream.Record{
			Level:   level,
			Source:  "links",
			Message: "message",
		})
	}
	return records
}

// TestFileSinkWritesLines verifies the file sink creates its directory and
// appends one wire-format line per record.
func TestFileSinkWritesLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "uol_links_extraction.log")
	sink, err := NewFileSink(path, 1, 1)
	require.NoError(t, err)

	require.NoError(t, sink.Consume(context.Background(), batch(logstream.LevelInfo, logstream.LevelError)))
	require.NoError(t, sink.Close(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "[INFO - links] message\n[ERROR - links] message\n", string(data))
}

// TestConsoleSinkSkipsDebug checks debug records never reach the console
// writer.
func TestConsoleSinkSkipsDebug(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sink := NewConsoleSink(&buf)

	require.NoError(t, sink.Consume(context.Background(), batch(logstream.LevelDebug, logstream.LevelInfo)))
	require.Equal(t, "[INFO - links] message\n", buf.String())
}

// TestPrometheusSinkCountsByLevel exercises the record counters on a fresh
// registry.
func TestPrometheusSinkCountsByLevel(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	require.NoError(t, sink.Consume(context.Background(), batch(logstream.LevelInfo, logstream.LevelInfo, logstream.LevelError)))

	require.Equal(t, 2.0, testutil.ToFloat64(sink.records.WithLabelValues("INFO")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.records.WithLabelValues("ERROR")))
}
