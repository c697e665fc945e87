package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/joaoloss/uol-harvest/internal/logstream"
)

// PrometheusSink counts stream records by level so long runs can be watched
// for error bursts without tailing the log file.
type PrometheusSink struct {
	records *prometheus.CounterVec
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harvest_log_records_total",
			Help: "Log stream records partitioned by level.",
		}, []string{"level"}),
	}
	if err := reg.Register(s.records); err != nil {
		return nil, fmt.Errorf("register log record collector: %w", err)
	}
	return s, nil
}

// Consume updates the counters for the batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []logstream.Record) error {
	for _, rec := range batch {
		s.records.WithLabelValues(string(rec.Level)).Inc()
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
