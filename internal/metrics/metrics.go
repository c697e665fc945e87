// Package metrics exposes Prometheus collectors for the harvesting pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	fetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_fetch_attempts_total",
			Help: "HTTP fetch attempts, labeled by stage.",
		},
		[]string{"stage"},
	)

	fetchRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_fetch_retries_total",
			Help: "Fetch attempts that failed transiently and will be retried.",
		},
		[]string{"stage"},
	)

	fetchFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_fetch_failures_total",
			Help: "Permanent fetch failures, labeled by stage and reason.",
		},
		[]string{"stage", "reason"},
	)

	unitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_units_total",
			Help: "Processed units of work, labeled by stage and result.",
		},
		[]string{"stage", "result"},
	)

	activeWorkers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "harvest_active_workers",
			Help: "Workers currently processing a unit, labeled by stage.",
		},
		[]string{"stage"},
	)
)

// ObserveFetchAttempt counts one HTTP attempt.
func ObserveFetchAttempt(stage string) {
	fetchAttemptsTotal.WithLabelValues(stage).Inc()
}

// ObserveFetchRetry counts an attempt that will be retried.
func ObserveFetchRetry(stage string) {
	fetchRetriesTotal.WithLabelValues(stage).Inc()
}

// ObserveFetchFailure counts a permanent fetch failure.
func ObserveFetchFailure(stage, reason string) {
	fetchFailuresTotal.WithLabelValues(stage, reason).Inc()
}

// ObserveUnit counts a completed unit of work.
func ObserveUnit(stage, result string) {
	unitsTotal.WithLabelValues(stage, result).Inc()
}

// IncActiveWorkers increments the active workers gauge for a stage.
func IncActiveWorkers(stage string) {
	activeWorkers.WithLabelValues(stage).Inc()
}

// DecActiveWorkers decrements the active workers gauge for a stage.
func DecActiveWorkers(stage string) {
	activeWorkers.WithLabelValues(stage).Dec()
}

// Handler returns an http.Handler exposing the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve starts a background /metrics listener. Harvest runs can last hours;
// the listener makes them observable without tailing the run log.
func Serve(addr string, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("starting metrics listener", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics listener failed", zap.Error(err))
		}
	}()
}
