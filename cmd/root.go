// Package cmd defines and implements the CLI commands for the uol-harvest
// executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joaoloss/uol-harvest/internal/config"
	"github.com/joaoloss/uol-harvest/internal/logging"
	"github.com/joaoloss/uol-harvest/internal/logstream"
	"github.com/joaoloss/uol-harvest/internal/logstream/sinks"
	"github.com/joaoloss/uol-harvest/internal/metrics"
)

var (
	cfgFile string
	quiet   bool
)

// harness holds the services a harvest run needs: the process logger, the
// loaded configuration, and a fresh run ID. The log stream hub is built per
// command because its file sink depends on the subcommand.
type harness struct {
	cfg    config.Config
	logger *zap.Logger
	runID  uuid.UUID
}

type harnessKeyType string

const harnessKey harnessKeyType = "harness"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uol-harvest",
		Short: "Harvests UOL homepage snapshots from the Wayback Machine.",
		Long: `uol-harvest walks archived UOL homepage snapshots in two stages:
'links' extracts article links from each snapshot into per-month files,
and 'articles' downloads those links and extracts the article text.`,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if quiet {
				cfg.Logs.Quiet = true
			}
			logger, err := logging.New(cfg.Logs.Quiet)
			if err != nil {
				return err
			}
			h := &harness{cfg: cfg, logger: logger, runID: uuid.New()}
			cmd.SetContext(context.WithValue(cmd.Context(), harnessKey, h))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if h, ok := cmd.Context().Value(harnessKey).(*harness); ok && h != nil {
				_ = h.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	cmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress console output below error level")

	cmd.AddCommand(newLinksCmd())
	cmd.AddCommand(newArticlesCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveHarness(ctx context.Context) (*harness, error) {
	h, ok := ctx.Value(harnessKey).(*harness)
	if !ok || h == nil {
		return nil, fmt.Errorf("harness not initialized")
	}
	return h, nil
}

// signalContext derives a context canceled on SIGINT/SIGTERM so an
// interrupted run still drains in-flight work and flushes its logs.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// buildHub assembles the log stream for a run: the command's log file,
// the console unless quiet, and the Prometheus sink when metrics are on.
func (h *harness) buildHub(logFile string) (*logstream.Hub, error) {
	var hubSinks []logstream.Sink

	file, err := sinks.NewFileSink(filepath.Join(h.cfg.Logs.Dir, logFile), h.cfg.Logs.MaxSizeMB, h.cfg.Logs.MaxBackups)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	hubSinks = append(hubSinks, file)

	if !h.cfg.Logs.Quiet {
		hubSinks = append(hubSinks, sinks.NewConsoleSink(nil))
	}
	if h.cfg.Metrics.Enabled {
		prom, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
		if err != nil {
			return nil, fmt.Errorf("register log metrics: %w", err)
		}
		hubSinks = append(hubSinks, prom)
		metrics.Serve(h.cfg.Metrics.Addr, h.logger)
	}

	return logstream.NewHub(logstream.Config{Logger: h.logger}, hubSinks...), nil
}

// closeHub flushes the hub with a bounded grace period.
func closeHub(hub *logstream.Hub, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := hub.Close(ctx); err != nil {
		logger.Warn("log stream close failed", zap.Error(err))
	}
}
