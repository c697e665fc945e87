package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joaoloss/uol-harvest/internal/archive"
	"github.com/joaoloss/uol-harvest/internal/fetch"
	"github.com/joaoloss/uol-harvest/internal/logstream"
	"github.com/joaoloss/uol-harvest/internal/partition"
	"github.com/joaoloss/uol-harvest/internal/stage"
)

func newLinksCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "links",
		Short: "Extracts article links from archived homepage snapshots",
		Long: `Reads the snapshot calendar, fetches each archived homepage snapshot
with a bounded number of concurrent workers, and appends the article links
found in it to the per-month file matching the snapshot's capture date.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLinks(cmd, input)
		},
	}

	cmd.Flags().StringVar(&input, "input", "out/archive_links.csv", "snapshot calendar CSV")
	return cmd
}

func runLinks(cmd *cobra.Command, input string) error {
	h, err := resolveHarness(cmd.Context())
	if err != nil {
		return err
	}

	groups, err := archive.LoadCalendar(input)
	if err != nil {
		return fmt.Errorf("load snapshot calendar: %w", err)
	}

	hub, err := h.buildHub("uol_links_extraction.log")
	if err != nil {
		return err
	}
	defer closeHub(hub, h.logger)

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	logs := logstream.NewLogger(hub, h.runID, "links")
	client := fetch.NewClient(fetch.Config{
		UserAgent: h.cfg.HTTP.UserAgent,
		Timeout:   h.cfg.LinksTimeout(),
	})
	writer := partition.NewWriter(h.logger)
	links := stage.NewLinkStage(stage.LinkConfig{
		Workers: h.cfg.Links.Workers,
		Root:    h.cfg.Output.LinksRoot,
		Retry: fetch.RetryPolicy{
			Attempts: h.cfg.Links.RetryAttempts,
			Delay:    h.cfg.LinksRetryDelay(),
		},
	}, client, writer, logs)

	summary, err := links.Run(ctx, groups)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run link stage: %w", err)
	}

	h.logger.Info("link extraction finished",
		zap.Int64("snapshots", summary.Total),
		zap.Int64("failed", summary.Failed),
		zap.Duration("elapsed", summary.Elapsed),
	)
	return nil
}
