package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joaoloss/uol-harvest/internal/extract"
	"github.com/joaoloss/uol-harvest/internal/fetch"
	"github.com/joaoloss/uol-harvest/internal/logstream"
	"github.com/joaoloss/uol-harvest/internal/partition"
	"github.com/joaoloss/uol-harvest/internal/stage"
)

func newArticlesCmd() *cobra.Command {
	var yearFolder string

	cmd := &cobra.Command{
		Use:   "articles",
		Short: "Downloads and extracts article texts for one year folder",
		Long: `Loads every per-month link file under the given year folder, fetches
each article with a fixed pool of workers, extracts and normalizes its body
text, and appends the result to the matching file under the news root.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			return runArticles(cmd, yearFolder)
		},
	}

	cmd.Flags().StringVar(&yearFolder, "year-folder", "", "year folder under the links root (required)")
	_ = cmd.MarkFlagRequired("year-folder")
	return cmd
}

func runArticles(cmd *cobra.Command, yearFolder string) error {
	h, err := resolveHarness(cmd.Context())
	if err != nil {
		return err
	}

	if err := validateYearFolder(h.cfg.Output.LinksRoot, yearFolder); err != nil {
		return err
	}

	hub, err := h.buildHub(fmt.Sprintf("uol_news_extraction_%s.log", yearFolder))
	if err != nil {
		return err
	}
	defer closeHub(hub, h.logger)

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	logs := logstream.NewLogger(hub, h.runID, "articles")
	client := fetch.NewClient(fetch.Config{
		UserAgent: h.cfg.HTTP.UserAgent,
		Timeout:   h.cfg.ArticlesTimeout(),
	})
	writer := partition.NewWriter(h.logger)
	articles := stage.NewArticleStage(stage.ArticleConfig{
		Workers:   h.cfg.Articles.Workers,
		LinksRoot: h.cfg.Output.LinksRoot,
		NewsRoot:  h.cfg.Output.NewsRoot,
		Delay:     h.cfg.ArticlesDelay(),
		Retry: fetch.RetryPolicy{
			Attempts: h.cfg.Articles.RetryAttempts,
			Delay:    h.cfg.ArticlesRetryDelay(),
		},
	}, client, writer, extract.NewChain(h.cfg.Articles.Selectors, h.cfg.Articles.ReadabilityFallback), logs)

	summary, err := articles.RunYear(ctx, yearFolder)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run article stage: %w", err)
	}

	h.logger.Info("article extraction finished",
		zap.Int64("articles", summary.Total),
		zap.Int64("failed", summary.Failed),
		zap.Duration("elapsed", summary.Elapsed),
	)
	return nil
}

// validateYearFolder rejects a year folder that does not exist under the
// links root or holds no link files.
func validateYearFolder(linksRoot, yearFolder string) error {
	dir := filepath.Join(linksRoot, yearFolder)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("year folder %q not found under %s", yearFolder, linksRoot)
		}
		return fmt.Errorf("read year folder: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			return nil
		}
	}
	return fmt.Errorf("year folder %q has no link files", yearFolder)
}
