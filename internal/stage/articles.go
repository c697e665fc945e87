package stage

import (
	"bufio"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/joaoloss/uol-harvest/internal/extract"
	"github.com/joaoloss/uol-harvest/internal/fetch"
	"github.com/joaoloss/uol-harvest/internal/logstream"
	"github.com/joaoloss/uol-harvest/internal/metrics"
	"github.com/joaoloss/uol-harvest/internal/partition"
)

const articlesStage = "articles"

// Task is one article to fetch and extract. All articles from the same link
// partition share an OutPath.
type Task struct {
	URL     string
	OutPath string
}

// ArticleConfig controls the article extraction stage.
type ArticleConfig struct {
	// Workers is the fixed size of the worker pool.
	Workers int
	// LinksRoot is the directory the link stage wrote into.
	LinksRoot string
	// NewsRoot is the directory article texts are written under.
	NewsRoot string
	// Delay is the per-worker courtesy pause after each article.
	Delay time.Duration
	// Retry governs the per-article fetch attempts.
	Retry fetch.RetryPolicy
}

// ArticleStage drains article tasks through a fixed pool of workers. Each
// worker fetches a page, runs the extraction chain over it, and appends the
// normalized text to the task's output partition, pausing between articles
// so the archive is not hammered.
type ArticleStage struct {
	cfg     ArticleConfig
	fetcher fetch.Fetcher
	writer  *partition.Writer
	chain   extract.Chain
	logs    *logstream.Logger
}

// NewArticleStage builds an ArticleStage.
func NewArticleStage(cfg ArticleConfig, fetcher fetch.Fetcher, writer *partition.Writer, chain extract.Chain, logs *logstream.Logger) *ArticleStage {
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	if len(chain) == 0 {
		chain = extract.DefaultChain()
	}
	return &ArticleStage{cfg: cfg, fetcher: fetcher, writer: writer, chain: chain, logs: logs}
}

// RunYear loads every link partition under LinksRoot/year and processes the
// collected articles, mirroring the partition layout under NewsRoot/year.
func (s *ArticleStage) RunYear(ctx context.Context, year string) (Summary, error) {
	dir := filepath.Join(s.cfg.LinksRoot, year)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Summary{}, fmt.Errorf("read link partitions in %s: %w", dir, err)
	}
	s.logs.Infof("%d file(s) to process.", len(entries))

	var tasks []Task
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		links, err := readLines(path)
		if err != nil {
			return Summary{}, fmt.Errorf("read link partition %s: %w", path, err)
		}
		s.logs.Infof("%d links from '%s'.", len(links), entry.Name())
		outPath := filepath.Join(s.cfg.NewsRoot, year, entry.Name())
		for _, link := range links {
			tasks = append(tasks, Task{URL: link, OutPath: outPath})
		}
	}
	return s.Run(ctx, tasks)
}

// Run processes tasks with a fixed pool of cfg.Workers workers. On
// cancellation workers stop taking tasks; in-flight articles finish and are
// counted before Run returns.
func (s *ArticleStage) Run(ctx context.Context, tasks []Task) (Summary, error) {
	start := time.Now()
	var counter Counter

	queue := make(chan Task)
	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			s.work(ctx, worker, queue, &counter)
		}(i)
	}

	canceled := false
feed:
	for _, t := range tasks {
		select {
		case queue <- t:
		case <-ctx.Done():
			canceled = true
			break feed
		}
	}
	close(queue)
	wg.Wait()

	summary := Summary{Total: counter.Total(), Failed: counter.Failed(), Elapsed: time.Since(start)}
	s.logs.Infof("Processed %d links - %d/%d succeeded (%.1f%%)",
		summary.Total, summary.Succeeded(), summary.Total, summary.SuccessRate())
	s.logs.Infof("Total time taken to complete: %.2fmin", summary.Elapsed.Minutes())
	if canceled {
		return summary, fmt.Errorf("article stage interrupted: %w", ctx.Err())
	}
	return summary, nil
}

func (s *ArticleStage) work(ctx context.Context, worker int, queue <-chan Task, counter *Counter) {
	wlog := s.logs.Named(fmt.Sprintf("worker-%d", worker))
	fetcher := fetch.Retrying{Inner: s.fetcher, Policy: s.cfg.Retry, Stage: articlesStage, Log: wlog}
	// One limiter per worker: each worker pauses after every article it
	// handles, regardless of outcome.
	var limiter *rate.Limiter
	if s.cfg.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(s.cfg.Delay), 1)
	}

	for t := range queue {
		select {
		case <-ctx.Done():
			return
		default:
		}
		counter.Unit()
		metrics.IncActiveWorkers(articlesStage)
		if err := s.processArticle(ctx, fetcher, wlog, t); err != nil {
			counter.Fail()
			metrics.ObserveUnit(articlesStage, "failed")
		} else {
			metrics.ObserveUnit(articlesStage, "ok")
		}
		metrics.DecActiveWorkers(articlesStage)
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
		}
	}
}

func (s *ArticleStage) processArticle(ctx context.Context, fetcher fetch.Retrying, wlog *logstream.Logger, t Task) error {
	resp, err := fetcher.Fetch(ctx, t.URL)
	if err != nil {
		return err
	}

	pageURL, err := url.Parse(resp.FinalURL)
	if err != nil {
		pageURL = nil
	}
	text, strategy, ok := s.chain.Extract(resp.Body, pageURL)
	if !ok {
		wlog.Errorf("no article body found in %s", t.URL)
		return fmt.Errorf("no article body found in %s", t.URL)
	}
	wlog.Debugf("extracted %s via %s", t.URL, strategy)

	// A trailing empty line yields the blank-line separator between articles.
	if err := s.writer.Append(t.OutPath, []string{extract.Normalize(text), ""}); err != nil {
		wlog.Errorf("cannot append article text: %v", err)
		return err
	}
	return nil
}

// readLines returns the non-blank lines of a link partition in order.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
