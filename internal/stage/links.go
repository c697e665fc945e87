package stage

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/semaphore"

	"github.com/joaoloss/uol-harvest/internal/archive"
	"github.com/joaoloss/uol-harvest/internal/fetch"
	"github.com/joaoloss/uol-harvest/internal/logstream"
	"github.com/joaoloss/uol-harvest/internal/metrics"
	"github.com/joaoloss/uol-harvest/internal/partition"
)

const linksStage = "links"

// LinkConfig controls the link extraction stage.
type LinkConfig struct {
	// Workers bounds the number of snapshots in flight.
	Workers int
	// Root is the directory holding the per-year link partitions.
	Root string
	// Retry governs the per-snapshot fetch attempts.
	Retry fetch.RetryPolicy
}

// LinkStage fans archive groups out over a bounded set of snapshot workers,
// extracts outbound article links per snapshot, and appends them to the
// partition matching each snapshot's actual capture date.
type LinkStage struct {
	cfg     LinkConfig
	fetcher fetch.Fetcher
	writer  *partition.Writer
	logs    *logstream.Logger
}

// NewLinkStage builds a LinkStage.
func NewLinkStage(cfg LinkConfig, fetcher fetch.Fetcher, writer *partition.Writer, logs *logstream.Logger) *LinkStage {
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	return &LinkStage{cfg: cfg, fetcher: fetcher, writer: writer, logs: logs}
}

// Run processes every snapshot in groups, at most cfg.Workers concurrently.
// A slot must be acquired before a snapshot is dispatched and is released
// when it completes, so admission blocks once the bound is reached. On
// cancellation no new snapshots are admitted and Run still waits for every
// in-flight worker before returning.
func (s *LinkStage) Run(ctx context.Context, groups []archive.Group) (Summary, error) {
	start := time.Now()
	sem := semaphore.NewWeighted(int64(s.cfg.Workers))
	var counter Counter

	unit := 0
	lastYear := 0
	canceled := false

groups:
	for _, g := range groups {
		if g.NominalYear != lastYear {
			s.logs.Infof("==> Year %d:", g.NominalYear)
			lastYear = g.NominalYear
		}
		s.logs.Infof("Month %d (%d links to process):", g.NominalMonth, len(g.Links))
		if err := s.writer.EnsureDir(filepath.Join(s.cfg.Root, strconv.Itoa(g.NominalYear))); err != nil {
			s.logs.Errorf("cannot create year directory: %v", err)
		}

		for _, snapshotURL := range g.Links {
			if err := sem.Acquire(ctx, 1); err != nil {
				canceled = true
				break groups
			}
			unit++
			counter.Unit()
			go func(g archive.Group, snapshotURL string, unit int) {
				defer sem.Release(1)
				metrics.IncActiveWorkers(linksStage)
				defer metrics.DecActiveWorkers(linksStage)
				s.processSnapshot(ctx, g, snapshotURL, unit, &counter)
			}(g, snapshotURL, unit)
		}
	}

	// Reclaiming every slot joins all in-flight workers.
	if err := sem.Acquire(context.Background(), int64(s.cfg.Workers)); err == nil {
		sem.Release(int64(s.cfg.Workers))
	}

	summary := Summary{Total: counter.Total(), Failed: counter.Failed(), Elapsed: time.Since(start)}
	s.logs.Infof("Loss rate: %d/%d", summary.Failed, summary.Total)
	s.logs.Infof("Total time taken to complete: %.2fmin", summary.Elapsed.Minutes())
	if canceled {
		return summary, fmt.Errorf("link stage interrupted: %w", ctx.Err())
	}
	return summary, nil
}

func (s *LinkStage) processSnapshot(ctx context.Context, g archive.Group, snapshotURL string, unit int, counter *Counter) {
	ulog := s.logs.Named(fmt.Sprintf("unit-%d", unit))
	fetcher := fetch.Retrying{Inner: s.fetcher, Policy: s.cfg.Retry, Stage: linksStage, Log: ulog}

	resp, err := fetcher.Fetch(ctx, snapshotURL)
	if err != nil {
		counter.Fail()
		metrics.ObserveUnit(linksStage, "failed")
		return
	}

	actualYear, actualMonth, err := archive.CaptureDate(resp.FinalURL)
	if err != nil {
		ulog.Errorf("cannot parse capture date: %v", err)
		counter.Fail()
		metrics.ObserveUnit(linksStage, "failed")
		return
	}

	links, err := snapshotLinks(resp.Body, actualYear)
	if err != nil {
		ulog.Errorf("cannot parse snapshot HTML for %s: %v", snapshotURL, err)
		counter.Fail()
		metrics.ObserveUnit(linksStage, "failed")
		return
	}
	ulog.Infof("[%d] %d links found in %s", unit, len(links), snapshotURL)

	// Default to the nominal-year directory; a snapshot captured in an
	// adjacent year lands under its actual year instead.
	dirYear := g.NominalYear
	if actualYear != g.NominalYear {
		dirYear = actualYear
	}
	path := filepath.Join(s.cfg.Root, strconv.Itoa(dirYear), fmt.Sprintf("%d-%d.txt", actualMonth, actualYear))

	if err := s.writer.Append(path, links); err != nil {
		ulog.Errorf("cannot append links: %v", err)
		counter.Fail()
		metrics.ObserveUnit(linksStage, "failed")
		return
	}
	metrics.ObserveUnit(linksStage, "ok")
}

// snapshotLinks enumerates anchors whose href embeds the snapshot's actual
// capture year as a path segment (the permalink heuristic) and reconstructs
// the original article URL from each. Duplicates collapse within one
// snapshot only; nothing deduplicates across snapshots.
func snapshotLinks(body []byte, actualYear int) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	token := fmt.Sprintf("/%d/", actualYear)
	seen := make(map[string]struct{})
	var links []string
	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" || !strings.Contains(href, token) {
			return
		}
		link, ok := archive.Reconstruct(href)
		if !ok {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})
	return links, nil
}
