// Package stage implements the two bounded-concurrency extraction stages of
// the harvesting pipeline: link extraction over archive snapshots and article
// text extraction over the collected links.
package stage

import (
	"sync/atomic"
	"time"
)

// Counter is the per-stage failure accountant. Total grows by one per
// admitted unit, Failed by exactly one per permanently failed unit; neither
// is ever decremented. It is read for the stage summary once all units have
// joined.
type Counter struct {
	total  atomic.Int64
	failed atomic.Int64
}

// Unit records an admitted unit of work.
func (c *Counter) Unit() { c.total.Add(1) }

// Fail records a permanent failure.
func (c *Counter) Fail() { c.failed.Add(1) }

// Total returns the number of admitted units.
func (c *Counter) Total() int64 { return c.total.Load() }

// Failed returns the number of permanently failed units.
func (c *Counter) Failed() int64 { return c.failed.Load() }

// Summary reports a completed stage run.
type Summary struct {
	Total   int64
	Failed  int64
	Elapsed time.Duration
}

// Succeeded returns the number of units that completed without a permanent
// failure.
func (s Summary) Succeeded() int64 { return s.Total - s.Failed }

// SuccessRate returns the success percentage, 0 for an empty run.
func (s Summary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Total-s.Failed) / float64(s.Total) * 100
}
