package logstream

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config controls buffering for the Hub.
//   - BufferSize: size of the internal channel (default 1024).
//   - MaxBatch: upper bound on records handed to a sink per Consume call
//     (default 64).
//   - SinkTimeout: per-sink timeout while flushing (default 10s).
//   - Logger: optional structured logger used for sink failures.
type Config struct {
	BufferSize  int
	MaxBatch    int
	SinkTimeout time.Duration
	Logger      *zap.Logger
}

const (
	defaultBufferSize  = 1024
	defaultMaxBatch    = 64
	defaultSinkTimeout = 10 * time.Second
)

// Hub serializes records produced by concurrent workers into one ordered
// stream and fans it out to the registered sinks. Emit blocks briefly under
// backpressure rather than dropping records; a full run log is the point.
type Hub struct {
	cfg     Config
	sinks   []Sink
	records chan Record
	stopCh  chan struct{}
	doneCh  chan struct{}
	logger  *zap.Logger
	closed  atomic.Bool

	closeOnce sync.Once
	closeCtx  context.Context
}

// NewHub starts the single consumer goroutine over the supplied sinks. The
// returned Hub is immediately ready to accept records.
func NewHub(cfg Config, sinks ...Sink) *Hub {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = defaultMaxBatch
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = defaultSinkTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		cfg:     cfg,
		sinks:   append([]Sink(nil), sinks...),
		records: make(chan Record, cfg.BufferSize),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		logger:  logger,
	}
	go h.run()
	return h
}

// Emit enqueues a record for delivery. Invalid records are discarded; records
// emitted after Close begins are dropped.
func (h *Hub) Emit(rec Record) {
	if h == nil || h.closed.Load() {
		return
	}
	if err := rec.Validate(); err != nil {
		h.logger.Debug("discarding invalid log record", zap.Error(err))
		return
	}
	select {
	case h.records <- rec:
	case <-h.stopCh:
	}
}

// Close drains remaining records, closes the sinks, and blocks until the
// consumer goroutine exits. Safe to call multiple times.
func (h *Hub) Close(ctx context.Context) error {
	if h == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		h.closeCtx = ctx
		close(h.stopCh)
	})
	select {
	case <-h.doneCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("log hub close wait: %w", ctx.Err())
	}
}

func (h *Hub) run() {
	defer close(h.doneCh)
	for {
		select {
		case rec := <-h.records:
			h.deliver(rec)
		case <-h.stopCh:
			h.drain()
			h.closeSinks()
			return
		}
	}
}

// deliver flushes rec plus anything already queued behind it, preserving
// arrival order.
func (h *Hub) deliver(first Record) {
	batch := make([]Record, 1, h.cfg.MaxBatch)
	batch[0] = first
	for len(batch) < h.cfg.MaxBatch {
		select {
		case rec := <-h.records:
			batch = append(batch, rec)
		default:
			h.flush(batch)
			return
		}
	}
	h.flush(batch)
}

func (h *Hub) drain() {
	for {
		select {
		case rec := <-h.records:
			h.deliver(rec)
		default:
			return
		}
	}
}

func (h *Hub) flush(batch []Record) {
	for _, sink := range h.sinks {
		if sink == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.SinkTimeout)
		if err := sink.Consume(ctx, batch); err != nil {
			h.logger.Warn("log sink consume failed", zap.Error(err))
		}
		cancel()
	}
}

func (h *Hub) closeSinks() {
	ctx := h.closeCtx
	if ctx == nil {
		ctx = context.Background()
	}
	for _, sink := range h.sinks {
		if sink == nil {
			continue
		}
		if err := sink.Close(ctx); err != nil {
			h.logger.Warn("log sink close failed", zap.Error(err))
		}
	}
}
