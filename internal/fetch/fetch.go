// Package fetch implements the HTTP fetching layer: a colly-backed client
// performing single GETs and a retrying wrapper that classifies failures.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/joaoloss/uol-harvest/internal/metrics"
)

// Response is the outcome of a successful fetch. FinalURL is the effective
// post-redirect URL; the archive redirects through capture proxies and only
// the final URL carries the true snapshot timestamp.
type Response struct {
	StatusCode int
	FinalURL   string
	Body       []byte
	Duration   time.Duration
}

// Fetcher performs one HTTP GET.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Response, error)
}

// StatusError reports a non-success HTTP response. It is terminal: the
// server answered, so retrying the same request is pointless.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status code == %d for %s", e.Code, e.URL)
}

// ErrAttemptsExhausted wraps the last transport error once every attempt has
// failed.
var ErrAttemptsExhausted = errors.New("all fetch attempts failed")

// Config controls the colly collector.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Client implements Fetcher using a colly collector cloned per request.
type Client struct {
	cfg  Config
	base *colly.Collector
}

// NewClient builds a Client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	// Retries re-visit the same URL through fresh clones.
	c.AllowURLRevisit = true
	c.WithTransport(newHTTPTransport())
	return &Client{cfg: cfg, base: c}
}

// Fetch executes a single GET. Non-2xx responses surface as *StatusError;
// everything else comes back as a transport error.
func (c *Client) Fetch(ctx context.Context, rawURL string) (Response, error) {
	collector := c.base.Clone()
	if c.cfg.UserAgent != "" {
		collector.UserAgent = c.cfg.UserAgent
	}
	collector.SetRequestTimeout(c.cfg.Timeout)

	var (
		resp     Response
		fetchErr error
	)
	start := time.Now()

	collector.OnResponse(func(r *colly.Response) {
		resp = Response{
			StatusCode: r.StatusCode,
			FinalURL:   r.Request.URL.String(),
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			fetchErr = &StatusError{Code: r.StatusCode, URL: r.Request.URL.String()}
			return
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return Response{}, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case visitErr := <-done:
		if fetchErr != nil {
			return Response{}, fetchErr
		}
		if visitErr != nil {
			return Response{}, fmt.Errorf("visit %s: %w", rawURL, visitErr)
		}
		if resp.StatusCode == 0 {
			return Response{}, fmt.Errorf("visit %s produced no response", rawURL)
		}
		return resp, nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}

// RetryPolicy bounds attempts and fixes the delay between them.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// Retrying wraps a Fetcher with bounded fixed-delay retries. Transport
// failures (connection errors, timeouts, generic transport faults) are
// retried; a *StatusError or context cancellation ends the unit immediately.
// The zero value of Log is fine: attempt reporting is optional.
type Retrying struct {
	Inner  Fetcher
	Policy RetryPolicy
	Stage  string
	Log    Reporter
}

// Reporter receives attempt-level log lines. *logstream.Logger satisfies it.
type Reporter interface {
	Debugf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Fetch runs the retry loop.
func (r Retrying) Fetch(ctx context.Context, rawURL string) (Response, error) {
	attempts := r.Policy.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		metrics.ObserveFetchAttempt(r.Stage)
		resp, err := r.Inner.Fetch(ctx, rawURL)
		if err == nil {
			return resp, nil
		}

		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			r.errorf("%v, skipping...", statusErr)
			metrics.ObserveFetchFailure(r.Stage, "status")
			return Response{}, err
		}
		if ctx.Err() != nil {
			metrics.ObserveFetchFailure(r.Stage, "canceled")
			return Response{}, fmt.Errorf("fetch %s: %w", rawURL, ctx.Err())
		}

		last = err
		r.debugf("attempt %d/%d failed for %s: %v", attempt, attempts, rawURL, err)
		if attempt < attempts {
			metrics.ObserveFetchRetry(r.Stage)
			select {
			case <-time.After(r.Policy.Delay):
			case <-ctx.Done():
				metrics.ObserveFetchFailure(r.Stage, "canceled")
				return Response{}, fmt.Errorf("fetch %s: %w", rawURL, ctx.Err())
			}
		}
	}
	r.errorf("failed to connect with %s after %d attempts, skipping...", rawURL, attempts)
	metrics.ObserveFetchFailure(r.Stage, "exhausted")
	return Response{}, fmt.Errorf("%w for %s: %v", ErrAttemptsExhausted, rawURL, last)
}

func (r Retrying) debugf(format string, args ...any) {
	if r.Log != nil {
		r.Log.Debugf(format, args...)
	}
}

func (r Retrying) errorf(format string, args ...any) {
	if r.Log != nil {
		r.Log.Errorf(format, args...)
	}
}
