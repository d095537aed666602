// Package fetch wraps outbound HTTP GETs to score catalogs with timeouts,
// retry with jittered exponential backoff, per-source rate limiting, and
// per-source circuit breakers. Catalogs are unreliable by assumption; every
// failure here degrades to "source unavailable" further up the pipeline.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cadenza-app/cadenza/internal/domain"
	"github.com/cadenza-app/cadenza/internal/metrics"
)

const (
	acceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	userAgent    = "Mozilla/5.0 (compatible; CadenzaBot/1.0)"

	// Response bodies are untrusted HTML; cap reads defensively.
	maxBodyBytes = 8 << 20
)

// SourceConfig tunes fetching for one catalog.
type SourceConfig struct {
	Retries      int
	InitialDelay time.Duration
	Timeout      time.Duration
	Breaker      BreakerConfig
	RatePerSec   float64
	Burst        int
}

// DefaultSourceConfig mirrors the most conservative catalog profile.
func DefaultSourceConfig() SourceConfig {
	return SourceConfig{
		Retries:      3,
		InitialDelay: time.Second,
		Timeout:      10 * time.Second,
		Breaker:      BreakerConfig{FailureThreshold: 5, ResetWindow: 5 * time.Minute},
		RatePerSec:   2,
		Burst:        4,
	}
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// Client fetches catalog pages. Breaker and limiter state is owned here,
// keyed by source, created at construction; nothing else mutates it.
type Client struct {
	http     *http.Client
	logger   *zap.Logger
	configs  map[domain.Source]SourceConfig
	breakers map[domain.Source]*breaker
	limiters map[domain.Source]*rate.Limiter

	// seams for tests
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// New creates a Client. Sources missing from configs get DefaultSourceConfig.
func New(httpClient *http.Client, configs map[domain.Source]SourceConfig, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	c := &Client{
		http:     httpClient,
		logger:   logger,
		configs:  make(map[domain.Source]SourceConfig, len(domain.AllSources())),
		breakers: make(map[domain.Source]*breaker, len(domain.AllSources())),
		limiters: make(map[domain.Source]*rate.Limiter, len(domain.AllSources())),
		now:      time.Now,
		sleep:    sleepCtx,
		jitter:   rand.Float64,
	}
	for _, src := range domain.AllSources() {
		cfg, ok := configs[src]
		if !ok {
			cfg = DefaultSourceConfig()
		}
		c.configs[src] = cfg
		c.breakers[src] = newBreaker(cfg.Breaker)
		c.limiters[src] = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst)
	}
	return c
}

// Get fetches url on behalf of source, honoring the source's breaker, rate
// limit, and retry schedule. The returned error is ErrSourceUnavailable when
// the breaker is open, ErrFetchExhausted when the retry budget ran out, or a
// StatusError for a non-retryable 4xx. All of them mean "no page", never a
// caller-facing failure.
func (c *Client) Get(ctx context.Context, source domain.Source, url string) ([]byte, error) {
	cfg, ok := c.configs[source]
	if !ok {
		return nil, fmt.Errorf("unknown source %q", source)
	}
	br := c.breakers[source]

	if !br.allow(c.now()) {
		metrics.BreakerShortCircuitsTotal.WithLabelValues(string(source)).Inc()
		c.logger.Debug("circuit breaker open, skipping fetch",
			zap.String("source", string(source)), zap.String("url", url))
		return nil, fmt.Errorf("fetch %s: %w", url, domain.ErrSourceUnavailable)
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.Retries; attempt++ {
		if err := c.limiters[source].Wait(ctx); err != nil {
			br.recordFailure(c.now())
			return nil, fmt.Errorf("fetch %s: %w: %w", url, domain.ErrFetchExhausted, err)
		}

		body, err := c.attempt(ctx, cfg, url)
		if err == nil {
			br.recordSuccess()
			metrics.SourceFetchesTotal.WithLabelValues(string(source), "ok").Inc()
			return body, nil
		}
		lastErr = err

		if se, ok := errAsStatus(err); ok && se.StatusCode >= 400 && se.StatusCode < 500 {
			// Client errors will not improve on retry, but they still
			// count toward the breaker.
			br.recordFailure(c.now())
			metrics.SourceFetchesTotal.WithLabelValues(string(source), "client_error").Inc()
			return nil, fmt.Errorf("fetch %s: %w", url, err)
		}

		c.logger.Warn("fetch attempt failed",
			zap.String("source", string(source)),
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("retries", cfg.Retries),
			zap.Error(err),
		)

		if attempt < cfg.Retries {
			delay := backoffDelay(cfg.InitialDelay, attempt, c.jitter())
			if err := c.sleep(ctx, delay); err != nil {
				br.recordFailure(c.now())
				return nil, fmt.Errorf("fetch %s: %w: %w", url, domain.ErrFetchExhausted, err)
			}
		}
	}

	br.recordFailure(c.now())
	metrics.SourceFetchesTotal.WithLabelValues(string(source), "exhausted").Inc()
	return nil, fmt.Errorf("fetch %s after %d attempts: %w: %w", url, cfg.Retries, domain.ErrFetchExhausted, lastErr)
}

// attempt performs a single GET with its own timeout; the in-flight request
// is canceled on expiry.
func (c *Client) attempt(ctx context.Context, cfg SourceConfig, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// backoffDelay computes initial * 2^(attempt-1) * (0.5 + jitter[0,1)).
// Multiplicative jitter spreads retries out to avoid thundering herds.
func backoffDelay(initial time.Duration, attempt int, jitter float64) time.Duration {
	exp := float64(int64(1) << uint(attempt-1))
	return time.Duration(float64(initial) * exp * (0.5 + jitter))
}

func errAsStatus(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
