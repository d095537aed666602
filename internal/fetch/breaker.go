package fetch

import (
	"sync"
	"time"
)

// BreakerConfig tunes a per-source circuit breaker. Thresholds and windows
// differ per source criticality, so they are configuration, not constants.
type BreakerConfig struct {
	FailureThreshold int
	ResetWindow      time.Duration
}

// breaker tracks consecutive failures for one source. The breaker is a
// heuristic throttle: updates are mutex-guarded but callers racing between
// allow and record is fine.
//
// Open state is derived, not stored: failures >= threshold AND the reset
// window has not elapsed since the last failure. Once the window elapses the
// breaker closes by itself, no probe success required.
type breaker struct {
	mu          sync.Mutex
	cfg         BreakerConfig
	failures    int
	lastFailure time.Time
}

func newBreaker(cfg BreakerConfig) *breaker {
	return &breaker{cfg: cfg}
}

// allow reports whether an outbound call may proceed at the given instant.
func (b *breaker) allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures < b.cfg.FailureThreshold {
		return true
	}
	return now.Sub(b.lastFailure) >= b.cfg.ResetWindow
}

// recordSuccess resets the breaker immediately, regardless of elapsed time.
func (b *breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.lastFailure = time.Time{}
}

// recordFailure counts one exhausted fetch (or non-retryable client error).
func (b *breaker) recordFailure(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.lastFailure = now
}
