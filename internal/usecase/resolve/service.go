// Package resolve runs the catalog chain: adapters are tried in priority
// order and the first acceptable match wins.
package resolve

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cadenza-app/cadenza/internal/domain"
	"github.com/cadenza-app/cadenza/internal/metrics"
)

// DefaultChainTimeout bounds one full pass over every catalog.
const DefaultChainTimeout = 45 * time.Second

// Service tries catalogs in order until one yields an acceptable match.
type Service struct {
	chain   []SourceResolver
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a resolution service. timeout <= 0 falls back to
// DefaultChainTimeout.
func New(chain []SourceResolver, timeout time.Duration, logger *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultChainTimeout
	}
	return &Service{chain: chain, timeout: timeout, logger: logger}
}

// Resolve walks the chain and returns the first match, or nil when every
// catalog came up empty. A failing catalog falls through to the next one;
// only an invalid query is an error.
func (s *Service) Resolve(ctx context.Context, q domain.MatchQuery) (*domain.ResolvedScore, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.ResolutionDuration.Observe(time.Since(start).Seconds())
	}()

	for _, r := range s.chain {
		if ctx.Err() != nil {
			s.logger.Warn("resolution chain deadline reached",
				zap.String("title", q.Title),
				zap.String("composer", q.Composer),
				zap.String("stopped_before", string(r.Source())))
			break
		}

		rec, err := r.Resolve(ctx, q)
		if err != nil {
			// Adapter errors never abort the chain.
			s.logger.Warn("catalog resolution failed, trying next",
				zap.String("source", string(r.Source())), zap.Error(err))
			continue
		}
		if rec != nil {
			return rec, nil
		}
	}

	return nil, nil
}

// Sources returns the chain's catalog order, for reporting.
func (s *Service) Sources() []domain.Source {
	out := make([]domain.Source, len(s.chain))
	for i, r := range s.chain {
		out[i] = r.Source()
	}
	return out
}
