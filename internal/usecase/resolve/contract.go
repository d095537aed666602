package resolve

import (
	"context"

	"github.com/cadenza-app/cadenza/internal/domain"
)

// SourceResolver locates a score on one catalog. A nil record with a nil error
// means the catalog had nothing acceptable, which is a normal outcome.
type SourceResolver interface {
	Source() domain.Source
	Resolve(ctx context.Context, q domain.MatchQuery) (*domain.ResolvedScore, error)
}
