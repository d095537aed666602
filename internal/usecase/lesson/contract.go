package lesson

import (
	"context"

	"github.com/cadenza-app/cadenza/internal/domain"
)

// Generator produces a listening activity for the given classroom request.
type Generator interface {
	Generate(ctx context.Context, req domain.ActivityRequest) (domain.ListeningActivity, error)
}

// Resolver locates score provenance for a piece. nil, nil means no catalog
// matched, which is a normal outcome.
type Resolver interface {
	Resolve(ctx context.Context, q domain.MatchQuery) (*domain.ResolvedScore, error)
}

// Tracker persists generation records and user feedback.
type Tracker interface {
	Insert(ctx context.Context, rec domain.ActivityRecord) (domain.ActivityRecord, error)
	SetFeedback(ctx context.Context, id string, rating int, text string) error
}
