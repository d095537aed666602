// Package lesson generates classroom listening activities and tracks them.
package lesson

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/cadenza-app/cadenza/internal/domain"
	"github.com/cadenza-app/cadenza/internal/metrics"
)

// Service coordinates generation, provenance enrichment, and tracking.
type Service struct {
	generator Generator
	resolver  Resolver
	tracker   Tracker
	logger    *zap.Logger
}

// New creates a lesson service. resolver and tracker can be nil, which
// disables enrichment and tracking respectively.
func New(g Generator, r Resolver, t Tracker, logger *zap.Logger) *Service {
	return &Service{generator: g, resolver: r, tracker: t, logger: logger}
}

// GenerateListening produces a listening activity. The generated piece is
// enriched with score provenance when a catalog resolves it, and the
// generation is tracked; neither step can fail the request. The returned
// id is empty when tracking was unavailable.
func (s *Service) GenerateListening(ctx context.Context, req domain.ActivityRequest) (domain.ListeningActivity, string, error) {
	if err := req.Validate(); err != nil {
		return domain.ListeningActivity{}, "", fmt.Errorf("generate listening: %w", err)
	}

	activity, err := s.generator.Generate(ctx, req)
	if err != nil {
		metrics.GenerationsTotal.WithLabelValues("error").Inc()
		return domain.ListeningActivity{}, "", fmt.Errorf("generate listening: %w", err)
	}
	metrics.GenerationsTotal.WithLabelValues("success").Inc()

	s.enrich(ctx, &activity)
	id := s.track(ctx, req, activity)

	return activity, id, nil
}

// RecordFeedback attaches a rating to a tracked generation.
func (s *Service) RecordFeedback(ctx context.Context, id string, rating int, text string) error {
	if s.tracker == nil {
		return domain.ErrNotFound
	}
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w: rating must be 1-5", domain.ErrInvalidQuery)
	}
	if err := s.tracker.SetFeedback(ctx, id, rating, text); err != nil {
		return fmt.Errorf("record feedback: %w", err)
	}
	return nil
}

// enrich attaches score provenance to the generated piece. Absence is normal.
func (s *Service) enrich(ctx context.Context, activity *domain.ListeningActivity) {
	if s.resolver == nil {
		return
	}
	q := domain.MatchQuery{Title: activity.Piece.Title, Composer: activity.Piece.Composer}
	rec, err := s.resolver.Resolve(ctx, q)
	if err != nil {
		s.logger.Warn("provenance resolution failed",
			zap.String("title", q.Title), zap.String("composer", q.Composer), zap.Error(err))
		return
	}
	if rec == nil {
		return
	}
	activity.Provenance = rec
	fillMissingDetails(&activity.Piece.Details, rec.Details)
}

// fillMissingDetails copies resolved fields the generator left blank.
func fillMissingDetails(dst *domain.ScoreDetails, src domain.ScoreDetails) {
	if dst.Key == "" {
		dst.Key = src.Key
	}
	if dst.TimeSignature == "" {
		dst.TimeSignature = src.TimeSignature
	}
	if dst.YearComposed == "" {
		dst.YearComposed = src.YearComposed
	}
	if dst.About == "" {
		dst.About = src.About
	}
	if dst.PageURL == "" {
		dst.PageURL = src.PageURL
	}
	if dst.AudioURL == "" {
		dst.AudioURL = src.AudioURL
	}
}

// track persists the generation. Failures are logged and swallowed.
func (s *Service) track(ctx context.Context, req domain.ActivityRequest, activity domain.ListeningActivity) string {
	if s.tracker == nil {
		return ""
	}
	in, err := json.Marshal(req)
	if err != nil {
		s.logger.Warn("marshal tracking input failed", zap.Error(err))
		return ""
	}
	out, err := json.Marshal(activity)
	if err != nil {
		s.logger.Warn("marshal tracking output failed", zap.Error(err))
		return ""
	}
	rec, err := s.tracker.Insert(ctx, domain.ActivityRecord{
		Type:       domain.ActivityListening,
		InputData:  in,
		OutputData: out,
	})
	if err != nil {
		s.logger.Warn("track generation failed", zap.Error(err))
		return ""
	}
	return rec.ID
}
