// Package source resolves (title, composer) pairs against external score
// catalogs. One generic engine runs the shared search-parse-score-persist
// pipeline; per-catalog behavior lives in small Profile values.
//
// Catalog markup is untrusted and changes without notice. The engine fails
// soft everywhere: a broken page, an open breaker, or a missing match all
// resolve to (nil, nil), never an error. The only error Resolve returns is
// a malformed query, which is a programmer mistake.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/cadenza-app/cadenza/internal/domain"
	"github.com/cadenza-app/cadenza/internal/match"
	"github.com/cadenza-app/cadenza/internal/metrics"
)

// Fetcher issues resilient GETs on behalf of a source.
type Fetcher interface {
	Get(ctx context.Context, source domain.Source, url string) ([]byte, error)
}

// ScoreCache is the persisted record store consulted before scraping.
// Records are keyed by the query pair, not the scraped names, so a repeat of
// the same query hits the cache even when the catalog spells things
// differently.
type ScoreCache interface {
	Find(ctx context.Context, q domain.MatchQuery, src domain.Source) (*domain.ResolvedScore, error)
	Save(ctx context.Context, q domain.MatchQuery, rec *domain.ResolvedScore) error
}

// Profile describes one catalog to the generic engine.
type Profile struct {
	Source domain.Source

	// SearchURL builds the search page URL from an already URL-encoded
	// "{title} {composer}" query.
	SearchURL func(encodedQuery string) string

	// ResultSelector matches the repeating result-card elements. Zero
	// matches on a fetched page means the catalog changed its layout and
	// the page is skipped rather than parsed brittly.
	ResultSelector string

	// ParseCandidate extracts one candidate from a result card. Returning
	// false skips the card (malformed cards are not fatal to the page).
	ParseCandidate func(sel *goquery.Selection) (domain.Candidate, bool)

	// DetailURL names the detail page to fetch for the accepted candidate.
	// Nil (or false) skips the detail fetch.
	DetailURL func(cand domain.Candidate) (string, bool)

	// EnrichDetail pulls extra metadata out of the detail page.
	EnrichDetail func(doc *goquery.Document, details *domain.ScoreDetails)

	// NotationURL locates the notation (MusicXML) file. doc is the parsed
	// detail page, or nil when the profile has no detail page and the
	// candidate itself carries the notation reference.
	NotationURL func(doc *goquery.Document, cand domain.Candidate) (string, bool)
}

// Adapter runs the resolution pipeline for one catalog.
type Adapter struct {
	profile   Profile
	threshold float64
	fetcher   Fetcher
	cache     ScoreCache
	logger    *zap.Logger
}

// NewAdapter creates an adapter. threshold <= 0 falls back to match.DefaultThreshold.
func NewAdapter(p Profile, threshold float64, f Fetcher, cache ScoreCache, logger *zap.Logger) *Adapter {
	if threshold <= 0 {
		threshold = match.DefaultThreshold
	}
	return &Adapter{profile: p, threshold: threshold, fetcher: f, cache: cache, logger: logger}
}

// Source returns the catalog this adapter serves.
func (a *Adapter) Source() domain.Source { return a.profile.Source }

// Resolve locates the best match for q on this catalog, or nil when nothing
// acceptable was found or the catalog is unavailable.
func (a *Adapter) Resolve(ctx context.Context, q domain.MatchQuery) (*domain.ResolvedScore, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("resolve %s: %w", a.profile.Source, err)
	}
	log := a.logger.With(
		zap.String("source", string(a.profile.Source)),
		zap.String("title", q.Title),
		zap.String("composer", q.Composer),
	)

	// Cache check: at most one scrape per (title, composer, source) in the
	// common case. Concurrent callers may both miss and both scrape; the
	// second persist is a harmless upsert.
	if rec := a.cacheLookup(ctx, q, log); rec != nil {
		return rec, nil
	}

	query := url.QueryEscape(strings.TrimSpace(q.Title + " " + q.Composer))
	searchURL := a.profile.SearchURL(query)

	body, err := a.fetcher.Get(ctx, a.profile.Source, searchURL)
	if err != nil {
		metrics.ResolutionsTotal.WithLabelValues(string(a.profile.Source), "unavailable").Inc()
		log.Debug("search fetch failed", zap.String("url", searchURL), zap.Error(err))
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		metrics.ResolutionsTotal.WithLabelValues(string(a.profile.Source), "structure_changed").Inc()
		log.Warn("search page unparseable", zap.String("url", searchURL), zap.Error(err))
		return nil, nil
	}

	cards := doc.Find(a.profile.ResultSelector)
	if cards.Length() == 0 {
		// Expected repeating structure absent: the catalog likely changed
		// its markup. Log loudly enough to diagnose, then fail soft.
		metrics.ResolutionsTotal.WithLabelValues(string(a.profile.Source), "structure_changed").Inc()
		log.Warn("expected result structure absent",
			zap.String("url", searchURL),
			zap.String("selector", a.profile.ResultSelector),
			zap.Error(domain.ErrStructureChanged),
		)
		return nil, nil
	}

	best, bestScore := a.selectBest(cards, q)
	if best == nil || bestScore <= a.threshold {
		metrics.ResolutionsTotal.WithLabelValues(string(a.profile.Source), "no_match").Inc()
		log.Debug("no candidate above threshold",
			zap.Float64("best_score", bestScore),
			zap.Float64("threshold", a.threshold),
		)
		return nil, nil
	}

	rec := &domain.ResolvedScore{
		Title:      best.Title,
		Composer:   best.Composer,
		Source:     a.profile.Source,
		Details:    best.Details,
		MatchScore: bestScore,
		ResolvedAt: time.Now().UTC(),
	}

	a.fetchNotation(ctx, *best, rec, log)

	// Persist best-effort: the caller already has the answer in hand.
	if err := a.cache.Save(ctx, q, rec); err != nil {
		log.Warn("persist resolved score failed", zap.Error(err))
	}

	metrics.ResolutionsTotal.WithLabelValues(string(a.profile.Source), "matched").Inc()
	log.Info("score resolved",
		zap.String("matched_title", rec.Title),
		zap.Float64("score", bestScore),
		zap.Bool("notation", rec.MusicXML != ""),
	)
	return rec, nil
}

func (a *Adapter) cacheLookup(ctx context.Context, q domain.MatchQuery, log *zap.Logger) *domain.ResolvedScore {
	rec, err := a.cache.Find(ctx, q, a.profile.Source)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Warn("score cache lookup failed", zap.Error(err))
		}
		metrics.ScoreCacheTotal.WithLabelValues("miss").Inc()
		return nil
	}
	metrics.ScoreCacheTotal.WithLabelValues("hit").Inc()
	return rec
}

// selectBest scores every parseable card and keeps the strictly best one;
// ties resolve to the first seen.
func (a *Adapter) selectBest(cards *goquery.Selection, q domain.MatchQuery) (*domain.Candidate, float64) {
	var best *domain.Candidate
	bestScore := 0.0
	cards.Each(func(_ int, sel *goquery.Selection) {
		cand, ok := a.profile.ParseCandidate(sel)
		if !ok {
			return
		}
		cand.Source = a.profile.Source
		if score := match.Score(cand.Title, cand.Composer, q); score > bestScore {
			bestScore = score
			c := cand
			best = &c
		}
	})
	return best, bestScore
}

// fetchNotation fills rec.MusicXML and detail metadata when the profile
// supports it. Every failure here keeps the partial result: a match without
// notation beats no match.
func (a *Adapter) fetchNotation(ctx context.Context, cand domain.Candidate, rec *domain.ResolvedScore, log *zap.Logger) {
	var detailDoc *goquery.Document

	if a.profile.DetailURL != nil {
		if detailURL, ok := a.profile.DetailURL(cand); ok {
			body, err := a.fetcher.Get(ctx, a.profile.Source, detailURL)
			if err != nil {
				log.Debug("detail fetch failed, keeping metadata-only match",
					zap.String("url", detailURL), zap.Error(err))
			} else if detailDoc, err = goquery.NewDocumentFromReader(bytes.NewReader(body)); err != nil {
				log.Warn("detail page unparseable", zap.String("url", detailURL), zap.Error(err))
				detailDoc = nil
			} else if a.profile.EnrichDetail != nil {
				a.profile.EnrichDetail(detailDoc, &rec.Details)
			}
		}
	}

	if a.profile.NotationURL == nil {
		return
	}
	if a.profile.DetailURL != nil && detailDoc == nil {
		// The profile locates notation on the detail page and we never got one.
		return
	}
	notationURL, ok := a.profile.NotationURL(detailDoc, cand)
	if !ok {
		return
	}
	xml, err := a.fetcher.Get(ctx, a.profile.Source, notationURL)
	if err != nil {
		log.Debug("notation fetch failed, keeping metadata-only match",
			zap.String("url", notationURL), zap.Error(err))
		return
	}
	rec.MusicXML = string(xml)
}

// cardText returns the trimmed text of the first element matching any of the
// given selectors.
func cardText(sel *goquery.Selection, selectors ...string) string {
	for _, s := range selectors {
		if t := strings.TrimSpace(sel.Find(s).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

// cardAttr returns the trimmed attribute of the first matching element.
func cardAttr(sel *goquery.Selection, selector, attr string) (string, bool) {
	v, ok := sel.Find(selector).First().Attr(attr)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}
