// Package score persists resolved scores in a key-value store, keyed by the
// normalized (title, composer, source) triple.
package score

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cadenza-app/cadenza/internal/db"
	"github.com/cadenza-app/cadenza/internal/domain"
)

const keyPrefix = "cadenza:score:"

// store is the consumer interface for the score repository.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Repo stores one JSON document per resolved (title, composer, source).
type Repo struct {
	store store
	ttl   time.Duration // 0 = keep forever
}

// New creates a score repository. ttl of 0 disables expiry.
func New(s store, ttl time.Duration) *Repo {
	return &Repo{store: s, ttl: ttl}
}

// Find returns the cached resolution for the query on the given source, or
// domain.ErrNotFound.
func (r *Repo) Find(ctx context.Context, q domain.MatchQuery, src domain.Source) (*domain.ResolvedScore, error) {
	data, err := r.store.Get(ctx, key(q, src))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get score: %w", err)
	}
	var rec domain.ResolvedScore
	if err := json.Unmarshal(data, &rec); err != nil {
		// A corrupt document is as good as a miss; the adapter re-scrapes
		// and overwrites it.
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// Save upserts the resolution under the query's key. Concurrent resolutions
// of the same query may both land here; last write wins and both writes carry
// equivalent content, which is the documented accepted race.
func (r *Repo) Save(ctx context.Context, q domain.MatchQuery, rec *domain.ResolvedScore) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal score: %w", err)
	}
	k := key(q, rec.Source)
	if r.ttl > 0 {
		if err := r.store.SetWithTTL(ctx, k, data, r.ttl); err != nil {
			return fmt.Errorf("set score: %w", err)
		}
		return nil
	}
	if err := r.store.Set(ctx, k, data); err != nil {
		return fmt.Errorf("set score: %w", err)
	}
	return nil
}

// key hashes the normalized query so spelling-insignificant variations
// (case, surrounding space) share an entry.
func key(q domain.MatchQuery, src domain.Source) string {
	material := normalizeKeyPart(q.Title) + "|" + normalizeKeyPart(q.Composer) + "|" + string(src)
	h := sha256.Sum256([]byte(material))
	return keyPrefix + hex.EncodeToString(h[:])
}

func normalizeKeyPart(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
