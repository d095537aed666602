// Package analytics persists generation tracking and user feedback in SQLite.
package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/cadenza-app/cadenza/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS activity_analytics (
	id              TEXT PRIMARY KEY,
	activity_type   TEXT NOT NULL,
	input_data      TEXT NOT NULL,
	output_data     TEXT NOT NULL,
	feedback_rating INTEGER NOT NULL DEFAULT 0,
	feedback_text   TEXT NOT NULL DEFAULT '',
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activity_created ON activity_analytics(created_at);
`

// Repo is the SQLite-backed analytics store.
type Repo struct {
	db *sql.DB

	now func() time.Time // test seam
}

// Open connects to (or creates) the analytics database at path.
// ":memory:" works for tests.
func Open(path string) (*Repo, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Repo{db: db, now: time.Now}, nil
}

// Close releases the database handle.
func (r *Repo) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close sqlite db: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	return nil
}

// Insert records one tracked generation and returns it with id and timestamps set.
func (r *Repo) Insert(ctx context.Context, rec domain.ActivityRecord) (domain.ActivityRecord, error) {
	rec.ID = uuid.NewString()
	rec.CreatedAt = r.now().UTC()
	rec.UpdatedAt = rec.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO activity_analytics
			(id, activity_type, input_data, output_data, feedback_rating, feedback_text, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Type), string(rec.InputData), string(rec.OutputData),
		rec.FeedbackRating, rec.FeedbackText,
		rec.CreatedAt.Format(time.RFC3339Nano), rec.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return domain.ActivityRecord{}, fmt.Errorf("insert activity: %w", err)
	}
	return rec, nil
}

// SetFeedback attaches a rating (and optional text) to a tracked activity.
// Returns domain.ErrNotFound for an unknown id.
func (r *Repo) SetFeedback(ctx context.Context, id string, rating int, text string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE activity_analytics
		 SET feedback_rating = ?, feedback_text = ?, updated_at = ?
		 WHERE id = ?`,
		rating, text, r.now().UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("update feedback: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Get returns one tracked activity by id, or domain.ErrNotFound.
func (r *Repo) Get(ctx context.Context, id string) (domain.ActivityRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, activity_type, input_data, output_data, feedback_rating, feedback_text, created_at, updated_at
		 FROM activity_analytics WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ActivityRecord{}, domain.ErrNotFound
		}
		return domain.ActivityRecord{}, fmt.Errorf("get activity: %w", err)
	}
	return rec, nil
}

// Recent returns the newest tracked activities, most recent first.
func (r *Repo) Recent(ctx context.Context, limit int) ([]domain.ActivityRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, activity_type, input_data, output_data, feedback_rating, feedback_text, created_at, updated_at
		 FROM activity_analytics ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.ActivityRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (domain.ActivityRecord, error) {
	var (
		rec                  domain.ActivityRecord
		typ, in, out         string
		createdAt, updatedAt string
	)
	if err := s.Scan(&rec.ID, &typ, &in, &out, &rec.FeedbackRating, &rec.FeedbackText, &createdAt, &updatedAt); err != nil {
		return domain.ActivityRecord{}, err
	}
	rec.Type = domain.ActivityType(typ)
	rec.InputData = []byte(in)
	rec.OutputData = []byte(out)
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return rec, nil
}
