package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cadenza-app/cadenza/internal/domain"
)

func testRepo(t *testing.T) *Repo {
	t.Helper()
	repo, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestInsertAndGet(t *testing.T) {
	repo := testRepo(t)

	rec, err := repo.Insert(context.Background(), domain.ActivityRecord{
		Type:       domain.ActivityListening,
		InputData:  []byte(`{"year_group":"Year 4","theme":"space"}`),
		OutputData: []byte(`{"reason":"..."}`),
	})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if rec.ID == "" {
		t.Fatal("Insert() did not assign an id")
	}
	if rec.CreatedAt.IsZero() || !rec.CreatedAt.Equal(rec.UpdatedAt) {
		t.Errorf("Insert() timestamps = %v / %v, want equal and non-zero", rec.CreatedAt, rec.UpdatedAt)
	}

	got, err := repo.Get(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Type != domain.ActivityListening {
		t.Errorf("Get() type = %q, want listening", got.Type)
	}
	if string(got.InputData) != string(rec.InputData) {
		t.Errorf("Get() input = %s, want %s", got.InputData, rec.InputData)
	}
	if got.FeedbackRating != 0 || got.FeedbackText != "" {
		t.Errorf("Get() feedback = (%d, %q), want empty", got.FeedbackRating, got.FeedbackText)
	}
}

func TestGetUnknownID(t *testing.T) {
	repo := testRepo(t)
	if _, err := repo.Get(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestSetFeedback(t *testing.T) {
	repo := testRepo(t)

	rec, err := repo.Insert(context.Background(), domain.ActivityRecord{
		Type:       domain.ActivityListening,
		InputData:  []byte(`{}`),
		OutputData: []byte(`{}`),
	})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	if err := repo.SetFeedback(context.Background(), rec.ID, 5, "great fit for my class"); err != nil {
		t.Fatalf("SetFeedback() error = %v", err)
	}

	got, err := repo.Get(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.FeedbackRating != 5 || got.FeedbackText != "great fit for my class" {
		t.Errorf("feedback = (%d, %q), want (5, text)", got.FeedbackRating, got.FeedbackText)
	}
}

func TestSetFeedbackUnknownID(t *testing.T) {
	repo := testRepo(t)
	if err := repo.SetFeedback(context.Background(), "missing", 3, ""); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("SetFeedback() error = %v, want ErrNotFound", err)
	}
}

func TestRecentOrderAndLimit(t *testing.T) {
	repo := testRepo(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var last string
	for i := 0; i < 5; i++ {
		tick := base.Add(time.Duration(i) * time.Minute)
		repo.now = func() time.Time { return tick }
		rec, err := repo.Insert(context.Background(), domain.ActivityRecord{
			Type:       domain.ActivityListening,
			InputData:  []byte(`{}`),
			OutputData: []byte(`{}`),
		})
		if err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		last = rec.ID
	}

	got, err := repo.Recent(context.Background(), 3)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Recent() len = %d, want 3", len(got))
	}
	if got[0].ID != last {
		t.Errorf("Recent()[0].ID = %s, want newest %s", got[0].ID, last)
	}
	if !got[0].CreatedAt.After(got[1].CreatedAt) {
		t.Errorf("Recent() not ordered newest first: %v then %v", got[0].CreatedAt, got[1].CreatedAt)
	}
}
