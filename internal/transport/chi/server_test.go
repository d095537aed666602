package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cadenza-app/cadenza/internal/domain"
	logpkg "github.com/cadenza-app/cadenza/internal/logger"
	healthuc "github.com/cadenza-app/cadenza/internal/usecase/health"
)

// --- Mocks ---

type mockLessons struct {
	activity    domain.ListeningActivity
	activityID  string
	generateErr error
	feedbackErr error
	gotFeedback feedbackRequest
}

func (m *mockLessons) GenerateListening(_ context.Context, req domain.ActivityRequest) (domain.ListeningActivity, string, error) {
	if err := req.Validate(); err != nil {
		return domain.ListeningActivity{}, "", err
	}
	return m.activity, m.activityID, m.generateErr
}

func (m *mockLessons) RecordFeedback(_ context.Context, id string, rating int, text string) error {
	m.gotFeedback = feedbackRequest{ActivityID: id, Rating: rating, Text: text}
	return m.feedbackErr
}

type mockResolver struct {
	rec *domain.ResolvedScore
	err error
}

func (m *mockResolver) Resolve(_ context.Context, q domain.MatchQuery) (*domain.ResolvedScore, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return m.rec, m.err
}

type okPinger struct{}

func (okPinger) Ping(_ context.Context) error { return nil }

func testRouter(lessons *mockLessons, resolver *mockResolver) http.Handler {
	return testRouterWithLogger(lessons, resolver, zap.NewNop())
}

// testRouterWithLogger installs the logger into the request context the same
// way the serve command's logging middleware does.
func testRouterWithLogger(lessons *mockLessons, resolver *mockResolver, log *zap.Logger) http.Handler {
	server := NewServer(lessons, resolver, healthuc.New(okPinger{}, okPinger{}, nil))
	r := chirouter.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(logpkg.ContextWithLogger(req.Context(), log)))
		})
	})
	server.Routes(r)
	return r
}

// --- Tests ---

func TestGenerateListening(t *testing.T) {
	lessons := &mockLessons{
		activity: domain.ListeningActivity{
			Piece:  domain.Piece{Title: "The Moldau", Composer: "Bedrich Smetana"},
			Reason: "Flowing melody paints a river journey.",
		},
		activityID: "rec-1",
	}
	r := testRouter(lessons, &mockResolver{})

	body := `{"year_group":"Year 4","theme":"rivers"}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/lessons/listening", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	var resp listeningResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ActivityID != "rec-1" {
		t.Errorf("activity_id = %q, want rec-1", resp.ActivityID)
	}
	if resp.Activity.Piece.Title != "The Moldau" {
		t.Errorf("piece title = %q", resp.Activity.Piece.Title)
	}
}

func TestGenerateListeningValidation(t *testing.T) {
	r := testRouter(&mockLessons{}, &mockResolver{})

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"year_group": `},
		{"missing theme", `{"year_group":"Year 4"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/lessons/listening", strings.NewReader(tt.body)))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestGenerateListeningGeneratorFailure(t *testing.T) {
	lessons := &mockLessons{generateErr: domain.ErrGeneratorError}
	r := testRouter(lessons, &mockResolver{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/lessons/listening",
		strings.NewReader(`{"year_group":"Year 4","theme":"space"}`)))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestRecordFeedback(t *testing.T) {
	lessons := &mockLessons{}
	r := testRouter(lessons, &mockResolver{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/feedback",
		strings.NewReader(`{"activity_id":"rec-1","rating":4,"text":"great"}`)))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204; body %s", rec.Code, rec.Body.String())
	}
	if lessons.gotFeedback.ActivityID != "rec-1" || lessons.gotFeedback.Rating != 4 {
		t.Errorf("feedback forwarded as %+v", lessons.gotFeedback)
	}
}

func TestRecordFeedbackUnknownActivity(t *testing.T) {
	lessons := &mockLessons{feedbackErr: domain.ErrNotFound}
	r := testRouter(lessons, &mockResolver{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/feedback",
		strings.NewReader(`{"activity_id":"missing","rating":3}`)))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRecordFeedbackMissingID(t *testing.T) {
	r := testRouter(&mockLessons{}, &mockResolver{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/feedback", strings.NewReader(`{"rating":3}`)))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestResolveScoreFound(t *testing.T) {
	resolver := &mockResolver{rec: &domain.ResolvedScore{
		Title: "The Moldau", Composer: "Smetana", Source: domain.SourceIMSLP,
	}}
	r := testRouter(&mockLessons{}, resolver)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/scores/resolve?title=The+Moldau&composer=Smetana", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp resolveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Found || resp.Score == nil || resp.Score.Source != domain.SourceIMSLP {
		t.Errorf("response = %+v, want found score", resp)
	}
}

func TestResolveScoreNotFound(t *testing.T) {
	r := testRouter(&mockLessons{}, &mockResolver{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/scores/resolve?title=Nothing&composer=Nobody", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var resp resolveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Found {
		t.Error("found = true, want false")
	}
}

func TestResolveScoreMissingParams(t *testing.T) {
	r := testRouter(&mockLessons{}, &mockResolver{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/scores/resolve?title=Only+Title", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestResolveScoreInternalError(t *testing.T) {
	r := testRouter(&mockLessons{}, &mockResolver{err: errors.New("boom")})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/scores/resolve?title=a&composer=b", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "boom") {
		t.Error("internal error details leaked to client")
	}
}

// Errors must be logged through the request-scoped logger installed by the
// logging middleware, so the lines carry the per-request fields.
func TestDomainErrorsLogViaRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := testRouterWithLogger(&mockLessons{}, &mockResolver{err: errors.New("boom")}, zap.New(core))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/scores/resolve?title=a&composer=b", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if logs.FilterMessage("domain error").Len() == 0 {
		t.Error("domain error not logged through the request context logger")
	}
	if logs.FilterMessage("internal error").Len() == 0 {
		t.Error("internal error not logged through the request context logger")
	}
}

func TestHealthCheck(t *testing.T) {
	r := testRouter(&mockLessons{}, &mockResolver{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
}
