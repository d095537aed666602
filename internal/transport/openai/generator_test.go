package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/cadenza-app/cadenza/internal/domain"
)

const activityJSON = `{
  "piece": {
    "title": "The Planets: Mars, the Bringer of War",
    "composer": "Gustav Holst",
    "youtube_link": "https://youtube.com/watch?v=abc",
    "details": {
      "year_composed": "1914-1917",
      "about": "An orchestral suite depicting the planets."
    }
  },
  "reason": "Driving rhythms evoke space travel.",
  "questions": ["What instruments start the piece?", "How does the pulse make you feel?"],
  "teacher_tip": "Tap the 5/4 ostinato together first."
}`

func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		resp := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "test-model",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"}},
			"usage":   map[string]any{"prompt_tokens": 120, "completion_tokens": 200, "total_tokens": 320},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func testGenerator(baseURL string) *Generator {
	return NewGenerator(&Config{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   "test-model",
		Logger:  zap.NewNop(),
	})
}

var req = domain.ActivityRequest{YearGroup: "Year 5", Theme: "space", EnergyLevel: "energetic"}

func TestGenerate(t *testing.T) {
	server := completionServer(t, activityJSON)
	defer server.Close()

	activity, err := testGenerator(server.URL).Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if activity.Piece.Title != "The Planets: Mars, the Bringer of War" {
		t.Errorf("piece title = %q", activity.Piece.Title)
	}
	if activity.Piece.Composer != "Gustav Holst" {
		t.Errorf("piece composer = %q", activity.Piece.Composer)
	}
	if len(activity.Questions) != 2 {
		t.Errorf("questions = %d, want 2", len(activity.Questions))
	}
	if activity.Piece.Details.YearComposed != "1914-1917" {
		t.Errorf("year composed = %q", activity.Piece.Details.YearComposed)
	}
	if activity.TeacherTip == "" {
		t.Error("teacher tip empty")
	}
}

func TestGenerateForwardsUser(t *testing.T) {
	var gotUser string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			User string `json:"user"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		gotUser = body.User
		resp := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "test-model",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": activityJSON}, "finish_reason": "stop"}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	gen := NewGenerator(&Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
		User:    "cadenza-prod",
		Logger:  zap.NewNop(),
	})
	if _, err := gen.Generate(context.Background(), req); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if gotUser != "cadenza-prod" {
		t.Errorf("user field = %q, want cadenza-prod", gotUser)
	}
}

func TestGenerateStripsCodeFences(t *testing.T) {
	server := completionServer(t, "```json\n"+activityJSON+"\n```")
	defer server.Close()

	activity, err := testGenerator(server.URL).Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if activity.Piece.Composer != "Gustav Holst" {
		t.Errorf("piece composer = %q, want parsed through fences", activity.Piece.Composer)
	}
}

func TestGenerateMalformedJSON(t *testing.T) {
	server := completionServer(t, "here is your activity: {not json")
	defer server.Close()

	_, err := testGenerator(server.URL).Generate(context.Background(), req)
	if !errors.Is(err, domain.ErrGeneratorError) {
		t.Fatalf("Generate() error = %v, want ErrGeneratorError", err)
	}
}

func TestGenerateMissingPiece(t *testing.T) {
	server := completionServer(t, `{"reason": "no piece selected", "questions": []}`)
	defer server.Close()

	_, err := testGenerator(server.URL).Generate(context.Background(), req)
	if !errors.Is(err, domain.ErrGeneratorError) {
		t.Fatalf("Generate() error = %v, want ErrGeneratorError", err)
	}
}

func TestGenerateAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limit exceeded", "type": "rate_limit_error"},
		})
	}))
	defer server.Close()

	_, err := testGenerator(server.URL).Generate(context.Background(), req)
	if !errors.Is(err, domain.ErrGeneratorError) {
		t.Fatalf("Generate() error = %v, want ErrGeneratorError", err)
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced json", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced bare", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding space", "  {\"a\":1}\n", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripCodeFences(tt.in); got != tt.want {
				t.Errorf("stripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
