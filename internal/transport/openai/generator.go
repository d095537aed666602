// Package openai implements the lesson generator against an
// OpenAI-compatible chat-completions API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/cadenza-app/cadenza/internal/domain"
)

const systemPrompt = "You are an experienced primary school music teacher. " +
	"You design short, practical listening activities built around real pieces " +
	"of classical or folk music. Respond with JSON only."

const listeningTemplate = `Create a music listening activity for %s that explores the theme of %q.

You MUST select a piece of classical or folk music that strongly connects to the theme.
Consider musical characteristics (tempo, dynamics, mood), historical or cultural
connections, programmatic elements, and imaginative associations with the theme.
The class energy level is %s; pick a piece and activity that suit it.

Return a JSON object with this EXACT structure:
{
  "piece": {
    "title": "Full title of the piece",
    "composer": "Full name of composer",
    "youtube_link": "URL to a high-quality recording",
    "details": {
      "year_composed": "Year or period of composition",
      "about": "Brief composer/piece background focusing on the theme connection",
      "page_url": "URL to a page about the piece (Wikipedia or similar)"
    }
  },
  "reason": "Clear explanation of why this piece fits the theme",
  "questions": ["3-5 discussion questions that connect the music to the theme"],
  "teacher_tip": "Practical guidance for theme-based exploration"
}

All content must be appropriate for %s students, and the questions should
encourage musical thinking about the theme.`

// Generator produces listening activities via an OpenAI-compatible API.
type Generator struct {
	client *openai.Client
	model  string
	user   string
	logger *zap.Logger
}

// Config holds the generation provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	User    string
	Logger  *zap.Logger
}

// NewGenerator creates an OpenAI-compatible lesson generator.
func NewGenerator(cfg *Config) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Generator{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		user:   cfg.User,
		logger: cfg.Logger,
	}
}

// Generate produces one listening activity for the request.
func (g *Generator) Generate(ctx context.Context, req domain.ActivityRequest) (domain.ListeningActivity, error) {
	energy := req.EnergyLevel
	if energy == "" {
		energy = "moderate"
	}
	prompt := fmt.Sprintf(listeningTemplate, req.YearGroup, req.Theme, energy, req.YearGroup)

	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
		User:        g.user,
	})
	if err != nil {
		return domain.ListeningActivity{}, parseAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return domain.ListeningActivity{}, fmt.Errorf("empty completion response: %w", domain.ErrGeneratorError)
	}

	g.logger.Debug("listening activity generated",
		zap.String("model", g.model),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("duration", time.Since(start)))

	activity, err := parseActivity(resp.Choices[0].Message.Content)
	if err != nil {
		return domain.ListeningActivity{}, err
	}
	return activity, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseActivity decodes the model output, tolerating markdown code fences
// some models wrap around JSON despite the response format hint.
func parseActivity(content string) (domain.ListeningActivity, error) {
	content = stripCodeFences(content)

	var activity domain.ListeningActivity
	if err := json.Unmarshal([]byte(content), &activity); err != nil {
		return domain.ListeningActivity{}, fmt.Errorf("decode activity JSON: %v: %w", err, domain.ErrGeneratorError)
	}
	if activity.Piece.Title == "" || activity.Piece.Composer == "" {
		return domain.ListeningActivity{}, fmt.Errorf("activity missing piece title or composer: %w", domain.ErrGeneratorError)
	}
	return activity, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrGeneratorError for correct 502 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrGeneratorError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("completion API error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("completion API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("completion API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("completion request failed: %w", wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
