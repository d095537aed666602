package domain

import "time"

// ActivityType classifies tracked generations.
type ActivityType string

const (
	ActivityListening ActivityType = "listening"
	ActivityLesson    ActivityType = "lesson"
)

// ActivityRecord is one tracked generation, with optional user feedback
// attached after the fact.
type ActivityRecord struct {
	ID             string       `json:"id"`
	Type           ActivityType `json:"activity_type"`
	InputData      []byte       `json:"input_data"`  // request JSON as submitted
	OutputData     []byte       `json:"output_data"` // generated activity JSON
	FeedbackRating int          `json:"feedback_rating,omitempty"` // 0 = none yet
	FeedbackText   string       `json:"feedback_text,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
