package domain

import "strings"

// ActivityRequest is the form input for generating a listening activity.
type ActivityRequest struct {
	YearGroup   string `json:"year_group"`
	Theme       string `json:"theme"`
	EnergyLevel string `json:"energy_level,omitempty"` // calm, moderate, energetic
}

// Validate rejects requests with missing required fields.
func (r ActivityRequest) Validate() error {
	if strings.TrimSpace(r.YearGroup) == "" || strings.TrimSpace(r.Theme) == "" {
		return ErrInvalidQuery
	}
	return nil
}

// Piece describes the musical piece a listening activity is built around.
type Piece struct {
	Title       string       `json:"title"`
	Composer    string       `json:"composer"`
	YouTubeLink string       `json:"youtube_link,omitempty"`
	Details     ScoreDetails `json:"details"`
}

// ListeningActivity is the generated classroom activity.
// Provenance is filled in best-effort after generation; absence is normal.
type ListeningActivity struct {
	Piece      Piece          `json:"piece"`
	Reason     string         `json:"reason"`
	Questions  []string       `json:"questions"`
	TeacherTip string         `json:"teacher_tip"`
	Provenance *ResolvedScore `json:"provenance,omitempty"`
}
