package domain

import (
	"strings"
	"time"
)

// Source identifies an external score catalog.
type Source string

// Known catalogs, in default resolution priority order.
const (
	SourceIMSLP     Source = "imslp"
	SourceMuseScore Source = "musescore"
	SourceOpenScore Source = "openscore"
	SourceFlat      Source = "flatio"
	SourceFMA       Source = "fma"
)

// AllSources lists every known catalog in default priority order.
func AllSources() []Source {
	return []Source{SourceIMSLP, SourceMuseScore, SourceOpenScore, SourceFlat, SourceFMA}
}

// ParseSource maps a configuration string to a known Source.
func ParseSource(s string) (Source, bool) {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case SourceIMSLP:
		return SourceIMSLP, true
	case SourceMuseScore:
		return SourceMuseScore, true
	case SourceOpenScore:
		return SourceOpenScore, true
	case SourceFlat:
		return SourceFlat, true
	case SourceFMA:
		return SourceFMA, true
	}
	return "", false
}

// MatchQuery is the (title, composer) pair a resolution attempt starts from.
type MatchQuery struct {
	Title    string
	Composer string
}

// Validate rejects queries with missing required fields.
// A malformed query is a programmer error, unlike every upstream failure.
func (q MatchQuery) Validate() error {
	if strings.TrimSpace(q.Title) == "" || strings.TrimSpace(q.Composer) == "" {
		return ErrInvalidQuery
	}
	return nil
}

// ScoreDetails carries the optional metadata a catalog may expose for a piece.
// Empty fields mean "absent on the source page".
type ScoreDetails struct {
	Key           string   `json:"key,omitempty"`
	TimeSignature string   `json:"time_signature,omitempty"`
	YearComposed  string   `json:"year_composed,omitempty"`
	Tempo         string   `json:"tempo,omitempty"`
	Instruments   []string `json:"instruments,omitempty"`
	About         string   `json:"about,omitempty"`
	License       string   `json:"license,omitempty"`
	Duration      string   `json:"duration,omitempty"`
	AudioURL      string   `json:"audio_url,omitempty"`
	PageURL       string   `json:"page_url,omitempty"`
}

// Candidate is a single parsed search result, local to one resolution attempt.
type Candidate struct {
	Source      Source
	Title       string
	Composer    string
	DownloadRef string // detail page URL or notation file identifier
	Details     ScoreDetails
}

// ResolvedScore is the persisted outcome of a successful resolution.
// MusicXML is empty when the catalog offers no downloadable notation or the
// notation fetch failed after the match was already accepted.
type ResolvedScore struct {
	ID         string       `json:"id,omitempty"`
	Title      string       `json:"title"`
	Composer   string       `json:"composer"`
	Source     Source       `json:"source"`
	MusicXML   string       `json:"music_xml,omitempty"`
	Details    ScoreDetails `json:"details"`
	MatchScore float64      `json:"match_score,omitempty"`
	ResolvedAt time.Time    `json:"resolved_at,omitempty"`
}
