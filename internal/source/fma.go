package source

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/cadenza-app/cadenza/internal/domain"
)

const fmaBaseURL = "https://freemusicarchive.org"

// FMA catalogs recordings, not notation; a match carries the audio URL and
// license metadata only. Track markup varies, hence the selector alternates.
func FMA() Profile {
	return Profile{
		Source: domain.SourceFMA,
		SearchURL: func(q string) string {
			return fmaBaseURL + "/search/?quicksearch=" + q
		},
		ResultSelector: ".play-item, .track-item, .music-item",
		ParseCandidate: func(sel *goquery.Selection) (domain.Candidate, bool) {
			title := cardText(sel, ".track-title", ".title")
			composer := cardText(sel, ".track-artist", ".artist")
			audioURL, ok := cardAttr(sel, "a[data-url], .play-button[data-url], audio source", "data-url")
			if !ok {
				audioURL, ok = cardAttr(sel, "audio", "src")
			}
			if title == "" || composer == "" || !ok {
				return domain.Candidate{}, false
			}
			return domain.Candidate{
				Title:       title,
				Composer:    composer,
				DownloadRef: audioURL,
				Details: domain.ScoreDetails{
					Duration: cardText(sel, ".track-duration", ".duration"),
					License:  cardText(sel, ".track-license", ".license"),
					About:    cardText(sel, ".track-description", ".description"),
					AudioURL: strings.TrimSpace(audioURL),
				},
			}, true
		},
	}
}
