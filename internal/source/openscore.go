package source

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/cadenza-app/cadenza/internal/domain"
)

const openScoreBaseURL = "https://openscore.cc"

// OpenScore result cards (.score-item) link the MusicXML file directly, so
// there is no detail page: the candidate's download ref is the notation URL.
func OpenScore() Profile {
	return Profile{
		Source: domain.SourceOpenScore,
		SearchURL: func(q string) string {
			return openScoreBaseURL + "/search?q=" + q
		},
		ResultSelector: ".score-item",
		ParseCandidate: func(sel *goquery.Selection) (domain.Candidate, bool) {
			title := cardText(sel, ".score-title")
			composer := cardText(sel, ".score-composer")
			xmlHref, ok := cardAttr(sel, `a[href$=".xml"]`, "href")
			if title == "" || composer == "" || !ok {
				return domain.Candidate{}, false
			}
			return domain.Candidate{
				Title:       title,
				Composer:    composer,
				DownloadRef: xmlHref,
				Details: domain.ScoreDetails{
					Key:           cardText(sel, ".key"),
					TimeSignature: cardText(sel, ".time-signature"),
				},
			}, true
		},
		NotationURL: func(_ *goquery.Document, cand domain.Candidate) (string, bool) {
			return cand.DownloadRef, cand.DownloadRef != ""
		},
	}
}
