package source

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/cadenza-app/cadenza/internal/domain"
)

const flatBaseURL = "https://flat.io"

// Flat exposes searchable score cards but no notation download, so the
// resolution is metadata-only.
func Flat() Profile {
	return Profile{
		Source: domain.SourceFlat,
		SearchURL: func(q string) string {
			return flatBaseURL + "/discover/scores?q=" + q
		},
		ResultSelector: ".score-card",
		ParseCandidate: func(sel *goquery.Selection) (domain.Candidate, bool) {
			id, idOK := sel.Attr("data-score-id")
			href, hrefOK := cardAttr(sel, "a", "href")
			if !idOK || strings.TrimSpace(id) == "" || !hrefOK {
				return domain.Candidate{}, false
			}
			title := cardText(sel, ".score-title")
			composer := cardText(sel, ".score-composer")
			if title == "" || composer == "" {
				return domain.Candidate{}, false
			}
			var instruments []string
			for _, in := range strings.Split(cardText(sel, ".score-instruments"), ",") {
				if in = strings.TrimSpace(in); in != "" {
					instruments = append(instruments, in)
				}
			}
			if !strings.HasPrefix(href, "http") {
				href = flatBaseURL + href
			}
			return domain.Candidate{
				Title:       title,
				Composer:    composer,
				DownloadRef: id,
				Details: domain.ScoreDetails{
					Key:           cardText(sel, ".score-key"),
					TimeSignature: cardText(sel, ".score-time-signature"),
					Tempo:         cardText(sel, ".score-tempo"),
					Instruments:   instruments,
					PageURL:       href,
				},
			}, true
		},
	}
}
