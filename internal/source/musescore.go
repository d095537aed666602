package source

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/cadenza-app/cadenza/internal/domain"
)

const museScoreBaseURL = "https://musescore.com"

// MuseScore search results repeat .score-card entries; the detail page links
// the MusicXML export via .download-xml.
func MuseScore() Profile {
	return Profile{
		Source: domain.SourceMuseScore,
		SearchURL: func(q string) string {
			return museScoreBaseURL + "/sheetmusic?text=" + q
		},
		ResultSelector: ".score-card",
		ParseCandidate: func(sel *goquery.Selection) (domain.Candidate, bool) {
			title := cardText(sel, ".score-title")
			composer := cardText(sel, ".score-composer")
			href, ok := cardAttr(sel, "a", "href")
			if title == "" || composer == "" || !ok {
				return domain.Candidate{}, false
			}
			if !strings.HasPrefix(href, "http") {
				href = museScoreBaseURL + href
			}
			return domain.Candidate{
				Title:       title,
				Composer:    composer,
				DownloadRef: href,
				Details:     domain.ScoreDetails{PageURL: href},
			}, true
		},
		DetailURL: func(cand domain.Candidate) (string, bool) {
			return cand.DownloadRef, cand.DownloadRef != ""
		},
		EnrichDetail: func(doc *goquery.Document, d *domain.ScoreDetails) {
			if v := strings.TrimSpace(doc.Find(".key-signature").First().Text()); v != "" {
				d.Key = v
			}
			if v := strings.TrimSpace(doc.Find(".time-signature").First().Text()); v != "" {
				d.TimeSignature = v
			}
			if v := strings.TrimSpace(doc.Find(".composition-year").First().Text()); v != "" {
				d.YearComposed = v
			}
			if v := strings.TrimSpace(doc.Find(".score-description").First().Text()); v != "" {
				d.About = v
			}
		},
		NotationURL: func(doc *goquery.Document, _ domain.Candidate) (string, bool) {
			href, ok := doc.Find(".download-xml").First().Attr("href")
			href = strings.TrimSpace(href)
			return href, ok && href != ""
		},
	}
}
