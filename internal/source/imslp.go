package source

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/cadenza-app/cadenza/internal/domain"
)

const imslpBaseURL = "https://imslp.org"

// IMSLP is a MediaWiki search: result cards are .mw-search-result entries,
// detail pages list downloadable files under .we_file_download.
func IMSLP() Profile {
	return Profile{
		Source: domain.SourceIMSLP,
		SearchURL: func(q string) string {
			return imslpBaseURL + "/wiki/Special:Search?search=" + q
		},
		ResultSelector: ".mw-search-result",
		ParseCandidate: func(sel *goquery.Selection) (domain.Candidate, bool) {
			title := cardText(sel, ".mw-search-result-heading a")
			composer := cardText(sel, ".mw-search-result-data")
			href, ok := cardAttr(sel, ".mw-search-result-heading a", "href")
			if title == "" || composer == "" || !ok {
				return domain.Candidate{}, false
			}
			return domain.Candidate{
				Title:       title,
				Composer:    composer,
				DownloadRef: imslpBaseURL + href,
				Details: domain.ScoreDetails{
					YearComposed: cardText(sel, ".published-year"),
					PageURL:      imslpBaseURL + href,
				},
			}, true
		},
		DetailURL: func(cand domain.Candidate) (string, bool) {
			return cand.DownloadRef, cand.DownloadRef != ""
		},
		EnrichDetail: func(doc *goquery.Document, d *domain.ScoreDetails) {
			if v := strings.TrimSpace(doc.Find(".key_signature").First().Text()); v != "" {
				d.Key = v
			}
			if v := strings.TrimSpace(doc.Find(".time_signature").First().Text()); v != "" {
				d.TimeSignature = v
			}
		},
		NotationURL: func(doc *goquery.Document, _ domain.Candidate) (string, bool) {
			var found string
			doc.Find(".we_file_download").EachWithBreak(func(_ int, s *goquery.Selection) bool {
				href, ok := s.Attr("href")
				if ok && strings.Contains(strings.ToLower(href), ".xml") {
					found = href
					return false
				}
				return true
			})
			return found, found != ""
		},
	}
}
