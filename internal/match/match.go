// Package match computes textual similarity between score identifiers.
// Titles and composers arrive in many spellings; matching is best-effort
// and probabilistic, never exact.
package match

import (
	"strings"
	"unicode"

	"github.com/cadenza-app/cadenza/internal/domain"
)

// Weights of the combined match score.
const (
	titleWeight    = 0.6
	composerWeight = 0.4
)

// DefaultThreshold is the acceptance cut-off for a combined score.
// Comparison is strictly greater-than.
const DefaultThreshold = 0.7

// Similarity returns a score in [0,1] for two free-text identifiers.
//
// Normalized equality scores 1.0, substring containment 0.9, otherwise the
// word-overlap ratio count(words of a in b) / max(|a|, |b|). The containment
// check makes the function asymmetric in principle, though containment itself
// is checked both ways; the overlap fallback is symmetric by construction.
func Similarity(a, b string) float64 {
	na, nb := normalize(a), normalize(b)
	if na == nb {
		if na == "" {
			return 0 // no tokens to compare
		}
		return 1
	}
	if na == "" || nb == "" {
		// The empty string is a substring of everything; without this guard
		// the containment check would score a blank field 0.9.
		return 0
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return 0.9
	}
	return overlapRatio(na, nb)
}

// ComposerSimilarity is Similarity with an initials heuristic ahead of the
// word-overlap fallback, so "J. S. Bach" and "Johann Sebastian Bach" score 0.9.
func ComposerSimilarity(a, b string) float64 {
	na, nb := normalize(a), normalize(b)
	if na == nb {
		if na == "" {
			return 0
		}
		return 1
	}
	if na == "" || nb == "" {
		return 0
	}
	if ia, ib := initials(na), initials(nb); ia != "" && ia == ib {
		return 0.9
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return 0.9
	}
	return overlapRatio(na, nb)
}

// Score combines title and composer similarity for a candidate against a query.
func Score(candTitle, candComposer string, q domain.MatchQuery) float64 {
	return titleWeight*Similarity(candTitle, q.Title) +
		composerWeight*ComposerSimilarity(candComposer, q.Composer)
}

// normalize lowercases, strips everything that is not a word character or
// whitespace, collapses whitespace runs, and trims.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// overlapRatio counts words of a present in b over max word count.
// Duplicates in a each count if present in b at all.
func overlapRatio(na, nb string) float64 {
	wordsA := strings.Fields(na)
	wordsB := strings.Fields(nb)
	den := max(len(wordsA), len(wordsB))
	if den == 0 {
		return 0
	}
	inB := make(map[string]bool, len(wordsB))
	for _, w := range wordsB {
		inB[w] = true
	}
	common := 0
	for _, w := range wordsA {
		if inB[w] {
			common++
		}
	}
	return float64(common) / float64(den)
}

// initials concatenates the first letter of each whitespace-separated token.
func initials(normalized string) string {
	var b strings.Builder
	for _, w := range strings.Fields(normalized) {
		for _, r := range w {
			b.WriteRune(r)
			break
		}
	}
	return b.String()
}
