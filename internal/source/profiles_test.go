package source

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/cadenza-app/cadenza/internal/domain"
)

func firstCard(t *testing.T, p Profile, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	sel := doc.Find(p.ResultSelector).First()
	if sel.Length() == 0 {
		t.Fatalf("fixture does not match selector %q", p.ResultSelector)
	}
	return sel
}

func TestProfilesComplete(t *testing.T) {
	profiles := Profiles()
	if len(profiles) != len(domain.AllSources()) {
		t.Fatalf("Profiles() has %d entries, want %d", len(profiles), len(domain.AllSources()))
	}
	for _, src := range domain.AllSources() {
		p, ok := profiles[src]
		if !ok {
			t.Errorf("missing profile for %q", src)
			continue
		}
		if p.SearchURL == nil || p.ResultSelector == "" || p.ParseCandidate == nil {
			t.Errorf("profile %q incomplete", src)
		}
		if u := p.SearchURL("abc+def"); !strings.Contains(u, "abc+def") {
			t.Errorf("profile %q search URL %q does not embed the query", src, u)
		}
	}
}

func TestMuseScoreParseCandidate(t *testing.T) {
	p := MuseScore()
	sel := firstCard(t, p, `<div class="score-card">
		<a href="/user/1/scores/42"><span class="score-title">Clair de Lune</span></a>
		<span class="score-composer">Claude Debussy</span>
	</div>`)

	cand, ok := p.ParseCandidate(sel)
	if !ok {
		t.Fatal("ParseCandidate() = false")
	}
	if cand.Title != "Clair de Lune" || cand.Composer != "Claude Debussy" {
		t.Errorf("candidate = %+v", cand)
	}
	if cand.DownloadRef != "https://musescore.com/user/1/scores/42" {
		t.Errorf("DownloadRef = %q, want absolute musescore URL", cand.DownloadRef)
	}
}

func TestMuseScoreParseCandidateMissingLink(t *testing.T) {
	p := MuseScore()
	sel := firstCard(t, p, `<div class="score-card">
		<span class="score-title">Clair de Lune</span>
		<span class="score-composer">Claude Debussy</span>
	</div>`)
	if _, ok := p.ParseCandidate(sel); ok {
		t.Error("ParseCandidate() accepted a card without a link")
	}
}

func TestOpenScoreParseCandidate(t *testing.T) {
	p := OpenScore()
	sel := firstCard(t, p, `<div class="score-item">
		<span class="score-title">Ode to Joy</span>
		<span class="score-composer">Beethoven</span>
		<span class="key">D major</span>
		<a href="https://openscore.cc/files/ode.xml">MusicXML</a>
	</div>`)

	cand, ok := p.ParseCandidate(sel)
	if !ok {
		t.Fatal("ParseCandidate() = false")
	}
	if cand.DownloadRef != "https://openscore.cc/files/ode.xml" {
		t.Errorf("DownloadRef = %q", cand.DownloadRef)
	}
	if cand.Details.Key != "D major" {
		t.Errorf("Details.Key = %q", cand.Details.Key)
	}
	// No detail page: the notation URL is the candidate's own ref.
	if p.NotationURL == nil {
		t.Fatal("OpenScore must expose notation")
	}
	if u, ok := p.NotationURL(nil, cand); !ok || u != cand.DownloadRef {
		t.Errorf("NotationURL = %q, %v", u, ok)
	}
}

func TestFlatParseCandidate(t *testing.T) {
	p := Flat()
	sel := firstCard(t, p, `<div class="score-card" data-score-id="abc123">
		<a href="/score/abc123"><span class="score-title">The Swan</span></a>
		<span class="score-composer">Saint-Saëns</span>
		<span class="score-key">G major</span>
		<span class="score-instruments">Cello, Piano</span>
	</div>`)

	cand, ok := p.ParseCandidate(sel)
	if !ok {
		t.Fatal("ParseCandidate() = false")
	}
	if cand.DownloadRef != "abc123" {
		t.Errorf("DownloadRef = %q, want score id", cand.DownloadRef)
	}
	if len(cand.Details.Instruments) != 2 || cand.Details.Instruments[0] != "Cello" {
		t.Errorf("Instruments = %v", cand.Details.Instruments)
	}
	if cand.Details.PageURL != "https://flat.io/score/abc123" {
		t.Errorf("PageURL = %q", cand.Details.PageURL)
	}
	if p.NotationURL != nil {
		t.Error("Flat has no downloadable notation")
	}
}

func TestFMAParseCandidate(t *testing.T) {
	p := FMA()
	sel := firstCard(t, p, `<div class="play-item">
		<span class="track-title">Gymnopedie No. 1</span>
		<span class="track-artist">Erik Satie</span>
		<a data-url="https://freemusicarchive.org/track/gymnopedie.mp3">play</a>
		<span class="track-duration">3:05</span>
		<span class="track-license">CC BY</span>
	</div>`)

	cand, ok := p.ParseCandidate(sel)
	if !ok {
		t.Fatal("ParseCandidate() = false")
	}
	if cand.Details.AudioURL != "https://freemusicarchive.org/track/gymnopedie.mp3" {
		t.Errorf("AudioURL = %q", cand.Details.AudioURL)
	}
	if cand.Details.Duration != "3:05" || cand.Details.License != "CC BY" {
		t.Errorf("Details = %+v", cand.Details)
	}
}

func TestFMAParseCandidateMissingAudio(t *testing.T) {
	p := FMA()
	sel := firstCard(t, p, `<div class="track-item">
		<span class="title">Gymnopedie No. 1</span>
		<span class="artist">Erik Satie</span>
	</div>`)
	if _, ok := p.ParseCandidate(sel); ok {
		t.Error("ParseCandidate() accepted a track without an audio URL")
	}
}
