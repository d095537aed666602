package source

import "github.com/cadenza-app/cadenza/internal/domain"

// Profiles returns every known catalog profile keyed by source.
func Profiles() map[domain.Source]Profile {
	out := make(map[domain.Source]Profile, 5)
	for _, p := range []Profile{IMSLP(), MuseScore(), OpenScore(), Flat(), FMA()} {
		out[p.Source] = p
	}
	return out
}
