package power

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// maxSuggestDistance bounds how far a typo may be from a known name.
const maxSuggestDistance = 4

// SuggestMode returns the known mode name closest to name, or "" when
// nothing is close enough.
func SuggestMode(name string) string {
	names := make([]string, 0, len(modeNames))
	for _, n := range modeNames {
		names = append(names, n)
	}

	return closest(name, names)
}

// SuggestBoost returns the known boost name closest to name, or "".
func SuggestBoost(name string) string {
	names := make([]string, 0, len(boostNames))
	for _, n := range boostNames {
		names = append(names, n)
	}

	return closest(name, names)
}

func closest(name string, candidates []string) string {
	want := strings.ToUpper(strings.TrimSpace(name))
	best, bestDist := "", maxSuggestDistance+1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(want, c)
		if d < bestDist || (d == bestDist && c < best) {
			best, bestDist = c, d
		}
	}

	return best
}
