package align

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Similarity returns the Dice coefficient of the character bigrams of a and
// b after normalization, in [0, 1].
func Similarity(a, b string) float64 {
	na, nb := normalize(a), normalize(b)
	return dice(bigrams(na), bigrams(nb), na == nb)
}

// normalize applies NFKC, lower-cases and drops all whitespace so that
// node boundaries and line wrapping do not affect scores.
func normalize(s string) string {
	s = norm.NFKC.String(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

func bigrams(s string) map[string]int {
	runes := []rune(s)
	out := make(map[string]int, len(runes))
	for i := 0; i+1 < len(runes); i++ {
		out[string(runes[i:i+2])]++
	}
	return out
}

// dice compares two bigram multisets. Strings too short to have bigrams
// only match when identical.
func dice(a, b map[string]int, equal bool) float64 {
	if equal {
		return 1
	}

	var na, nb int
	for _, n := range a {
		na += n
	}
	for _, n := range b {
		nb += n
	}
	if na == 0 || nb == 0 {
		return 0
	}

	shared := 0
	for g, n := range a {
		shared += min(n, b[g])
	}
	return 2 * float64(shared) / float64(na+nb)
}
