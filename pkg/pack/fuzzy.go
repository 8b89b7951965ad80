package pack

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// normalizeName folds a candidate or sanctions-list name to a comparable
// form: Unicode NFKD decomposition, diacritic stripping, lowercasing, and
// whitespace collapsing. spec.md §8 leaves the exact fuzzy-match
// algorithm an open question; this normalization keeps "JOSÉ DÍAZ" and
// "jose diaz" comparable without changing either party's legal name.
func normalizeName(name string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(folded)
	fields := strings.Fields(folded)
	return strings.Join(fields, " ")
}

// damerauLevenshtein computes the Damerau-Levenshtein edit distance
// (insertion, deletion, substitution, and adjacent transposition) between
// a and b, operating over runes rather than bytes so multi-byte
// characters count as single edits.
func damerauLevenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)

	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	d := make([][]int, la+1)
	for i := range d {
		d[i] = make([]int, lb+1)
		d[i][0] = i
	}
	for j := 0; j <= lb; j++ {
		d[0][j] = j
	}

	for i := 1; i <= la; i++ {
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			d[i][j] = min3(
				d[i-1][j]+1,
				d[i][j-1]+1,
				d[i-1][j-1]+cost,
			)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				if transposed := d[i-2][j-2] + 1; transposed < d[i][j] {
					d[i][j] = transposed
				}
			}
		}
	}
	return d[la][lb]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// nameSimilarity scores two names in [0.0, 1.0], where 1.0 is an exact
// match after normalization and 0.0 shares nothing. Both inputs are
// normalized internally.
func nameSimilarity(a, b string) float64 {
	na, nb := normalizeName(a), normalizeName(b)
	if na == nb {
		return 1.0
	}
	maxLen := len([]rune(na))
	if l := len([]rune(nb)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := damerauLevenshtein(na, nb)
	score := 1.0 - float64(dist)/float64(maxLen)
	if score < 0 {
		score = 0
	}
	return score
}
