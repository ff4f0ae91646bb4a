package match

import (
	"slices"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// sortTokens splits on whitespace, sorts the tokens and rejoins them.
func sortTokens(s string) string {
	tokens := strings.Fields(s)
	slices.Sort(tokens)
	return strings.Join(tokens, " ")
}

// TokenSortRatio scores two texts in [0, 100] ignoring word order. It is the
// insertion/deletion similarity of the token-sorted strings, so it is
// symmetric. Two empty texts score 100.
func TokenSortRatio(a, b string) float64 {
	ra := []rune(sortTokens(a))
	rb := []rune(sortTokens(b))

	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}

	// DefaultOptions charges 2 for a substitution, i.e. a delete plus an insert.
	dist := levenshtein.DistanceForStrings(ra, rb, levenshtein.DefaultOptions)
	return 100 * float64(total-dist) / float64(total)
}
