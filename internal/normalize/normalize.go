// Package normalize canonicalizes free-text fields before they are compared.
package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// asciiFold decomposes compatibility characters and drops everything that is
// not ASCII afterwards, which removes combining accents.
func asciiFold() transform.Transformer {
	return transform.Chain(
		norm.NFKD,
		runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
	)
}

// Text upper-cases s, strips accents and keeps only letters, digits,
// underscore, whitespace, '.' and '-'. The result is trimmed.
// Text(Text(s)) == Text(s) for every s.
func Text(s string) string {
	if s == "" {
		return ""
	}

	folded, _, err := transform.String(asciiFold(), s)
	if err != nil {
		return ""
	}

	folded = strings.ToUpper(folded)
	folded = strings.Map(keep, folded)
	return strings.TrimSpace(folded)
}

func keep(r rune) rune {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return r
	case r == '_', r == '.', r == '-':
		return r
	case unicode.IsSpace(r):
		return r
	}
	return -1
}

// Value normalizes an arbitrary scalar. Nil and NaN yield "".
func Value(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return Text(x)
	case []byte:
		return Text(string(x))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return ""
		}
		return Text(strconv.FormatFloat(x, 'f', -1, 64))
	case float32:
		return Value(float64(x))
	case fmt.Stringer:
		return Text(x.String())
	default:
		return Text(fmt.Sprint(x))
	}
}
