// Package resolve canonicalizes supplier names and store identities.
package resolve

import (
	"slices"
	"strings"

	"github.com/sells-group/recon-cli/internal/normalize"
)

// predicate tests an already-normalized name.
type predicate func(name string) bool

func contains(sub string) predicate {
	return func(name string) bool { return strings.Contains(name, sub) }
}

// hasToken reports whether tok appears as a whole whitespace-delimited token.
func hasToken(tok string) predicate {
	return func(name string) bool { return slices.Contains(strings.Fields(name), tok) }
}

func equals(s string) predicate {
	return func(name string) bool { return name == s }
}

func anyOf(ps ...predicate) predicate {
	return func(name string) bool {
		for _, p := range ps {
			if p(name) {
				return true
			}
		}
		return false
	}
}

type supplierRule struct {
	match predicate
	id    string
}

// supplierRules maps raw spellings to macro-supplier ids. First hit wins.
var supplierRules = []supplierRule{
	{anyOf(contains("RASTEIRA"), contains("RIBER")), "RIBER FRUTAS"},
	{anyOf(contains("HERCULES"), contains("RICARDO")), "RICARDO"},
	{anyOf(contains("CLAUDIO MARCELO"), contains("MARCELO")), "MARCELO MILHO"},
	{anyOf(contains("2A COMERCIO"), contains("PIMENTA"), contains("2 A COMERCIO")), "IRMAOS PIMENTA"},
	{anyOf(contains("ND COMERCIO"), hasToken("ND"), equals("ND"), contains("N D COM"), contains("N.D")), "ND"},
	{contains("NICOLETI"), "NICOLETI"},
	{anyOf(contains("COAL"), contains("ARANDA")), "COAL"},
	{anyOf(contains("DRUB"), contains("ADILSON")), "DRUB"},
	{anyOf(hasToken("ZERO"), contains("FRUTAS ZERO")), "FRUTAS ZERO"},
	{hasToken("TAIS"), "TAIS"},
	{contains("LUCIO"), "LUCIO ORLANDO"},
}

// boilerplate is removed from names no rule recognizes.
const boilerplate = "FORNECEDOR"

// Supplier maps a raw supplier name to its canonical macro-supplier id.
func Supplier(raw string) string {
	name := normalize.Text(raw)
	for _, r := range supplierRules {
		if r.match(name) {
			return r.id
		}
	}
	return strings.TrimSpace(strings.ReplaceAll(name, boilerplate, ""))
}
