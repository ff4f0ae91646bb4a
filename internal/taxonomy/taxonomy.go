// Package taxonomy maps product descriptions to commodity family codes.
package taxonomy

import (
	"strings"

	"github.com/sells-group/recon-cli/internal/normalize"
)

// Rule matches when every All substring is present and, if Any is
// non-empty, at least one Any substring is present.
type Rule struct {
	All    []string
	Any    []string
	Family string
}

func (r Rule) matches(text string) bool {
	for _, s := range r.All {
		if !strings.Contains(text, s) {
			return false
		}
	}
	if len(r.Any) == 0 {
		return true
	}
	for _, s := range r.Any {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}

func allOf(family string, subs ...string) Rule { return Rule{All: subs, Family: family} }
func anyOf(family string, subs ...string) Rule { return Rule{Any: subs, Family: family} }

// rules is evaluated top to bottom and the first hit wins. Compound rules
// for a commodity sit above its generic rule.
var rules = []Rule{
	{All: []string{"MELANCIA"}, Any: []string{"BABY", "MINI"}, Family: "MELANCIA_BABY"},
	allOf("MELANCIA", "MELANCIA"),

	allOf("BANANA_NANICA", "BANANA", "NANICA"),
	allOf("BANANA_PRATA", "BANANA", "PRATA"),
	allOf("BANANA_MACA", "BANANA", "MACA"),
	allOf("BANANA_MARMELO", "BANANA", "MARMELO"),
	allOf("BANANA_TERRA", "BANANA", "DA TERRA"),
	allOf("BANANA_OUTRA", "BANANA"),

	allOf("BATATA_DOCE", "BATATA", "DOCE"),
	allOf("BATATA", "BATATA"),

	allOf("CEBOLA_ROXA", "CEBOLA", "ROXA"),
	allOf("CEBOLA", "CEBOLA"),

	allOf("ALHO_ROXO", "ALHO", "ROXO"),
	allOf("ALHO", "ALHO"),

	allOf("PIMENTAO_VERMELHO", "PIMENTAO", "VERMELHO"),
	allOf("PIMENTAO_AMARELO", "PIMENTAO", "AMARELO"),
	allOf("PIMENTAO_VERDE", "PIMENTAO", "VERDE"),
	anyOf("PIMENTAO_COLORIDO", "COLORIDO", "COLCORIDO"),
	allOf("PIMENTAO_OUTRO", "PIMENTAO"),

	anyOf("MAMAO_PAPAIA", "PAPAIA", "PAPAYA"),
	allOf("MAMAO_FORMOSA", "FORMOSA"),
	allOf("MAMAO_OUTRO", "MAMAO"),

	anyOf("MORANGO", "MORANGO", "MORANGUINHO"),

	allOf("MELAO", "MELAO"),
	allOf("LARANJA", "LARANJA"),
	allOf("LIMAO", "LIMAO"),
	allOf("TANGERINA", "TANGERINA"),
	allOf("TANGERINA", "PONKAN"),
	allOf("TANGERINA", "MURCOTE"),
	allOf("CHUCHU", "CHUCHU"),
	allOf("CENOURA", "CENOURA"),
	allOf("BETERRABA", "BETERRABA"),
	allOf("BERINJELA", "BERINJELA"),
	allOf("REPOLHO", "REPOLHO"),
	allOf("COUVE FLOR", "COUVE FLOR"),
	allOf("COUVE", "COUVE"),
	allOf("BROCOLIS", "BROCOLIS"),
	allOf("TOMATE", "TOMATE"),
	allOf("MACA", "MACA"),
	allOf("PERA", "PERA"),
	allOf("MANGA", "MANGA"),
	allOf("ABACATE", "ABACATE"),
	allOf("ABACAXI", "ABACAXI"),
	allOf("QUIABO", "QUIABO"),
	allOf("PEPINO", "PEPINO"),
	allOf("MARACUJA", "MARACUJA"),
	allOf("MILHO", "MILHO"),
	allOf("VAGEM", "VAGEM"),
	allOf("JILO", "JILO"),
	allOf("KIWI", "KIWI"),
	allOf("GENGIBRE", "GENGIBRE"),
	allOf("GOIABA", "GOIABA"),
	allOf("INHAME", "INHAME"),
	allOf("SALSAO", "SALSAO"),
	allOf("RABANETE", "RABANETE"),
	allOf("AIPIM", "AIPIM"),

	anyOf("ABOBORA_ABOBRINHA", "ABOBRINHA", "ABOBORA", "CABOTIA"),
}

// Rules returns a copy of the ordered rule table.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Family returns the commodity family code for a product description.
// Unclassified text falls back to its first token; empty text yields "".
func Family(text string) string {
	text = normalize.Text(text)
	for _, r := range rules {
		if r.matches(text) {
			return r.Family
		}
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Root returns the broad family token, the text before the first '_'.
func Root(family string) string {
	root, _, _ := strings.Cut(family, "_")
	return root
}
