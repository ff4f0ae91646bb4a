package resolve

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/sells-group/recon-cli/internal/normalize"
)

// UnknownStore is returned when no rule identifies the store.
const UnknownStore = "Loja_Desconhecida"

type storeRule struct {
	match predicate
	id    string
}

// numberRules recognize explicit store numbering in the name.
var numberRules = []storeRule{
	{anyOf(contains("LOJA 01"), contains("LOJA-1")), "Loja_1"},
	{anyOf(contains("LOJA 02"), contains("LOJA-2")), "Loja_2"},
	{anyOf(contains("LOJA 03"), contains("LOJA-3")), "Loja_3"},
	{anyOf(contains("LOJA 05"), contains("LOJA-5")), "Loja_5"},
}

// taxIDSuffixes map the branch part of a CNPJ to a store.
var taxIDSuffixes = []struct {
	suffix string
	id     string
}{
	{"000100", "Loja_1"},
	{"000363", "Loja_2"},
	{"000444", "Loja_3"},
	{"000606", "Loja_5"},
	{"000101", "Loja_6"},
	{"000365", "Loja_7"},
}

// Store resolves a store from a tax identifier and a free-text name.
// Name numbering is checked first, then CNPJ suffixes, then town names.
func Store(taxID, name string) string {
	n := normalize.Text(name)
	digits := onlyDigits(taxID)

	for _, r := range numberRules {
		if r.match(n) {
			return r.id
		}
	}

	if digits != "" {
		for _, s := range taxIDSuffixes {
			if strings.HasSuffix(digits, s.suffix) {
				return s.id
			}
		}
	}

	switch {
	case strings.Contains(n, "BARRETOS"):
		return "Loja_6"
	case strings.Contains(n, "COLINA"), strings.Contains(n, "ANGELICOLA"), strings.HasSuffix(digits, "000184"):
		return "Loja_8"
	}

	return UnknownStore
}

// IsKnownStore reports whether id is a resolved store.
func IsKnownStore(id string) bool {
	return id != "" && id != UnknownStore
}

func onlyDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) && r <= unicode.MaxASCII {
			return r
		}
		return -1
	}, s)
}

// SheetStore resolves the store of an order workbook sheet. Sheets are named
// after the store ("Loja_3", "LOJA 03"); anything else goes through Store.
func SheetStore(sheet string) string {
	n := normalize.Text(sheet)
	if rest, ok := strings.CutPrefix(n, "LOJA"); ok {
		digits := onlyDigits(rest)
		if num, err := strconv.Atoi(digits); err == nil && num > 0 && len(digits) == len(strings.Trim(rest, " _-")) {
			return "Loja_" + strconv.Itoa(num)
		}
	}
	return Store("", sheet)
}
