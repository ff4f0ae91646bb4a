package ingest

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// ParseQuantity parses a quantity written either with a decimal point
// ("12.5", as NF-e files carry it) or the Brazilian way ("1.234,5").
// When both separators appear the last one is the decimal separator.
func ParseQuantity(s string) (float64, error) {
	v := strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if v == "" {
		return 0, eris.New("ingest: empty quantity")
	}

	comma, dot := strings.LastIndex(v, ","), strings.LastIndex(v, ".")
	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		v = strings.ReplaceAll(v, ".", "")
		v = strings.Replace(v, ",", ".", 1)
	case comma >= 0 && dot >= 0:
		v = strings.ReplaceAll(v, ",", "")
	case comma >= 0:
		v = strings.Replace(v, ",", ".", 1)
	}

	d, err := decimal.NewFromString(v)
	if err != nil {
		return 0, eris.Wrapf(err, "ingest: parse quantity %q", s)
	}
	f, _ := d.Float64()
	return f, nil
}
