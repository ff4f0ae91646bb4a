// Package classify turns a quantity comparison into a status.
package classify

import (
	"fmt"
	"math"
	"strings"

	"github.com/sells-group/recon-cli/internal/model"
)

// Tolerance is the absolute quantity difference still treated as equal.
const Tolerance = 0.001

// Kind selects how a comparison is classified.
type Kind int

const (
	// Compared is a normal expected vs observed comparison.
	Compared Kind = iota
	// MissingSupplier means the supplier sent no invoice for the store.
	MissingSupplier
	// MissingProduct means the ordered product was never invoiced.
	MissingProduct
	// NotOrdered means something was invoiced that nobody ordered.
	NotOrdered
	// NotCounted means an invoiced product has no dock tally.
	NotCounted
)

// Status labels shown to operators.
const (
	LabelOK              = "🟢 OK"
	LabelMissingSupplier = "⚪ SEM NOTA P/ FORNECEDOR"
	LabelMissingProduct  = "⚪ PRODUTO NÃO FATURADO"
	LabelNotCounted      = "⚪ NÃO CONFERIDO"
	LabelReviewUnit      = "🔵 CONFERIR UNIDADE"
	labelShortage        = "🔴 FALTA %s"
	labelOverage         = "🟡 SOBRA %s"
	labelNotOrdered      = "🟣 SEM PEDIDO (SOBRA %s)"
)

// Result is a classified comparison.
type Result struct {
	Label      string
	Code       model.StatusCode
	Difference float64
}

// Classify compares an observed quantity with the expected one.
// Difference is observed - expected, except for missing counterparts where
// it is -expected.
func Classify(expected, observed float64, kind Kind) Result {
	switch kind {
	case MissingSupplier:
		return Result{Label: LabelMissingSupplier, Code: model.StatusMissingSupplier, Difference: -expected}
	case MissingProduct:
		return Result{Label: LabelMissingProduct, Code: model.StatusMissingProduct, Difference: -expected}
	case NotCounted:
		return Result{Label: LabelNotCounted, Code: model.StatusMissingProduct, Difference: -expected}
	case NotOrdered:
		return Result{Label: fmt.Sprintf(labelNotOrdered, FormatQty(observed)), Code: model.StatusOverage, Difference: observed}
	}

	diff := observed - expected
	switch {
	case math.Abs(diff) < Tolerance:
		return Result{Label: LabelOK, Code: model.StatusReconciled, Difference: 0}
	case diff < 0:
		return Result{Label: fmt.Sprintf(labelShortage, FormatQty(math.Abs(diff))), Code: model.StatusShortage, Difference: diff}
	default:
		return Result{Label: fmt.Sprintf(labelOverage, FormatQty(diff)), Code: model.StatusOverage, Difference: diff}
	}
}

// UnitMismatch is the review status for a dock tally recorded in more than
// one unit. Such quantities are never netted against each other.
func UnitMismatch() Result {
	return Result{Label: LabelReviewUnit, Code: model.StatusReconciled, Difference: 0}
}

// FormatQty renders a quantity with two decimals, dropping a ".00" tail.
func FormatQty(q float64) string {
	return strings.Replace(fmt.Sprintf("%.2f", q), ".00", "", 1)
}
