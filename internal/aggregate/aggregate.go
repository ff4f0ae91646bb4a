// Package aggregate collapses duplicate lines within one source into summed
// quantities, preserving first-seen order.
package aggregate

import (
	"math"

	"github.com/sells-group/recon-cli/internal/model"
)

type lineKey struct {
	store, supplier, product, unit string
}

// sumBy merges lines sharing a key into the first occurrence.
func sumBy[T any](lines []T, key func(T) lineKey, merge func(dst *T, src T)) []T {
	idx := make(map[lineKey]int, len(lines))
	out := make([]T, 0, len(lines))
	for _, l := range lines {
		k := key(l)
		if i, ok := idx[k]; ok {
			merge(&out[i], l)
			continue
		}
		idx[k] = len(out)
		out = append(out, l)
	}
	return out
}

// usable reports whether q is a finite number.
func usable(q float64) bool {
	return !math.IsNaN(q) && !math.IsInf(q, 0)
}

// coerce maps unusable or negative observations to zero.
func coerce(q float64) float64 {
	if !usable(q) || q < 0 {
		return 0
	}
	return q
}

// Orders drops lines whose quantity is not a positive number, then sums by
// (store, supplier, product). The first raw supplier spelling is kept.
func Orders(lines []model.OrderLine) []model.OrderLine {
	kept := make([]model.OrderLine, 0, len(lines))
	for _, l := range lines {
		if !usable(l.Quantity) || l.Quantity <= 0 {
			continue
		}
		kept = append(kept, l)
	}
	return sumBy(kept,
		func(l model.OrderLine) lineKey { return lineKey{store: l.StoreID, supplier: l.Supplier, product: l.Product} },
		func(dst *model.OrderLine, src model.OrderLine) { dst.Quantity += src.Quantity },
	)
}

// Invoices sums by (store, supplier, product). Bad quantities count as zero;
// the line is kept.
func Invoices(lines []model.InvoiceLine) []model.InvoiceLine {
	fixed := make([]model.InvoiceLine, len(lines))
	for i, l := range lines {
		l.Quantity = coerce(l.Quantity)
		fixed[i] = l
	}
	return sumBy(fixed,
		func(l model.InvoiceLine) lineKey { return lineKey{store: l.StoreID, supplier: l.Supplier, product: l.Product} },
		func(dst *model.InvoiceLine, src model.InvoiceLine) { dst.Quantity += src.Quantity },
	)
}

// Counts sums by (store, supplier, product, unit label). Bad quantities
// count as zero.
func Counts(lines []model.CountLine) []model.CountLine {
	fixed := make([]model.CountLine, len(lines))
	for i, l := range lines {
		l.Quantity = coerce(l.Quantity)
		fixed[i] = l
	}
	return sumBy(fixed,
		func(l model.CountLine) lineKey {
			return lineKey{store: l.StoreID, supplier: l.Supplier, product: l.Product, unit: l.UnitLabel}
		},
		func(dst *model.CountLine, src model.CountLine) { dst.Quantity += src.Quantity },
	)
}
