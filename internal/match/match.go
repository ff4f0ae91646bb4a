// Package match pairs order lines with invoice lines inside one
// (store, supplier) group.
package match

import (
	"cmp"
	"slices"
	"strings"

	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/taxonomy"
)

// DefaultWidenedRoots lists commodities whose sub-variants must match on the
// exact family code rather than on the broad root.
var DefaultWidenedRoots = []string{"MELANCIA", "BATATA", "CEBOLA", "ALHO"}

// Candidate is a scored (order index, invoice index) pair.
type Candidate struct {
	Order   int
	Invoice int
	Score   float64
}

// Pair is an accepted match.
type Pair struct {
	Order   model.OrderLine
	Invoice model.InvoiceLine
	Score   float64
}

// Result is the outcome of matching one group.
type Result struct {
	Pairs             []Pair
	UnmatchedOrders   []model.OrderLine
	UnmatchedInvoices []model.InvoiceLine

	// NoInvoice is set when the group had no invoice lines at all. Every
	// order line is then in UnmatchedOrders and no pairing was attempted.
	NoInvoice bool
}

// Matcher holds the family and scoring functions used for one run.
type Matcher struct {
	Family       func(string) string
	Score        func(a, b string) float64
	WidenedRoots []string
}

// New returns a Matcher using the product taxonomy and TokenSortRatio.
func New() *Matcher {
	return &Matcher{
		Family:       taxonomy.Family,
		Score:        TokenSortRatio,
		WidenedRoots: DefaultWidenedRoots,
	}
}

// Compatible reports whether an ordered and an invoiced family may be paired.
func (m *Matcher) Compatible(orderFamily, invoiceFamily string) bool {
	if orderFamily == invoiceFamily {
		return true
	}
	orderRoot, invoiceRoot := taxonomy.Root(orderFamily), taxonomy.Root(invoiceFamily)
	for _, root := range m.WidenedRoots {
		if strings.Contains(orderRoot, root) || strings.Contains(invoiceRoot, root) {
			return false // widened back to the exact codes, which differ
		}
	}
	return orderRoot == invoiceRoot
}

// Candidates returns every compatible pair in scan order: order lines outer,
// invoice lines inner.
func (m *Matcher) Candidates(orders []model.OrderLine, invoices []model.InvoiceLine) []Candidate {
	invoiceFamilies := make([]string, len(invoices))
	for j, inv := range invoices {
		invoiceFamilies[j] = m.Family(inv.Product)
	}

	var out []Candidate
	for i, o := range orders {
		orderFamily := m.Family(o.Product)
		for j, inv := range invoices {
			if !m.Compatible(orderFamily, invoiceFamilies[j]) {
				continue
			}
			out = append(out, Candidate{Order: i, Invoice: j, Score: m.Score(o.Product, inv.Product)})
		}
	}
	return out
}

// Match runs candidate generation, a stable descending sort by score, and
// greedy one-to-one assignment over one group.
func (m *Matcher) Match(orders []model.OrderLine, invoices []model.InvoiceLine) Result {
	if len(invoices) == 0 {
		return Result{UnmatchedOrders: slices.Clone(orders), NoInvoice: true}
	}

	candidates := m.Candidates(orders, invoices)
	slices.SortStableFunc(candidates, func(a, b Candidate) int {
		return cmp.Compare(b.Score, a.Score)
	})

	usedOrders := make(map[int]bool, len(orders))
	usedInvoices := make(map[int]bool, len(invoices))

	var res Result
	for _, c := range candidates {
		if usedOrders[c.Order] || usedInvoices[c.Invoice] {
			continue
		}
		usedOrders[c.Order] = true
		usedInvoices[c.Invoice] = true
		res.Pairs = append(res.Pairs, Pair{Order: orders[c.Order], Invoice: invoices[c.Invoice], Score: c.Score})
	}

	for i, o := range orders {
		if !usedOrders[i] {
			res.UnmatchedOrders = append(res.UnmatchedOrders, o)
		}
	}
	for j, inv := range invoices {
		if !usedInvoices[j] {
			res.UnmatchedInvoices = append(res.UnmatchedInvoices, inv)
		}
	}
	return res
}
