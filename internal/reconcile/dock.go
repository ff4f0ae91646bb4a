package reconcile

import (
	"slices"
	"strings"

	"github.com/sells-group/recon-cli/internal/classify"
	"github.com/sells-group/recon-cli/internal/model"
)

type countKey struct {
	store, supplier, product string
}

// tally is the dock count for one product. Quantities recorded under
// different unit labels are kept apart and never summed.
type tally struct {
	line  model.CountLine
	units []unitQty
	used  bool
}

type unitQty struct {
	label string
	qty   float64
}

// mixed reports whether the product was counted in more than one unit.
func (tl *tally) mixed() bool { return len(tl.units) > 1 }

// compare classifies the tally against the expected quantity. A mixed-unit
// tally cannot be compared and gets the unit review status.
func (tl *tally) compare(expected float64) classify.Result {
	if tl.mixed() {
		return classify.UnitMismatch()
	}
	return classify.Classify(expected, tl.units[0].qty, classify.Compared)
}

// unitLabel lists the unit labels; a mixed tally shows each quantity too.
func (tl *tally) unitLabel() string {
	parts := make([]string, 0, len(tl.units))
	for _, u := range tl.units {
		switch {
		case !tl.mixed():
			if u.label != "" {
				parts = append(parts, u.label)
			}
		case u.label == "":
			parts = append(parts, classify.FormatQty(u.qty))
		default:
			parts = append(parts, classify.FormatQty(u.qty)+" "+u.label)
		}
	}
	return strings.Join(parts, " / ")
}

type tallies struct {
	byKey map[countKey]*tally
	order []*tally
}

func newTallies(counts []model.CountLine) *tallies {
	t := &tallies{byKey: make(map[countKey]*tally, len(counts))}
	for _, c := range counts {
		k := countKey{store: c.StoreID, supplier: c.Supplier, product: c.Product}
		tl, ok := t.byKey[k]
		if !ok {
			tl = &tally{line: c}
			t.byKey[k] = tl
			t.order = append(t.order, tl)
		}
		i := slices.IndexFunc(tl.units, func(u unitQty) bool { return u.label == c.UnitLabel })
		if i < 0 {
			tl.units = append(tl.units, unitQty{label: c.UnitLabel})
			i = len(tl.units) - 1
		}
		tl.units[i].qty += c.Quantity
	}
	return t
}

// claim returns the unused tally for a product, preferring one recorded
// against the supplier over one recorded without a supplier.
func (t *tallies) claim(store, supplier, product string) *tally {
	for _, k := range []countKey{
		{store: store, supplier: supplier, product: product},
		{store: store, product: product},
	} {
		if tl := t.byKey[k]; tl != nil && !tl.used {
			tl.used = true
			return tl
		}
	}
	return nil
}

// attachCounts runs the invoice vs dock classification on every record and
// appends a record for each tally no record claimed.
func attachCounts(records []model.Record, counts []model.CountLine) []model.Record {
	t := newTallies(counts)

	for i := range records {
		r := &records[i]
		switch r.Kind {
		case model.KindMatched, model.KindNotOrdered, model.KindUnsolicited:
			tl := t.claim(r.StoreID, r.Supplier, r.ProductInvoiced)
			if tl == nil {
				setDock(r, nil, classify.Classify(r.QtyInvoiced, 0, classify.NotCounted))
				continue
			}
			setDock(r, tl, tl.compare(r.QtyInvoiced))
		case model.KindNoInvoice, model.KindNotInvoiced:
			// Nothing was invoiced; only a tally found under the ordered name is reported.
			if tl := t.claim(r.StoreID, r.Supplier, r.ProductOrdered); tl != nil {
				setDock(r, tl, tl.compare(0))
			}
		}
	}

	for _, tl := range t.order {
		if tl.used {
			continue
		}
		r := model.Record{
			StoreID:         tl.line.StoreID,
			SupplierLabel:   tl.line.Supplier,
			Supplier:        tl.line.Supplier,
			ProductOrdered:  LabelNotRequested,
			ProductInvoiced: LabelNoInvoiceLine,
			Kind:            model.KindCountedNotInvoiced,
		}
		main := classify.Classify(0, 0, classify.Compared)
		r.StatusLabel, r.StatusCode, r.QtyDifference = main.Label, main.Code, main.Difference
		setDock(&r, tl, tl.compare(0))
		records = append(records, r)
	}
	return records
}

func setDock(r *model.Record, tl *tally, status classify.Result) {
	if tl != nil {
		if !tl.mixed() {
			qty := tl.units[0].qty
			r.QtyPhysical = &qty
		}
		r.ProductCounted = tl.line.Product
		r.PhysicalUnitLabel = tl.unitLabel()
	}
	code := status.Code
	diff := status.Difference
	r.DockStatusLabel = status.Label
	r.DockStatusCode = &code
	r.DockDifference = &diff
}
