// Package reconcile runs the three-way reconciliation of orders, invoices
// and dock counts for one run.
package reconcile

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/aggregate"
	"github.com/sells-group/recon-cli/internal/classify"
	"github.com/sells-group/recon-cli/internal/match"
	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/normalize"
	"github.com/sells-group/recon-cli/internal/resolve"
)

// Placeholder product labels for records without a counterpart.
const (
	LabelInvoiceNotFound  = "❌ NOTA NÃO ENCONTRADA"
	LabelProductNotBilled = "❌ PRODUTO NÃO FATURADO"
	LabelNotRequested     = "❌ NÃO SOLICITADO"
	LabelNoInvoiceLine    = "❌ SEM NOTA"
)

var (
	// ErrNoOrders is returned when the order source is absent.
	ErrNoOrders = eris.New("reconcile: order pool is absent")
	// ErrNoInvoices is returned when the invoice source is absent.
	ErrNoInvoices = eris.New("reconcile: invoice pool is absent")
	// ErrNoRunID is returned when the caller supplies no run id.
	ErrNoRunID = eris.New("reconcile: run id is required")
)

// Input holds the pools of one run. A nil Orders or Invoices slice means the
// source was not supplied; an empty non-nil slice is a valid, empty source.
// Counts is optional and enables the dock stage when non-nil.
type Input struct {
	Orders   []model.OrderLine
	Invoices []model.InvoiceLine
	Counts   []model.CountLine
}

// Engine reconciles one run at a time. It keeps no state between runs.
type Engine struct {
	Matcher   *match.Matcher
	Overrides classify.Overrides
}

// NewEngine returns an Engine with the default matcher.
func NewEngine(overrides classify.Overrides) *Engine {
	return &Engine{Matcher: match.New(), Overrides: overrides}
}

// Run reconciles the input and stamps every record with runID.
func (e *Engine) Run(runID string, in Input) ([]model.Record, error) {
	switch {
	case runID == "":
		return nil, ErrNoRunID
	case in.Orders == nil:
		return nil, ErrNoOrders
	case in.Invoices == nil:
		return nil, ErrNoInvoices
	}

	orders := aggregate.Orders(prepareOrders(in.Orders))
	invoices := aggregate.Invoices(prepareInvoices(in.Invoices))

	orderGroups, orderKeys := groupOrders(orders)
	invoiceGroups, invoiceKeys := groupInvoices(invoices)

	var records []model.Record
	for _, key := range orderKeys {
		res := e.Matcher.Match(orderGroups[key], invoiceGroups[key])
		zap.L().Debug("reconcile: group matched",
			zap.String("store", key.StoreID),
			zap.String("supplier", key.Supplier),
			zap.Int("pairs", len(res.Pairs)),
			zap.Int("unmatched_orders", len(res.UnmatchedOrders)),
			zap.Int("unmatched_invoices", len(res.UnmatchedInvoices)),
			zap.Bool("no_invoice", res.NoInvoice),
		)
		records = append(records, e.groupRecords(key, res)...)
	}

	// Suppliers that invoiced a store without any order from it.
	for _, key := range invoiceKeys {
		if _, ordered := orderGroups[key]; ordered {
			continue
		}
		for _, inv := range invoiceGroups[key] {
			records = append(records, notOrderedRecord(key, inv, model.KindUnsolicited))
		}
	}

	if in.Counts != nil {
		records = attachCounts(records, aggregate.Counts(prepareCounts(in.Counts)))
	}

	for i := range records {
		records[i].RunID = runID
	}

	zap.L().Info("reconcile: run complete",
		zap.String("run_id", runID),
		zap.Int("order_lines", len(orders)),
		zap.Int("invoice_lines", len(invoices)),
		zap.Int("groups", len(orderKeys)),
		zap.Int("records", len(records)),
	)
	return records, nil
}

func (e *Engine) groupRecords(key model.GroupKey, res match.Result) []model.Record {
	out := make([]model.Record, 0, len(res.Pairs)+len(res.UnmatchedOrders)+len(res.UnmatchedInvoices))

	for _, p := range res.Pairs {
		status, ok := e.Overrides.Lookup(key.Supplier, e.Matcher.Family(p.Order.Product))
		if !ok {
			status = classify.Classify(p.Order.Quantity, p.Invoice.Quantity, classify.Compared)
		}
		out = append(out, model.Record{
			StoreID:         key.StoreID,
			SupplierLabel:   supplierLabel(p.Order),
			Supplier:        key.Supplier,
			ProductOrdered:  p.Order.Product,
			ProductInvoiced: p.Invoice.Product,
			QtyOrdered:      p.Order.Quantity,
			QtyInvoiced:     p.Invoice.Quantity,
			QtyDifference:   status.Difference,
			StatusLabel:     status.Label,
			StatusCode:      status.Code,
			Kind:            model.KindMatched,
		})
	}

	kind, placeholder, ck := model.KindNotInvoiced, LabelProductNotBilled, classify.MissingProduct
	if res.NoInvoice {
		kind, placeholder, ck = model.KindNoInvoice, LabelInvoiceNotFound, classify.MissingSupplier
	}
	for _, o := range res.UnmatchedOrders {
		status := classify.Classify(o.Quantity, 0, ck)
		out = append(out, model.Record{
			StoreID:         key.StoreID,
			SupplierLabel:   supplierLabel(o),
			Supplier:        key.Supplier,
			ProductOrdered:  o.Product,
			ProductInvoiced: placeholder,
			QtyOrdered:      o.Quantity,
			QtyDifference:   status.Difference,
			StatusLabel:     status.Label,
			StatusCode:      status.Code,
			Kind:            kind,
		})
	}

	for _, inv := range res.UnmatchedInvoices {
		out = append(out, notOrderedRecord(key, inv, model.KindNotOrdered))
	}
	return out
}

func notOrderedRecord(key model.GroupKey, inv model.InvoiceLine, kind model.RecordKind) model.Record {
	status := classify.Classify(0, inv.Quantity, classify.NotOrdered)
	return model.Record{
		StoreID:         key.StoreID,
		SupplierLabel:   "⚠️ " + key.Supplier + " - FATURADO SEM PEDIDO",
		Supplier:        key.Supplier,
		ProductOrdered:  LabelNotRequested,
		ProductInvoiced: inv.Product,
		QtyInvoiced:     inv.Quantity,
		QtyDifference:   status.Difference,
		StatusLabel:     status.Label,
		StatusCode:      status.Code,
		Kind:            kind,
	}
}

func supplierLabel(o model.OrderLine) string {
	if o.SupplierRaw != "" {
		return o.SupplierRaw
	}
	return o.Supplier
}

// prepareOrders canonicalizes fields the ingestion step left raw.
func prepareOrders(lines []model.OrderLine) []model.OrderLine {
	out := make([]model.OrderLine, len(lines))
	for i, l := range lines {
		if l.Supplier == "" {
			l.Supplier = resolve.Supplier(l.SupplierRaw)
		}
		l.Product = normalize.Text(l.Product)
		out[i] = l
	}
	return out
}

func prepareInvoices(lines []model.InvoiceLine) []model.InvoiceLine {
	out := make([]model.InvoiceLine, len(lines))
	for i, l := range lines {
		if l.Supplier == "" {
			l.Supplier = resolve.Supplier(l.Issuer)
		}
		l.Product = normalize.Text(l.Product)
		out[i] = l
	}
	return out
}

func prepareCounts(lines []model.CountLine) []model.CountLine {
	out := make([]model.CountLine, len(lines))
	for i, l := range lines {
		if l.Supplier != "" {
			l.Supplier = resolve.Supplier(l.Supplier)
		}
		l.Product = normalize.Text(l.Product)
		out[i] = l
	}
	return out
}

func groupOrders(lines []model.OrderLine) (map[model.GroupKey][]model.OrderLine, []model.GroupKey) {
	groups := make(map[model.GroupKey][]model.OrderLine)
	var keys []model.GroupKey
	for _, l := range lines {
		k := l.Key()
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], l)
	}
	return groups, keys
}

func groupInvoices(lines []model.InvoiceLine) (map[model.GroupKey][]model.InvoiceLine, []model.GroupKey) {
	groups := make(map[model.GroupKey][]model.InvoiceLine)
	var keys []model.GroupKey
	for _, l := range lines {
		k := l.Key()
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], l)
	}
	return groups, keys
}
