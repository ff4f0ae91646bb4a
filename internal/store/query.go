package store

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recon-cli/internal/model"
)

const runColumns = `id, created_at, order_lines, invoice_lines, count_lines, records, divergent`

const recordSelect = `SELECT run_id, store_id, supplier_label, supplier, product_ordered, product_invoiced,
	qty_ordered, qty_invoiced, qty_difference, status_label, status_code, kind,
	product_counted, qty_physical, physical_unit, dock_status_label, dock_status_code, dock_difference
	FROM records`

// placeholder renders the n-th (1-based) bind parameter of a dialect.
type placeholder func(n int) string

func sqlitePlaceholder(int) string { return "?" }

func postgresPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

// listRunsQuery builds the runs listing, newest first.
func listRunsQuery(f RunFilter, ph placeholder) (string, []any) {
	var b strings.Builder
	var args []any
	b.WriteString(`SELECT ` + runColumns + ` FROM runs`)
	if !f.Since.IsZero() {
		args = append(args, f.Since.UTC())
		b.WriteString(` WHERE created_at >= ` + ph(len(args)))
	}
	b.WriteString(` ORDER BY created_at DESC, id DESC`)

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit)
	b.WriteString(` LIMIT ` + ph(len(args)))
	if f.Offset > 0 {
		args = append(args, f.Offset)
		b.WriteString(` OFFSET ` + ph(len(args)))
	}
	return b.String(), args
}

// listRecordsQuery builds the record selection in stored order.
func listRecordsQuery(f RecordFilter, ph placeholder) (string, []any) {
	var b strings.Builder
	args := []any{f.RunID}
	b.WriteString(recordSelect + ` WHERE run_id = ` + ph(1))
	if f.StoreID != "" {
		args = append(args, f.StoreID)
		b.WriteString(` AND store_id = ` + ph(len(args)))
	}
	if f.Supplier != "" {
		args = append(args, f.Supplier)
		b.WriteString(` AND supplier = ` + ph(len(args)))
	}
	if f.DivergentOnly {
		b.WriteString(` AND (status_code IN ` + divergentCodes + ` OR dock_status_code IN ` + divergentCodes + `)`)
	}
	b.WriteString(` ORDER BY seq`)
	return b.String(), args
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	if err := row.Scan(&r.ID, &r.CreatedAt, &r.OrderLines, &r.InvoiceLines, &r.CountLines, &r.Records, &r.Divergent); err != nil {
		return nil, err
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}

func scanRecord(row scannable) (model.Record, error) {
	var (
		r        model.Record
		code     int
		kind     string
		dockCode *int64
	)
	err := row.Scan(
		&r.RunID, &r.StoreID, &r.SupplierLabel, &r.Supplier, &r.ProductOrdered, &r.ProductInvoiced,
		&r.QtyOrdered, &r.QtyInvoiced, &r.QtyDifference, &r.StatusLabel, &code, &kind,
		&r.ProductCounted, &r.QtyPhysical, &r.PhysicalUnitLabel, &r.DockStatusLabel, &dockCode, &r.DockDifference,
	)
	if err != nil {
		return r, eris.Wrap(err, "store: scan record")
	}
	r.StatusCode = model.StatusCode(code)
	r.Kind = model.RecordKind(kind)
	if dockCode != nil {
		c := model.StatusCode(*dockCode)
		r.DockStatusCode = &c
	}
	return r, nil
}
