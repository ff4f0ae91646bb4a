// Package report orders reconciliation records for display and renders them
// as an audit workbook, a dashboard and a flat CSV export.
package report

import (
	"cmp"
	"slices"

	"github.com/sells-group/recon-cli/internal/model"
)

// Sort orders records by store, supplier label and ordered product. Records
// that tie keep their relative order.
func Sort(records []model.Record) {
	slices.SortStableFunc(records, func(a, b model.Record) int {
		return cmp.Or(
			cmp.Compare(a.StoreID, b.StoreID),
			cmp.Compare(a.SupplierLabel, b.SupplierLabel),
			cmp.Compare(a.ProductOrdered, b.ProductOrdered),
		)
	})
}

// DashboardRow summarizes the divergent records of one supplier at one store.
type DashboardRow struct {
	StoreID  string  `json:"store_id" yaml:"store_id"`
	Supplier string  `json:"supplier" yaml:"supplier"`
	Items    int     `json:"items" yaml:"items"`
	Net      float64 `json:"net_difference" yaml:"net_difference"`
}

// Dashboard groups divergent records by (store, supplier label), counting
// them and summing their differences. Rows are ordered by store, then by net
// difference with the largest shortage first.
func Dashboard(records []model.Record) []DashboardRow {
	type key struct{ store, supplier string }
	idx := make(map[key]int)
	var rows []DashboardRow
	for _, r := range records {
		if !r.StatusCode.Divergent() {
			continue
		}
		k := key{r.StoreID, r.SupplierLabel}
		i, ok := idx[k]
		if !ok {
			i = len(rows)
			idx[k] = i
			rows = append(rows, DashboardRow{StoreID: r.StoreID, Supplier: r.SupplierLabel})
		}
		rows[i].Items++
		rows[i].Net += r.QtyDifference
	}

	slices.SortStableFunc(rows, func(a, b DashboardRow) int {
		return cmp.Or(
			cmp.Compare(a.StoreID, b.StoreID),
			cmp.Compare(a.Net, b.Net),
			cmp.Compare(a.Supplier, b.Supplier),
		)
	})
	return rows
}

// HasDock reports whether any record carries a dock stage.
func HasDock(records []model.Record) bool {
	return slices.ContainsFunc(records, func(r model.Record) bool { return r.DockStatusCode != nil })
}
