package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recon-cli/internal/model"
)

var csvHeader = []string{
	"run_id", "store_id", "supplier", "supplier_label", "product_ordered", "qty_ordered",
	"product_invoiced", "qty_invoiced", "qty_difference", "status_code", "status_label", "kind",
	"product_counted", "qty_physical", "physical_unit", "dock_status_code", "dock_status_label", "dock_difference",
}

// WriteCSV writes records as a flat table with a header row. Dock columns are
// empty for records without a dock stage.
func WriteCSV(w io.Writer, records []model.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return eris.Wrap(err, "report: write csv header")
	}
	for _, r := range records {
		row := []string{
			r.RunID, r.StoreID, r.Supplier, r.SupplierLabel, r.ProductOrdered, formatFloat(r.QtyOrdered),
			r.ProductInvoiced, formatFloat(r.QtyInvoiced), formatFloat(r.QtyDifference),
			strconv.Itoa(int(r.StatusCode)), r.StatusLabel, string(r.Kind),
			r.ProductCounted, formatOptional(r.QtyPhysical), r.PhysicalUnitLabel,
			formatCode(r.DockStatusCode), r.DockStatusLabel, formatOptional(r.DockDifference),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "report: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush csv")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatOptional(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

func formatCode(c *model.StatusCode) string {
	if c == nil {
		return ""
	}
	return strconv.Itoa(int(*c))
}
