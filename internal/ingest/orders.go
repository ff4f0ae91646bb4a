package ingest

import (
	"regexp"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/resolve"
)

const supplierPrefix = "Fornecedor:"

// supplierCode matches the "<code> - " prefix order sheets put before the name.
var supplierCode = regexp.MustCompile(`^\d+\s*-\s*`)

// OrderOptions configures ReadOrderWorkbook.
type OrderOptions struct {
	// Sheets limits reading to the named sheets. Empty reads every sheet.
	Sheets []string
}

// ReadOrderWorkbook reads a purchase-order workbook with one sheet per store.
// A row whose first cell starts with "Fornecedor:" sets the supplier for the
// rows below it. A row whose first cell is a positive number is an order line
// with the description in column 1 and the quantity in column 2.
func ReadOrderWorkbook(path string, opts OrderOptions) ([]model.OrderLine, Stats, error) {
	var stats Stats

	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, stats, eris.Wrapf(err, "ingest: open order workbook %s", path)
	}

	lines := []model.OrderLine{}
	for _, sheet := range f.Sheets {
		if len(opts.Sheets) > 0 && !slices.Contains(opts.Sheets, sheet.Name) {
			continue
		}
		stats.Sources++
		store := resolve.SheetStore(sheet.Name)
		supplier := Unknown

		for _, row := range sheet.Rows {
			cells := rowStrings(row)
			if len(cells) == 0 {
				continue
			}
			first := strings.TrimSpace(cells[0])
			if rest, ok := strings.CutPrefix(first, supplierPrefix); ok {
				supplier = SupplierName(rest)
				continue
			}
			if idx, err := ParseQuantity(first); err != nil || idx <= 0 {
				continue
			}

			line := model.OrderLine{
				StoreID:     store,
				SupplierRaw: supplier,
				Supplier:    resolve.Supplier(supplier),
				Product:     cell(cells, 1),
			}
			if raw := cell(cells, 2); raw != "" {
				q, err := ParseQuantity(raw)
				if err != nil {
					stats.Invalid++
				}
				line.Quantity = q
			}
			lines = append(lines, line)
		}
	}
	stats.Lines = len(lines)

	zap.L().Debug("ingest: order workbook read",
		zap.String("path", path),
		zap.Int("sheets", stats.Sources),
		zap.Int("lines", stats.Lines),
		zap.Int("invalid", stats.Invalid),
	)
	return lines, stats, nil
}

// SupplierName cleans the text after "Fornecedor:", dropping a leading
// supplier code.
func SupplierName(s string) string {
	name := supplierCode.ReplaceAllString(strings.TrimSpace(s), "")
	if name == "" {
		return Unknown
	}
	return name
}

func rowStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for i, c := range row.Cells {
		cells[i] = c.String()
	}
	return cells
}

func cell(cells []string, i int) string {
	if i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}
