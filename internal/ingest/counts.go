package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/normalize"
	"github.com/sells-group/recon-cli/internal/resolve"
)

// Count sheet columns, matched against normalized header cells.
const (
	colStore    = "LOJA"
	colSupplier = "FORNECEDOR"
	colProduct  = "PRODUTO"
	colQuantity = "QUANTIDADE"
	colUnit     = "PADRAO"
)

// CountOptions configures ReadCounts.
type CountOptions struct {
	Delimiter rune // CSV only, default ','
}

// ReadCounts reads a dock count sheet. Files ending in .xlsx are read from
// their first sheet; anything else is read as CSV. The first row must be a
// header naming at least the loja, produto and quantidade columns.
func ReadCounts(ctx context.Context, path string, opts CountOptions) ([]model.CountLine, Stats, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		rows, err = xlsxRows(path)
	} else {
		rows, err = csvRows(ctx, path, opts.Delimiter)
	}
	if err != nil {
		return nil, Stats{}, err
	}
	lines, stats, err := countLines(rows)
	if err != nil {
		return nil, stats, eris.Wrapf(err, "ingest: %s", path)
	}

	zap.L().Debug("ingest: counts read",
		zap.String("path", path),
		zap.Int("lines", stats.Lines),
		zap.Int("invalid", stats.Invalid),
	)
	return lines, stats, nil
}

func countLines(rows [][]string) ([]model.CountLine, Stats, error) {
	stats := Stats{Sources: 1}
	if len(rows) == 0 {
		return nil, stats, eris.New("ingest: count sheet has no header")
	}

	idx := make(map[string]int)
	for i, h := range rows[0] {
		name := normalize.Text(h)
		if _, seen := idx[name]; !seen {
			idx[name] = i
		}
	}
	for _, required := range []string{colStore, colProduct, colQuantity} {
		if _, ok := idx[required]; !ok {
			return nil, stats, eris.Errorf("ingest: count sheet missing column %q", strings.ToLower(required))
		}
	}
	get := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok {
			return ""
		}
		return cell(row, i)
	}

	lines := []model.CountLine{}
	for _, row := range rows[1:] {
		product := get(row, colProduct)
		if product == "" {
			continue
		}
		line := model.CountLine{
			StoreID:   resolve.SheetStore(get(row, colStore)),
			Product:   normalize.Text(product),
			UnitLabel: get(row, colUnit),
		}
		if s := get(row, colSupplier); s != "" {
			line.Supplier = resolve.Supplier(s)
		}
		q, err := ParseQuantity(get(row, colQuantity))
		if err != nil {
			stats.Invalid++
		}
		line.Quantity = q
		lines = append(lines, line)
	}
	stats.Lines = len(lines)
	return lines, stats, nil
}

func xlsxRows(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open count workbook %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("ingest: count workbook %s has no sheets", path)
	}
	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		rows = append(rows, rowStrings(row))
	}
	return rows, nil
}

func csvRows(ctx context.Context, path string, delimiter rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open count file %s", path)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	if delimiter != 0 {
		reader.Comma = delimiter
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "ingest: read counts")
		}
		record, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: read count row in %s", path)
		}
		rows = append(rows, record)
	}
}
