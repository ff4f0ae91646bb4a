package report

import (
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"github.com/sells-group/recon-cli/internal/model"
)

// DashboardSheet is the name of the dashboard sheet.
const DashboardSheet = "Resumo"

const (
	dashboardTitle  = "DASHBOARD OPERACIONAL - DIVERGÊNCIAS DE ESTOQUE"
	unsolicitedMark = "FATURADO SEM PEDIDO"
)

var (
	auditHeader     = []any{"Produto Pedido", "Qtd Pedida", "Produto na Nota (XML)", "Qtd Nota", "Status"}
	dockHeader      = []any{"Produto Conferido", "Qtd Física", "Padrão", "Status Doca"}
	dashboardHeader = []any{"Loja", "Fornecedor (Aba do Pedido)", "Itens c/ Erro na Doca", "Falta/Sobra (Kg ou Unid)"}
)

// statusFills maps the status marker at the start of a label to its fill.
var statusFills = []struct {
	marker string
	color  string
}{
	{"🟢", "C6EFCE"},
	{"🔴", "FFC7CE"},
	{"🟡", "FFEB9C"},
	{"🔵", "B4C6E7"},
	{"⚪", "F2F2F2"},
	{"🟣", "E4DFEC"},
}

// StatusFill returns the fill color for a status label, or "" for none.
func StatusFill(label string) string {
	for _, f := range statusFills {
		if strings.Contains(label, f.marker) {
			return f.color
		}
	}
	return ""
}

// Workbook builds the audit workbook: one sheet per store, in store order,
// followed by the dashboard sheet. The caller closes the returned file.
func Workbook(records []model.Record) (*excelize.File, error) {
	sorted := slices.Clone(records)
	Sort(sorted)

	f := excelize.NewFile()
	w := &workbookWriter{f: f, styles: make(map[string]int), dock: HasDock(sorted)}

	first := true
	for start := 0; start < len(sorted); {
		end := start
		for end < len(sorted) && sorted[end].StoreID == sorted[start].StoreID {
			end++
		}
		if err := w.storeSheet(sorted[start].StoreID, sorted[start:end], first); err != nil {
			f.Close() //nolint:errcheck
			return nil, err
		}
		first = false
		start = end
	}

	if err := w.dashboardSheet(Dashboard(sorted), first); err != nil {
		f.Close() //nolint:errcheck
		return nil, err
	}
	f.SetActiveSheet(0)
	return f, nil
}

// WriteWorkbook renders the audit workbook to out.
func WriteWorkbook(out io.Writer, records []model.Record) error {
	f, err := Workbook(records)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck
	return eris.Wrap(f.Write(out), "report: write workbook")
}

// SaveWorkbook renders the audit workbook to path.
func SaveWorkbook(path string, records []model.Record) error {
	f, err := Workbook(records)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck
	return eris.Wrapf(f.SaveAs(path), "report: save workbook %s", path)
}

type workbookWriter struct {
	f      *excelize.File
	styles map[string]int
	dock   bool
}

// sheet creates a sheet, reusing the default one for the first sheet.
func (w *workbookWriter) sheet(name string, first bool) error {
	if first {
		return eris.Wrapf(w.f.SetSheetName(w.f.GetSheetName(0), name), "report: name sheet %s", name)
	}
	_, err := w.f.NewSheet(name)
	return eris.Wrapf(err, "report: create sheet %s", name)
}

// style returns a cached style id for a fill color and font.
func (w *workbookWriter) style(fill, fontColor string, bold bool, size float64, center bool) (int, error) {
	key := strings.Join([]string{fill, fontColor, boolKey(bold), boolKey(center)}, "|")
	if size > 0 {
		key += "|big"
	}
	if id, ok := w.styles[key]; ok {
		return id, nil
	}
	st := &excelize.Style{Font: &excelize.Font{Bold: bold, Color: fontColor, Size: size}}
	if fill != "" {
		st.Fill = excelize.Fill{Type: "pattern", Color: []string{fill}, Pattern: 1}
	}
	if center {
		st.Alignment = &excelize.Alignment{Horizontal: "center", Vertical: "center"}
	}
	id, err := w.f.NewStyle(st)
	if err != nil {
		return 0, eris.Wrap(err, "report: new style")
	}
	w.styles[key] = id
	return id, nil
}

func (w *workbookWriter) storeSheet(store string, records []model.Record, first bool) error {
	name := sheetName(store)
	if err := w.sheet(name, first); err != nil {
		return err
	}

	header := slices.Clone(auditHeader)
	if w.dock {
		header = append(header, dockHeader...)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(header))

	title := "AUDITORIA - " + strings.ReplaceAll(strings.ToUpper(store), "_", " ")
	if err := w.banner(name, 1, lastCol, title, "000000", "FFFFFF", 14); err != nil {
		return err
	}
	if err := w.row(name, 2, header); err != nil {
		return err
	}
	if err := w.styleRange(name, "A2", lastCol+"2", "", "", true); err != nil {
		return err
	}

	row := 3
	current := ""
	for i, r := range records {
		if i == 0 || r.SupplierLabel != current {
			if i > 0 {
				row++
			}
			current = r.SupplierLabel
			fill, font := "D9E1F2", "002060"
			if strings.Contains(current, unsolicitedMark) {
				fill, font = "E4DFEC", "60497A"
			}
			if err := w.banner(name, row, lastCol, "Fornecedor: "+current, fill, font, 0); err != nil {
				return err
			}
			row++
		}

		values := []any{r.ProductOrdered, r.QtyOrdered, r.ProductInvoiced, r.QtyInvoiced, r.StatusLabel}
		if w.dock {
			values = append(values, r.ProductCounted, optional(r.QtyPhysical), r.PhysicalUnitLabel, r.DockStatusLabel)
		}
		if err := w.row(name, row, values); err != nil {
			return err
		}
		if err := w.fillStatus(name, "E", row, r.StatusLabel); err != nil {
			return err
		}
		if w.dock {
			if err := w.fillStatus(name, "I", row, r.DockStatusLabel); err != nil {
				return err
			}
		}
		row++
	}

	widths := map[string]float64{"A": 45, "B": 15, "C": 45, "D": 15, "E": 45, "F": 45, "G": 15, "H": 20, "I": 45}
	for col, width := range widths {
		if !w.dock && col > "E" {
			continue
		}
		if err := w.f.SetColWidth(name, col, col, width); err != nil {
			return eris.Wrap(err, "report: set column width")
		}
	}
	return nil
}

func (w *workbookWriter) dashboardSheet(rows []DashboardRow, first bool) error {
	name := DashboardSheet
	if err := w.sheet(name, first); err != nil {
		return err
	}
	if err := w.banner(name, 1, "D", dashboardTitle, "002060", "FFFFFF", 14); err != nil {
		return err
	}
	if err := w.row(name, 2, dashboardHeader); err != nil {
		return err
	}
	if err := w.styleRange(name, "A2", "D2", "D9D9D9", "", true); err != nil {
		return err
	}

	row := 3
	current := ""
	for i, d := range rows {
		if i == 0 || d.StoreID != current {
			current = d.StoreID
			label := "⯈ " + strings.ReplaceAll(strings.ToUpper(current), "_", " ")
			if err := w.banner(name, row, "D", label, "D9E1F2", "002060", 0); err != nil {
				return err
			}
			row++
		}
		if err := w.row(name, row, []any{d.StoreID, d.Supplier, d.Items, d.Net}); err != nil {
			return err
		}
		cell := "D" + strconv.Itoa(row)
		switch {
		case d.Net < 0:
			err := w.styleRange(name, cell, cell, "FFC7CE", "9C0006", true)
			if err != nil {
				return err
			}
		case d.Net > 0:
			err := w.styleRange(name, cell, cell, "C6EFCE", "006100", true)
			if err != nil {
				return err
			}
		}
		row++
	}

	for col, width := range map[string]float64{"A": 15, "B": 35, "C": 25, "D": 30} {
		if err := w.f.SetColWidth(name, col, col, width); err != nil {
			return eris.Wrap(err, "report: set column width")
		}
	}
	return nil
}

// banner writes text merged across A..lastCol of one row.
func (w *workbookWriter) banner(sheet string, row int, lastCol, text, fill, font string, size float64) error {
	start, end := "A"+strconv.Itoa(row), lastCol+strconv.Itoa(row)
	if err := w.f.SetCellValue(sheet, start, text); err != nil {
		return eris.Wrap(err, "report: set banner")
	}
	if err := w.f.MergeCell(sheet, start, end); err != nil {
		return eris.Wrap(err, "report: merge banner")
	}
	id, err := w.style(fill, font, true, size, size > 0)
	if err != nil {
		return err
	}
	return eris.Wrap(w.f.SetCellStyle(sheet, start, end, id), "report: style banner")
}

func (w *workbookWriter) row(sheet string, row int, values []any) error {
	cell, _ := excelize.CoordinatesToCellName(1, row)
	return eris.Wrapf(w.f.SetSheetRow(sheet, cell, &values), "report: write row %d", row)
}

func (w *workbookWriter) styleRange(sheet, from, to, fill, font string, bold bool) error {
	id, err := w.style(fill, font, bold, 0, false)
	if err != nil {
		return err
	}
	return eris.Wrap(w.f.SetCellStyle(sheet, from, to, id), "report: set style")
}

func (w *workbookWriter) fillStatus(sheet, col string, row int, label string) error {
	fill := StatusFill(label)
	if fill == "" {
		return nil
	}
	cell := col + strconv.Itoa(row)
	return w.styleRange(sheet, cell, cell, fill, "", false)
}

// sheetName keeps a store id within Excel's sheet name rules.
func sheetName(store string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, store)
	if name == "" {
		name = "Loja"
	}
	if name == DashboardSheet {
		name += "_Loja"
	}
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}

func optional(f *float64) any {
	if f == nil {
		return ""
	}
	return *f
}

func boolKey(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
