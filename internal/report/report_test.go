package report

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sells-group/recon-cli/internal/model"
)

func ptr[T any](v T) *T { return &v }

func rec(store, label, product string, code model.StatusCode, diff float64, status string) model.Record {
	return model.Record{
		RunID: "r1", StoreID: store, SupplierLabel: label, Supplier: label,
		ProductOrdered: product, ProductInvoiced: product, StatusCode: code,
		QtyDifference: diff, StatusLabel: status, Kind: model.KindMatched,
	}
}

func sampleRecords() []model.Record {
	return []model.Record{
		rec("Loja_2", "DRUB", "TOMATE", model.StatusShortage, -2, "🔴 FALTA 2"),
		rec("Loja_1", "COAL", "MILHO", model.StatusMissingSupplier, -3, "⚪ SEM NOTA P/ FORNECEDOR"),
		rec("Loja_1", "DRUB", "CENOURA", model.StatusReconciled, 0, "🟢 OK"),
		rec("Loja_1", "DRUB", "ABACAXI", model.StatusOverage, 1.5, "🟡 SOBRA 1.50"),
		rec("Loja_1", "⚠️ TAIS - FATURADO SEM PEDIDO", "❌ NÃO SOLICITADO", model.StatusOverage, 4, "🟣 SEM PEDIDO (SOBRA 4)"),
	}
}

func TestSort(t *testing.T) {
	records := sampleRecords()
	Sort(records)

	var got []string
	for _, r := range records {
		got = append(got, r.StoreID+"/"+r.SupplierLabel+"/"+r.ProductOrdered)
	}
	assert.Equal(t, []string{
		"Loja_1/COAL/MILHO",
		"Loja_1/DRUB/ABACAXI",
		"Loja_1/DRUB/CENOURA",
		"Loja_1/⚠️ TAIS - FATURADO SEM PEDIDO/❌ NÃO SOLICITADO",
		"Loja_2/DRUB/TOMATE",
	}, got)
}

func TestDashboard(t *testing.T) {
	records := append(sampleRecords(),
		rec("Loja_1", "DRUB", "BATATA", model.StatusShortage, -5, "🔴 FALTA 5"),
		rec("Loja_1", "DRUB", "ALHO", model.StatusReconciled, 0, "🔵 AVALIAR PESO"),
	)

	rows := Dashboard(records)
	assert.Equal(t, []DashboardRow{
		{StoreID: "Loja_1", Supplier: "DRUB", Items: 2, Net: -3.5},
		{StoreID: "Loja_1", Supplier: "COAL", Items: 1, Net: -3},
		{StoreID: "Loja_1", Supplier: "⚠️ TAIS - FATURADO SEM PEDIDO", Items: 1, Net: 4},
		{StoreID: "Loja_2", Supplier: "DRUB", Items: 1, Net: -2},
	}, rows)

	assert.Empty(t, Dashboard([]model.Record{rec("Loja_1", "DRUB", "X", model.StatusReconciled, 0, "🟢 OK")}))
}

func TestStatusFill(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"🟢 OK", "C6EFCE"},
		{"🔴 FALTA 2", "FFC7CE"},
		{"🟡 SOBRA 1", "FFEB9C"},
		{"🔵 AVALIAR PESO (PEDIDO EM UN vs XML EM KG)", "B4C6E7"},
		{"⚪ NÃO CONFERIDO", "F2F2F2"},
		{"🟣 SEM PEDIDO (SOBRA 3)", "E4DFEC"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFill(tt.label), tt.label)
	}
}

func fillOf(t *testing.T, f *excelize.File, sheet, cell string) string {
	t.Helper()
	id, err := f.GetCellStyle(sheet, cell)
	require.NoError(t, err)
	st, err := f.GetStyle(id)
	require.NoError(t, err)
	if len(st.Fill.Color) == 0 {
		return ""
	}
	// colors may come back with an alpha prefix
	c := strings.ToUpper(strings.TrimPrefix(st.Fill.Color[0], "#"))
	return c[max(0, len(c)-6):]
}

func TestSaveWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.xlsx")
	require.NoError(t, SaveWorkbook(path, sampleRecords()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	assert.Equal(t, []string{"Loja_1", "Loja_2", DashboardSheet}, f.GetSheetList())

	cell := func(sheet, axis string) string {
		v, err := f.GetCellValue(sheet, axis)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "AUDITORIA - LOJA 1", cell("Loja_1", "A1"))
	assert.Equal(t, "Produto Pedido", cell("Loja_1", "A2"))
	assert.Equal(t, "Status", cell("Loja_1", "E2"))
	assert.Empty(t, cell("Loja_1", "F2"))

	assert.Equal(t, "Fornecedor: COAL", cell("Loja_1", "A3"))
	assert.Equal(t, "MILHO", cell("Loja_1", "A4"))
	assert.Equal(t, "F2F2F2", fillOf(t, f, "Loja_1", "E4"))
	// blank row between suppliers
	assert.Empty(t, cell("Loja_1", "A5"))
	assert.Equal(t, "Fornecedor: DRUB", cell("Loja_1", "A6"))
	assert.Equal(t, "D9E1F2", fillOf(t, f, "Loja_1", "A6"))
	assert.Equal(t, "ABACAXI", cell("Loja_1", "A7"))
	assert.Equal(t, "FFEB9C", fillOf(t, f, "Loja_1", "E7"))
	assert.Equal(t, "C6EFCE", fillOf(t, f, "Loja_1", "E8"))
	assert.Equal(t, "Fornecedor: ⚠️ TAIS - FATURADO SEM PEDIDO", cell("Loja_1", "A10"))
	assert.Equal(t, "E4DFEC", fillOf(t, f, "Loja_1", "A10"))

	assert.Equal(t, "DASHBOARD OPERACIONAL - DIVERGÊNCIAS DE ESTOQUE", cell(DashboardSheet, "A1"))
	assert.Equal(t, "Itens c/ Erro na Doca", cell(DashboardSheet, "C2"))
	assert.Equal(t, "⯈ LOJA 1", cell(DashboardSheet, "A3"))
	assert.Equal(t, "COAL", cell(DashboardSheet, "B4"))
	assert.Equal(t, "FFC7CE", fillOf(t, f, DashboardSheet, "D4"))
	assert.Equal(t, "⯈ LOJA 2", cell(DashboardSheet, "A7"))
}

func TestWorkbook_DockColumns(t *testing.T) {
	r := rec("Loja_1", "DRUB", "TOMATE", model.StatusReconciled, 0, "🟢 OK")
	r.QtyPhysical = ptr(8.0)
	r.DockStatusLabel = "🔴 FALTA 2"
	r.DockStatusCode = ptr(model.StatusShortage)

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, []model.Record{r}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	v, err := f.GetCellValue("Loja_1", "I2")
	require.NoError(t, err)
	assert.Equal(t, "Status Doca", v)
	v, err = f.GetCellValue("Loja_1", "G4")
	require.NoError(t, err)
	assert.Equal(t, "8", v)
	assert.Equal(t, "FFC7CE", fillOf(t, f, "Loja_1", "I4"))
}

func TestWorkbook_Empty(t *testing.T) {
	f, err := Workbook(nil)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	assert.Equal(t, []string{DashboardSheet}, f.GetSheetList())
}

func TestWriteCSV(t *testing.T) {
	r := rec("Loja_1", "DRUB", "TOMATE", model.StatusShortage, -1.25, "🔴 FALTA 1.25")
	r.QtyOrdered, r.QtyInvoiced = 10, 8.75
	r.DockStatusCode = ptr(model.StatusReconciled)
	r.DockDifference = ptr(0.0)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []model.Record{r, rec("Loja_2", "COAL", "MILHO", model.StatusMissingSupplier, -3, "⚪")}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{
		"r1", "Loja_1", "DRUB", "DRUB", "TOMATE", "10", "TOMATE", "8.75", "-1.25", "-1", "🔴 FALTA 1.25", "matched",
		"", "", "", "0", "", "0",
	}, rows[1])
	assert.Equal(t, "98", rows[2][9])
	assert.Equal(t, "", rows[2][15])
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "Loja_1", sheetName("Loja_1"))
	assert.Equal(t, "a_b", sheetName("a/b"))
	assert.Equal(t, "Resumo_Loja", sheetName("Resumo"))
	assert.Len(t, []rune(sheetName("Loja_Com_Um_Nome_Muito_Comprido_Demais")), 31)
}
