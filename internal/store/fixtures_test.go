package store

import (
	"time"

	"github.com/sells-group/recon-cli/internal/model"
)

func ptr[T any](v T) *T { return &v }

func sampleRun(id string, at time.Time) (model.Run, []model.Record) {
	records := []model.Record{
		{
			RunID: id, StoreID: "Loja_1", SupplierLabel: "Adilson Drub", Supplier: "DRUB",
			ProductOrdered: "TOMATE", ProductInvoiced: "TOMATE", QtyOrdered: 10, QtyInvoiced: 10,
			StatusLabel: "🟢 OK", StatusCode: model.StatusReconciled, Kind: model.KindMatched,
			ProductCounted: "TOMATE", QtyPhysical: ptr(8.0), PhysicalUnitLabel: "CX",
			DockStatusLabel: "🔴 FALTA 2", DockStatusCode: ptr(model.StatusShortage), DockDifference: ptr(-2.0),
		},
		{
			RunID: id, StoreID: "Loja_1", SupplierLabel: "COAL", Supplier: "COAL",
			ProductOrdered: "MILHO", ProductInvoiced: "❌ NOTA NÃO ENCONTRADA", QtyOrdered: 3, QtyDifference: -3,
			StatusLabel: "⚪ SEM NOTA P/ FORNECEDOR", StatusCode: model.StatusMissingSupplier, Kind: model.KindNoInvoice,
		},
		{
			RunID: id, StoreID: "Loja_2", SupplierLabel: "DRUB", Supplier: "DRUB",
			ProductOrdered: "CENOURA", ProductInvoiced: "CENOURA", QtyOrdered: 4, QtyInvoiced: 4,
			StatusLabel: "🟢 OK", StatusCode: model.StatusReconciled, Kind: model.KindMatched,
		},
	}
	return model.NewRun(id, at, 3, 2, 1, records), records
}
