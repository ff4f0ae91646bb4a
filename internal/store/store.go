// Package store persists reconciliation runs and their records.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recon-cli/internal/model"
)

var (
	// ErrNotFound is returned when a run does not exist.
	ErrNotFound = eris.New("store: run not found")
	// ErrRunExists is returned when saving a run id that is already stored.
	ErrRunExists = eris.New("store: run already exists")
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Since  time.Time `json:"since,omitempty"`
	Limit  int       `json:"limit,omitempty"`
	Offset int       `json:"offset,omitempty"`
}

// RecordFilter selects records of one run.
type RecordFilter struct {
	RunID         string `json:"run_id"`
	StoreID       string `json:"store_id,omitempty"`
	Supplier      string `json:"supplier,omitempty"`
	DivergentOnly bool   `json:"divergent_only,omitempty"`
}

// Store persists runs. A run and its records are written together and never
// modified afterwards.
type Store interface {
	SaveRun(ctx context.Context, run model.Run, records []model.Record) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	ListRecords(ctx context.Context, filter RecordFilter) ([]model.Record, error)
	Summary(ctx context.Context, runID string) ([]model.StatusCount, error)

	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

// recordColumns is the insert order shared by both backends.
var recordColumns = []string{
	"run_id", "seq", "store_id", "supplier_label", "supplier",
	"product_ordered", "product_invoiced", "qty_ordered", "qty_invoiced",
	"qty_difference", "status_label", "status_code", "kind",
	"product_counted", "qty_physical", "physical_unit", "dock_status_label",
	"dock_status_code", "dock_difference",
}

// divergentCodes lists the status codes that need attention, as SQL.
const divergentCodes = "(-1, 1, 98, 99)"

func recordValues(seq int, r model.Record) []any {
	var dockCode *int
	if r.DockStatusCode != nil {
		c := int(*r.DockStatusCode)
		dockCode = &c
	}
	return []any{
		r.RunID, seq, r.StoreID, r.SupplierLabel, r.Supplier,
		r.ProductOrdered, r.ProductInvoiced, r.QtyOrdered, r.QtyInvoiced,
		r.QtyDifference, r.StatusLabel, int(r.StatusCode), string(r.Kind),
		r.ProductCounted, r.QtyPhysical, r.PhysicalUnitLabel, r.DockStatusLabel,
		dockCode, r.DockDifference,
	}
}

func validateRun(run model.Run, records []model.Record) error {
	if run.ID == "" {
		return eris.New("store: run id is required")
	}
	for i, r := range records {
		if r.RunID != run.ID {
			return eris.Errorf("store: record %d belongs to run %q, not %q", i, r.RunID, run.ID)
		}
	}
	return nil
}
