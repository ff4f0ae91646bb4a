// Package monitoring summarizes finished runs and raises alerts when a run
// diverges more than the configured thresholds allow.
package monitoring

import (
	"context"
	"slices"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/store"
)

// Snapshot is the health view of one reconciliation run.
type Snapshot struct {
	RunID string `json:"run_id"`

	Records        int     `json:"records"`
	Divergent      int     `json:"divergent"`
	DivergenceRate float64 `json:"divergence_rate"`

	Shortages       int `json:"shortages"`
	Overages        int `json:"overages"`
	MissingProducts int `json:"missing_products"`

	// Suppliers that sent no invoice at all, per store, as "store/label".
	MissingSuppliers []string `json:"missing_suppliers,omitempty"`

	// Sum of negative main-stage differences, as a positive quantity.
	ShortageQty float64 `json:"shortage_qty"`

	DockDivergent int `json:"dock_divergent"`

	CollectedAt time.Time `json:"collected_at"`
}

// Summarize builds a snapshot from the records of one run.
func Summarize(runID string, records []model.Record) *Snapshot {
	snap := &Snapshot{
		RunID:       runID,
		Records:     len(records),
		CollectedAt: time.Now().UTC(),
	}

	for _, r := range records {
		if r.Divergent() {
			snap.Divergent++
		}
		if r.DockStatusCode != nil && r.DockStatusCode.Divergent() {
			snap.DockDivergent++
		}
		switch r.StatusCode {
		case model.StatusShortage:
			snap.Shortages++
		case model.StatusOverage:
			snap.Overages++
		case model.StatusMissingProduct:
			snap.MissingProducts++
		case model.StatusMissingSupplier:
			key := r.StoreID + "/" + r.SupplierLabel
			if !slices.Contains(snap.MissingSuppliers, key) {
				snap.MissingSuppliers = append(snap.MissingSuppliers, key)
			}
		}
		if r.QtyDifference < 0 {
			snap.ShortageQty -= r.QtyDifference
		}
	}

	if snap.Records > 0 {
		snap.DivergenceRate = float64(snap.Divergent) / float64(snap.Records)
	}
	return snap
}

// Collector loads run records from the store.
type Collector struct {
	store store.Store
}

// NewCollector creates a new run collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect summarizes a persisted run.
func (c *Collector) Collect(ctx context.Context, runID string) (*Snapshot, error) {
	if _, err := c.store.GetRun(ctx, runID); err != nil {
		return nil, eris.Wrap(err, "monitoring: get run")
	}
	records, err := c.store.ListRecords(ctx, store.RecordFilter{RunID: runID})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list records")
	}
	return Summarize(runID, records), nil
}
