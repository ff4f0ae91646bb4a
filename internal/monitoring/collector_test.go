package monitoring

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/store"
)

func ptr[T any](v T) *T { return &v }

func sampleRecords() []model.Record {
	return []model.Record{
		{StoreID: "Loja_1", SupplierLabel: "Adilson Drub", StatusCode: model.StatusReconciled,
			DockStatusCode: ptr(model.StatusShortage), DockDifference: ptr(-2.0)},
		{StoreID: "Loja_1", SupplierLabel: "Adilson Drub", StatusCode: model.StatusShortage, QtyDifference: -1.5},
		{StoreID: "Loja_1", SupplierLabel: "COAL", StatusCode: model.StatusMissingSupplier, QtyDifference: -3},
		{StoreID: "Loja_1", SupplierLabel: "COAL", StatusCode: model.StatusMissingSupplier, QtyDifference: -2},
		{StoreID: "Loja_2", SupplierLabel: "TAIS", StatusCode: model.StatusOverage, QtyDifference: 4},
		{StoreID: "Loja_2", SupplierLabel: "TAIS", StatusCode: model.StatusMissingProduct, QtyDifference: -1},
		{StoreID: "Loja_2", SupplierLabel: "TAIS", StatusCode: model.StatusReconciled},
	}
}

func TestSummarize(t *testing.T) {
	snap := Summarize("run-1", sampleRecords())

	assert.Equal(t, "run-1", snap.RunID)
	assert.Equal(t, 7, snap.Records)
	assert.Equal(t, 6, snap.Divergent)
	assert.InDelta(t, 6.0/7.0, snap.DivergenceRate, 0.0001)
	assert.Equal(t, 1, snap.Shortages)
	assert.Equal(t, 1, snap.Overages)
	assert.Equal(t, 1, snap.MissingProducts)
	assert.Equal(t, []string{"Loja_1/COAL"}, snap.MissingSuppliers)
	assert.InDelta(t, 7.5, snap.ShortageQty, 0.0001)
	assert.Equal(t, 1, snap.DockDivergent)
	assert.False(t, snap.CollectedAt.IsZero())
}

func TestSummarize_Empty(t *testing.T) {
	snap := Summarize("run-1", nil)
	assert.Zero(t, snap.Records)
	assert.Zero(t, snap.DivergenceRate)
	assert.Empty(t, snap.MissingSuppliers)
}

func TestCollector_Collect(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "recon.db"))
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Migrate(ctx))

	records := sampleRecords()
	for i := range records {
		records[i].RunID = "run-1"
		records[i].Kind = model.KindMatched
	}
	run := model.NewRun("run-1", time.Now().UTC(), 7, 6, 1, records)
	require.NoError(t, st.SaveRun(ctx, run, records))

	snap, err := NewCollector(st).Collect(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 7, snap.Records)
	assert.Equal(t, run.Divergent, snap.Divergent)
	assert.Equal(t, []string{"Loja_1/COAL"}, snap.MissingSuppliers)
}

func TestCollector_Collect_UnknownRun(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "recon.db"))
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Migrate(ctx))

	_, err = NewCollector(st).Collect(ctx, "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
