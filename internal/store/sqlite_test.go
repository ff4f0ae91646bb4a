package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recon-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_SaveAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	at := time.Date(2024, 5, 3, 9, 30, 15, 0, time.UTC)

	run, records := sampleRun("20240503093015", at)
	require.NoError(t, st.SaveRun(ctx, run, records))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.True(t, at.Equal(got.CreatedAt))
	assert.Equal(t, 3, got.OrderLines)
	assert.Equal(t, 2, got.InvoiceLines)
	assert.Equal(t, 1, got.CountLines)
	assert.Equal(t, 3, got.Records)
	assert.Equal(t, 2, got.Divergent)
}

func TestSQLite_SaveRunTwice(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	run, records := sampleRun("r1", time.Now())

	require.NoError(t, st.SaveRun(ctx, run, records))
	err := st.SaveRun(ctx, run, records)
	assert.True(t, errors.Is(err, ErrRunExists))

	got, err := st.ListRecords(ctx, RecordFilter{RunID: "r1"})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestSQLite_SaveRunRejectsForeignRecords(t *testing.T) {
	st := newTestSQLiteStore(t)
	run, records := sampleRun("r1", time.Now())
	records[1].RunID = "other"

	err := st.SaveRun(context.Background(), run, records)
	require.Error(t, err)

	_, err = st.GetRun(context.Background(), "r1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_GetRunNotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	_, err := st.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_ListRecords(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	run, records := sampleRun("r1", time.Now())
	require.NoError(t, st.SaveRun(ctx, run, records))

	all, err := st.ListRecords(ctx, RecordFilter{RunID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, records, all)

	tests := []struct {
		name   string
		filter RecordFilter
		want   []string
	}{
		{"store", RecordFilter{RunID: "r1", StoreID: "Loja_2"}, []string{"CENOURA"}},
		{"supplier", RecordFilter{RunID: "r1", Supplier: "DRUB"}, []string{"TOMATE", "CENOURA"}},
		{"divergent", RecordFilter{RunID: "r1", DivergentOnly: true}, []string{"TOMATE", "MILHO"}},
		{"combined", RecordFilter{RunID: "r1", StoreID: "Loja_1", Supplier: "DRUB", DivergentOnly: true}, []string{"TOMATE"}},
		{"other run", RecordFilter{RunID: "r2"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := st.ListRecords(ctx, tt.filter)
			require.NoError(t, err)
			var products []string
			for _, r := range got {
				products = append(products, r.ProductOrdered)
			}
			assert.Equal(t, tt.want, products)
		})
	}
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		run, records := sampleRun(id, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, st.SaveRun(ctx, run, records))
	}

	runs, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "a", runs[2].ID)

	runs, err = st.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "b", runs[0].ID)

	runs, err = st.ListRuns(ctx, RunFilter{Since: base.Add(90 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "c", runs[0].ID)
}

func TestSQLite_Summary(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	run, records := sampleRun("r1", time.Now())
	require.NoError(t, st.SaveRun(ctx, run, records))

	got, err := st.Summary(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []model.StatusCount{
		{Code: model.StatusReconciled, Count: 2},
		{Code: model.StatusMissingSupplier, Count: 1},
	}, got)

	_, err = st.Summary(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_EmptyRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	run := model.NewRun("empty", time.Now(), 0, 0, 0, nil)
	require.NoError(t, st.SaveRun(ctx, run, nil))

	got, err := st.ListRecords(ctx, RecordFilter{RunID: "empty"})
	require.NoError(t, err)
	assert.Empty(t, got)
}
