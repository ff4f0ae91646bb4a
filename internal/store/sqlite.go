package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/recon-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	created_at    DATETIME NOT NULL,
	order_lines   INTEGER NOT NULL DEFAULT 0,
	invoice_lines INTEGER NOT NULL DEFAULT 0,
	count_lines   INTEGER NOT NULL DEFAULT 0,
	records       INTEGER NOT NULL DEFAULT 0,
	divergent     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS records (
	run_id            TEXT NOT NULL REFERENCES runs(id),
	seq               INTEGER NOT NULL,
	store_id          TEXT NOT NULL,
	supplier_label    TEXT NOT NULL DEFAULT '',
	supplier          TEXT NOT NULL,
	product_ordered   TEXT NOT NULL DEFAULT '',
	product_invoiced  TEXT NOT NULL DEFAULT '',
	qty_ordered       REAL NOT NULL DEFAULT 0,
	qty_invoiced      REAL NOT NULL DEFAULT 0,
	qty_difference    REAL NOT NULL DEFAULT 0,
	status_label      TEXT NOT NULL,
	status_code       INTEGER NOT NULL,
	kind              TEXT NOT NULL,
	product_counted   TEXT NOT NULL DEFAULT '',
	qty_physical      REAL,
	physical_unit     TEXT NOT NULL DEFAULT '',
	dock_status_label TEXT NOT NULL DEFAULT '',
	dock_status_code  INTEGER,
	dock_difference   REAL,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_records_store ON records(run_id, store_id, supplier);
CREATE INDEX IF NOT EXISTS idx_records_status ON records(run_id, status_code);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun writes the run header and its records in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run model.Run, records []model.Record) error {
	if err := validateRun(run, records); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, run.ID).Scan(&exists)
	if err != nil {
		return eris.Wrap(err, "sqlite: check run")
	}
	if exists > 0 {
		return eris.Wrapf(ErrRunExists, "sqlite: save run %s", run.ID)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC(), run.OrderLines, run.InvoiceLines, run.CountLines, run.Records, run.Divergent,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert run")
	}

	stmt, err := tx.PrepareContext(ctx, insertRecordSQL())
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare record insert")
	}
	defer stmt.Close() //nolint:errcheck

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, recordValues(i, r)...); err != nil {
			return eris.Wrapf(err, "sqlite: insert record %d", i)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit run")
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get run")
	}
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query, args := listRunsQuery(filter, sqlitePlaceholder)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) ListRecords(ctx context.Context, filter RecordFilter) ([]model.Record, error) {
	query, args := listRecordsQuery(filter, sqlitePlaceholder)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list records")
	}
	defer rows.Close() //nolint:errcheck

	var records []model.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list records iterate")
}

// Summary counts the run's records per status code.
func (s *SQLiteStore) Summary(ctx context.Context, runID string) ([]model.StatusCount, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, summarySQL("?"), runID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: summary")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.StatusCount
	for rows.Next() {
		var sc model.StatusCount
		var code int
		if err := rows.Scan(&code, &sc.Count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan summary")
		}
		sc.Code = model.StatusCode(code)
		out = append(out, sc)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: summary iterate")
}

func insertRecordSQL() string {
	marks := make([]string, len(recordColumns))
	for i := range marks {
		marks[i] = "?"
	}
	return `INSERT INTO records (` + strings.Join(recordColumns, ", ") + `) VALUES (` + strings.Join(marks, ", ") + `)`
}

func summarySQL(ph string) string {
	return `SELECT status_code, COUNT(*) FROM records WHERE run_id = ` + ph + ` GROUP BY status_code ORDER BY status_code`
}
