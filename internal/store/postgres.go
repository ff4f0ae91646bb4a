package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/recon-cli/internal/db"
	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`

	// Retry governs connecting and the first ping. Zero value uses the
	// resilience defaults.
	Retry resilience.RetryConfig `yaml:"-" mapstructure:"-"`
}

// NewPostgres creates a PostgresStore with a connection pool. Transient
// connection failures are retried.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns, minConns := int32(10), int32(2)
	retry := resilience.DefaultRetryConfig()
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
		if poolCfg.Retry.MaxAttempts > 0 {
			retry = poolCfg.Retry
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = min(minConns, maxConns)
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute
	retry.OnRetry = resilience.RetryLogger("postgres", "connect")

	pool, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*pgxpool.Pool, error) {
		pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: create pool")
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, eris.Wrap(err, "postgres: ping")
		}
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	order_lines   INTEGER NOT NULL DEFAULT 0,
	invoice_lines INTEGER NOT NULL DEFAULT 0,
	count_lines   INTEGER NOT NULL DEFAULT 0,
	records       INTEGER NOT NULL DEFAULT 0,
	divergent     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS records (
	run_id            TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq               INTEGER NOT NULL,
	store_id          TEXT NOT NULL,
	supplier_label    TEXT NOT NULL DEFAULT '',
	supplier          TEXT NOT NULL,
	product_ordered   TEXT NOT NULL DEFAULT '',
	product_invoiced  TEXT NOT NULL DEFAULT '',
	qty_ordered       DOUBLE PRECISION NOT NULL DEFAULT 0,
	qty_invoiced      DOUBLE PRECISION NOT NULL DEFAULT 0,
	qty_difference    DOUBLE PRECISION NOT NULL DEFAULT 0,
	status_label      TEXT NOT NULL,
	status_code       INTEGER NOT NULL,
	kind              TEXT NOT NULL,
	product_counted   TEXT NOT NULL DEFAULT '',
	qty_physical      DOUBLE PRECISION,
	physical_unit     TEXT NOT NULL DEFAULT '',
	dock_status_label TEXT NOT NULL DEFAULT '',
	dock_status_code  INTEGER,
	dock_difference   DOUBLE PRECISION,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_records_store ON records(run_id, store_id, supplier);
CREATE INDEX IF NOT EXISTS idx_records_status ON records(run_id, status_code);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// SaveRun writes the run header and bulk-copies its records inside one
// transaction.
func (s *PostgresStore) SaveRun(ctx context.Context, run model.Run, records []model.Record) error {
	if err := validateRun(run, records); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM runs WHERE id = $1)`, run.ID).Scan(&exists); err != nil {
		return eris.Wrap(err, "postgres: check run")
	}
	if exists {
		return eris.Wrapf(ErrRunExists, "postgres: save run %s", run.ID)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.CreatedAt.UTC(), run.OrderLines, run.InvoiceLines, run.CountLines, run.Records, run.Divergent,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: insert run")
	}

	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = recordValues(i, r)
	}
	if _, err := db.CopyFrom(ctx, tx, "records", recordColumns, rows); err != nil {
		return eris.Wrapf(err, "postgres: copy records for run %s", run.ID)
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit run")
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, runID)
	r, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get run")
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query, args := listRunsQuery(filter, postgresPlaceholder)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) ListRecords(ctx context.Context, filter RecordFilter) ([]model.Record, error) {
	query, args := listRecordsQuery(filter, postgresPlaceholder)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list records")
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list records iterate")
}

// Summary counts the run's records per status code.
func (s *PostgresStore) Summary(ctx context.Context, runID string) ([]model.StatusCount, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, summarySQL("$1"), runID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: summary")
	}
	defer rows.Close()

	var out []model.StatusCount
	for rows.Next() {
		var code, count int
		if err := rows.Scan(&code, &count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan summary")
		}
		out = append(out, model.StatusCount{Code: model.StatusCode(code), Count: count})
	}
	return out, eris.Wrap(rows.Err(), "postgres: summary iterate")
}
