package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recon-cli/internal/config"
	"github.com/sells-group/recon-cli/internal/resilience"
	"github.com/sells-group/recon-cli/internal/store"
)

// validatedStore validates the configuration for mode and opens the store.
func validatedStore(ctx context.Context, mode string) (store.Store, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	return initStore(ctx)
}

// initStore opens the configured run store and applies its migrations.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := openStore(ctx, cfg.Store, cfg.Retry)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func openStore(ctx context.Context, sc config.StoreConfig, rc config.RetryConfig) (store.Store, error) {
	switch sc.Driver {
	case "sqlite":
		dsn := sc.DatabaseURL
		if dsn == "" {
			dsn = "recon.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, sc.DatabaseURL, &store.PoolConfig{
			MaxConns: sc.MaxConns,
			MinConns: sc.MinConns,
			Retry:    resilience.FromSettings(rc.MaxAttempts, rc.InitialBackoffMs),
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}
}
