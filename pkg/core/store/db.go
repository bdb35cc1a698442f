package store

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	pool *pgxpool.Pool
	once sync.Once
)

// Schema creates the tables used by SnapshotCache and ValuationRepo.
const Schema = `
CREATE TABLE IF NOT EXISTS market_snapshots (
	ticker       TEXT        NOT NULL,
	as_of_date   DATE        NOT NULL,
	data         JSONB       NOT NULL,
	fetched_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (ticker, as_of_date)
);

CREATE TABLE IF NOT EXISTS valuation_runs (
	id           UUID        PRIMARY KEY,
	ticker       TEXT        NOT NULL,
	scenario     TEXT        NOT NULL,
	result_json  JSONB       NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS valuation_runs_ticker_idx ON valuation_runs (ticker, created_at DESC);
`

// InitDB opens the pool once. An empty url falls back to DATABASE_URL.
func InitDB(ctx context.Context, url string) error {
	var err error
	once.Do(func() {
		if url == "" {
			url = os.Getenv("DATABASE_URL")
		}
		if url == "" {
			err = fmt.Errorf("DATABASE_URL environment variable not set")
			return
		}

		config, parseErr := pgxpool.ParseConfig(url)
		if parseErr != nil {
			err = fmt.Errorf("failed to parse database config: %w", parseErr)
			return
		}

		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err != nil {
			return
		}
		if _, execErr := pool.Exec(ctx, Schema); execErr != nil {
			err = fmt.Errorf("failed to apply schema: %w", execErr)
			pool.Close()
			pool = nil
		}
	})
	return err
}

// GetPool returns the database connection pool, or nil before InitDB
// succeeds.
func GetPool() *pgxpool.Pool {
	return pool
}

// Close closes the database connection pool
func Close() {
	if pool != nil {
		pool.Close()
	}
}
