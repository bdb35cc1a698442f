package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stockcheckertool/pkg/core/market"
)

const dateLayout = "2006-01-02"

// SnapshotCache stores fetched fundamentals keyed by (ticker, as-of date).
// The database is used when a pool is given; otherwise JSON files under
// the cache directory.
type SnapshotCache struct {
	pool    *pgxpool.Pool
	fileDir string
}

// NewSnapshotCache creates the cache. If pool is nil and dir is empty it
// defaults to .cache/market.
func NewSnapshotCache(pool *pgxpool.Pool, dir string) *SnapshotCache {
	if pool == nil && dir == "" {
		dir = filepath.Join(".cache", "market")
	}
	return &SnapshotCache{pool: pool, fileDir: dir}
}

// SnapshotEntry is the file representation of a cached snapshot.
type SnapshotEntry struct {
	Ticker    string              `json:"ticker"`
	AsOfDate  string              `json:"as_of_date"`
	Data      market.Fundamentals `json:"data"`
	FetchedAt time.Time           `json:"fetched_at"`
}

func cacheKey(ticker string, asOf time.Time) (string, string) {
	return strings.ToUpper(strings.TrimSpace(ticker)), asOf.UTC().Format(dateLayout)
}

// Get returns the snapshot for ticker on asOf's calendar day (UTC), or
// ErrCacheMiss.
func (c *SnapshotCache) Get(ctx context.Context, ticker string, asOf time.Time) (market.Fundamentals, error) {
	t, day := cacheKey(ticker, asOf)

	if c.pool != nil {
		var data []byte
		err := c.pool.QueryRow(ctx,
			`SELECT data FROM market_snapshots WHERE ticker = $1 AND as_of_date = $2`,
			t, day,
		).Scan(&data)
		if errors.Is(err, pgx.ErrNoRows) {
			return market.Fundamentals{}, ErrCacheMiss
		}
		if err != nil {
			return market.Fundamentals{}, fmt.Errorf("failed to load snapshot: %w", err)
		}
		var f market.Fundamentals
		if err := json.Unmarshal(data, &f); err != nil {
			return market.Fundamentals{}, fmt.Errorf("failed to unmarshal db cached snapshot: %w", err)
		}
		return f, nil
	}

	data, err := os.ReadFile(c.path(t, day))
	if errors.Is(err, os.ErrNotExist) {
		return market.Fundamentals{}, ErrCacheMiss
	}
	if err != nil {
		return market.Fundamentals{}, fmt.Errorf("failed to read cached snapshot: %w", err)
	}
	var entry SnapshotEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return market.Fundamentals{}, fmt.Errorf("failed to unmarshal cached snapshot: %w", err)
	}
	return entry.Data, nil
}

// Save stores f under its ticker and asOf's calendar day, replacing any
// earlier entry for that day.
func (c *SnapshotCache) Save(ctx context.Context, f market.Fundamentals, asOf time.Time) error {
	t, day := cacheKey(f.Snapshot.Ticker, asOf)
	if t == "" {
		return fmt.Errorf("snapshot has no ticker")
	}

	if c.pool != nil {
		data, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot: %w", err)
		}
		_, err = c.pool.Exec(ctx, `
			INSERT INTO market_snapshots (ticker, as_of_date, data, fetched_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (ticker, as_of_date)
			DO UPDATE SET data = EXCLUDED.data, fetched_at = EXCLUDED.fetched_at`,
			t, day, data,
		)
		if err != nil {
			return fmt.Errorf("failed to save to db cache: %w", err)
		}
		return nil
	}

	if err := os.MkdirAll(c.fileDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}
	entry := SnapshotEntry{Ticker: t, AsOfDate: day, Data: f, FetchedAt: time.Now().UTC()}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(c.path(t, day), data, 0644); err != nil {
		return fmt.Errorf("failed to save to file cache: %w", err)
	}
	return nil
}

// Exists reports whether a snapshot is cached for the key.
func (c *SnapshotCache) Exists(ctx context.Context, ticker string, asOf time.Time) bool {
	_, err := c.Get(ctx, ticker, asOf)
	return err == nil
}

func (c *SnapshotCache) path(ticker, day string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(ticker)
	return filepath.Join(c.fileDir, safe+"_"+day+".json")
}
