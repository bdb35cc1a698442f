package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stockcheckertool/pkg/core/valuation"
)

// ErrRecordNotFound is returned by Get for an unknown id.
var ErrRecordNotFound = errors.New("valuation record not found")

// ValuationRecord is one persisted valuation run.
type ValuationRecord struct {
	ID        uuid.UUID                 `json:"id"`
	Ticker    string                    `json:"ticker"`
	Scenario  string                    `json:"scenario"`
	Result    valuation.ValuationResult `json:"result"`
	CreatedAt time.Time                 `json:"created_at"`
}

// ValuationRepo keeps the history of valuation runs, in Postgres when a
// pool is given and as JSON files otherwise.
type ValuationRepo struct {
	pool    *pgxpool.Pool
	fileDir string
	mu      sync.Mutex
}

// NewValuationRepo creates the repository. dir is only used without a pool.
func NewValuationRepo(pool *pgxpool.Pool, dir string) *ValuationRepo {
	if pool == nil && dir == "" {
		dir = filepath.Join(".cache", "valuations")
	}
	return &ValuationRepo{pool: pool, fileDir: dir}
}

// Save assigns an id and creation time when missing and persists rec.
func (r *ValuationRepo) Save(ctx context.Context, rec *ValuationRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.Ticker = strings.ToUpper(rec.Ticker)

	if r.pool != nil {
		data, err := json.Marshal(rec.Result)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		_, err = r.pool.Exec(ctx, `
			INSERT INTO valuation_runs (id, ticker, scenario, result_json, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			rec.ID, rec.Ticker, rec.Scenario, data, rec.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save valuation: %w", err)
		}
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.MkdirAll(r.fileDir, 0755); err != nil {
		return fmt.Errorf("failed to create valuation dir: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal valuation: %w", err)
	}
	if err := os.WriteFile(filepath.Join(r.fileDir, rec.ID.String()+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to save valuation: %w", err)
	}
	return nil
}

// Get loads one record by id.
func (r *ValuationRepo) Get(ctx context.Context, id uuid.UUID) (*ValuationRecord, error) {
	if r.pool != nil {
		row := r.pool.QueryRow(ctx,
			`SELECT id, ticker, scenario, result_json, created_at FROM valuation_runs WHERE id = $1`, id)
		rec, err := scanRecord(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return rec, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readFile(filepath.Join(r.fileDir, id.String()+".json"))
}

// ListByTicker returns the newest runs for ticker first. limit <= 0 means
// no limit.
func (r *ValuationRepo) ListByTicker(ctx context.Context, ticker string, limit int) ([]ValuationRecord, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	if r.pool != nil {
		query := `SELECT id, ticker, scenario, result_json, created_at FROM valuation_runs
			WHERE ticker = $1 ORDER BY created_at DESC`
		args := []any{ticker}
		if limit > 0 {
			query += ` LIMIT $2`
			args = append(args, limit)
		}
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to list valuations: %w", err)
		}
		defer rows.Close()

		var out []ValuationRecord
		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				return nil, err
			}
			out = append(out, *rec)
		}
		return out, rows.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	paths, err := filepath.Glob(filepath.Join(r.fileDir, "*.json"))
	if err != nil {
		return nil, err
	}
	var out []ValuationRecord
	for _, p := range paths {
		rec, err := r.readFile(p)
		if err != nil {
			return nil, err
		}
		if rec.Ticker == ticker {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ValuationRepo) readFile(path string) (*ValuationRecord, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read valuation: %w", err)
	}
	var rec ValuationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal valuation %s: %w", filepath.Base(path), err)
	}
	return &rec, nil
}

func scanRecord(row pgx.Row) (*ValuationRecord, error) {
	var rec ValuationRecord
	var data []byte
	if err := row.Scan(&rec.ID, &rec.Ticker, &rec.Scenario, &data, &rec.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &rec.Result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &rec, nil
}
