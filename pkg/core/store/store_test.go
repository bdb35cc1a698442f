package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockcheckertool/pkg/core/market"
	"stockcheckertool/pkg/core/valuation"
)

func sampleFundamentals(ticker string) market.Fundamentals {
	return market.Fundamentals{
		Snapshot: valuation.FinancialSnapshot{
			Ticker:            ticker,
			Revenue:           1000,
			OperatingIncome:   200,
			TaxRate:           0.21,
			SharesOutstanding: 50,
		},
		Market:  valuation.MarketData{SharePrice: 20, Beta: 1.1},
		HasBeta: true,
	}
}

func TestSnapshotCache_FileRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewSnapshotCache(nil, t.TempDir())
	day := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

	_, err := c.Get(ctx, "EXM", day)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.False(t, c.Exists(ctx, "EXM", day))

	require.NoError(t, c.Save(ctx, sampleFundamentals("EXM"), day))

	got, err := c.Get(ctx, "exm", day.Add(2*time.Hour))
	require.NoError(t, err, "same calendar day and case-insensitive ticker")
	assert.Equal(t, 200.0, got.Snapshot.OperatingIncome)
	assert.True(t, got.HasBeta)

	_, err = c.Get(ctx, "EXM", day.AddDate(0, 0, 1))
	assert.ErrorIs(t, err, ErrCacheMiss, "next day is a different key")
}

func TestSnapshotCache_RejectsEmptyTicker(t *testing.T) {
	c := NewSnapshotCache(nil, t.TempDir())
	assert.Error(t, c.Save(context.Background(), sampleFundamentals(""), time.Now()))
}

func TestSnapshotCache_PathIsSanitized(t *testing.T) {
	c := NewSnapshotCache(nil, "dir")
	assert.Equal(t, "dir/__X_Y_2024-01-01.json", filepath.ToSlash(c.path("../X/Y", "2024-01-01")))
}

func TestValuationRepo_FileSaveGetList(t *testing.T) {
	ctx := context.Background()
	r := NewValuationRepo(nil, t.TempDir())

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := &ValuationRecord{
			Ticker:    "exm",
			Scenario:  "base",
			Result:    valuation.ValuationResult{ValuePerShare: float64(10 + i)},
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, r.Save(ctx, rec))
		assert.NotEqual(t, uuid.Nil, rec.ID)
		assert.Equal(t, "EXM", rec.Ticker)
	}
	other := &ValuationRecord{Ticker: "OTH", Scenario: "growth"}
	require.NoError(t, r.Save(ctx, other))
	assert.False(t, other.CreatedAt.IsZero())

	got, err := r.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "growth", got.Scenario)

	list, err := r.ListByTicker(ctx, "exm", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 12.0, list[0].Result.ValuePerShare, "newest first")
	assert.Equal(t, 11.0, list[1].Result.ValuePerShare)

	all, err := r.ListByTicker(ctx, "EXM", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestValuationRepo_GetUnknown(t *testing.T) {
	r := NewValuationRepo(nil, t.TempDir())
	_, err := r.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestInitDB_RequiresURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	assert.Error(t, InitDB(context.Background(), ""))
	assert.Nil(t, GetPool())
}
