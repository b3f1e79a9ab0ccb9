package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/domain"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/storage"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/storage/postgres"
)

func sampleRun(runID string) *domain.RunRecord {
	return &domain.RunRecord{
		RunID:            runID,
		StrategyID:       "momentum",
		SweepID:          "sweep1",
		InitialCapital:   10000,
		FinalEquity:      11250.5,
		TotalReturn:      0.12505,
		CAGR:             0.31,
		MaxDrawdown:      0.08,
		TotalTrades:      14,
		WinRate:          0.5714,
		BuyAndHoldReturn: 0.04,
		StartMs:          1_700_000_000_000,
		EndMs:            1_700_086_400_000,
		CreatedAtMs:      1_700_090_000_000,
	}
}

func TestRunStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewRunStore(pool)
	ctx := context.Background()

	run := sampleRun("run1")
	require.NoError(t, store.Insert(ctx, run))

	got, err := store.GetByID(ctx, "run1")
	require.NoError(t, err)
	assert.Equal(t, run.StrategyID, got.StrategyID)
	assert.Equal(t, run.FinalEquity, got.FinalEquity)
	assert.Equal(t, run.TotalTrades, got.TotalTrades)
	assert.Equal(t, run.StartMs, got.StartMs)
}

func TestRunStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewRunStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, sampleRun("run1")))

	err := store.Insert(ctx, sampleRun("run1"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestRunStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewRunStore(pool)

	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunStore_GetByStrategyAndSweep(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewRunStore(pool)
	ctx := context.Background()

	b := sampleRun("run-b")
	b.StartMs = 2000
	a := sampleRun("run-a")
	a.StartMs = 1000
	other := sampleRun("run-x")
	other.StrategyID = "other"
	other.SweepID = "sweep2"

	for _, r := range []*domain.RunRecord{b, a, other} {
		require.NoError(t, store.Insert(ctx, r))
	}

	byStrategy, err := store.GetByStrategy(ctx, "momentum")
	require.NoError(t, err)
	require.Len(t, byStrategy, 2)
	assert.Equal(t, "run-a", byStrategy[0].RunID, "runs must be ordered by start_ms")

	bySweep, err := store.GetBySweep(ctx, "sweep1")
	require.NoError(t, err)
	require.Len(t, bySweep, 2)
	assert.Equal(t, "run-a", bySweep[0].RunID, "runs must be ordered by run_id")
}
