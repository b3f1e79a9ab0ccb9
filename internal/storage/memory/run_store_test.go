package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/domain"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/storage"
)

func TestRunStore_InsertAndGet(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	run := &domain.RunRecord{
		RunID:       "run1",
		StrategyID:  "momentum",
		TotalReturn: 0.12,
		StartMs:     1000,
		EndMs:       9000,
	}

	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.TotalReturn != 0.12 {
		t.Errorf("TotalReturn mismatch: got %f, want %f", got.TotalReturn, 0.12)
	}
}

func TestRunStore_DuplicateKey(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	run := &domain.RunRecord{RunID: "run1", StrategyID: "momentum"}
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, run)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestRunStore_NotFound(t *testing.T) {
	store := NewRunStore()

	_, err := store.GetByID(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRunStore_InvalidInput(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(ctx, &domain.RunRecord{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty run_id, got %v", err)
	}
}

func TestRunStore_GetByStrategyOrdering(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	runs := []*domain.RunRecord{
		{RunID: "run-c", StrategyID: "momentum", StartMs: 3000},
		{RunID: "run-a", StrategyID: "momentum", StartMs: 1000},
		{RunID: "run-b", StrategyID: "momentum", StartMs: 2000},
		{RunID: "run-x", StrategyID: "other", StartMs: 500},
	}
	for _, r := range runs {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert %s failed: %v", r.RunID, err)
		}
	}

	got, err := store.GetByStrategy(ctx, "momentum")
	if err != nil {
		t.Fatalf("GetByStrategy failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 runs, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].StartMs < got[i-1].StartMs {
			t.Errorf("Runs not ordered by start_ms: %d before %d", got[i-1].StartMs, got[i].StartMs)
		}
	}
}

func TestRunStore_GetBySweep(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	for _, r := range []*domain.RunRecord{
		{RunID: "run-b", SweepID: "sweep1"},
		{RunID: "run-a", SweepID: "sweep1"},
		{RunID: "run-c", SweepID: "sweep2"},
	} {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetBySweep(ctx, "sweep1")
	if err != nil {
		t.Fatalf("GetBySweep failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(got))
	}
	if got[0].RunID != "run-a" || got[1].RunID != "run-b" {
		t.Errorf("Expected run_id ordering, got %s then %s", got[0].RunID, got[1].RunID)
	}
}

func TestRunStore_CopyIsolation(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	run := &domain.RunRecord{RunID: "run1", TotalReturn: 0.1}
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	run.TotalReturn = 0.99 // mutating the caller's copy must not leak in
	got, err := store.GetByID(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.TotalReturn != 0.1 {
		t.Errorf("Store leaked caller mutation: got %f", got.TotalReturn)
	}
}
