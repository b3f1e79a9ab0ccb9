package storage

import (
	"context"

	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/domain"
)

// RunStore provides access to backtest_runs storage.
type RunStore interface {
	// Insert adds a new run summary. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.RunRecord) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.RunRecord, error)

	// GetByStrategy retrieves all runs for a strategy, ordered by start_ms ASC.
	GetByStrategy(ctx context.Context, strategyID string) ([]*domain.RunRecord, error)

	// GetBySweep retrieves all runs grouped under a sweep id, ordered by run_id ASC.
	GetBySweep(ctx context.Context, sweepID string) ([]*domain.RunRecord, error)

	// GetAll retrieves all runs, ordered by start_ms ASC, run_id ASC.
	GetAll(ctx context.Context) ([]*domain.RunRecord, error)
}

// TradeStore provides access to closed_trades storage.
type TradeStore interface {
	// Insert adds a new closed trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.ClosedTrade) error

	// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, trades []*domain.ClosedTrade) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.ClosedTrade, error)

	// GetByRunID retrieves all trades of a run, ordered by exit_ms ASC, position_id ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.ClosedTrade, error)

	// GetByRunToken retrieves a run's trades for one token, same ordering.
	GetByRunToken(ctx context.Context, runID, token string) ([]*domain.ClosedTrade, error)
}

// EquityCurveStore provides access to equity_points storage.
type EquityCurveStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate (run_id, bar_index).
	InsertBulk(ctx context.Context, points []*domain.EquityPoint) error

	// GetByRunID retrieves the full curve of a run, ordered by bar_index ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.EquityPoint, error)

	// GetByTimeRange retrieves a run's points within [start, end] ms (inclusive).
	GetByTimeRange(ctx context.Context, runID string, start, end int64) ([]*domain.EquityPoint, error)
}
