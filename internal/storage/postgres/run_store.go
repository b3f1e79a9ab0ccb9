package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/domain"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

const runColumns = `
	run_id, strategy_id, sweep_id,
	initial_capital, final_equity, total_return, cagr, max_drawdown,
	total_trades, win_rate, buy_and_hold_return,
	circuit_breaker_fired, start_ms, end_ms, created_at_ms
`

// Insert adds a new run summary. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.RunRecord) (err error) {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}
	defer timeQuery("insert_run", &err)()

	query := `
		INSERT INTO backtest_runs (` + runColumns + `) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7, $8,
			$9, $10, $11,
			$12, $13, $14, $15
		)
	`

	_, err = s.pool.Exec(ctx, query,
		r.RunID, r.StrategyID, r.SweepID,
		r.InitialCapital, r.FinalEquity, r.TotalReturn, r.CAGR, r.MaxDrawdown,
		r.TotalTrades, r.WinRate, r.BuyAndHoldReturn,
		r.CircuitBreakerFired, r.StartMs, r.EndMs, r.CreatedAtMs,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert run record: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (rec *domain.RunRecord, err error) {
	defer timeQuery("get_run_by_id", &err)()

	query := `SELECT ` + runColumns + ` FROM backtest_runs WHERE run_id = $1`

	row := s.pool.QueryRow(ctx, query, runID)
	r, err := scanRunRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run record by id: %w", err)
	}
	return r, nil
}

// GetByStrategy retrieves all runs for a strategy, ordered by start_ms ASC.
func (s *RunStore) GetByStrategy(ctx context.Context, strategyID string) (records []*domain.RunRecord, err error) {
	defer timeQuery("get_runs_by_strategy", &err)()

	query := `
		SELECT ` + runColumns + `
		FROM backtest_runs
		WHERE strategy_id = $1
		ORDER BY start_ms ASC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query, strategyID)
	if err != nil {
		return nil, fmt.Errorf("get run records by strategy: %w", err)
	}
	defer rows.Close()

	return scanRunRecords(rows)
}

// GetBySweep retrieves all runs grouped under a sweep id, ordered by run_id ASC.
func (s *RunStore) GetBySweep(ctx context.Context, sweepID string) (records []*domain.RunRecord, err error) {
	defer timeQuery("get_runs_by_sweep", &err)()

	query := `
		SELECT ` + runColumns + `
		FROM backtest_runs
		WHERE sweep_id = $1
		ORDER BY run_id ASC
	`

	rows, err := s.pool.Query(ctx, query, sweepID)
	if err != nil {
		return nil, fmt.Errorf("get run records by sweep: %w", err)
	}
	defer rows.Close()

	return scanRunRecords(rows)
}

// GetAll retrieves all runs, ordered by start_ms ASC, run_id ASC.
func (s *RunStore) GetAll(ctx context.Context) (records []*domain.RunRecord, err error) {
	defer timeQuery("get_all_runs", &err)()

	query := `
		SELECT ` + runColumns + `
		FROM backtest_runs
		ORDER BY start_ms ASC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all run records: %w", err)
	}
	defer rows.Close()

	return scanRunRecords(rows)
}

// scanRunRecord scans a single row into a RunRecord.
func scanRunRecord(row pgx.Row) (*domain.RunRecord, error) {
	var r domain.RunRecord

	err := row.Scan(
		&r.RunID, &r.StrategyID, &r.SweepID,
		&r.InitialCapital, &r.FinalEquity, &r.TotalReturn, &r.CAGR, &r.MaxDrawdown,
		&r.TotalTrades, &r.WinRate, &r.BuyAndHoldReturn,
		&r.CircuitBreakerFired, &r.StartMs, &r.EndMs, &r.CreatedAtMs,
	)
	if err != nil {
		return nil, err
	}

	return &r, nil
}

// scanRunRecords scans multiple rows into a slice of RunRecord.
func scanRunRecords(rows pgx.Rows) ([]*domain.RunRecord, error) {
	var records []*domain.RunRecord

	for rows.Next() {
		r, err := scanRunRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run record row: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run record rows: %w", err)
	}

	return records, nil
}
