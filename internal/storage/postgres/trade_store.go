package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/domain"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	trade_id, run_id, position_id, token, symbol, direction,
	entry_price, entry_ms, exit_price, exit_ms,
	size, entry_notional, exit_value, fees_paid,
	pnl, pnl_pct, exit_reason, duration_bars
`

const insertTradeQuery = `
	INSERT INTO closed_trades (` + tradeColumns + `) VALUES (
		$1, $2, $3, $4, $5, $6,
		$7, $8, $9, $10,
		$11, $12, $13, $14,
		$15, $16, $17, $18
	)
`

// Insert adds a new closed trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.ClosedTrade) (err error) {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}
	defer timeQuery("insert_trade", &err)()

	_, err = s.pool.Exec(ctx, insertTradeQuery, tradeArgs(t)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert closed trade: %w", err)
	}
	return nil
}

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.ClosedTrade) (err error) {
	if len(trades) == 0 {
		return nil
	}
	defer timeQuery("insert_trades_bulk", &err)()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range trades {
		if t == nil || t.TradeID == "" {
			return storage.ErrInvalidInput
		}
		if _, err := tx.Exec(ctx, insertTradeQuery, tradeArgs(t)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert closed trade in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, tradeID string) (trade *domain.ClosedTrade, err error) {
	defer timeQuery("get_trade_by_id", &err)()

	query := `SELECT ` + tradeColumns + ` FROM closed_trades WHERE trade_id = $1`

	row := s.pool.QueryRow(ctx, query, tradeID)
	t, err := scanClosedTrade(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get closed trade by id: %w", err)
	}
	return t, nil
}

// GetByRunID retrieves all trades of a run, ordered by exit_ms ASC, position_id ASC.
func (s *TradeStore) GetByRunID(ctx context.Context, runID string) (trades []*domain.ClosedTrade, err error) {
	defer timeQuery("get_trades_by_run", &err)()

	query := `
		SELECT ` + tradeColumns + `
		FROM closed_trades
		WHERE run_id = $1
		ORDER BY exit_ms ASC, position_id ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get closed trades by run id: %w", err)
	}
	defer rows.Close()

	return scanClosedTrades(rows)
}

// GetByRunToken retrieves a run's trades for one token, same ordering.
func (s *TradeStore) GetByRunToken(ctx context.Context, runID, token string) (trades []*domain.ClosedTrade, err error) {
	defer timeQuery("get_trades_by_run_token", &err)()

	query := `
		SELECT ` + tradeColumns + `
		FROM closed_trades
		WHERE run_id = $1 AND token = $2
		ORDER BY exit_ms ASC, position_id ASC
	`

	rows, err := s.pool.Query(ctx, query, runID, token)
	if err != nil {
		return nil, fmt.Errorf("get closed trades by run/token: %w", err)
	}
	defer rows.Close()

	return scanClosedTrades(rows)
}

func tradeArgs(t *domain.ClosedTrade) []any {
	return []any{
		t.TradeID, t.RunID, t.PositionID, t.Token, t.Symbol, string(t.Direction),
		t.EntryPrice, t.EntryMs, t.ExitPrice, t.ExitMs,
		t.Size, t.EntryNotional, t.ExitValue, t.FeesPaid,
		t.PnL, t.PnLPct, t.ExitReason, t.DurationBars,
	}
}

// scanClosedTrade scans a single row into a ClosedTrade.
func scanClosedTrade(row pgx.Row) (*domain.ClosedTrade, error) {
	var t domain.ClosedTrade
	var direction string

	err := row.Scan(
		&t.TradeID, &t.RunID, &t.PositionID, &t.Token, &t.Symbol, &direction,
		&t.EntryPrice, &t.EntryMs, &t.ExitPrice, &t.ExitMs,
		&t.Size, &t.EntryNotional, &t.ExitValue, &t.FeesPaid,
		&t.PnL, &t.PnLPct, &t.ExitReason, &t.DurationBars,
	)
	if err != nil {
		return nil, err
	}

	t.Direction = domain.Direction(direction)
	return &t, nil
}

// scanClosedTrades scans multiple rows into a slice of ClosedTrade.
func scanClosedTrades(rows pgx.Rows) ([]*domain.ClosedTrade, error) {
	var trades []*domain.ClosedTrade

	for rows.Next() {
		t, err := scanClosedTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan closed trade row: %w", err)
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate closed trade rows: %w", err)
	}

	return trades, nil
}
