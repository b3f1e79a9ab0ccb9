package clickhouse

import (
	"context"
	"fmt"

	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/domain"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/storage"
)

// EquityCurveStore implements storage.EquityCurveStore using ClickHouse.
type EquityCurveStore struct {
	conn *Conn
}

// NewEquityCurveStore creates a new EquityCurveStore.
func NewEquityCurveStore(conn *Conn) *EquityCurveStore {
	return &EquityCurveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EquityCurveStore = (*EquityCurveStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate
// (run_id, bar_index). MergeTree does not enforce uniqueness at insert time,
// so duplicates are checked explicitly before the batch is sent.
func (s *EquityCurveStore) InsertBulk(ctx context.Context, points []*domain.EquityPoint) error {
	if len(points) == 0 {
		return nil
	}

	type key struct {
		runID    string
		barIndex int64
	}
	seen := make(map[key]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.RunID == "" {
			return storage.ErrInvalidInput
		}
		k := key{p.RunID, p.BarIndex}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, p := range points {
		exists, err := s.exists(ctx, p.RunID, p.BarIndex)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO equity_points (
			run_id, bar_index, timestamp_ms, equity, cash, open_count
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.RunID, uint64(p.BarIndex), uint64(p.TimestampMs),
			p.Equity, p.Cash, uint32(p.OpenCount),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRunID retrieves the full curve of a run, ordered by bar_index ASC.
func (s *EquityCurveStore) GetByRunID(ctx context.Context, runID string) ([]*domain.EquityPoint, error) {
	query := `
		SELECT run_id, bar_index, timestamp_ms, equity, cash, open_count
		FROM equity_points
		WHERE run_id = ?
		ORDER BY bar_index ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run id: %w", err)
	}
	defer rows.Close()

	return scanEquityPoints(rows)
}

// GetByTimeRange retrieves a run's points within [start, end] ms (inclusive).
func (s *EquityCurveStore) GetByTimeRange(ctx context.Context, runID string, start, end int64) ([]*domain.EquityPoint, error) {
	query := `
		SELECT run_id, bar_index, timestamp_ms, equity, cash, open_count
		FROM equity_points
		WHERE run_id = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY bar_index ASC
	`

	rows, err := s.conn.Query(ctx, query, runID, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanEquityPoints(rows)
}

// exists checks if a point with the given key exists.
func (s *EquityCurveStore) exists(ctx context.Context, runID string, barIndex int64) (bool, error) {
	query := `
		SELECT count(*) FROM equity_points
		WHERE run_id = ? AND bar_index = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, runID, uint64(barIndex)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning.
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanEquityPoints scans multiple rows into a slice.
func scanEquityPoints(rows chRows) ([]*domain.EquityPoint, error) {
	var points []*domain.EquityPoint

	for rows.Next() {
		var p domain.EquityPoint
		var barIndex, timestampMs uint64
		var openCount uint32

		err := rows.Scan(
			&p.RunID, &barIndex, &timestampMs,
			&p.Equity, &p.Cash, &openCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan equity point row: %w", err)
		}

		p.BarIndex = int64(barIndex)
		p.TimestampMs = int64(timestampMs)
		p.OpenCount = int(openCount)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate equity point rows: %w", err)
	}

	return points, nil
}
