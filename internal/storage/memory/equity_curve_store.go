package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/domain"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/storage"
)

// EquityCurveStore is an in-memory implementation of storage.EquityCurveStore.
type EquityCurveStore struct {
	mu   sync.RWMutex
	data map[string]*domain.EquityPoint // keyed by run_id + bar_index
}

// NewEquityCurveStore creates a new in-memory equity curve store.
func NewEquityCurveStore() *EquityCurveStore {
	return &EquityCurveStore{
		data: make(map[string]*domain.EquityPoint),
	}
}

func pointKey(runID string, barIndex int64) string {
	return fmt.Sprintf("%s/%d", runID, barIndex)
}

// InsertBulk adds multiple points. Fails entire batch on duplicate (run_id, bar_index).
func (s *EquityCurveStore) InsertBulk(_ context.Context, points []*domain.EquityPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.RunID == "" {
			return storage.ErrInvalidInput
		}
		key := pointKey(p.RunID, p.BarIndex)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, p := range points {
		copy := *p
		s.data[pointKey(p.RunID, p.BarIndex)] = &copy
	}
	return nil
}

// GetByRunID retrieves the full curve of a run, ordered by bar_index ASC.
func (s *EquityCurveStore) GetByRunID(_ context.Context, runID string) ([]*domain.EquityPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EquityPoint
	for _, p := range s.data {
		if p.RunID == runID {
			copy := *p
			result = append(result, &copy)
		}
	}
	sortPoints(result)
	return result, nil
}

// GetByTimeRange retrieves a run's points within [start, end] ms (inclusive).
func (s *EquityCurveStore) GetByTimeRange(_ context.Context, runID string, start, end int64) ([]*domain.EquityPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EquityPoint
	for _, p := range s.data {
		if p.RunID == runID && p.TimestampMs >= start && p.TimestampMs <= end {
			copy := *p
			result = append(result, &copy)
		}
	}
	sortPoints(result)
	return result, nil
}

func sortPoints(points []*domain.EquityPoint) {
	sort.Slice(points, func(i, j int) bool { return points[i].BarIndex < points[j].BarIndex })
}

var _ storage.EquityCurveStore = (*EquityCurveStore)(nil)
