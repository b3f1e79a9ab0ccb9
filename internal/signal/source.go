// Package signal defines the scoring capability the backtest loop consumes.
// The engine is agnostic to how scores are produced: anything that maps a
// strictly-historical lookback window to a [0,100] score plugs in here.
package signal

import (
	"context"

	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/domain"
)

// Score bounds.
const (
	MinScore = 0.0
	MaxScore = 100.0
	Neutral  = 50.0
)

// Source produces a long/short score from a price lookback window.
type Source interface {
	// Score maps the window (chronological, ending at the current bar) to a
	// score in [0,100]: above 50 favours long exposure, below 50 short.
	// The window never contains bars after the one being decided.
	Score(ctx context.Context, window []*domain.PriceBar) (float64, error)

	// Name returns the source identifier.
	Name() string
}

// Clamp bounds a raw score into [MinScore, MaxScore].
func Clamp(score float64) float64 {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
