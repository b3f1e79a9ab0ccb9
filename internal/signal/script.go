package signal

import (
	"context"

	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/domain"
)

// ScriptSource is a deterministic fixture for tests: it returns a scripted
// score keyed by the timestamp of the window's last bar, and a fixed default
// otherwise. It also records every window end it was asked about, so tests
// can verify the engine never shows it a future bar.
type ScriptSource struct {
	Scores  map[int64]float64 // keyed by last-bar timestamp (ms)
	Default float64

	seenEnds []int64
}

// NewScriptSource creates a script fixture with a neutral default.
func NewScriptSource(scores map[int64]float64) *ScriptSource {
	return &ScriptSource{Scores: scores, Default: Neutral}
}

// Name returns the source identifier.
func (s *ScriptSource) Name() string {
	return "script"
}

// Score returns the scripted score for the window's last bar.
func (s *ScriptSource) Score(_ context.Context, window []*domain.PriceBar) (float64, error) {
	if len(window) == 0 {
		return s.Default, nil
	}
	end := window[len(window)-1].TimestampMs
	s.seenEnds = append(s.seenEnds, end)
	if score, ok := s.Scores[end]; ok {
		return score, nil
	}
	return s.Default, nil
}

// SeenWindowEnds returns the last-bar timestamps of every window scored, in
// call order, for no-lookahead verification.
func (s *ScriptSource) SeenWindowEnds() []int64 {
	return s.seenEnds
}

// Ensure ScriptSource implements Source
var _ Source = (*ScriptSource)(nil)
