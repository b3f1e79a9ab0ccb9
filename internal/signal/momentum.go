package signal

import (
	"context"
	"fmt"

	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/domain"
)

// MomentumSource scores the deviation of the latest close from the window
// mean, scaled by Sensitivity. A close Sensitivity percent above the mean
// saturates at 100, the mirror image at 0, and a flat window scores neutral.
type MomentumSource struct {
	Sensitivity float64 // fractional deviation mapped to full scale, e.g. 0.05
}

// NewMomentumSource creates a momentum scorer. Sensitivity must be positive.
func NewMomentumSource(sensitivity float64) *MomentumSource {
	return &MomentumSource{Sensitivity: sensitivity}
}

// Name returns the source identifier including parameters.
func (s *MomentumSource) Name() string {
	return fmt.Sprintf("MOMENTUM_sens%.3f", s.Sensitivity)
}

// Score maps mean deviation to [0,100]. Windows shorter than 2 bars score
// neutral: there is no history to lean on either side.
func (s *MomentumSource) Score(_ context.Context, window []*domain.PriceBar) (float64, error) {
	if len(window) < 2 {
		return Neutral, nil
	}

	sum := 0.0
	for _, b := range window {
		sum += b.Price
	}
	mean := sum / float64(len(window))
	if mean <= 0 {
		return Neutral, nil
	}

	deviation := (window[len(window)-1].Price - mean) / mean
	return Clamp(Neutral + deviation/s.Sensitivity*Neutral), nil
}

// Ensure MomentumSource implements Source
var _ Source = (*MomentumSource)(nil)
