// Package indicators holds the small set of technical indicators the engine
// itself needs. Signal scoring lives behind the signal.Source capability and
// is free to use anything; the portfolio only needs ATR for stop sizing.
package indicators

import (
	"errors"
	"math"

	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/domain"
)

// ErrNotEnoughBars is returned when the window is shorter than period+1.
var ErrNotEnoughBars = errors.New("not enough bars for ATR period")

// ATR computes the Average True Range over bars with Wilder smoothing.
// Bars without intrabar extremes fall back to absolute close-to-close range,
// so the indicator stays defined on close-only series.
func ATR(bars []*domain.PriceBar, period int) (float64, error) {
	if period <= 0 {
		return 0, ErrNotEnoughBars
	}
	if len(bars) < period+1 {
		return 0, ErrNotEnoughBars
	}

	trs := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		trs = append(trs, trueRange(bars[i], bars[i-1]))
	}

	// Initial ATR: simple average of the first period true ranges.
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += trs[i]
	}
	atr := sum / float64(period)

	// Wilder smoothing over the remainder.
	for i := period; i < len(trs); i++ {
		atr = (atr*float64(period-1) + trs[i]) / float64(period)
	}

	return atr, nil
}

// trueRange is max(high-low, |high-prevClose|, |low-prevClose|), degrading
// to |close-prevClose| when the bar has no intrabar extremes.
func trueRange(cur, prev *domain.PriceBar) float64 {
	if !cur.HasRange() {
		return math.Abs(cur.Price - prev.Price)
	}
	hl := cur.High - cur.Low
	hc := math.Abs(cur.High - prev.Price)
	lc := math.Abs(cur.Low - prev.Price)
	return math.Max(hl, math.Max(hc, lc))
}
