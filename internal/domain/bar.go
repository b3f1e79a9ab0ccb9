package domain

import "errors"

// MarketData validation errors.
var (
	ErrNoBars            = errors.New("market data has no bars")
	ErrSeriesLength      = errors.New("token series length does not match timestamp grid")
	ErrTimestampOrdering = errors.New("timestamps must be strictly ascending")
)

// PriceBar is one discrete time-stepped price observation for a token.
// High/Low are optional intrabar extremes; when zero the bar carries only
// a close price and triggers are evaluated against Price.
type PriceBar struct {
	TimestampMs int64   // Unix timestamp in milliseconds
	Price       float64 // close (or last) price
	High        float64 // intrabar high, 0 if unknown
	Low         float64 // intrabar low, 0 if unknown
}

// HasRange reports whether the bar carries usable intrabar extremes.
func (b *PriceBar) HasRange() bool {
	return b.High > 0 && b.Low > 0 && b.High >= b.Low
}

// MarketData holds the aligned per-token bar series a backtest runs over.
// Every token series has exactly len(Timestamps) entries; a nil entry is a
// data gap for that token at that bar.
type MarketData struct {
	Timestamps []int64                // shared bar grid, strictly ascending (ms)
	Series     map[string][]*PriceBar // keyed by token identifier
	Symbols    map[string]string      // optional display symbol per token
}

// Bars returns the number of bars on the shared grid.
func (m *MarketData) Bars() int {
	return len(m.Timestamps)
}

// Tokens returns the tracked token identifiers in unspecified order.
func (m *MarketData) Tokens() []string {
	tokens := make([]string, 0, len(m.Series))
	for token := range m.Series {
		tokens = append(tokens, token)
	}
	return tokens
}

// Validate checks grid/series consistency.
// Returns ErrNoBars, ErrSeriesLength or ErrTimestampOrdering.
func (m *MarketData) Validate() error {
	if len(m.Timestamps) == 0 || len(m.Series) == 0 {
		return ErrNoBars
	}
	for i := 1; i < len(m.Timestamps); i++ {
		if m.Timestamps[i] <= m.Timestamps[i-1] {
			return ErrTimestampOrdering
		}
	}
	for _, bars := range m.Series {
		if len(bars) != len(m.Timestamps) {
			return ErrSeriesLength
		}
	}
	return nil
}
