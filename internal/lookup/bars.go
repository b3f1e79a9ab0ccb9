// Package lookup resolves per-token bars on the shared grid, with
// deterministic handling of data gaps.
package lookup

import (
	"errors"

	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/domain"
)

// Errors returned by lookup functions.
var (
	ErrUnknownToken  = errors.New("token not present in market data")
	ErrBarOutOfRange = errors.New("bar index out of range")
)

// BarAt returns the token's bar at index i, or (nil, nil) when the token has
// a data gap at that bar. Gaps are not errors: callers skip the token's
// order checks and equity contribution for that bar.
func BarAt(data *domain.MarketData, token string, i int) (*domain.PriceBar, error) {
	bars, ok := data.Series[token]
	if !ok {
		return nil, ErrUnknownToken
	}
	if i < 0 || i >= len(bars) {
		return nil, ErrBarOutOfRange
	}
	return bars[i], nil
}

// PricesAt returns the close price of every token that has a bar at index i.
// Tokens with a gap at i are absent from the map.
func PricesAt(data *domain.MarketData, i int) map[string]float64 {
	prices := make(map[string]float64, len(data.Series))
	for token, bars := range data.Series {
		if i >= 0 && i < len(bars) && bars[i] != nil {
			prices[token] = bars[i].Price
		}
	}
	return prices
}

// Window returns up to lookback bars of the token's history ending at bar i
// inclusive, skipping gaps. The window never extends past i: this is the
// no-lookahead boundary for signal computation.
func Window(data *domain.MarketData, token string, i, lookback int) []*domain.PriceBar {
	bars, ok := data.Series[token]
	if !ok || i < 0 {
		return nil
	}
	if i >= len(bars) {
		i = len(bars) - 1
	}

	window := make([]*domain.PriceBar, 0, lookback)
	for j := i; j >= 0 && len(window) < lookback; j-- {
		if bars[j] != nil {
			window = append(window, bars[j])
		}
	}
	// Collected newest-first; reverse to chronological order.
	for l, r := 0, len(window)-1; l < r; l, r = l+1, r-1 {
		window[l], window[r] = window[r], window[l]
	}
	return window
}
