package domain

// Direction of a position.
type Direction string

// Direction constants.
const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// Position is an open exposure owned exclusively by the portfolio.
// It is mutated only by the portfolio's order-check and close routines and
// removed from the open set once closed.
type Position struct {
	ID        int64  // monotonic per-portfolio counter
	Token     string // token identifier
	Symbol    string // display symbol
	Direction Direction

	EntryPrice     float64 // fill price after slippage
	Size           float64 // base-asset units, > 0
	EntryNotional  float64 // quote units committed at entry
	EntryFees      float64 // fees paid at entry
	EquityFraction float64 // fraction of equity allocated at entry

	StopLoss   float64 // hard stop level
	TakeProfit float64 // profit target level

	// Trailing-stop state. ExtremePrice ratchets favourably (high-water for
	// longs, low-water for shorts); TrailingStop is only meaningful once
	// TrailingActive is set.
	ExtremePrice   float64
	TrailingStop   float64
	TrailingActive bool

	OpenedAtBar int64 // bar index at entry
	OpenedAtMs  int64 // bar timestamp at entry (ms)
}

// UnrealizedPnL returns the signed open profit at price, before exit costs.
// Long: size*(price-entry). Short: size*(entry-price).
func (p *Position) UnrealizedPnL(price float64) float64 {
	if p.Direction == DirectionShort {
		return p.Size * (p.EntryPrice - price)
	}
	return p.Size * (price - p.EntryPrice)
}

// MarkValue returns the position's contribution to mark-to-market equity.
// A long contributes size*price; a short contributes size*(2*entry-price),
// the cash-settled equivalent of entry notional plus short PnL.
func (p *Position) MarkValue(price float64) float64 {
	if p.Direction == DirectionShort {
		return p.Size * (2*p.EntryPrice - price)
	}
	return p.Size * price
}
