package domain

// EquityPoint is one mark-to-market observation of the portfolio.
// One point is recorded per processed bar; the sequence is strictly ordered
// by bar index and never mutated after creation.
type EquityPoint struct {
	RunID       string
	BarIndex    int64
	TimestampMs int64
	Equity      float64 // cash + signed mark value of every open position
	Cash        float64
	OpenCount   int // open positions at this bar
}
