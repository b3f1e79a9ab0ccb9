package domain

// Exit reason codes.
const (
	ExitReasonStopLoss     = "stop_loss"
	ExitReasonTakeProfit   = "take_profit"
	ExitReasonTrailingStop = "trailing_stop"
	ExitReasonSignalExit   = "signal_exit"
	ExitReasonForcedClose  = "forced_close_end_of_backtest"
)

// ClosedTrade is the immutable record created exactly once when a position
// closes. Appended to the portfolio's ordered, append-only ledger.
type ClosedTrade struct {
	TradeID    string // deterministic hash
	RunID      string // backtest run this trade belongs to
	PositionID int64
	Token      string
	Symbol     string
	Direction  Direction

	EntryPrice float64
	EntryMs    int64
	ExitPrice  float64
	ExitMs     int64

	Size          float64
	EntryNotional float64 // quote units committed at entry
	ExitValue     float64 // quote units received at exit, before exit fees
	FeesPaid      float64 // entry + exit fees

	PnL    float64 // realized, quote units, net of all fees
	PnLPct float64 // PnL as a fraction of allocated equity

	ExitReason   string
	DurationBars int64
}
