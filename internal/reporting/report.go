// Package reporting renders stored backtest results as Markdown and CSV.
package reporting

import "time"

// Report is the renderable summary of a set of stored runs.
type Report struct {
	// Metadata
	GeneratedAt   time.Time
	RunCount      int
	StrategyCount int

	// Run rows, sorted by (strategy_id, run_id)
	Runs []RunRow

	// Exit reason breakdown aggregated across all runs, sorted by reason
	ExitBreakdown []ExitReasonRow
}

// RunRow is one run's summary line.
type RunRow struct {
	RunID      string
	StrategyID string
	SweepID    string

	InitialCapital float64
	FinalEquity    float64
	TotalReturn    float64
	CAGR           float64
	MaxDrawdown    float64

	TotalTrades      int
	WinRate          float64
	BuyAndHoldReturn float64
	ExcessReturn     float64

	CircuitBreakerFired bool
}

// ExitReasonRow aggregates closed trades by exit reason.
type ExitReasonRow struct {
	Reason   string
	Count    int
	TotalPnL float64
}
