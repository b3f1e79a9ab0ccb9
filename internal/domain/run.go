package domain

// RunRecord is the persisted summary row of one finished run. Heavy payloads
// (equity curve, trade ledger) live in their own stores keyed by RunID.
type RunRecord struct {
	RunID      string
	StrategyID string
	SweepID    string // empty for standalone runs

	InitialCapital float64
	FinalEquity    float64
	TotalReturn    float64
	CAGR           float64
	MaxDrawdown    float64

	TotalTrades      int
	WinRate          float64
	BuyAndHoldReturn float64

	CircuitBreakerFired bool
	StartMs             int64
	EndMs               int64
	CreatedAtMs         int64
}

// RunRecordFrom flattens a finished result into its storable summary.
func RunRecordFrom(result *BacktestResult, sweepID string, createdAtMs int64) *RunRecord {
	record := &RunRecord{
		RunID:               result.RunID,
		StrategyID:          result.StrategyID,
		SweepID:             sweepID,
		InitialCapital:      result.InitialCapital,
		CircuitBreakerFired: result.CircuitBreakerFired,
		StartMs:             result.StartMs,
		EndMs:               result.EndMs,
		CreatedAtMs:         createdAtMs,
	}
	if result.Report != nil {
		record.FinalEquity = result.Report.FinalEquity
		record.TotalReturn = result.Report.TotalReturn
		record.CAGR = result.Report.CAGR
		record.MaxDrawdown = result.Report.MaxDrawdown
		record.TotalTrades = result.Report.Trades.TotalTrades
		record.WinRate = result.Report.Trades.WinRate
		record.BuyAndHoldReturn = result.Report.BuyAndHoldReturn
	}
	return record
}
