package domain

// TradeStats summarizes the closed-trade ledger.
type TradeStats struct {
	TotalTrades  int
	Wins         int
	Losses       int
	WinRate      float64 // wins / total
	ProfitFactor float64 // gross wins / |gross losses|; +Inf when no losses
	AverageWin   float64
	AverageLoss  float64 // reported as a positive magnitude
	LargestWin   float64
	LargestLoss  float64 // reported as a positive magnitude
	Expectancy   float64 // winRate*avgWin - (1-winRate)*avgLoss
}

// PerformanceReport is the derived statistics of one backtest run.
// Plain data, suitable for serialization by external collaborators.
type PerformanceReport struct {
	InitialCapital float64
	FinalEquity    float64
	TotalReturn    float64 // (final - initial) / initial
	CAGR           float64 // 0 for sub-day backtests

	MaxDrawdown           float64   // worst (peak-equity)/peak, in [0,1]
	LongestUnderwaterBars int64     // longest contiguous span below prior peak
	DrawdownCurve         []float64 // per equity point, for charting

	AnnualizedVolatility float64
	DownsideDeviation    float64

	Trades TradeStats

	BuyAndHoldReturn float64 // equal-weight basket, no rebalancing
	ExcessReturn     float64 // TotalReturn - BuyAndHoldReturn

	Bars         int64
	BarsPerYear  float64
	DurationDays float64
}

// BacktestResult bundles everything one run produces.
type BacktestResult struct {
	RunID      string
	StrategyID string

	InitialCapital float64
	Execution      ExecutionConfig
	Risk           RiskConfig
	Signal         SignalConfig

	EquityCurve []*EquityPoint
	Trades      []*ClosedTrade
	Report      *PerformanceReport

	CircuitBreakerFired bool
	StartMs             int64
	EndMs               int64
}
