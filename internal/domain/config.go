package domain

import "errors"

// SlippageModel selects how fill slippage scales with trade size.
type SlippageModel string

// Slippage model constants.
const (
	// SlippageFixed applies a constant fraction regardless of notional.
	SlippageFixed SlippageModel = "fixed"
	// SlippageSqrtImpact scales base slippage with sqrt(notional/refLiquidity),
	// an AMM-style approximation where price impact grows with the square
	// root of trade size relative to available depth.
	SlippageSqrtImpact SlippageModel = "sqrt_impact"
)

// Config validation errors.
var (
	ErrUnknownSlippageModel = errors.New("unknown slippage model")
	ErrNegativeSlippage     = errors.New("slippage bps must be non-negative")
	ErrNegativeFees         = errors.New("fee and gas parameters must be non-negative")
	ErrReferenceLiquidity   = errors.New("sqrt_impact model requires positive reference liquidity")
	ErrStopDistance         = errors.New("stop-loss distance must be positive")
	ErrTakeDistance         = errors.New("take-profit distance must be positive")
	ErrTrailingConfig       = errors.New("trailing activation and distance must be positive fractions")
	ErrPositionSizing       = errors.New("max position equity fraction must be in (0, 1]")
	ErrMaxOpenPositions     = errors.New("max open positions must be positive")
	ErrCircuitBreaker       = errors.New("circuit breaker drawdown must be in (0, 1]")
	ErrSignalThresholds     = errors.New("signal thresholds must satisfy 0 <= short < long <= 100")
	ErrLookback             = errors.New("signal lookback must be positive")
	ErrEquityFraction       = errors.New("entry equity fraction must be in (0, 1]")
)

// ExecutionConfig describes fill economics. Immutable for one backtest run.
type ExecutionConfig struct {
	SlippageModel         SlippageModel `yaml:"slippage_model"`
	FixedSlippageBps      float64       `yaml:"fixed_slippage_bps"`
	ReferenceLiquidityUSD float64       `yaml:"reference_liquidity_usd"` // sqrt_impact depth anchor
	SwapFeeBps            float64       `yaml:"swap_fee_bps"`
	GasPerTradeUSD        float64       `yaml:"gas_per_trade_usd"`
}

// Validate fails fast on internally inconsistent execution parameters.
func (c *ExecutionConfig) Validate() error {
	switch c.SlippageModel {
	case SlippageFixed:
	case SlippageSqrtImpact:
		if c.ReferenceLiquidityUSD <= 0 {
			return ErrReferenceLiquidity
		}
	default:
		return ErrUnknownSlippageModel
	}
	if c.FixedSlippageBps < 0 {
		return ErrNegativeSlippage
	}
	if c.SwapFeeBps < 0 || c.GasPerTradeUSD < 0 {
		return ErrNegativeFees
	}
	return nil
}

// RiskConfig describes per-position risk orders and portfolio-level limits.
// Stop and take distances are ATR multiples so stop width scales with recent
// volatility rather than a fixed percent. Immutable for one backtest run.
type RiskConfig struct {
	StopLossATR   float64 `yaml:"stop_loss_atr"`   // stop distance = ATR * StopLossATR
	TakeProfitATR float64 `yaml:"take_profit_atr"` // target distance = ATR * TakeProfitATR

	TrailingActivationPct float64 `yaml:"trailing_activation_pct"` // unrealized gain fraction that arms the trail
	TrailingDistancePct   float64 `yaml:"trailing_distance_pct"`   // trail distance as fraction of extreme price

	MaxPositionEquityFraction float64 `yaml:"max_position_equity_fraction"`
	MaxOpenPositions          int     `yaml:"max_open_positions"`

	MaxDrawdownFraction float64 `yaml:"max_drawdown_fraction"` // circuit breaker threshold
}

// Validate fails fast on internally inconsistent risk parameters.
func (c *RiskConfig) Validate() error {
	if c.StopLossATR <= 0 {
		return ErrStopDistance
	}
	if c.TakeProfitATR <= 0 {
		return ErrTakeDistance
	}
	if c.TrailingActivationPct <= 0 || c.TrailingDistancePct <= 0 || c.TrailingDistancePct >= 1 {
		return ErrTrailingConfig
	}
	if c.MaxPositionEquityFraction <= 0 || c.MaxPositionEquityFraction > 1 {
		return ErrPositionSizing
	}
	if c.MaxOpenPositions <= 0 {
		return ErrMaxOpenPositions
	}
	if c.MaxDrawdownFraction <= 0 || c.MaxDrawdownFraction > 1 {
		return ErrCircuitBreaker
	}
	return nil
}

// SignalConfig describes how the loop maps scores to entries and exits.
// A score at or above LongEntry opens a long, at or below ShortEntry opens a
// short, and an open position is exited on signal once the score crosses back
// through the neutral midpoint by ExitBand.
type SignalConfig struct {
	LookbackBars   int     `yaml:"lookback_bars"`
	EquityFraction float64 `yaml:"equity_fraction"` // per-entry allocation before clamping
	LongEntry      float64 `yaml:"long_entry"`      // e.g. 70
	ShortEntry     float64 `yaml:"short_entry"`     // e.g. 30
	ExitBand       float64 `yaml:"exit_band"`       // e.g. 5 → long exits below 45
}

// Validate fails fast on inconsistent signal thresholds.
func (c *SignalConfig) Validate() error {
	if c.LookbackBars <= 0 {
		return ErrLookback
	}
	if c.EquityFraction <= 0 || c.EquityFraction > 1 {
		return ErrEquityFraction
	}
	if c.ShortEntry < 0 || c.LongEntry > 100 || c.ShortEntry >= c.LongEntry {
		return ErrSignalThresholds
	}
	if c.ExitBand < 0 || c.ExitBand > 50 {
		return ErrSignalThresholds
	}
	return nil
}

// Predefined execution configurations.
var (
	ExecutionConfigTight = ExecutionConfig{
		SlippageModel:    SlippageFixed,
		FixedSlippageBps: 5,
		SwapFeeBps:       5,
		GasPerTradeUSD:   0.5,
	}

	ExecutionConfigRealistic = ExecutionConfig{
		SlippageModel:    SlippageFixed,
		FixedSlippageBps: 10,
		SwapFeeBps:       5,
		GasPerTradeUSD:   1,
	}

	ExecutionConfigThinLiquidity = ExecutionConfig{
		SlippageModel:         SlippageSqrtImpact,
		FixedSlippageBps:      10,
		ReferenceLiquidityUSD: 250_000,
		SwapFeeBps:            30,
		GasPerTradeUSD:        1,
	}
)
