// Package backtest runs the deterministic bar-by-bar simulation loop: risk
// orders first, then signal-driven entries and exits, then a mark-to-market
// equity observation, for every bar of the shared grid.
package backtest

import (
	"context"
	"fmt"
	"sort"

	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/domain"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/idhash"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/indicators"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/lookup"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/metrics"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/observability"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/portfolio"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/signal"
)

// DefaultATRPeriod sizes stop distances when the config leaves it unset.
const DefaultATRPeriod = 14

// Config carries everything one run needs besides market data and the
// signal source. RunID is derived from the other fields when empty, so
// identical inputs always produce the same run identifier.
type Config struct {
	RunID          string
	StrategyID     string
	InitialCapital float64

	Execution domain.ExecutionConfig
	Risk      domain.RiskConfig
	Signal    domain.SignalConfig

	ATRPeriod int
}

// Validate fails fast on any invalid sub-config.
func (c *Config) Validate() error {
	if c.InitialCapital <= 0 {
		return fmt.Errorf("initial capital must be positive, got %v", c.InitialCapital)
	}
	if err := c.Execution.Validate(); err != nil {
		return fmt.Errorf("execution config: %w", err)
	}
	if err := c.Risk.Validate(); err != nil {
		return fmt.Errorf("risk config: %w", err)
	}
	if err := c.Signal.Validate(); err != nil {
		return fmt.Errorf("signal config: %w", err)
	}
	if c.ATRPeriod < 0 {
		return fmt.Errorf("atr period must be non-negative, got %d", c.ATRPeriod)
	}
	return nil
}

func (c *Config) fingerprint() string {
	return fmt.Sprintf("%+v|%+v|%+v|cap=%v|atr=%d", c.Execution, c.Risk, c.Signal, c.InitialCapital, c.atrPeriod())
}

func (c *Config) atrPeriod() int {
	if c.ATRPeriod > 0 {
		return c.ATRPeriod
	}
	return DefaultATRPeriod
}

// Engine executes one configuration against one market data set at a time.
// Stateless between runs; safe to reuse sequentially, not concurrently.
type Engine struct {
	cfg    Config
	source signal.Source
}

// NewEngine validates the config and binds the signal source.
func NewEngine(cfg Config, source signal.Source) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, fmt.Errorf("signal source is required")
	}
	return &Engine{cfg: cfg, source: source}, nil
}

// Run executes the full loop over data and returns the finished result with
// its performance report. The loop never reads a bar after the one being
// decided: signals see a window ending at the current bar, and orders
// trigger on the current bar only.
func (e *Engine) Run(ctx context.Context, data *domain.MarketData) (*domain.BacktestResult, error) {
	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("market data: %w", err)
	}

	startMs := data.Timestamps[0]
	endMs := data.Timestamps[len(data.Timestamps)-1]

	runID := e.cfg.RunID
	if runID == "" {
		runID = idhash.ComputeRunID(e.cfg.StrategyID, e.cfg.fingerprint(), startMs, endMs)
	}

	port, err := portfolio.New(runID, e.cfg.InitialCapital, e.cfg.Execution, e.cfg.Risk)
	if err != nil {
		return nil, err
	}

	tokens := data.Tokens()
	sort.Strings(tokens)

	lastBar := data.Bars() - 1
	breakerFired := false

	for i := 0; i <= lastBar; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ts := data.Timestamps[i]
		bars := barsAt(data, tokens, i)
		prices := lookup.PricesAt(data, i)

		port.CheckOrders(bars, int64(i), ts)

		if i == lastBar {
			// No new entries on the final bar; everything still open is
			// force-closed so the run ends fully in cash, and the last
			// equity point reflects the forced-close economics.
			port.CloseAllPositions(prices, int64(i), ts)
			port.RecordEquityPoint(prices, int64(i), ts)
			break
		}

		if !breakerFired && port.IsCircuitBreakerTriggered(prices, e.cfg.Risk.MaxDrawdownFraction) {
			// Latched for the remainder of the run: no new entries, while
			// order checks keep managing what is already open.
			breakerFired = true
		}

		if !breakerFired {
			if err := e.applySignals(ctx, data, port, tokens, bars, prices, i, ts); err != nil {
				return nil, err
			}
		}

		port.RecordEquityPoint(prices, int64(i), ts)
	}

	result := &domain.BacktestResult{
		RunID:               runID,
		StrategyID:          e.cfg.StrategyID,
		InitialCapital:      e.cfg.InitialCapital,
		Execution:           e.cfg.Execution,
		Risk:                e.cfg.Risk,
		Signal:              e.cfg.Signal,
		EquityCurve:         port.EquityCurve(),
		Trades:              port.Trades(),
		Report:              metrics.ComputeReport(e.cfg.InitialCapital, port.EquityCurve(), port.Trades(), data),
		CircuitBreakerFired: breakerFired,
		StartMs:             startMs,
		EndMs:               endMs,
	}
	return result, nil
}

// applySignals scores each token on its strictly-historical window and acts
// on the thresholds: exits first for held tokens, entries for the rest.
// Tokens with a data gap at this bar are skipped entirely.
func (e *Engine) applySignals(ctx context.Context, data *domain.MarketData, port *portfolio.Portfolio, tokens []string, bars map[string]*domain.PriceBar, prices map[string]float64, barIndex int, ts int64) error {
	sig := e.cfg.Signal

	for _, token := range tokens {
		bar, ok := bars[token]
		if !ok || bar == nil {
			continue
		}

		window := lookup.Window(data, token, barIndex, sig.LookbackBars)
		score, err := e.source.Score(ctx, window)
		if err != nil {
			return fmt.Errorf("score %s at bar %d: %w", token, barIndex, err)
		}

		if pos := openPositionFor(port, token); pos != nil {
			if signalExit(pos.Direction, score, sig.ExitBand) {
				port.ClosePosition(pos.ID, bar.Price, domain.ExitReasonSignalExit, int64(barIndex), ts)
			}
			continue
		}

		// Entries wait for a full lookback window so early bars with thin
		// history never trade.
		if len(window) < sig.LookbackBars {
			continue
		}

		var dir domain.Direction
		switch {
		case score >= sig.LongEntry:
			dir = domain.DirectionLong
		case score <= sig.ShortEntry:
			dir = domain.DirectionShort
		default:
			continue
		}

		atr, err := indicators.ATR(window, e.cfg.atrPeriod())
		if err != nil {
			// Not enough usable history to size stops: skip the entry.
			continue
		}

		equity := port.ComputeEquity(prices)
		if pos := port.OpenPosition(token, data.Symbols[token], dir, bar.Price, sig.EquityFraction, equity, atr, int64(barIndex), ts); pos == nil {
			observability.RecordEntryRejected()
		}
	}
	return nil
}

// signalExit reports whether the score has crossed back through neutral by
// at least the configured band, against the position's direction.
func signalExit(dir domain.Direction, score, exitBand float64) bool {
	if dir == domain.DirectionShort {
		return score >= signal.Neutral+exitBand
	}
	return score <= signal.Neutral-exitBand
}

func openPositionFor(port *portfolio.Portfolio, token string) *domain.Position {
	for _, pos := range port.OpenPositions() {
		if pos.Token == token {
			return pos
		}
	}
	return nil
}

// barsAt collects the bar of each token at index i, omitting gaps.
func barsAt(data *domain.MarketData, tokens []string, i int) map[string]*domain.PriceBar {
	bars := make(map[string]*domain.PriceBar, len(tokens))
	for _, token := range tokens {
		if bar, err := lookup.BarAt(data, token, i); err == nil && bar != nil {
			bars[token] = bar
		}
	}
	return bars
}
