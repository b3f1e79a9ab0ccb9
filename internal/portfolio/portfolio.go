// Package portfolio owns the economic state of one backtest run: cash, open
// positions, the closed-trade ledger and the equity curve. All mutation goes
// through open/close/order-check routines so the conservation invariant
// (equity == cash + unrealized PnL == initial + realized + unrealized) holds
// at every recorded point.
package portfolio

import (
	"fmt"
	"sort"

	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/domain"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/execution"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/idhash"
)

// Portfolio is the aggregate root of one run. Not safe for concurrent use;
// independent runs own independent portfolios.
type Portfolio struct {
	runID          string
	initialCapital float64
	cash           float64

	fills *execution.FillSimulator
	risk  domain.RiskConfig

	open   map[int64]*domain.Position
	trades []*domain.ClosedTrade
	curve  []*domain.EquityPoint

	peakEquity float64
	nextID     int64

	// lastPrice carries the most recent observed price per token so a data
	// gap marks the position at its stale price instead of dropping its
	// value from equity. Carry-forward is applied consistently to marking
	// only; gap bars never trigger orders.
	lastPrice map[string]float64
}

// New constructs a portfolio for one run. Fails fast on invalid configs.
func New(runID string, initialCapital float64, exec domain.ExecutionConfig, risk domain.RiskConfig) (*Portfolio, error) {
	if initialCapital <= 0 {
		return nil, fmt.Errorf("initial capital must be positive, got %v", initialCapital)
	}
	if err := exec.Validate(); err != nil {
		return nil, fmt.Errorf("execution config: %w", err)
	}
	if err := risk.Validate(); err != nil {
		return nil, fmt.Errorf("risk config: %w", err)
	}

	return &Portfolio{
		runID:          runID,
		initialCapital: initialCapital,
		cash:           initialCapital,
		fills:          execution.NewFillSimulator(exec),
		risk:           risk,
		open:           make(map[int64]*domain.Position),
		peakEquity:     initialCapital,
		lastPrice:      make(map[string]float64),
	}, nil
}

// Cash returns current uncommitted quote balance.
func (p *Portfolio) Cash() float64 { return p.cash }

// InitialCapital returns the starting balance.
func (p *Portfolio) InitialCapital() float64 { return p.initialCapital }

// PeakEquity returns the running high-water mark.
func (p *Portfolio) PeakEquity() float64 { return p.peakEquity }

// Trades returns the append-only closed-trade ledger in close order.
func (p *Portfolio) Trades() []*domain.ClosedTrade { return p.trades }

// EquityCurve returns the recorded equity points in bar order.
func (p *Portfolio) EquityCurve() []*domain.EquityPoint { return p.curve }

// OpenPositions returns open positions in ascending id order.
func (p *Portfolio) OpenPositions() []*domain.Position {
	positions := make([]*domain.Position, 0, len(p.open))
	for _, pos := range p.open {
		positions = append(positions, pos)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].ID < positions[j].ID })
	return positions
}

// HasPosition reports whether a position for token is currently open.
func (p *Portfolio) HasPosition(token string) bool {
	for _, pos := range p.open {
		if pos.Token == token {
			return true
		}
	}
	return false
}

// observePrices refreshes the stale-price carry-forward map.
func (p *Portfolio) observePrices(prices map[string]float64) {
	for token, price := range prices {
		p.lastPrice[token] = price
	}
}

// markPrice returns the price to mark token at: current if present, else the
// carried-forward last observation, else the position's entry price.
func (p *Portfolio) markPrice(pos *domain.Position, prices map[string]float64) float64 {
	if price, ok := prices[pos.Token]; ok {
		return price
	}
	if price, ok := p.lastPrice[pos.Token]; ok {
		return price
	}
	return pos.EntryPrice
}

// ComputeEquity returns cash plus the signed mark-to-market value of every
// open position at the given prices.
func (p *Portfolio) ComputeEquity(prices map[string]float64) float64 {
	equity := p.cash
	for _, pos := range p.open {
		equity += pos.MarkValue(p.markPrice(pos, prices))
	}
	return equity
}

// OpenPosition opens a new position, or returns nil (a rejected no-op, not
// an error) when sizing, exposure or cash constraints forbid it.
//
// Sizing: notional = currentEquity * equityFraction, clamped to the
// configured max single-position fraction. Stops are derived from atr so the
// stop distance scales with recent volatility. Rejections: non-positive
// notional or atr, an existing position for the token, the concurrent
// position cap, or insufficient cash for notional plus entry fees.
func (p *Portfolio) OpenPosition(token, symbol string, dir domain.Direction, price, equityFraction, currentEquity, atr float64, barIndex, timestampMs int64) *domain.Position {
	if price <= 0 || atr <= 0 {
		return nil
	}
	if p.HasPosition(token) {
		return nil
	}
	if len(p.open) >= p.risk.MaxOpenPositions {
		return nil
	}

	fraction := equityFraction
	if fraction > p.risk.MaxPositionEquityFraction {
		fraction = p.risk.MaxPositionEquityFraction
	}
	notional := currentEquity * fraction
	if notional <= 0 {
		return nil
	}

	var fillPrice, fees float64
	if dir == domain.DirectionShort {
		fillPrice, fees = p.fills.SimulateSell(price, notional)
	} else {
		fillPrice, fees = p.fills.SimulateBuy(price, notional)
	}
	if p.cash < notional+fees {
		return nil
	}

	stopDistance := atr * p.risk.StopLossATR
	takeDistance := atr * p.risk.TakeProfitATR

	pos := &domain.Position{
		ID:             p.nextID,
		Token:          token,
		Symbol:         symbol,
		Direction:      dir,
		EntryPrice:     fillPrice,
		Size:           notional / fillPrice,
		EntryNotional:  notional,
		EntryFees:      fees,
		EquityFraction: fraction,
		ExtremePrice:   fillPrice,
		OpenedAtBar:    barIndex,
		OpenedAtMs:     timestampMs,
	}
	if dir == domain.DirectionShort {
		pos.StopLoss = fillPrice + stopDistance
		pos.TakeProfit = fillPrice - takeDistance
	} else {
		pos.StopLoss = fillPrice - stopDistance
		pos.TakeProfit = fillPrice + takeDistance
	}

	p.nextID++
	p.open[pos.ID] = pos
	p.cash -= notional + fees

	return pos
}

// CheckOrders evaluates risk orders for every open position against the
// bar's prices, in ascending position-id order so same-bar triggers resolve
// deterministically. Trigger precedence per position: stop-loss, then
// take-profit, then trailing stop; a position closes on at most one trigger
// per bar, at the configured level rather than the possibly-worse bar price.
// Tokens without a bar this index are skipped. Returns the trades closed.
func (p *Portfolio) CheckOrders(bars map[string]*domain.PriceBar, barIndex, timestampMs int64) []*domain.ClosedTrade {
	var closed []*domain.ClosedTrade

	for _, pos := range p.OpenPositions() {
		bar, ok := bars[pos.Token]
		if !ok || bar == nil {
			continue
		}

		high, low := bar.Price, bar.Price
		if bar.HasRange() {
			high, low = bar.High, bar.Low
		}

		p.updateTrailing(pos, high, low)

		exitPrice, reason := triggeredExit(pos, high, low)
		if reason == "" {
			continue
		}
		if trade := p.ClosePosition(pos.ID, exitPrice, reason, barIndex, timestampMs); trade != nil {
			closed = append(closed, trade)
		}
	}

	return closed
}

// updateTrailing ratchets the extreme price and arms/advances the trailing
// stop once unrealized gain crosses the activation threshold. The trailing
// level only ever moves in the favourable direction because the extreme
// never retreats.
func (p *Portfolio) updateTrailing(pos *domain.Position, high, low float64) {
	if pos.Direction == domain.DirectionShort {
		if low < pos.ExtremePrice {
			pos.ExtremePrice = low
		}
		gain := (pos.EntryPrice - pos.ExtremePrice) / pos.EntryPrice
		if gain >= p.risk.TrailingActivationPct {
			pos.TrailingActive = true
			pos.TrailingStop = pos.ExtremePrice * (1 + p.risk.TrailingDistancePct)
		}
		return
	}

	if high > pos.ExtremePrice {
		pos.ExtremePrice = high
	}
	gain := (pos.ExtremePrice - pos.EntryPrice) / pos.EntryPrice
	if gain >= p.risk.TrailingActivationPct {
		pos.TrailingActive = true
		pos.TrailingStop = pos.ExtremePrice * (1 - p.risk.TrailingDistancePct)
	}
}

// triggeredExit returns the exit level and reason for the first breached
// order in priority order, or an empty reason when nothing triggered.
func triggeredExit(pos *domain.Position, high, low float64) (float64, string) {
	if pos.Direction == domain.DirectionShort {
		switch {
		case high >= pos.StopLoss:
			return pos.StopLoss, domain.ExitReasonStopLoss
		case low <= pos.TakeProfit:
			return pos.TakeProfit, domain.ExitReasonTakeProfit
		case pos.TrailingActive && high >= pos.TrailingStop:
			return pos.TrailingStop, domain.ExitReasonTrailingStop
		}
		return 0, ""
	}

	switch {
	case low <= pos.StopLoss:
		return pos.StopLoss, domain.ExitReasonStopLoss
	case high >= pos.TakeProfit:
		return pos.TakeProfit, domain.ExitReasonTakeProfit
	case pos.TrailingActive && low <= pos.TrailingStop:
		return pos.TrailingStop, domain.ExitReasonTrailingStop
	}
	return 0, ""
}

// ClosePosition closes the position at exitPrice, credits cash with the exit
// value net of fees, appends the ClosedTrade and removes the position from
// the open set. Closing an unknown (already-closed) id is an idempotent
// no-op returning nil.
func (p *Portfolio) ClosePosition(id int64, exitPrice float64, exitReason string, barIndex, timestampMs int64) *domain.ClosedTrade {
	pos, ok := p.open[id]
	if !ok {
		return nil
	}

	marketNotional := pos.Size * exitPrice
	var fillPrice, exitFees float64
	if pos.Direction == domain.DirectionShort {
		// Shorts exit by buying back.
		fillPrice, exitFees = p.fills.SimulateBuy(exitPrice, marketNotional)
	} else {
		fillPrice, exitFees = p.fills.SimulateSell(exitPrice, marketNotional)
	}

	exitValue := pos.MarkValue(fillPrice)
	totalFees := pos.EntryFees + exitFees
	pnl := exitValue - pos.EntryNotional - totalFees

	p.cash += exitValue - exitFees
	delete(p.open, id)

	trade := &domain.ClosedTrade{
		TradeID:       idhash.ComputeTradeID(p.runID, pos.Token, pos.ID),
		RunID:         p.runID,
		PositionID:    pos.ID,
		Token:         pos.Token,
		Symbol:        pos.Symbol,
		Direction:     pos.Direction,
		EntryPrice:    pos.EntryPrice,
		EntryMs:       pos.OpenedAtMs,
		ExitPrice:     fillPrice,
		ExitMs:        timestampMs,
		Size:          pos.Size,
		EntryNotional: pos.EntryNotional,
		ExitValue:     exitValue,
		FeesPaid:      totalFees,
		PnL:           pnl,
		PnLPct:        pnl / pos.EntryNotional,
		ExitReason:    exitReason,
		DurationBars:  barIndex - pos.OpenedAtBar,
	}
	p.trades = append(p.trades, trade)

	return trade
}

// RecordEquityPoint appends one mark-to-market observation for the bar and
// advances the high-water mark when exceeded.
func (p *Portfolio) RecordEquityPoint(prices map[string]float64, barIndex, timestampMs int64) *domain.EquityPoint {
	p.observePrices(prices)

	equity := p.ComputeEquity(prices)
	if equity > p.peakEquity {
		p.peakEquity = equity
	}

	point := &domain.EquityPoint{
		RunID:       p.runID,
		BarIndex:    barIndex,
		TimestampMs: timestampMs,
		Equity:      equity,
		Cash:        p.cash,
		OpenCount:   len(p.open),
	}
	p.curve = append(p.curve, point)
	return point
}

// CloseAllPositions force-closes every remaining open position in ascending
// id order, marking tokens without a current price at their carried-forward
// last observation. Called exactly once, after the last bar.
func (p *Portfolio) CloseAllPositions(prices map[string]float64, barIndex, timestampMs int64) []*domain.ClosedTrade {
	p.observePrices(prices)

	var closed []*domain.ClosedTrade
	for _, pos := range p.OpenPositions() {
		exitPrice := p.markPrice(pos, prices)
		if trade := p.ClosePosition(pos.ID, exitPrice, domain.ExitReasonForcedClose, barIndex, timestampMs); trade != nil {
			closed = append(closed, trade)
		}
	}
	return closed
}

// IsCircuitBreakerTriggered reports whether drawdown from the high-water
// mark has reached maxDrawdownFraction, marking open positions at the given
// bar's prices (carry-forward fills any gaps). The caller stops opening new
// positions once triggered; order checks keep running so open positions
// still respect their stops.
func (p *Portfolio) IsCircuitBreakerTriggered(prices map[string]float64, maxDrawdownFraction float64) bool {
	if p.peakEquity <= 0 {
		return false
	}
	equity := p.ComputeEquity(prices)
	return (p.peakEquity-equity)/p.peakEquity >= maxDrawdownFraction
}
