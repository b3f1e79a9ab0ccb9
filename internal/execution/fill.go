// Package execution models order fills: slippage and fees applied to a
// quoted market price. Pure and deterministic; it never touches a network.
package execution

import (
	"math"

	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/domain"
)

// FillSimulator converts (market price, notional) into (fill price, fees)
// under an immutable ExecutionConfig. Stateless.
type FillSimulator struct {
	cfg domain.ExecutionConfig
}

// NewFillSimulator creates a fill simulator. The config must already be
// validated; construction does not re-check it.
func NewFillSimulator(cfg domain.ExecutionConfig) *FillSimulator {
	return &FillSimulator{cfg: cfg}
}

// SlippageFraction returns the fractional price deviation for a trade of
// notionalUsd. Fixed model: constant bps. Sqrt-impact model: base slippage
// scaled by sqrt(notional/referenceLiquidity).
func (f *FillSimulator) SlippageFraction(notionalUsd float64) float64 {
	base := f.cfg.FixedSlippageBps / 10000
	if f.cfg.SlippageModel == domain.SlippageSqrtImpact {
		return base * math.Sqrt(notionalUsd/f.cfg.ReferenceLiquidityUSD)
	}
	return base
}

// Fees returns total fees for a trade of notionalUsd: the proportional swap
// fee plus the flat gas component, which is independent of size.
func (f *FillSimulator) Fees(notionalUsd float64) float64 {
	return notionalUsd*f.cfg.SwapFeeBps/10000 + f.cfg.GasPerTradeUSD
}

// SimulateBuy returns the fill price and fees for buying notionalUsd at
// marketPrice. Buys fill above market. Callers supply non-negative notional.
func (f *FillSimulator) SimulateBuy(marketPrice, notionalUsd float64) (fillPrice, fees float64) {
	fillPrice = marketPrice * (1 + f.SlippageFraction(notionalUsd))
	fees = f.Fees(notionalUsd)
	return fillPrice, fees
}

// SimulateSell returns the fill price and fees for selling notionalUsd at
// marketPrice. Sells fill below market.
func (f *FillSimulator) SimulateSell(marketPrice, notionalUsd float64) (fillPrice, fees float64) {
	fillPrice = marketPrice * (1 - f.SlippageFraction(notionalUsd))
	fees = f.Fees(notionalUsd)
	return fillPrice, fees
}
