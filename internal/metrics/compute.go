// Package metrics derives performance statistics from a finished run's
// equity curve and closed-trade ledger. Pure functions over recorded data;
// nothing here mutates portfolio state.
package metrics

import (
	"math"
	"sort"

	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/domain"
)

const (
	daysPerYear = 365.0
	msPerDay    = 86_400_000.0
)

// ComputeReport builds the full performance report for one run. The market
// data is used only for the equal-weight buy-and-hold benchmark and the bar
// spacing estimate; pass the same data the run was executed over.
func ComputeReport(initialCapital float64, curve []*domain.EquityPoint, trades []*domain.ClosedTrade, data *domain.MarketData) *domain.PerformanceReport {
	report := &domain.PerformanceReport{
		InitialCapital: initialCapital,
		FinalEquity:    initialCapital,
		Bars:           int64(len(curve)),
		Trades:         ComputeTradeStats(trades),
	}
	if len(curve) == 0 {
		return report
	}

	report.FinalEquity = curve[len(curve)-1].Equity
	if initialCapital > 0 {
		report.TotalReturn = (report.FinalEquity - initialCapital) / initialCapital
	}

	report.DurationDays = float64(curve[len(curve)-1].TimestampMs-curve[0].TimestampMs) / msPerDay
	report.CAGR = cagr(initialCapital, report.FinalEquity, report.DurationDays)

	report.DrawdownCurve = DrawdownCurve(curve)
	report.MaxDrawdown, report.LongestUnderwaterBars = drawdownExtremes(report.DrawdownCurve)

	report.BarsPerYear = barsPerYear(data, curve)
	returns := barReturns(curve)
	report.AnnualizedVolatility = stddev(returns) * math.Sqrt(report.BarsPerYear)
	report.DownsideDeviation = downsideDeviation(returns) * math.Sqrt(report.BarsPerYear)

	report.BuyAndHoldReturn = BuyAndHoldReturn(data)
	report.ExcessReturn = report.TotalReturn - report.BuyAndHoldReturn

	return report
}

// cagr annualizes the total return over the run's calendar span. Runs shorter
// than one day report 0: annualizing hours of data produces absurd figures.
func cagr(initial, final, durationDays float64) float64 {
	if durationDays < 1 || initial <= 0 {
		return 0
	}
	if final <= 0 {
		return -1
	}
	years := durationDays / daysPerYear
	return math.Pow(final/initial, 1/years) - 1
}

// DrawdownCurve returns the per-point drawdown fraction from the running
// high-water mark. Every value is in [0, 1].
func DrawdownCurve(curve []*domain.EquityPoint) []float64 {
	drawdowns := make([]float64, len(curve))
	peak := math.Inf(-1)
	for i, point := range curve {
		if point.Equity > peak {
			peak = point.Equity
		}
		if peak > 0 {
			drawdowns[i] = (peak - point.Equity) / peak
		}
	}
	return drawdowns
}

// drawdownExtremes returns the worst drawdown and the longest contiguous run
// of points spent below a prior peak.
func drawdownExtremes(drawdowns []float64) (float64, int64) {
	var worst float64
	var longest, current int64
	for _, dd := range drawdowns {
		if dd > worst {
			worst = dd
		}
		if dd > 0 {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 0
		}
	}
	return worst, longest
}

// barsPerYear estimates annualization from the median bar spacing, which is
// robust to a few irregular gaps in the grid. Falls back to the equity curve
// timestamps, then to daily bars.
func barsPerYear(data *domain.MarketData, curve []*domain.EquityPoint) float64 {
	var timestamps []int64
	if data != nil && len(data.Timestamps) >= 2 {
		timestamps = data.Timestamps
	} else if len(curve) >= 2 {
		timestamps = make([]int64, len(curve))
		for i, point := range curve {
			timestamps[i] = point.TimestampMs
		}
	} else {
		return daysPerYear
	}

	spacings := make([]int64, 0, len(timestamps)-1)
	for i := 1; i < len(timestamps); i++ {
		spacings = append(spacings, timestamps[i]-timestamps[i-1])
	}
	sort.Slice(spacings, func(i, j int) bool { return spacings[i] < spacings[j] })
	median := spacings[len(spacings)/2]
	if median <= 0 {
		return daysPerYear
	}
	return daysPerYear * msPerDay / float64(median)
}

func barReturns(curve []*domain.EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev <= 0 {
			continue
		}
		returns = append(returns, curve[i].Equity/prev-1)
	}
	return returns
}

// stddev is the population standard deviation.
func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}

// downsideDeviation is the standard deviation of the negative-return subset
// only; positive and zero returns are excluded entirely.
func downsideDeviation(values []float64) float64 {
	var negatives []float64
	for _, v := range values {
		if v < 0 {
			negatives = append(negatives, v)
		}
	}
	return stddev(negatives)
}

// ComputeTradeStats summarizes the closed-trade ledger. Breakeven trades
// count toward the total but are neither wins nor losses.
func ComputeTradeStats(trades []*domain.ClosedTrade) domain.TradeStats {
	stats := domain.TradeStats{TotalTrades: len(trades)}
	if len(trades) == 0 {
		return stats
	}

	var grossWin, grossLoss float64
	for _, trade := range trades {
		switch {
		case trade.PnL > 0:
			stats.Wins++
			grossWin += trade.PnL
			if trade.PnL > stats.LargestWin {
				stats.LargestWin = trade.PnL
			}
		case trade.PnL < 0:
			stats.Losses++
			grossLoss += -trade.PnL
			if -trade.PnL > stats.LargestLoss {
				stats.LargestLoss = -trade.PnL
			}
		}
	}

	stats.WinRate = float64(stats.Wins) / float64(stats.TotalTrades)
	if stats.Wins > 0 {
		stats.AverageWin = grossWin / float64(stats.Wins)
	}
	if stats.Losses > 0 {
		stats.AverageLoss = grossLoss / float64(stats.Losses)
	}

	switch {
	case grossLoss > 0:
		stats.ProfitFactor = grossWin / grossLoss
	case grossWin > 0:
		stats.ProfitFactor = math.Inf(1)
	}

	stats.Expectancy = stats.WinRate*stats.AverageWin - (1-stats.WinRate)*stats.AverageLoss
	return stats
}

// BuyAndHoldReturn is the equal-weight benchmark: buy every token at its
// first available price, hold without rebalancing, value at the last
// available price. Tokens with no bars at all are excluded from the basket.
func BuyAndHoldReturn(data *domain.MarketData) float64 {
	if data == nil {
		return 0
	}

	var sum float64
	var counted int
	for _, bars := range data.Series {
		first, last := firstLastPrice(bars)
		if first <= 0 {
			continue
		}
		sum += last/first - 1
		counted++
	}
	if counted == 0 {
		return 0
	}
	return sum / float64(counted)
}

func firstLastPrice(bars []*domain.PriceBar) (float64, float64) {
	var first, last float64
	for _, bar := range bars {
		if bar == nil {
			continue
		}
		if first == 0 {
			first = bar.Price
		}
		last = bar.Price
	}
	return first, last
}
