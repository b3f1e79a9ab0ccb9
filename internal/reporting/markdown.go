package reporting

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders the report as a markdown document.
func RenderMarkdown(report *Report) string {
	var b strings.Builder

	b.WriteString("# Backtest Report\n\n")
	b.WriteString(fmt.Sprintf("Generated: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC")))
	b.WriteString(fmt.Sprintf("Runs: %d | Strategies: %d\n\n", report.RunCount, report.StrategyCount))

	b.WriteString("## Runs\n\n")
	if len(report.Runs) == 0 {
		b.WriteString("No runs recorded.\n\n")
	} else {
		b.WriteString("| Run | Strategy | Final Equity | Return | CAGR | Max DD | Trades | Win Rate | B&H | Excess | Breaker |\n")
		b.WriteString("|-----|----------|--------------|--------|------|--------|--------|----------|-----|--------|--------|\n")
		for _, row := range report.Runs {
			breaker := ""
			if row.CircuitBreakerFired {
				breaker = "yes"
			}
			b.WriteString(fmt.Sprintf("| %s | %s | %.2f | %.4f | %.4f | %.4f | %d | %.4f | %.4f | %.4f | %s |\n",
				shortID(row.RunID), row.StrategyID, row.FinalEquity, row.TotalReturn, row.CAGR,
				row.MaxDrawdown, row.TotalTrades, row.WinRate, row.BuyAndHoldReturn, row.ExcessReturn, breaker))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Exit Reasons\n\n")
	if len(report.ExitBreakdown) == 0 {
		b.WriteString("No closed trades.\n")
	} else {
		b.WriteString("| Reason | Count | Total PnL |\n")
		b.WriteString("|--------|-------|----------|\n")
		for _, row := range report.ExitBreakdown {
			b.WriteString(fmt.Sprintf("| %s | %d | %.4f |\n", row.Reason, row.Count, row.TotalPnL))
		}
	}

	return b.String()
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
