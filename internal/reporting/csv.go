package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders run rows as CSV with a header line.
func RenderCSV(rows []RunRow) string {
	var b strings.Builder

	b.WriteString("run_id,strategy_id,sweep_id,initial_capital,final_equity,total_return,cagr,max_drawdown,total_trades,win_rate,buy_and_hold_return,excess_return,circuit_breaker_fired\n")
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("%s,%s,%s,%.6f,%.6f,%.6f,%.6f,%.6f,%d,%.6f,%.6f,%.6f,%t\n",
			row.RunID, row.StrategyID, row.SweepID,
			row.InitialCapital, row.FinalEquity, row.TotalReturn, row.CAGR, row.MaxDrawdown,
			row.TotalTrades, row.WinRate, row.BuyAndHoldReturn, row.ExcessReturn, row.CircuitBreakerFired))
	}

	return b.String()
}
