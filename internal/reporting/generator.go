package reporting

import (
	"context"
	"sort"
	"time"

	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/storage"
)

// Generator produces reports from stored runs and trades.
type Generator struct {
	runStore   storage.RunStore
	tradeStore storage.TradeStore
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(runStore storage.RunStore, tradeStore storage.TradeStore) *Generator {
	return &Generator{
		runStore:   runStore,
		tradeStore: tradeStore,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the report over every stored run.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	runs, err := g.runStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]RunRow, len(runs))
	strategySet := make(map[string]struct{})
	breakdown := make(map[string]*ExitReasonRow)

	for i, run := range runs {
		rows[i] = RunRow{
			RunID:               run.RunID,
			StrategyID:          run.StrategyID,
			SweepID:             run.SweepID,
			InitialCapital:      run.InitialCapital,
			FinalEquity:         run.FinalEquity,
			TotalReturn:         run.TotalReturn,
			CAGR:                run.CAGR,
			MaxDrawdown:         run.MaxDrawdown,
			TotalTrades:         run.TotalTrades,
			WinRate:             run.WinRate,
			BuyAndHoldReturn:    run.BuyAndHoldReturn,
			ExcessReturn:        run.TotalReturn - run.BuyAndHoldReturn,
			CircuitBreakerFired: run.CircuitBreakerFired,
		}
		strategySet[run.StrategyID] = struct{}{}

		trades, err := g.tradeStore.GetByRunID(ctx, run.RunID)
		if err != nil {
			return nil, err
		}
		for _, trade := range trades {
			row := breakdown[trade.ExitReason]
			if row == nil {
				row = &ExitReasonRow{Reason: trade.ExitReason}
				breakdown[trade.ExitReason] = row
			}
			row.Count++
			row.TotalPnL += trade.PnL
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].StrategyID != rows[j].StrategyID {
			return rows[i].StrategyID < rows[j].StrategyID
		}
		return rows[i].RunID < rows[j].RunID
	})

	exitRows := make([]ExitReasonRow, 0, len(breakdown))
	for _, row := range breakdown {
		exitRows = append(exitRows, *row)
	}
	sort.Slice(exitRows, func(i, j int) bool { return exitRows[i].Reason < exitRows[j].Reason })

	return &Report{
		GeneratedAt:   g.now(),
		RunCount:      len(runs),
		StrategyCount: len(strategySet),
		Runs:          rows,
		ExitBreakdown: exitRows,
	}, nil
}
