package backtest

import (
	"context"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/domain"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/observability"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/signal"
)

const barMs = int64(1000)

func dataOf(series map[string][]float64) *domain.MarketData {
	var n int
	for _, prices := range series {
		n = len(prices)
		break
	}

	data := &domain.MarketData{
		Timestamps: make([]int64, n),
		Series:     make(map[string][]*domain.PriceBar, len(series)),
		Symbols:    make(map[string]string, len(series)),
	}
	for i := range data.Timestamps {
		data.Timestamps[i] = int64(i) * barMs
	}
	for token, prices := range series {
		bars := make([]*domain.PriceBar, n)
		for i, price := range prices {
			if price > 0 {
				bars[i] = &domain.PriceBar{TimestampMs: data.Timestamps[i], Price: price}
			}
		}
		data.Series[token] = bars
		data.Symbols[token] = token
	}
	return data
}

func testConfig() Config {
	return Config{
		StrategyID:     "momentum-test",
		InitialCapital: 10000,
		Execution:      domain.ExecutionConfig{SlippageModel: domain.SlippageFixed},
		Risk: domain.RiskConfig{
			StopLossATR:               10,
			TakeProfitATR:             20,
			TrailingActivationPct:     0.05,
			TrailingDistancePct:       0.03,
			MaxPositionEquityFraction: 0.5,
			MaxOpenPositions:          5,
			MaxDrawdownFraction:       0.5,
		},
		Signal: domain.SignalConfig{
			LookbackBars:   3,
			EquityFraction: 0.2,
			LongEntry:      70,
			ShortEntry:     30,
			ExitBand:       5,
		},
		ATRPeriod: 2,
	}
}

func TestNewEngine_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.InitialCapital = 0
	if _, err := NewEngine(cfg, signal.NewScriptSource(nil)); err == nil {
		t.Error("expected error for non-positive capital")
	}

	cfg = testConfig()
	cfg.Signal.LookbackBars = 0
	if _, err := NewEngine(cfg, signal.NewScriptSource(nil)); err == nil {
		t.Error("expected error for invalid signal config")
	}

	if _, err := NewEngine(testConfig(), nil); err == nil {
		t.Error("expected error for nil signal source")
	}
}

func TestRun_LongRoundTripOnSignal(t *testing.T) {
	data := dataOf(map[string][]float64{
		"tok": {100, 101, 102, 103, 104, 105, 104, 103, 102, 101},
	})
	source := signal.NewScriptSource(map[int64]float64{
		3 * barMs: 80, // enter long at bar 3
		6 * barMs: 40, // exit on signal at bar 6
	})

	engine, err := NewEngine(testConfig(), source)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	result, err := engine.Run(context.Background(), data)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(result.Trades))
	}
	trade := result.Trades[0]
	if trade.Direction != domain.DirectionLong {
		t.Errorf("expected long trade, got %s", trade.Direction)
	}
	if trade.ExitReason != domain.ExitReasonSignalExit {
		t.Errorf("expected signal exit, got %s", trade.ExitReason)
	}
	if trade.EntryPrice != 103 {
		t.Errorf("expected frictionless entry at 103, got %v", trade.EntryPrice)
	}
	if trade.ExitPrice != 104 {
		t.Errorf("expected exit at bar-6 price 104, got %v", trade.ExitPrice)
	}
	if trade.PnL <= 0 {
		t.Errorf("expected a winning round trip, got %v", trade.PnL)
	}

	if len(result.EquityCurve) != data.Bars() {
		t.Errorf("expected one equity point per bar, got %d", len(result.EquityCurve))
	}
	if result.Report == nil {
		t.Fatal("expected a populated report")
	}
	if result.CircuitBreakerFired {
		t.Error("circuit breaker must not fire in this scenario")
	}
}

func TestRun_NoEntriesBeforeFullLookback(t *testing.T) {
	data := dataOf(map[string][]float64{
		"tok": {100, 101, 102, 103, 104, 105, 106, 107},
	})
	source := signal.NewScriptSource(nil)
	source.Default = 90 // always long

	cfg := testConfig()
	cfg.Signal.LookbackBars = 5

	engine, err := NewEngine(cfg, source)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	result, err := engine.Run(context.Background(), data)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Trades) == 0 {
		t.Fatal("expected at least one trade")
	}
	// The first full 5-bar window ends at bar index 4.
	for _, trade := range result.Trades {
		openedAt := trade.ExitMs/barMs - int64(trade.DurationBars)
		if openedAt < 4 {
			t.Errorf("trade opened at bar %d, before the lookback window filled", openedAt)
		}
	}
}

// Mutating bars after index 4 must not change any decision made at or before
// index 4: entries, fills and the equity prefix are all identical.
func TestRun_NoLookahead(t *testing.T) {
	base := []float64{100, 101, 102, 103, 104, 105, 104, 103, 102, 101}
	mutated := make([]float64, len(base))
	copy(mutated, base)
	for i := 5; i < len(mutated); i++ {
		mutated[i] = base[i] * 10
	}

	scores := map[int64]float64{3 * barMs: 80, 6 * barMs: 40}

	run := func(prices []float64) *domain.BacktestResult {
		engine, err := NewEngine(testConfig(), signal.NewScriptSource(scores))
		if err != nil {
			t.Fatalf("NewEngine failed: %v", err)
		}
		result, err := engine.Run(context.Background(), dataOf(map[string][]float64{"tok": prices}))
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		return result
	}

	a := run(base)
	b := run(mutated)

	if len(a.Trades) == 0 || len(b.Trades) == 0 {
		t.Fatal("both runs should trade")
	}
	ta, tb := a.Trades[0], b.Trades[0]
	if ta.EntryPrice != tb.EntryPrice || ta.EntryMs != tb.EntryMs || ta.Size != tb.Size {
		t.Errorf("entry decided before the mutation diverged: %+v vs %+v", ta, tb)
	}

	for i := 0; i < 5; i++ {
		if a.EquityCurve[i].Equity != b.EquityCurve[i].Equity {
			t.Errorf("equity prefix diverged at bar %d: %v vs %v", i, a.EquityCurve[i].Equity, b.EquityCurve[i].Equity)
		}
	}
}

func TestRun_CircuitBreakerBlocksNewEntries(t *testing.T) {
	series := map[string][]float64{
		"a": {100, 101, 102, 80, 80, 80, 80, 80},
		// Flat start: zero ATR keeps "b" from entering on the bar-2 score.
		"b": {50, 50, 50, 51, 50, 51, 50, 51},
	}
	scores := map[int64]float64{
		2 * barMs: 80, // long "a" just before the crash ("b" also sees this, same bar)
		4 * barMs: 90, // would long "b" here without the breaker
		5 * barMs: 90,
	}

	run := func(maxDD float64) *domain.BacktestResult {
		cfg := testConfig()
		cfg.Risk.StopLossATR = 50 // keep the crash from hitting the stop
		cfg.Risk.TakeProfitATR = 100
		cfg.Risk.MaxPositionEquityFraction = 0.5
		cfg.Signal.EquityFraction = 0.5
		cfg.Risk.MaxDrawdownFraction = maxDD

		engine, err := NewEngine(cfg, signal.NewScriptSource(scores))
		if err != nil {
			t.Fatalf("NewEngine failed: %v", err)
		}
		result, err := engine.Run(context.Background(), dataOf(series))
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		return result
	}

	control := run(1.0)
	breakered := run(0.1)

	if control.CircuitBreakerFired {
		t.Error("control run must not trip the breaker")
	}
	if !hasTradeFor(control, "b") {
		t.Fatal("control run should have entered token b")
	}

	if !breakered.CircuitBreakerFired {
		t.Error("breaker should trip after the crash")
	}
	if hasTradeFor(breakered, "b") {
		t.Error("no new entries after the breaker fires")
	}
	// The crashed position is still managed and force-closed at the end.
	if !hasTradeFor(breakered, "a") {
		t.Error("existing position must still be closed out")
	}
}

func hasTradeFor(result *domain.BacktestResult, token string) bool {
	for _, trade := range result.Trades {
		if trade.Token == token {
			return true
		}
	}
	return false
}

func TestRun_ForcedCloseOnLastBar(t *testing.T) {
	data := dataOf(map[string][]float64{
		"tok": {100, 101, 102, 103, 104, 105},
	})
	source := signal.NewScriptSource(map[int64]float64{3 * barMs: 80})

	engine, err := NewEngine(testConfig(), source)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	result, err := engine.Run(context.Background(), data)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Trades) != 1 {
		t.Fatalf("expected 1 forced close, got %d", len(result.Trades))
	}
	if result.Trades[0].ExitReason != domain.ExitReasonForcedClose {
		t.Errorf("expected forced close, got %s", result.Trades[0].ExitReason)
	}

	// The run ends fully in cash: final equity == initial + realized PnL.
	final := result.EquityCurve[len(result.EquityCurve)-1]
	if final.OpenCount != 0 {
		t.Errorf("expected no open positions at the end, got %d", final.OpenCount)
	}
	var realized float64
	for _, trade := range result.Trades {
		realized += trade.PnL
	}
	if math.Abs(final.Equity-(result.InitialCapital+realized)) > 1e-6 {
		t.Errorf("final equity %v != initial %v + realized %v", final.Equity, result.InitialCapital, realized)
	}
}

func TestRun_ConservationWithFees(t *testing.T) {
	data := dataOf(map[string][]float64{
		"tok": {100, 101, 102, 103, 104, 105, 104, 103, 102, 101},
	})
	source := signal.NewScriptSource(map[int64]float64{
		3 * barMs: 80,
		6 * barMs: 40,
	})

	cfg := testConfig()
	cfg.Execution = domain.ExecutionConfigRealistic

	engine, err := NewEngine(cfg, source)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	result, err := engine.Run(context.Background(), data)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var realized float64
	for _, trade := range result.Trades {
		realized += trade.PnL
	}
	final := result.EquityCurve[len(result.EquityCurve)-1]
	if math.Abs(final.Equity-(result.InitialCapital+realized)) > 1e-6 {
		t.Errorf("conservation violated with fees: final %v, initial+realized %v", final.Equity, result.InitialCapital+realized)
	}
}

func TestRun_DeterministicAcrossRepeats(t *testing.T) {
	series := map[string][]float64{
		"a": {100, 101, 102, 103, 104, 105, 104, 103},
		"b": {50, 51, 52, 51, 50, 51, 52, 51},
	}
	scores := map[int64]float64{3 * barMs: 80, 6 * barMs: 40}

	run := func() *domain.BacktestResult {
		engine, err := NewEngine(testConfig(), signal.NewScriptSource(scores))
		if err != nil {
			t.Fatalf("NewEngine failed: %v", err)
		}
		result, err := engine.Run(context.Background(), dataOf(series))
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		return result
	}

	first := run()
	second := run()

	if first.RunID != second.RunID {
		t.Errorf("run ids diverged: %s vs %s", first.RunID, second.RunID)
	}
	if len(first.Trades) != len(second.Trades) {
		t.Fatalf("trade counts diverged: %d vs %d", len(first.Trades), len(second.Trades))
	}
	for i := range first.Trades {
		if first.Trades[i].TradeID != second.Trades[i].TradeID || first.Trades[i].PnL != second.Trades[i].PnL {
			t.Errorf("trade %d diverged between identical runs", i)
		}
	}
	for i := range first.EquityCurve {
		if first.EquityCurve[i].Equity != second.EquityCurve[i].Equity {
			t.Errorf("equity point %d diverged between identical runs", i)
		}
	}
}

func TestRun_GapBarsSkipDecisions(t *testing.T) {
	data := dataOf(map[string][]float64{
		"tok": {100, 101, 102, 103, 0, 0, 104, 103, 102, 101}, // gaps at bars 4-5
	})
	source := signal.NewScriptSource(map[int64]float64{3 * barMs: 80, 6 * barMs: 40})

	engine, err := NewEngine(testConfig(), source)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	result, err := engine.Run(context.Background(), data)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Position opened at bar 3 survives the gap and still exits at bar 6.
	if len(result.Trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(result.Trades))
	}
	if result.Trades[0].ExitReason != domain.ExitReasonSignalExit {
		t.Errorf("expected signal exit after the gap, got %s", result.Trades[0].ExitReason)
	}

	// Gap bars mark equity at the carried-forward price.
	if result.EquityCurve[4].Equity != result.EquityCurve[3].Equity {
		t.Errorf("gap bar equity %v should match the last marked bar %v", result.EquityCurve[4].Equity, result.EquityCurve[3].Equity)
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine, err := NewEngine(testConfig(), signal.NewScriptSource(nil))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	data := dataOf(map[string][]float64{"tok": {100, 101, 102}})
	if _, err := engine.Run(ctx, data); err == nil {
		t.Error("expected context cancellation error")
	}
}

func TestRun_InvalidMarketData(t *testing.T) {
	engine, err := NewEngine(testConfig(), signal.NewScriptSource(nil))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	if _, err := engine.Run(context.Background(), &domain.MarketData{}); err == nil {
		t.Error("expected error for empty market data")
	}
}

func TestRun_PositionCapRejectionCounted(t *testing.T) {
	data := dataOf(map[string][]float64{
		"a": {100, 101, 102, 103, 104, 105, 106, 107},
		"b": {50, 51, 52, 53, 54, 55, 56, 57},
	})
	source := signal.NewScriptSource(map[int64]float64{3 * barMs: 80})

	cfg := testConfig()
	cfg.Risk.MaxOpenPositions = 1

	engine, err := NewEngine(cfg, source)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	before := testutil.ToFloat64(observability.DefaultMetrics.EntriesRejected)
	result, err := engine.Run(context.Background(), data)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Both tokens signal at bar 3; the position cap admits "a" only, and the
	// rejected "b" entry lands on the counter.
	if len(result.Trades) != 1 {
		t.Fatalf("expected 1 trade under the position cap, got %d", len(result.Trades))
	}
	if result.Trades[0].Token != "a" {
		t.Errorf("expected the first token in order to take the slot, got %s", result.Trades[0].Token)
	}
	if got := testutil.ToFloat64(observability.DefaultMetrics.EntriesRejected); got != before+1 {
		t.Errorf("expected rejected-entry counter %v, got %v", before+1, got)
	}
}
