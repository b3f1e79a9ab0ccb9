package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/backtest"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/domain"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/observability"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/pricedata"
	sig "github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/signal"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/storage"
	chstore "github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/storage/clickhouse"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/storage/memory"
	pgstore "github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/storage/postgres"
)

func main() {
	// Parse flags
	dataDir := flag.String("data-dir", "", "Directory of per-token bar CSV files (required)")
	strategyID := flag.String("strategy-id", "momentum", "Strategy identifier")
	initialCapital := flag.Float64("initial-capital", 10_000, "Starting capital in quote units")

	// Execution parameters
	scenarioName := flag.String("scenario", "realistic", "Execution scenario: tight, realistic, thin-liquidity")

	// Risk parameters
	stopLossATR := flag.Float64("stop-loss-atr", 2, "Stop distance as an ATR multiple")
	takeProfitATR := flag.Float64("take-profit-atr", 4, "Take-profit distance as an ATR multiple")
	trailActivation := flag.Float64("trail-activation-pct", 0.05, "Unrealized gain fraction that arms the trailing stop")
	trailDistance := flag.Float64("trail-distance-pct", 0.03, "Trailing stop distance as a fraction of the extreme price")
	maxPositionFraction := flag.Float64("max-position-fraction", 0.25, "Max equity fraction per position")
	maxOpenPositions := flag.Int("max-open-positions", 5, "Max concurrent open positions")
	maxDrawdown := flag.Float64("max-drawdown", 0.3, "Circuit breaker drawdown fraction")

	// Signal parameters
	lookbackBars := flag.Int("lookback-bars", 20, "Signal lookback window in bars")
	equityFraction := flag.Float64("equity-fraction", 0.1, "Equity fraction per entry")
	longEntry := flag.Float64("long-entry", 70, "Score at or above which to open a long")
	shortEntry := flag.Float64("short-entry", 30, "Score at or below which to open a short")
	exitBand := flag.Float64("exit-band", 5, "Distance past neutral that exits on signal")
	sensitivity := flag.Float64("sensitivity", 0.05, "Momentum sensitivity: fractional deviation from the window mean that saturates the score")
	atrPeriod := flag.Int("atr-period", backtest.DefaultATRPeriod, "ATR period for stop sizing")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	persistResult := flag.Bool("persist", false, "Persist run, trades and equity curve to storage")

	// Output
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

	if *dataDir == "" {
		logger.Fatal("--data-dir is required")
	}

	execution := executionConfig(*scenarioName)
	if execution == nil {
		logger.Fatalf("Invalid scenario: %s. Must be tight, realistic, or thin-liquidity", *scenarioName)
	}

	cfg := backtest.Config{
		StrategyID:     *strategyID,
		InitialCapital: *initialCapital,
		Execution:      *execution,
		Risk: domain.RiskConfig{
			StopLossATR:               *stopLossATR,
			TakeProfitATR:             *takeProfitATR,
			TrailingActivationPct:     *trailActivation,
			TrailingDistancePct:       *trailDistance,
			MaxPositionEquityFraction: *maxPositionFraction,
			MaxOpenPositions:          *maxOpenPositions,
			MaxDrawdownFraction:       *maxDrawdown,
		},
		Signal: domain.SignalConfig{
			LookbackBars:   *lookbackBars,
			EquityFraction: *equityFraction,
			LongEntry:      *longEntry,
			ShortEntry:     *shortEntry,
			ExitBand:       *exitBand,
		},
		ATRPeriod: *atrPeriod,
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigCh
		logger.Printf("Received signal %v, shutting down...", s)
		cancel()
	}()

	// Load market data
	data, err := pricedata.LoadDir(*dataDir)
	if err != nil {
		logger.Fatalf("load market data: %v", err)
	}
	logger.Printf("Loaded %d tokens over %d bars", len(data.Series), data.Bars())

	engine, err := backtest.NewEngine(cfg, sig.NewMomentumSource(*sensitivity))
	if err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	started := time.Now()
	result, err := engine.Run(ctx, data)
	if err != nil {
		observability.RecordRun("error", time.Since(started).Seconds(), data.Bars())
		logger.Fatalf("backtest failed: %v", err)
	}
	observability.RecordRun("ok", time.Since(started).Seconds(), data.Bars())
	if result.CircuitBreakerFired {
		observability.RecordCircuitBreaker()
	}
	for _, trade := range result.Trades {
		observability.RecordTradeClosed(trade.ExitReason)
	}

	if *persistResult {
		if err := persist(ctx, logger, result, *postgresDSN, *clickhouseDSN); err != nil {
			logger.Fatalf("persist result: %v", err)
		}
	}

	// Output result
	if *outputJSON {
		output, _ := json.MarshalIndent(result.Report, "", "  ")
		fmt.Println(string(output))
	} else {
		printResult(result)
	}
}

// executionConfig returns the predefined execution config by scenario name.
func executionConfig(name string) *domain.ExecutionConfig {
	switch strings.ToLower(name) {
	case "tight":
		return &domain.ExecutionConfigTight
	case "realistic":
		return &domain.ExecutionConfigRealistic
	case "thin-liquidity":
		return &domain.ExecutionConfigThinLiquidity
	default:
		return nil
	}
}

// persist writes the run summary and trades to PostgreSQL and the equity
// curve to ClickHouse. Without DSNs it falls back to in-memory stores, which
// only validates the write path.
func persist(ctx context.Context, logger *log.Logger, result *domain.BacktestResult, postgresDSN, clickhouseDSN string) error {
	var runStore storage.RunStore = memory.NewRunStore()
	var tradeStore storage.TradeStore = memory.NewTradeStore()
	var curveStore storage.EquityCurveStore = memory.NewEquityCurveStore()

	if postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()
		runStore = pgstore.NewRunStore(pool)
		tradeStore = pgstore.NewTradeStore(pool)
	} else {
		logger.Print("no --postgres-dsn: run summary and trades stay in memory")
	}

	if clickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, clickhouseDSN)
		if err != nil {
			return fmt.Errorf("connect to clickhouse: %w", err)
		}
		defer conn.Close()
		curveStore = chstore.NewEquityCurveStore(conn)
	} else {
		logger.Print("no --clickhouse-dsn: equity curve stays in memory")
	}

	record := domain.RunRecordFrom(result, "", time.Now().UnixMilli())
	if err := runStore.Insert(ctx, record); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	if err := tradeStore.InsertBulk(ctx, result.Trades); err != nil {
		return fmt.Errorf("insert trades: %w", err)
	}
	if err := curveStore.InsertBulk(ctx, result.EquityCurve); err != nil {
		return fmt.Errorf("insert equity curve: %w", err)
	}

	logger.Printf("Persisted run %s: %d trades, %d equity points",
		result.RunID, len(result.Trades), len(result.EquityCurve))
	return nil
}

// printResult outputs a human-readable run summary.
func printResult(r *domain.BacktestResult) {
	rep := r.Report

	fmt.Println()
	fmt.Println("=== Backtest Result ===")
	fmt.Printf("Run ID:             %s\n", r.RunID)
	fmt.Printf("Strategy:           %s\n", r.StrategyID)
	fmt.Printf("Bars:               %d (%.1f days)\n", rep.Bars, rep.DurationDays)
	fmt.Println()
	fmt.Printf("Initial Capital:    %.2f\n", rep.InitialCapital)
	fmt.Printf("Final Equity:       %.2f\n", rep.FinalEquity)
	fmt.Printf("Total Return:       %.2f%%\n", rep.TotalReturn*100)
	fmt.Printf("CAGR:               %.2f%%\n", rep.CAGR*100)
	fmt.Printf("Buy & Hold:         %.2f%%\n", rep.BuyAndHoldReturn*100)
	fmt.Printf("Excess Return:      %.2f%%\n", rep.ExcessReturn*100)
	fmt.Println()
	fmt.Printf("Max Drawdown:       %.2f%%\n", rep.MaxDrawdown*100)
	fmt.Printf("Underwater Bars:    %d\n", rep.LongestUnderwaterBars)
	fmt.Printf("Ann. Volatility:    %.2f%%\n", rep.AnnualizedVolatility*100)
	fmt.Printf("Downside Dev:       %.2f%%\n", rep.DownsideDeviation*100)
	fmt.Println()
	fmt.Printf("Trades:             %d (%d wins / %d losses)\n", rep.Trades.TotalTrades, rep.Trades.Wins, rep.Trades.Losses)
	fmt.Printf("Win Rate:           %.2f%%\n", rep.Trades.WinRate*100)
	fmt.Printf("Profit Factor:      %.2f\n", rep.Trades.ProfitFactor)
	fmt.Printf("Expectancy:         %.2f\n", rep.Trades.Expectancy)
	if r.CircuitBreakerFired {
		fmt.Println()
		fmt.Println("Circuit breaker fired: entries halted after the drawdown limit")
	}
}
