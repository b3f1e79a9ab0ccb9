package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/domain"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/observability"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/pricedata"
	sig "github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/signal"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/storage"
	chstore "github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/storage/clickhouse"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/storage/memory"
	pgstore "github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/storage/postgres"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/sweep"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Sweep YAML definition (required)")
	dataDir := flag.String("data-dir", "", "Bar CSV directory, overrides the config's data_dir")
	sweepID := flag.String("sweep-id", "", "Sweep identifier, generated when empty")
	sensitivity := flag.Float64("sensitivity", 0.05, "Momentum sensitivity: fractional deviation from the window mean that saturates the score")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	persistResults := flag.Bool("persist", false, "Persist runs, trades and equity curves to storage")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[sweep] ", log.LstdFlags)

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Printf("metrics server: %v", err)
			}
		}()
	}

	if *configPath == "" {
		logger.Fatal("--config is required")
	}

	cfg, err := sweep.LoadConfig(*configPath)
	if err != nil {
		logger.Fatalf("load sweep config: %v", err)
	}

	dir := cfg.DataDir
	if *dataDir != "" {
		dir = *dataDir
	}
	if dir == "" {
		logger.Fatal("no data directory: set data_dir in the config or pass --data-dir")
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
	data, err := pricedata.LoadDir(dir)
	if err != nil {
		logger.Fatalf("load market data: %v", err)
	}
	logger.Printf("Loaded %d tokens over %d bars", len(data.Series), data.Bars())

	configs := cfg.Grid.Expand(cfg.BaseConfig())
	logger.Printf("Sweeping %d grid points with %d workers", len(configs), cfg.Workers)

	runner, err := sweep.NewRunner(cfg.Workers, func() sig.Source {
		return sig.NewMomentumSource(*sensitivity)
	})
	if err != nil {
		logger.Fatalf("create runner: %v", err)
	}

	started := time.Now()
	results, err := runner.Run(ctx, *sweepID, configs, data)
	if err != nil {
		logger.Fatalf("sweep failed: %v", err)
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			logger.Printf("grid point %s failed: %v", res.Config.StrategyID, res.Err)
		}
	}
	observability.RecordSweep(len(results), failed, time.Since(started).Seconds())
	logger.Printf("Sweep %s finished: %d ok, %d failed in %s",
		results[0].SweepID, len(results)-failed, failed, time.Since(started).Round(time.Millisecond))

	if *persistResults {
		if err := persist(ctx, logger, results, *postgresDSN, *clickhouseDSN); err != nil {
			logger.Fatalf("persist results: %v", err)
		}
	}

	printSummary(results)
}

// persist writes every successful run to storage: summaries and trades to
// PostgreSQL, equity curves to ClickHouse.
func persist(ctx context.Context, logger *log.Logger, results []sweep.Result, postgresDSN, clickhouseDSN string) error {
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
		logger.Print("no --postgres-dsn: run summaries and trades stay in memory")
	}

	if clickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, clickhouseDSN)
		if err != nil {
			return fmt.Errorf("connect to clickhouse: %w", err)
		}
		defer conn.Close()
		curveStore = chstore.NewEquityCurveStore(conn)
	} else {
		logger.Print("no --clickhouse-dsn: equity curves stay in memory")
	}

	createdAt := time.Now().UnixMilli()
	persisted := 0
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		record := domain.RunRecordFrom(res.Run, res.SweepID, createdAt)
		if err := runStore.Insert(ctx, record); err != nil {
			return fmt.Errorf("insert run %s: %w", res.Run.RunID, err)
		}
		if err := tradeStore.InsertBulk(ctx, res.Run.Trades); err != nil {
			return fmt.Errorf("insert trades for %s: %w", res.Run.RunID, err)
		}
		if err := curveStore.InsertBulk(ctx, res.Run.EquityCurve); err != nil {
			return fmt.Errorf("insert equity curve for %s: %w", res.Run.RunID, err)
		}
		persisted++
	}

	logger.Printf("Persisted %d runs", persisted)
	return nil
}

// printSummary outputs one line per grid point, best return first shown by
// scanning; the full ordering stays config order for reproducible diffs.
func printSummary(results []sweep.Result) {
	fmt.Println()
	fmt.Println("=== Sweep Results ===")

	best := -1
	for i, res := range results {
		if res.Err != nil {
			fmt.Printf("%-40s FAILED: %v\n", res.Config.StrategyID, res.Err)
			continue
		}
		rep := res.Run.Report
		fmt.Printf("%-40s return=%7.2f%% cagr=%7.2f%% maxdd=%6.2f%% trades=%3d winrate=%5.1f%%\n",
			res.Config.StrategyID, rep.TotalReturn*100, rep.CAGR*100,
			rep.MaxDrawdown*100, rep.Trades.TotalTrades, rep.Trades.WinRate*100)
		if best < 0 || rep.TotalReturn > results[best].Run.Report.TotalReturn {
			best = i
		}
	}

	if best >= 0 {
		fmt.Println()
		fmt.Printf("Best grid point: %s (%.2f%%)\n",
			results[best].Config.StrategyID, results[best].Run.Report.TotalReturn*100)
	}
}
