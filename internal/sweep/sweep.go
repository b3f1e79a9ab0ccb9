// Package sweep runs one strategy configuration per grid point of a
// parameter grid, fanning the runs out over a worker pool while keeping
// the result order deterministic.
package sweep

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/backtest"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/domain"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/signal"
)

// Grid lists candidate values per tunable parameter. Empty slices keep the
// base config's value. Expand takes the cartesian product, so grids multiply.
type Grid struct {
	StopLossATR    []float64 `yaml:"stop_loss_atr"`
	TakeProfitATR  []float64 `yaml:"take_profit_atr"`
	LongEntry      []float64 `yaml:"long_entry"`
	ShortEntry     []float64 `yaml:"short_entry"`
	EquityFraction []float64 `yaml:"equity_fraction"`
	LookbackBars   []int     `yaml:"lookback_bars"`
}

// Expand returns one config per grid point, in deterministic order. Each
// variant's strategy id is the base id plus a parameter suffix, so two grid
// points never collide on run identity.
func (g *Grid) Expand(base backtest.Config) []backtest.Config {
	configs := []backtest.Config{base}

	configs = expandFloat(configs, g.StopLossATR, "sl", func(c *backtest.Config, v float64) { c.Risk.StopLossATR = v })
	configs = expandFloat(configs, g.TakeProfitATR, "tp", func(c *backtest.Config, v float64) { c.Risk.TakeProfitATR = v })
	configs = expandFloat(configs, g.LongEntry, "le", func(c *backtest.Config, v float64) { c.Signal.LongEntry = v })
	configs = expandFloat(configs, g.ShortEntry, "se", func(c *backtest.Config, v float64) { c.Signal.ShortEntry = v })
	configs = expandFloat(configs, g.EquityFraction, "ef", func(c *backtest.Config, v float64) { c.Signal.EquityFraction = v })
	configs = expandInt(configs, g.LookbackBars, "lb", func(c *backtest.Config, v int) { c.Signal.LookbackBars = v })

	return configs
}

func expandFloat(configs []backtest.Config, values []float64, tag string, apply func(*backtest.Config, float64)) []backtest.Config {
	if len(values) == 0 {
		return configs
	}
	out := make([]backtest.Config, 0, len(configs)*len(values))
	for _, cfg := range configs {
		for _, v := range values {
			variant := cfg
			apply(&variant, v)
			variant.StrategyID = fmt.Sprintf("%s/%s=%g", cfg.StrategyID, tag, v)
			variant.RunID = ""
			out = append(out, variant)
		}
	}
	return out
}

func expandInt(configs []backtest.Config, values []int, tag string, apply func(*backtest.Config, int)) []backtest.Config {
	if len(values) == 0 {
		return configs
	}
	out := make([]backtest.Config, 0, len(configs)*len(values))
	for _, cfg := range configs {
		for _, v := range values {
			variant := cfg
			apply(&variant, v)
			variant.StrategyID = fmt.Sprintf("%s/%s=%d", cfg.StrategyID, tag, v)
			variant.RunID = ""
			out = append(out, variant)
		}
	}
	return out
}

// Result pairs one grid point's config with its run outcome. Exactly one of
// Run and Err is set.
type Result struct {
	SweepID string
	Config  backtest.Config
	Run     *domain.BacktestResult
	Err     error
}

// Runner executes a set of configs against one market data set in parallel.
// Each run gets its own signal source from the factory, so sources may carry
// per-run state.
type Runner struct {
	workers       int
	sourceFactory func() signal.Source
}

// NewRunner creates a runner. workers <= 0 means one worker per CPU.
func NewRunner(workers int, sourceFactory func() signal.Source) (*Runner, error) {
	if sourceFactory == nil {
		return nil, fmt.Errorf("signal source factory is required")
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Runner{workers: workers, sourceFactory: sourceFactory}, nil
}

// Run executes every config and returns results in config order regardless
// of worker scheduling. A failed run is reported in its Result rather than
// aborting the rest of the sweep; ctx cancellation aborts everything.
func (r *Runner) Run(ctx context.Context, sweepID string, configs []backtest.Config, data *domain.MarketData) ([]Result, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("no configs to run")
	}
	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("market data: %w", err)
	}
	if sweepID == "" {
		sweepID = uuid.NewString()
	}

	results := make([]Result, len(configs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	wg.Add(r.workers)
	for w := 0; w < r.workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = r.runOne(ctx, sweepID, configs[i], data)
			}
		}()
	}

	for i := range configs {
		select {
		case jobs <- i:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) runOne(ctx context.Context, sweepID string, cfg backtest.Config, data *domain.MarketData) Result {
	res := Result{SweepID: sweepID, Config: cfg}

	engine, err := backtest.NewEngine(cfg, r.sourceFactory())
	if err != nil {
		res.Err = fmt.Errorf("config %s: %w", cfg.StrategyID, err)
		return res
	}
	run, err := engine.Run(ctx, data)
	if err != nil {
		res.Err = fmt.Errorf("run %s: %w", cfg.StrategyID, err)
		return res
	}
	res.Run = run
	return res
}
