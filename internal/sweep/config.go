package sweep

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/backtest"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/domain"
)

// FileConfig is the on-disk sweep definition: one base strategy config plus
// the grid of parameter overrides to fan out over.
type FileConfig struct {
	StrategyID     string  `yaml:"strategy_id"`
	InitialCapital float64 `yaml:"initial_capital"`
	Workers        int     `yaml:"workers"`
	DataDir        string  `yaml:"data_dir"`

	Execution domain.ExecutionConfig `yaml:"execution"`
	Risk      domain.RiskConfig      `yaml:"risk"`
	Signal    domain.SignalConfig    `yaml:"signal"`
	ATRPeriod int                    `yaml:"atr_period"`

	Grid Grid `yaml:"grid"`
}

// BaseConfig builds the backtest config every grid point starts from.
func (f *FileConfig) BaseConfig() backtest.Config {
	return backtest.Config{
		StrategyID:     f.StrategyID,
		InitialCapital: f.InitialCapital,
		Execution:      f.Execution,
		Risk:           f.Risk,
		Signal:         f.Signal,
		ATRPeriod:      f.ATRPeriod,
	}
}

// LoadConfig reads and validates a sweep definition from a YAML file.
func LoadConfig(path string) (*FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &FileConfig{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	base := cfg.BaseConfig()
	if err := base.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
