// Package config loads and validates the full simulation configuration
// from YAML. Every numeric threshold of every stage is externally
// settable; the defaults reproduce the reference strategy parameters.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quantfall/alphasim/internal/alpha"
	"github.com/quantfall/alphasim/internal/backtest"
	"github.com/quantfall/alphasim/internal/execution"
	"github.com/quantfall/alphasim/internal/factors"
	"github.com/quantfall/alphasim/internal/portfolio"
	"github.com/quantfall/alphasim/internal/report/perf"
	"github.com/quantfall/alphasim/internal/signal"
	"github.com/quantfall/alphasim/internal/walkforward"
)

// DataConfig selects the price source.
type DataConfig struct {
	Source      string `yaml:"source"`       // "csv" or "postgres"
	CSVDir      string `yaml:"csv_dir"`      // directory of per-asset CSV files
	PostgresDSN string `yaml:"postgres_dsn"` // connection string when source is postgres
	TimeoutSecs int    `yaml:"timeout_secs"` // database operation timeout
}

// OutputConfig controls artifact and persistence sinks.
type OutputConfig struct {
	Dir             string `yaml:"dir"`              // artifact root directory
	PersistPostgres bool   `yaml:"persist_postgres"` // also write results to postgres
}

// MetricsConfig controls the optional metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Config is the full configuration surface of a simulation run.
type Config struct {
	Data        DataConfig         `yaml:"data"`
	Factors     factors.Config     `yaml:"factors"`
	Alpha       alpha.Config       `yaml:"alpha"`
	Signal      signal.Config      `yaml:"signal"`
	Portfolio   portfolio.Config   `yaml:"portfolio"`
	Execution   execution.Config   `yaml:"execution"`
	Backtest    backtest.Config    `yaml:"backtest"`
	WalkForward walkforward.Config `yaml:"walkforward"`
	Performance perf.Config        `yaml:"performance"`
	Output      OutputConfig       `yaml:"output"`
	Metrics     MetricsConfig      `yaml:"metrics"`
}

// Default returns the reference configuration.
func Default() Config {
	return Config{
		Data: DataConfig{
			Source:      "csv",
			CSVDir:      "data/prices",
			TimeoutSecs: 30,
		},
		Factors:     factors.DefaultConfig(),
		Alpha:       alpha.DefaultConfig(),
		Signal:      signal.DefaultConfig(),
		Portfolio:   portfolio.DefaultConfig(),
		Execution:   execution.DefaultConfig(),
		Backtest:    backtest.DefaultConfig(),
		WalkForward: walkforward.DefaultConfig(),
		Performance: perf.DefaultConfig(),
		Output: OutputConfig{
			Dir: "artifacts",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9180",
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field consistency and numeric ranges.
func (c Config) Validate() error {
	switch c.Data.Source {
	case "csv":
		if c.Data.CSVDir == "" {
			return fmt.Errorf("data.csv_dir is required when data.source is csv")
		}
	case "postgres":
		if c.Data.PostgresDSN == "" {
			return fmt.Errorf("data.postgres_dsn is required when data.source is postgres")
		}
	default:
		return fmt.Errorf("data.source must be csv or postgres, got %q", c.Data.Source)
	}

	if c.Factors.VolWindow < 2 {
		return fmt.Errorf("factors.vol_window must be at least 2, got %d", c.Factors.VolWindow)
	}
	if c.Factors.MomentumLookback < 1 {
		return fmt.Errorf("factors.momentum_lookback must be positive, got %d", c.Factors.MomentumLookback)
	}
	if c.Alpha.LongFraction < 0 || c.Alpha.LongFraction > 1 ||
		c.Alpha.ShortFraction < 0 || c.Alpha.ShortFraction > 1 {
		return fmt.Errorf("alpha long/short fractions must be within [0, 1]")
	}
	if c.Signal.SmoothingHalfLife <= 0 {
		return fmt.Errorf("signal.smoothing_half_life must be positive, got %g", c.Signal.SmoothingHalfLife)
	}
	if c.Signal.Regime.ReferenceAsset == "" {
		return fmt.Errorf("signal.regime.reference_asset is required")
	}
	if c.Portfolio.MaxGross <= 0 || c.Portfolio.MaxWeightPerAsset <= 0 {
		return fmt.Errorf("portfolio gross and per-asset caps must be positive")
	}
	if c.Portfolio.GrossRiskOn < c.Portfolio.GrossRiskOff {
		return fmt.Errorf("portfolio.gross_risk_on must not be below gross_risk_off")
	}
	if c.Execution.MaxDailyTurnover <= 0 {
		return fmt.Errorf("execution.max_daily_turnover must be positive, got %g", c.Execution.MaxDailyTurnover)
	}
	if c.Execution.LagDays < 0 || c.Execution.MinHoldDays < 0 {
		return fmt.Errorf("execution.lag_days and min_hold_days must not be negative")
	}

	// The simulator re-validates on construction; surface those errors
	// at load time too.
	if _, err := backtest.NewSimulator(c.Backtest); err != nil {
		return err
	}
	if _, err := time.Parse("2006-01-02", c.WalkForward.StartDate); err != nil {
		return fmt.Errorf("walkforward: invalid start_date %q: %w", c.WalkForward.StartDate, err)
	}
	if c.WalkForward.TrainYears <= 0 || c.WalkForward.TestYears <= 0 {
		return fmt.Errorf("walkforward train_years and test_years must be positive")
	}
	if c.Performance.TradingDaysPerYear <= 0 {
		return fmt.Errorf("performance.trading_days_per_year must be positive")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics are enabled")
	}
	return nil
}
