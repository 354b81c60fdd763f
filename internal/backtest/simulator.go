// Package backtest simulates realized performance of executed weights:
// turnover-based transaction costs, portfolio aggregation, trailing
// volatility targeting, and a drawdown governor that throttles exposure as
// a function of the strategy's own running peak-to-trough loss.
package backtest

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/quantfall/alphasim/internal/market"
)

// DDLevel is one tier of the drawdown governor: drawdowns at or below
// Threshold (a negative number) apply Multiplier to the day's return.
type DDLevel struct {
	Threshold  float64 `yaml:"threshold"`
	Multiplier float64 `yaml:"multiplier"`
}

// DDConfig configures the drawdown governor. Levels are ordered from
// shallowest to deepest threshold; the deepest satisfied tier wins.
type DDConfig struct {
	Enabled           bool      `yaml:"enabled"`
	DefaultMultiplier float64   `yaml:"default_multiplier"`
	Levels            []DDLevel `yaml:"levels"`
}

// Config holds the simulator parameters.
type Config struct {
	StartDate         string   `yaml:"start_date"`         // simulation start, YYYY-MM-DD
	CostBps           float64  `yaml:"cost_bps"`           // slippage + commission per unit turnover (default 10)
	TargetVol         float64  `yaml:"target_vol"`         // annualized volatility target (default 0.12)
	VolLookback       int      `yaml:"vol_lookback"`       // trailing window for realized vol (default 63)
	MaxLeverage       float64  `yaml:"max_leverage"`       // leverage ceiling (default 2.0)
	AnnualizationDays int      `yaml:"annualization_days"` // trading days per year (default 252)
	DrawdownGovernor  DDConfig `yaml:"drawdown_governor"`
}

// DefaultConfig returns the standard simulator parameters.
func DefaultConfig() Config {
	return Config{
		StartDate:         "2005-01-01",
		CostBps:           10.0,
		TargetVol:         0.12,
		VolLookback:       63,
		MaxLeverage:       2.0,
		AnnualizationDays: 252,
		DrawdownGovernor: DDConfig{
			Enabled:           true,
			DefaultMultiplier: 1.0,
			Levels: []DDLevel{
				{Threshold: -0.10, Multiplier: 0.75},
				{Threshold: -0.20, Multiplier: 0.50},
				{Threshold: -0.30, Multiplier: 0.25},
			},
		},
	}
}

// Simulator runs the backtest. Construction validates the configuration;
// Run may be called once per input table.
type Simulator struct {
	cfg   Config
	start time.Time
}

// NewSimulator validates the configuration and returns a simulator.
func NewSimulator(cfg Config) (*Simulator, error) {
	start, err := time.Parse("2006-01-02", cfg.StartDate)
	if err != nil {
		return nil, fmt.Errorf("backtest: invalid start_date %q: %w", cfg.StartDate, err)
	}
	if cfg.VolLookback < 2 {
		return nil, fmt.Errorf("backtest: vol_lookback must be at least 2, got %d", cfg.VolLookback)
	}
	if cfg.AnnualizationDays <= 0 {
		return nil, fmt.Errorf("backtest: annualization_days must be positive, got %d", cfg.AnnualizationDays)
	}
	for i := 1; i < len(cfg.DrawdownGovernor.Levels); i++ {
		if cfg.DrawdownGovernor.Levels[i].Threshold >= cfg.DrawdownGovernor.Levels[i-1].Threshold {
			return nil, fmt.Errorf("backtest: drawdown levels must deepen monotonically, level %d does not", i)
		}
	}
	return &Simulator{cfg: cfg, start: start}, nil
}

// Run simulates the position table and emits one portfolio-level row per
// date. Rows before the configured start date are dropped; an empty table
// after filtering is fatal.
func (s *Simulator) Run(positions []Position) ([]DayResult, error) {
	for _, p := range positions {
		if p.Asset == "" || p.Date.IsZero() {
			return nil, market.NewSchemaError("position table", "date", "asset")
		}
	}

	filtered := make([]Position, 0, len(positions))
	for _, p := range positions {
		if !p.Date.Before(s.start) {
			filtered = append(filtered, p)
		}
	}
	if len(filtered) == 0 {
		return nil, market.NewEmptyInputError("position table", "start date filter "+s.cfg.StartDate)
	}

	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].Asset != filtered[j].Asset {
			return filtered[i].Asset < filtered[j].Asset
		}
		return filtered[i].Date.Before(filtered[j].Date)
	})

	// Per-asset returns, turnover, and P&L aggregated per date.
	type dayAgg struct {
		gross, net, turnover, cost float64
	}
	aggs := make(map[time.Time]*dayAgg)
	costRate := s.cfg.CostBps / 10000.0

	for i, p := range filtered {
		ret, prevW := 0.0, 0.0
		if i > 0 && filtered[i-1].Asset == p.Asset {
			ret = p.Price/filtered[i-1].Price - 1.0
			prevW = filtered[i-1].Weight
		}
		turnover := math.Abs(p.Weight - prevW)
		cost := turnover * costRate

		agg, ok := aggs[p.Date]
		if !ok {
			agg = &dayAgg{}
			aggs[p.Date] = agg
		}
		agg.gross += p.Weight * ret
		agg.net += p.Weight*ret - cost
		agg.turnover += turnover
		agg.cost += cost
	}

	dates := make([]time.Time, 0, len(aggs))
	for d := range aggs {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	// Sequential pass: volatility targeting, then the drawdown governor.
	// The governor reacts to the strategy's own drawdown one day late:
	// day t's multiplier is a function of equity through day t-1.
	state := newSimState()
	results := make([]DayResult, 0, len(dates))
	cum := 1.0

	for _, d := range dates {
		agg := aggs[d]
		state.history = append(state.history, agg.net)

		rollingVol, leverage := 0.0, 0.0
		if len(state.history) >= s.cfg.VolLookback {
			window := state.history[len(state.history)-s.cfg.VolLookback:]
			rollingVol = sampleStd(window) * math.Sqrt(float64(s.cfg.AnnualizationDays))
			if rollingVol > 0 {
				leverage = math.Min(s.cfg.TargetVol/rollingVol, s.cfg.MaxLeverage)
			} else {
				// Zero realized vol with a full window: the clip is
				// the only binding constraint.
				leverage = s.cfg.MaxLeverage
			}
		}
		vtRet := agg.net * leverage

		drawdown := state.equity/state.peak - 1.0
		mult := 1.0
		if s.cfg.DrawdownGovernor.Enabled {
			mult = s.cfg.DrawdownGovernor.DefaultMultiplier
			for _, lvl := range s.cfg.DrawdownGovernor.Levels {
				if drawdown <= lvl.Threshold {
					mult = lvl.Multiplier
				}
			}
		}
		dailyRet := vtRet * mult

		state.equity *= 1.0 + dailyRet
		if state.equity > state.peak {
			state.peak = state.equity
		}
		cum *= 1.0 + dailyRet

		results = append(results, DayResult{
			Date:       d,
			GrossRet:   agg.gross,
			NetRet:     agg.net,
			Turnover:   agg.turnover,
			Cost:       agg.cost,
			RollingVol: rollingVol,
			Leverage:   leverage,
			DDMult:     mult,
			Drawdown:   drawdown,
			DailyRet:   dailyRet,
			CumRet:     cum - 1.0,
		})
	}
	return results, nil
}

// sampleStd returns the sample standard deviation (ddof=1) of xs.
func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	variance := 0.0
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs) - 1)
	return math.Sqrt(variance)
}
