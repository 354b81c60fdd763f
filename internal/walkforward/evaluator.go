// Package walkforward tiles a simulated daily-return series into
// consecutive train/test window pairs and computes out-of-sample
// performance on each test slice. Decaying out-of-sample numbers across
// windows expose overfitting that a single full-sample run hides.
package walkforward

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/quantfall/alphasim/internal/backtest"
	"github.com/quantfall/alphasim/internal/market"
)

// Config holds the walk-forward tiling parameters.
type Config struct {
	StartDate         string `yaml:"start_date"`         // first train window start, YYYY-MM-DD
	TrainYears        int    `yaml:"train_years"`        // train window length (default 5)
	TestYears         int    `yaml:"test_years"`         // test window length and step (default 1)
	MinObservations   int    `yaml:"min_observations"`   // test windows under this are skipped (default 50)
	AnnualizationDays int    `yaml:"annualization_days"` // trading days per year for Sharpe (default 252)
}

// DefaultConfig returns the standard walk-forward parameters.
func DefaultConfig() Config {
	return Config{
		StartDate:         "2005-01-01",
		TrainYears:        5,
		TestYears:         1,
		MinObservations:   50,
		AnnualizationDays: 252,
	}
}

// Window is one evaluated train/test pair with out-of-sample metrics
// computed on the test slice only. Windows are immutable once emitted.
type Window struct {
	TrainStart  time.Time `json:"train_start"`
	TrainEnd    time.Time `json:"train_end"`
	TestStart   time.Time `json:"test_start"`
	TestEnd     time.Time `json:"test_end"`
	Days        int       `json:"n_days_test"`
	CumReturn   float64   `json:"cum_return"`
	Sharpe      float64   `json:"sharpe"`
	MaxDrawdown float64   `json:"max_drawdown"`
}

// Evaluate tiles the result series into train/test windows starting at the
// configured date, advancing by the test length. Test windows with fewer
// than MinObservations rows are skipped without emitting a row; the loop
// stops once the next training window would end at or after the last
// available date.
func Evaluate(results []backtest.DayResult, cfg Config) ([]Window, error) {
	if len(results) == 0 {
		return nil, market.NewEmptyInputError("backtest results", "walk-forward evaluation")
	}
	start, err := time.Parse("2006-01-02", cfg.StartDate)
	if err != nil {
		return nil, fmt.Errorf("walkforward: invalid start_date %q: %w", cfg.StartDate, err)
	}
	if cfg.TrainYears <= 0 || cfg.TestYears <= 0 {
		return nil, fmt.Errorf("walkforward: train_years and test_years must be positive")
	}

	sorted := make([]backtest.DayResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	last := sorted[len(sorted)-1].Date

	var windows []Window
	for t0 := start; t0.Before(last); t0 = t0.AddDate(cfg.TestYears, 0, 0) {
		trainEnd := t0.AddDate(cfg.TrainYears, 0, 0)
		testEnd := trainEnd.AddDate(cfg.TestYears, 0, 0)
		if !trainEnd.Before(last) {
			break
		}

		var slice []float64
		for _, r := range sorted {
			if !r.Date.Before(trainEnd) && r.Date.Before(testEnd) {
				slice = append(slice, r.DailyRet)
			}
		}
		if len(slice) < cfg.MinObservations {
			continue
		}

		w := Window{
			TrainStart: t0,
			TrainEnd:   trainEnd,
			TestStart:  trainEnd,
			TestEnd:    testEnd,
			Days:       len(slice),
		}
		w.CumReturn, w.Sharpe, w.MaxDrawdown = sliceMetrics(slice, cfg.AnnualizationDays)
		windows = append(windows, w)
	}
	return windows, nil
}

// sliceMetrics computes cumulative return, annualized Sharpe, and max
// drawdown for a daily return slice.
func sliceMetrics(rets []float64, annualization int) (cumRet, sharpe, maxDD float64) {
	mean := 0.0
	equity, peak := 1.0, 1.0
	for _, r := range rets {
		mean += r
		equity *= 1.0 + r
		if equity > peak {
			peak = equity
		}
		if dd := equity/peak - 1.0; dd < maxDD {
			maxDD = dd
		}
	}
	cumRet = equity - 1.0
	mean /= float64(len(rets))

	std := 0.0
	for _, r := range rets {
		d := r - mean
		std += d * d
	}
	if len(rets) > 1 {
		std = math.Sqrt(std / float64(len(rets)-1))
	}
	// Small epsilon keeps a flat slice from dividing by zero.
	sharpe = math.Sqrt(float64(annualization)) * mean / (std + 1e-9)
	return cumRet, sharpe, maxDD
}
