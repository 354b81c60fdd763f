// Package perf computes summary performance statistics from a simulated
// daily result series.
package perf

import (
	"math"
	"time"

	"github.com/quantfall/alphasim/internal/backtest"
	"github.com/quantfall/alphasim/internal/market"
)

// volEpsilon is the annualized volatility below which a series is
// treated as having no variance.
const volEpsilon = 1e-12

// Config holds the performance calculation parameters.
type Config struct {
	TradingDaysPerYear int `yaml:"trading_days_per_year"` // annualization factor (default 252)
}

// DefaultConfig returns the standard annualization settings.
func DefaultConfig() Config {
	return Config{TradingDaysPerYear: 252}
}

// Summary contains the headline statistics for a full simulated run.
type Summary struct {
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Days        int       `json:"days"`
	FinalReturn float64   `json:"final_return"`
	CAGR        float64   `json:"cagr"`
	Volatility  float64   `json:"volatility"`
	Sharpe      float64   `json:"sharpe"`
	MaxDrawdown float64   `json:"max_drawdown"`
	Calmar      float64   `json:"calmar"`
}

// Calculator computes performance summaries.
type Calculator struct {
	cfg Config
}

// NewCalculator creates a calculator.
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// Summarize computes the headline statistics over the whole result series.
// Results must be date-ordered, as emitted by the simulator.
func (c *Calculator) Summarize(results []backtest.DayResult) (*Summary, error) {
	if len(results) == 0 {
		return nil, market.NewEmptyInputError("backtest results", "performance summary")
	}

	first, lastRow := results[0], results[len(results)-1]
	s := &Summary{
		StartDate:   first.Date,
		EndDate:     lastRow.Date,
		Days:        len(results),
		FinalReturn: lastRow.CumRet,
	}

	years := lastRow.Date.Sub(first.Date).Hours() / 24.0 / 365.25
	if years > 0 {
		s.CAGR = math.Pow(1.0+lastRow.CumRet, 1.0/years) - 1.0
	}

	mean := 0.0
	for _, r := range results {
		mean += r.DailyRet
	}
	mean /= float64(len(results))
	variance := 0.0
	for _, r := range results {
		d := r.DailyRet - mean
		variance += d * d
	}
	if len(results) > 1 {
		variance /= float64(len(results) - 1)
	}
	s.Volatility = math.Sqrt(variance) * math.Sqrt(float64(c.cfg.TradingDaysPerYear))

	// A flat return series leaves float residue in the variance sum, so
	// volatility below epsilon counts as zero rather than dividing by it.
	if s.Volatility > volEpsilon {
		s.Sharpe = s.CAGR / s.Volatility
	}

	// Drawdown measured on the cumulative equity curve.
	peak := 1.0
	for _, r := range results {
		equity := 1.0 + r.CumRet
		if equity > peak {
			peak = equity
		}
		if dd := equity/peak - 1.0; dd < s.MaxDrawdown {
			s.MaxDrawdown = dd
		}
	}

	if s.MaxDrawdown < 0 {
		s.Calmar = s.CAGR / math.Abs(s.MaxDrawdown)
	}
	return s, nil
}
