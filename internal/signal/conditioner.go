// Package signal conditions the raw alpha score into a tradable signal:
// universe eligibility floors, causal exponential smoothing, a deadzone
// snap-to-zero, and a market-wide regime gate broadcast across the
// cross-section.
package signal

import (
	"math"
	"sort"
	"time"

	"github.com/quantfall/alphasim/internal/alpha"
	"github.com/quantfall/alphasim/internal/market"
)

// Config holds the signal conditioning parameters.
type Config struct {
	MinPrice          float64      `yaml:"min_price"`           // eligibility price floor (default 5.0)
	MinVol            float64      `yaml:"min_vol"`             // eligibility realized-vol floor (default 0.01)
	SmoothingHalfLife float64      `yaml:"smoothing_half_life"` // EMA half-life in days (default 3)
	Deadzone          float64      `yaml:"deadzone"`            // smoothed signals below this snap to zero (default 0.05)
	Regime            RegimeConfig `yaml:"regime"`
}

// DefaultConfig returns the standard conditioning parameters.
func DefaultConfig() Config {
	return Config{
		MinPrice:          5.0,
		MinVol:            0.01,
		SmoothingHalfLife: 3,
		Deadzone:          0.05,
		Regime:            DefaultRegimeConfig(),
	}
}

// Conditioned is one (date, asset) row of the conditioned signal table.
// Signal is zero for any asset failing universe eligibility on that date.
// Regime is a single scalar shared by all assets on a date. Rows are
// immutable once emitted.
type Conditioned struct {
	Date   time.Time `json:"date"`
	Asset  string    `json:"asset"`
	Price  float64   `json:"price"`
	Vol    float64   `json:"vol"`
	VolOK  bool      `json:"vol_ok"`
	Signal float64   `json:"signal"`
	Regime float64   `json:"regime"`
}

// Condition applies, in order: universe eligibility, per-asset causal EMA
// smoothing, the deadzone, and the regime gate. The ordering matters:
// eligibility zeros feed the smoother, and the gate multiplies the
// smoothed, deadzoned value.
func Condition(scores []alpha.Score, cfg Config) ([]Conditioned, error) {
	if len(scores) == 0 {
		return nil, market.NewEmptyInputError("alpha table", "signal conditioning")
	}

	sorted := make([]alpha.Score, len(scores))
	copy(sorted, scores)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Asset != sorted[j].Asset {
			return sorted[i].Asset < sorted[j].Asset
		}
		return sorted[i].Date.Before(sorted[j].Date)
	})

	var dates []time.Time
	seen := make(map[time.Time]bool)
	for _, s := range sorted {
		if !seen[s.Date] {
			seen[s.Date] = true
			dates = append(dates, s.Date)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	regime := computeRegime(sorted, dates, cfg.Regime)

	smoothAlpha := 1.0 - math.Pow(0.5, 1.0/cfg.SmoothingHalfLife)

	out := make([]Conditioned, len(sorted))
	var smoothed float64
	for i, s := range sorted {
		sig := s.RawSignal
		if s.Price < cfg.MinPrice || !s.VolOK || s.Vol < cfg.MinVol {
			sig = 0.0
		}

		// Per-asset causal EMA, seeded on the asset's first row.
		if i == 0 || sorted[i-1].Asset != s.Asset {
			smoothed = sig
		} else {
			smoothed = smoothAlpha*sig + (1.0-smoothAlpha)*smoothed
		}

		final := smoothed
		if math.Abs(final) < cfg.Deadzone {
			final = 0.0
		}

		reg := regime[s.Date]
		out[i] = Conditioned{
			Date:   s.Date,
			Asset:  s.Asset,
			Price:  s.Price,
			Vol:    s.Vol,
			VolOK:  s.VolOK,
			Signal: final * reg,
			Regime: reg,
		}
	}
	return out, nil
}
