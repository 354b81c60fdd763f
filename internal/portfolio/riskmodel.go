// Package portfolio converts one date's cross-section of conditioned
// signals into target weights: long/short legs, a minimum-breadth gate,
// inverse-volatility scaling, leg normalization to a regime-selected gross
// target, a per-asset cap, and an absolute portfolio gross ceiling.
package portfolio

import (
	"math"
	"sort"
	"time"

	"github.com/quantfall/alphasim/internal/market"
	"github.com/quantfall/alphasim/internal/signal"
)

// Config holds the portfolio construction parameters.
type Config struct {
	MaxWeightPerAsset float64 `yaml:"max_weight_per_asset"` // per-asset cap (default 0.25)
	GrossRiskOn       float64 `yaml:"gross_risk_on"`        // gross target when regime is on (default 1.0)
	GrossRiskOff      float64 `yaml:"gross_risk_off"`       // throttled gross target when regime is off (default 0.25)
	MaxGross          float64 `yaml:"max_gross"`            // absolute gross ceiling, final backstop (default 1.0)
	MinActiveAssets   int     `yaml:"min_active_assets"`    // breadth gate (default 4)
}

// DefaultConfig returns the standard portfolio construction parameters.
func DefaultConfig() Config {
	return Config{
		MaxWeightPerAsset: 0.25,
		GrossRiskOn:       1.0,
		GrossRiskOff:      0.25,
		MaxGross:          1.0,
		MinActiveAssets:   4,
	}
}

// TargetWeight is one (date, asset) row of the target weight table. Price
// is carried through for the downstream join against executed weights.
type TargetWeight struct {
	Date   time.Time `json:"date"`
	Asset  string    `json:"asset"`
	Price  float64   `json:"price"`
	Weight float64   `json:"weight_target"`
}

// BuildTargets runs the per-date risk model across the whole conditioned
// table. Each date is an independent pure computation; output is sorted by
// (date, asset) with one row per input row.
func BuildTargets(rows []signal.Conditioned, cfg Config) ([]TargetWeight, error) {
	if len(rows) == 0 {
		return nil, market.NewEmptyInputError("conditioned signal table", "portfolio construction")
	}

	sorted := make([]signal.Conditioned, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].Asset < sorted[j].Asset
	})

	out := make([]TargetWeight, 0, len(sorted))
	for start := 0; start < len(sorted); {
		end := start
		for end < len(sorted) && sorted[end].Date.Equal(sorted[start].Date) {
			end++
		}
		out = append(out, TargetsForDay(sorted[start:end], cfg)...)
		start = end
	}
	return out, nil
}

// TargetsForDay computes target weights for a single date's cross-section.
// It is a pure function of that date's rows and carries no cross-date
// state.
func TargetsForDay(day []signal.Conditioned, cfg Config) []TargetWeight {
	out := make([]TargetWeight, len(day))
	for i, r := range day {
		out[i] = TargetWeight{Date: r.Date, Asset: r.Asset, Price: r.Price}
	}
	if len(day) == 0 {
		return out
	}

	// Regime throttle: the gross target shrinks when the regime is off.
	gross := cfg.GrossRiskOff
	if day[0].Regime > 0 {
		gross = cfg.GrossRiskOn
	}

	nActive := 0
	for _, r := range day {
		if r.Signal != 0 {
			nActive++
		}
	}
	// Breadth gate: thin cross-sections are a defined no-trade outcome.
	if nActive < cfg.MinActiveAssets {
		return out
	}

	// Inverse-vol scale, normalized so the mean scale across assets with
	// usable volatility is one. A cross-section with no usable volatility
	// falls back to uniform scaling; an individual asset without
	// volatility gets zero scale and drops out of its leg.
	scale := make([]float64, len(day))
	scaleSum, scaleCount := 0.0, 0
	for i, r := range day {
		if r.Signal == 0 {
			continue
		}
		if r.VolOK && r.Vol > 0 {
			scale[i] = 1.0 / r.Vol
			scaleSum += scale[i]
			scaleCount++
		}
	}
	if scaleSum == 0 {
		for i, r := range day {
			if r.Signal != 0 {
				scale[i] = 1.0
			}
		}
	} else {
		mean := scaleSum / float64(scaleCount)
		for i := range scale {
			scale[i] /= mean
		}
	}

	// Leg normalization: each leg sums to half the gross target.
	longSum, shortSum := 0.0, 0.0
	raw := make([]float64, len(day))
	for i, r := range day {
		raw[i] = scale[i] * math.Abs(r.Signal)
		if r.Signal > 0 {
			longSum += raw[i]
		} else if r.Signal < 0 {
			shortSum += raw[i]
		}
	}
	for i, r := range day {
		switch {
		case r.Signal > 0 && longSum > 0:
			out[i].Weight = raw[i] / longSum * gross / 2.0
		case r.Signal < 0 && shortSum > 0:
			out[i].Weight = -raw[i] / shortSum * gross / 2.0
		}
	}

	// Per-asset cap.
	for i := range out {
		if out[i].Weight > cfg.MaxWeightPerAsset {
			out[i].Weight = cfg.MaxWeightPerAsset
		} else if out[i].Weight < -cfg.MaxWeightPerAsset {
			out[i].Weight = -cfg.MaxWeightPerAsset
		}
	}

	// Renormalize gross back to target, then the absolute ceiling.
	if g := grossExposure(out); g > 0 {
		f := gross / g
		for i := range out {
			out[i].Weight *= f
		}
	}
	if g := grossExposure(out); g > cfg.MaxGross && g > 0 {
		f := cfg.MaxGross / g
		for i := range out {
			out[i].Weight *= f
		}
	}
	return out
}

func grossExposure(ws []TargetWeight) float64 {
	g := 0.0
	for _, w := range ws {
		g += math.Abs(w.Weight)
	}
	return g
}
