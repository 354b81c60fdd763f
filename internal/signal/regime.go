package signal

import (
	"time"

	"github.com/quantfall/alphasim/internal/alpha"
)

// RegimeConfig controls the market-wide regime gate derived from one
// reference asset's price relative to its trend baseline.
type RegimeConfig struct {
	ReferenceAsset string `yaml:"reference_asset"` // asset whose trend state defines the regime
	ConfirmWindow  int    `yaml:"confirm_window"`  // trailing days that must agree (1 disables the filter)
	DefaultRiskOn  bool   `yaml:"default_risk_on"` // regime when reference data is unavailable
}

// DefaultRegimeConfig returns the standard regime gate: raw trend state
// with no persistence filter and a risk-on default.
func DefaultRegimeConfig() RegimeConfig {
	return RegimeConfig{
		ReferenceAsset: "SPY",
		ConfirmWindow:  1,
		DefaultRiskOn:  true,
	}
}

func (c RegimeConfig) defaultState() float64 {
	if c.DefaultRiskOn {
		return 1.0
	}
	return 0.0
}

// computeRegime derives the per-date regime scalar from the reference
// asset's trend state, with a trailing majority persistence filter to
// suppress whipsaw. Dates where the reference asset or its trend baseline
// is unavailable take the configured default; they do not enter the
// persistence window. The computation is strictly causal: the state for a
// date uses reference observations up to and including that date only.
func computeRegime(scores []alpha.Score, dates []time.Time, cfg RegimeConfig) map[time.Time]float64 {
	raw := make(map[time.Time]float64, len(dates))
	for _, s := range scores {
		if s.Asset != cfg.ReferenceAsset || !s.TrendOK {
			continue
		}
		if s.Price > s.Trend {
			raw[s.Date] = 1.0
		} else {
			raw[s.Date] = 0.0
		}
	}

	window := cfg.ConfirmWindow
	if window < 1 {
		window = 1
	}

	regime := make(map[time.Time]float64, len(dates))
	var history []float64
	for _, d := range dates {
		state, ok := raw[d]
		if !ok {
			regime[d] = cfg.defaultState()
			continue
		}
		history = append(history, state)
		if len(history) > window {
			history = history[1:]
		}
		trues := 0
		for _, v := range history {
			if v > 0 {
				trues++
			}
		}
		// Strict majority over the trailing window flips risk-on.
		if trues*2 > len(history) {
			regime[d] = 1.0
		} else {
			regime[d] = 0.0
		}
	}
	return regime
}
