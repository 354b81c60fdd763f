// Package execution turns target weights into executable weights. The
// turnover governor is inherently sequential: each date's executable
// weight depends on the previous date's, so dates are processed in
// strictly increasing order with per-asset state owned by the governor for
// the duration of the run.
package execution

import (
	"math"
	"sort"
	"time"

	"github.com/quantfall/alphasim/internal/market"
	"github.com/quantfall/alphasim/internal/portfolio"
)

// Config holds the execution constraints.
type Config struct {
	MaxDailyTurnover float64 `yaml:"max_daily_turnover"` // per-asset max |Δweight| per day (default 0.05)
	MinHoldDays      int     `yaml:"min_hold_days"`      // minimum holding period, 0 disables (default 0)
	MaxGross         float64 `yaml:"max_gross"`          // gross cap re-applied after turnover clamping (default 1.0)
	LagDays          int     `yaml:"lag_days"`           // execution lag in trading days (default 2)
}

// DefaultConfig returns the standard execution constraints.
func DefaultConfig() Config {
	return Config{
		MaxDailyTurnover: 0.05,
		MinHoldDays:      0,
		MaxGross:         1.0,
		LagDays:          2,
	}
}

// ExecutedWeight is one (date, asset) row of the executable weight table.
type ExecutedWeight struct {
	Date   time.Time `json:"date"`
	Asset  string    `json:"asset"`
	Price  float64   `json:"price"`
	Weight float64   `json:"weight"`
}

// assetState is the per-asset record the governor carries across dates:
// the previously executed weight and the consecutive-holding counter.
type assetState struct {
	weight   float64
	holdDays int
}

// Governor sequentially adjusts target weights into executable weights
// under the turnover cap and minimum holding period. State is discarded at
// run end; a Governor must not be reused across runs.
type Governor struct {
	cfg    Config
	states map[string]*assetState
}

// NewGovernor creates a governor with fresh per-asset state.
func NewGovernor(cfg Config) *Governor {
	return &Governor{cfg: cfg, states: make(map[string]*assetState)}
}

// Run processes the target table in ascending date order and returns the
// executable weights. After each date's per-asset adjustments the gross
// exposure is re-checked: turnover clamping can leave gross above the cap,
// in which case every weight for the date is scaled down proportionally
// and the carried state reflects the scaled weights.
func (g *Governor) Run(targets []portfolio.TargetWeight) ([]ExecutedWeight, error) {
	if len(targets) == 0 {
		return nil, market.NewEmptyInputError("target weight table", "turnover governing")
	}

	sorted := make([]portfolio.TargetWeight, len(targets))
	copy(sorted, targets)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].Asset < sorted[j].Asset
	})

	out := make([]ExecutedWeight, 0, len(sorted))
	for start := 0; start < len(sorted); {
		end := start
		for end < len(sorted) && sorted[end].Date.Equal(sorted[start].Date) {
			end++
		}
		out = append(out, g.applyDay(sorted[start:end])...)
		start = end
	}
	return out, nil
}

// applyDay adjusts one date's targets against the carried state.
func (g *Governor) applyDay(day []portfolio.TargetWeight) []ExecutedWeight {
	out := make([]ExecutedWeight, len(day))
	for i, t := range day {
		st, ok := g.states[t.Asset]
		if !ok {
			st = &assetState{}
			g.states[t.Asset] = st
		}

		var adj float64
		if g.cfg.MinHoldDays > 0 && st.weight != 0 && st.holdDays < g.cfg.MinHoldDays {
			// Active holding lock: carry the position unchanged.
			adj = st.weight
			st.holdDays++
		} else {
			delta := t.Weight - st.weight
			if math.Abs(delta) > g.cfg.MaxDailyTurnover {
				adj = st.weight + math.Copysign(g.cfg.MaxDailyTurnover, delta)
			} else {
				adj = t.Weight
			}
			switch {
			case st.weight == 0 && adj != 0:
				st.holdDays = 1
			case adj == 0:
				st.holdDays = 0
			default:
				st.holdDays++
			}
		}

		st.weight = adj
		out[i] = ExecutedWeight{Date: t.Date, Asset: t.Asset, Price: t.Price, Weight: adj}
	}

	gross := 0.0
	for _, w := range out {
		gross += math.Abs(w.Weight)
	}
	if gross > g.cfg.MaxGross && gross > 0 {
		f := g.cfg.MaxGross / gross
		for i := range out {
			out[i].Weight *= f
			g.states[out[i].Asset].weight = out[i].Weight
		}
	}
	return out
}

// Lag shifts each asset's weight series forward by lagDays trading days,
// filling the head with zero. This models execution delay and removes
// lookahead between signal formation and fills.
func Lag(rows []ExecutedWeight, lagDays int) []ExecutedWeight {
	if lagDays <= 0 {
		return rows
	}

	sorted := make([]ExecutedWeight, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Asset != sorted[j].Asset {
			return sorted[i].Asset < sorted[j].Asset
		}
		return sorted[i].Date.Before(sorted[j].Date)
	})

	out := make([]ExecutedWeight, len(sorted))
	for start := 0; start < len(sorted); {
		end := start
		for end < len(sorted) && sorted[end].Asset == sorted[start].Asset {
			end++
		}
		for i := start; i < end; i++ {
			w := 0.0
			if i-lagDays >= start {
				w = sorted[i-lagDays].Weight
			}
			out[i] = sorted[i]
			out[i].Weight = w
		}
		start = end
	}
	return out
}
