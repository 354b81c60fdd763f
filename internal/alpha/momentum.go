// Package alpha turns per-asset features into a cross-sectional momentum
// score: momentum divided by realized volatility, ranked per date, with the
// top fraction assigned a +1 directional signal and the bottom fraction -1.
package alpha

import (
	"sort"
	"time"

	"github.com/quantfall/alphasim/internal/factors"
	"github.com/quantfall/alphasim/internal/market"
)

// minVolFloor guards the vol-adjustment division against dead series.
const minVolFloor = 1e-8

// Config holds the cross-sectional ranking parameters.
type Config struct {
	LongFraction  float64 `yaml:"long_fraction"`  // fraction of the tradable set held long (default 0.30)
	ShortFraction float64 `yaml:"short_fraction"` // fraction held short (default 0.30)
	MinAssets     int     `yaml:"min_assets"`     // minimum tradable assets per date (default 4)
}

// DefaultConfig returns the standard ranking parameters.
func DefaultConfig() Config {
	return Config{
		LongFraction:  0.30,
		ShortFraction: 0.30,
		MinAssets:     4,
	}
}

// Score is one (date, asset) row of the alpha table. Rank runs 1..N from
// strongest to weakest score and is 0 for untradable rows. Vol and Trend
// (with their validity flags) are carried through for downstream
// conditioning and regime construction.
type Score struct {
	Date       time.Time `json:"date"`
	Asset      string    `json:"asset"`
	Price      float64   `json:"price"`
	Vol        float64   `json:"vol"`
	VolOK      bool      `json:"vol_ok"`
	Trend      float64   `json:"trend"`
	TrendOK    bool      `json:"trend_ok"`
	Momentum   float64   `json:"momentum"`
	MomentumOK bool      `json:"momentum_ok"`
	Score      float64   `json:"score"`
	Rank       int       `json:"rank"`
	RawSignal  float64   `json:"raw_signal"`
}

// Compute ranks each date's cross-section by vol-adjusted momentum. An
// asset is tradable on a date when both its momentum and volatility are
// available; dates with fewer than MinAssets tradable assets emit zero
// signals for every asset.
func Compute(features []factors.Feature, cfg Config) ([]Score, error) {
	if len(features) == 0 {
		return nil, market.NewEmptyInputError("feature table", "feature computation")
	}

	scores := make([]Score, len(features))
	byDate := make(map[time.Time][]int)
	for i, f := range features {
		scores[i] = Score{
			Date:       f.Date,
			Asset:      f.Asset,
			Price:      f.Price,
			Vol:        f.Vol,
			VolOK:      f.VolOK,
			Trend:      f.Trend,
			TrendOK:    f.TrendOK,
			Momentum:   f.Momentum,
			MomentumOK: f.MomentumOK,
		}
		byDate[f.Date] = append(byDate[f.Date], i)
	}

	for _, idxs := range byDate {
		rankDay(scores, idxs, cfg)
	}

	sort.Slice(scores, func(i, j int) bool {
		if !scores[i].Date.Equal(scores[j].Date) {
			return scores[i].Date.Before(scores[j].Date)
		}
		return scores[i].Asset < scores[j].Asset
	})
	return scores, nil
}

// rankDay scores and ranks a single date's cross-section in place.
func rankDay(scores []Score, idxs []int, cfg Config) {
	var tradable []int
	for _, i := range idxs {
		f := &scores[i]
		// Warm-up rows never enter the ranking.
		if !f.VolOK || !f.MomentumOK {
			continue
		}
		vol := f.Vol
		if vol < minVolFloor {
			vol = minVolFloor
		}
		f.Score = f.Momentum / vol
		tradable = append(tradable, i)
	}

	if len(tradable) < cfg.MinAssets {
		return
	}

	sort.Slice(tradable, func(a, b int) bool {
		return scores[tradable[a]].Score > scores[tradable[b]].Score
	})

	n := len(tradable)
	nLong := int(cfg.LongFraction * float64(n))
	nShort := int(cfg.ShortFraction * float64(n))
	if nLong == 0 && nShort == 0 {
		return
	}

	for pos, i := range tradable {
		scores[i].Rank = pos + 1
		if pos < nLong {
			scores[i].RawSignal = 1.0
		} else if pos >= n-nShort {
			scores[i].RawSignal = -1.0
		}
	}
}
