// Package factors computes per-asset technical features from a daily price
// panel: one-day returns, trailing realized volatility, an EMA trend
// baseline, long-horizon momentum, and RSI. Each feature carries its own
// validity flag so downstream stages resolve availability once instead of
// re-checking per row.
package factors

import (
	"math"
	"time"

	"github.com/quantfall/alphasim/internal/market"
)

// Config holds the feature computation windows.
type Config struct {
	VolWindow        int `yaml:"vol_window"`        // trailing std window for realized vol (default 20)
	TrendSpan        int `yaml:"trend_span"`        // EMA span for the trend baseline (default 200)
	MomentumLookback int `yaml:"momentum_lookback"` // momentum horizon in trading days (default 252)
	RSIPeriod        int `yaml:"rsi_period"`        // RSI period (default 14)
}

// DefaultConfig returns the standard feature windows.
func DefaultConfig() Config {
	return Config{
		VolWindow:        20,
		TrendSpan:        200,
		MomentumLookback: 252,
		RSIPeriod:        14,
	}
}

// Feature is one (date, asset) row of computed features. A feature is only
// meaningful when its OK flag is set; values under an unset flag are zero.
type Feature struct {
	Date  time.Time `json:"date"`
	Asset string    `json:"asset"`
	Price float64   `json:"price"`

	Ret1       float64 `json:"ret_1d"`
	Vol        float64 `json:"vol"`
	VolOK      bool    `json:"vol_ok"`
	Trend      float64 `json:"trend"`
	TrendOK    bool    `json:"trend_ok"`
	Momentum   float64 `json:"momentum"`
	MomentumOK bool    `json:"momentum_ok"`
	RSI        float64 `json:"rsi"`
	RSIOK      bool    `json:"rsi_ok"`
}

// Compute derives features for every (date, asset) row of the panel. The
// panel is validated and re-sorted by (asset, date); all computations are
// strictly trailing, so row i never sees data past index i.
func Compute(bars []market.Bar, cfg Config) ([]Feature, error) {
	if err := market.Validate(bars); err != nil {
		return nil, err
	}

	sorted := make([]market.Bar, len(bars))
	copy(sorted, bars)
	market.SortBars(sorted)

	features := make([]Feature, 0, len(sorted))
	for start := 0; start < len(sorted); {
		end := start
		for end < len(sorted) && sorted[end].Asset == sorted[start].Asset {
			end++
		}
		features = append(features, computeAsset(sorted[start:end], cfg)...)
		start = end
	}
	return features, nil
}

// computeAsset computes the feature block for a single asset's date-sorted
// price series.
func computeAsset(bars []market.Bar, cfg Config) []Feature {
	n := len(bars)
	out := make([]Feature, n)

	rets := make([]float64, n)
	for i := 1; i < n; i++ {
		rets[i] = bars[i].Price/bars[i-1].Price - 1.0
	}

	trendAlpha := 2.0 / (float64(cfg.TrendSpan) + 1.0)
	trend := bars[0].Price

	avgGain, avgLoss := 0.0, 0.0
	wilder := 1.0 / float64(cfg.RSIPeriod)

	for i := 0; i < n; i++ {
		f := Feature{
			Date:  bars[i].Date,
			Asset: bars[i].Asset,
			Price: bars[i].Price,
			Ret1:  rets[i],
		}

		// Trend baseline: causal EMA over the configured span.
		if i > 0 {
			trend = trendAlpha*bars[i].Price + (1.0-trendAlpha)*trend
		}
		if i+1 >= cfg.TrendSpan {
			f.Trend = trend
			f.TrendOK = true
		}

		// Realized volatility: trailing sample std of daily returns.
		// The first return is undefined, so a full window needs
		// VolWindow observed returns, available from index VolWindow.
		if i >= cfg.VolWindow {
			f.Vol = sampleStd(rets[i-cfg.VolWindow+1 : i+1])
			f.VolOK = true
		}

		// Momentum over the configured lookback.
		if i >= cfg.MomentumLookback {
			f.Momentum = bars[i].Price/bars[i-cfg.MomentumLookback].Price - 1.0
			f.MomentumOK = true
		}

		// RSI with Wilder smoothing, seeded by a simple average over the
		// first period of changes.
		if i >= 1 && i <= cfg.RSIPeriod {
			if rets[i] > 0 {
				avgGain += bars[i].Price - bars[i-1].Price
			} else {
				avgLoss += bars[i-1].Price - bars[i].Price
			}
			if i == cfg.RSIPeriod {
				avgGain /= float64(cfg.RSIPeriod)
				avgLoss /= float64(cfg.RSIPeriod)
			}
		} else if i > cfg.RSIPeriod {
			gain, loss := 0.0, 0.0
			change := bars[i].Price - bars[i-1].Price
			if change > 0 {
				gain = change
			} else {
				loss = -change
			}
			avgGain = avgGain*(1.0-wilder) + gain*wilder
			avgLoss = avgLoss*(1.0-wilder) + loss*wilder
		}
		if i >= cfg.RSIPeriod {
			if avgLoss == 0 {
				f.RSI = 100.0
			} else {
				rs := avgGain / avgLoss
				f.RSI = 100.0 - 100.0/(1.0+rs)
			}
			f.RSIOK = true
		}

		out[i] = f
	}
	return out
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
