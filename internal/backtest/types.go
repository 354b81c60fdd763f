package backtest

import (
	"time"

	"github.com/quantfall/alphasim/internal/execution"
)

// Position is one (date, asset) input row to the simulator: the executed
// weight alongside that date's price.
type Position struct {
	Date   time.Time `json:"date"`
	Asset  string    `json:"asset"`
	Price  float64   `json:"price"`
	Weight float64   `json:"weight"`
}

// PositionsFromWeights adapts an executed weight table into simulator
// input rows.
func PositionsFromWeights(weights []execution.ExecutedWeight) []Position {
	out := make([]Position, len(weights))
	for i, w := range weights {
		out[i] = Position{Date: w.Date, Asset: w.Asset, Price: w.Price, Weight: w.Weight}
	}
	return out
}

// DayResult is one portfolio-level output row per date. Rows are
// append-only and read-only downstream.
type DayResult struct {
	Date       time.Time `json:"date"`
	GrossRet   float64   `json:"gross_ret"`
	NetRet     float64   `json:"net_ret"`
	Turnover   float64   `json:"turnover"`
	Cost       float64   `json:"cost"`
	RollingVol float64   `json:"rolling_vol"`
	Leverage   float64   `json:"leverage"`
	DDMult     float64   `json:"dd_mult"`
	Drawdown   float64   `json:"drawdown"`
	DailyRet   float64   `json:"daily_ret"`
	CumRet     float64   `json:"cumret"`
}

// simState is the single piece of process state threaded through the
// simulator's sequential pass: running equity, its running peak, and the
// trailing net-return history used for volatility targeting. It is mutated
// once per date and never revisited.
type simState struct {
	equity  float64
	peak    float64
	history []float64
}

func newSimState() *simState {
	return &simState{equity: 1.0, peak: 1.0}
}
