package walkforward

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfall/alphasim/internal/backtest"
	"github.com/quantfall/alphasim/internal/market"
)

// dailySeries builds a weekday-agnostic daily result series starting at
// the given date with a constant daily return.
func dailySeries(start time.Time, days int, ret float64) []backtest.DayResult {
	out := make([]backtest.DayResult, days)
	for i := 0; i < days; i++ {
		out[i] = backtest.DayResult{Date: start.AddDate(0, 0, i), DailyRet: ret}
	}
	return out
}

func testConfig() Config {
	return Config{
		StartDate:         "2010-01-01",
		TrainYears:        5,
		TestYears:         1,
		MinObservations:   50,
		AnnualizationDays: 252,
	}
}

func TestEvaluateEmptyInput(t *testing.T) {
	_, err := Evaluate(nil, testConfig())
	require.Error(t, err)

	var empty *market.EmptyInputError
	assert.ErrorAs(t, err, &empty)
}

func TestEvaluateConfigValidation(t *testing.T) {
	results := dailySeries(time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC), 10, 0)

	cfg := testConfig()
	cfg.StartDate = "bad"
	_, err := Evaluate(results, cfg)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.TrainYears = 0
	_, err = Evaluate(results, cfg)
	assert.Error(t, err)
}

func TestEvaluateSingleWindow(t *testing.T) {
	start := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	// Train 2010-2015 plus one test year plus one extra day so the loop
	// admits exactly one window before the stop condition.
	days := int(start.AddDate(6, 0, 1).Sub(start).Hours() / 24)
	results := dailySeries(start, days, 0.001)

	windows, err := Evaluate(results, testConfig())
	require.NoError(t, err)
	require.Len(t, windows, 1)

	w := windows[0]
	assert.True(t, w.TrainStart.Equal(start))
	assert.True(t, w.TrainEnd.Equal(start.AddDate(5, 0, 0)))
	assert.True(t, w.TestStart.Equal(w.TrainEnd))
	assert.True(t, w.TestEnd.Equal(w.TrainEnd.AddDate(1, 0, 0)))
	assert.Equal(t, 365, w.Days)
	assert.Greater(t, w.CumReturn, 0.0)
	assert.Greater(t, w.Sharpe, 0.0)
	assert.Equal(t, 0.0, w.MaxDrawdown)
}

func TestEvaluateMultipleWindowsStepByTestYears(t *testing.T) {
	start := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	days := int(start.AddDate(9, 0, 1).Sub(start).Hours() / 24)
	results := dailySeries(start, days, 0.0005)

	windows, err := Evaluate(results, testConfig())
	require.NoError(t, err)
	require.Len(t, windows, 4)

	for i := 1; i < len(windows); i++ {
		assert.True(t, windows[i].TrainStart.Equal(windows[i-1].TrainStart.AddDate(1, 0, 0)),
			"window %d does not step by the test length", i)
	}
}

func TestEvaluateSkipsThinWindows(t *testing.T) {
	start := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := testConfig()
	cfg.MinObservations = 1000 // nothing can satisfy this

	days := int(start.AddDate(7, 0, 0).Sub(start).Hours() / 24)
	windows, err := Evaluate(dailySeries(start, days, 0.001), cfg)
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestSliceMetrics(t *testing.T) {
	// Up 10%, down 10%: cumulative slightly negative, drawdown from the
	// interim peak.
	cum, sharpe, maxDD := sliceMetrics([]float64{0.10, -0.10}, 252)
	assert.InDelta(t, 1.1*0.9-1.0, cum, 1e-12)
	assert.InDelta(t, -0.10, maxDD, 1e-12)
	assert.Equal(t, 0.0, sharpe)

	cum, sharpe, maxDD = sliceMetrics([]float64{0.01, 0.01, 0.01}, 252)
	assert.Greater(t, cum, 0.0)
	assert.Greater(t, sharpe, 0.0)
	assert.Equal(t, 0.0, maxDD)
}
