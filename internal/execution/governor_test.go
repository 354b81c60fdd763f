package execution

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfall/alphasim/internal/market"
	"github.com/quantfall/alphasim/internal/portfolio"
)

func day(i int) time.Time {
	return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func target(dayIdx int, asset string, weight float64) portfolio.TargetWeight {
	return portfolio.TargetWeight{Date: day(dayIdx), Asset: asset, Price: 100, Weight: weight}
}

func TestRunEmptyInput(t *testing.T) {
	_, err := NewGovernor(DefaultConfig()).Run(nil)
	require.Error(t, err)

	var empty *market.EmptyInputError
	assert.ErrorAs(t, err, &empty)
}

func TestRunClampsDailyTurnover(t *testing.T) {
	cfg := Config{MaxDailyTurnover: 0.05, MaxGross: 10, LagDays: 0}

	out, err := NewGovernor(cfg).Run([]portfolio.TargetWeight{
		target(0, "A", 0.20),
		target(1, "A", 0.20),
		target(2, "A", 0.20),
	})
	require.NoError(t, err)
	require.Len(t, out, 3)

	// From flat, each day moves at most the turnover cap toward target.
	assert.InDelta(t, 0.05, out[0].Weight, 1e-12)
	assert.InDelta(t, 0.10, out[1].Weight, 1e-12)
	assert.InDelta(t, 0.15, out[2].Weight, 1e-12)
}

func TestRunClampsBothDirections(t *testing.T) {
	cfg := Config{MaxDailyTurnover: 0.05, MaxGross: 10, LagDays: 0}

	out, err := NewGovernor(cfg).Run([]portfolio.TargetWeight{
		target(0, "A", 0.04),
		target(1, "A", -0.20),
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.04, out[0].Weight, 1e-12)
	assert.InDelta(t, -0.01, out[1].Weight, 1e-12)
}

func TestRunTurnoverInvariant(t *testing.T) {
	cfg := Config{MaxDailyTurnover: 0.05, MaxGross: 10, LagDays: 0}

	targets := []portfolio.TargetWeight{
		target(0, "A", 0.30), target(0, "B", -0.30),
		target(1, "A", -0.30), target(1, "B", 0.30),
		target(2, "A", 0.02), target(2, "B", -0.02),
	}
	out, err := NewGovernor(cfg).Run(targets)
	require.NoError(t, err)

	prev := make(map[string]float64)
	for _, w := range out {
		delta := math.Abs(w.Weight - prev[w.Asset])
		assert.LessOrEqual(t, delta, cfg.MaxDailyTurnover+1e-12,
			"asset %s on %s", w.Asset, w.Date.Format("2006-01-02"))
		prev[w.Asset] = w.Weight
	}
}

func TestRunMinHoldLock(t *testing.T) {
	cfg := Config{MaxDailyTurnover: 1.0, MinHoldDays: 3, MaxGross: 10, LagDays: 0}

	out, err := NewGovernor(cfg).Run([]portfolio.TargetWeight{
		target(0, "A", 0.10),
		target(1, "A", 0.0), // target wants out, lock holds
		target(2, "A", 0.0),
		target(3, "A", 0.0), // holding period satisfied, exit allowed
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.10, out[0].Weight, 1e-12)
	assert.InDelta(t, 0.10, out[1].Weight, 1e-12)
	assert.InDelta(t, 0.10, out[2].Weight, 1e-12)
	assert.InDelta(t, 0.0, out[3].Weight, 1e-12)
}

func TestRunGrossRescaleCarriesIntoState(t *testing.T) {
	cfg := Config{MaxDailyTurnover: 1.0, MaxGross: 0.5, LagDays: 0}

	out, err := NewGovernor(cfg).Run([]portfolio.TargetWeight{
		target(0, "A", 0.5), target(0, "B", -0.5),
		target(1, "A", 0.25), target(1, "B", -0.25),
	})
	require.NoError(t, err)
	require.Len(t, out, 4)

	// Day one gross 1.0 is rescaled to the 0.5 cap.
	assert.InDelta(t, 0.25, out[0].Weight, 1e-12)
	assert.InDelta(t, -0.25, out[1].Weight, 1e-12)

	// Day two targets equal the rescaled carried weights, so no trades.
	assert.InDelta(t, 0.25, out[2].Weight, 1e-12)
	assert.InDelta(t, -0.25, out[3].Weight, 1e-12)
}

func TestLagShiftsPerAsset(t *testing.T) {
	rows := []ExecutedWeight{
		{Date: day(0), Asset: "A", Price: 100, Weight: 0.1},
		{Date: day(1), Asset: "A", Price: 100, Weight: 0.2},
		{Date: day(2), Asset: "A", Price: 100, Weight: 0.3},
		{Date: day(0), Asset: "B", Price: 100, Weight: -0.1},
		{Date: day(1), Asset: "B", Price: 100, Weight: -0.2},
		{Date: day(2), Asset: "B", Price: 100, Weight: -0.3},
	}

	out := Lag(rows, 2)
	require.Len(t, out, 6)

	got := make(map[string][]float64)
	for _, w := range out {
		got[w.Asset] = append(got[w.Asset], w.Weight)
	}
	assert.Equal(t, []float64{0, 0, 0.1}, got["A"])
	assert.Equal(t, []float64{0, 0, -0.1}, got["B"])
}

func TestLagZeroIsIdentity(t *testing.T) {
	rows := []ExecutedWeight{{Date: day(0), Asset: "A", Price: 100, Weight: 0.1}}
	out := Lag(rows, 0)
	assert.Equal(t, rows, out)
}
