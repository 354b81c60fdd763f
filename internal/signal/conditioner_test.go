package signal

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfall/alphasim/internal/alpha"
	"github.com/quantfall/alphasim/internal/market"
)

func day(i int) time.Time {
	return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

// score builds an eligible row with a raw directional signal.
func score(dayIdx int, asset string, raw float64) alpha.Score {
	return alpha.Score{
		Date:      day(dayIdx),
		Asset:     asset,
		Price:     100,
		Vol:       0.02,
		VolOK:     true,
		RawSignal: raw,
	}
}

// testConfig defaults risk-on so the gate is inert unless a test adds
// reference asset rows.
func testConfig() Config {
	return Config{
		MinPrice:          5.0,
		MinVol:            0.01,
		SmoothingHalfLife: 3,
		Deadzone:          0.05,
		Regime: RegimeConfig{
			ReferenceAsset: "SPY",
			ConfirmWindow:  1,
			DefaultRiskOn:  true,
		},
	}
}

func TestConditionEmptyInput(t *testing.T) {
	_, err := Condition(nil, testConfig())
	require.Error(t, err)

	var empty *market.EmptyInputError
	assert.ErrorAs(t, err, &empty)
}

func TestConditionEligibilityZeroesBeforeSmoothing(t *testing.T) {
	cfg := testConfig()

	penny := score(0, "PNY", 1.0)
	penny.Price = 2.0 // below the price floor

	thin := score(0, "THN", 1.0)
	thin.Vol = 0.001 // below the vol floor

	noVol := score(0, "NOV", 1.0)
	noVol.VolOK = false

	rows, err := Condition([]alpha.Score{penny, thin, noVol}, cfg)
	require.NoError(t, err)

	for _, r := range rows {
		assert.Equal(t, 0.0, r.Signal, "asset %s should be ineligible", r.Asset)
	}
}

func TestConditionSmoothingIsCausalEMA(t *testing.T) {
	cfg := testConfig()
	cfg.Deadzone = 0 // isolate the smoother

	rows, err := Condition([]alpha.Score{
		score(0, "A", 1.0),
		score(1, "A", 0.0),
		score(2, "A", 0.0),
	}, cfg)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	a := 1.0 - math.Pow(0.5, 1.0/cfg.SmoothingHalfLife)

	// Seeded at the first observation, then decaying toward zero.
	assert.InDelta(t, 1.0, rows[0].Signal, 1e-12)
	assert.InDelta(t, (1.0-a)*1.0, rows[1].Signal, 1e-12)
	assert.InDelta(t, (1.0-a)*(1.0-a)*1.0, rows[2].Signal, 1e-12)
}

func TestConditionSmootherResetsPerAsset(t *testing.T) {
	cfg := testConfig()
	cfg.Deadzone = 0

	rows, err := Condition([]alpha.Score{
		score(0, "A", 1.0),
		score(0, "B", 0.0),
	}, cfg)
	require.NoError(t, err)

	byAsset := make(map[string]Conditioned)
	for _, r := range rows {
		byAsset[r.Asset] = r
	}
	// B's smoother is seeded at its own first row, not A's state.
	assert.Equal(t, 0.0, byAsset["B"].Signal)
	assert.Equal(t, 1.0, byAsset["A"].Signal)
}

func TestConditionDeadzone(t *testing.T) {
	cfg := testConfig()
	cfg.Deadzone = 0.5

	rows, err := Condition([]alpha.Score{
		score(0, "A", 0.4),
		score(0, "B", -0.6),
	}, cfg)
	require.NoError(t, err)

	byAsset := make(map[string]Conditioned)
	for _, r := range rows {
		byAsset[r.Asset] = r
	}
	assert.Equal(t, 0.0, byAsset["A"].Signal)
	assert.Equal(t, -0.6, byAsset["B"].Signal)
}

func TestConditionRegimeGateZeroesRiskOff(t *testing.T) {
	cfg := testConfig()
	cfg.Deadzone = 0

	// Reference asset below trend: regime off for the whole panel.
	ref := score(0, "SPY", 0)
	ref.Trend = 150
	ref.TrendOK = true

	rows, err := Condition([]alpha.Score{
		ref,
		score(0, "A", 1.0),
	}, cfg)
	require.NoError(t, err)

	for _, r := range rows {
		assert.Equal(t, 0.0, r.Regime, "asset %s", r.Asset)
		assert.Equal(t, 0.0, r.Signal, "asset %s", r.Asset)
	}
}

func TestConditionRegimeDefaultsRiskOnWithoutReference(t *testing.T) {
	cfg := testConfig()
	cfg.Deadzone = 0

	rows, err := Condition([]alpha.Score{score(0, "A", 1.0)}, cfg)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1.0, rows[0].Regime)
	assert.Equal(t, 1.0, rows[0].Signal)
}

func TestComputeRegimePersistenceFilter(t *testing.T) {
	cfg := RegimeConfig{ReferenceAsset: "SPY", ConfirmWindow: 3, DefaultRiskOn: true}

	// Raw trend states per day: on, off, on, on, off.
	above := []bool{true, false, true, true, false}
	var scores []alpha.Score
	var dates []time.Time
	for i, up := range above {
		s := score(i, "SPY", 0)
		s.TrendOK = true
		if up {
			s.Trend = 50 // price 100 above trend
		} else {
			s.Trend = 150
		}
		scores = append(scores, s)
		dates = append(dates, day(i))
	}

	regime := computeRegime(scores, dates, cfg)

	// Day 0: window [1], majority on.
	assert.Equal(t, 1.0, regime[day(0)])
	// Day 1: window [1 0], 1*2 == 2 is not a strict majority.
	assert.Equal(t, 0.0, regime[day(1)])
	// Day 2: window [1 0 1], strict majority on.
	assert.Equal(t, 1.0, regime[day(2)])
	// Day 3: window [0 1 1], still on.
	assert.Equal(t, 1.0, regime[day(3)])
	// Day 4: window [1 1 0], one off print does not flip the state.
	assert.Equal(t, 1.0, regime[day(4)])
}

func TestComputeRegimeMissingDatesTakeDefault(t *testing.T) {
	cfg := RegimeConfig{ReferenceAsset: "SPY", ConfirmWindow: 1, DefaultRiskOn: false}

	s := score(1, "SPY", 0)
	s.Trend = 50
	s.TrendOK = true

	dates := []time.Time{day(0), day(1)}
	regime := computeRegime([]alpha.Score{s}, dates, cfg)

	assert.Equal(t, 0.0, regime[day(0)], "missing reference date takes the default")
	assert.Equal(t, 1.0, regime[day(1)])
}
