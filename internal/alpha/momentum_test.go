package alpha

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfall/alphasim/internal/factors"
	"github.com/quantfall/alphasim/internal/market"
)

var testDate = time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)

func feature(asset string, momentum, vol float64) factors.Feature {
	return factors.Feature{
		Date:       testDate,
		Asset:      asset,
		Price:      100,
		Vol:        vol,
		VolOK:      true,
		Momentum:   momentum,
		MomentumOK: true,
	}
}

func TestComputeEmptyInput(t *testing.T) {
	_, err := Compute(nil, DefaultConfig())
	require.Error(t, err)

	var empty *market.EmptyInputError
	assert.ErrorAs(t, err, &empty)
}

func TestComputeRanksByVolAdjustedMomentum(t *testing.T) {
	cfg := Config{LongFraction: 0.25, ShortFraction: 0.25, MinAssets: 2}
	features := []factors.Feature{
		feature("A", 0.40, 0.20),  // score 2.0
		feature("B", 0.30, 0.10),  // score 3.0, strongest
		feature("C", -0.10, 0.10), // score -1.0, weakest
		feature("D", 0.05, 0.10),  // score 0.5
	}

	scores, err := Compute(features, cfg)
	require.NoError(t, err)
	require.Len(t, scores, 4)

	byAsset := make(map[string]Score)
	for _, s := range scores {
		byAsset[s.Asset] = s
	}

	assert.Equal(t, 1, byAsset["B"].Rank)
	assert.Equal(t, 2, byAsset["A"].Rank)
	assert.Equal(t, 3, byAsset["D"].Rank)
	assert.Equal(t, 4, byAsset["C"].Rank)

	// 25% of 4 assets is one name per side.
	assert.Equal(t, 1.0, byAsset["B"].RawSignal)
	assert.Equal(t, -1.0, byAsset["C"].RawSignal)
	assert.Equal(t, 0.0, byAsset["A"].RawSignal)
	assert.Equal(t, 0.0, byAsset["D"].RawSignal)
}

func TestComputeBreadthGate(t *testing.T) {
	cfg := Config{LongFraction: 0.5, ShortFraction: 0.5, MinAssets: 4}
	features := []factors.Feature{
		feature("A", 0.40, 0.20),
		feature("B", -0.30, 0.10),
	}

	scores, err := Compute(features, cfg)
	require.NoError(t, err)

	// Two tradable assets against a floor of four: no signals, no ranks.
	for _, s := range scores {
		assert.Equal(t, 0, s.Rank, "asset %s", s.Asset)
		assert.Equal(t, 0.0, s.RawSignal, "asset %s", s.Asset)
	}
}

func TestComputeSkipsWarmupRows(t *testing.T) {
	cfg := Config{LongFraction: 0.5, ShortFraction: 0.5, MinAssets: 2}
	warm := feature("W", 0.90, 0.10)
	warm.MomentumOK = false

	features := []factors.Feature{
		warm,
		feature("A", 0.40, 0.20),
		feature("B", -0.30, 0.10),
	}

	scores, err := Compute(features, cfg)
	require.NoError(t, err)

	byAsset := make(map[string]Score)
	for _, s := range scores {
		byAsset[s.Asset] = s
	}

	// The warm-up row never enters the ranking despite its raw momentum.
	assert.Equal(t, 0, byAsset["W"].Rank)
	assert.Equal(t, 0.0, byAsset["W"].RawSignal)
	assert.Equal(t, 1.0, byAsset["A"].RawSignal)
	assert.Equal(t, -1.0, byAsset["B"].RawSignal)
}

func TestComputeVolFloor(t *testing.T) {
	cfg := Config{LongFraction: 0.5, ShortFraction: 0.5, MinAssets: 2}
	features := []factors.Feature{
		feature("A", 0.10, 0.0), // dead series, floored divisor
		feature("B", -0.10, 0.10),
	}

	scores, err := Compute(features, cfg)
	require.NoError(t, err)

	byAsset := make(map[string]Score)
	for _, s := range scores {
		byAsset[s.Asset] = s
	}
	assert.InDelta(t, 0.10/minVolFloor, byAsset["A"].Score, 1e-3)
	assert.Equal(t, 1.0, byAsset["A"].RawSignal)
}

func TestComputeOutputSorted(t *testing.T) {
	later := testDate.AddDate(0, 0, 1)
	f1 := feature("B", 0.1, 0.1)
	f2 := feature("A", 0.2, 0.1)
	f3 := feature("A", 0.2, 0.1)
	f3.Date = later
	features := []factors.Feature{f3, f1, f2}

	scores, err := Compute(features, Config{LongFraction: 0.5, ShortFraction: 0.5, MinAssets: 99})
	require.NoError(t, err)
	require.Len(t, scores, 3)

	assert.Equal(t, "A", scores[0].Asset)
	assert.Equal(t, "B", scores[1].Asset)
	assert.True(t, scores[2].Date.Equal(later))
}
