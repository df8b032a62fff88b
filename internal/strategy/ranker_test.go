package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LevelSentinel/internal/model"
)

func testRanker() Ranker {
	cfg := DefaultConfig()
	return Ranker{
		Weights:        cfg.Weights,
		MergeTolerance: cfg.MergeTolerance,
		ProximityBand:  cfg.ProximityBand,
		ProximityBoost: cfg.ProximityBoost,
	}
}

func TestRanker_Score(t *testing.T) {
	r := testRanker()

	near := r.Score(model.RawLevel{Method: model.PivotPoints, Price: 101}, 100)
	far := r.Score(model.RawLevel{Method: model.PivotPoints, Price: 110}, 100)
	assert.InDelta(t, 2.25, near, 1e-9)
	assert.InDelta(t, 1.5, far, 1e-9)
	assert.Greater(t, near, far)

	// exactly on the band edge is not boosted
	assert.InDelta(t, 1.5, r.Score(model.RawLevel{Method: model.PivotPoints, Price: 102}, 100), 1e-9)
	// no boost without a positive reference price
	assert.InDelta(t, 2.0, r.Score(model.RawLevel{Method: model.VolumeProfile, Price: 0}, 0), 1e-9)
}

func TestBuildPools(t *testing.T) {
	var diag model.Diagnostics
	diag[model.Fibonacci] = model.MethodResult{Method: model.Fibonacci, Available: true, Levels: []model.RawLevel{
		{Method: model.Fibonacci, Label: "Fib 0%", Tag: model.TagResistance, Price: 12},
		{Method: model.Fibonacci, Label: "Fib 50%", Tag: model.TagBoth, Price: 11},
		{Method: model.Fibonacci, Label: "Fib 100%", Tag: model.TagSupport, Price: 10},
	}}
	diag[model.KMeansClusters] = model.MethodResult{Method: model.KMeansClusters, Available: true, Levels: []model.RawLevel{
		{Method: model.KMeansClusters, Tag: model.TagAny, Price: 10.6},
		{Method: model.KMeansClusters, Tag: model.TagAny, Price: 10.2},
		{Method: model.KMeansClusters, Tag: model.TagAny, Price: 11.7},
	}}
	diag[model.BollingerBands] = model.MethodResult{Method: model.BollingerBands, Reason: "insufficient data", Levels: []model.RawLevel{
		{Method: model.BollingerBands, Tag: model.TagSupport, Price: 9},
	}}

	support, resistance := BuildPools(&diag)

	prices := func(ls []model.RawLevel) []float64 {
		out := make([]float64, len(ls))
		for i, l := range ls {
			out[i] = l.Price
		}
		return out
	}
	assert.ElementsMatch(t, []float64{11, 10, 10.2}, prices(support))
	assert.ElementsMatch(t, []float64{12, 11, 11.7}, prices(resistance))
}

func TestRanker_Merge(t *testing.T) {
	r := testRanker()

	t.Run("representative is the strongest member, not the most numerous", func(t *testing.T) {
		pool := []model.RawLevel{
			{Method: model.Fibonacci, Label: "Fib 38.2%", Price: 50.00},
			{Method: model.Fibonacci, Label: "Fib 50%", Price: 50.10},
			{Method: model.Fibonacci, Label: "Fib 61.8%", Price: 50.20},
			{Method: model.VolumeProfile, Label: "Volume Profile", Price: 50.15},
		}
		merged := r.Merge(pool, model.Support, 80)
		require.Len(t, merged, 1)
		assert.Equal(t, model.VolumeProfile, merged[0].Method)
		assert.Equal(t, model.Support, merged[0].Kind)
		assert.Equal(t, 4, merged[0].Members)
		assert.InDelta(t, 2.0, merged[0].Score, 1e-9)
		assert.InDelta(t, 50.11, merged[0].Price, 1e-9)
	})

	t.Run("ties go to the lowest priced member", func(t *testing.T) {
		pool := []model.RawLevel{
			{Method: model.BollingerBands, Label: "upper", Price: 20.05},
			{Method: model.BollingerBands, Label: "lower", Price: 20.00},
		}
		merged := r.Merge(pool, model.Resistance, 30)
		require.Len(t, merged, 1)
		assert.Equal(t, "lower", merged[0].Label)
	})

	t.Run("distant levels stay apart and come out ascending", func(t *testing.T) {
		pool := []model.RawLevel{
			{Method: model.PivotPoints, Price: 105},
			{Method: model.Trendlines, Price: 95},
			{Method: model.KMeansClusters, Price: 100},
		}
		merged := r.Merge(pool, model.Resistance, 100)
		require.Len(t, merged, 3)
		assert.Equal(t, 95.0, merged[0].Price)
		assert.Equal(t, 100.0, merged[1].Price)
		assert.Equal(t, 105.0, merged[2].Price)
		// 100 sits within the proximity band
		assert.InDelta(t, 0.75, merged[1].Score, 1e-9)
	})

	t.Run("zero reference price only merges identical prices", func(t *testing.T) {
		pool := []model.RawLevel{
			{Method: model.Fibonacci, Price: 1},
			{Method: model.Fibonacci, Price: 1},
			{Method: model.Fibonacci, Price: 1.001},
		}
		merged := r.Merge(pool, model.Support, 0)
		require.Len(t, merged, 2)
		assert.Equal(t, 2, merged[0].Members)
	})

	t.Run("groups rounding to the same price are folded", func(t *testing.T) {
		pool := []model.RawLevel{
			{Method: model.Fibonacci, Label: "Fib 61.8%", Price: 0.4951},
			{Method: model.VolumeProfile, Label: "Volume Profile", Price: 0.5049},
		}
		merged := r.Merge(pool, model.Support, 0.5)
		require.Len(t, merged, 1)
		assert.Equal(t, 2, merged[0].Members)
		assert.Equal(t, model.VolumeProfile, merged[0].Method)
		assert.InDelta(t, 3.0, merged[0].Score, 1e-9)
		assert.Equal(t, 0.5, merged[0].Price)
	})

	t.Run("empty pool", func(t *testing.T) {
		assert.Empty(t, r.Merge(nil, model.Support, 10))
	})
}

func TestRanker_Rank(t *testing.T) {
	var diag model.Diagnostics
	diag[model.PivotPoints] = model.MethodResult{Method: model.PivotPoints, Available: true, Levels: []model.RawLevel{
		{Method: model.PivotPoints, Label: "Pivot Points", Tag: model.TagSupport, Price: 48},
		{Method: model.PivotPoints, Label: "Pivot Points", Tag: model.TagResistance, Price: 52},
	}}
	diag[model.BollingerBands] = model.MethodResult{Method: model.BollingerBands, Available: true, Levels: []model.RawLevel{
		{Method: model.BollingerBands, Label: "Bollinger Bands", Tag: model.TagSupport, Price: 48.1},
		{Method: model.BollingerBands, Label: "Bollinger Bands", Tag: model.TagResistance, Price: 55},
	}}

	set := testRanker().Rank(&diag, 50)
	require.Len(t, set.Support, 1)
	require.Len(t, set.Resistance, 2)
	assert.Equal(t, model.PivotPoints, set.Support[0].Method)
	assert.InDelta(t, 48.05, set.Support[0].Price, 1e-9)
	assert.Equal(t, model.PivotPoints, set.Resistance[0].Method)
	assert.Equal(t, model.BollingerBands, set.Resistance[1].Method)
}
