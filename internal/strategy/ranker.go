package strategy

import (
	"math"
	"sort"

	"LevelSentinel/internal/calculator"
	"LevelSentinel/internal/model"
)

// DefaultWeights is the per-method importance table.
func DefaultWeights() [model.MethodCount]float64 {
	return [model.MethodCount]float64{
		model.VolumeProfile:  2.0,
		model.PivotPoints:    1.5,
		model.Trendlines:     1.2,
		model.Fibonacci:      1.0,
		model.BollingerBands: 0.8,
		model.KMeansClusters: 0.5,
	}
}

// Ranker scores raw levels and merges each side into consensus levels.
type Ranker struct {
	Weights        [model.MethodCount]float64
	MergeTolerance float64 // fraction of the current close
	ProximityBand  float64 // fraction of the current close
	ProximityBoost float64
}

type scoredLevel struct {
	model.RawLevel
	Score float64
}

// Score returns weight × proximity boost for a single raw level.
func (r Ranker) Score(level model.RawLevel, current float64) float64 {
	score := r.Weights[level.Method]
	if current > 0 && math.Abs(level.Price-current)/current < r.ProximityBand {
		score *= r.ProximityBoost
	}
	return score
}

// BuildPools splits the available detector output into support and
// resistance candidates. Direction-agnostic methods contribute their lowest
// level as support and their highest as resistance.
func BuildPools(diag *model.Diagnostics) (support, resistance []model.RawLevel) {
	for _, res := range diag {
		if !res.Available || len(res.Levels) == 0 {
			continue
		}
		var agnostic []model.RawLevel
		for _, l := range res.Levels {
			switch l.Tag {
			case model.TagSupport:
				support = append(support, l)
			case model.TagResistance:
				resistance = append(resistance, l)
			case model.TagBoth:
				support = append(support, l)
				resistance = append(resistance, l)
			case model.TagAny:
				agnostic = append(agnostic, l)
			}
		}
		if len(agnostic) > 0 {
			lo, hi := agnostic[0], agnostic[0]
			for _, l := range agnostic[1:] {
				if l.Price < lo.Price {
					lo = l
				}
				if l.Price > hi.Price {
					hi = l
				}
			}
			support = append(support, lo)
			resistance = append(resistance, hi)
		}
	}
	return support, resistance
}

// Merge clusters one side's pool with the tolerance anchored on the current
// close. Each group is represented by its single highest-scoring member;
// groups whose rounded prices collide are folded before that choice.
func (r Ranker) Merge(pool []model.RawLevel, kind model.LevelKind, current float64) []model.MergedLevel {
	scored := make([]scoredLevel, len(pool))
	for i, l := range pool {
		scored[i] = scoredLevel{RawLevel: l, Score: r.Score(l, current)}
	}

	anchor := math.Max(current, 0)
	price := func(s scoredLevel) float64 { return s.Price }
	groups := calculator.GroupRounded(scored, price, r.MergeTolerance, anchor)

	merged := make([]model.MergedLevel, 0, len(groups))
	for _, g := range groups {
		best := g[0]
		for _, s := range g[1:] {
			if s.Score > best.Score {
				best = s
			}
		}
		merged = append(merged, model.MergedLevel{
			Method:  best.Method,
			Label:   best.Label,
			Kind:    kind,
			Price:   calculator.RoundedMean(g, price),
			Score:   best.Score,
			Members: len(g),
		})
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Price < merged[j].Price })
	return merged
}

// Rank turns the diagnostics table into the final level set.
func (r Ranker) Rank(diag *model.Diagnostics, current float64) model.LevelSet {
	support, resistance := BuildPools(diag)
	return model.LevelSet{
		Support:    r.Merge(support, model.Support, current),
		Resistance: r.Merge(resistance, model.Resistance, current),
	}
}
