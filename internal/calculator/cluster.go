package calculator

import (
	"math"
	"sort"
)

// GroupSorted sorts items ascending by price and groups them greedily: an
// item joins the current group while its distance to the group's running
// mean is at most tolerance*|anchor|, otherwise it opens a new group.
func GroupSorted[T any](items []T, price func(T) float64, tolerance, anchor float64) [][]T {
	if len(items) == 0 {
		return nil
	}
	sorted := make([]T, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return price(sorted[i]) < price(sorted[j]) })

	limit := tolerance * math.Abs(anchor)
	var groups [][]T
	var sum float64
	for _, it := range sorted {
		p := price(it)
		if n := len(groups); n > 0 {
			cur := groups[n-1]
			if math.Abs(p-sum/float64(len(cur))) <= limit {
				groups[n-1] = append(cur, it)
				sum += p
				continue
			}
		}
		groups = append(groups, []T{it})
		sum = p
	}
	return groups
}

// GroupRounded groups like GroupSorted, then folds a group into its lower
// neighbour while their 2-decimal means are within tolerance*|anchor|. The
// rounded group means come out strictly ascending and more than the limit
// apart.
func GroupRounded[T any](items []T, price func(T) float64, tolerance, anchor float64) [][]T {
	groups := GroupSorted(items, price, tolerance, anchor)
	limit := tolerance * math.Abs(anchor)

	out := make([][]T, 0, len(groups))
	for _, g := range groups {
		for n := len(out); n > 0; n = len(out) {
			prev := out[n-1]
			if RoundedMean(g, price)-RoundedMean(prev, price) > limit {
				break
			}
			merged := make([]T, 0, len(prev)+len(g))
			g = append(append(merged, prev...), g...)
			out = out[:n-1]
		}
		out = append(out, g)
	}
	return out
}

// RoundedMean is the 2-decimal mean price of a group.
func RoundedMean[T any](group []T, price func(T) float64) float64 {
	prices := make([]float64, len(group))
	for i, it := range group {
		prices[i] = price(it)
	}
	return Round2(Mean(prices))
}

// ClusterLevels collapses near-duplicate prices into the rounded mean of
// each group. The result is strictly ascending and re-clustering it with the
// same tolerance and anchor returns it unchanged.
func ClusterLevels(values []float64, tolerance, anchor float64) []float64 {
	identity := func(v float64) float64 { return v }
	groups := GroupRounded(values, identity, tolerance, anchor)
	out := make([]float64, 0, len(groups))
	for _, g := range groups {
		out = append(out, RoundedMean(g, identity))
	}
	return out
}

// ClusterAroundMean clusters values with the tolerance anchored on their own
// mean, so granularity scales with the price level of the input.
func ClusterAroundMean(values []float64, tolerance float64) []float64 {
	return ClusterLevels(values, tolerance, Mean(values))
}
