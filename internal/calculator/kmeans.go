package calculator

import (
	"errors"
	"math"
	"sort"
)

// ErrTooFewDistinct is returned when k-means has fewer distinct values than clusters.
var ErrTooFewDistinct = errors.New("fewer distinct values than clusters")

// KMeans1D partitions values into k clusters with Lloyd's algorithm and
// returns the centers ascending. Seeding is deterministic: the initial
// centers are evenly spaced quantiles of the distinct values.
func KMeans1D(values []float64, k, maxIter int) ([]float64, error) {
	if k <= 0 {
		return nil, errors.New("k must be positive")
	}
	if len(values) < k {
		return nil, ErrNotEnoughData
	}
	if maxIter <= 0 {
		maxIter = 300
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	distinct := make([]float64, 0, len(sorted))
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			distinct = append(distinct, v)
		}
	}
	if len(distinct) < k {
		return nil, ErrTooFewDistinct
	}

	m := len(distinct)
	centers := make([]float64, k)
	for i := range centers {
		centers[i] = distinct[(2*i+1)*m/(2*k)]
	}

	assign := make([]int, len(sorted))
	for i := range assign {
		assign[i] = -1
	}
	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, v := range sorted {
			best, bestDist := 0, math.Inf(1)
			for c, center := range centers {
				if d := math.Abs(v - center); d < bestDist {
					best, bestDist = c, d
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([]float64, k)
		counts := make([]int, k)
		for i, v := range sorted {
			sums[assign[i]] += v
			counts[assign[i]]++
		}
		for c := range centers {
			// an emptied cluster keeps its previous center
			if counts[c] > 0 {
				centers[c] = sums[c] / float64(counts[c])
			}
		}
	}

	sort.Float64s(centers)
	return centers, nil
}
