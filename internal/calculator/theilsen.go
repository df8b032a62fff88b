package calculator

import (
	"errors"
	"math"
	"math/rand/v2"
)

// ErrNonFinite is returned when a fit produces NaN or infinite coefficients.
var ErrNonFinite = errors.New("non-finite result")

// TheilSen fits y = slope*x + intercept over x = 0..len(y)-1. The slope is
// the median of pairwise slopes among at most maxPoints points drawn without
// replacement from rng; the intercept is the median of y - slope*x.
// A nil rng uses the leading maxPoints points.
func TheilSen(y []float64, maxPoints int, rng *rand.Rand) (slope, intercept float64, err error) {
	n := len(y)
	if n < 2 {
		return 0, 0, ErrNotEnoughData
	}
	size := n
	if maxPoints > 0 && maxPoints < n {
		size = maxPoints
	}

	var idx []int
	if rng != nil {
		idx = rng.Perm(n)[:size]
	} else {
		idx = make([]int, size)
		for i := range idx {
			idx[i] = i
		}
	}

	slopes := make([]float64, 0, size*(size-1)/2)
	for _, i := range idx {
		for _, j := range idx {
			if j > i {
				slopes = append(slopes, (y[j]-y[i])/float64(j-i))
			}
		}
	}
	if len(slopes) == 0 {
		return 0, 0, ErrNotEnoughData
	}
	slope = Median(slopes)

	residuals := make([]float64, n)
	for x, v := range y {
		residuals[x] = v - slope*float64(x)
	}
	intercept = Median(residuals)

	if math.IsNaN(slope) || math.IsInf(slope, 0) || math.IsNaN(intercept) || math.IsInf(intercept, 0) {
		return 0, 0, ErrNonFinite
	}
	return slope, intercept, nil
}
