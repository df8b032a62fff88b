package strategy

import (
	"errors"
	"fmt"
	"math"

	"LevelSentinel/internal/model"
)

// ErrInvalidSeries is the only error Analyze returns: the input itself is
// empty or violates the bar invariants.
var ErrInvalidSeries = errors.New("invalid price series")

// ValidateSeries checks the invariants every detector relies on.
func ValidateSeries(series *model.PriceSeries) error {
	if series == nil || len(series.Bars) == 0 {
		return fmt.Errorf("%w: no bars", ErrInvalidSeries)
	}
	for i, b := range series.Bars {
		for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return fmt.Errorf("%w: bar %d: value %v not a non-negative finite number", ErrInvalidSeries, i, v)
			}
		}
		if b.High < math.Max(b.Open, b.Close) {
			return fmt.Errorf("%w: bar %d: high %.4f below open/close", ErrInvalidSeries, i, b.High)
		}
		if b.Low > math.Min(b.Open, b.Close) {
			return fmt.Errorf("%w: bar %d: low %.4f above open/close", ErrInvalidSeries, i, b.Low)
		}
		if i > 0 && !b.Time.After(series.Bars[i-1].Time) {
			return fmt.Errorf("%w: bar %d: time %s not after previous bar", ErrInvalidSeries, i, b.Time.Format("2006-01-02 15:04:05"))
		}
	}
	return nil
}
