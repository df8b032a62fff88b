package detector

import (
	"fmt"

	"LevelSentinel/internal/calculator"
	"LevelSentinel/internal/model"
)

// PivotDetector finds swing highs and lows in a centered rolling window and
// clusters them into representative levels.
type PivotDetector struct {
	Window        int
	CenterOffsets []int
	Tolerance     float64
}

func (d *PivotDetector) Method() model.Method { return model.PivotPoints }

func (d *PivotDetector) offsets() []int {
	if len(d.CenterOffsets) > 0 {
		return d.CenterOffsets
	}
	return []int{d.Window/2 - 1, d.Window / 2}
}

func (d *PivotDetector) Detect(series *model.PriceSeries) ([]model.RawLevel, error) {
	if d.Window <= 0 {
		return nil, fmt.Errorf("%w: pivot window must be positive", ErrNumericFailure)
	}
	if series.Len() < d.Window {
		return nil, fmt.Errorf("%w: pivot points need %d bars, have %d", ErrInsufficientData, d.Window, series.Len())
	}

	highs, lows := d.swings(series.Highs(), series.Lows())
	resistance := calculator.ClusterAroundMean(highs, d.Tolerance)
	support := calculator.ClusterAroundMean(lows, d.Tolerance)

	levels := make([]model.RawLevel, 0, len(support)+len(resistance))
	for _, p := range support {
		levels = append(levels, model.RawLevel{Method: model.PivotPoints, Label: model.PivotPoints.String(), Tag: model.TagSupport, Price: p})
	}
	for _, p := range resistance {
		levels = append(levels, model.RawLevel{Method: model.PivotPoints, Label: model.PivotPoints.String(), Tag: model.TagResistance, Price: p})
	}
	return levels, nil
}

// swings slides the window across the series. A window yields a swing high
// when the first occurrence of its maximum sits on one of the center
// offsets; lows are symmetric.
func (d *PivotDetector) swings(highs, lows []float64) (swingHighs, swingLows []float64) {
	offsets := d.offsets()
	isCenter := func(off int) bool {
		for _, o := range offsets {
			if o == off {
				return true
			}
		}
		return false
	}

	for start := 0; start+d.Window <= len(highs); start++ {
		hi, lo := start, start
		for i := start + 1; i < start+d.Window; i++ {
			if highs[i] > highs[hi] {
				hi = i
			}
			if lows[i] < lows[lo] {
				lo = i
			}
		}
		if isCenter(hi - start) {
			swingHighs = append(swingHighs, highs[hi])
		}
		if isCenter(lo - start) {
			swingLows = append(swingLows, lows[lo])
		}
	}
	return swingHighs, swingLows
}
