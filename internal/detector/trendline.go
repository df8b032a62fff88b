package detector

import (
	"fmt"
	"math"
	"math/rand/v2"

	"LevelSentinel/internal/calculator"
	"LevelSentinel/internal/model"
)

// TrendlineDetector projects robust trendlines fitted over randomly sampled
// windows. Falling lows give support, rising highs give resistance.
type TrendlineDetector struct {
	Window         int
	Samples        int
	AngleDeg       float64
	LastN          int
	TheilSenPoints int
	Rand           *rand.Rand
}

func (d *TrendlineDetector) Method() model.Method { return model.Trendlines }

func (d *TrendlineDetector) Detect(series *model.PriceSeries) ([]model.RawLevel, error) {
	n := series.Len()
	if d.Window < 2 {
		return nil, fmt.Errorf("%w: trendline window must be at least 2", ErrNumericFailure)
	}
	if n < d.Window {
		return nil, fmt.Errorf("%w: trendlines need %d bars, have %d", ErrInsufficientData, d.Window, n)
	}
	rng := d.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(0, 0))
	}

	size := n - d.Window
	if d.Samples < size {
		size = d.Samples
	}
	if size <= 0 {
		return nil, nil
	}
	ends := rng.Perm(n - d.Window)[:size]

	lows, highs := series.Lows(), series.Highs()
	projectAt := float64(d.Window - 1)
	var support, resistance []float64
	failures := 0
	for _, off := range ends {
		i := d.Window + off

		slope, intercept, err := calculator.TheilSen(lows[i-d.Window:i], d.TheilSenPoints, rng)
		if err != nil {
			failures++
		} else if slope < 0 && math.Abs(angle(slope)) > d.AngleDeg {
			support = append(support, intercept+slope*projectAt)
		}

		slope, intercept, err = calculator.TheilSen(highs[i-d.Window:i], d.TheilSenPoints, rng)
		if err != nil {
			failures++
		} else if slope > 0 && math.Abs(angle(slope)) > d.AngleDeg {
			resistance = append(resistance, intercept+slope*projectAt)
		}
	}
	if failures == 2*len(ends) {
		return nil, fmt.Errorf("%w: no trendline could be fitted", ErrNumericFailure)
	}

	label := model.Trendlines.String()
	var levels []model.RawLevel
	if len(support) > 0 {
		levels = append(levels, model.RawLevel{Method: model.Trendlines, Label: label, Tag: model.TagSupport, Price: calculator.Mean(lastN(support, d.LastN))})
	}
	if len(resistance) > 0 {
		levels = append(levels, model.RawLevel{Method: model.Trendlines, Label: label, Tag: model.TagResistance, Price: calculator.Mean(lastN(resistance, d.LastN))})
	}
	return levels, nil
}

// angle converts a per-bar slope to degrees.
func angle(slope float64) float64 {
	return math.Atan(slope) * 180 / math.Pi
}

func lastN(values []float64, n int) []float64 {
	if n <= 0 || n >= len(values) {
		return values
	}
	return values[len(values)-n:]
}
