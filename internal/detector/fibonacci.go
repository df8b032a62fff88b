package detector

import (
	"fmt"

	"LevelSentinel/internal/calculator"
	"LevelSentinel/internal/model"
)

// fibRatios are the retracement ratios measured down from the range high.
var fibRatios = []struct {
	Label string
	Ratio float64
	Tag   model.LevelTag
}{
	{"0%", 0, model.TagResistance},
	{"23.6%", 0.236, model.TagResistance},
	{"38.2%", 0.382, model.TagResistance},
	{"50%", 0.5, model.TagBoth},
	{"61.8%", 0.618, model.TagSupport},
	{"100%", 1, model.TagSupport},
}

// FibonacciDetector emits retracement levels of the full high-low range.
type FibonacciDetector struct{}

func (d *FibonacciDetector) Method() model.Method { return model.Fibonacci }

func (d *FibonacciDetector) Detect(series *model.PriceSeries) ([]model.RawLevel, error) {
	high, low, err := calculator.CalculateRange(series.Bars)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsufficientData, err)
	}
	diff := high - low
	if diff <= 0 {
		return nil, fmt.Errorf("%w: zero price range", ErrDegenerateInput)
	}

	levels := make([]model.RawLevel, 0, len(fibRatios))
	for _, r := range fibRatios {
		price := high - diff*r.Ratio
		if r.Ratio == 1 {
			price = low
		}
		levels = append(levels, model.RawLevel{
			Method: model.Fibonacci,
			Label:  "Fib " + r.Label,
			Tag:    r.Tag,
			Price:  price,
		})
	}
	return levels, nil
}
