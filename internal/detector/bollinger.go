package detector

import (
	"errors"
	"fmt"
	"math"

	"LevelSentinel/internal/calculator"
	"LevelSentinel/internal/model"
)

// BollingerDetector reads support and resistance off the final bar's bands.
type BollingerDetector struct {
	Period int
	K      float64
}

func (d *BollingerDetector) Method() model.Method { return model.BollingerBands }

func (d *BollingerDetector) Detect(series *model.PriceSeries) ([]model.RawLevel, error) {
	if d.Period < 2 {
		return nil, fmt.Errorf("%w: bollinger period must be at least 2", ErrNumericFailure)
	}
	if series.Len() < d.Period {
		return nil, fmt.Errorf("%w: bollinger bands need %d bars, have %d", ErrInsufficientData, d.Period, series.Len())
	}
	closes := series.Closes()
	window := closes[len(closes)-d.Period:]
	if calculator.Max(window) == calculator.Min(window) {
		return nil, fmt.Errorf("%w: flat closes over %d bars", ErrDegenerateInput, d.Period)
	}
	bands, err := calculator.CalculateBollinger(closes, d.Period, d.K)
	if err != nil {
		if errors.Is(err, calculator.ErrNotEnoughData) {
			return nil, fmt.Errorf("%w: %v", ErrInsufficientData, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrNumericFailure, err)
	}
	if bands.StdDev <= 0 {
		return nil, fmt.Errorf("%w: zero close deviation", ErrDegenerateInput)
	}
	if math.IsNaN(bands.Lower) || math.IsNaN(bands.Upper) {
		return nil, fmt.Errorf("%w: non-finite bands", ErrNumericFailure)
	}

	label := model.BollingerBands.String()
	return []model.RawLevel{
		{Method: model.BollingerBands, Label: label, Tag: model.TagSupport, Price: bands.Lower},
		{Method: model.BollingerBands, Label: label, Tag: model.TagResistance, Price: bands.Upper},
	}, nil
}
