package detector

import (
	"errors"
	"fmt"

	"LevelSentinel/internal/calculator"
	"LevelSentinel/internal/model"
)

// KMeansDetector clusters closing prices; cluster centers are
// direction-agnostic levels.
type KMeansDetector struct {
	K       int
	MaxIter int
}

func (d *KMeansDetector) Method() model.Method { return model.KMeansClusters }

func (d *KMeansDetector) Detect(series *model.PriceSeries) ([]model.RawLevel, error) {
	if series.Len() < d.K {
		return nil, fmt.Errorf("%w: kmeans needs %d bars, have %d", ErrInsufficientData, d.K, series.Len())
	}
	centers, err := calculator.KMeans1D(series.Closes(), d.K, d.MaxIter)
	switch {
	case errors.Is(err, calculator.ErrTooFewDistinct):
		return nil, fmt.Errorf("%w: %v", ErrDegenerateInput, err)
	case errors.Is(err, calculator.ErrNotEnoughData):
		return nil, fmt.Errorf("%w: %v", ErrInsufficientData, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrNumericFailure, err)
	}

	levels := make([]model.RawLevel, len(centers))
	for i, c := range centers {
		levels[i] = model.RawLevel{Method: model.KMeansClusters, Label: model.KMeansClusters.String(), Tag: model.TagAny, Price: c}
	}
	return levels, nil
}
