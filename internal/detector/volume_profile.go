package detector

import (
	"fmt"
	"math"

	"LevelSentinel/internal/calculator"
	"LevelSentinel/internal/model"
)

// maxVolumeBins bounds the profile so a tiny bin width on a wide range cannot
// allocate without limit.
const maxVolumeBins = 1_000_000

// VolumeBin is one price bucket of a volume profile.
type VolumeBin struct {
	Low    float64
	High   float64
	Volume float64
}

// Mid returns the bin midpoint.
func (b VolumeBin) Mid() float64 { return (b.Low + b.High) / 2 }

// VolumeProfileDetector emits the midpoints of bins whose traded volume
// stands out from the rest of the profile.
type VolumeProfileDetector struct {
	BinWidth float64
	MinBars  int
	StdDevs  float64
}

func (d *VolumeProfileDetector) Method() model.Method { return model.VolumeProfile }

func (d *VolumeProfileDetector) Detect(series *model.PriceSeries) ([]model.RawLevel, error) {
	if series.Len() < d.MinBars {
		return nil, fmt.Errorf("%w: volume profile needs %d bars, have %d", ErrInsufficientData, d.MinBars, series.Len())
	}
	bins, err := BuildVolumeProfile(series.Bars, d.BinWidth)
	if err != nil {
		return nil, err
	}

	var volumes []float64
	for _, b := range bins {
		if b.Volume > 0 {
			volumes = append(volumes, b.Volume)
		}
	}
	if len(volumes) == 0 {
		return nil, fmt.Errorf("%w: no traded volume", ErrDegenerateInput)
	}
	threshold := calculator.Mean(volumes) + d.StdDevs*calculator.PopStdDev(volumes)

	var levels []model.RawLevel
	for _, b := range bins {
		if b.Volume > threshold {
			levels = append(levels, model.RawLevel{
				Method: model.VolumeProfile,
				Label:  model.VolumeProfile.String(),
				Tag:    model.TagAny,
				Price:  b.Mid(),
			})
		}
	}
	return levels, nil
}

// BuildVolumeProfile buckets the price span into bins of the given width,
// starting at floor(min low) and ending past ceil(max high). Each bar adds
// its whole volume to every bin its high-low range touches.
func BuildVolumeProfile(bars []model.OHLCV, width float64) ([]VolumeBin, error) {
	if width <= 0 || math.IsNaN(width) {
		return nil, fmt.Errorf("%w: bin width must be positive", ErrNumericFailure)
	}
	high, low, err := calculator.CalculateRange(bars)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsufficientData, err)
	}
	start := math.Floor(low)
	stop := math.Ceil(high) + width
	count := int(math.Ceil((stop - start) / width))
	if count > maxVolumeBins {
		return nil, fmt.Errorf("%w: %d bins exceed limit", ErrNumericFailure, count)
	}

	bins := make([]VolumeBin, 0, count)
	for i := 1; i < count; i++ {
		bin := VolumeBin{Low: start + float64(i-1)*width, High: start + float64(i)*width}
		for _, b := range bars {
			if b.High >= bin.Low && b.Low <= bin.High {
				bin.Volume += b.Volume
			}
		}
		bins = append(bins, bin)
	}
	return bins, nil
}
