package detector

import (
	"errors"
	"math/rand/v2"

	"LevelSentinel/internal/model"
)

var (
	// ErrInsufficientData means the series is shorter than the method's minimum window.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrDegenerateInput means the input has no usable spread (flat prices, zero volume).
	ErrDegenerateInput = errors.New("degenerate input")
	// ErrNumericFailure means an internal computation produced no usable number.
	ErrNumericFailure = errors.New("numeric failure")
)

// Detector turns a price series into raw candidate levels.
type Detector interface {
	Method() model.Method
	Detect(series *model.PriceSeries) ([]model.RawLevel, error)
}

// Config holds the heuristic constants of every detector.
type Config struct {
	PivotWindow        int
	PivotCenterOffsets []int // window offsets at which an extremum qualifies; nil means {W/2-1, W/2}
	PivotTolerance     float64

	BollingerPeriod int
	BollingerK      float64

	KMeansK       int
	KMeansMaxIter int

	VolumeBinWidth float64
	VolumeMinBars  int
	VolumeStdDevs  float64

	TrendWindow    int
	TrendSamples   int
	TrendAngleDeg  float64
	TrendLastN     int
	TheilSenPoints int
}

// DefaultConfig returns the stock heuristics.
func DefaultConfig() Config {
	return Config{
		PivotWindow:     10,
		PivotTolerance:  0.005,
		BollingerPeriod: 20,
		BollingerK:      2,
		KMeansK:         5,
		KMeansMaxIter:   300,
		VolumeBinWidth:  0.5,
		VolumeMinBars:   20,
		VolumeStdDevs:   1,
		TrendWindow:     20,
		TrendSamples:    50,
		TrendAngleDeg:   5,
		TrendLastN:      3,
		TheilSenPoints:  50,
	}
}

// New builds the six detectors in Method order. rng drives trendline
// sampling and must not be shared with concurrent callers.
func New(cfg Config, rng *rand.Rand) []Detector {
	return []Detector{
		&FibonacciDetector{},
		&PivotDetector{Window: cfg.PivotWindow, CenterOffsets: cfg.PivotCenterOffsets, Tolerance: cfg.PivotTolerance},
		&BollingerDetector{Period: cfg.BollingerPeriod, K: cfg.BollingerK},
		&KMeansDetector{K: cfg.KMeansK, MaxIter: cfg.KMeansMaxIter},
		&VolumeProfileDetector{BinWidth: cfg.VolumeBinWidth, MinBars: cfg.VolumeMinBars, StdDevs: cfg.VolumeStdDevs},
		&TrendlineDetector{
			Window:         cfg.TrendWindow,
			Samples:        cfg.TrendSamples,
			AngleDeg:       cfg.TrendAngleDeg,
			LastN:          cfg.TrendLastN,
			TheilSenPoints: cfg.TheilSenPoints,
			Rand:           rng,
		},
	}
}
