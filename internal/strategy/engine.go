package strategy

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"LevelSentinel/internal/calculator"
	"LevelSentinel/internal/detector"
	"LevelSentinel/internal/logger"
	"LevelSentinel/internal/model"
)

// Config holds every tunable of the analysis pipeline.
type Config struct {
	Detector       detector.Config
	Weights        [model.MethodCount]float64
	MergeTolerance float64
	ProximityBand  float64
	ProximityBoost float64
	Seed           uint64
	Parallel       bool
}

// DefaultConfig returns the stock pipeline settings.
func DefaultConfig() Config {
	return Config{
		Detector:       detector.DefaultConfig(),
		Weights:        DefaultWeights(),
		MergeTolerance: 0.005,
		ProximityBand:  0.02,
		ProximityBoost: 1.5,
		Seed:           42,
	}
}

// Engine runs all detectors over a series and ranks the consensus levels.
type Engine struct {
	cfg    Config
	ranker Ranker
	log    *logger.Logger
}

// NewEngine creates an Engine. A nil log uses the global logger.
func NewEngine(cfg Config, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Get()
	}
	return &Engine{
		cfg: cfg,
		ranker: Ranker{
			Weights:        cfg.Weights,
			MergeTolerance: cfg.MergeTolerance,
			ProximityBand:  cfg.ProximityBand,
			ProximityBoost: cfg.ProximityBoost,
		},
		log: log,
	}
}

// Config returns the engine's settings.
func (e *Engine) Config() Config { return e.cfg }

// Analyze validates the series, runs every detector and merges their output.
// Detector failures only mark that method unavailable; the returned error is
// non-nil only for an invalid series.
func (e *Engine) Analyze(series *model.PriceSeries) (*model.Analysis, error) {
	if err := ValidateSeries(series); err != nil {
		return nil, err
	}
	started := time.Now()

	diag := e.Detect(series)
	current := series.LastClose()
	levels := e.ranker.Rank(&diag, current)
	high, low, err := calculator.CalculateRange(series.Bars)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeries, err)
	}

	a := &model.Analysis{
		ID:           uuid.NewString(),
		Symbol:       series.Symbol,
		Interval:     series.Interval,
		Bars:         series.Len(),
		CurrentPrice: current,
		RangeHigh:    high,
		RangeLow:     low,
		Levels:       levels,
		Diagnostics:  diag,
		StartedAt:    started,
		Duration:     time.Since(started),
	}
	e.log.Infof("analysis %s: %d bars, %d support, %d resistance, %d/%d methods available",
		series.Symbol, a.Bars, len(levels.Support), len(levels.Resistance),
		model.MethodCount-len(diag.Unavailable()), model.MethodCount)
	return a, nil
}

// Detect runs the six detectors and returns their raw output. The trendline
// sampler is seeded afresh on every call so results are reproducible.
func (e *Engine) Detect(series *model.PriceSeries) model.Diagnostics {
	rng := rand.New(rand.NewPCG(e.cfg.Seed, e.cfg.Seed))
	detectors := detector.New(e.cfg.Detector, rng)

	var diag model.Diagnostics
	if e.cfg.Parallel {
		var wg sync.WaitGroup
		for _, d := range detectors {
			wg.Add(1)
			go func(d detector.Detector) {
				defer wg.Done()
				diag[d.Method()] = e.run(d, series)
			}(d)
		}
		wg.Wait()
	} else {
		for _, d := range detectors {
			diag[d.Method()] = e.run(d, series)
		}
	}
	return diag
}

// run invokes one detector, downgrading errors and panics to "unavailable".
func (e *Engine) run(d detector.Detector, series *model.PriceSeries) (res model.MethodResult) {
	res.Method = d.Method()
	defer func() {
		if r := recover(); r != nil {
			e.log.Warnf("%s panicked: %v", d.Method(), r)
			res = model.MethodResult{Method: d.Method(), Reason: fmt.Sprintf("%s: %v", detector.ErrNumericFailure, r)}
		}
	}()

	levels, err := d.Detect(series)
	if err != nil {
		e.log.Debugf("%s unavailable: %v", d.Method(), err)
		res.Reason = err.Error()
		return res
	}
	res.Available = true
	res.Levels = levels
	return res
}
