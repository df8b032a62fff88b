package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"LevelSentinel/internal/logger"
	"LevelSentinel/internal/model"
	"LevelSentinel/internal/strategy"
)

// ErrNoData means the source returned no usable bars.
var ErrNoData = errors.New("no market data")

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	Count int           // generated bars, default 120
	Step  time.Duration // bar spacing, default 15m
	Bars  []model.OHLCV
	Err   error
	Calls int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(ctx context.Context, _, _, _ string) ([]model.OHLCV, error) {
	m.Calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Bars != nil {
		return m.Bars, nil
	}
	count, step := m.Count, m.Step
	if count <= 0 {
		count = 120
	}
	if step <= 0 {
		step = 15 * time.Minute
	}
	return generateMockBars(m.Price, count, step), nil
}

// generateMockBars produces a deterministic oscillating series around
// basePrice so every detector has swings, volume and a trend to work on.
func generateMockBars(basePrice float64, count int, step time.Duration) []model.OHLCV {
	start := time.Date(2025, 1, 6, 14, 30, 0, 0, time.UTC)
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		phase := 2 * math.Pi * float64(i) / 24
		p := basePrice * (1 + 0.02*math.Sin(phase) + float64(i-count/2)*0.0002)
		bars[i] = model.OHLCV{
			Time:   start.Add(time.Duration(i) * step),
			Open:   p * 0.999,
			High:   p * 1.004,
			Low:    p * 0.996,
			Close:  p,
			Volume: 1000000 * (1.5 + math.Cos(phase)),
		}
	}
	return bars
}

// Collector orchestrates data fetching and level analysis.
type Collector struct {
	Fetcher  Fetcher
	Engine   *strategy.Engine
	Interval string
	Period   string
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, engine *strategy.Engine, interval, period string) *Collector {
	return &Collector{Fetcher: fetcher, Engine: engine, Interval: interval, Period: period}
}

// Collect fetches bars for symbol and runs the level analysis on them.
func (c *Collector) Collect(ctx context.Context, symbol string) (*model.Analysis, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("collect: empty symbol")
	}
	bars, err := c.Fetcher.FetchBars(ctx, symbol, c.Interval, c.Period)
	if err != nil {
		return nil, fmt.Errorf("fetch %s bars from %s: %w", symbol, c.Fetcher.Name(), err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("fetch %s bars from %s: %w", symbol, c.Fetcher.Name(), ErrNoData)
	}
	logger.Debugf("fetched %d %s bars for %s from %s", len(bars), c.Interval, symbol, c.Fetcher.Name())

	series := &model.PriceSeries{
		Symbol:    symbol,
		Interval:  c.Interval,
		Bars:      bars,
		FetchedAt: time.Now(),
	}
	a, err := c.Engine.Analyze(series)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", symbol, err)
	}
	return a, nil
}
