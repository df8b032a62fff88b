package calculator

import (
	"errors"
	"math"

	"github.com/markcheno/go-talib"
)

// CalculateSMA computes the simple moving average of the last period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, ErrNotEnoughData
	}
	sma := talib.Sma(prices, period)
	return sma[len(sma)-1], nil
}

// CalculateStdDev computes the sample (n-1) standard deviation of the last
// period prices. ta-lib reports the population deviation, so it is rescaled.
func CalculateStdDev(prices []float64, period int) (float64, error) {
	if period < 2 {
		return 0, errors.New("period must be at least 2")
	}
	if len(prices) < period {
		return 0, ErrNotEnoughData
	}
	std := talib.StdDev(prices, period, 1.0)
	n := float64(period)
	return std[len(std)-1] * math.Sqrt(n/(n-1)), nil
}

// Bands holds the final-bar Bollinger envelope.
type Bands struct {
	Lower  float64
	Middle float64
	Upper  float64
	StdDev float64
}

// CalculateBollinger returns mean ± k·σ of the closes at the last bar.
func CalculateBollinger(closes []float64, period int, k float64) (Bands, error) {
	mean, err := CalculateSMA(closes, period)
	if err != nil {
		return Bands{}, err
	}
	std, err := CalculateStdDev(closes, period)
	if err != nil {
		return Bands{}, err
	}
	return Bands{
		Lower:  mean - k*std,
		Middle: mean,
		Upper:  mean + k*std,
		StdDev: std,
	}, nil
}
