package collector

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"time"

	"LevelSentinel/internal/model"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchBars returns bars of the given interval ("15m", "1d") covering
	// period ("5d", "6mo"), oldest first.
	FetchBars(ctx context.Context, symbol, interval, period string) ([]model.OHLCV, error)
	Name() string
}

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}

// normalizeBars sorts bars chronologically and keeps the last bar of any
// repeated timestamp, which the analysis requires to be strictly increasing.
func normalizeBars(bars []model.OHLCV) []model.OHLCV {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Time.Equal(b.Time) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
