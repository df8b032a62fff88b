package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LevelSentinel/internal/logger"
	"LevelSentinel/internal/model"
	"LevelSentinel/internal/strategy"
)

func newTestCollector(f Fetcher) *Collector {
	return NewCollector(f, strategy.NewEngine(strategy.DefaultConfig(), logger.Nop()), "15m", "5d")
}

func TestCollect_MockFetcher(t *testing.T) {
	f := &MockFetcher{Price: 5000}
	a, err := newTestCollector(f).Collect(context.Background(), " spy ")
	require.NoError(t, err)

	assert.Equal(t, 1, f.Calls)
	assert.Equal(t, "SPY", a.Symbol)
	assert.Equal(t, "15m", a.Interval)
	assert.Equal(t, 120, a.Bars)
	assert.Empty(t, a.Diagnostics.Unavailable())
	assert.False(t, a.Levels.Empty())
}

func TestCollect_Errors(t *testing.T) {
	boom := errors.New("boom")

	_, err := newTestCollector(&MockFetcher{Err: boom}).Collect(context.Background(), "SPY")
	assert.ErrorIs(t, err, boom)

	_, err = newTestCollector(&MockFetcher{Bars: []model.OHLCV{}}).Collect(context.Background(), "SPY")
	assert.ErrorIs(t, err, ErrNoData)

	bad := []model.OHLCV{{Time: time.Unix(0, 0), Open: 10, High: 9, Low: 8, Close: 10}}
	_, err = newTestCollector(&MockFetcher{Bars: bad}).Collect(context.Background(), "SPY")
	assert.ErrorIs(t, err, strategy.ErrInvalidSeries)

	_, err = newTestCollector(&MockFetcher{Price: 100}).Collect(context.Background(), "  ")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = newTestCollector(&MockFetcher{Price: 100}).Collect(ctx, "SPY")
	assert.ErrorIs(t, err, context.Canceled)
}

const yahooBody = `{"chart":{"result":[{
  "timestamp":[1700000900,1700000000,1700001800,1700000900],
  "indicators":{"quote":[{
    "open":  [10.1, 10.0, null, 10.2],
    "high":  [10.5, 10.4, null, 10.6],
    "low":   [9.9,  9.8,  null, 10.0],
    "close": [10.3, 10.2, null, 10.4],
    "volume":[200,  null, null, 300]
  }]}
}],"error":null}}`

func TestYahooFetcher_FetchBars(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(yahooBody))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL + "/chart/"

	bars, err := f.FetchBars(context.Background(), "spx500", "15m", "5d")
	require.NoError(t, err)

	assert.Equal(t, "/chart/^GSPC", gotPath)
	assert.Contains(t, gotQuery, "interval=15m")
	assert.Contains(t, gotQuery, "range=5d")
	assert.Contains(t, gotQuery, "includePrePost=true")

	require.Len(t, bars, 2)
	assert.Equal(t, int64(1700000000), bars[0].Time.Unix())
	assert.Equal(t, 0.0, bars[0].Volume)
	// the later duplicate timestamp wins
	assert.Equal(t, int64(1700000900), bars[1].Time.Unix())
	assert.Equal(t, 10.4, bars[1].Close)
	assert.Equal(t, 300.0, bars[1].Volume)
}

func TestYahooFetcher_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		noData bool
	}{
		{"http error", http.StatusTooManyRequests, `slow down`, false},
		{"api error", http.StatusOK, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`, false},
		{"empty result", http.StatusOK, `{"chart":{"result":[],"error":null}}`, true},
		{"all null", http.StatusOK, `{"chart":{"result":[{"timestamp":[1],"indicators":{"quote":[{"open":[null],"high":[null],"low":[null],"close":[null],"volume":[null]}]}}]}}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			f := NewYahooFetcher("")
			f.BaseURL = srv.URL + "/"
			_, err := f.FetchBars(context.Background(), "AAPL", "1d", "1mo")
			require.Error(t, err)
			assert.Equal(t, tt.noData, errors.Is(err, ErrNoData))
		})
	}
}

func TestVsTraderFetcher_WeeklyFallback(t *testing.T) {
	// Monday 2024-01-01 .. Wednesday 2024-01-10
	daily := `[
	  {"timestamp":1704067200,"open":10,"high":11,"low":9,"close":10.5,"volume":100},
	  {"timestamp":1704153600,"open":10.5,"high":12,"low":10,"close":11.5,"volume":100},
	  {"timestamp":1704758400,"open":11.5,"high":13,"low":11,"close":12,"volume":50},
	  {"timestamp":1704844800,"open":12,"high":12.5,"low":8,"close":9,"volume":50}
	]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		if r.URL.Query().Get("interval") == "1wk" {
			http.Error(w, "unsupported", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(daily))
	}))
	defer srv.Close()

	bars, err := NewVsTraderFetcher(srv.URL, "key", "").FetchBars(context.Background(), "SPY", "1wk", "1mo")
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, model.OHLCV{Time: time.Unix(1704067200, 0).UTC(), Open: 10, High: 12, Low: 9, Close: 11.5, Volume: 200}, bars[0])
	assert.Equal(t, model.OHLCV{Time: time.Unix(1704758400, 0).UTC(), Open: 11.5, High: 13, Low: 8, Close: 9, Volume: 100}, bars[1])
}
