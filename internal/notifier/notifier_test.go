package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LevelSentinel/internal/model"
	"LevelSentinel/internal/recorder"
)

func sampleAnalysis() *model.Analysis {
	a := &model.Analysis{
		Symbol:       "SPY",
		Interval:     "15m",
		Bars:         130,
		CurrentPrice: 100,
		RangeHigh:    110,
		RangeLow:     90,
		Levels: model.LevelSet{
			Support: []model.MergedLevel{
				{Method: model.VolumeProfile, Label: "Volume Profile", Kind: model.Support, Price: 95.5, Score: 2, Members: 3},
				{Method: model.PivotPoints, Label: "Pivot Points", Kind: model.Support, Price: 98.25, Score: 2.25, Members: 1},
			},
			Resistance: []model.MergedLevel{
				{Method: model.Fibonacci, Label: "Fib 0%", Kind: model.Resistance, Price: 110, Score: 1, Members: 1},
			},
		},
	}
	for _, m := range model.AllMethods() {
		a.Diagnostics[m] = model.MethodResult{Method: m, Available: true}
	}
	a.Diagnostics[model.Fibonacci].Levels = []model.RawLevel{
		{Method: model.Fibonacci, Label: "Fib 0%", Tag: model.TagResistance, Price: 110},
		{Method: model.Fibonacci, Label: "Fib 100%", Tag: model.TagSupport, Price: 90},
	}
	a.Diagnostics[model.BollingerBands] = model.MethodResult{Method: model.BollingerBands, Reason: "insufficient data: bollinger bands need 20 bars, have 13"}
	return a
}

func TestFormatLevelReport(t *testing.T) {
	msg := FormatLevelReport(sampleAnalysis())

	assert.Contains(t, msg, "<b>SPY Support &amp; Resistance</b>")
	assert.Contains(t, msg, "Current price: 100.00")
	assert.Contains(t, msg, "Range: 90.00 - 110.00 (at 50%)")
	assert.Contains(t, msg, "95.50  Volume Profile ×3  (2.00)")
	assert.Contains(t, msg, "Nearest support: 98.25 (-1.75%)")
	assert.Contains(t, msg, "Nearest resistance: 110.00 (+10.00%)")
	assert.Contains(t, msg, "Not available: Bollinger Bands")

	// support is listed highest first
	assert.Less(t, strings.Index(msg, "98.25  Pivot Points"), strings.Index(msg, "95.50  Volume Profile"))
}

func TestFormatLevelReport_Empty(t *testing.T) {
	a := &model.Analysis{Symbol: "FLAT", CurrentPrice: 10, RangeHigh: 10, RangeLow: 10}
	msg := FormatLevelReport(a)
	assert.Contains(t, msg, "No levels found.")
	assert.NotContains(t, msg, "Nearest")
}

func TestFormatDiagnostics(t *testing.T) {
	msg := FormatDiagnostics(sampleAnalysis())

	assert.Contains(t, msg, "<b>Fibonacci</b>:\n  • Fib 0%: 110.00\n  • Fib 100%: 90.00\n")
	assert.Contains(t, msg, "<b>Bollinger Bands</b>: Not available (insufficient data")
	assert.Contains(t, msg, "<b>Trendlines</b>:\n  • none\n")
	// methods appear in declaration order
	assert.Less(t, strings.Index(msg, "Fibonacci"), strings.Index(msg, "Pivot Points"))
	assert.Less(t, strings.Index(msg, "Volume Profile"), strings.Index(msg, "Trendlines"))
}

func TestFormatHistory(t *testing.T) {
	assert.Equal(t, "No recorded runs for QQQ.", FormatHistory("QQQ", nil))

	msg := FormatHistory("SPY", []recorder.RunSummary{{
		Timestamp:       time.Date(2025, 3, 3, 21, 0, 0, 0, time.Local),
		CurrentPrice:    510,
		NearestSupport:  509,
		SupportCount:    2,
		ResistanceCount: 0,
	}})
	assert.Contains(t, msg, "2025-03-03 21:00  510.00  S 509.00 | R -  (2/0)")
}

type fakeTelegram struct {
	mu       sync.Mutex
	sent     []map[string]string
	failures int
	updates  string
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		if f.failures > 0 {
			f.failures--
			http.Error(w, `{"ok":false}`, http.StatusBadGateway)
			return
		}
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		f.sent = append(f.sent, payload)
		_, _ = w.Write([]byte(`{"ok":true}`))
	case strings.HasSuffix(r.URL.Path, "/getUpdates"):
		_, _ = w.Write([]byte(f.updates))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeTelegram) messages() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]string(nil), f.sent...)
}

func (f *fakeTelegram) failNext(n int) {
	f.mu.Lock()
	f.failures = n
	f.mu.Unlock()
}

func newTestNotifier(t *testing.T, fake *fakeTelegram) *TelegramNotifier {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	tn := NewTelegramNotifier("token", "chat-1", "")
	tn.APIBase = srv.URL
	return tn
}

func TestTelegramNotifier_Send(t *testing.T) {
	fake := &fakeTelegram{}
	tn := newTestNotifier(t, fake)

	require.NoError(t, tn.Send("hello"))
	sent := fake.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "chat-1", sent[0]["chat_id"])
	assert.Equal(t, "hello", sent[0]["text"])
	assert.Equal(t, "HTML", sent[0]["parse_mode"])

	fake.failNext(1)
	assert.Error(t, tn.Send("boom"))
}

func TestTelegramNotifier_SendWithRetry(t *testing.T) {
	fake := &fakeTelegram{failures: 1}
	tn := newTestNotifier(t, fake)

	// one failure, one retry after a 1s backoff
	require.NoError(t, tn.SendWithRetry(context.Background(), "retry me", 1))
	assert.Len(t, fake.messages(), 1)

	fake.failNext(5)
	err := tn.SendWithRetry(context.Background(), "never", 0)
	assert.ErrorContains(t, err, "all 1 retries exhausted")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fake.failNext(5)
	assert.ErrorIs(t, tn.SendWithRetry(ctx, "cancelled", 3), context.Canceled)
}

func TestTelegramNotifier_PollAndDispatch(t *testing.T) {
	fake := &fakeTelegram{updates: `{"ok":true,"result":[
		{"update_id":7,"message":{"text":" /levels spy "}},
		{"update_id":8},
		{"update_id":9,"message":{"text":"/quiet"}}
	]}`}
	tn := newTestNotifier(t, fake)

	updates, err := tn.poll(context.Background(), tn.Client, 0)
	require.NoError(t, err)
	require.Len(t, updates, 3)

	var got []string
	offset := tn.dispatch(updates, 0, func(cmd string) string {
		got = append(got, cmd)
		if cmd == "/quiet" {
			return ""
		}
		return "reply to " + cmd
	})
	assert.Equal(t, 10, offset)
	assert.Equal(t, []string{"/levels spy", "/quiet"}, got)
	sent := fake.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "reply to /levels spy", sent[0]["text"])
}

func TestTelegramNotifier_PollNotOK(t *testing.T) {
	tn := newTestNotifier(t, &fakeTelegram{updates: `{"ok":false,"description":"Unauthorized"}`})
	_, err := tn.poll(context.Background(), tn.Client, 0)
	assert.Error(t, err)
}
