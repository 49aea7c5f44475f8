package marketdata

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diphunter/internal/domain"
	"diphunter/internal/store"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeBarSource serves scripted bars per symbol and counts calls.
type fakeBarSource struct {
	mu    sync.Mutex
	bars  map[string][]domain.Bar
	fail  map[string]bool
	calls int
}

func (f *fakeBarSource) FetchBars(_ context.Context, symbol string, _, _ time.Time) ([]domain.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail[symbol] {
		return nil, fmt.Errorf("upstream down for %s", symbol)
	}
	return f.bars[symbol], nil
}

type fakeAnalystSource struct {
	views map[string]AnalystView
	fail  map[string]bool
}

func (f *fakeAnalystSource) FetchAnalystView(_ context.Context, symbol string) (AnalystView, error) {
	if f.fail[symbol] {
		return AnalystView{}, fmt.Errorf("analyst endpoint down")
	}
	return f.views[symbol], nil
}

func flatBars(symbol string, n int, px float64) []domain.Bar {
	bars := make([]domain.Bar, n)
	for i := range bars {
		bars[i] = domain.Bar{
			Symbol: symbol, Timestamp: day0.AddDate(0, 0, i),
			Open: px, High: px, Low: px - 1, Close: px,
		}
	}
	return bars
}

func fastOpts() LoaderOpts {
	return LoaderOpts{Workers: 2, RatePerMinute: 100000, Retries: 1}
}

func TestLoadFramesBuildsPerSymbol(t *testing.T) {
	target := 90.0
	bars := &fakeBarSource{bars: map[string][]domain.Bar{
		"AAPL": flatBars("AAPL", 130, 100),
		"MSFT": flatBars("MSFT", 130, 200),
	}}
	analysts := &fakeAnalystSource{views: map[string]AnalystView{
		"AAPL": {TargetPrice: &target, Rating: "buy"},
	}}

	l := NewLoader(bars, analysts, nil, fastOpts(), nil)
	frames, ratings, warnings, err := l.LoadFrames(context.Background(),
		[]string{"AAPL", "MSFT"}, nil, day0, day0.AddDate(0, 0, 130))
	require.NoError(t, err)

	require.Len(t, frames, 2)
	assert.Empty(t, warnings)
	assert.Equal(t, "buy", ratings["AAPL"])
	assert.Empty(t, ratings["MSFT"])

	// The analyst target feeds the threshold: min(90, 100*0.8) * 0.75 = 60.
	row, ok := frames["AAPL"].Last()
	require.True(t, ok)
	assert.InDelta(t, 60.0, row.BuyThreshold, 1e-9)

	// Without a target MSFT falls back to the discounted high: 200*0.8*0.75.
	row, ok = frames["MSFT"].Last()
	require.True(t, ok)
	assert.InDelta(t, 120.0, row.BuyThreshold, 1e-9)
}

func TestLoadFramesExcludesSymbolsWithoutBars(t *testing.T) {
	bars := &fakeBarSource{
		bars: map[string][]domain.Bar{"AAPL": flatBars("AAPL", 130, 100)},
		fail: map[string]bool{"GHOST": true},
	}

	l := NewLoader(bars, nil, nil, fastOpts(), nil)
	frames, _, warnings, err := l.LoadFrames(context.Background(),
		[]string{"AAPL", "GHOST", "EMPTY"}, nil, day0, day0.AddDate(0, 0, 130))
	require.NoError(t, err)

	assert.Len(t, frames, 1)
	assert.Contains(t, frames, "AAPL")
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "EMPTY")
	assert.Contains(t, warnings[1], "GHOST")
}

func TestLoadFramesAnalystFailureDegrades(t *testing.T) {
	bars := &fakeBarSource{bars: map[string][]domain.Bar{
		"AAPL": flatBars("AAPL", 130, 100),
	}}
	analysts := &fakeAnalystSource{fail: map[string]bool{"AAPL": true}}

	l := NewLoader(bars, analysts, nil, fastOpts(), nil)
	frames, ratings, warnings, err := l.LoadFrames(context.Background(),
		[]string{"AAPL"}, nil, day0, day0.AddDate(0, 0, 130))
	require.NoError(t, err)

	require.Contains(t, frames, "AAPL")
	assert.Nil(t, frames["AAPL"].AnalystTarget)
	assert.Empty(t, ratings)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "analyst view unavailable")
}

func TestFetchFallsBackToCache(t *testing.T) {
	cache := store.NewParquetStore(t.TempDir())
	cached := flatBars("AAPL", 5, 100)
	require.NoError(t, cache.WriteBars(context.Background(), cached))

	bars := &fakeBarSource{fail: map[string]bool{"AAPL": true}}
	l := NewLoader(bars, nil, cache, fastOpts(), nil)

	got, err := l.fetchWithCache(context.Background(), "AAPL", day0, day0.AddDate(0, 0, 10))
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestFetchRefreshesCache(t *testing.T) {
	cache := store.NewParquetStore(t.TempDir())
	bars := &fakeBarSource{bars: map[string][]domain.Bar{
		"AAPL": flatBars("AAPL", 3, 100),
	}}
	l := NewLoader(bars, nil, cache, fastOpts(), nil)

	_, err := l.fetchWithCache(context.Background(), "AAPL", day0, day0.AddDate(0, 0, 10))
	require.NoError(t, err)

	// Now the cache alone can serve the symbol.
	cached, err := cache.ReadBars(context.Background(), "AAPL", day0, day0.AddDate(0, 0, 10))
	require.NoError(t, err)
	assert.Len(t, cached, 3)
}

func TestFetchErrorWithoutCache(t *testing.T) {
	bars := &fakeBarSource{fail: map[string]bool{"AAPL": true}}
	l := NewLoader(bars, nil, nil, fastOpts(), nil)

	_, err := l.fetchWithCache(context.Background(), "AAPL", day0, day0.AddDate(0, 0, 10))
	assert.Error(t, err)
}

func TestLoadIndex(t *testing.T) {
	bars := &fakeBarSource{bars: map[string][]domain.Bar{
		"SPY": flatBars("SPY", 250, 500),
	}}
	l := NewLoader(bars, nil, nil, fastOpts(), nil)

	idx, err := l.LoadIndex(context.Background(), "SPY", day0, day0.AddDate(0, 0, 250))
	require.NoError(t, err)
	require.NotNil(t, idx)

	// Flat series: close == SMA after warm-up, which reads as not bullish.
	assert.False(t, idx.Bullish(day0.AddDate(0, 0, 249)))

	_, err = l.LoadIndex(context.Background(), "GHOST", day0, day0.AddDate(0, 0, 250))
	assert.Error(t, err)
}
