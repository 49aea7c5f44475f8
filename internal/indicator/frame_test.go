package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diphunter/internal/domain"
	"diphunter/internal/regime"
)

var day0 = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func flatBars(ticker string, n int, price float64) []domain.Bar {
	bars := make([]domain.Bar, n)
	for i := range bars {
		bars[i] = domain.Bar{
			Symbol:    ticker,
			Timestamp: day0.AddDate(0, 0, i),
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
		}
	}
	return bars
}

func TestSixMonthHighWarmup(t *testing.T) {
	f := Build("ACME", flatBars("ACME", 130, 100), nil, nil)
	dates := f.Dates()
	require.Len(t, dates, 130)

	row, ok := f.Row(dates[124])
	require.True(t, ok)
	assert.True(t, math.IsNaN(row.SixMonthHigh), "six-month high defined before 126 sessions")
	assert.True(t, math.IsNaN(row.BuyThreshold), "threshold defined before its input")

	row, ok = f.Row(dates[125])
	require.True(t, ok)
	assert.Equal(t, 100.0, row.SixMonthHigh)
}

func TestThresholdFormula(t *testing.T) {
	// sixMonthHigh = 100, analystTarget = 90:
	// referenceValue = min(90, 80) = 80, buyThreshold = 60.
	target := 90.0
	f := Build("ACME", flatBars("ACME", 126, 100), &target, nil)

	row, ok := f.Last()
	require.True(t, ok)
	assert.InDelta(t, 80.0, row.RefValue, 1e-9)
	assert.InDelta(t, 60.0, row.BuyThreshold, 1e-9)
}

func TestThresholdNoAnalystTargetFallback(t *testing.T) {
	f := Build("ACME", flatBars("ACME", 126, 100), nil, nil)

	row, ok := f.Last()
	require.True(t, ok)
	assert.InDelta(t, 80.0, row.RefValue, 1e-9)
	assert.InDelta(t, 60.0, row.BuyThreshold, 1e-9)
}

func TestThresholdTargetAboveDiscountedHigh(t *testing.T) {
	// Target above 80% of the high does not raise the reference value.
	target := 120.0
	f := Build("ACME", flatBars("ACME", 126, 100), &target, nil)

	row, _ := f.Last()
	assert.InDelta(t, 80.0, row.RefValue, 1e-9)
}

func TestRSISaturatesOnMonotonicRise(t *testing.T) {
	bars := make([]domain.Bar, 20)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = domain.Bar{Symbol: "ACME", Timestamp: day0.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	f := Build("ACME", bars, nil, nil)
	dates := f.Dates()

	// Undefined through the warm-up window (first delta is also undefined).
	for i := 0; i < RSIPeriod; i++ {
		row, _ := f.Row(dates[i])
		assert.True(t, math.IsNaN(row.RSI), "RSI defined at session %d", i)
	}

	// First defined value on a purely rising series saturates at 100 with no
	// division fault, and stays there.
	for i := RSIPeriod; i < len(dates); i++ {
		row, _ := f.Row(dates[i])
		assert.Equal(t, 100.0, row.RSI, "session %d", i)
	}
}

func TestRSIMixedSeries(t *testing.T) {
	// Alternate +2/-1 closes: avgGain/avgLoss = 2, RSI = 100 - 100/3.
	closes := []float64{100}
	for i := 0; i < 16; i++ {
		last := closes[len(closes)-1]
		if i%2 == 0 {
			closes = append(closes, last+2)
		} else {
			closes = append(closes, last-1)
		}
	}
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{Symbol: "ACME", Timestamp: day0.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	f := Build("ACME", bars, nil, nil)

	row, _ := f.Last()
	assert.False(t, math.IsNaN(row.RSI))
	assert.InDelta(t, 100-100.0/3.0, row.RSI, 1e-9)
}

func TestIndexJoin(t *testing.T) {
	n := 260
	idxBars := make([]domain.Bar, n)
	for i := range idxBars {
		c := 400 + float64(i)
		idxBars[i] = domain.Bar{Symbol: "SPY", Timestamp: day0.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	index := regime.NewIndex("SPY", idxBars)

	f := Build("ACME", flatBars("ACME", n, 100), nil, index)
	row, ok := f.Last()
	require.True(t, ok)

	assert.False(t, math.IsNaN(row.IndexClose))
	assert.False(t, math.IsNaN(row.IndexSMA))
	assert.True(t, row.Bullish())
}

func TestIndexJoinMissingDate(t *testing.T) {
	// Instrument trades on a date the index lacks: joined fields stay NaN and
	// the row reads as bearish.
	index := regime.NewIndex("SPY", nil)
	f := Build("ACME", flatBars("ACME", 5, 100), nil, index)

	row, _ := f.Last()
	assert.True(t, math.IsNaN(row.IndexClose))
	assert.False(t, row.Bullish())
}

func TestRowMissingDate(t *testing.T) {
	f := Build("ACME", flatBars("ACME", 5, 100), nil, nil)
	_, ok := f.Row(day0.AddDate(1, 0, 0))
	assert.False(t, ok)
}

func TestBuildSortsUnorderedBars(t *testing.T) {
	bars := flatBars("ACME", 5, 100)
	bars[0], bars[4] = bars[4], bars[0]
	f := Build("ACME", bars, nil, nil)

	dates := f.Dates()
	for i := 1; i < len(dates); i++ {
		assert.True(t, dates[i].After(dates[i-1]), "dates out of order at %d", i)
	}
}
