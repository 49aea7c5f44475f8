// Package regime classifies the reference index's trend state. The single
// bullish/bearish boolean it produces gates all entries for filter-bearing
// strategies; it never gates exits.
package regime

import (
	"math"
	"sort"
	"time"

	"diphunter/internal/domain"
)

// SMAPeriod is the trailing window for the trend-defining moving average.
const SMAPeriod = 200

// Index holds the reference index's close and SMA200 series, keyed by
// session date.
type Index struct {
	symbol string
	dates  []time.Time
	close  []float64
	sma    []float64 // NaN until SMAPeriod sessions exist
	byDate map[time.Time]int
}

// NewIndex builds the regime series from the reference index's bar history.
// Bars may arrive unordered; they are sorted by date. Fewer than SMAPeriod
// sessions leaves the whole SMA series undefined, which Bullish treats
// conservatively as bearish.
func NewIndex(symbol string, bars []domain.Bar) *Index {
	sorted := make([]domain.Bar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	x := &Index{
		symbol: symbol,
		dates:  make([]time.Time, len(sorted)),
		close:  make([]float64, len(sorted)),
		sma:    make([]float64, len(sorted)),
		byDate: make(map[time.Time]int, len(sorted)),
	}

	var sum float64
	for i, b := range sorted {
		day := domain.Day(b.Timestamp)
		x.dates[i] = day
		x.close[i] = b.Close
		x.byDate[day] = i

		sum += b.Close
		if i >= SMAPeriod {
			sum -= sorted[i-SMAPeriod].Close
		}
		if i >= SMAPeriod-1 {
			x.sma[i] = sum / SMAPeriod
		} else {
			x.sma[i] = math.NaN()
		}
	}
	return x
}

// Symbol returns the reference index ticker.
func (x *Index) Symbol() string { return x.symbol }

// Len returns the number of sessions in the series.
func (x *Index) Len() int { return len(x.dates) }

// Lookup returns the index close and SMA200 for the given date. The SMA is
// NaN during warm-up. ok is false when the index has no session on that date.
func (x *Index) Lookup(date time.Time) (closePx, sma float64, ok bool) {
	i, ok := x.byDate[domain.Day(date)]
	if !ok {
		return math.NaN(), math.NaN(), false
	}
	return x.close[i], x.sma[i], true
}

// Bullish reports whether the index closed above its SMA200 on the given
// date. Missing sessions and undefined SMAs are bearish.
func (x *Index) Bullish(date time.Time) bool {
	closePx, sma, ok := x.Lookup(date)
	if !ok || math.IsNaN(sma) {
		return false
	}
	return closePx > sma
}

// BullishLatest reports the trend state as of the last session in the
// series. An empty series is bearish.
func (x *Index) BullishLatest() bool {
	if len(x.dates) == 0 {
		return false
	}
	return x.Bullish(x.dates[len(x.dates)-1])
}
