// Package indicator derives the rolling technical fields the trading rules
// consume from raw daily bars. Frames are pure values: building one has no
// side effects, and all derived fields are NaN until their warm-up windows
// fill — never zero.
package indicator

import (
	"math"
	"sort"
	"time"

	"diphunter/internal/domain"
	"diphunter/internal/regime"
)

const (
	// SixMonthWindow is the trailing session count for the six-month high.
	SixMonthWindow = 126

	// RSIPeriod is the lookback for the relative-strength index.
	RSIPeriod = 14

	// HighDiscount scales the six-month high into a fair-value estimate.
	HighDiscount = 0.80

	// ThresholdDiscount scales the reference value into the buy threshold.
	ThresholdDiscount = 0.75
)

// Row is one session of a Frame with every derived field joined in. Undefined
// values are NaN.
type Row struct {
	Date         time.Time
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       int64
	SixMonthHigh float64
	RSI          float64
	RefValue     float64
	BuyThreshold float64
	IndexClose   float64
	IndexSMA     float64
}

// Bullish reports whether the joined reference-index fields show a close
// above the SMA200 on this row's date. Undefined fields are bearish.
func (r Row) Bullish() bool {
	if math.IsNaN(r.IndexClose) || math.IsNaN(r.IndexSMA) {
		return false
	}
	return r.IndexClose > r.IndexSMA
}

// Frame is the per-instrument indicator series: ordered daily bars extended
// with the six-month high, RSI(14), reference value, buy threshold, and the
// joined reference-index fields.
type Frame struct {
	Ticker        string
	AnalystTarget *float64 // absent is a supported fallback, not an error

	rows   []Row
	byDate map[time.Time]int
}

// Build computes a Frame from raw bars, an optional analyst target price, and
// the reference index series (nil when no index join is wanted). Bars are
// sorted by date; duplicate dates keep the last bar.
func Build(ticker string, bars []domain.Bar, target *float64, index *regime.Index) *Frame {
	sorted := make([]domain.Bar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	f := &Frame{
		Ticker:        ticker,
		AnalystTarget: target,
		rows:          make([]Row, 0, len(sorted)),
		byDate:        make(map[time.Time]int, len(sorted)),
	}

	closes := make([]float64, len(sorted))
	for i, b := range sorted {
		closes[i] = b.Close
	}
	rsi := rsiSeries(closes, RSIPeriod)

	for i, b := range sorted {
		day := domain.Day(b.Timestamp)

		row := Row{
			Date:         day,
			Open:         b.Open,
			High:         b.High,
			Low:          b.Low,
			Close:        b.Close,
			Volume:       b.Volume,
			SixMonthHigh: trailingMaxHigh(sorted, i, SixMonthWindow),
			RSI:          rsi[i],
			RefValue:     math.NaN(),
			BuyThreshold: math.NaN(),
			IndexClose:   math.NaN(),
			IndexSMA:     math.NaN(),
		}

		if !math.IsNaN(row.SixMonthHigh) {
			ref := row.SixMonthHigh * HighDiscount
			if target != nil && *target < ref {
				ref = *target
			}
			row.RefValue = ref
			row.BuyThreshold = ref * ThresholdDiscount
		}

		if index != nil {
			if ic, isma, ok := index.Lookup(day); ok {
				row.IndexClose = ic
				row.IndexSMA = isma
			}
		}

		if prev, dup := f.byDate[day]; dup {
			f.rows[prev] = row
			continue
		}
		f.byDate[day] = len(f.rows)
		f.rows = append(f.rows, row)
	}

	return f
}

// Len returns the number of sessions in the frame.
func (f *Frame) Len() int { return len(f.rows) }

// Row returns the session row for the given date. ok is false when the
// instrument has no bar on that date (holiday or listing gap).
func (f *Frame) Row(date time.Time) (Row, bool) {
	i, ok := f.byDate[domain.Day(date)]
	if !ok {
		return Row{}, false
	}
	return f.rows[i], true
}

// Last returns the most recent session row. ok is false for an empty frame.
func (f *Frame) Last() (Row, bool) {
	if len(f.rows) == 0 {
		return Row{}, false
	}
	return f.rows[len(f.rows)-1], true
}

// LastClose returns the last available close, used to mark open positions to
// market. Returns NaN for an empty frame.
func (f *Frame) LastClose() float64 {
	if len(f.rows) == 0 {
		return math.NaN()
	}
	return f.rows[len(f.rows)-1].Close
}

// Dates returns the frame's session dates in ascending order.
func (f *Frame) Dates() []time.Time {
	dates := make([]time.Time, len(f.rows))
	for i, r := range f.rows {
		dates[i] = r.Date
	}
	return dates
}

// trailingMaxHigh returns max(high[i-window+1..i]), or NaN while fewer than
// window sessions exist.
func trailingMaxHigh(bars []domain.Bar, i, window int) float64 {
	if i < window-1 {
		return math.NaN()
	}
	maxHigh := bars[i-window+1].High
	for j := i - window + 2; j <= i; j++ {
		if bars[j].High > maxHigh {
			maxHigh = bars[j].High
		}
	}
	return maxHigh
}

// rsiSeries computes the rolling-mean RSI of the close series: the mean of
// positive deltas over the trailing period divided by the mean magnitude of
// negative deltas. Values are NaN until period+1 sessions exist. A zero
// average loss saturates at 100 rather than propagating a division fault.
func rsiSeries(closes []float64, period int) []float64 {
	rsi := make([]float64, len(closes))
	for i := range rsi {
		rsi[i] = math.NaN()
	}
	if len(closes) < period+1 {
		return rsi
	}

	for i := period; i < len(closes); i++ {
		var gains, losses float64
		for j := i - period + 1; j <= i; j++ {
			delta := closes[j] - closes[j-1]
			if delta > 0 {
				gains += delta
			} else {
				losses -= delta
			}
		}
		avgGain := gains / float64(period)
		avgLoss := losses / float64(period)

		if avgLoss == 0 {
			rsi[i] = 100
			continue
		}
		rs := avgGain / avgLoss
		rsi[i] = 100 - 100/(1+rs)
	}
	return rsi
}
