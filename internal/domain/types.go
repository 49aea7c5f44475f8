// Package domain defines the core value types shared across the dip-hunter
// system: daily bars, trade log records, and scan snapshots.
package domain

import "time"

// Bar is one daily OHLCV bar for a single instrument. Immutable once fetched.
type Bar struct {
	Symbol     string
	Timestamp  time.Time // session date, normalized to UTC midnight
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
	VWAP       float64
}

// Day returns t truncated to a UTC calendar date. All per-date lookups in the
// simulator key on this normalization so bars fetched with differing
// intra-day timestamps still align on the same session.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TradeKind distinguishes the two entries a trade log can contain.
type TradeKind string

const (
	TradeBuy  TradeKind = "BUY"
	TradeSell TradeKind = "SELL"
)

// SellReason records which exit rule closed a position.
type SellReason string

const (
	SellTarget       SellReason = "target"
	SellTrailingStop SellReason = "trailing-stop"
	SellInitialStop  SellReason = "initial-stop"
	SellTimeStop     SellReason = "time-stop"
)

// TradeRecord is one executed action in a backtest trade log. The log is
// append-only: exactly one BUY followed by one SELL per completed round trip.
// PnL, PnLPct and ResultingCash are populated on SELL records only.
type TradeRecord struct {
	Kind          TradeKind
	Ticker        string
	Date          time.Time
	Price         float64
	Shares        float64
	Reason        SellReason // SELL only
	PnL           float64
	PnLPct        float64
	ResultingCash float64
}

// ScanSnapshot is the per-instrument result of one live scan run.
type ScanSnapshot struct {
	Ticker      string
	Price       float64
	Threshold   float64
	GapValue    float64 // Price - Threshold
	GapPct      float64
	RSI         float64 // NaN when the warm-up window has not filled
	Rating      string  // analyst recommendation key, "" when unknown
	Recommended bool
}
