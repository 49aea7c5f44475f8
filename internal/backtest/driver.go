// Package backtest replays per-instrument indicator frames through a
// sequential portfolio simulator under a strategy policy, producing a
// chronological trade log and final portfolio value.
//
// The simulation is strictly single-threaded over calendar time: each date
// runs exit evaluation before entry evaluation, and at most one position is
// open across the whole instrument universe.
package backtest

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"diphunter/internal/domain"
	"diphunter/internal/indicator"
	"diphunter/internal/strategy"
)

// Config describes one simulation run. Frames must be fully materialized
// before Run starts; the driver performs random-access lookups by
// (ticker, date) and never touches I/O.
type Config struct {
	// Universe lists the tickers in their configured order. The order breaks
	// RSI ties during candidate selection, so it must be stable across runs.
	Universe []string

	// Frames maps ticker to its indicator frame. Tickers in Universe without
	// a frame are skipped (they were excluded upstream with a warning).
	Frames map[string]*indicator.Frame

	Policy          strategy.Policy
	StartingCapital float64

	// WindowYears restricts the calendar to dates after lastDate - N years.
	// Zero simulates the full overlap of all frames.
	WindowYears int
}

// Result is the outcome of a completed run.
type Result struct {
	Policy          string
	StartingCapital float64
	FinalValue      float64
	TradeLog        []domain.TradeRecord
	StartDate       time.Time
	EndDate         time.Time

	// HeldTicker is set when the run ended with an open position that was
	// marked to market rather than sold.
	HeldTicker string
}

// ROI returns the run's total return as a fraction of starting capital.
func (r *Result) ROI() float64 {
	if r.StartingCapital == 0 {
		return 0
	}
	return (r.FinalValue - r.StartingCapital) / r.StartingCapital
}

// Driver owns the simulation loop and its state.
type Driver struct {
	log *slog.Logger
}

// NewDriver creates a Driver. A nil logger falls back to slog.Default.
func NewDriver(logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{log: logger.With("component", "backtest")}
}

// Run executes the simulation. It fails fast on configurations that would
// silently produce a degenerate trade-free run: zero capital, an empty
// universe, or no frame with any data.
func (d *Driver) Run(cfg Config) (*Result, error) {
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}
	if cfg.StartingCapital <= 0 {
		return nil, fmt.Errorf("starting capital must be positive, got %.2f", cfg.StartingCapital)
	}
	if len(cfg.Universe) == 0 {
		return nil, fmt.Errorf("instrument universe is empty")
	}
	if cfg.WindowYears < 0 {
		return nil, fmt.Errorf("simulation window must be non-negative, got %d years", cfg.WindowYears)
	}

	calendar := d.buildCalendar(cfg)
	if len(calendar) == 0 {
		return nil, fmt.Errorf("no instrument has bar data, nothing to simulate")
	}

	res := &Result{
		Policy:          cfg.Policy.Name,
		StartingCapital: cfg.StartingCapital,
		StartDate:       calendar[0],
		EndDate:         calendar[len(calendar)-1],
	}

	cash := cfg.StartingCapital
	var pos *Position

	for _, date := range calendar {
		if pos != nil {
			row, ok := cfg.Frames[pos.Ticker].Row(date)
			if ok {
				if fill, hit := pos.EvaluateExit(cfg.Policy, row); hit {
					cash = d.closePosition(res, pos, fill, date)
					pos = nil
				}
			}
			// One action per day: whether the position survived or was just
			// sold, no entry is evaluated on this date.
			continue
		}

		if ticker, row, found := d.pickCandidate(cfg, date); found {
			shares := cash / row.Close
			pos = openPosition(ticker, shares, row.Close, date)
			cash = 0

			res.TradeLog = append(res.TradeLog, domain.TradeRecord{
				Kind:   domain.TradeBuy,
				Ticker: ticker,
				Date:   date,
				Price:  row.Close,
				Shares: shares,
			})
			d.log.Info("buy",
				"ticker", ticker,
				"date", date.Format("2006-01-02"),
				"price", row.Close,
				"shares", shares,
			)
		}
	}

	if pos != nil {
		lastClose := cfg.Frames[pos.Ticker].LastClose()
		res.FinalValue = pos.Shares * lastClose
		res.HeldTicker = pos.Ticker
		d.log.Info("holding at end of simulation",
			"ticker", pos.Ticker,
			"lastClose", lastClose,
			"value", res.FinalValue,
		)
	} else {
		res.FinalValue = cash
	}

	d.log.Info("simulation complete",
		"policy", cfg.Policy.Name,
		"finalValue", res.FinalValue,
		"roi", res.ROI(),
		"trades", len(res.TradeLog),
	)
	return res, nil
}

// buildCalendar returns the sorted union of all per-instrument dates,
// restricted to the trailing window when one is configured.
func (d *Driver) buildCalendar(cfg Config) []time.Time {
	seen := make(map[time.Time]struct{})
	for _, ticker := range cfg.Universe {
		f, ok := cfg.Frames[ticker]
		if !ok {
			continue
		}
		for _, date := range f.Dates() {
			seen[date] = struct{}{}
		}
	}

	calendar := make([]time.Time, 0, len(seen))
	for date := range seen {
		calendar = append(calendar, date)
	}
	sort.Slice(calendar, func(i, j int) bool { return calendar[i].Before(calendar[j]) })

	if cfg.WindowYears > 0 && len(calendar) > 0 {
		cutoff := calendar[len(calendar)-1].AddDate(-cfg.WindowYears, 0, 0)
		trimmed := calendar[:0]
		for _, date := range calendar {
			if date.After(cutoff) {
				trimmed = append(trimmed, date)
			}
		}
		calendar = trimmed
	}
	return calendar
}

// pickCandidate scans the universe in its configured order and returns the
// most oversold instrument whose session passes the threshold check and the
// policy's entry filters. Ties on RSI resolve to the first-listed instrument;
// an undefined RSI ranks last.
func (d *Driver) pickCandidate(cfg Config, date time.Time) (string, indicator.Row, bool) {
	var (
		bestTicker string
		bestRow    indicator.Row
		bestRank   = math.Inf(1)
		found      bool
	)

	for _, ticker := range cfg.Universe {
		f, ok := cfg.Frames[ticker]
		if !ok {
			continue
		}
		row, ok := f.Row(date)
		if !ok {
			continue
		}
		if math.IsNaN(row.BuyThreshold) || row.Close > row.BuyThreshold {
			continue
		}
		if !cfg.Policy.AllowsEntry(strategy.EntrySignal{
			Open:    row.Open,
			Close:   row.Close,
			RSI:     row.RSI,
			Bullish: row.Bullish(),
		}) {
			continue
		}

		rank := row.RSI
		if math.IsNaN(rank) {
			rank = math.Inf(1)
		}
		// Strict less-than keeps the first-listed instrument on ties. An
		// undefined-RSI candidate still wins an otherwise empty field.
		if !found || rank < bestRank {
			bestTicker, bestRow, bestRank, found = ticker, row, rank, true
		}
	}
	return bestTicker, bestRow, found
}

// closePosition executes a SELL: computes PnL, appends the trade record, and
// returns the resulting cash.
func (d *Driver) closePosition(res *Result, pos *Position, fill exitFill, date time.Time) float64 {
	cost := pos.Shares * pos.EntryPrice
	pnl := pos.Shares * (fill.Price - pos.EntryPrice)
	cash := pos.Shares * fill.Price

	res.TradeLog = append(res.TradeLog, domain.TradeRecord{
		Kind:          domain.TradeSell,
		Ticker:        pos.Ticker,
		Date:          date,
		Price:         fill.Price,
		Shares:        pos.Shares,
		Reason:        fill.Reason,
		PnL:           pnl,
		PnLPct:        pnl / cost * 100,
		ResultingCash: cash,
	})
	d.log.Info("sell",
		"ticker", pos.Ticker,
		"date", date.Format("2006-01-02"),
		"price", fill.Price,
		"reason", string(fill.Reason),
		"pnl", pnl,
	)
	return cash
}
