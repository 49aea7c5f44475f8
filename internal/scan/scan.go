// Package scan evaluates the most recent session of every watched instrument
// as a would-be entry, without simulating a portfolio. It is the daily
// "is anything dipping right now" report.
package scan

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

// Config describes one scan pass.
type Config struct {
	// Universe lists the tickers in their configured order; the report keeps
	// this order for rows with equal gap.
	Universe []string

	// Frames maps ticker to its indicator frame. Missing tickers are skipped.
	Frames map[string]*indicator.Frame

	// Ratings maps ticker to its analyst consensus (e.g. "buy"). Missing or
	// empty ratings do not block a recommendation.
	Ratings map[string]string

	Policy strategy.Policy
}

// Result holds one scan pass over the universe.
type Result struct {
	Date      time.Time
	Policy    string
	Snapshots []domain.ScanSnapshot

	// Bullish is the market regime on the scan date. A bearish (or unknown)
	// regime suppresses every recommendation, whatever the policy's own entry
	// filters say; the report is still produced.
	Bullish bool
}

// Recommended returns the snapshots flagged as actionable entries.
func (r *Result) Recommended() []domain.ScanSnapshot {
	var out []domain.ScanSnapshot
	for _, s := range r.Snapshots {
		if s.Recommended {
			out = append(out, s)
		}
	}
	return out
}

// Scanner evaluates frames against a policy's entry rules.
type Scanner struct {
	log *slog.Logger
}

// NewScanner creates a Scanner. A nil logger falls back to slog.Default.
func NewScanner(logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{log: logger.With("component", "scan")}
}

// Run builds one snapshot per instrument from its latest session and sorts
// them closest-to-threshold first. An instrument is recommended when the
// market regime is bullish, its close sits at or below the buy threshold, the
// policy's entry filters pass, and the analyst consensus (when known) is at
// least a buy. A bearish regime zeroes recommendations for the whole pass:
// buying dips into a falling market is exactly what the regime filter exists
// to prevent.
func (s *Scanner) Run(cfg Config) (*Result, error) {
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Universe) == 0 {
		return nil, fmt.Errorf("instrument universe is empty")
	}

	res := &Result{Policy: cfg.Policy.Name}
	for _, ticker := range cfg.Universe {
		f, ok := cfg.Frames[ticker]
		if !ok {
			s.log.Warn("no data for instrument, skipping", "ticker", ticker)
			continue
		}
		row, ok := f.Last()
		if !ok {
			s.log.Warn("empty frame for instrument, skipping", "ticker", ticker)
			continue
		}
		if row.Date.After(res.Date) {
			res.Date = row.Date
		}
		if row.Bullish() {
			res.Bullish = true
		}
		res.Snapshots = append(res.Snapshots, s.snapshot(cfg, ticker, row))
	}
	if len(res.Snapshots) == 0 {
		return nil, fmt.Errorf("no instrument has bar data, nothing to scan")
	}

	// Closest to its threshold first; undefined gaps sink to the bottom.
	sort.SliceStable(res.Snapshots, func(i, j int) bool {
		return gapRank(res.Snapshots[i]) < gapRank(res.Snapshots[j])
	})

	s.log.Info("scan complete",
		"policy", cfg.Policy.Name,
		"instruments", len(res.Snapshots),
		"recommended", len(res.Recommended()),
		"bullish", res.Bullish,
	)
	return res, nil
}

func (s *Scanner) snapshot(cfg Config, ticker string, row indicator.Row) domain.ScanSnapshot {
	snap := domain.ScanSnapshot{
		Ticker:    ticker,
		Price:     row.Close,
		Threshold: row.BuyThreshold,
		GapValue:  math.NaN(),
		GapPct:    math.NaN(),
		RSI:       row.RSI,
		Rating:    cfg.Ratings[ticker],
	}

	if !math.IsNaN(row.BuyThreshold) && row.BuyThreshold > 0 {
		snap.GapValue = row.Close - row.BuyThreshold
		snap.GapPct = snap.GapValue / row.BuyThreshold * 100
	}

	// The regime gate applies unconditionally; policy filters come on top.
	snap.Recommended = row.Bullish() &&
		!math.IsNaN(row.BuyThreshold) &&
		row.Close <= row.BuyThreshold &&
		cfg.Policy.AllowsEntry(strategy.EntrySignal{
			Open:    row.Open,
			Close:   row.Close,
			RSI:     row.RSI,
			Bullish: row.Bullish(),
		}) &&
		ratingAllows(snap.Rating)

	return snap
}

// ratingAllows treats a missing consensus as neutral rather than blocking.
func ratingAllows(rating string) bool {
	switch rating {
	case "", "buy", "strong_buy":
		return true
	default:
		return false
	}
}

func gapRank(s domain.ScanSnapshot) float64 {
	if math.IsNaN(s.GapPct) {
		return math.Inf(1)
	}
	return s.GapPct
}
