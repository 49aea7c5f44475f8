// Package report renders scan and backtest results as plain text, for the
// terminal and for the alert email body.
package report

import (
	"fmt"
	"math"
	"strings"

	"diphunter/internal/backtest"
	"diphunter/internal/domain"
	"diphunter/internal/scan"
)

// FormatPrice formats a price as X.XX, or "-" when undefined.
func FormatPrice(p float64) string {
	if math.IsNaN(p) {
		return "-"
	}
	return fmt.Sprintf("%.2f", p)
}

// FormatPct formats a signed percentage as "+X.X%" / "-X.X%", or "-" when
// undefined.
func FormatPct(p float64) string {
	if math.IsNaN(p) {
		return "-"
	}
	return fmt.Sprintf("%+.1f%%", p)
}

// FormatRSI formats an RSI reading to one decimal, or "-" while the warm-up
// window has not filled.
func FormatRSI(r float64) string {
	if math.IsNaN(r) {
		return "-"
	}
	return fmt.Sprintf("%.1f", r)
}

// ScanReport renders one scan pass as an aligned text table, recommended
// rows first section.
func ScanReport(res *scan.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dip scan %s (policy %s)\n\n", res.Date.Format("2006-01-02"), res.Policy)

	if !res.Bullish {
		b.WriteString("Market regime: BEARISH. Skipping buys for safety.\n\n")
	}

	rec := res.Recommended()
	if len(rec) == 0 {
		b.WriteString("No instruments below their buy threshold today.\n\n")
	} else {
		fmt.Fprintf(&b, "RECOMMENDED (%d):\n", len(rec))
		for _, s := range rec {
			fmt.Fprintf(&b, "  %-6s price %8s  threshold %8s  gap %8s  rsi %6s  %s\n",
				s.Ticker, FormatPrice(s.Price), FormatPrice(s.Threshold),
				FormatPct(s.GapPct), FormatRSI(s.RSI), s.Rating)
		}
		b.WriteString("\n")
	}

	b.WriteString("WATCHED:\n")
	fmt.Fprintf(&b, "  %-6s %10s %10s %9s %7s  %s\n",
		"TICKER", "PRICE", "THRESHOLD", "GAP", "RSI", "RATING")
	for _, s := range res.Snapshots {
		marker := " "
		if s.Recommended {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %-6s %10s %10s %9s %7s  %s\n",
			marker, s.Ticker, FormatPrice(s.Price), FormatPrice(s.Threshold),
			FormatPct(s.GapPct), FormatRSI(s.RSI), s.Rating)
	}
	return b.String()
}

// BacktestReport renders a completed simulation: header, trade log, summary.
func BacktestReport(res *backtest.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Backtest %s: %s to %s\n",
		res.Policy, res.StartDate.Format("2006-01-02"), res.EndDate.Format("2006-01-02"))
	fmt.Fprintf(&b, "Starting capital: %.2f\n\n", res.StartingCapital)

	if len(res.TradeLog) == 0 {
		b.WriteString("No trades.\n")
	} else {
		for _, t := range res.TradeLog {
			b.WriteString(formatTrade(t))
		}
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "Final value: %.2f (ROI %+.2f%%)\n", res.FinalValue, res.ROI()*100)
	fmt.Fprintf(&b, "Round trips: %d\n", countRoundTrips(res.TradeLog))
	if res.HeldTicker != "" {
		fmt.Fprintf(&b, "Still holding %s, marked to market.\n", res.HeldTicker)
	}
	return b.String()
}

func formatTrade(t domain.TradeRecord) string {
	date := t.Date.Format("2006-01-02")
	if t.Kind == domain.TradeBuy {
		return fmt.Sprintf("%s  BUY  %-6s %10.4f sh @ %8.2f\n", date, t.Ticker, t.Shares, t.Price)
	}
	return fmt.Sprintf("%s  SELL %-6s %10.4f sh @ %8.2f  %-13s pnl %10.2f (%+.1f%%)\n",
		date, t.Ticker, t.Shares, t.Price, t.Reason, t.PnL, t.PnLPct)
}

func countRoundTrips(log []domain.TradeRecord) int {
	n := 0
	for _, t := range log {
		if t.Kind == domain.TradeSell {
			n++
		}
	}
	return n
}

// AlertSubject builds the email subject line for a scan. Every run gets a
// subject: a bear market announces itself, a quiet bull-market day sends the
// plain insight report, and recommendations name their tickers.
func AlertSubject(res *scan.Result) string {
	date := res.Date.Format("2006-01-02")
	if !res.Bullish {
		return fmt.Sprintf("Market BEARISH (No Buys) %s", date)
	}

	rec := res.Recommended()
	if len(rec) == 0 {
		return fmt.Sprintf("Daily Insight Report %s", date)
	}

	tickers := make([]string, len(rec))
	for i, s := range rec {
		tickers[i] = s.Ticker
	}
	return fmt.Sprintf("Dip alert %s: %s", date, strings.Join(tickers, ", "))
}
