package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"diphunter/internal/domain"
)

func TestParquetStorePath(t *testing.T) {
	ps := NewParquetStore("/data")

	got := ps.barPath("aapl", 2024)
	want := filepath.Join("/data", "daily", "AAPL", "2024.parquet")
	if got != want {
		t.Errorf("barPath mismatch:\n  got  %s\n  want %s", got, want)
	}
}

func TestParquetStoreWriteReadBars(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	bars := []domain.Bar{
		{
			Symbol:     "AAPL",
			Timestamp:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Open:       185.0,
			High:       186.5,
			Low:        184.0,
			Close:      185.5,
			Volume:     50000000,
			TradeCount: 500000,
			VWAP:       185.25,
		},
		{
			Symbol:    "AAPL",
			Timestamp: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
			Open:      185.5, High: 187.0, Low: 185.0, Close: 186.0,
			Volume: 45000000, TradeCount: 450000, VWAP: 185.75,
		},
	}
	if err := ps.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	got, err := ps.ReadBars(ctx, "AAPL",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d bars, want 2", len(got))
	}
	if got[0].Close != 185.5 || got[1].Close != 186.0 {
		t.Errorf("unexpected closes: %v, %v", got[0].Close, got[1].Close)
	}
	if !got[0].Timestamp.Before(got[1].Timestamp) {
		t.Error("bars not sorted by timestamp")
	}
}

func TestParquetStoreMergeOnRewrite(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	first := []domain.Bar{{Symbol: "TSLA", Timestamp: day, Close: 200}}
	if err := ps.WriteBars(ctx, first); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	// Same day rewritten plus a new day: incoming wins the duplicate key.
	second := []domain.Bar{
		{Symbol: "TSLA", Timestamp: day, Close: 201},
		{Symbol: "TSLA", Timestamp: day.AddDate(0, 0, 1), Close: 205},
	}
	if err := ps.WriteBars(ctx, second); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	got, err := ps.ReadBars(ctx, "TSLA", day, day.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d bars, want 2 after merge", len(got))
	}
	if got[0].Close != 201 {
		t.Errorf("duplicate day kept stale close %v, want 201", got[0].Close)
	}
}

func TestParquetStoreReadMissingSymbol(t *testing.T) {
	ps := NewParquetStore(t.TempDir())

	got, err := ps.ReadBars(context.Background(), "GHOST",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("missing files must not error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d bars, want 0", len(got))
	}
}

func TestParquetStoreListSymbols(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	bars := []domain.Bar{
		{Symbol: "MSFT", Timestamp: day, Close: 400},
		{Symbol: "AAPL", Timestamp: day, Close: 180},
	}
	if err := ps.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	symbols, err := ps.ListSymbols(ctx)
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "AAPL" || symbols[1] != "MSFT" {
		t.Errorf("got %v, want [AAPL MSFT]", symbols)
	}
}

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteBacktestRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run := &BacktestRun{
		Policy:          "baseline",
		StartingCapital: 10000,
		FinalValue:      11500,
		StartDate:       time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC),
		Trades: []domain.TradeRecord{
			{
				Kind: domain.TradeBuy, Ticker: "ACME",
				Date:  time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
				Price: 58, Shares: 172.41,
			},
			{
				Kind: domain.TradeSell, Ticker: "ACME",
				Date:  time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC),
				Price: 66.7, Shares: 172.41, Reason: domain.SellTarget,
				PnL: 1500, PnLPct: 15, ResultingCash: 11500,
			},
		},
	}
	if err := s.SaveBacktest(ctx, run); err != nil {
		t.Fatalf("SaveBacktest: %v", err)
	}
	if run.ID == "" {
		t.Fatal("SaveBacktest did not assign an ID")
	}

	runs, err := s.ListBacktests(ctx, 10)
	if err != nil {
		t.Fatalf("ListBacktests: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	got := runs[0]
	if got.Policy != "baseline" || got.FinalValue != 11500 {
		t.Errorf("run header mismatch: %+v", got)
	}
	if got.ROI() != 0.15 {
		t.Errorf("ROI = %v, want 0.15", got.ROI())
	}
	if len(got.Trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(got.Trades))
	}
	if got.Trades[1].Reason != domain.SellTarget || got.Trades[1].PnL != 1500 {
		t.Errorf("sell record mismatch: %+v", got.Trades[1])
	}
	if !got.Trades[0].Date.Equal(run.Trades[0].Date) {
		t.Errorf("trade date mismatch: %v", got.Trades[0].Date)
	}
}

func TestSQLiteListBacktestsNewestFirst(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	for _, policy := range []string{"baseline", "advanced"} {
		run := &BacktestRun{Policy: policy, StartingCapital: 10000, FinalValue: 10000,
			StartDate: time.Now().UTC(), EndDate: time.Now().UTC()}
		if err := s.SaveBacktest(ctx, run); err != nil {
			t.Fatalf("SaveBacktest(%s): %v", policy, err)
		}
	}

	runs, err := s.ListBacktests(ctx, 1)
	if err != nil {
		t.Fatalf("ListBacktests: %v", err)
	}
	if len(runs) != 1 || runs[0].Policy != "advanced" {
		t.Errorf("got %+v, want the advanced run only", runs)
	}
}

func TestSQLiteScanRoundTripWithNaN(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run := &ScanRun{
		Policy:   "advanced",
		ScanDate: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		Snapshots: []domain.ScanSnapshot{
			{Ticker: "ACME", Price: 58, Threshold: 60, GapValue: -2, GapPct: -3.33,
				RSI: 22.5, Rating: "buy", Recommended: true},
			{Ticker: "NEWCO", Price: 10, Threshold: math.NaN(), GapValue: math.NaN(),
				GapPct: math.NaN(), RSI: math.NaN()},
		},
	}
	if err := s.SaveScan(ctx, run); err != nil {
		t.Fatalf("SaveScan: %v", err)
	}

	got, err := s.LatestScan(ctx)
	if err != nil {
		t.Fatalf("LatestScan: %v", err)
	}
	if got == nil || got.ID != run.ID {
		t.Fatalf("LatestScan returned %+v, want run %s", got, run.ID)
	}
	if len(got.Snapshots) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(got.Snapshots))
	}
	if !got.Snapshots[0].Recommended || got.Snapshots[0].Rating != "buy" {
		t.Errorf("first snapshot mismatch: %+v", got.Snapshots[0])
	}
	if !math.IsNaN(got.Snapshots[1].Threshold) || !math.IsNaN(got.Snapshots[1].RSI) {
		t.Errorf("NULL columns must read back as NaN: %+v", got.Snapshots[1])
	}
}

func TestSQLiteLatestScanEmpty(t *testing.T) {
	s := newTestSQLite(t)

	got, err := s.LatestScan(context.Background())
	if err != nil {
		t.Fatalf("LatestScan: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil on empty database", got)
	}
}
