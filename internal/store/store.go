// Package store defines storage interfaces for persisting and retrieving
// bar data, scan runs, and backtest results.
package store

import (
	"context"
	"time"

	"diphunter/internal/domain"
)

// BarStore persists and retrieves daily OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars, merging with any already stored.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol within [start, end].
	ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols with stored bar data.
	ListSymbols(ctx context.Context) ([]string, error)
}

// BacktestRun is the persisted summary of one completed simulation.
type BacktestRun struct {
	ID              string
	Policy          string
	StartingCapital float64
	FinalValue      float64
	StartDate       time.Time
	EndDate         time.Time
	HeldTicker      string
	CreatedAt       time.Time
	Trades          []domain.TradeRecord
}

// ROI returns the run's total return as a fraction of starting capital.
func (r *BacktestRun) ROI() float64 {
	if r.StartingCapital == 0 {
		return 0
	}
	return (r.FinalValue - r.StartingCapital) / r.StartingCapital
}

// ScanRun is the persisted record of one scan pass over the universe.
type ScanRun struct {
	ID        string
	Policy    string
	ScanDate  time.Time
	CreatedAt time.Time
	Snapshots []domain.ScanSnapshot
}

// ResultStore persists scan and backtest outcomes for later inspection.
type ResultStore interface {
	// SaveBacktest inserts a completed run and its trade log.
	SaveBacktest(ctx context.Context, run *BacktestRun) error

	// ListBacktests returns the most recent runs, newest first, up to limit.
	// Trade logs are loaded eagerly.
	ListBacktests(ctx context.Context, limit int) ([]BacktestRun, error)

	// SaveScan inserts a completed scan pass and its snapshots.
	SaveScan(ctx context.Context, run *ScanRun) error

	// LatestScan returns the most recent scan pass, or nil when none exists.
	LatestScan(ctx context.Context) (*ScanRun, error)
}
