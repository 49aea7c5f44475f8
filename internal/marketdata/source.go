// Package marketdata fetches the inputs the indicator engine consumes: daily
// OHLCV bars and analyst consensus views. Fetching is fail-soft per
// instrument — a symbol with no data is reported as a warning, never as a
// fatal error for the whole universe.
package marketdata

import (
	"context"
	"time"

	"diphunter/internal/domain"
)

// BarSource fetches daily bars for one symbol over [start, end].
type BarSource interface {
	FetchBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)
}

// AnalystView is the consensus snapshot for one instrument. TargetPrice is nil
// when no analyst covers the name; Rating is "" in the same case.
type AnalystView struct {
	TargetPrice *float64
	Rating      string
}

// AnalystSource fetches the analyst consensus for one symbol.
type AnalystSource interface {
	FetchAnalystView(ctx context.Context, symbol string) (AnalystView, error)
}
