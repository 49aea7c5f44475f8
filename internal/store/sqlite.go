package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"diphunter/internal/domain"
	"diphunter/pkg/id"
)

// Compile-time interface check.
var _ ResultStore = (*SQLiteStore)(nil)

// SQLiteStore implements ResultStore backed by a SQLite database. Undefined
// float fields (NaN) are stored as NULL and read back as NaN.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS backtest_runs (
	id               TEXT PRIMARY KEY,
	policy           TEXT NOT NULL,
	starting_capital REAL NOT NULL,
	final_value      REAL NOT NULL,
	start_date       TEXT NOT NULL,
	end_date         TEXT NOT NULL,
	held_ticker      TEXT NOT NULL DEFAULT '',
	created_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS backtest_trades (
	run_id         TEXT NOT NULL REFERENCES backtest_runs(id),
	seq            INTEGER NOT NULL,
	kind           TEXT NOT NULL,
	ticker         TEXT NOT NULL,
	trade_date     TEXT NOT NULL,
	price          REAL NOT NULL,
	shares         REAL NOT NULL,
	reason         TEXT NOT NULL DEFAULT '',
	pnl            REAL NOT NULL DEFAULT 0,
	pnl_pct        REAL NOT NULL DEFAULT 0,
	resulting_cash REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS scan_runs (
	id         TEXT PRIMARY KEY,
	policy     TEXT NOT NULL,
	scan_date  TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS scan_snapshots (
	run_id      TEXT NOT NULL REFERENCES scan_runs(id),
	seq         INTEGER NOT NULL,
	ticker      TEXT NOT NULL,
	price       REAL NOT NULL,
	threshold   REAL,
	gap_value   REAL,
	gap_pct     REAL,
	rsi         REAL,
	rating      TEXT NOT NULL DEFAULT '',
	recommended INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, seq)
);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveBacktest inserts a completed run and its trade log in one transaction.
// A missing ID or CreatedAt is filled in.
func (s *SQLiteStore) SaveBacktest(ctx context.Context, run *BacktestRun) error {
	if run.ID == "" {
		run.ID = id.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO backtest_runs
			(id, policy, starting_capital, final_value, start_date, end_date, held_ticker, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Policy, run.StartingCapital, run.FinalValue,
		run.StartDate.UTC().Format(time.RFC3339), run.EndDate.UTC().Format(time.RFC3339),
		run.HeldTicker, run.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting backtest run: %w", err)
	}

	for i, t := range run.Trades {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO backtest_trades
				(run_id, seq, kind, ticker, trade_date, price, shares, reason, pnl, pnl_pct, resulting_cash)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, string(t.Kind), t.Ticker, t.Date.UTC().Format(time.RFC3339),
			t.Price, t.Shares, string(t.Reason), t.PnL, t.PnLPct, t.ResultingCash,
		)
		if err != nil {
			return fmt.Errorf("inserting trade %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// ListBacktests returns the most recent runs, newest first, with their trade
// logs loaded.
func (s *SQLiteStore) ListBacktests(ctx context.Context, limit int) ([]BacktestRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, policy, starting_capital, final_value, start_date, end_date, held_ticker, created_at
		FROM backtest_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []BacktestRun
	for rows.Next() {
		var run BacktestRun
		var start, end, created string
		if err := rows.Scan(&run.ID, &run.Policy, &run.StartingCapital, &run.FinalValue,
			&start, &end, &run.HeldTicker, &created); err != nil {
			return nil, err
		}
		run.StartDate, _ = time.Parse(time.RFC3339, start)
		run.EndDate, _ = time.Parse(time.RFC3339, end)
		run.CreatedAt, _ = time.Parse(time.RFC3339, created)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		trades, err := s.loadTrades(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Trades = trades
	}
	return runs, nil
}

func (s *SQLiteStore) loadTrades(ctx context.Context, runID string) ([]domain.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, ticker, trade_date, price, shares, reason, pnl, pnl_pct, resulting_cash
		FROM backtest_trades WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []domain.TradeRecord
	for rows.Next() {
		var t domain.TradeRecord
		var kind, reason, date string
		if err := rows.Scan(&kind, &t.Ticker, &date, &t.Price, &t.Shares,
			&reason, &t.PnL, &t.PnLPct, &t.ResultingCash); err != nil {
			return nil, err
		}
		t.Kind = domain.TradeKind(kind)
		t.Reason = domain.SellReason(reason)
		t.Date, _ = time.Parse(time.RFC3339, date)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// SaveScan inserts a completed scan pass and its snapshots in one transaction.
func (s *SQLiteStore) SaveScan(ctx context.Context, run *ScanRun) error {
	if run.ID == "" {
		run.ID = id.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO scan_runs (id, policy, scan_date, created_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Policy, run.ScanDate.UTC().Format(time.RFC3339), run.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting scan run: %w", err)
	}

	for i, snap := range run.Snapshots {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO scan_snapshots
				(run_id, seq, ticker, price, threshold, gap_value, gap_pct, rsi, rating, recommended)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, snap.Ticker, snap.Price,
			nullIfNaN(snap.Threshold), nullIfNaN(snap.GapValue), nullIfNaN(snap.GapPct), nullIfNaN(snap.RSI),
			snap.Rating, snap.Recommended,
		)
		if err != nil {
			return fmt.Errorf("inserting snapshot %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// LatestScan returns the most recent scan pass, or nil when none exists.
func (s *SQLiteStore) LatestScan(ctx context.Context) (*ScanRun, error) {
	run := &ScanRun{}
	var scanDate, created string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, policy, scan_date, created_at FROM scan_runs ORDER BY id DESC LIMIT 1`).
		Scan(&run.ID, &run.Policy, &scanDate, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run.ScanDate, _ = time.Parse(time.RFC3339, scanDate)
	run.CreatedAt, _ = time.Parse(time.RFC3339, created)

	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, price, threshold, gap_value, gap_pct, rsi, rating, recommended
		FROM scan_snapshots WHERE run_id = ? ORDER BY seq`, run.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var snap domain.ScanSnapshot
		var threshold, gapValue, gapPct, rsi sql.NullFloat64
		if err := rows.Scan(&snap.Ticker, &snap.Price, &threshold, &gapValue, &gapPct,
			&rsi, &snap.Rating, &snap.Recommended); err != nil {
			return nil, err
		}
		snap.Threshold = nanIfNull(threshold)
		snap.GapValue = nanIfNull(gapValue)
		snap.GapPct = nanIfNull(gapPct)
		snap.RSI = nanIfNull(rsi)
		run.Snapshots = append(run.Snapshots, snap)
	}
	return run, rows.Err()
}

func nullIfNaN(f float64) sql.NullFloat64 {
	if math.IsNaN(f) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

func nanIfNull(f sql.NullFloat64) float64 {
	if !f.Valid {
		return math.NaN()
	}
	return f.Float64
}
