package cli

import (
	"context"
	"fmt"
	"time"

	"diphunter/internal/indicator"
	"diphunter/internal/marketdata"
	"diphunter/internal/notify"
	"diphunter/internal/regime"
	"diphunter/internal/store"
	"diphunter/internal/universe"
)

// marketView is everything one scan or backtest needs: the ordered universe,
// per-instrument frames joined against the regime index, and analyst ratings.
type marketView struct {
	Universe []string
	Frames   map[string]*indicator.Frame
	Ratings  map[string]string
	Warnings []string
}

func (a *App) newLoader() *marketdata.Loader {
	bars := marketdata.NewAlpacaSource(
		a.cfg.Alpaca.APIKey, a.cfg.Alpaca.APISecret, a.cfg.Alpaca.DataURL, a.cfg.Alpaca.Feed)

	var analysts marketdata.AnalystSource
	if a.cfg.Yahoo.Enabled {
		analysts = marketdata.NewYahooAnalystSource(a.cfg.Yahoo.BaseURL)
	}

	cache := store.NewParquetStore(a.cfg.Storage.DataDir)

	return marketdata.NewLoader(bars, analysts, cache, marketdata.LoaderOpts{
		Workers:       a.cfg.Fetch.MaxWorkers,
		RatePerMinute: a.cfg.Fetch.RateLimitPerMin,
	}, a.log)
}

// loadMarketView loads the watch-list and builds frames over the configured
// lookback window. The regime index is fetched with an extra year of history
// so its SMA200 is defined when the window opens.
func (a *App) loadMarketView(ctx context.Context) (*marketView, error) {
	tickers, err := universe.Load(a.cfg.Universe.WatchlistPath)
	if err != nil {
		return nil, err
	}

	loader := a.newLoader()
	end := time.Now().UTC()
	start := end.AddDate(-a.cfg.Fetch.LookbackYears, 0, 0)

	var index *regime.Index
	if a.cfg.Universe.IndexSymbol != "" {
		index, err = loader.LoadIndex(ctx, a.cfg.Universe.IndexSymbol, start.AddDate(-1, 0, 0), end)
		if err != nil {
			// The regime filter degrades to bearish without index data; only
			// filtered strategies are affected, so keep going.
			a.log.Warn("regime index unavailable", "symbol", a.cfg.Universe.IndexSymbol, "err", err)
		}
	}

	frames, ratings, warnings, err := loader.LoadFrames(ctx, tickers, index, start, end)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no instrument in the watch-list has bar data")
	}

	return &marketView{
		Universe: tickers,
		Frames:   frames,
		Ratings:  ratings,
		Warnings: warnings,
	}, nil
}

func (a *App) openResultStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(a.cfg.Storage.SQLitePath)
}

func (a *App) newNotifier() notify.Notifier {
	if a.cfg.Alerts.APIKey == "" {
		return notify.NewLogNotifier(a.log)
	}
	return notify.NewBrevoNotifier(
		a.cfg.Alerts.APIKey, a.cfg.Alerts.FromName, a.cfg.Alerts.FromEmail,
		a.cfg.Alerts.ToEmail, a.cfg.Alerts.BaseURL, a.log)
}
