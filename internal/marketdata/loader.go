package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"diphunter/internal/domain"
	"diphunter/internal/indicator"
	"diphunter/internal/regime"
	"diphunter/internal/store"
	"diphunter/internal/util"
)

// Loader assembles indicator frames for a universe: bars through the cache,
// analyst views best-effort, indicators joined against the reference index.
type Loader struct {
	bars     BarSource
	analysts AnalystSource
	cache    store.BarStore // nil disables caching
	workers  int
	retries  int
	limiter  *util.RateLimiter
	log      *slog.Logger
}

// LoaderOpts tunes concurrency and API etiquette.
type LoaderOpts struct {
	// Workers is the number of concurrent per-symbol fetches. Zero means 4.
	Workers int

	// RatePerMinute caps upstream calls across all workers. Zero means 120.
	RatePerMinute int

	// Retries is the per-call attempt count. Zero means 3.
	Retries int
}

// NewLoader creates a Loader. analysts and cache may be nil; a nil logger
// falls back to slog.Default.
func NewLoader(bars BarSource, analysts AnalystSource, cache store.BarStore, opts LoaderOpts, logger *slog.Logger) *Loader {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.RatePerMinute <= 0 {
		opts.RatePerMinute = 120
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		bars:     bars,
		analysts: analysts,
		cache:    cache,
		workers:  opts.Workers,
		retries:  opts.Retries,
		limiter:  util.NewRateLimiter(opts.RatePerMinute),
		log:      logger.With("component", "loader"),
	}
}

// LoadIndex fetches the reference-index history and builds its SMA series.
// The index is fetched over a longer window than the universe so the SMA is
// already defined when the simulation window opens.
func (l *Loader) LoadIndex(ctx context.Context, symbol string, start, end time.Time) (*regime.Index, error) {
	bars, err := l.fetchWithCache(ctx, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("loading index %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars for index %s", symbol)
	}
	return regime.NewIndex(symbol, bars), nil
}

// LoadFrames fetches bars and analyst views for every symbol in the universe
// and builds one indicator frame per symbol that has data. Symbols without
// bars are dropped with a warning; analyst failures degrade to no target and
// no rating. The returned warnings are sorted for stable reporting.
func (l *Loader) LoadFrames(ctx context.Context, universe []string, index *regime.Index, start, end time.Time) (map[string]*indicator.Frame, map[string]string, []string, error) {
	var (
		mu       sync.Mutex
		frames   = make(map[string]*indicator.Frame, len(universe))
		ratings  = make(map[string]string, len(universe))
		warnings []string
	)

	symbolCh := make(chan string, len(universe))
	for _, sym := range universe {
		symbolCh <- sym
	}
	close(symbolCh)

	var wg sync.WaitGroup
	workers := min(l.workers, len(universe))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range symbolCh {
				if ctx.Err() != nil {
					return
				}

				bars, err := l.fetchWithCache(ctx, sym, start, end)
				if err != nil || len(bars) == 0 {
					mu.Lock()
					warnings = append(warnings, fmt.Sprintf("%s: no bar data, excluded", sym))
					mu.Unlock()
					l.log.Warn("excluding instrument", "ticker", sym, "err", err)
					continue
				}

				view := l.fetchAnalystView(ctx, sym, &mu, &warnings)

				frame := indicator.Build(sym, bars, view.TargetPrice, index)
				mu.Lock()
				frames[sym] = frame
				if view.Rating != "" {
					ratings[sym] = view.Rating
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if ctx.Err() != nil {
		return nil, nil, nil, ctx.Err()
	}

	sort.Strings(warnings)
	l.log.Info("frames loaded",
		"requested", len(universe),
		"loaded", len(frames),
		"warnings", len(warnings),
	)
	return frames, ratings, warnings, nil
}

// fetchWithCache reads through the cache: API first with retry, falling back
// to cached bars when the API fails, and refreshing the cache on success.
func (l *Loader) fetchWithCache(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	var bars []domain.Bar
	err := util.Retry(ctx, l.retries, util.DefaultBackoff, func() error {
		if err := l.limiter.Wait(ctx); err != nil {
			return err
		}
		fetched, err := l.bars.FetchBars(ctx, symbol, start, end)
		if err != nil {
			return err
		}
		bars = fetched
		return nil
	})

	if err != nil {
		if l.cache == nil {
			return nil, err
		}
		cached, cacheErr := l.cache.ReadBars(ctx, symbol, start, end)
		if cacheErr != nil || len(cached) == 0 {
			return nil, err
		}
		l.log.Warn("API failed, serving cached bars", "ticker", symbol, "err", err)
		return cached, nil
	}

	if l.cache != nil && len(bars) > 0 {
		if err := l.cache.WriteBars(ctx, bars); err != nil {
			l.log.Warn("caching bars failed", "ticker", symbol, "err", err)
		}
	}
	return bars, nil
}

// fetchAnalystView is best-effort: a dead analyst source never blocks frame
// construction, the instrument just runs with the discounted-high fallback.
func (l *Loader) fetchAnalystView(ctx context.Context, symbol string, mu *sync.Mutex, warnings *[]string) AnalystView {
	if l.analysts == nil {
		return AnalystView{}
	}

	var view AnalystView
	err := util.Retry(ctx, l.retries, util.DefaultBackoff, func() error {
		if err := l.limiter.Wait(ctx); err != nil {
			return err
		}
		fetched, err := l.analysts.FetchAnalystView(ctx, symbol)
		if err != nil {
			return err
		}
		view = fetched
		return nil
	})
	if err != nil {
		mu.Lock()
		*warnings = append(*warnings, fmt.Sprintf("%s: analyst view unavailable", symbol))
		mu.Unlock()
		l.log.Warn("analyst fetch failed", "ticker", symbol, "err", err)
		return AnalystView{}
	}
	return view
}
