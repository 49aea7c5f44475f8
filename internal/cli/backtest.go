package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"diphunter/internal/backtest"
	"diphunter/internal/report"
	"diphunter/internal/store"
	"diphunter/internal/strategy"
)

func newBacktestCmd(app *App) *cobra.Command {
	var (
		strategyName string
		years        int
		capital      float64
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay the strategy over the watch-list's history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strategyName == "" {
				strategyName = app.cfg.Backtest.Strategy
			}
			if years < 0 {
				years = app.cfg.Backtest.WindowYears
			}
			if capital <= 0 {
				capital = app.cfg.Backtest.StartingCapital
			}

			res, err := app.runBacktest(cmd.Context(), strategyName, years, capital)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), report.BacktestReport(res))
			return nil
		},
	}

	cmd.Flags().StringVarP(&strategyName, "strategy", "s", "",
		"strategy preset to simulate (defaults to config)")
	cmd.Flags().IntVarP(&years, "years", "y", -1,
		"restrict the simulation to the trailing N years (0 = full history)")
	cmd.Flags().Float64Var(&capital, "capital", 0,
		"starting capital (defaults to config)")
	return cmd
}

func (a *App) runBacktest(ctx context.Context, strategyName string, years int, capital float64) (*backtest.Result, error) {
	pol, ok := strategy.Lookup(strategyName)
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (have: %v)", strategyName, strategy.Names())
	}

	view, err := a.loadMarketView(ctx)
	if err != nil {
		return nil, err
	}
	for _, w := range view.Warnings {
		a.log.Warn(w)
	}

	res, err := backtest.NewDriver(a.log).Run(backtest.Config{
		Universe:        view.Universe,
		Frames:          view.Frames,
		Policy:          pol,
		StartingCapital: capital,
		WindowYears:     years,
	})
	if err != nil {
		return nil, err
	}

	if err := a.persistBacktest(ctx, res); err != nil {
		a.log.Error("persisting backtest failed", "err", err)
	}
	return res, nil
}

func (a *App) persistBacktest(ctx context.Context, res *backtest.Result) error {
	db, err := a.openResultStore()
	if err != nil {
		return err
	}
	defer db.Close()

	return db.SaveBacktest(ctx, &store.BacktestRun{
		Policy:          res.Policy,
		StartingCapital: res.StartingCapital,
		FinalValue:      res.FinalValue,
		StartDate:       res.StartDate,
		EndDate:         res.EndDate,
		HeldTicker:      res.HeldTicker,
		Trades:          res.TradeLog,
	})
}
