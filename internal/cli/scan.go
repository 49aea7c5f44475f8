package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"diphunter/internal/report"
	"diphunter/internal/scan"
	"diphunter/internal/store"
	"diphunter/internal/strategy"
)

func newScanCmd(app *App) *cobra.Command {
	var strategyName string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Evaluate the watch-list's latest sessions as would-be entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strategyName == "" {
				strategyName = app.cfg.Backtest.Strategy
			}
			res, err := app.runScan(cmd.Context(), strategyName)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), report.ScanReport(res))
			return nil
		},
	}

	cmd.Flags().StringVarP(&strategyName, "strategy", "s", "",
		"entry-filter preset to scan with (defaults to config)")
	return cmd
}

// runScan is shared between the scan command and the daemon's cron job: load
// the market view, scan it, persist the result, and send the daily report.
func (a *App) runScan(ctx context.Context, strategyName string) (*scan.Result, error) {
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

	res, err := scan.NewScanner(a.log).Run(scan.Config{
		Universe: view.Universe,
		Frames:   view.Frames,
		Ratings:  view.Ratings,
		Policy:   pol,
	})
	if err != nil {
		return nil, err
	}

	if err := a.persistScan(ctx, res); err != nil {
		a.log.Error("persisting scan failed", "err", err)
	}

	// Every run reports, recommendations or not: a bearish day and a quiet
	// day are answers too, and silence is indistinguishable from a dead job.
	notifier := a.newNotifier()
	if err := notifier.Notify(ctx, report.AlertSubject(res), report.ScanReport(res)); err != nil {
		a.log.Error("alert delivery failed", "err", err)
	}
	return res, nil
}

func (a *App) persistScan(ctx context.Context, res *scan.Result) error {
	db, err := a.openResultStore()
	if err != nil {
		return err
	}
	defer db.Close()

	return db.SaveScan(ctx, &store.ScanRun{
		Policy:    res.Policy,
		ScanDate:  res.Date,
		Snapshots: res.Snapshots,
	})
}
