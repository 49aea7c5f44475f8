package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"diphunter/internal/scheduler"
)

func newDaemonCmd(app *App) *cobra.Command {
	var strategyName string

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the scan on a schedule and alert on recommendations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strategyName == "" {
				strategyName = app.cfg.Backtest.Strategy
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sched := scheduler.New(app.log)
			err := sched.Register("scan", app.cfg.Daemon.ScanCron, func() {
				if _, err := app.runScan(ctx, strategyName); err != nil {
					app.log.Error("scheduled scan failed", "err", err)
				}
			})
			if err != nil {
				return err
			}

			sched.Start()
			defer sched.Stop()

			<-ctx.Done()
			app.log.Info("shutting down")
			return nil
		},
	}

	cmd.Flags().StringVarP(&strategyName, "strategy", "s", "",
		"entry-filter preset for scheduled scans (defaults to config)")
	return cmd
}
