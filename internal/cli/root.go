// Package cli wires the configuration, data sources, and engines into the
// diphunter command tree.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"diphunter/internal/config"
	"diphunter/internal/util"
)

// App carries the loaded configuration and logger into subcommands.
type App struct {
	cfg *config.Config
	log *slog.Logger
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the diphunter command tree. Configuration resolves from
// --config, then the DIPHUNTER_CONFIG environment variable, then built-in
// defaults; environment overrides apply in every case.
func NewRootCmd() *cobra.Command {
	var configPath string
	app := &App{}

	root := &cobra.Command{
		Use:           "diphunter",
		Short:         "Buy-the-dip scanner and backtester for US equities",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = os.Getenv("DIPHUNTER_CONFIG")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			app.cfg = cfg
			app.log = util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
			util.SetDefault(app.log)
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to YAML config file (defaults to $DIPHUNTER_CONFIG)")

	root.AddCommand(
		newScanCmd(app),
		newBacktestCmd(app),
		newDaemonCmd(app),
		newStrategiesCmd(app),
	)
	return root
}
