package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"diphunter/internal/strategy"
)

func newStrategiesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List the built-in strategy presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-17s %7s %7s %9s %7s %6s  %s\n",
				"NAME", "TARGET", "TRAIL", "TRAIL-ACT", "STOP", "DAYS", "ENTRY FILTERS")
			for _, p := range strategy.Presets() {
				fmt.Fprintf(out, "%-17s %6.0f%% %7s %9s %7s %6s  %s\n",
					p.Name, p.ProfitTargetPct*100,
					fmtPct(p.TrailingStopPct), fmtPct(p.TrailingActivationPct),
					fmtPct(p.InitialStopPct), fmtDays(p.TimeStopDays), fmtFilters(p))
			}
			return nil
		},
	}
}

func fmtPct(v float64) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", v*100)
}

func fmtDays(d int) string {
	if d == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", d)
}

func fmtFilters(p strategy.Policy) string {
	if !p.RequireOversold && !p.RequireBullish && !p.RequireGreenDay {
		return "none"
	}
	s := ""
	if p.RequireOversold {
		s += "oversold "
	}
	if p.RequireBullish {
		s += "bullish "
	}
	if p.RequireGreenDay {
		s += "green-day"
	}
	return s
}
