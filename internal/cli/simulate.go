package cli

import (
	"github.com/spf13/cobra"

	"pitchwatch/internal/app"
)

var (
	simulatePitcher   string
	simulateDebutYear int
	simulateInning    int
	simulateERA       string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Send a synthetic alert to verify channel wiring",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.SimulateOptions{
			Pitcher:   simulatePitcher,
			DebutYear: simulateDebutYear,
			Inning:    simulateInning,
			ERA:       simulateERA,
		}
		return getApp().SimulateAlert(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulatePitcher, "pitcher", "Test Pitcher", "Synthetic pitcher name")
	simulateCmd.Flags().IntVar(&simulateDebutYear, "debut-year", 0, "Debut year (default: current year)")
	simulateCmd.Flags().IntVar(&simulateInning, "inning", 7, "Inning of the synthetic substitution")
	simulateCmd.Flags().StringVar(&simulateERA, "era", "9.99", "Season ERA of the synthetic pitcher")
}
