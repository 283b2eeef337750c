package main

import (
	"os"

	"github.com/spf13/cobra"
)

var historyLimit int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print accuracy statistics without writing anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		st, err := a.Statistics(cmd.Context())
		if err != nil {
			return err
		}
		printStatistics(os.Stdout, st)

		if historyLimit > 0 {
			entries, err := a.RecentForecasts(cmd.Context(), historyLimit)
			if err != nil {
				return err
			}
			os.Stdout.WriteString("\n")
			printHistory(os.Stdout, entries)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().IntVar(&historyLimit, "history", 0, "also print the last N journaled forecasts")
	rootCmd.AddCommand(statsCmd)
}
