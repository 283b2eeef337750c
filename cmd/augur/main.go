package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	debugMode bool
)

var rootCmd = &cobra.Command{
	Use:   "augur",
	Short: "AUGUR - daily directional forecasts with a self-grading ledger",
	Long: `AUGUR scores technical indicators of a daily instrument (SPY by default)
into an UP, DOWN or NEUTRAL call, records each call in a prediction ledger,
grades it against the realized close and publishes accuracy statistics.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debugMode, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
