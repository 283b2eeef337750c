package main

import (
	"os"

	"github.com/spf13/cobra"
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Score the latest bar and write the latest forecast",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		f, err := a.GenerateForecast(cmd.Context())
		if err != nil {
			return err
		}
		printForecast(os.Stdout, f)
		return nil
	},
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Append the latest forecast to the prediction ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		p, err := a.RecordCurrentForecast(cmd.Context())
		if err != nil {
			return err
		}
		printRecorded(os.Stdout, p)
		return nil
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Grade pending predictions against realized prices",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		r, err := a.ResolvePendingPredictions(cmd.Context())
		if err != nil {
			return err
		}
		printResolution(os.Stdout, r)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Recompute statistics and write the display artifact",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		e, err := a.ExportForDisplay(cmd.Context())
		if err != nil {
			return err
		}
		printStatistics(os.Stdout, e.Statistics)
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run forecast, record, resolve and export in one pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		res, err := a.RunDaily(cmd.Context())
		if res.Forecast != nil {
			printForecast(os.Stdout, *res.Forecast)
		}
		if res.Prediction != nil {
			printRecorded(os.Stdout, *res.Prediction)
		}
		printResolution(os.Stdout, res.Resolution)
		printStatistics(os.Stdout, res.Export.Statistics)
		return err
	},
}

func init() {
	rootCmd.AddCommand(forecastCmd, recordCmd, resolveCmd, exportCmd, runCmd)
}
