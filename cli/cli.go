package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"stormlightlabs.org/mlbedge/cmd"
	"stormlightlabs.org/mlbedge/internal/echo"
)

// RootCmd is the root command for the mlbedge CLI
var RootCmd = &cobra.Command{
	Use:   "mlbedge",
	Short: "Daily MLB betting decision-support pipeline",
	Long: echo.HeaderStyle().Render("mlbedge") + "\n\n" +
		"Runs the daily fetch -> lineups -> features -> score -> grade pipeline\n" +
		"and odds refreshes, inspects its cache and score-run status, and replays markets\n" +
		"historically for backtesting.",
}

func init() {
	RootCmd.PersistentFlags().String("config", "", "path to config file (default: conf.toml in the working directory)")

	RootCmd.AddCommand(cmd.InitCmd())
	RootCmd.AddCommand(cmd.MigrateCmd())
	RootCmd.AddCommand(cmd.DailyCmd())
	RootCmd.AddCommand(cmd.RefreshOddsCmd())
	RootCmd.AddCommand(cmd.FetchLineupsCmd())
	RootCmd.AddCommand(cmd.BuildFeaturesCmd())
	RootCmd.AddCommand(cmd.ScoreCmd())
	RootCmd.AddCommand(cmd.RescoreOnLineupCmd())
	RootCmd.AddCommand(cmd.GradeCmd())
	RootCmd.AddCommand(cmd.BackfillCmd())
	RootCmd.AddCommand(cmd.BacktestCmd())
	RootCmd.AddCommand(cmd.StatusCmd())
	RootCmd.AddCommand(cmd.BetsCmd())
	RootCmd.AddCommand(cmd.CacheCmd())
	RootCmd.AddCommand(cmd.ServeCmd())
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		echo.Error(fmt.Sprintf("✗ %s", err))
		os.Exit(1)
	}
}
