package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"stormlightlabs.org/mlbedge/internal/core"
	"stormlightlabs.org/mlbedge/internal/echo"
	"stormlightlabs.org/mlbedge/internal/orchestrate"
)

// BacktestCmd replays a market's scoring logic over a historical range
// and writes the row-level result as CSV to stdout.
func BacktestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay a market over a historical range and write a CSV",
		RunE:  runBacktest,
	}
	cmd.Flags().String("market", "", "market to replay")
	cmd.Flags().String("start-date", "", "start of the range (YYYY-MM-DD)")
	cmd.Flags().String("end-date", "", "end of the range (YYYY-MM-DD)")
	cmd.Flags().String("signals", "", "comma-separated signal tiers to include (default: every tier)")
	cmd.Flags().String("out", "", "output CSV path (default: stdout)")
	cmd.MarkFlagRequired("market")
	cmd.MarkFlagRequired("start-date")
	cmd.MarkFlagRequired("end-date")
	return cmd
}

func runBacktest(cmd *cobra.Command, args []string) error {
	marketFlag, _ := cmd.Flags().GetString("market")
	startStr, _ := cmd.Flags().GetString("start-date")
	endStr, _ := cmd.Flags().GetString("end-date")
	signalsFlag, _ := cmd.Flags().GetString("signals")
	outPath, _ := cmd.Flags().GetString("out")

	start, err := core.ParseDate(startStr)
	if err != nil {
		return fmt.Errorf("parse start-date: %w", err)
	}
	end, err := core.ParseDate(endStr)
	if err != nil {
		return fmt.Errorf("parse end-date: %w", err)
	}

	var signals []core.Signal
	if signalsFlag != "" {
		for _, s := range strings.Split(signalsFlag, ",") {
			signals = append(signals, core.Signal(strings.ToUpper(strings.TrimSpace(s))))
		}
	}

	e, err := buildEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	echo.Header("Backtest")
	echo.Infof("Market: %s, range: %s -> %s", marketFlag, start.String(), end.String())

	bt := &orchestrate.Backtester{Pipeline: e.Pipeline, Signals: signals}
	rows, metrics, err := bt.Run(cmd.Context(), core.Market(marketFlag), start, end)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	out := cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := orchestrate.WriteCSV(out, rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}

	echo.Successf("✓ %d rows, win rate %.3f, ROI %.3f", metrics.Rows, metrics.WinRate(), metrics.ROI())
	return nil
}
