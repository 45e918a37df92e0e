package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stormlightlabs.org/mlbedge/internal/echo"
)

// staleAfter flags a market's latest score run as stale once its
// finish time is this far in the past — a run from yesterday morning
// still reads as fresh at noon, but one from three days ago does not.
const staleAfter = 36 * time.Hour

// StatusCmd prints the latest score run per market: row counts,
// freshness, and whether each run finished or failed.
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print last run timestamps per market, counts, and freshness",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	echo.Header("Status")

	e, err := buildEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	runs, err := e.Pipeline.Store.LatestScoreRuns(cmd.Context())
	if err != nil {
		return fmt.Errorf("load score runs: %w", err)
	}

	if len(runs) == 0 {
		echo.Info("No score runs recorded yet")
		return nil
	}

	for _, run := range runs {
		label := fmt.Sprintf("%s (%s)", run.Market, run.RunDate.String())
		if run.Status != "complete" {
			echo.Errorf("  ⚠ %s: %s — %s", label, run.Status, run.Reason)
			continue
		}

		freshness := "never finished"
		stale := false
		if run.FinishedAt != nil {
			freshness = humanizeModTime(*run.FinishedAt)
			stale = time.Since(*run.FinishedAt) > staleAfter
		}

		if stale {
			echo.Infof("  ⚠ %s: %d rows, finished %s (stale)", label, run.RowCount, freshness)
		} else {
			echo.Successf("  ✓ %s: %d rows, finished %s", label, run.RowCount, freshness)
		}
	}

	return nil
}
