package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"stormlightlabs.org/mlbedge/internal/core"
	"stormlightlabs.org/mlbedge/internal/echo"
	"stormlightlabs.org/mlbedge/internal/orchestrate"
)

// BackfillCmd spans a historical date range, optionally building
// features, scoring, and grading each date once ingestion lands.
func BackfillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Backfill a historical date range",
		RunE:  runBackfill,
	}
	cmd.Flags().String("start-date", "", "start of the range (YYYY-MM-DD)")
	cmd.Flags().String("end-date", "", "end of the range (YYYY-MM-DD)")
	cmd.Flags().Bool("build-features", false, "build features for each date once ingested")
	cmd.Flags().Bool("score", false, "score each date once features are built")
	cmd.Flags().Bool("all-markets", false, "required with --score; scores every registered market")
	cmd.Flags().Bool("grade", false, "grade each date once scored")
	cmd.Flags().Bool("no-bulk", false, "disable bulk chunked ingestion, fetching one date at a time")
	cmd.Flags().Int("workers", 0, "Phase 2 worker pool size (0 uses the default)")
	return cmd
}

func runBackfill(cmd *cobra.Command, args []string) error {
	startStr, _ := cmd.Flags().GetString("start-date")
	endStr, _ := cmd.Flags().GetString("end-date")
	if startStr == "" || endStr == "" {
		return fmt.Errorf("--start-date and --end-date are required")
	}

	start, err := core.ParseDate(startStr)
	if err != nil {
		return fmt.Errorf("parse start-date: %w", err)
	}
	end, err := core.ParseDate(endStr)
	if err != nil {
		return fmt.Errorf("parse end-date: %w", err)
	}

	buildFeatures, _ := cmd.Flags().GetBool("build-features")
	score, _ := cmd.Flags().GetBool("score")
	allMarkets, _ := cmd.Flags().GetBool("all-markets")
	grade, _ := cmd.Flags().GetBool("grade")
	noBulk, _ := cmd.Flags().GetBool("no-bulk")
	workers, _ := cmd.Flags().GetInt("workers")

	if score && !allMarkets {
		return fmt.Errorf("--score requires --all-markets")
	}

	e, err := buildEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	echo.Header("Backfill")
	echo.Infof("Range: %s -> %s", start.String(), end.String())

	opts := orchestrate.BackfillOptions{
		BuildFeatures: buildFeatures,
		Score:         score,
		Grade:         grade,
		Workers:       workers,
		NoBulk:        noBulk,
	}

	result, err := e.Pipeline.Backfill(cmd.Context(), start, end, opts)
	if err != nil {
		return fmt.Errorf("backfill: %w", err)
	}

	echo.Successf("✓ Processed %d dates, ingested %d games", result.DatesProcessed, result.GamesIngested)
	if len(result.Failed) > 0 {
		failedDates := make([]string, 0, len(result.Failed))
		for _, d := range result.Failed {
			failedDates = append(failedDates, d.String())
		}
		echo.Errorf("⚠ %d dates failed: %s", len(result.Failed), strings.Join(failedDates, ", "))
	}
	return nil
}
