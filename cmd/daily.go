package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"stormlightlabs.org/mlbedge/internal/core"
	"stormlightlabs.org/mlbedge/internal/echo"
	"stormlightlabs.org/mlbedge/internal/market"
)

func dateFlag(cmd *cobra.Command) *cobra.Command {
	cmd.Flags().String("date", "", "date to operate on (YYYY-MM-DD)")
	return cmd
}

func parseDateFlag(cmd *cobra.Command) (core.Date, error) {
	s, _ := cmd.Flags().GetString("date")
	if s == "" {
		return core.Date{}, fmt.Errorf("--date is required")
	}
	return core.ParseDate(s)
}

// DailyCmd runs the full fetch -> lineups -> features -> score -> grade
// sequence for one date; odds are refreshed by refresh-odds.
func DailyCmd() *cobra.Command {
	return dateFlag(&cobra.Command{
		Use:   "daily",
		Short: "Run the daily orchestrator for a date",
		RunE:  runDaily,
	})
}

func runDaily(cmd *cobra.Command, args []string) error {
	date, err := parseDateFlag(cmd)
	if err != nil {
		return err
	}

	e, err := buildEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	echo.Header("Daily Run")
	echo.Infof("Date: %s", date.String())

	if err := e.Pipeline.Run(cmd.Context(), date); err != nil {
		return fmt.Errorf("daily run: %w", err)
	}

	echo.Success("✓ Daily run completed")
	return nil
}

// RefreshOddsCmd fetches and normalizes odds for every game on a date
// that has a known event-id mapping.
func RefreshOddsCmd() *cobra.Command {
	cmd := dateFlag(&cobra.Command{
		Use:   "refresh-odds",
		Short: "Run odds fetch and normalize",
		RunE:  runRefreshOdds,
	})
	cmd.Flags().String("event-ids-file", "", "path to a JSON file mapping internal game ids to odds-provider event ids")
	return cmd
}

func runRefreshOdds(cmd *cobra.Command, args []string) error {
	date, err := parseDateFlag(cmd)
	if err != nil {
		return err
	}

	eventIDsFile, _ := cmd.Flags().GetString("event-ids-file")
	eventIDs := map[core.GameID]string{}
	if eventIDsFile != "" {
		raw, err := os.ReadFile(eventIDsFile)
		if err != nil {
			return fmt.Errorf("read event-ids-file: %w", err)
		}
		if err := json.Unmarshal(raw, &eventIDs); err != nil {
			return fmt.Errorf("parse event-ids-file: %w", err)
		}
	}

	e, err := buildEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	echo.Header("Refresh Odds")
	echo.Infof("Date: %s", date.String())

	if err := e.Pipeline.RefreshOdds(cmd.Context(), date, eventIDs); err != nil {
		return fmt.Errorf("refresh odds: %w", err)
	}

	echo.Success("✓ Odds refreshed")
	return nil
}

// FetchLineupsCmd confirms lineups for every game on a date.
func FetchLineupsCmd() *cobra.Command {
	return dateFlag(&cobra.Command{
		Use:   "fetch-lineups",
		Short: "Fetch lineup snapshots",
		RunE:  runFetchLineups,
	})
}

func runFetchLineups(cmd *cobra.Command, args []string) error {
	date, err := parseDateFlag(cmd)
	if err != nil {
		return err
	}

	e, err := buildEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	echo.Header("Fetch Lineups")
	echo.Infof("Date: %s", date.String())

	if err := e.Pipeline.FetchLineups(cmd.Context(), date); err != nil {
		return fmt.Errorf("fetch lineups: %w", err)
	}

	echo.Success("✓ Lineups fetched")
	return nil
}

// BuildFeaturesCmd runs the four feature builders for a date.
func BuildFeaturesCmd() *cobra.Command {
	return dateFlag(&cobra.Command{
		Use:   "build-features",
		Short: "Run the four feature builders",
		RunE:  runBuildFeatures,
	})
}

func runBuildFeatures(cmd *cobra.Command, args []string) error {
	date, err := parseDateFlag(cmd)
	if err != nil {
		return err
	}

	e, err := buildEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	echo.Header("Build Features")
	echo.Infof("Date: %s", date.String())

	if err := e.Pipeline.BuildFeatures(cmd.Context(), date); err != nil {
		return fmt.Errorf("build features: %w", err)
	}

	echo.Success("✓ Features built")
	return nil
}

// ScoreCmd scores one market (or every registered market) for a date,
// optionally posting a webhook alert per market scored.
func ScoreCmd() *cobra.Command {
	cmd := dateFlag(&cobra.Command{
		Use:   "score",
		Short: "Score selections for a date",
		RunE:  runScore,
	})
	cmd.Flags().String("market", "", "market to score (mutually exclusive with --all-markets)")
	cmd.Flags().Bool("all-markets", false, "score every registered market")
	cmd.Flags().Bool("send-alerts", false, "post a webhook alert for each scored market")
	return cmd
}

func runScore(cmd *cobra.Command, args []string) error {
	date, err := parseDateFlag(cmd)
	if err != nil {
		return err
	}

	marketFlag, _ := cmd.Flags().GetString("market")
	allMarkets, _ := cmd.Flags().GetBool("all-markets")
	sendAlerts, _ := cmd.Flags().GetBool("send-alerts")

	if marketFlag == "" && !allMarkets {
		return fmt.Errorf("one of --market or --all-markets is required")
	}
	if marketFlag != "" && allMarkets {
		return fmt.Errorf("--market and --all-markets are mutually exclusive")
	}

	e, err := buildEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	echo.Header("Score")
	echo.Infof("Date: %s", date.String())

	markets := []core.Market{core.Market(marketFlag)}
	if allMarkets {
		specs := e.Pipeline.Registry.All()
		markets = make([]core.Market, 0, len(specs))
		for _, spec := range specs {
			markets = append(markets, spec.Market)
		}
	}

	ctx := cmd.Context()
	riskFlagsSeen := false
	for _, m := range markets {
		rows, err := e.Pipeline.Score(ctx, date, m)
		if err != nil {
			return fmt.Errorf("score %s: %w", m, err)
		}
		echo.Successf("✓ %s: %d selections scored", m, rows)

		if !sendAlerts {
			continue
		}

		scores, err := marketScoresOnDate(ctx, e, date, m)
		if err != nil {
			e.Log.Warn("could not collect scores for alert", "market", m, "err", err)
			continue
		}
		for _, sc := range scores {
			if len(sc.RiskFlags) > 0 {
				riskFlagsSeen = true
			}
		}
		if err := e.Alert.Send(ctx, date, m, scores); err != nil {
			e.Log.Warn("alert send failed", "market", m, "err", err)
		}
	}

	if riskFlagsSeen {
		os.Exit(2)
	}
	return nil
}

// marketScoresOnDate collects every active scored row for market across
// the day's games, the unit an alert payload reports on.
func marketScoresOnDate(ctx context.Context, e *env, date core.Date, m core.Market) ([]core.ModelScore, error) {
	games, err := e.Pipeline.Store.GamesOnDate(ctx, date)
	if err != nil {
		return nil, err
	}

	var out []core.ModelScore
	for _, g := range games {
		scores, err := e.Pipeline.Store.ActiveScoresForGame(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		for _, sc := range scores {
			if sc.Market == m {
				out = append(out, sc)
			}
		}
	}
	return out, nil
}

// RescoreOnLineupCmd re-scores lineup-sensitive markets for games whose
// lineups changed since the last scoring pass.
func RescoreOnLineupCmd() *cobra.Command {
	cmd := dateFlag(&cobra.Command{
		Use:   "rescore-on-lineup",
		Short: "Re-score lineup-sensitive markets for games whose lineups changed",
		RunE:  runRescoreOnLineup,
	})
	cmd.Flags().Bool("send-alerts", false, "post a webhook alert for re-scored rows")
	return cmd
}

func runRescoreOnLineup(cmd *cobra.Command, args []string) error {
	date, err := parseDateFlag(cmd)
	if err != nil {
		return err
	}

	e, err := buildEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	echo.Header("Rescore on Lineup")
	echo.Infof("Date: %s", date.String())

	sendAlerts, _ := cmd.Flags().GetBool("send-alerts")

	ctx := cmd.Context()
	rows, err := e.Pipeline.RescoreOnLineup(ctx, date)
	if err != nil {
		return fmt.Errorf("rescore on lineup: %w", err)
	}

	echo.Successf("✓ %d selections re-scored", rows)

	if sendAlerts {
		for _, spec := range e.Pipeline.Registry.All() {
			if spec.LineupRequirement == market.LineupNotRequired {
				continue
			}
			scores, err := marketScoresOnDate(ctx, e, date, spec.Market)
			if err != nil {
				e.Log.Warn("could not collect scores for alert", "market", spec.Market, "err", err)
				continue
			}
			if err := e.Alert.Send(ctx, date, spec.Market, scores); err != nil {
				e.Log.Warn("alert send failed", "market", spec.Market, "err", err)
			}
		}
	}

	return nil
}

// GradeCmd grades and settles a date's finished games.
func GradeCmd() *cobra.Command {
	return dateFlag(&cobra.Command{
		Use:   "grade",
		Short: "Grade, settle, and capture CLV for a date",
		RunE:  runGrade,
	})
}

func runGrade(cmd *cobra.Command, args []string) error {
	date, err := parseDateFlag(cmd)
	if err != nil {
		return err
	}

	e, err := buildEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	echo.Header("Grade")
	echo.Infof("Date: %s", date.String())

	if err := e.Pipeline.Grade(cmd.Context(), date); err != nil {
		return fmt.Errorf("grade: %w", err)
	}

	echo.Success("✓ Grading completed")
	return nil
}
