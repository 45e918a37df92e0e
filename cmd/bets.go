package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stormlightlabs.org/mlbedge/internal/core"
	"stormlightlabs.org/mlbedge/internal/echo"
	"stormlightlabs.org/mlbedge/internal/oddsnorm"
)

// BetsCmd groups the bet ledger commands: spec.md's §3 Bet entity and
// §4.7 settlement logic imply a write path this CLI never otherwise
// exposes.
func BetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bets",
		Short: "Record and list placed wagers",
	}
	cmd.AddCommand(BetsLogCmd())
	cmd.AddCommand(BetsListCmd())
	return cmd
}

// BetsLogCmd records a new wager against a currently active scored
// selection, at 1-unit stake unless overridden.
func BetsLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log <selection-key>",
		Short: "Record a placed wager against a scored selection",
		Args:  cobra.ExactArgs(1),
		RunE:  runBetsLog,
	}
	cmd.Flags().Float64("stake", 1.0, "stake in units")
	cmd.Flags().Int("odds", 0, "the American odds taken at placement")
	return cmd
}

func runBetsLog(cmd *cobra.Command, args []string) error {
	key := core.SelectionKey(args[0])
	stake, _ := cmd.Flags().GetFloat64("stake")
	odds, _ := cmd.Flags().GetInt("odds")
	if odds == 0 {
		return fmt.Errorf("--odds is required")
	}

	e, err := buildEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := cmd.Context()
	score, err := e.Pipeline.Store.ActiveScoreForSelection(ctx, key)
	if err != nil {
		return fmt.Errorf("lookup selection: %w", err)
	}

	bet := core.Bet{
		ModelScoreID: score.ID,
		SelectionKey: key,
		StakeUnits:   stake,
		OpenAmerican: odds,
		OpenImplied:  oddsnorm.AmericanToImplied(odds),
		Settlement:   "pending",
		PlacedAt:     time.Now().UTC(),
	}

	id, err := e.Pipeline.Store.PlaceBet(ctx, bet)
	if err != nil {
		return fmt.Errorf("place bet: %w", err)
	}

	echo.Successf("✓ Logged bet #%d on %s @ %+d (%.2f units)", id, key, odds, stake)
	return nil
}

// BetsListCmd lists every bet placed in a date range.
func BetsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List bets placed in a date range",
		RunE:  runBetsList,
	}
	cmd.Flags().String("start-date", "", "start of the range (YYYY-MM-DD), defaults to 30 days ago")
	cmd.Flags().String("end-date", "", "end of the range (YYYY-MM-DD), defaults to today")
	return cmd
}

func runBetsList(cmd *cobra.Command, args []string) error {
	startStr, _ := cmd.Flags().GetString("start-date")
	endStr, _ := cmd.Flags().GetString("end-date")

	end := time.Now().UTC()
	if endStr != "" {
		d, err := core.ParseDate(endStr)
		if err != nil {
			return fmt.Errorf("parse end-date: %w", err)
		}
		end = d.Time()
	}

	start := end.AddDate(0, 0, -30)
	if startStr != "" {
		d, err := core.ParseDate(startStr)
		if err != nil {
			return fmt.Errorf("parse start-date: %w", err)
		}
		start = d.Time()
	}

	e, err := buildEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	bets, err := e.Pipeline.Store.BetsPlacedBetween(cmd.Context(), start, end)
	if err != nil {
		return fmt.Errorf("load bets: %w", err)
	}

	echo.Header("Bets")
	if len(bets) == 0 {
		echo.Info("No bets in range")
		return nil
	}

	for _, b := range bets {
		settlement := b.Settlement
		if b.ProfitUnits != nil {
			settlement = fmt.Sprintf("%s (%+.2f units)", settlement, *b.ProfitUnits)
		}
		echo.Infof("  #%d %s @ %+d, %.2f units — %s", b.ID, b.SelectionKey, b.OpenAmerican, b.StakeUnits, settlement)
	}
	return nil
}
