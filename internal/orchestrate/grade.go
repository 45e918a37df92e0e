package orchestrate

import (
	"context"

	"stormlightlabs.org/mlbedge/internal/core"
	"stormlightlabs.org/mlbedge/internal/grader"
	"stormlightlabs.org/mlbedge/internal/oddsnorm"
)

// Grade extracts realized outcomes for every final or cancelled game on
// date, writes them, and settles any bets placed against the affected
// selections. A game still in progress is simply skipped — grading a
// live game is an invariant violation the caller must never attempt,
// so Grade filters to terminal statuses itself rather than relying on
// every caller to check first.
func (p *Pipeline) Grade(ctx context.Context, date core.Date) error {
	games, err := p.Store.GamesOnDate(ctx, date)
	if err != nil {
		return err
	}

	for _, g := range games {
		if g.Status != "final" && g.Status != "cancelled" {
			continue
		}
		if err := p.gradeGame(ctx, g); err != nil {
			p.Log.Warn("grade failed for game", "game", g.ID, "err", err)
		}
	}
	return nil
}

func (p *Pipeline) gradeGame(ctx context.Context, g core.Game) error {
	batters, pitchers, f5, err := p.gameLines(ctx, g.ID)
	if err != nil {
		return err
	}

	outcomes, err := grader.ExtractOutcomes(ctx, p.Store, g.ID, batters, pitchers, f5)
	if err != nil {
		return err
	}
	if len(outcomes) == 0 {
		return nil
	}
	if err := p.Store.UpsertMarketOutcomes(ctx, outcomes); err != nil {
		return err
	}

	scores, err := p.Store.ActiveScoresForGame(ctx, g.ID)
	if err != nil {
		return err
	}
	scoreBySelection := make(map[core.SelectionKey]core.ModelScore, len(scores))
	for _, sc := range scores {
		scoreBySelection[sc.SelectionKey] = sc
	}

	for _, outcome := range outcomes {
		sc, ok := scoreBySelection[outcome.SelectionKey]
		if !ok {
			continue
		}
		if err := p.settleBetsForSelection(ctx, outcome, sc); err != nil {
			p.Log.Warn("bet settlement failed", "selection", outcome.SelectionKey, "err", err)
		}
	}
	return nil
}

func (p *Pipeline) settleBetsForSelection(ctx context.Context, outcome core.MarketOutcome, sc core.ModelScore) error {
	bets, err := p.Store.BetsForSelection(ctx, outcome.SelectionKey)
	if err != nil {
		return err
	}

	for _, bet := range bets {
		if bet.SettledAt != nil {
			continue
		}
		decimalOdds := oddsnorm.AmericanToDecimal(bet.OpenAmerican)
		settlement, profitUnits := grader.SettleBet(bet, outcome, sc.Line, sc.Side, decimalOdds)

		closeImplied := bet.OpenImplied
		if cl, err := p.Store.ClosingLineFor(ctx, outcome.SelectionKey); err == nil {
			closeImplied = cl.ImpliedProb
		}
		clv := grader.CaptureCLV(bet.OpenImplied, closeImplied)

		if err := p.Store.SettleBet(ctx, bet.ID, closeImplied, clv, profitUnits, string(settlement), outcome.SettledAt); err != nil {
			return err
		}
	}
	return nil
}

// gameLines aggregates one game's pitch events into per-batter and
// per-pitcher realized counting lines, plus the through-five-innings
// run split F5 markets settle against. Mirrors the same event-type
// vocabulary the window stats builders use, since both read from the
// same pitch_events rows.
func (p *Pipeline) gameLines(ctx context.Context, gameID core.GameID) ([]grader.BatterGameLine, []grader.PitcherGameLine, grader.F5Line, error) {
	events, err := p.Store.EventsForGame(ctx, gameID)
	if err != nil {
		return nil, nil, grader.F5Line{}, err
	}

	batterIdx := make(map[core.PlayerID]*grader.BatterGameLine)
	pitcherIdx := make(map[core.PlayerID]*grader.PitcherGameLine)
	var f5 grader.F5Line
	f5.Known = len(events) > 0

	for _, e := range events {
		if e.IsAtBatEnd && e.Inning <= 5 {
			if e.IsTopInning {
				f5.AwayRuns += e.RBIOnPlay
			} else {
				f5.HomeRuns += e.RBIOnPlay
			}
		}
		if e.IsAtBatEnd {
			bl, ok := batterIdx[e.BatterID]
			if !ok {
				bl = &grader.BatterGameLine{BatterID: e.BatterID}
				batterIdx[e.BatterID] = bl
			}
			bl.TotalBases += e.TotalBasesOnPlay
			switch e.EventType {
			case "Single", "Double", "Triple", "Home Run":
				bl.Hits++
			}
			if e.EventType == "Home Run" {
				bl.HomeRuns++
			}
		}

		pl, ok := pitcherIdx[e.PitcherID]
		if !ok {
			pl = &grader.PitcherGameLine{PitcherID: e.PitcherID}
			pitcherIdx[e.PitcherID] = pl
		}
		if e.EventType != "pitch" && e.Outs > 0 {
			pl.OutsRecorded++
		}
		if e.EventType == "Strikeout" {
			pl.Strikeouts++
		}
	}

	batters := make([]grader.BatterGameLine, 0, len(batterIdx))
	for _, bl := range batterIdx {
		batters = append(batters, *bl)
	}
	pitchers := make([]grader.PitcherGameLine, 0, len(pitcherIdx))
	for _, pl := range pitcherIdx {
		pitchers = append(pitchers, *pl)
	}
	return batters, pitchers, f5, nil
}
