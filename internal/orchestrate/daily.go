// Package orchestrate wires fetchers, feature builders, market models
// and the grader into the daily pipeline, the two-phase historical
// backfill, and the as-of backtester. Each exported stage is also
// callable on its own so the CLI can run a single stage against a date
// without re-running the whole pipeline.
package orchestrate

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"stormlightlabs.org/mlbedge/internal/core"
	"stormlightlabs.org/mlbedge/internal/features"
	"stormlightlabs.org/mlbedge/internal/fetchers"
	"stormlightlabs.org/mlbedge/internal/market"
	"stormlightlabs.org/mlbedge/internal/market/models"
	"stormlightlabs.org/mlbedge/internal/store"
)

// League-average fallbacks for factor inputs no tracked table covers
// yet (team plate discipline, pitcher hard-hit rate, batter platoon
// splits). Using a neutral constant rather than zero keeps the
// composite score centered until those tables exist.
const (
	leagueAvgKRate   = 0.22
	leagueAvgERA     = 4.30
	leagueAvgHRRate  = 0.032
	leagueAvgHardHit = 0.35
)

// Pipeline holds every dependency the daily stages and the two-phase
// backfill need: the store, the market registry, and one client per
// upstream source.
type Pipeline struct {
	Store       *store.Store
	Registry    *market.Registry
	MLB         *fetchers.MLBStatsFetcher
	Weather     *fetchers.WeatherFetcher
	Odds        *fetchers.OddsFetcher
	PitchEvents *fetchers.PitchEventFetcher
	Parks       features.ParkFactors
	Log         *log.Logger
}

// Run executes fetch -> lineups -> features -> score -> grade for one
// date in sequence, stopping at the first fatal error. Odds are not
// refreshed here; RefreshOdds runs separately. Stage
// boundaries are sequential, not transactional: a later stage may see
// partial results from an earlier one that failed mid-way, which is
// why every write is an idempotent upsert.
func (p *Pipeline) Run(ctx context.Context, date core.Date) error {
	if _, err := p.FetchSchedule(ctx, date); err != nil {
		return fmt.Errorf("fetch schedule: %w", err)
	}

	if err := p.FetchLineups(ctx, date); err != nil {
		p.Log.Warn("lineup fetch degraded", "date", date.String(), "err", err)
	}

	if err := p.BuildFeatures(ctx, date); err != nil {
		return fmt.Errorf("build features: %w", err)
	}

	if _, err := p.Score(ctx, date, ""); err != nil {
		return fmt.Errorf("score: %w", err)
	}

	if err := p.Grade(ctx, date); err != nil {
		p.Log.Warn("grade degraded", "date", date.String(), "err", err)
	}

	return nil
}

// FetchSchedule pulls the day's games and upserts them.
func (p *Pipeline) FetchSchedule(ctx context.Context, date core.Date) ([]core.Game, error) {
	games, err := p.MLB.Schedule(ctx, date)
	if err != nil {
		return nil, err
	}
	if err := p.Store.UpsertGames(ctx, games); err != nil {
		return nil, err
	}
	return games, nil
}

// FetchLineups confirms lineups for every game on date. A game with no
// posted lineup yet is simply absent from the result — never an error.
func (p *Pipeline) FetchLineups(ctx context.Context, date core.Date) error {
	games, err := p.Store.GamesOnDate(ctx, date)
	if err != nil {
		return err
	}
	for _, g := range games {
		if _, err := p.MLB.Lineups(ctx, g.ID); err != nil {
			p.Log.Warn("lineup fetch failed", "game", g.ID, "err", err)
		}
	}
	return nil
}

// RefreshOdds fetches and stores prices for every game that has a
// known odds-provider event id. eventIDs maps internal game ids to the
// odds API's own event ids, which have no derivable relationship to
// the schedule provider's game ids and so must come from the caller
// (config, a lookup file, or a future join table).
func (p *Pipeline) RefreshOdds(ctx context.Context, date core.Date, eventIDs map[core.GameID]string) error {
	if p.Odds == nil {
		return core.NewDataMissingError("market_odds", "odds fetcher not configured")
	}

	games, err := p.Store.GamesOnDate(ctx, date)
	if err != nil {
		return err
	}

	index := NewNameIndex()
	for _, g := range games {
		index.AddTeam(string(g.HomeTeam), g.HomeTeam)
		index.AddTeam(string(g.AwayTeam), g.AwayTeam)
		slots, err := p.MLB.Lineups(ctx, g.ID)
		if err != nil {
			continue
		}
		for _, s := range slots {
			index.AddPlayer(s.Name, s.PlayerID)
		}
	}

	var rows []core.MarketOdds
	skipped := 0
	for _, g := range games {
		eventID, ok := eventIDs[g.ID]
		if !ok {
			skipped++
			continue
		}
		priced, err := p.Odds.FetchEventOdds(ctx, eventID, g.ID, fetchers.AllSourceMarkets, index.Resolve)
		if err != nil {
			p.Log.Warn("odds fetch failed", "game", g.ID, "err", err)
			continue
		}
		rows = append(rows, priced...)
	}
	if skipped > 0 {
		p.Log.Info("odds refresh skipped games with no event id mapping", "date", date.String(), "skipped", skipped)
	}
	if len(rows) == 0 {
		return nil
	}
	return p.Store.UpsertMarketOdds(ctx, rows)
}

// BuildFeatures materializes batter, pitcher, team, and game-context
// feature rows for every game on date. Probable starters get pitcher
// rows; every confirmed lineup slot gets a batter row.
func (p *Pipeline) BuildFeatures(ctx context.Context, date core.Date) error {
	games, err := p.Store.GamesOnDate(ctx, date)
	if err != nil {
		return err
	}

	for _, g := range games {
		homeSlots, awaySlots, err := p.gameLineups(ctx, g)
		if err != nil {
			p.Log.Warn("lineup load failed, skipping batter features", "game", g.ID, "err", err)
		}

		p.buildPitcherFeatures(ctx, g, leagueAvgKRate)

		for _, slot := range append(append([]fetchers.LineupSlot{}, homeSlots...), awaySlots...) {
			opposing := g.ProbableAwayPitcher
			if isAwaySlot(slot, awaySlots) {
				opposing = g.ProbableHomePitcher
			}
			slotCopy := slot.Slot
			bf, err := features.BuildBatterDailyFeatures(ctx, p.Store, p.Parks, slot.PlayerID, g.ID, date, g.VenueID, opposing, &slotCopy)
			if err != nil {
				p.Log.Warn("batter feature build failed", "batter", slot.PlayerID, "err", err)
				continue
			}
			if err := p.Store.UpsertBatterDailyFeatures(ctx, []core.BatterDailyFeatures{bf}); err != nil {
				return err
			}
		}

		isDome := isDomeVenue(g.VenueID)
		ctxFeat, err := features.BuildGameContextFeatures(ctx, p.Weather, p.MLB, g.ID, date, g.VenueID, isDome,
			len(homeSlots) > 0, len(awaySlots) > 0, g.IsFinal())
		if err != nil {
			return err
		}
		if err := p.Store.UpsertGameContextFeatures(ctx, []core.GameContextFeatures{ctxFeat}); err != nil {
			return err
		}

		homeTeamFeat, err := p.buildTeamFeatures(ctx, g.HomeTeam, g.ID, date)
		if err != nil {
			return err
		}
		awayTeamFeat, err := p.buildTeamFeatures(ctx, g.AwayTeam, g.ID, date)
		if err != nil {
			return err
		}
		if err := p.Store.UpsertTeamDailyFeatures(ctx, []core.TeamDailyFeatures{homeTeamFeat, awayTeamFeat}); err != nil {
			return err
		}
	}
	return nil
}

func isAwaySlot(slot fetchers.LineupSlot, awaySlots []fetchers.LineupSlot) bool {
	for _, s := range awaySlots {
		if s.PlayerID == slot.PlayerID {
			return true
		}
	}
	return false
}

// isDomeVenue has no venue-attributes table to read from yet; every
// venue is treated as open-air until one exists.
func isDomeVenue(venueID string) bool { return false }

func (p *Pipeline) gameLineups(ctx context.Context, g core.Game) (home, away []fetchers.LineupSlot, err error) {
	slots, err := p.MLB.Lineups(ctx, g.ID)
	if err != nil {
		return nil, nil, err
	}
	for _, s := range slots {
		if s.TeamID == g.HomeTeam {
			home = append(home, s)
		} else {
			away = append(away, s)
		}
	}
	return home, away, nil
}

// buildPitcherFeatures materializes and persists feature rows for both
// probable starters, when known.
func (p *Pipeline) buildPitcherFeatures(ctx context.Context, g core.Game, oppKRate float64) {
	for _, pid := range []*core.PlayerID{g.ProbableHomePitcher, g.ProbableAwayPitcher} {
		if pid == nil {
			continue
		}
		f, err := features.BuildPitcherDailyFeatures(ctx, p.Store, *pid, g.ID, g.Date, true, oppKRate)
		if err != nil {
			p.Log.Warn("pitcher feature build failed", "pitcher", *pid, "err", err)
			continue
		}
		if err := p.Store.UpsertPitcherDailyFeatures(ctx, []core.PitcherDailyFeatures{f}); err != nil {
			p.Log.Warn("pitcher feature write failed", "pitcher", *pid, "err", err)
		}
	}
}

func (p *Pipeline) buildTeamFeatures(ctx context.Context, teamID core.TeamID, gameID core.GameID, d core.Date) (core.TeamDailyFeatures, error) {
	games, err := p.Store.RecentGamesForTeam(ctx, teamID, d, 15)
	if err != nil {
		return core.TeamDailyFeatures{}, err
	}

	var runsScored, runsAllowed []int
	wins := 0
	for _, g := range games {
		if g.FinalHomeRuns == nil || g.FinalAwayRuns == nil {
			continue
		}
		scored, allowed := *g.FinalAwayRuns, *g.FinalHomeRuns
		if g.HomeTeam == teamID {
			scored, allowed = *g.FinalHomeRuns, *g.FinalAwayRuns
		}
		runsScored = append(runsScored, scored)
		runsAllowed = append(runsAllowed, allowed)
		if scored > allowed {
			wins++
		}
	}

	restDays := 0
	if len(games) > 0 {
		restDays = int(d.Time().Sub(games[0].Date.Time()).Hours() / 24)
	}

	in := features.TeamWindowInput{
		RunsScored: runsScored, RunsAllowed: runsAllowed, Wins: wins, Games: len(runsScored), RestDays: restDays,
	}
	return features.BuildTeamDailyFeatures(teamID, gameID, d, in), nil
}

// Score runs every registered market (or a single market, when
// selected is non-empty) against date's built features, superseding
// the prior active rows for each selection it touches. It returns the
// total row count written.
func (p *Pipeline) Score(ctx context.Context, date core.Date, selected core.Market) (int, error) {
	games, err := p.Store.GamesOnDate(ctx, date)
	if err != nil {
		return 0, err
	}

	specs := p.Registry.All()
	total := 0
	for _, spec := range specs {
		if selected != "" && spec.Market != selected {
			continue
		}
		runID, err := p.Store.StartScoreRun(ctx, date, spec.Market)
		if err != nil {
			return total, err
		}

		rows, scoreErr := p.scoreMarket(ctx, spec, games, runID)
		status, reason := "complete", ""
		if scoreErr != nil {
			status, reason = "failed", scoreErr.Error()
		}
		if err := p.Store.FinishScoreRun(ctx, runID, len(rows), status, reason); err != nil {
			return total, err
		}
		if scoreErr != nil {
			return total, scoreErr
		}
		if len(rows) > 0 {
			if err := p.Store.SupersedeScores(ctx, rows); err != nil {
				return total, err
			}
		}
		total += len(rows)
	}
	return total, nil
}

func (p *Pipeline) lookup(key core.SelectionKey) (*core.MarketOdds, error) {
	return p.Store.BestAvailableOdds(context.Background(), key)
}

// scoreMarket enumerates the scoring population for one market spec
// across every game on the date and dispatches to the matching model
// function. Lines for line markets come from impliedLine(projection),
// not from posted odds rows, so a selection is scored whether or not a
// line has been posted; odds are only looked up for pricing.
func (p *Pipeline) scoreMarket(ctx context.Context, spec market.Spec, games []core.Game, runID int64) ([]core.ModelScore, error) {
	var out []core.ModelScore
	lookup := models.OddsLookup(p.lookup)

	for _, g := range games {
		switch spec.Market {
		case core.MarketHR, core.MarketHits1P, core.MarketHitsLine, core.MarketTotalBasesLn:
			home, away, err := p.gameLineups(ctx, g)
			if err != nil {
				continue
			}
			for _, slot := range append(home, away...) {
				bf, err := p.Store.BatterDailyFeaturesFor(ctx, g.ID, slot.PlayerID)
				if err != nil {
					continue
				}
				out = append(out, p.scoreBatter(spec, runID, *bf, lookup)...)
			}

		case core.MarketK, core.MarketOutsRecorded:
			for _, pid := range []*core.PlayerID{g.ProbableHomePitcher, g.ProbableAwayPitcher} {
				if pid == nil {
					continue
				}
				pf, err := p.Store.PitcherDailyFeaturesFor(ctx, g.ID, *pid)
				if err != nil {
					continue
				}
				out = append(out, p.scorePitcher(spec, runID, *pf, lookup)...)
			}

		case core.MarketMoneyline, core.MarketTotal, core.MarketF5Moneyline, core.MarketF5Total, core.MarketTeamTotal:
			rows, err := p.scoreGame(ctx, spec, g, runID, lookup)
			if err != nil {
				continue
			}
			out = append(out, rows...)
		}
	}
	return out, nil
}

func (p *Pipeline) scoreBatter(spec market.Spec, runID int64, bf core.BatterDailyFeatures, lookup models.OddsLookup) []core.ModelScore {
	switch spec.Market {
	case core.MarketHR:
		return []core.ModelScore{models.ScoreHR(runID, spec, bf, leagueAvgHRRate, "", 0, 0, lookup)}
	case core.MarketHits1P:
		return []core.ModelScore{models.ScoreHits1Plus(runID, spec, bf, leagueAvgKRate, lookup)}
	case core.MarketHitsLine:
		line := impliedLine(bf.HitRateL15 * bf.PAPerGameL15)
		return []core.ModelScore{
			models.ScoreHitsLine(runID, spec, bf, line, "OVER", lookup),
			models.ScoreHitsLine(runID, spec, bf, line, "UNDER", lookup),
		}
	case core.MarketTotalBasesLn:
		line := impliedLine((1 + bf.ISOL30*3) * bf.HitRateL15 * bf.PAPerGameL15)
		return []core.ModelScore{
			models.ScoreTotalBases(runID, spec, bf, leagueAvgHardHit, line, "OVER", lookup),
			models.ScoreTotalBases(runID, spec, bf, leagueAvgHardHit, line, "UNDER", lookup),
		}
	}
	return nil
}

func (p *Pipeline) scorePitcher(spec market.Spec, runID int64, pf core.PitcherDailyFeatures, lookup models.OddsLookup) []core.ModelScore {
	switch spec.Market {
	case core.MarketK:
		line := impliedLine(pf.KRateL10 * pf.OutsPerStartL5 / 3 * 4.3)
		return []core.ModelScore{
			models.ScoreStrikeouts(runID, spec, pf, line, "OVER", lookup),
			models.ScoreStrikeouts(runID, spec, pf, line, "UNDER", lookup),
		}
	case core.MarketOutsRecorded:
		line := impliedLine(pf.OutsPerStartL5)
		starterConfidence := 1.0
		if !pf.IsProbableStarter {
			starterConfidence = 0.3
		}
		return []core.ModelScore{
			models.ScoreOutsRecorded(runID, spec, pf, starterConfidence, line, "OVER", lookup),
			models.ScoreOutsRecorded(runID, spec, pf, starterConfidence, line, "UNDER", lookup),
		}
	}
	return nil
}

func (p *Pipeline) scoreGame(ctx context.Context, spec market.Spec, g core.Game, runID int64, lookup models.OddsLookup) ([]core.ModelScore, error) {
	home, err := p.loadOrBuildTeamFeatures(ctx, g.HomeTeam, g.ID, g.Date)
	if err != nil {
		return nil, err
	}
	away, err := p.loadOrBuildTeamFeatures(ctx, g.AwayTeam, g.ID, g.Date)
	if err != nil {
		return nil, err
	}
	gctx, err := features.BuildGameContextFeatures(ctx, p.Weather, p.MLB, g.ID, g.Date, g.VenueID, false, false, false, g.IsFinal())
	if err != nil {
		return nil, err
	}

	homeSPQuality, awaySPQuality := spQuality(ctx, p.Store, g.ProbableHomePitcher, g.ID), spQuality(ctx, p.Store, g.ProbableAwayPitcher, g.ID)

	switch spec.Market {
	case core.MarketMoneyline:
		return models.ScoreMoneyline(runID, spec, g.ID, home, away, gctx, homeSPQuality, awaySPQuality, lookup), nil
	case core.MarketF5Moneyline:
		return models.ScoreF5Moneyline(runID, spec, g.ID, home, away, gctx, homeSPQuality, awaySPQuality, lookup), nil
	case core.MarketTotal:
		line := impliedLine(home.RunsPerGameL15 + away.RunsPerGameL15)
		return []core.ModelScore{
			models.ScoreTotal(runID, spec, g.ID, home, away, gctx, 0, line, "OVER", lookup),
			models.ScoreTotal(runID, spec, g.ID, home, away, gctx, 0, line, "UNDER", lookup),
		}, nil
	case core.MarketF5Total:
		line := impliedLine((home.RunsPerGameL15 + away.RunsPerGameL15) * 5 / 9)
		return []core.ModelScore{
			models.ScoreF5Total(runID, spec, g.ID, home, away, gctx, line, "OVER", lookup),
			models.ScoreF5Total(runID, spec, g.ID, home, away, gctx, line, "UNDER", lookup),
		}, nil
	case core.MarketTeamTotal:
		homeLine := impliedLine((home.RunsPerGameL15 + away.RunsAllowedL15) / 2)
		awayLine := impliedLine((away.RunsPerGameL15 + home.RunsAllowedL15) / 2)
		return []core.ModelScore{
			models.ScoreTeamTotal(runID, spec, g.ID, g.HomeTeam, home, away, gctx, homeLine, "OVER", lookup),
			models.ScoreTeamTotal(runID, spec, g.ID, g.HomeTeam, home, away, gctx, homeLine, "UNDER", lookup),
			models.ScoreTeamTotal(runID, spec, g.ID, g.AwayTeam, away, home, gctx, awayLine, "OVER", lookup),
			models.ScoreTeamTotal(runID, spec, g.ID, g.AwayTeam, away, home, gctx, awayLine, "UNDER", lookup),
		}, nil
	}
	return nil, nil
}

func (p *Pipeline) loadOrBuildTeamFeatures(ctx context.Context, teamID core.TeamID, gameID core.GameID, d core.Date) (core.TeamDailyFeatures, error) {
	return p.buildTeamFeatures(ctx, teamID, gameID, d)
}

// spQuality is a single-number starter-quality proxy (higher is
// better), derived from the probable starter's ERA against league
// average, for the shared game-market sp_edge factor.
func spQuality(ctx context.Context, s *store.Store, pid *core.PlayerID, gameID core.GameID) float64 {
	if pid == nil {
		return 0
	}
	pf, err := s.PitcherDailyFeaturesFor(ctx, gameID, *pid)
	if err != nil || pf.ERAL10 == 0 {
		return 0
	}
	return (leagueAvgERA - pf.ERAL10) * 10
}

// impliedLine rounds a projection to the nearest half-point. It is the
// line every line market is scored against; posted sportsbook lines
// are not read in its place.
func impliedLine(projection float64) float64 {
	return float64(int(projection*2+0.5)) / 2
}
