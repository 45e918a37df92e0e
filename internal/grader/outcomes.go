// Package grader resolves scored selections against realized outcomes,
// settles bets, and captures closing-line value once a game reaches a
// terminal status.
package grader

import (
	"context"
	"time"

	"stormlightlabs.org/mlbedge/internal/core"
)

// gameStore is the subset of *store.Store outcome extraction reads
// from.
type gameStore interface {
	GameByID(ctx context.Context, id core.GameID) (*core.Game, error)
	ActiveScoresForGame(ctx context.Context, gameID core.GameID) ([]core.ModelScore, error)
}

// BatterGameLine is one batter's realized counting stats for a game,
// the raw material outcome extraction needs for batter markets.
type BatterGameLine struct {
	BatterID   core.PlayerID
	Hits       int
	HomeRuns   int
	TotalBases int
}

// PitcherGameLine is one pitcher's realized counting stats for a game.
type PitcherGameLine struct {
	PitcherID    core.PlayerID
	Strikeouts   int
	OutsRecorded int
}

// F5Line is the realized through-five-innings run tally for one game,
// split by half-inning: top half (away bats) credits AwayRuns, bottom
// half (home bats) credits HomeRuns. Known is false when no pitch
// events were recorded for the game, distinguishing an unscored F5
// game from a genuine 0-0 one.
type F5Line struct {
	HomeRuns int
	AwayRuns int
	Known    bool
}

// ExtractOutcomes resolves every active scored selection for a final
// game into a settled core.MarketOutcome. Only gated on game status
// being final or cancelled — grading a live game is an invariant
// violation the caller must never attempt.
func ExtractOutcomes(ctx context.Context, s gameStore, gameID core.GameID, batters []BatterGameLine, pitchers []PitcherGameLine, f5 F5Line) ([]core.MarketOutcome, error) {
	game, err := s.GameByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game.Status != "final" && game.Status != "cancelled" {
		return nil, core.NewInvariantError("grade_requires_final_game", "game "+string(gameID)+" is not final")
	}

	scores, err := s.ActiveScoresForGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	batterLines := make(map[core.PlayerID]BatterGameLine, len(batters))
	for _, b := range batters {
		batterLines[b.BatterID] = b
	}
	pitcherLines := make(map[core.PlayerID]PitcherGameLine, len(pitchers))
	for _, p := range pitchers {
		pitcherLines[p.PitcherID] = p
	}

	settledAt := time.Now().UTC()
	var outcomes []core.MarketOutcome
	for _, sc := range scores {
		value, ok := extractValue(sc, game, batterLines, pitcherLines, f5)
		if !ok {
			continue
		}
		outcomes = append(outcomes, core.MarketOutcome{
			GameID: gameID, Market: sc.Market, SelectionKey: sc.SelectionKey,
			OutcomeValue: value, SettledAt: settledAt,
		})
	}
	return outcomes, nil
}

func extractValue(sc core.ModelScore, game *core.Game, batters map[core.PlayerID]BatterGameLine, pitchers map[core.PlayerID]PitcherGameLine, f5 F5Line) (float64, bool) {
	entityID := entityIDFromKey(sc.SelectionKey)

	switch sc.Market {
	case core.MarketHR:
		b, ok := batters[core.PlayerID(entityID)]
		if !ok {
			return 0, false
		}
		return boolValue(b.HomeRuns > 0), true

	case core.MarketHits1P:
		b, ok := batters[core.PlayerID(entityID)]
		if !ok {
			return 0, false
		}
		return boolValue(b.Hits > 0), true

	case core.MarketHitsLine:
		b, ok := batters[core.PlayerID(entityID)]
		if !ok {
			return 0, false
		}
		return float64(b.Hits), true

	case core.MarketTotalBasesLn:
		b, ok := batters[core.PlayerID(entityID)]
		if !ok {
			return 0, false
		}
		return float64(b.TotalBases), true

	case core.MarketK:
		p, ok := pitchers[core.PlayerID(entityID)]
		if !ok {
			return 0, false
		}
		return float64(p.Strikeouts), true

	case core.MarketOutsRecorded:
		p, ok := pitchers[core.PlayerID(entityID)]
		if !ok {
			return 0, false
		}
		return float64(p.OutsRecorded), true

	case core.MarketMoneyline:
		if game.FinalHomeRuns == nil || game.FinalAwayRuns == nil {
			return 0, false
		}
		homeWon := *game.FinalHomeRuns > *game.FinalAwayRuns
		if sc.Side == "HOME" {
			return boolValue(homeWon), true
		}
		return boolValue(!homeWon), true

	case core.MarketF5Moneyline:
		if !f5.Known {
			return 0, false
		}
		homeWon := f5.HomeRuns > f5.AwayRuns
		if sc.Side == "HOME" {
			return boolValue(homeWon), true
		}
		return boolValue(!homeWon), true

	case core.MarketTotal:
		if game.FinalHomeRuns == nil || game.FinalAwayRuns == nil {
			return 0, false
		}
		return float64(*game.FinalHomeRuns + *game.FinalAwayRuns), true

	case core.MarketF5Total:
		if !f5.Known {
			return 0, false
		}
		return float64(f5.HomeRuns + f5.AwayRuns), true

	case core.MarketTeamTotal:
		if game.FinalHomeRuns == nil || game.FinalAwayRuns == nil {
			return 0, false
		}
		if entityID == string(game.HomeTeam) {
			return float64(*game.FinalHomeRuns), true
		}
		return float64(*game.FinalAwayRuns), true

	default:
		return 0, false
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// entityIDFromKey pulls the entity id out of a selection_key of the
// shape "MARKET|kind:id[...]" — the one piece of parsing outcome
// extraction needs back out of the otherwise-opaque join key.
func entityIDFromKey(key core.SelectionKey) string {
	s := string(key)
	for i := 0; i < len(s); i++ {
		if s[i] == '|' {
			rest := s[i+1:]
			for j := 0; j < len(rest); j++ {
				if rest[j] == '|' {
					rest = rest[:j]
					break
				}
			}
			for j := 0; j < len(rest); j++ {
				if rest[j] == ':' {
					return rest[j+1:]
				}
			}
			return rest
		}
	}
	return ""
}
