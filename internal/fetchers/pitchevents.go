package fetchers

import (
	"context"
	"fmt"

	"stormlightlabs.org/mlbedge/internal/core"
)

type playsResponse struct {
	AllPlays []struct {
		AtBatIndex int `json:"atBatIndex"`
		About      struct {
			Inning      int  `json:"inning"`
			IsTopInning bool `json:"isTopInning"`
		} `json:"about"`
		Matchup struct {
			Batter struct {
				ID int64 `json:"id"`
			} `json:"batter"`
			Pitcher struct {
				ID int64 `json:"id"`
			} `json:"pitcher"`
			BatSide struct {
				Code string `json:"code"`
			} `json:"batSide"`
			PitchHand struct {
				Code string `json:"code"`
			} `json:"pitchHand"`
		} `json:"matchup"`
		Result struct {
			Event string `json:"event"`
			RBI   int    `json:"rbi"`
			IsOut bool   `json:"isOut"`
		} `json:"result"`
		PlayEvents []struct {
			IsPitch bool `json:"isPitch"`
			Count   struct {
				Outs int `json:"outs"`
			} `json:"count"`
			Details struct {
				Code    string `json:"code"`
				IsBall  bool   `json:"isBall"`
				IsInPlay bool  `json:"isInPlay"`
				Type    struct {
					Code string `json:"code"`
				} `json:"type"`
			} `json:"details"`
			PitchData struct {
				StartSpeed float64 `json:"startSpeed"`
				Zone       int     `json:"zone"`
			} `json:"pitchData"`
			HitData struct {
				LaunchSpeed float64 `json:"launchSpeed"`
				LaunchAngle float64 `json:"launchAngle"`
				Trajectory  string  `json:"trajectory"`
			} `json:"hitData"`
		} `json:"playEvents"`
	} `json:"allPlays"`
}

// PitchEventFetcher adapts the play-by-play feed into PitchEvent rows.
// Per-day mode hits the live game feed once per game; bulk mode is the
// historical-backfill path and is expected to be driven by the
// orchestrator's own date-chunking, not by this fetcher.
type PitchEventFetcher struct {
	client *Client
}

func NewPitchEventFetcher(client *Client) *PitchEventFetcher {
	return &PitchEventFetcher{client: client}
}

// PerDay fetches every plate appearance recorded so far for one game.
func (f *PitchEventFetcher) PerDay(ctx context.Context, gameID core.GameID, d core.Date) ([]core.PitchEvent, error) {
	url := fmt.Sprintf("%s.1/game/%s/playByPlay", mlbStatsBaseURL, string(gameID))

	var resp playsResponse
	if err := f.client.getJSON(ctx, "pitchevents.perday", url, &resp); err != nil {
		if core.IsTransientFetch(err) {
			return nil, nil
		}
		return nil, err
	}
	return convertPlays(gameID, d, resp), nil
}

// Bulk fetches pitch events for every game in gameIDs, returning an
// in-memory table the caller partitions by date. Historical backfill
// calls this once per chunk, but it issues one PerDay upstream call per
// game, so the number of upstream calls grows with the chunk's game
// count.
func (f *PitchEventFetcher) Bulk(ctx context.Context, gameIDs map[core.GameID]core.Date) ([]core.PitchEvent, error) {
	var all []core.PitchEvent
	for gameID, d := range gameIDs {
		events, err := f.PerDay(ctx, gameID, d)
		if err != nil {
			return nil, err
		}
		all = append(all, events...)
	}
	return all, nil
}

func convertPlays(gameID core.GameID, d core.Date, resp playsResponse) []core.PitchEvent {
	var out []core.PitchEvent
	matchupCount := make(map[[2]core.PlayerID]int)

	for _, play := range resp.AllPlays {
		batterID := core.PlayerID(fmt.Sprintf("%d", play.Matchup.Batter.ID))
		pitcherID := core.PlayerID(fmt.Sprintf("%d", play.Matchup.Pitcher.ID))
		key := [2]core.PlayerID{pitcherID, batterID}
		matchupCount[key]++

		lastOuts := 0
		for _, pe := range play.PlayEvents {
			if !pe.IsPitch {
				continue
			}
			lastOuts = pe.Count.Outs
			e := core.PitchEvent{
				GameID:            gameID,
				Date:              d,
				AtBatIndex:        play.AtBatIndex,
				PitchIndex:        len(out),
				BatterID:          batterID,
				PitcherID:         pitcherID,
				Inning:            play.About.Inning,
				IsTopInning:       play.About.IsTopInning,
				Outs:              lastOuts,
				EventType:         "pitch",
				BatterHand:        handednessFromCode(play.Matchup.BatSide.Code),
				PitcherHand:       handednessFromCode(play.Matchup.PitchHand.Code),
				TimesThroughOrder: matchupCount[key],
				PitchType:         pe.Details.Type.Code,
			}
			if pe.PitchData.StartSpeed > 0 {
				v := pe.PitchData.StartSpeed
				e.PitchVelocityMPH = &v
			}
			e.IsSwing = isSwingCode(pe.Details.Code)
			e.IsWhiff = pe.Details.Code == "S" || pe.Details.Code == "SW"
			inZone := pe.PitchData.Zone >= 1 && pe.PitchData.Zone <= 9
			e.IsChase = e.IsSwing && pe.PitchData.Zone > 0 && !inZone

			if pe.Details.IsInPlay {
				e.BattedBallType = battedBallTypeFor(pe.HitData.Trajectory)
				if pe.HitData.LaunchSpeed > 0 {
					v := pe.HitData.LaunchSpeed
					e.ExitVelocityMPH = &v
				}
				if pe.HitData.Trajectory != "" {
					v := pe.HitData.LaunchAngle
					e.LaunchAngleDeg = &v
				}
			}
			out = append(out, e)
		}
		if len(play.PlayEvents) > 0 {
			last := &out[len(out)-1]
			last.IsPlateAppearanceEnd = true
			last.IsAtBatEnd = true
			last.EventType = play.Result.Event
			last.RBIOnPlay = play.Result.RBI
			last.TotalBasesOnPlay = totalBasesFor(play.Result.Event)
		}
	}
	return out
}

func handednessFromCode(code string) core.Handedness {
	switch code {
	case "L":
		return core.HandednessLeft
	case "R":
		return core.HandednessRight
	case "S", "B":
		return core.HandednessSwitch
	default:
		return ""
	}
}

// isSwingCode reports whether a pitch result code represents a batter
// swing: swinging strike, foul, or a ball put in play. Takes (balls and
// called strikes) are not swings.
func isSwingCode(code string) bool {
	switch code {
	case "S", "SW", "F", "FT", "FO", "D", "E", "X":
		return true
	default:
		return false
	}
}

func battedBallTypeFor(trajectory string) string {
	switch trajectory {
	case "fly_ball":
		return "FB"
	case "line_drive":
		return "LD"
	case "ground_ball":
		return "GB"
	case "popup":
		return "PU"
	default:
		return ""
	}
}

func totalBasesFor(event string) int {
	switch event {
	case "Single":
		return 1
	case "Double":
		return 2
	case "Triple":
		return 3
	case "Home Run":
		return 4
	default:
		return 0
	}
}
