package fetchers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"stormlightlabs.org/mlbedge/internal/core"
)

const mlbStatsBaseURL = "https://statsapi.mlb.com/api/v1"

// MLBStatsFetcher adapts the MLB Stats API into schedule, roster,
// lineup, and umpire records. One client, one upstream, four shapes of
// record — the catalog mirrors the source's own route grouping.
type MLBStatsFetcher struct {
	client *Client
}

func NewMLBStatsFetcher(client *Client) *MLBStatsFetcher {
	return &MLBStatsFetcher{client: client}
}

type scheduleResponse struct {
	Dates []struct {
		Date  string `json:"date"`
		Games []struct {
			GamePk       int64  `json:"gamePk"`
			GameNumber   int    `json:"gameNumber"`
			DoubleHeader string `json:"doubleHeader"`
			Status       struct {
				DetailedState string `json:"detailedState"`
			} `json:"status"`
			Teams struct {
				Home struct {
					Team struct {
						ID int64 `json:"id"`
					} `json:"team"`
				} `json:"home"`
				Away struct {
					Team struct {
						ID int64 `json:"id"`
					} `json:"away"`
				} `json:"away"`
			} `json:"teams"`
			Venue struct {
				ID int64 `json:"id"`
			} `json:"venue"`
		} `json:"games"`
	} `json:"dates"`
}

// Schedule yields one Game per scheduled contest on d. Probable
// pitchers require a follow-up linescore call the Stats API does not
// embed in the schedule payload, so they are left nil here; the lineup
// fetch does not fill them in either.
func (f *MLBStatsFetcher) Schedule(ctx context.Context, d core.Date) ([]core.Game, error) {
	url := fmt.Sprintf("%s/schedule?sportId=1&date=%s", mlbStatsBaseURL, d.String())

	var resp scheduleResponse
	if err := f.client.getJSON(ctx, "mlbstats.schedule", url, &resp); err != nil {
		if core.IsTransientFetch(err) {
			return nil, core.NewDataMissingError("games", "schedule upstream unavailable after retries")
		}
		return nil, err
	}

	var games []core.Game
	for _, day := range resp.Dates {
		date, err := core.ParseDate(day.Date)
		if err != nil {
			continue
		}
		for _, g := range day.Games {
			games = append(games, core.Game{
				ID:             core.GameID(fmt.Sprintf("%d", g.GamePk)),
				Date:           date,
				HomeTeam:       core.TeamID(fmt.Sprintf("%d", g.Teams.Home.Team.ID)),
				AwayTeam:       core.TeamID(fmt.Sprintf("%d", g.Teams.Away.Team.ID)),
				VenueID:        fmt.Sprintf("%d", g.Venue.ID),
				IsDoubleheader: g.DoubleHeader == "Y" || g.DoubleHeader == "S",
				GameNumber:     g.GameNumber,
				Status:         normalizeGameStatus(g.Status.DetailedState),
				UpdatedAt:      time.Now().UTC(),
			})
		}
	}
	return games, nil
}

// normalizeGameStatus maps the Stats API's free-text detailed state
// into the forward-only vocabulary games.status is constrained to.
func normalizeGameStatus(detailed string) string {
	switch detailed {
	case "Final", "Game Over", "Completed Early":
		return "final"
	case "Postponed", "Cancelled", "Suspended: Rain":
		return "cancelled"
	case "In Progress", "Warmup", "Delayed Start":
		return "live"
	default:
		return "scheduled"
	}
}

type lineupResponse struct {
	Teams struct {
		Home struct {
			Players map[string]struct {
				Person struct {
					ID       int64  `json:"id"`
					FullName string `json:"fullName"`
				} `json:"person"`
				BattingOrder string `json:"battingOrder"`
			} `json:"players"`
		} `json:"home"`
		Away struct {
			Players map[string]struct {
				Person struct {
					ID       int64  `json:"id"`
					FullName string `json:"fullName"`
				} `json:"person"`
				BattingOrder string `json:"battingOrder"`
			} `json:"players"`
		} `json:"away"`
	} `json:"teams"`
}

// LineupSlot is one confirmed batting-order entry for a team in a game.
// Name carries the provider's display name, the only thing the odds
// feed's outcome strings can be matched against until a roster table
// with stored name mappings exists.
type LineupSlot struct {
	GameID   core.GameID
	TeamID   core.TeamID
	PlayerID core.PlayerID
	Name     string
	Slot     int
}

// Lineups fetches the confirmed boxscore lineup for a game. An empty
// result (rather than an error) means lineups have not posted yet —
// callers flag RiskFlagMissingLineup and move on.
func (f *MLBStatsFetcher) Lineups(ctx context.Context, gameID core.GameID) ([]LineupSlot, error) {
	url := fmt.Sprintf("%s.1/game/%s/boxscore", mlbStatsBaseURL, string(gameID))

	var resp lineupResponse
	if err := f.client.getJSON(ctx, "mlbstats.lineups", url, &resp); err != nil {
		if core.IsTransientFetch(err) {
			return nil, nil
		}
		return nil, err
	}

	var slots []LineupSlot
	slots = append(slots, extractLineup(gameID, "", resp.Teams.Home.Players)...)
	slots = append(slots, extractLineup(gameID, "", resp.Teams.Away.Players)...)
	return slots, nil
}

func extractLineup(gameID core.GameID, teamID core.TeamID, players map[string]struct {
	Person struct {
		ID       int64  `json:"id"`
		FullName string `json:"fullName"`
	} `json:"person"`
	BattingOrder string `json:"battingOrder"`
}) []LineupSlot {
	var out []LineupSlot
	for _, p := range players {
		if p.BattingOrder == "" {
			continue
		}
		raw, err := strconv.Atoi(p.BattingOrder)
		if err != nil {
			continue
		}
		slot := raw / 100
		if slot == 0 {
			continue
		}
		out = append(out, LineupSlot{
			GameID: gameID, TeamID: teamID, PlayerID: core.PlayerID(fmt.Sprintf("%d", p.Person.ID)),
			Name: p.Person.FullName, Slot: slot,
		})
	}
	return out
}

type umpireResponse struct {
	Officials []struct {
		Official struct {
			FullName string `json:"fullName"`
		} `json:"official"`
		OfficialType string `json:"officialType"`
	} `json:"officials"`
}

// HomePlateUmpire returns the home-plate umpire's name for a game, or
// "" if the assignment has not posted.
func (f *MLBStatsFetcher) HomePlateUmpire(ctx context.Context, gameID core.GameID) (string, error) {
	url := fmt.Sprintf("%s.1/game/%s/boxscore", mlbStatsBaseURL, string(gameID))

	var resp umpireResponse
	if err := f.client.getJSON(ctx, "mlbstats.umpires", url, &resp); err != nil {
		if core.IsTransientFetch(err) {
			return "", nil
		}
		return "", err
	}
	for _, o := range resp.Officials {
		if o.OfficialType == "Home Plate" {
			return o.Official.FullName, nil
		}
	}
	return "", nil
}
