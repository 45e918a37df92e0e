package features

import (
	"context"
	"time"

	"stormlightlabs.org/mlbedge/internal/core"
)

// TeamWindowInput is the set of events and results the team builder
// aggregates. Unlike batter/pitcher windows, this is computed from
// game-level results rather than pitch events, so callers supply the
// slice directly instead of going through eventStore.
type TeamWindowInput struct {
	RunsScored   []int
	RunsAllowed  []int
	BullpenEarnedRuns int
	BullpenOutsRecorded int
	Wins         int
	Games        int
	RestDays     int
}

// BuildTeamDailyFeatures aggregates a team's last-15-game results into
// its D-anchored feature row. The caller is responsible for assembling
// TeamWindowInput strictly from games with date < D — the builder
// itself does no filtering, since team results come from the games
// table rather than the no-lookahead-enforced pitch-event reads.
func BuildTeamDailyFeatures(teamID core.TeamID, gameID core.GameID, d core.Date, in TeamWindowInput) core.TeamDailyFeatures {
	f := core.TeamDailyFeatures{
		TeamID:   teamID,
		GameID:   gameID,
		GameDate: d,
		RestDays: in.RestDays,
		BuiltAt:  time.Now().UTC(),
	}

	if in.Games == 0 {
		return f
	}

	f.RunsPerGameL15 = average(in.RunsScored)
	f.RunsAllowedL15 = average(in.RunsAllowed)
	f.WinPctL15 = float64(in.Wins) / float64(in.Games)
	if in.BullpenOutsRecorded > 0 {
		f.BullpenERAL15 = float64(in.BullpenEarnedRuns) / (float64(in.BullpenOutsRecorded) / 27)
	}
	return f
}

func average(vals []int) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0
	for _, v := range vals {
		sum += v
	}
	return float64(sum) / float64(len(vals))
}
