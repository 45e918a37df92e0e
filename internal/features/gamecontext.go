package features

import (
	"context"
	"time"

	"stormlightlabs.org/mlbedge/internal/core"
	"stormlightlabs.org/mlbedge/internal/fetchers"
)

// BuildGameContextFeatures assembles the weather/lineup/umpire context
// row for a game. Missing weather never fails the build — it leaves
// the wind/temp fields nil so the caller attaches
// RiskFlagMissingWeather instead of aborting.
func BuildGameContextFeatures(ctx context.Context, weather *fetchers.WeatherFetcher, mlb *fetchers.MLBStatsFetcher, gameID core.GameID, d core.Date, venueID string, isDome bool, homeLineupConfirmed, awayLineupConfirmed, isFinal bool) (core.GameContextFeatures, error) {
	f := core.GameContextFeatures{
		GameID:               gameID,
		GameDate:             d,
		VenueID:              venueID,
		IsDome:               isDome,
		HomeLineupConfirmed:  homeLineupConfirmed,
		AwayLineupConfirmed:  awayLineupConfirmed,
		IsFinalContext:       isFinal,
		BuiltAt:              time.Now().UTC(),
	}

	if weather != nil {
		reading, err := weather.AtStadium(ctx, venueID, isDome)
		if err == nil && reading != nil {
			f.WindSpeedMPH, f.WindDirDeg, f.TempF = reading.WindSpeedMPH, reading.WindDirDeg, reading.TempF
		}
	}

	if mlb != nil {
		if name, err := mlb.HomePlateUmpire(ctx, gameID); err == nil && name != "" {
			f.UmpireID = &name
		}
	}

	return f, nil
}
