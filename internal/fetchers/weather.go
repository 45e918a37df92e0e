package fetchers

import (
	"context"
	"fmt"

	"stormlightlabs.org/mlbedge/internal/core"
)

// WeatherFetcher adapts a point-in-time weather provider into
// GameContextFeatures weather fields. Missing weather is a risk flag
// for the feature builder to attach, never a fetch error — historical
// backfill routinely has no weather for old dates.
type WeatherFetcher struct {
	client *Client
	apiKey string
}

func NewWeatherFetcher(client *Client, apiKey string) *WeatherFetcher {
	return &WeatherFetcher{client: client, apiKey: apiKey}
}

// StadiumWeather is the point-in-time reading at a stadium's location.
type StadiumWeather struct {
	WindSpeedMPH *float64
	WindDirDeg   *float64
	TempF        *float64
	IsDome       bool
}

type weatherResponse struct {
	Current struct {
		TempF     float64 `json:"temp_f"`
		WindMPH   float64 `json:"wind_mph"`
		WindDegree float64 `json:"wind_degree"`
	} `json:"current"`
}

// AtStadium fetches current conditions for a stadium, queried by its
// stadium id. domes
// return IsDome=true and nil wind/temp fields without calling out —
// there is nothing to measure.
func (f *WeatherFetcher) AtStadium(ctx context.Context, stadiumID string, isDome bool) (*StadiumWeather, error) {
	if isDome {
		return &StadiumWeather{IsDome: true}, nil
	}
	if f.apiKey == "" {
		return nil, core.NewDataMissingError("weather", "no api key configured")
	}

	url := fmt.Sprintf("https://api.weatherapi.com/v1/current.json?key=%s&q=stadium:%s", f.apiKey, stadiumID)

	var resp weatherResponse
	if err := f.client.getJSON(ctx, "weather", url, &resp); err != nil {
		if core.IsTransientFetch(err) {
			return nil, core.NewDataMissingError("weather", "upstream unavailable after retries")
		}
		return nil, err
	}

	temp, wind, dir := resp.Current.TempF, resp.Current.WindMPH, resp.Current.WindDegree
	return &StadiumWeather{TempF: &temp, WindSpeedMPH: &wind, WindDirDeg: &dir}, nil
}
