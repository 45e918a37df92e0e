package fetchers

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"stormlightlabs.org/mlbedge/internal/core"
	"stormlightlabs.org/mlbedge/internal/oddsnorm"
)

const oddsBaseURL = "https://api.the-odds-api.com/v4"

// AllSourceMarkets is the full set of the-odds-api market keys the
// normalizer recognizes, the default sourceMarkets passed to
// FetchEventOdds for a full refresh.
var AllSourceMarkets = []string{
	"batter_home_runs", "pitcher_strikeouts", "batter_hits_1+", "player_hits_over_under",
	"batter_total_bases", "pitcher_outs", "h2h", "totals", "h2h_1st_5_innings",
	"totals_1st_5_innings", "team_totals",
}

// OddsFetcher pulls sportsbook prices for MLB events and hands raw
// per-(book, selection, fetch_time) rows to the normalizer. It never
// computes implied probability or selection keys itself — that is the
// normalizer's job, kept in one place so every market is priced
// identically.
type OddsFetcher struct {
	client *Client
	apiKey string
}

func NewOddsFetcher(client *Client, apiKey string) *OddsFetcher {
	return &OddsFetcher{client: client, apiKey: apiKey}
}

type oddsEventResponse struct {
	ID           string `json:"id"`
	CommenceTime string `json:"commence_time"`
	Bookmakers   []struct {
		Key        string `json:"key"`
		LastUpdate string `json:"last_update"`
		Markets    []struct {
			Key      string `json:"key"`
			Outcomes []struct {
				Name  string   `json:"name"`
				Price int      `json:"price"`
				Point *float64 `json:"point"`
			} `json:"outcomes"`
		} `json:"markets"`
	} `json:"bookmakers"`
}

// FetchEventOdds retrieves odds for one event across the given source
// market keys. gameID and an entity-kind/id resolver are supplied by
// the caller because the odds API's outcome names (team or player
// names) must be mapped to internal IDs before a selection_key can be
// built; this fetcher returns normalized rows keyed by raw outcome name
// in Side so that mapping step stays outside the adapter.
func (f *OddsFetcher) FetchEventOdds(ctx context.Context, eventID string, gameID core.GameID, sourceMarkets []string, resolveEntity func(outcomeName string) (kind, id string)) ([]core.MarketOdds, error) {
	params := url.Values{}
	params.Set("apiKey", f.apiKey)
	params.Set("regions", "us")
	params.Set("markets", strings.Join(sourceMarkets, ","))
	params.Set("oddsFormat", "american")
	params.Set("dateFormat", "iso")

	fullURL := fmt.Sprintf("%s/sports/baseball_mlb/events/%s/odds?%s", oddsBaseURL, eventID, params.Encode())

	var resp oddsEventResponse
	if err := f.client.getJSON(ctx, "odds", fullURL, &resp); err != nil {
		if core.IsTransientFetch(err) {
			return nil, core.NewDataMissingError("market_odds", "odds upstream unavailable after retries")
		}
		return nil, err
	}

	fetchedAt := time.Now().UTC()
	var out []core.MarketOdds
	for _, bm := range resp.Bookmakers {
		for _, mkt := range bm.Markets {
			internalMarket, ok := oddsnorm.MapMarketKey(mkt.Key)
			if !ok {
				f.client.log.Warn("skipping unmapped odds market key", "key", mkt.Key)
				continue
			}
			for _, outcome := range mkt.Outcomes {
				kind, id := resolveEntity(outcome.Name)
				if id == "" {
					continue
				}
				side := core.Side(strings.ToUpper(outcome.Name))
				key := oddsnorm.BuildSelectionKey(internalMarket, kind, id, outcome.Point, side)

				out = append(out, core.MarketOdds{
					GameID:       gameID,
					Market:       internalMarket,
					SelectionKey: key,
					Side:         side,
					Line:         outcome.Point,
					Book:         bm.Key,
					AmericanOdds: outcome.Price,
					DecimalOdds:  oddsnorm.AmericanToDecimal(outcome.Price),
					ImpliedProb:  oddsnorm.AmericanToImplied(outcome.Price),
					FetchedAt:    fetchedAt,
					IsActive:     true,
				})
			}
		}
	}
	return out, nil
}
