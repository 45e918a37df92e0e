package orchestrate

import (
	"context"
	"fmt"

	"stormlightlabs.org/mlbedge/internal/core"
	"stormlightlabs.org/mlbedge/internal/market"
)

// RescoreOnLineup rebuilds features and re-scores every lineup-sensitive
// market for date. Triggered separately from the daily run because
// lineups for later games often confirm hours after the first Run
// already scored the day with unconfirmed slots — this is the
// catch-up pass that supersedes those early rows once real lineups are
// known.
func (p *Pipeline) RescoreOnLineup(ctx context.Context, date core.Date) (int, error) {
	if err := p.BuildFeatures(ctx, date); err != nil {
		return 0, fmt.Errorf("rebuild features: %w", err)
	}

	total := 0
	for _, spec := range p.Registry.All() {
		if spec.LineupRequirement == market.LineupNotRequired {
			continue
		}
		n, err := p.Score(ctx, date, spec.Market)
		if err != nil {
			return total, fmt.Errorf("rescore %s: %w", spec.Market, err)
		}
		total += n
	}
	return total, nil
}
