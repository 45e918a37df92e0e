package oddsnorm

import (
	"context"
	"sort"

	"stormlightlabs.org/mlbedge/internal/core"
)

// BestAvailable marks, among odds rows sharing a selection key, the one
// with the highest implied payoff (lowest implied probability) as
// IsBestAvailable. Only IsActive rows are considered — is_active is a
// fetch-provenance flag, not a modeling input, and never leaks past this
// boundary into market scorers.
func BestAvailable(rows []core.MarketOdds) []core.MarketOdds {
	bySelection := make(map[core.SelectionKey][]int)
	for i, r := range rows {
		if !r.IsActive {
			continue
		}
		bySelection[r.SelectionKey] = append(bySelection[r.SelectionKey], i)
	}

	out := make([]core.MarketOdds, len(rows))
	copy(out, rows)
	for _, idxs := range bySelection {
		sort.Slice(idxs, func(a, b int) bool {
			return out[idxs[a]].ImpliedProb < out[idxs[b]].ImpliedProb
		})
		for n, i := range idxs {
			out[i].IsBestAvailable = n == 0
		}
	}
	return out
}

// SelectionCache is the narrow interface an incremental best-available
// recompute needs from a Redis-backed cache, letting the odds refresh path recompute
// is_best_available for only the selections a new batch actually touched
// rather than rescanning the whole table — the same incremental idea as
// a book-price delta detector, applied to the best-available marker.
type SelectionCache interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any) error
}

// AffectedSelections returns the distinct selection keys present in a
// freshly fetched odds batch, the unit of work for the single-statement
// is_best_available recomputation described for odds refresh.
func AffectedSelections(batch []core.MarketOdds) []core.SelectionKey {
	seen := make(map[core.SelectionKey]struct{})
	var keys []core.SelectionKey
	for _, r := range batch {
		if _, ok := seen[r.SelectionKey]; !ok {
			seen[r.SelectionKey] = struct{}{}
			keys = append(keys, r.SelectionKey)
		}
	}
	return keys
}
