package store

import (
	"context"
	"database/sql"

	"stormlightlabs.org/mlbedge/internal/core"
)

// UpsertMarketOutcomes writes settled outcomes, keyed by selection_key.
// Callers are expected to gate this on the owning game's Status being
// final or cancelled; the store does not enforce that ordering itself.
func (s *Store) UpsertMarketOutcomes(ctx context.Context, outcomes []core.MarketOutcome) error {
	columns := []string{"selection_key", "game_id", "market", "outcome_value", "settled_at"}
	rows := make([][]any, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, []any{string(o.SelectionKey), string(o.GameID), string(o.Market), o.OutcomeValue, o.SettledAt})
	}
	return s.BatchUpsert(ctx, "market_outcomes", columns, []string{"selection_key"}, columns[1:], rows)
}

// OutcomeForSelection loads the settled outcome for a selection key, or
// core.NotFoundError if the market hasn't settled yet.
func (s *Store) OutcomeForSelection(ctx context.Context, key core.SelectionKey) (*core.MarketOutcome, error) {
	query := s.Bind(`SELECT selection_key, game_id, market, outcome_value, settled_at FROM market_outcomes WHERE selection_key = $1`)
	row := s.QueryRowContext(ctx, query, string(key))

	var o core.MarketOutcome
	var selectionKey, gameID, market string
	if err := row.Scan(&selectionKey, &gameID, &market, &o.OutcomeValue, &o.SettledAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, core.NewNotFoundError("market_outcome", string(key))
		}
		return nil, err
	}
	o.SelectionKey, o.GameID, o.Market = core.SelectionKey(selectionKey), core.GameID(gameID), core.Market(market)
	return &o, nil
}
