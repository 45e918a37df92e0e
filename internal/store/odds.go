package store

import (
	"context"
	"database/sql"
	"time"

	"stormlightlabs.org/mlbedge/internal/core"
)

// UpsertMarketOdds writes a batch of freshly fetched odds rows, then
// recomputes is_best_available for every selection key the batch
// touched — one transaction per affected selection, keeping the
// "exactly one best-available row per selection" invariant atomic.
func (s *Store) UpsertMarketOdds(ctx context.Context, rows []core.MarketOdds) error {
	if len(rows) == 0 {
		return nil
	}

	columns := []string{
		"market", "game_id", "selection_key", "side", "line", "book", "american_odds",
		"decimal_odds", "implied_prob", "fetched_at", "is_active", "is_best_available",
	}
	values := make([][]any, 0, len(rows))
	selections := map[core.SelectionKey]struct{}{}
	for _, r := range rows {
		values = append(values, []any{
			string(r.Market), string(r.GameID), string(r.SelectionKey), string(r.Side), r.Line, r.Book,
			r.AmericanOdds, r.DecimalOdds, r.ImpliedProb, r.FetchedAt, r.IsActive, false,
		})
		selections[r.SelectionKey] = struct{}{}
	}

	if err := s.BatchUpsert(ctx, "market_odds", columns, []string{"market", "game_id", "selection_key", "book", "fetched_at"}, columns[3:], values); err != nil {
		return err
	}

	for key := range selections {
		if err := s.recomputeBestAvailable(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// recomputeBestAvailable sets is_best_available=true on the active row
// with the lowest implied probability for a selection key and false on
// every other active row, in one transaction.
func (s *Store) recomputeBestAvailable(ctx context.Context, key core.SelectionKey) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		clearQ := s.Bind(`UPDATE market_odds SET is_best_available = false WHERE selection_key = $1`)
		if _, err := tx.ExecContext(ctx, clearQ, string(key)); err != nil {
			return err
		}

		setQ := s.Bind(`
			UPDATE market_odds SET is_best_available = true
			WHERE id = (
				SELECT id FROM market_odds
				WHERE selection_key = $1 AND is_active = true
				ORDER BY implied_prob ASC, fetched_at DESC LIMIT 1
			)
		`)
		_, err := tx.ExecContext(ctx, setQ, string(key))
		return err
	})
}

// BestAvailableOdds loads the current best-priced active row for a
// selection key, or core.DataMissingError if no odds have been posted
// yet — callers score the row without odds and flag it, they never fail.
func (s *Store) BestAvailableOdds(ctx context.Context, key core.SelectionKey) (*core.MarketOdds, error) {
	query := s.Bind(`
		SELECT market, game_id, selection_key, side, line, book, american_odds, decimal_odds,
		       implied_prob, fetched_at, is_active, is_best_available
		FROM market_odds WHERE selection_key = $1 AND is_best_available = true AND is_active = true
		LIMIT 1
	`)
	row := s.QueryRowContext(ctx, query, string(key))

	var o core.MarketOdds
	var market, gameID, selectionKey, side, book string
	var line sql.NullFloat64
	var fetchedAt time.Time
	if err := row.Scan(&market, &gameID, &selectionKey, &side, &line, &book, &o.AmericanOdds, &o.DecimalOdds,
		&o.ImpliedProb, &fetchedAt, &o.IsActive, &o.IsBestAvailable); err != nil {
		if err == sql.ErrNoRows {
			return nil, core.NewDataMissingError("market_odds", "no best-available row for "+string(key))
		}
		return nil, err
	}
	o.Market, o.GameID, o.SelectionKey, o.Side, o.Book, o.FetchedAt = core.Market(market), core.GameID(gameID), core.SelectionKey(selectionKey), core.Side(side), book, fetchedAt
	if line.Valid {
		v := line.Float64
		o.Line = &v
	}
	return &o, nil
}

// LatestPregameOdds loads the last odds snapshot recorded strictly
// before commenceTime, for the "latest_pregame" closing-line policy.
func (s *Store) LatestPregameOdds(ctx context.Context, key core.SelectionKey, commenceTime time.Time) (*core.MarketOdds, error) {
	query := s.Bind(`
		SELECT market, game_id, selection_key, side, line, book, american_odds, decimal_odds,
		       implied_prob, fetched_at, is_active, is_best_available
		FROM market_odds WHERE selection_key = $1 AND fetched_at < $2
		ORDER BY fetched_at DESC LIMIT 1
	`)
	row := s.QueryRowContext(ctx, query, string(key), commenceTime)

	var o core.MarketOdds
	var market, gameID, selectionKey, side, book string
	var line sql.NullFloat64
	var fetchedAt time.Time
	if err := row.Scan(&market, &gameID, &selectionKey, &side, &line, &book, &o.AmericanOdds, &o.DecimalOdds,
		&o.ImpliedProb, &fetchedAt, &o.IsActive, &o.IsBestAvailable); err != nil {
		if err == sql.ErrNoRows {
			return nil, core.NewDataMissingError("market_odds", "no pregame snapshot for "+string(key))
		}
		return nil, err
	}
	o.Market, o.GameID, o.SelectionKey, o.Side, o.Book, o.FetchedAt = core.Market(market), core.GameID(gameID), core.SelectionKey(selectionKey), core.Side(side), book, fetchedAt
	if line.Valid {
		v := line.Float64
		o.Line = &v
	}
	return &o, nil
}
