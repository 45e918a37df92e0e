package store

import (
	"context"
	"database/sql"
	"time"

	"stormlightlabs.org/mlbedge/internal/core"
)

// PlaceBet records a new wager against a scored selection at 1-unit
// stake convention unless the caller overrides StakeUnits.
func (s *Store) PlaceBet(ctx context.Context, bet core.Bet) (int64, error) {
	query := s.Bind(`
		INSERT INTO bets (model_score_id, selection_key, stake_units, open_american, open_implied,
		                   close_implied, clv, settlement, profit_units, placed_at, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`)
	res, err := s.ExecContext(ctx, query, bet.ModelScoreID, string(bet.SelectionKey), bet.StakeUnits,
		bet.OpenAmerican, bet.OpenImplied, bet.CloseImplied, bet.CLV, bet.Settlement, bet.ProfitUnits,
		bet.PlacedAt, bet.SettledAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecordClosingLine persists the closing-line probability captured for a
// selection, per the configured closing-line policy.
func (s *Store) RecordClosingLine(ctx context.Context, line core.ClosingLine) error {
	columns := []string{"selection_key", "game_id", "implied_prob", "captured_at", "policy"}
	return s.BatchUpsert(ctx, "closing_lines", columns, []string{"selection_key"}, columns[1:],
		[][]any{{string(line.SelectionKey), string(line.GameID), line.ImpliedProb, line.CapturedAt, line.Policy}})
}

// ClosingLineFor loads the captured closing line for a selection, or
// core.NotFoundError if none has been captured.
func (s *Store) ClosingLineFor(ctx context.Context, key core.SelectionKey) (*core.ClosingLine, error) {
	query := s.Bind(`SELECT selection_key, game_id, implied_prob, captured_at, policy FROM closing_lines WHERE selection_key = $1`)
	row := s.QueryRowContext(ctx, query, string(key))

	var cl core.ClosingLine
	var selectionKey, gameID string
	if err := row.Scan(&selectionKey, &gameID, &cl.ImpliedProb, &cl.CapturedAt, &cl.Policy); err != nil {
		if err == sql.ErrNoRows {
			return nil, core.NewNotFoundError("closing_line", string(key))
		}
		return nil, err
	}
	cl.SelectionKey, cl.GameID = core.SelectionKey(selectionKey), core.GameID(gameID)
	return &cl, nil
}

// SettleBet writes the CLV and settlement outcome for a placed bet once
// its market has graded.
func (s *Store) SettleBet(ctx context.Context, betID int64, closeImplied, clv, profitUnits float64, settlement string, settledAt any) error {
	query := s.Bind(`UPDATE bets SET close_implied = $1, clv = $2, profit_units = $3, settlement = $4, settled_at = $5 WHERE id = $6`)
	_, err := s.ExecContext(ctx, query, closeImplied, clv, profitUnits, settlement, settledAt, betID)
	return err
}

// BetsPlacedBetween loads every bet placed in [start, end], newest
// first, for the `bets list` CLI command.
func (s *Store) BetsPlacedBetween(ctx context.Context, start, end time.Time) ([]core.Bet, error) {
	query := s.Bind(`
		SELECT id, model_score_id, selection_key, stake_units, open_american, open_implied, close_implied,
		       clv, settlement, profit_units, placed_at, settled_at
		FROM bets WHERE placed_at >= $1 AND placed_at <= $2 ORDER BY placed_at DESC
	`)
	rows, err := s.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBets(rows)
}

// BetsForSelection loads every recorded bet against a selection key.
func (s *Store) BetsForSelection(ctx context.Context, key core.SelectionKey) ([]core.Bet, error) {
	query := s.Bind(`
		SELECT id, model_score_id, selection_key, stake_units, open_american, open_implied, close_implied,
		       clv, settlement, profit_units, placed_at, settled_at
		FROM bets WHERE selection_key = $1 ORDER BY placed_at
	`)
	rows, err := s.QueryContext(ctx, query, string(key))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBets(rows)
}

func scanBets(rows *sql.Rows) ([]core.Bet, error) {
	var out []core.Bet
	for rows.Next() {
		var b core.Bet
		var selectionKey string
		var closeImplied, clv, profitUnits sql.NullFloat64
		var settledAt sql.NullTime
		if err := rows.Scan(&b.ID, &b.ModelScoreID, &selectionKey, &b.StakeUnits, &b.OpenAmerican, &b.OpenImplied,
			&closeImplied, &clv, &b.Settlement, &profitUnits, &b.PlacedAt, &settledAt); err != nil {
			return nil, err
		}
		b.SelectionKey = core.SelectionKey(selectionKey)
		if closeImplied.Valid {
			v := closeImplied.Float64
			b.CloseImplied = &v
		}
		if clv.Valid {
			v := clv.Float64
			b.CLV = &v
		}
		if profitUnits.Valid {
			v := profitUnits.Float64
			b.ProfitUnits = &v
		}
		if settledAt.Valid {
			v := settledAt.Time
			b.SettledAt = &v
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
