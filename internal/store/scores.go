package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"stormlightlabs.org/mlbedge/internal/core"
)

// SupersedeScores writes a new score run's rows as the two-statement
// transaction the scoring path relies on for idempotent re-runs: every
// existing active row sharing a (market, selection_key) with a row in
// this batch is flipped to is_active=false, then the new rows are
// inserted, all inside one transaction. Scored rows are never updated
// in place — history stays intact for grading and CLV capture.
func (s *Store) SupersedeScores(ctx context.Context, scores []core.ModelScore) error {
	if len(scores) == 0 {
		return nil
	}

	return s.WithTx(ctx, func(tx *sql.Tx) error {
		deactivateQ := s.Bind(`UPDATE model_scores SET is_active = false WHERE market = $1 AND selection_key = $2 AND is_active = true`)
		insertQ := s.Bind(`
			INSERT INTO model_scores
				(run_id, game_id, market, selection_key, side, line, model_score, model_prob, edge,
				 signal, confidence_band, risk_flags, visibility_tier, reasons, is_active, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		`)

		for _, sc := range scores {
			if _, err := tx.ExecContext(ctx, deactivateQ, string(sc.Market), string(sc.SelectionKey)); err != nil {
				return err
			}

			flags, err := json.Marshal(sc.RiskFlags)
			if err != nil {
				return err
			}
			reasons, err := json.Marshal(sc.Reasons)
			if err != nil {
				return err
			}

			if _, err := tx.ExecContext(ctx, insertQ,
				sc.RunID, string(sc.GameID), string(sc.Market), string(sc.SelectionKey), string(sc.Side), sc.Line,
				sc.ModelScore, sc.ModelProb, sc.Edge, string(sc.Signal), string(sc.ConfidenceBand), string(flags),
				string(sc.VisibilityTier), string(reasons), true, sc.CreatedAt,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// ActiveScoresForGame loads every currently active scored row for a
// game, across all markets, in market/selection_key order.
func (s *Store) ActiveScoresForGame(ctx context.Context, gameID core.GameID) ([]core.ModelScore, error) {
	query := s.Bind(`
		SELECT id, run_id, game_id, market, selection_key, side, line, model_score, model_prob, edge,
		       signal, confidence_band, risk_flags, visibility_tier, reasons, is_active, created_at
		FROM model_scores WHERE game_id = $1 AND is_active = true ORDER BY market, selection_key
	`)
	rows, err := s.QueryContext(ctx, query, string(gameID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.ModelScore
	for rows.Next() {
		sc, err := scanModelScore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sc)
	}
	return out, rows.Err()
}

// ActiveScoreForSelection loads the current active row for one selection
// key, returning core.NotFoundError if the selection has never scored.
func (s *Store) ActiveScoreForSelection(ctx context.Context, key core.SelectionKey) (*core.ModelScore, error) {
	query := s.Bind(`
		SELECT id, run_id, game_id, market, selection_key, side, line, model_score, model_prob, edge,
		       signal, confidence_band, risk_flags, visibility_tier, reasons, is_active, created_at
		FROM model_scores WHERE selection_key = $1 AND is_active = true LIMIT 1
	`)
	row := s.QueryRowContext(ctx, query, string(key))
	return scanModelScore(row)
}

func scanModelScore(row rowScanner) (*core.ModelScore, error) {
	var sc core.ModelScore
	var gameID, market, selectionKey, side, signal, band, visibility string
	var flagsJSON, reasonsJSON string
	var line, modelProb, edge sql.NullFloat64
	if err := row.Scan(&sc.ID, &sc.RunID, &gameID, &market, &selectionKey, &side, &line, &sc.ModelScore,
		&modelProb, &edge, &signal, &band, &flagsJSON, &visibility, &reasonsJSON, &sc.IsActive, &sc.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, core.NewNotFoundError("model_score", selectionKey)
		}
		return nil, err
	}

	sc.GameID, sc.Market, sc.SelectionKey, sc.Side = core.GameID(gameID), core.Market(market), core.SelectionKey(selectionKey), core.Side(side)
	sc.Signal, sc.ConfidenceBand, sc.VisibilityTier = core.Signal(signal), core.ConfidenceBand(band), core.VisibilityTier(visibility)
	if line.Valid {
		v := line.Float64
		sc.Line = &v
	}
	if modelProb.Valid {
		v := modelProb.Float64
		sc.ModelProb = &v
	}
	if edge.Valid {
		v := edge.Float64
		sc.Edge = &v
	}
	if flagsJSON != "" {
		_ = json.Unmarshal([]byte(flagsJSON), &sc.RiskFlags)
	}
	if reasonsJSON != "" {
		_ = json.Unmarshal([]byte(reasonsJSON), &sc.Reasons)
	}
	return &sc, nil
}

// StartScoreRun records the start of a scoring pass for audit and
// status reporting.
func (s *Store) StartScoreRun(ctx context.Context, runDate core.Date, market core.Market) (int64, error) {
	query := s.Bind(`INSERT INTO score_runs (run_date, market, started_at, status) VALUES ($1, $2, $3, $4)`)
	res, err := s.ExecContext(ctx, query, runDate.Time(), string(market), time.Now().UTC(), "running")
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// FinishScoreRun records completion (or failure) of a scoring pass.
func (s *Store) FinishScoreRun(ctx context.Context, runID int64, rowCount int, status, reason string) error {
	query := s.Bind(`UPDATE score_runs SET finished_at = $1, row_count = $2, status = $3, reason = $4 WHERE id = $5`)
	_, err := s.ExecContext(ctx, query, time.Now().UTC(), rowCount, status, reason, runID)
	return err
}

// ScoreRunSummary is one market's most recent scoring pass, the unit
// the status command reports freshness against.
type ScoreRunSummary struct {
	Market     core.Market
	RunDate    core.Date
	FinishedAt *time.Time
	RowCount   int
	Status     string
	Reason     string
}

// LatestScoreRuns returns the most recently started score_runs row per
// market, ordered by market.
func (s *Store) LatestScoreRuns(ctx context.Context) ([]ScoreRunSummary, error) {
	query := s.Bind(`
		SELECT sr.market, sr.run_date, sr.finished_at, sr.row_count, sr.status, sr.reason
		FROM score_runs sr
		INNER JOIN (
			SELECT market, MAX(started_at) AS latest_start FROM score_runs GROUP BY market
		) latest ON latest.market = sr.market AND latest.latest_start = sr.started_at
		ORDER BY sr.market
	`)
	rows, err := s.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScoreRunSummary
	for rows.Next() {
		var summary ScoreRunSummary
		var market string
		var runDate time.Time
		var finishedAt sql.NullTime
		if err := rows.Scan(&market, &runDate, &finishedAt, &summary.RowCount, &summary.Status, &summary.Reason); err != nil {
			return nil, err
		}
		summary.Market, summary.RunDate = core.Market(market), core.NewDate(runDate)
		if finishedAt.Valid {
			v := finishedAt.Time
			summary.FinishedAt = &v
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}
