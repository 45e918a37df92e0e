package store

import (
	"context"
	"database/sql"

	"stormlightlabs.org/mlbedge/internal/core"
)

// CalibrationBucket maps a raw model_score range to an empirical win
// probability, learned offline from graded history and loaded here as
// plain data rather than a fitted curve baked into the scorer code.
type CalibrationBucket struct {
	Market    core.Market
	ScoreLo   float64
	ScoreHi   float64
	Prob      float64
}

// PutCalibration loads (or replaces) the calibration table for a
// market in one pass — calibration is refreshed as a batch, never
// patched row by row.
func (s *Store) PutCalibration(ctx context.Context, buckets []CalibrationBucket) error {
	columns := []string{"market", "score_bucket_lo", "score_bucket_hi", "prob"}
	rows := make([][]any, 0, len(buckets))
	for _, b := range buckets {
		rows = append(rows, []any{string(b.Market), b.ScoreLo, b.ScoreHi, b.Prob})
	}
	return s.BatchUpsert(ctx, "model_calibration", columns, []string{"market", "score_bucket_lo"}, columns[2:], rows)
}

// CalibratedProb looks up the empirical probability for a raw score
// within a market's bucket table. Returns core.NewDataMissingError
// when no bucket covers the score rather than fabricate a mapping.
// The scoring path does not call it.
func (s *Store) CalibratedProb(ctx context.Context, market core.Market, score float64) (float64, error) {
	query := s.Bind(`
		SELECT prob FROM model_calibration
		WHERE market = $1 AND score_bucket_lo <= $2 AND score_bucket_hi > $2
		LIMIT 1
	`)
	row := s.QueryRowContext(ctx, query, string(market), score)

	var prob float64
	if err := row.Scan(&prob); err != nil {
		if err == sql.ErrNoRows {
			return 0, core.NewDataMissingError("model_calibration", "no bucket covers score for "+string(market))
		}
		return 0, err
	}
	return prob, nil
}
