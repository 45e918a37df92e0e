package store

import (
	"context"
	"database/sql"
	"time"

	"stormlightlabs.org/mlbedge/internal/core"
)

// UpsertGames batches Game rows by natural key (id).
func (s *Store) UpsertGames(ctx context.Context, games []core.Game) error {
	columns := []string{
		"id", "date", "home_team", "away_team", "venue_id", "is_doubleheader",
		"game_number", "status", "final_home_runs", "final_away_runs",
		"probable_home_pitcher", "probable_away_pitcher", "updated_at",
	}
	update := []string{
		"date", "home_team", "away_team", "venue_id", "is_doubleheader",
		"game_number", "status", "final_home_runs", "final_away_runs",
		"probable_home_pitcher", "probable_away_pitcher", "updated_at",
	}

	rows := make([][]any, 0, len(games))
	for _, g := range games {
		rows = append(rows, []any{
			string(g.ID), g.Date.Time(), string(g.HomeTeam), string(g.AwayTeam), g.VenueID,
			g.IsDoubleheader, g.GameNumber, g.Status, g.FinalHomeRuns, g.FinalAwayRuns,
			nullablePlayerID(g.ProbableHomePitcher), nullablePlayerID(g.ProbableAwayPitcher), g.UpdatedAt,
		})
	}

	return s.BatchUpsert(ctx, "games", columns, []string{"id"}, update, rows)
}

func nullablePlayerID(p *core.PlayerID) any {
	if p == nil {
		return nil
	}
	return string(*p)
}

// GameByID loads one game, returning core.NotFoundError if absent.
func (s *Store) GameByID(ctx context.Context, id core.GameID) (*core.Game, error) {
	query := s.Bind(`
		SELECT id, date, home_team, away_team, venue_id, is_doubleheader, game_number, status,
		       final_home_runs, final_away_runs, probable_home_pitcher, probable_away_pitcher, updated_at
		FROM games WHERE id = $1
	`)
	row := s.QueryRowContext(ctx, query, string(id))
	return scanGame(row)
}

// GamesOnDate loads every scheduled game for a calendar date.
func (s *Store) GamesOnDate(ctx context.Context, date core.Date) ([]core.Game, error) {
	query := s.Bind(`
		SELECT id, date, home_team, away_team, venue_id, is_doubleheader, game_number, status,
		       final_home_runs, final_away_runs, probable_home_pitcher, probable_away_pitcher, updated_at
		FROM games WHERE date = $1 ORDER BY id
	`)
	rows, err := s.QueryContext(ctx, query, date.Time())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

// RecentGamesForTeam loads a team's most recent finalized games
// strictly before d, most recent first, bounded to limit rows — the
// no-lookahead-safe input to the team feature builder's rolling window.
func (s *Store) RecentGamesForTeam(ctx context.Context, teamID core.TeamID, before core.Date, limit int) ([]core.Game, error) {
	query := s.Bind(`
		SELECT id, date, home_team, away_team, venue_id, is_doubleheader, game_number, status,
		       final_home_runs, final_away_runs, probable_home_pitcher, probable_away_pitcher, updated_at
		FROM games
		WHERE (home_team = $1 OR away_team = $1) AND date < $2 AND status = 'final'
		ORDER BY date DESC LIMIT $3
	`)
	rows, err := s.QueryContext(ctx, query, string(teamID), before.Time(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*core.Game, error) {
	var (
		id, homeTeam, awayTeam, status                     string
		venueID                                             sql.NullString
		date, updatedAt                                     time.Time
		isDoubleheader                                      bool
		gameNumber                                           int
		finalHome, finalAway                                sql.NullInt64
		probableHome, probableAway                          sql.NullString
	)
	if err := row.Scan(&id, &date, &homeTeam, &awayTeam, &venueID, &isDoubleheader, &gameNumber, &status,
		&finalHome, &finalAway, &probableHome, &probableAway, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, core.NewNotFoundError("game", id)
		}
		return nil, err
	}

	g := &core.Game{
		ID: core.GameID(id), Date: core.NewDate(date), HomeTeam: core.TeamID(homeTeam), AwayTeam: core.TeamID(awayTeam),
		IsDoubleheader: isDoubleheader, GameNumber: gameNumber, Status: status, UpdatedAt: updatedAt,
	}
	if venueID.Valid {
		g.VenueID = venueID.String
	}
	if finalHome.Valid {
		v := int(finalHome.Int64)
		g.FinalHomeRuns = &v
	}
	if finalAway.Valid {
		v := int(finalAway.Int64)
		g.FinalAwayRuns = &v
	}
	if probableHome.Valid {
		v := core.PlayerID(probableHome.String)
		g.ProbableHomePitcher = &v
	}
	if probableAway.Valid {
		v := core.PlayerID(probableAway.String)
		g.ProbableAwayPitcher = &v
	}
	return g, nil
}
