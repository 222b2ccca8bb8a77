package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fortuna/halfline/internal/store"
)

const gameSelect = `
	SELECT g.game_id, g.external_id, g.sport, g.game_date, g.season, g.season_type, g.status,
		g.away_team_id, g.home_team_id, g.away_periods, g.home_periods,
		g.estimated_half_line, g.predicted_away_score, g.predicted_home_score,
		g.predicted_half_score, g.actual_half_score, g.over_under, g.win_loss,
		g.game_data, g.created_at, g.updated_at,
		a.name, a.mascot, h.name, h.mascot
	FROM games g
	JOIN teams a ON a.team_id = g.away_team_id
	JOIN teams h ON h.team_id = g.home_team_id
`

// GameRepository handles game data access
type GameRepository struct {
	db *store.Database
}

// NewGameRepository creates a new game repository
func NewGameRepository(db *store.Database) *GameRepository {
	return &GameRepository{db: db}
}

// Upsert inserts a game on first sighting of its external id and otherwise
// updates its periods, lines, prediction and grade. The schedule and both
// team references are fixed at insert. It reports whether a row was created.
func (r *GameRepository) Upsert(ctx context.Context, game *store.Game) (bool, error) {
	if game.AwayTeamID == game.HomeTeamID {
		return false, fmt.Errorf("upserting game %d: away and home team are both %d", game.ExternalID, game.AwayTeamID)
	}

	query := `
		INSERT INTO games (external_id, sport, game_date, season, season_type, status,
			away_team_id, home_team_id, away_periods, home_periods,
			estimated_half_line, predicted_away_score, predicted_home_score,
			predicted_half_score, actual_half_score, over_under, win_loss, game_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (external_id) DO UPDATE SET
			status = EXCLUDED.status,
			away_periods = EXCLUDED.away_periods,
			home_periods = EXCLUDED.home_periods,
			estimated_half_line = EXCLUDED.estimated_half_line,
			predicted_away_score = EXCLUDED.predicted_away_score,
			predicted_home_score = EXCLUDED.predicted_home_score,
			predicted_half_score = EXCLUDED.predicted_half_score,
			actual_half_score = EXCLUDED.actual_half_score,
			over_under = EXCLUDED.over_under,
			win_loss = EXCLUDED.win_loss,
			game_data = EXCLUDED.game_data,
			updated_at = NOW()
		RETURNING game_id, (xmax = 0)
	`

	var inserted bool
	err := r.db.DB().QueryRowContext(ctx, query,
		game.ExternalID, game.Sport, game.GameDate, game.Season, game.SeasonType, game.Status,
		game.AwayTeamID, game.HomeTeamID, game.AwayPeriods, game.HomePeriods,
		game.EstimatedHalfLine, game.PredictedAwayScore, game.PredictedHomeScore,
		game.PredictedHalfScore, game.ActualHalfScore, game.OverUnder, game.WinLoss, game.GameData,
	).Scan(&game.GameID, &inserted)
	if err != nil {
		return false, fmt.Errorf("upserting game %d: %w", game.ExternalID, err)
	}

	return inserted, nil
}

// GetByExternalID finds a game by the feed's game id
func (r *GameRepository) GetByExternalID(ctx context.Context, externalID int64) (*store.GameWithTeams, error) {
	query := gameSelect + ` WHERE g.external_id = $1`

	game := &store.GameWithTeams{}
	err := scanGame(r.db.DB().QueryRowContext(ctx, query, externalID), game)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("game %d: %w", externalID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying game: %w", err)
	}

	return game, nil
}

// GetByDateRange returns games scheduled in [from, to) ordered by date
func (r *GameRepository) GetByDateRange(ctx context.Context, from, to time.Time) ([]*store.GameWithTeams, error) {
	query := gameSelect + `
		WHERE g.game_date >= $1 AND g.game_date < $2
		ORDER BY g.game_date, g.game_id
	`

	rows, err := r.db.DB().QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying games: %w", err)
	}
	defer rows.Close()

	return scanGames(rows)
}

// GetByTeam returns a team's most recent games, newest first
func (r *GameRepository) GetByTeam(ctx context.Context, teamID int64, limit int) ([]*store.GameWithTeams, error) {
	query := gameSelect + `
		WHERE g.away_team_id = $1 OR g.home_team_id = $1
		ORDER BY g.game_date DESC, g.game_id DESC
		LIMIT $2
	`

	rows, err := r.db.DB().QueryContext(ctx, query, teamID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying team games: %w", err)
	}
	defer rows.Close()

	return scanGames(rows)
}

// GradeCounts tallies graded calls over a window. Pushes are calls whose
// first half landed on the line and were left ungraded.
type GradeCounts struct {
	Wins   int
	Losses int
	Pushes int
}

// GradedBetween counts wins, losses and ungraded pushes for games in [from, to)
func (r *GameRepository) GradedBetween(ctx context.Context, from, to time.Time) (GradeCounts, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE win_loss = 'Win'),
			COUNT(*) FILTER (WHERE win_loss = 'Loss'),
			COUNT(*) FILTER (WHERE win_loss IS NULL AND over_under IS NOT NULL
				AND actual_half_score IS NOT NULL
				AND actual_half_score::double precision = estimated_half_line)
		FROM games
		WHERE game_date >= $1 AND game_date < $2
	`

	var c GradeCounts
	if err := r.db.DB().QueryRowContext(ctx, query, from, to).Scan(&c.Wins, &c.Losses, &c.Pushes); err != nil {
		return c, fmt.Errorf("counting graded games: %w", err)
	}
	return c, nil
}

func scanGame(row rowScanner, g *store.GameWithTeams) error {
	return row.Scan(
		&g.GameID, &g.ExternalID, &g.Sport, &g.GameDate, &g.Season, &g.SeasonType, &g.Status,
		&g.AwayTeamID, &g.HomeTeamID, &g.AwayPeriods, &g.HomePeriods,
		&g.EstimatedHalfLine, &g.PredictedAwayScore, &g.PredictedHomeScore,
		&g.PredictedHalfScore, &g.ActualHalfScore, &g.OverUnder, &g.WinLoss,
		&g.GameData, &g.CreatedAt, &g.UpdatedAt,
		&g.AwayName, &g.AwayMascot, &g.HomeName, &g.HomeMascot,
	)
}

func scanGames(rows *sql.Rows) ([]*store.GameWithTeams, error) {
	var games []*store.GameWithTeams
	for rows.Next() {
		game := &store.GameWithTeams{}
		if err := scanGame(rows, game); err != nil {
			return nil, fmt.Errorf("scanning game: %w", err)
		}
		games = append(games, game)
	}

	return games, rows.Err()
}
