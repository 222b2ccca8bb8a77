package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fortuna/halfline/internal/prediction"
	"github.com/fortuna/halfline/internal/store"
	"github.com/lib/pq"
)

const teamColumns = `team_id, name, mascot, location, conference, division, abbreviation, created_at, updated_at`

// TeamRepository handles team data access
type TeamRepository struct {
	db *store.Database
}

// NewTeamRepository creates a new team repository
func NewTeamRepository(db *store.Database) *TeamRepository {
	return &TeamRepository{db: db}
}

// ResolveOrCreate returns the team identified by (name, mascot), inserting it
// on first sighting. Attributes only fill columns that are still empty.
func (r *TeamRepository) ResolveOrCreate(ctx context.Context, name, mascot string, attrs store.TeamAttributes) (*store.Team, error) {
	if name == "" || mascot == "" {
		return nil, fmt.Errorf("resolving team %q %q: name and mascot are required", name, mascot)
	}

	query := `
		INSERT INTO teams (name, mascot, location, conference, division, abbreviation)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''))
		ON CONFLICT (name, mascot) DO UPDATE SET
			location = COALESCE(teams.location, EXCLUDED.location),
			conference = COALESCE(teams.conference, EXCLUDED.conference),
			division = COALESCE(teams.division, EXCLUDED.division),
			abbreviation = COALESCE(teams.abbreviation, EXCLUDED.abbreviation),
			updated_at = NOW()
		RETURNING ` + teamColumns

	team := &store.Team{}
	err := scanTeam(r.db.DB().QueryRowContext(ctx, query,
		name, mascot, attrs.Location, attrs.Conference, attrs.Division, attrs.Abbreviation,
	), team)
	if err != nil {
		return nil, fmt.Errorf("resolving team %s %s: %w", name, mascot, err)
	}

	return team, nil
}

// GetAll returns every team ordered by name
func (r *TeamRepository) GetAll(ctx context.Context) ([]*store.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams ORDER BY name, mascot`

	rows, err := r.db.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying teams: %w", err)
	}
	defer rows.Close()

	var teams []*store.Team
	for rows.Next() {
		team := &store.Team{}
		if err := scanTeam(rows, team); err != nil {
			return nil, fmt.Errorf("scanning team: %w", err)
		}
		teams = append(teams, team)
	}

	return teams, rows.Err()
}

// GetByID finds a team by ID
func (r *TeamRepository) GetByID(ctx context.Context, teamID int64) (*store.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE team_id = $1`

	team := &store.Team{}
	err := scanTeam(r.db.DB().QueryRowContext(ctx, query, teamID), team)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("team %d: %w", teamID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying team: %w", err)
	}

	return team, nil
}

// UpdateAbbreviation sets the abbreviation of a team that has none yet.
// It reports whether a row changed.
func (r *TeamRepository) UpdateAbbreviation(ctx context.Context, teamID int64, abbr string) (bool, error) {
	query := `
		UPDATE teams
		SET abbreviation = $2, updated_at = NOW()
		WHERE team_id = $1 AND abbreviation IS NULL
	`

	res, err := r.db.DB().ExecContext(ctx, query, teamID, abbr)
	if err != nil {
		return false, fmt.Errorf("updating abbreviation for team %d: %w", teamID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("updating abbreviation for team %d: %w", teamID, err)
	}
	return n > 0, nil
}

// LoadHistory returns the games a team played strictly before the given
// time, split by the side it played on. A zero time loads every game.
func (r *TeamRepository) LoadHistory(ctx context.Context, teamID int64, before time.Time) (prediction.TeamHistory, error) {
	history := prediction.TeamHistory{TeamID: teamID}

	query := `
		SELECT game_id, COALESCE(season, 0), away_team_id, away_periods, home_periods
		FROM games
		WHERE (away_team_id = $1 OR home_team_id = $1)
			AND ($2::timestamptz IS NULL OR game_date < $2)
		ORDER BY game_date, game_id
	`

	var cutoff sql.NullTime
	if !before.IsZero() {
		cutoff = sql.NullTime{Time: before, Valid: true}
	}

	rows, err := r.db.DB().QueryContext(ctx, query, teamID, cutoff)
	if err != nil {
		return history, fmt.Errorf("querying history for team %d: %w", teamID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			g          prediction.HistoricalGame
			awayTeamID int64
			away, home pq.Int64Array
		)
		if err := rows.Scan(&g.GameID, &g.Season, &awayTeamID, &away, &home); err != nil {
			return history, fmt.Errorf("scanning history row: %w", err)
		}
		g.AwayPeriods = toInts(away)
		g.HomePeriods = toInts(home)

		if awayTeamID == teamID {
			history.AsAway = append(history.AsAway, g)
		} else {
			history.AsHome = append(history.AsHome, g)
		}
	}

	return history, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTeam(row rowScanner, team *store.Team) error {
	return row.Scan(
		&team.TeamID, &team.Name, &team.Mascot, &team.Location, &team.Conference,
		&team.Division, &team.Abbreviation, &team.CreatedAt, &team.UpdatedAt,
	)
}

func toInts(a pq.Int64Array) []int {
	if len(a) == 0 {
		return nil
	}
	out := make([]int, len(a))
	for i, v := range a {
		out[i] = int(v)
	}
	return out
}
