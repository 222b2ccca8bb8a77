package store

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// Team is a college program identified by its (name, mascot) pair
type Team struct {
	TeamID       int64          `json:"team_id" db:"team_id"`
	Name         string         `json:"name" db:"name"`
	Mascot       string         `json:"mascot" db:"mascot"`
	Location     sql.NullString `json:"location,omitempty" db:"location"`
	Conference   sql.NullString `json:"conference,omitempty" db:"conference"`
	Division     sql.NullString `json:"division,omitempty" db:"division"`
	Abbreviation sql.NullString `json:"abbreviation,omitempty" db:"abbreviation"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

// DisplayName is the name shown next to a game, e.g. "Duke Blue Devils".
func (t *Team) DisplayName() string {
	if t.Mascot == "" {
		return t.Name
	}
	return t.Name + " " + t.Mascot
}

// TeamAttributes are the optional descriptive fields carried by the feed.
// Only empty columns are filled from them; a set value is never overwritten.
type TeamAttributes struct {
	Location     string
	Conference   string
	Division     string
	Abbreviation string
}

// Game is a scheduled or played game with its prediction and grade.
// AwayPeriods and HomePeriods hold per-period points; index 0 is the first half.
type Game struct {
	GameID             int64           `json:"game_id" db:"game_id"`
	ExternalID         int64           `json:"external_id" db:"external_id"`
	Sport              string          `json:"sport" db:"sport"`
	GameDate           time.Time       `json:"game_date" db:"game_date"`
	Season             sql.NullInt32   `json:"season,omitempty" db:"season"`
	SeasonType         sql.NullString  `json:"season_type,omitempty" db:"season_type"`
	Status             sql.NullString  `json:"status,omitempty" db:"status"`
	AwayTeamID         int64           `json:"away_team_id" db:"away_team_id"`
	HomeTeamID         int64           `json:"home_team_id" db:"home_team_id"`
	AwayPeriods        pq.Int64Array   `json:"away_periods" db:"away_periods"`
	HomePeriods        pq.Int64Array   `json:"home_periods" db:"home_periods"`
	EstimatedHalfLine  sql.NullFloat64 `json:"estimated_half_line,omitempty" db:"estimated_half_line"`
	PredictedAwayScore float64         `json:"predicted_away_score" db:"predicted_away_score"`
	PredictedHomeScore float64         `json:"predicted_home_score" db:"predicted_home_score"`
	PredictedHalfScore float64         `json:"predicted_half_score" db:"predicted_half_score"`
	ActualHalfScore    sql.NullInt32   `json:"actual_half_score,omitempty" db:"actual_half_score"`
	OverUnder          sql.NullString  `json:"over_under,omitempty" db:"over_under"`
	WinLoss            sql.NullString  `json:"win_loss,omitempty" db:"win_loss"`
	GameData           sql.NullString  `json:"game_data,omitempty" db:"game_data"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

// GameWithTeams is a game joined with both teams' display fields.
type GameWithTeams struct {
	Game
	AwayName   string `json:"away_name"`
	AwayMascot string `json:"away_mascot"`
	HomeName   string `json:"home_name"`
	HomeMascot string `json:"home_mascot"`
}
