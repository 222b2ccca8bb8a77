package service

import (
	"time"

	"github.com/fortuna/halfline/internal/store"
)

// GameView is the presentation shape of a game record. Nullable fields
// render as JSON null.
type GameView struct {
	GameID             int64     `json:"game_id"`
	Date               time.Time `json:"date"`
	Season             *int      `json:"season"`
	SeasonType         string    `json:"season_type,omitempty"`
	Status             string    `json:"status,omitempty"`
	AwayTeamID         int64     `json:"away_team_id"`
	HomeTeamID         int64     `json:"home_team_id"`
	AwayTeam           string    `json:"away_team"`
	HomeTeam           string    `json:"home_team"`
	AwayPeriods        []int     `json:"away_periods"`
	HomePeriods        []int     `json:"home_periods"`
	EstimatedHalfLine  *float64  `json:"estimated_half_line"`
	PredictedAwayScore float64   `json:"predicted_away_score"`
	PredictedHomeScore float64   `json:"predicted_home_score"`
	PredictedHalfScore float64   `json:"predicted_half_score"`
	ActualHalfScore    *int      `json:"actual_half_score"`
	OverUnder          *string   `json:"over_under"`
	WinLoss            *string   `json:"win_loss"`
}

// NewGameView converts a stored game.
func NewGameView(g *store.GameWithTeams) *GameView {
	v := &GameView{
		GameID:             g.ExternalID,
		Date:               g.GameDate,
		SeasonType:         g.SeasonType.String,
		Status:             g.Status.String,
		AwayTeamID:         g.AwayTeamID,
		HomeTeamID:         g.HomeTeamID,
		AwayTeam:           joinName(g.AwayName, g.AwayMascot),
		HomeTeam:           joinName(g.HomeName, g.HomeMascot),
		AwayPeriods:        ints(g.AwayPeriods),
		HomePeriods:        ints(g.HomePeriods),
		PredictedAwayScore: g.PredictedAwayScore,
		PredictedHomeScore: g.PredictedHomeScore,
		PredictedHalfScore: g.PredictedHalfScore,
	}
	if g.Season.Valid {
		n := int(g.Season.Int32)
		v.Season = &n
	}
	if g.EstimatedHalfLine.Valid {
		f := g.EstimatedHalfLine.Float64
		v.EstimatedHalfLine = &f
	}
	if g.ActualHalfScore.Valid {
		n := int(g.ActualHalfScore.Int32)
		v.ActualHalfScore = &n
	}
	if g.OverUnder.Valid {
		s := g.OverUnder.String
		v.OverUnder = &s
	}
	if g.WinLoss.Valid {
		s := g.WinLoss.String
		v.WinLoss = &s
	}
	return v
}

// TeamView is the presentation shape of a team.
type TeamView struct {
	TeamID       int64  `json:"team_id"`
	Name         string `json:"name"`
	Mascot       string `json:"mascot"`
	DisplayName  string `json:"display_name"`
	Location     string `json:"location,omitempty"`
	Conference   string `json:"conference,omitempty"`
	Division     string `json:"division,omitempty"`
	Abbreviation string `json:"abbreviation,omitempty"`
}

// NewTeamView converts a stored team.
func NewTeamView(t *store.Team) *TeamView {
	return &TeamView{
		TeamID:       t.TeamID,
		Name:         t.Name,
		Mascot:       t.Mascot,
		DisplayName:  t.DisplayName(),
		Location:     t.Location.String,
		Conference:   t.Conference.String,
		Division:     t.Division.String,
		Abbreviation: t.Abbreviation.String,
	}
}

func joinName(name, mascot string) string {
	t := store.Team{Name: name, Mascot: mascot}
	return t.DisplayName()
}

func ints(a []int64) []int {
	out := make([]int, len(a))
	for i, v := range a {
		out[i] = int(v)
	}
	return out
}
