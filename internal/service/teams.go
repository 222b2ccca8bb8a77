package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fortuna/halfline/internal/prediction"
	"github.com/fortuna/halfline/internal/store"
)

// TeamReader is the read side of the team repository.
type TeamReader interface {
	GetAll(ctx context.Context) ([]*store.Team, error)
	GetByID(ctx context.Context, teamID int64) (*store.Team, error)
	LoadHistory(ctx context.Context, teamID int64, before time.Time) (prediction.TeamHistory, error)
}

// TeamService serves team listings, first-half averages and matchups
type TeamService struct {
	teams  TeamReader
	engine *prediction.Engine
}

// NewTeamService creates a new team service
func NewTeamService(teams TeamReader, engine *prediction.Engine) *TeamService {
	return &TeamService{teams: teams, engine: engine}
}

// ListTeams returns every known team
func (s *TeamService) ListTeams(ctx context.Context) ([]*TeamView, error) {
	teams, err := s.teams.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching teams: %w", err)
	}
	views := make([]*TeamView, 0, len(teams))
	for _, t := range teams {
		views = append(views, NewTeamView(t))
	}
	return views, nil
}

// GetTeam returns a single team
func (s *TeamService) GetTeam(ctx context.Context, teamID int64) (*TeamView, error) {
	t, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("fetching team: %w", err)
	}
	return NewTeamView(t), nil
}

// TeamAverages is one row of the averages table.
type TeamAverages struct {
	Team *TeamView `json:"team"`
	prediction.Averages
}

// engineFor applies a per-request season over the configured one. A nil
// season keeps the configured filter; 0 means every season.
func (s *TeamService) engineFor(season *int) *prediction.Engine {
	if season == nil {
		return s.engine
	}
	return s.engine.WithSeason(*season)
}

// GetTeamAverages returns the four first-half slices for a team.
func (s *TeamService) GetTeamAverages(ctx context.Context, teamID int64, season *int) (*TeamAverages, error) {
	t, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("fetching team: %w", err)
	}
	h, err := s.teams.LoadHistory(ctx, teamID, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	return &TeamAverages{Team: NewTeamView(t), Averages: prediction.Summarize(h, s.engineFor(season).Season())}, nil
}

// ListAverages returns the averages row for every team
func (s *TeamService) ListAverages(ctx context.Context, season *int) ([]*TeamAverages, error) {
	filter := s.engineFor(season).Season()
	teams, err := s.teams.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching teams: %w", err)
	}

	rows := make([]*TeamAverages, 0, len(teams))
	for _, t := range teams {
		h, err := s.teams.LoadHistory(ctx, t.TeamID, time.Time{})
		if err != nil {
			return nil, fmt.Errorf("loading history for team %d: %w", t.TeamID, err)
		}
		rows = append(rows, &TeamAverages{Team: NewTeamView(t), Averages: prediction.Summarize(h, filter)})
	}
	return rows, nil
}

// Matchup is a hypothetical game between two teams.
type Matchup struct {
	Home           *TeamView       `json:"home"`
	Away           *TeamView       `json:"away"`
	Season         int             `json:"season,omitempty"`
	Predictable    bool            `json:"predictable"`
	AwayPredicted  float64         `json:"away_predicted"`
	HomePredicted  float64         `json:"home_predicted"`
	PredictedTotal float64         `json:"predicted_total"`
	HalfLine       *float64        `json:"half_line,omitempty"`
	Call           prediction.Call `json:"call,omitempty"`
}

// GetMatchup projects first-half scores for home hosting away. When a half
// line is given the projection is also called over or under it.
func (s *TeamService) GetMatchup(ctx context.Context, homeID, awayID int64, halfLine *float64, season *int) (*Matchup, error) {
	if homeID == awayID {
		return nil, fmt.Errorf("home and away must be different teams")
	}
	home, err := s.teams.GetByID(ctx, homeID)
	if err != nil {
		return nil, fmt.Errorf("fetching home team: %w", err)
	}
	away, err := s.teams.GetByID(ctx, awayID)
	if err != nil {
		return nil, fmt.Errorf("fetching away team: %w", err)
	}

	homeHistory, err := s.teams.LoadHistory(ctx, homeID, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("loading home history: %w", err)
	}
	awayHistory, err := s.teams.LoadHistory(ctx, awayID, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("loading away history: %w", err)
	}

	engine := s.engineFor(season)
	m := &Matchup{
		Home:     NewTeamView(home),
		Away:     NewTeamView(away),
		Season:   engine.Season(),
		HalfLine: halfLine,
	}

	res, ok := engine.Predict(prediction.GameInput{}, homeHistory, awayHistory)
	if !ok {
		return m, nil
	}
	m.Predictable = true
	m.AwayPredicted = res.AwayPredicted
	m.HomePredicted = res.HomePredicted
	m.PredictedTotal = res.PredictedTotal
	if halfLine != nil {
		m.Call = prediction.CallFor(res.PredictedTotal, *halfLine)
	}
	return m, nil
}
