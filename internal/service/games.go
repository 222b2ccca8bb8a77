package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/fortuna/halfline/internal/cache"
	"github.com/fortuna/halfline/internal/store"
	"github.com/fortuna/halfline/internal/store/repository"
)

const dayLayout = "2006-01-02"

// GameReader is the read side of the game repository.
type GameReader interface {
	GetByExternalID(ctx context.Context, externalID int64) (*store.GameWithTeams, error)
	GetByDateRange(ctx context.Context, from, to time.Time) ([]*store.GameWithTeams, error)
	GetByTeam(ctx context.Context, teamID int64, limit int) ([]*store.GameWithTeams, error)
	GradedBetween(ctx context.Context, from, to time.Time) (repository.GradeCounts, error)
}

// PayloadCache stores rendered responses.
type PayloadCache interface {
	GetJSON(ctx context.Context, key string, v any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
}

// GameService handles game-related business logic
type GameService struct {
	games GameReader
	cache PayloadCache
	ttl   time.Duration
	loc   *time.Location
}

// NewGameService creates a new game service. cache may be nil.
func NewGameService(games GameReader, c PayloadCache, ttl time.Duration, loc *time.Location) *GameService {
	if loc == nil {
		loc = time.UTC
	}
	return &GameService{games: games, cache: c, ttl: ttl, loc: loc}
}

// Location is the calendar timezone used for day windows.
func (s *GameService) Location() *time.Location {
	return s.loc
}

// ParseDay parses a YYYY-MM-DD value as a calendar day in the service timezone.
func (s *GameService) ParseDay(v string) (time.Time, error) {
	d, err := time.ParseInLocation(dayLayout, v, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", v)
	}
	return d, nil
}

// Today returns the current calendar day in the service timezone.
func (s *GameService) Today() time.Time {
	now := time.Now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
}

// DayWindow returns [start, end) covering the calendar day of t in loc.
func DayWindow(t time.Time, loc *time.Location) (time.Time, time.Time) {
	t = t.In(loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// GetGame retrieves a game by its feed id
func (s *GameService) GetGame(ctx context.Context, externalID int64) (*GameView, error) {
	game, err := s.games.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("fetching game: %w", err)
	}
	return NewGameView(game), nil
}

// GetGamesByDate returns every game on a calendar day ordered by tip-off.
// Results are cached per day.
func (s *GameService) GetGamesByDate(ctx context.Context, day time.Time) ([]*GameView, error) {
	from, to := DayWindow(day, s.loc)
	key := cache.GamesByDateKey(from.Format(dayLayout))

	if s.cache != nil {
		var cached []*GameView
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			log.Printf("[service] Cache read failed for %s: %v", key, err)
		} else if hit {
			return cached, nil
		}
	}

	games, err := s.games.GetByDateRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetching games by date: %w", err)
	}

	views := make([]*GameView, 0, len(games))
	for _, g := range games {
		views = append(views, NewGameView(g))
	}

	if s.cache != nil && s.ttl > 0 {
		if err := s.cache.SetJSON(ctx, key, views, s.ttl); err != nil {
			log.Printf("[service] Cache write failed for %s: %v", key, err)
		}
	}
	return views, nil
}

// GetTeamSchedule returns a team's most recent games
func (s *GameService) GetTeamSchedule(ctx context.Context, teamID int64, limit int) ([]*GameView, error) {
	if limit <= 0 {
		limit = 50
	}
	games, err := s.games.GetByTeam(ctx, teamID, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching team schedule: %w", err)
	}

	views := make([]*GameView, 0, len(games))
	for _, g := range games {
		views = append(views, NewGameView(g))
	}
	return views, nil
}

// RecordSummary is the graded record over a range of days.
type RecordSummary struct {
	From    string  `json:"from"`
	To      string  `json:"to"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	Pushes  int     `json:"pushes"`
	Graded  int     `json:"graded"`
	WinRate float64 `json:"win_rate"` // percent of graded calls, 0 when none
}

// GetRecord counts graded calls for games on the days from..to inclusive
func (s *GameService) GetRecord(ctx context.Context, from, to time.Time) (*RecordSummary, error) {
	start, _ := DayWindow(from, s.loc)
	_, end := DayWindow(to, s.loc)
	if !end.After(start) {
		return nil, fmt.Errorf("range end %s is before start %s", to.Format(dayLayout), from.Format(dayLayout))
	}

	counts, err := s.games.GradedBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetching record: %w", err)
	}

	sum := &RecordSummary{
		From:   start.Format(dayLayout),
		To:     to.In(s.loc).Format(dayLayout),
		Wins:   counts.Wins,
		Losses: counts.Losses,
		Pushes: counts.Pushes,
		Graded: counts.Wins + counts.Losses,
	}
	if sum.Graded > 0 {
		sum.WinRate = math.Round(float64(sum.Wins)/float64(sum.Graded)*10000) / 100
	}
	return sum, nil
}
