package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/fortuna/halfline/internal/prediction"
	"github.com/fortuna/halfline/internal/store"
	"github.com/fortuna/halfline/internal/store/repository"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGames struct {
	byDate   []*store.GameWithTeams
	from, to time.Time
	calls    int
	counts   repository.GradeCounts
}

func (s *stubGames) GetByExternalID(ctx context.Context, id int64) (*store.GameWithTeams, error) {
	for _, g := range s.byDate {
		if g.ExternalID == id {
			return g, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *stubGames) GetByDateRange(ctx context.Context, from, to time.Time) ([]*store.GameWithTeams, error) {
	s.calls++
	s.from, s.to = from, to
	return s.byDate, nil
}

func (s *stubGames) GetByTeam(ctx context.Context, teamID int64, limit int) ([]*store.GameWithTeams, error) {
	return s.byDate, nil
}

func (s *stubGames) GradedBetween(ctx context.Context, from, to time.Time) (repository.GradeCounts, error) {
	s.from, s.to = from, to
	return s.counts, nil
}

type mapCache struct {
	data map[string]any
}

func (m *mapCache) GetJSON(ctx context.Context, key string, v any) (bool, error) {
	cached, ok := m.data[key]
	if !ok {
		return false, nil
	}
	*(v.(*[]*GameView)) = cached.([]*GameView)
	return true, nil
}

func (m *mapCache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	m.data[key] = v
	return nil
}

func chicago(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	return loc
}

func sampleGame() *store.GameWithTeams {
	return &store.GameWithTeams{
		Game: store.Game{
			ExternalID:         271828,
			GameDate:           time.Date(2024, 1, 10, 1, 0, 0, 0, time.UTC),
			Season:             sql.NullInt32{Int32: 2024, Valid: true},
			AwayTeamID:         1,
			HomeTeamID:         2,
			AwayPeriods:        pq.Int64Array{15, 40},
			HomePeriods:        pq.Int64Array{18, 41},
			EstimatedHalfLine:  sql.NullFloat64{Float64: 59, Valid: true},
			PredictedHalfScore: 58,
			ActualHalfScore:    sql.NullInt32{Int32: 33, Valid: true},
			OverUnder:          sql.NullString{String: "Under", Valid: true},
			WinLoss:            sql.NullString{String: "Win", Valid: true},
		},
		AwayName: "Kentucky", AwayMascot: "Wildcats",
		HomeName: "Duke", HomeMascot: "Blue Devils",
	}
}

func TestGameService_GetGamesByDateUsesCentralWindowAndCache(t *testing.T) {
	loc := chicago(t)
	games := &stubGames{byDate: []*store.GameWithTeams{sampleGame()}}
	c := &mapCache{data: map[string]any{}}
	svc := NewGameService(games, c, time.Minute, loc)

	day, err := svc.ParseDay("2024-01-09")
	require.NoError(t, err)

	views, err := svc.GetGamesByDate(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, views, 1)

	// Midnight CST is 06:00 UTC.
	assert.Equal(t, time.Date(2024, 1, 9, 6, 0, 0, 0, time.UTC), games.from.UTC())
	assert.Equal(t, time.Date(2024, 1, 10, 6, 0, 0, 0, time.UTC), games.to.UTC())

	v := views[0]
	assert.Equal(t, "Kentucky Wildcats", v.AwayTeam)
	assert.Equal(t, "Duke Blue Devils", v.HomeTeam)
	assert.Equal(t, []int{15, 40}, v.AwayPeriods)
	require.NotNil(t, v.EstimatedHalfLine)
	assert.Equal(t, 59.0, *v.EstimatedHalfLine)
	require.NotNil(t, v.WinLoss)
	assert.Equal(t, "Win", *v.WinLoss)

	_, err = svc.GetGamesByDate(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, 1, games.calls)
	assert.Contains(t, c.data, "halfline:games:date:2024-01-09")
}

func TestDayWindow_AcrossDSTChange(t *testing.T) {
	loc := chicago(t)
	start, end := DayWindow(time.Date(2024, 3, 10, 12, 0, 0, 0, loc), loc)
	assert.Equal(t, 23*time.Hour, end.Sub(start))
}

func TestGameService_ParseDayRejectsGarbage(t *testing.T) {
	_, err := NewGameService(&stubGames{}, nil, 0, nil).ParseDay("01/09/2024")
	assert.Error(t, err)
}

func TestGameService_GetRecord(t *testing.T) {
	loc := chicago(t)
	games := &stubGames{counts: repository.GradeCounts{Wins: 7, Losses: 5, Pushes: 1}}
	svc := NewGameService(games, nil, 0, loc)

	from, _ := svc.ParseDay("2024-01-01")
	to, _ := svc.ParseDay("2024-01-31")
	rec, err := svc.GetRecord(context.Background(), from, to)
	require.NoError(t, err)

	assert.Equal(t, 12, rec.Graded)
	assert.Equal(t, 58.33, rec.WinRate)
	assert.Equal(t, "2024-01-01", rec.From)
	assert.Equal(t, "2024-01-31", rec.To)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, loc), games.to)

	_, err = svc.GetRecord(context.Background(), to, from)
	assert.Error(t, err)
}

func TestGameService_GetRecordEmpty(t *testing.T) {
	svc := NewGameService(&stubGames{}, nil, 0, time.UTC)
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rec, err := svc.GetRecord(context.Background(), day, day)
	require.NoError(t, err)
	assert.Equal(t, 0.0, rec.WinRate)
}

func TestGameService_GetGameNotFound(t *testing.T) {
	svc := NewGameService(&stubGames{}, nil, 0, time.UTC)
	_, err := svc.GetGame(context.Background(), 1)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

type stubTeams struct {
	teams     map[int64]*store.Team
	histories map[int64]prediction.TeamHistory
}

func (s *stubTeams) GetAll(ctx context.Context) ([]*store.Team, error) {
	out := make([]*store.Team, 0, len(s.teams))
	for id := int64(1); id <= int64(len(s.teams)); id++ {
		out = append(out, s.teams[id])
	}
	return out, nil
}

func (s *stubTeams) GetByID(ctx context.Context, id int64) (*store.Team, error) {
	t, ok := s.teams[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return t, nil
}

func (s *stubTeams) LoadHistory(ctx context.Context, id int64, before time.Time) (prediction.TeamHistory, error) {
	h := s.histories[id]
	h.TeamID = id
	return h, nil
}

func newStubTeams() *stubTeams {
	return &stubTeams{
		teams: map[int64]*store.Team{
			1: {TeamID: 1, Name: "Kentucky", Mascot: "Wildcats"},
			2: {TeamID: 2, Name: "Duke", Mascot: "Blue Devils"},
			3: {TeamID: 3, Name: "Gonzaga", Mascot: "Bulldogs"},
		},
		histories: map[int64]prediction.TeamHistory{
			1: {
				AsAway: []prediction.HistoricalGame{{Season: 2024, AwayPeriods: []int{31}, HomePeriods: []int{26}}},
				AsHome: []prediction.HistoricalGame{{Season: 2024, AwayPeriods: []int{28}, HomePeriods: []int{35}}},
			},
			2: {
				AsHome: []prediction.HistoricalGame{{Season: 2024, HomePeriods: []int{32}, AwayPeriods: []int{29}}},
				AsAway: []prediction.HistoricalGame{{Season: 2023, AwayPeriods: []int{30}, HomePeriods: []int{33}}},
			},
		},
	}
}

func quietEngine() *prediction.Engine {
	return prediction.NewEngine(prediction.Config{}, log.New(io.Discard, "", 0))
}

func seasonPtr(season int) *int { return &season }

func TestTeamService_GetMatchup(t *testing.T) {
	svc := NewTeamService(newStubTeams(), quietEngine())
	line := 57.5

	m, err := svc.GetMatchup(context.Background(), 2, 1, &line, nil)
	require.NoError(t, err)
	assert.True(t, m.Predictable)
	assert.Equal(t, 30.0, m.AwayPredicted)
	assert.Equal(t, 28.0, m.HomePredicted)
	assert.Equal(t, 58.0, m.PredictedTotal)
	assert.Equal(t, prediction.Over, m.Call)
	assert.Equal(t, "Duke Blue Devils", m.Home.DisplayName)
}

func TestTeamService_GetMatchupSeasonFilterCanSuppress(t *testing.T) {
	svc := NewTeamService(newStubTeams(), quietEngine())

	// Gonzaga has no games and Duke's only away game is from 2023, so the
	// home side projects to zero in 2024.
	m, err := svc.GetMatchup(context.Background(), 3, 2, nil, seasonPtr(2024))
	require.NoError(t, err)
	assert.False(t, m.Predictable)
	assert.Empty(t, m.Call)

	m, err = svc.GetMatchup(context.Background(), 3, 2, nil, seasonPtr(0))
	require.NoError(t, err)
	assert.True(t, m.Predictable)
}

func TestTeamService_GetMatchupRejectsSameTeam(t *testing.T) {
	svc := NewTeamService(newStubTeams(), quietEngine())
	_, err := svc.GetMatchup(context.Background(), 2, 2, nil, nil)
	assert.Error(t, err)
}

func TestTeamService_ListAverages(t *testing.T) {
	svc := NewTeamService(newStubTeams(), quietEngine())

	rows, err := svc.ListAverages(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Kentucky", rows[0].Team.Name)
	assert.Equal(t, 31.0, rows[0].AwayScores)
	assert.Equal(t, 26.0, rows[0].HomeAllows)
	assert.Equal(t, 0.0, rows[2].HomeScores)

	one, err := svc.GetTeamAverages(context.Background(), 2, seasonPtr(2024))
	require.NoError(t, err)
	assert.Equal(t, 32.0, one.HomeScores)
	assert.Equal(t, 0.0, one.AwayScores)
	assert.Equal(t, 1, one.GamesAsHome)
}

func TestTeamService_ConfiguredSeasonAppliesWithoutRequestSeason(t *testing.T) {
	engine := prediction.NewEngine(prediction.Config{Season: 2024}, log.New(io.Discard, "", 0))
	svc := NewTeamService(newStubTeams(), engine)
	teams := newStubTeams()

	want, ok := engine.Predict(prediction.GameInput{}, teams.histories[2], teams.histories[1])
	require.True(t, ok)

	m, err := svc.GetMatchup(context.Background(), 2, 1, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2024, m.Season)
	assert.Equal(t, want.HomePredicted, m.HomePredicted)
	assert.Equal(t, want.AwayPredicted, m.AwayPredicted)

	// Duke's only away game is from 2023.
	avg, err := svc.GetTeamAverages(context.Background(), 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, avg.GamesAsAway)

	rows, err := svc.ListAverages(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, rows[1].AwayScores)

	all, err := svc.GetMatchup(context.Background(), 2, 1, nil, seasonPtr(0))
	require.NoError(t, err)
	assert.Equal(t, 0, all.Season)
	assert.Equal(t, 28.0, all.HomePredicted)
}
