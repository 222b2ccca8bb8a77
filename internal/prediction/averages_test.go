package prediction

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

var allSlices = []struct {
	side   Side
	metric Metric
}{
	{Home, Scores},
	{Away, Scores},
	{Home, Allow},
	{Away, Allow},
}

func TestAverageFirstHalf_EmptyHistory(t *testing.T) {
	for _, s := range allSlices {
		got := AverageFirstHalf(TeamHistory{}, s.side, s.metric, 0)
		assert.Equal(t, 0.0, got, "%s/%s", s.side, s.metric)
	}
}

func TestAverageFirstHalf_SingleAwayGame(t *testing.T) {
	h := TeamHistory{
		TeamID: 7,
		AsAway: []HistoricalGame{
			{GameID: 1, Season: 2023, AwayPeriods: []int{20, 30}, HomePeriods: []int{25, 35}},
		},
	}

	assert.Equal(t, 20.0, AverageFirstHalf(h, Away, Scores, 0))
	// The opponent was home, so home-allow reads the home half of the record.
	assert.Equal(t, 25.0, AverageFirstHalf(h, Home, Allow, 0))
	// Slices fed by home games see nothing.
	assert.Equal(t, 0.0, AverageFirstHalf(h, Home, Scores, 0))
	assert.Equal(t, 0.0, AverageFirstHalf(h, Away, Allow, 0))
}

func TestAverageFirstHalf_CrossingRule(t *testing.T) {
	h := TeamHistory{
		AsAway: []HistoricalGame{
			{AwayPeriods: []int{30}, HomePeriods: []int{40}},
			{AwayPeriods: []int{34}, HomePeriods: []int{36}},
		},
		AsHome: []HistoricalGame{
			{AwayPeriods: []int{22}, HomePeriods: []int{41}},
			{AwayPeriods: []int{26}, HomePeriods: []int{39}},
			{AwayPeriods: []int{27}, HomePeriods: []int{40}},
		},
	}

	tests := []struct {
		side   Side
		metric Metric
		want   float64
	}{
		{Away, Scores, 32},
		{Home, Allow, 38},
		{Home, Scores, 40},
		{Away, Allow, 25},
	}
	for _, tt := range tests {
		got := AverageFirstHalf(h, tt.side, tt.metric, 0)
		assert.InDelta(t, tt.want, got, 1e-9, "%s/%s", tt.side, tt.metric)
	}
}

func TestAverageFirstHalf_SeasonFilter(t *testing.T) {
	h := TeamHistory{
		AsHome: []HistoricalGame{
			{Season: 2022, HomePeriods: []int{30}},
			{Season: 2023, HomePeriods: []int{40}},
			{Season: 2023, HomePeriods: []int{44}},
		},
	}

	assert.InDelta(t, 38.0, AverageFirstHalf(h, Home, Scores, 0), 1e-9)
	assert.InDelta(t, 42.0, AverageFirstHalf(h, Home, Scores, 2023), 1e-9)
	assert.Equal(t, 30.0, AverageFirstHalf(h, Home, Scores, 2022))
	assert.Equal(t, 0.0, AverageFirstHalf(h, Home, Scores, 2019))
}

func TestAverageFirstHalf_SkipsGamesWithoutPeriods(t *testing.T) {
	h := TeamHistory{
		AsAway: []HistoricalGame{
			{AwayPeriods: nil},
			{AwayPeriods: []int{}},
			{AwayPeriods: []int{31, 29}},
		},
	}

	assert.Equal(t, 31.0, AverageFirstHalf(h, Away, Scores, 0))
}

func TestAverageFirstHalf_MalformedGameIsLoggedAndSkipped(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	h := TeamHistory{
		TeamID: 3,
		AsHome: []HistoricalGame{
			{GameID: 11, HomePeriods: []int{-4}},
			{GameID: 12, HomePeriods: []int{36}},
		},
	}

	got := averageFirstHalf(h, Home, Scores, 0, logger)
	assert.Equal(t, 36.0, got)
	assert.Contains(t, buf.String(), "game 11")
}

func TestAverageFirstHalf_NoRounding(t *testing.T) {
	h := TeamHistory{
		AsAway: []HistoricalGame{
			{AwayPeriods: []int{30}},
			{AwayPeriods: []int{31}},
			{AwayPeriods: []int{31}},
		},
	}

	assert.InDelta(t, 92.0/3.0, AverageFirstHalf(h, Away, Scores, 0), 1e-12)
}

func TestSummarize(t *testing.T) {
	h := TeamHistory{
		TeamID: 9,
		AsAway: []HistoricalGame{
			{Season: 2023, AwayPeriods: []int{30}, HomePeriods: []int{35}},
			{Season: 2024, AwayPeriods: []int{31}, HomePeriods: []int{33}},
		},
		AsHome: []HistoricalGame{
			{Season: 2023, AwayPeriods: []int{28}, HomePeriods: []int{37}},
		},
	}

	all := Summarize(h, 0)
	assert.Equal(t, int64(9), all.TeamID)
	assert.Equal(t, 30.5, all.AwayScores)
	assert.Equal(t, 34.0, all.HomeAllows)
	assert.Equal(t, 37.0, all.HomeScores)
	assert.Equal(t, 28.0, all.AwayAllows)
	assert.Equal(t, 2, all.GamesAsAway)
	assert.Equal(t, 1, all.GamesAsHome)

	s2024 := Summarize(h, 2024)
	assert.Equal(t, 31.0, s2024.AwayScores)
	assert.Equal(t, 0.0, s2024.HomeScores)
	assert.Equal(t, 1, s2024.GamesAsAway)
	assert.Equal(t, 0, s2024.GamesAsHome)
}

func TestSummarize_GameCountsSkipMissingFirstHalves(t *testing.T) {
	h := TeamHistory{
		AsAway: []HistoricalGame{
			{Season: 2024, AwayPeriods: []int{31}, HomePeriods: []int{33}},
			{Season: 2024},
		},
		AsHome: []HistoricalGame{
			{Season: 2024},
			{Season: 2024, HomePeriods: []int{40}, AwayPeriods: []int{22}},
			{Season: 2024, HomePeriods: []int{36}, AwayPeriods: []int{30}},
		},
	}

	s := Summarize(h, 2024)
	assert.Equal(t, 1, s.GamesAsAway)
	assert.Equal(t, 2, s.GamesAsHome)
	assert.Equal(t, 38.0, s.HomeScores)
	assert.Equal(t, 31.0, s.AwayScores)
}
