package prediction

import (
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietEngine(cfg Config) *Engine {
	return NewEngine(cfg, log.New(io.Discard, "", 0))
}

func ptrFloat(v float64) *float64 { return &v }
func ptrInt(v int) *int           { return &v }

// homeSide has home-scores 32 and away-scores 30.
var homeSide = TeamHistory{
	TeamID: 1,
	AsHome: []HistoricalGame{{GameID: 100, HomePeriods: []int{32}, AwayPeriods: []int{29}}},
	AsAway: []HistoricalGame{{GameID: 101, AwayPeriods: []int{30}, HomePeriods: []int{33}}},
}

// awaySide allows 26 when its opponent is home and 28 when its opponent is away.
var awaySide = TeamHistory{
	TeamID: 2,
	AsAway: []HistoricalGame{{GameID: 200, AwayPeriods: []int{31}, HomePeriods: []int{26}}},
	AsHome: []HistoricalGame{{GameID: 201, HomePeriods: []int{35}, AwayPeriods: []int{28}}},
}

func TestPredict_WorkedExample(t *testing.T) {
	e := quietEngine(Config{HalfLineFraction: 0.46})

	res, ok := e.Predict(GameInput{
		MarketTotal:   ptrFloat(128),
		AwayFirstHalf: ptrInt(15),
		HomeFirstHalf: ptrInt(18),
	}, homeSide, awaySide)
	require.True(t, ok)

	// away = (32 + 28) / 2, home = (30 + 26) / 2
	assert.Equal(t, 30.0, res.AwayPredicted)
	assert.Equal(t, 28.0, res.HomePredicted)
	assert.Equal(t, 58.0, res.PredictedTotal)

	// 128 * 0.46 = 58.88 -> 59.0
	require.NotNil(t, res.EstimatedHalfLine)
	assert.Equal(t, 59.0, *res.EstimatedHalfLine)
	require.NotNil(t, res.ActualHalfLine)
	assert.Equal(t, 33, *res.ActualHalfLine)
	assert.Equal(t, Under, res.OverUnder)
	assert.Equal(t, Win, res.WinLoss)
}

func TestPredict_SuppressedWithoutHistory(t *testing.T) {
	e := quietEngine(Config{})

	res, ok := e.Predict(GameInput{
		MarketTotal:   ptrFloat(140),
		AwayFirstHalf: ptrInt(30),
		HomeFirstHalf: ptrInt(31),
	}, TeamHistory{}, TeamHistory{})
	assert.False(t, ok)
	assert.Nil(t, res)
}

func TestPredict_SuppressedWhenOneSideProjectsZero(t *testing.T) {
	e := quietEngine(Config{})

	// Only home-scores exists; the home side's projection stays zero.
	home := TeamHistory{AsHome: []HistoricalGame{{HomePeriods: []int{35}}}}
	_, ok := e.Predict(GameInput{MarketTotal: ptrFloat(140)}, home, TeamHistory{})
	assert.False(t, ok)
}

func TestPredict_NoMarketData(t *testing.T) {
	e := quietEngine(Config{})

	res, ok := e.Predict(GameInput{AwayFirstHalf: ptrInt(30), HomeFirstHalf: ptrInt(28)}, homeSide, awaySide)
	require.True(t, ok)
	assert.Nil(t, res.EstimatedHalfLine)
	assert.Empty(t, res.OverUnder)
	assert.Empty(t, res.WinLoss)
	require.NotNil(t, res.ActualHalfLine)
	assert.Equal(t, 58, *res.ActualHalfLine)
}

func TestPredict_NotYetPlayed(t *testing.T) {
	e := quietEngine(Config{})

	res, ok := e.Predict(GameInput{MarketTotal: ptrFloat(120)}, homeSide, awaySide)
	require.True(t, ok)
	assert.Nil(t, res.ActualHalfLine)
	require.NotNil(t, res.EstimatedHalfLine)
	assert.Equal(t, 55.0, *res.EstimatedHalfLine) // 55.2 -> 55.0
	assert.Equal(t, Over, res.OverUnder)
	assert.Empty(t, res.WinLoss)
}

func TestPredict_OnlyOnePeriodKnown(t *testing.T) {
	e := quietEngine(Config{})

	res, ok := e.Predict(GameInput{MarketTotal: ptrFloat(120), AwayFirstHalf: ptrInt(30)}, homeSide, awaySide)
	require.True(t, ok)
	assert.Nil(t, res.ActualHalfLine)
	assert.Empty(t, res.WinLoss)
}

func TestPredict_RoundsEachSide(t *testing.T) {
	e := quietEngine(Config{})

	home := TeamHistory{
		AsHome: []HistoricalGame{
			{HomePeriods: []int{30}},
			{HomePeriods: []int{31}},
			{HomePeriods: []int{31}},
		},
		AsAway: []HistoricalGame{{AwayPeriods: []int{27}}},
	}
	away := TeamHistory{
		AsHome: []HistoricalGame{{AwayPeriods: []int{29}}},
		AsAway: []HistoricalGame{{HomePeriods: []int{30}}},
	}

	res, ok := e.Predict(GameInput{}, home, away)
	require.True(t, ok)
	// (30.666... + 29) / 2 = 29.8333 -> 29.8
	assert.Equal(t, 29.8, res.AwayPredicted)
	// (27 + 30) / 2 = 28.5
	assert.Equal(t, 28.5, res.HomePredicted)
	assert.Equal(t, 58.3, res.PredictedTotal)
}

func TestPredict_UsesSeasonFilter(t *testing.T) {
	home := TeamHistory{
		AsHome: []HistoricalGame{{Season: 2022, HomePeriods: []int{50}}, {Season: 2023, HomePeriods: []int{30}}},
		AsAway: []HistoricalGame{{Season: 2023, AwayPeriods: []int{28}}},
	}
	away := TeamHistory{
		AsHome: []HistoricalGame{{Season: 2023, AwayPeriods: []int{30}}},
		AsAway: []HistoricalGame{{Season: 2023, HomePeriods: []int{32}}},
	}

	res, ok := quietEngine(Config{Season: 2023}).Predict(GameInput{}, home, away)
	require.True(t, ok)
	assert.Equal(t, 30.0, res.AwayPredicted)

	res, ok = quietEngine(Config{}).Predict(GameInput{}, home, away)
	require.True(t, ok)
	assert.Equal(t, 35.0, res.AwayPredicted)
}

func TestPredict_Deterministic(t *testing.T) {
	e := quietEngine(Config{HalfLineFraction: 0.47})
	in := GameInput{MarketTotal: ptrFloat(131.5), AwayFirstHalf: ptrInt(27), HomeFirstHalf: ptrInt(33)}

	first, ok := e.Predict(in, homeSide, awaySide)
	require.True(t, ok)
	for i := 0; i < 50; i++ {
		again, ok := e.Predict(in, homeSide, awaySide)
		require.True(t, ok)
		assert.Equal(t, first, again)
	}
}

func TestEstimateHalfLine(t *testing.T) {
	tests := []struct {
		total    float64
		fraction float64
		want     float64
	}{
		{150, 0.46, 69.0},
		{151, 0.46, 69.5},
		{128, 0.46, 59.0},
		{140, 0.5, 70.0},
		{141, 0.5, 70.5},
		{139.5, 0.47, 65.5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EstimateHalfLine(tt.total, tt.fraction), "total=%v fraction=%v", tt.total, tt.fraction)
	}
}

func TestRounding(t *testing.T) {
	assert.Equal(t, 30.0, Round1((30.04+29.96)/2))
	assert.Equal(t, 30.1, Round1(30.05))
	assert.Equal(t, 29.8, Round1(29.8333))
	assert.Equal(t, 69.5, RoundHalf(69.46))
	assert.Equal(t, 69.0, RoundHalf(69.2))
	assert.Equal(t, 70.0, RoundHalf(69.75))
}

func TestCallFor_TieIsOver(t *testing.T) {
	assert.Equal(t, Over, CallFor(70.0, 70.0))
	assert.Equal(t, Under, CallFor(69.9, 70.0))
	assert.Equal(t, Over, CallFor(70.1, 70.0))
}

func TestGradeCall(t *testing.T) {
	tests := []struct {
		name   string
		call   Call
		actual float64
		line   float64
		mode   PushMode
		want   Grade
	}{
		{"over hits", Over, 72, 70, PushLoss, Win},
		{"over misses", Over, 68, 70, PushLoss, Loss},
		{"under hits", Under, 65, 70, PushLoss, Win},
		{"under misses", Under, 75, 70, PushLoss, Loss},
		{"push over is loss", Over, 70, 70, PushLoss, Loss},
		{"push under is loss", Under, 70, 70, PushLoss, Loss},
		{"push void", Over, 70, 70, PushVoid, ""},
		{"void mode still grades misses", Under, 75, 70, PushVoid, Loss},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GradeCall(tt.call, tt.actual, tt.line, tt.mode))
		})
	}
}

func TestPredict_PushModes(t *testing.T) {
	// Predicted total 58.0, line 128 * 0.46 = 59.0, actual lands on 59.
	in := GameInput{MarketTotal: ptrFloat(128), AwayFirstHalf: ptrInt(29), HomeFirstHalf: ptrInt(30)}

	res, ok := quietEngine(Config{PushMode: PushLoss}).Predict(in, homeSide, awaySide)
	require.True(t, ok)
	assert.Equal(t, Loss, res.WinLoss)

	res, ok = quietEngine(Config{PushMode: PushVoid}).Predict(in, homeSide, awaySide)
	require.True(t, ok)
	assert.Empty(t, res.WinLoss)
	assert.Equal(t, Under, res.OverUnder)
}

func TestParsePushMode(t *testing.T) {
	m, err := ParsePushMode("")
	require.NoError(t, err)
	assert.Equal(t, PushLoss, m)

	m, err = ParsePushMode("void")
	require.NoError(t, err)
	assert.Equal(t, PushVoid, m)

	_, err = ParsePushMode("refund")
	assert.Error(t, err)
}

func TestNewEngine_Defaults(t *testing.T) {
	e := NewEngine(Config{}, nil)
	assert.Equal(t, DefaultHalfLineFraction, e.Fraction())
}
