package prediction

import (
	"fmt"
	"log"
	"math"
)

// DefaultHalfLineFraction scales a full-game market total to a first-half line.
const DefaultHalfLineFraction = 0.46

// Call is the engine's directional pick against the estimated half line.
type Call string

const (
	Over  Call = "Over"
	Under Call = "Under"
)

// Grade is the outcome of a call once the first half is final.
type Grade string

const (
	Win  Grade = "Win"
	Loss Grade = "Loss"
)

// PushMode controls how a first half landing exactly on the line is graded.
type PushMode string

const (
	// PushLoss grades an exact match as a Loss.
	PushLoss PushMode = "loss"
	// PushVoid leaves an exact match ungraded.
	PushVoid PushMode = "void"
)

// ParsePushMode converts a configuration value into a PushMode.
func ParsePushMode(s string) (PushMode, error) {
	switch PushMode(s) {
	case "":
		return PushLoss, nil
	case PushLoss, PushVoid:
		return PushMode(s), nil
	}
	return "", fmt.Errorf("unknown push mode %q", s)
}

// Config tunes the engine.
type Config struct {
	HalfLineFraction float64
	PushMode         PushMode
	// Season restricts team history to one season; 0 uses every game.
	Season int
}

// GameInput is the market and scoreboard data known for the game being graded.
type GameInput struct {
	MarketTotal   *float64
	AwayFirstHalf *int
	HomeFirstHalf *int
}

// Result is the prediction attached to a game.
type Result struct {
	AwayPredicted     float64  `json:"away_predicted"`
	HomePredicted     float64  `json:"home_predicted"`
	PredictedTotal    float64  `json:"predicted_total"`
	EstimatedHalfLine *float64 `json:"estimated_half_line"`
	ActualHalfLine    *int     `json:"actual_half_line"`
	OverUnder         Call     `json:"over_under,omitempty"`
	WinLoss           Grade    `json:"win_loss,omitempty"`
}

// Engine turns two teams' first-half records and a game's line into a
// predicted score, an over/under call, and a grade. It holds no mutable state.
type Engine struct {
	fraction float64
	pushMode PushMode
	season   int
	logger   *log.Logger
}

// NewEngine creates an engine. A zero fraction falls back to the default.
func NewEngine(cfg Config, logger *log.Logger) *Engine {
	if cfg.HalfLineFraction <= 0 {
		cfg.HalfLineFraction = DefaultHalfLineFraction
	}
	if cfg.PushMode == "" {
		cfg.PushMode = PushLoss
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		fraction: cfg.HalfLineFraction,
		pushMode: cfg.PushMode,
		season:   cfg.Season,
		logger:   logger,
	}
}

// WithSeason returns a copy of the engine restricted to one season.
func (e *Engine) WithSeason(season int) *Engine {
	c := *e
	c.season = season
	return &c
}

// Season returns the season filter, 0 for every season.
func (e *Engine) Season() int {
	return e.season
}

// Fraction returns the configured market-total fraction.
func (e *Engine) Fraction() float64 {
	return e.fraction
}

// Project computes the predicted away, home, and total first-half scores.
//
// The away side's score blends the home team's home scoring with the away
// team's away allowance, and symmetrically for the home side.
func (e *Engine) Project(home, away TeamHistory) (awayScore, homeScore, total float64) {
	avg := func(h TeamHistory, side Side, metric Metric) float64 {
		return averageFirstHalf(h, side, metric, e.season, e.logger)
	}

	awayScore = Round1((avg(home, Home, Scores) + avg(away, Away, Allow)) / 2)
	homeScore = Round1((avg(home, Away, Scores) + avg(away, Home, Allow)) / 2)
	total = Round1(awayScore + homeScore)
	return awayScore, homeScore, total
}

// Predict runs the full pipeline for one game. It returns false when either
// projected side is zero, which means the teams lack usable history; no
// line is graded in that case.
func (e *Engine) Predict(game GameInput, home, away TeamHistory) (*Result, bool) {
	awayScore, homeScore, total := e.Project(home, away)
	if awayScore == 0 || homeScore == 0 || total == 0 {
		return nil, false
	}

	res := &Result{
		AwayPredicted:  awayScore,
		HomePredicted:  homeScore,
		PredictedTotal: total,
	}

	if game.MarketTotal != nil {
		line := EstimateHalfLine(*game.MarketTotal, e.fraction)
		res.EstimatedHalfLine = &line
	}

	if game.AwayFirstHalf != nil && game.HomeFirstHalf != nil {
		actual := *game.AwayFirstHalf + *game.HomeFirstHalf
		res.ActualHalfLine = &actual
	}

	if res.EstimatedHalfLine != nil {
		res.OverUnder = CallFor(total, *res.EstimatedHalfLine)
		if res.ActualHalfLine != nil {
			res.WinLoss = GradeCall(res.OverUnder, float64(*res.ActualHalfLine), *res.EstimatedHalfLine, e.pushMode)
		}
	}

	return res, true
}

// EstimateHalfLine scales a full-game total and rounds to the nearest 0.5.
func EstimateHalfLine(marketTotal, fraction float64) float64 {
	return RoundHalf(marketTotal * fraction)
}

// CallFor picks Under only when the prediction is strictly below the line.
func CallFor(predicted, line float64) Call {
	if predicted < line {
		return Under
	}
	return Over
}

// GradeCall grades a call against the actual first-half total. An empty
// Grade means the call is ungraded (a push under PushVoid).
func GradeCall(call Call, actual, line float64, mode PushMode) Grade {
	if actual == line && mode == PushVoid {
		return ""
	}
	if (actual > line && call == Over) || (actual < line && call == Under) {
		return Win
	}
	return Loss
}

// Round1 rounds half-up to one decimal place.
func Round1(x float64) float64 {
	return math.Floor(x*10+0.5) / 10
}

// RoundHalf rounds half-up to the nearest 0.5.
func RoundHalf(x float64) float64 {
	return math.Floor(x*2+0.5) / 2
}
