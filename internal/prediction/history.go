package prediction

import "fmt"

// Side selects which side of the floor a team's games are evaluated from.
type Side string

const (
	Home Side = "home"
	Away Side = "away"
)

// Metric selects points scored by the team or points allowed to its opponent.
type Metric string

const (
	Scores Metric = "scores"
	Allow  Metric = "allow"
)

// ParseSide converts a query value into a Side.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case Home, Away:
		return Side(s), nil
	}
	return "", fmt.Errorf("unknown side %q", s)
}

// ParseMetric converts a query value into a Metric.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case Scores, Allow:
		return Metric(s), nil
	}
	return "", fmt.Errorf("unknown metric %q", s)
}

// HistoricalGame is a team's view of a game it already played.
// Index 0 of each period sequence is the first half.
type HistoricalGame struct {
	GameID      int64
	Season      int
	AwayPeriods []int
	HomePeriods []int
}

// TeamHistory holds the two disjoint sets of games a team played.
type TeamHistory struct {
	TeamID int64
	AsAway []HistoricalGame
	AsHome []HistoricalGame
}

// Empty reports whether the team has no recorded games at all.
func (h TeamHistory) Empty() bool {
	return len(h.AsAway) == 0 && len(h.AsHome) == 0
}

func (g HistoricalGame) firstHalf(periods []int) (int, bool, error) {
	if len(periods) == 0 {
		return 0, false, nil
	}
	if periods[0] < 0 {
		return 0, false, fmt.Errorf("game %d: negative first-half value %d", g.GameID, periods[0])
	}
	return periods[0], true, nil
}
