package prediction

import (
	"log"
)

// AverageFirstHalf returns the team's average first-half points for one of
// the four (side, metric) slices. A season of 0 disables season filtering.
//
// Games played away feed the away-scores and home-allow slices; games played
// at home feed the home-scores and away-allow slices. In each case the value
// read is the period-0 entry of the side named by the slice, so "allow"
// reads the opponent's half of the team's own record.
//
// The result is unrounded and is 0 when no game qualifies. Malformed games
// are logged and skipped.
func AverageFirstHalf(h TeamHistory, side Side, metric Metric, season int) float64 {
	return averageFirstHalf(h, side, metric, season, log.Default())
}

func averageFirstHalf(h TeamHistory, side Side, metric Metric, season int, logger *log.Logger) float64 {
	avg, _ := firstHalfSlice(h, side, metric, season, logger)
	return avg
}

// firstHalfSlice returns the slice average and the number of games behind it.
func firstHalfSlice(h TeamHistory, side Side, metric Metric, season int, logger *log.Logger) (float64, int) {
	var total, count int

	accumulate := func(games []HistoricalGame, periodsOf func(HistoricalGame) []int) {
		for _, g := range games {
			if season != 0 && g.Season != season {
				continue
			}
			v, ok, err := g.firstHalf(periodsOf(g))
			if err != nil {
				logger.Printf("[prediction] Skipping malformed game for team %d: %v", h.TeamID, err)
				continue
			}
			if !ok {
				continue
			}
			total += v
			count++
		}
	}

	awayPeriods := func(g HistoricalGame) []int { return g.AwayPeriods }
	homePeriods := func(g HistoricalGame) []int { return g.HomePeriods }

	switch {
	case side == Away && metric == Scores:
		accumulate(h.AsAway, awayPeriods)
	case side == Home && metric == Allow:
		accumulate(h.AsAway, homePeriods)
	case side == Home && metric == Scores:
		accumulate(h.AsHome, homePeriods)
	case side == Away && metric == Allow:
		accumulate(h.AsHome, awayPeriods)
	}

	if count == 0 {
		return 0, 0
	}
	return float64(total) / float64(count), count
}

// Averages is the four-slice summary shown for a team.
type Averages struct {
	TeamID      int64   `json:"team_id"`
	Season      int     `json:"season,omitempty"`
	HomeScores  float64 `json:"home_scores"`
	AwayScores  float64 `json:"away_scores"`
	HomeAllows  float64 `json:"home_allows"`
	AwayAllows  float64 `json:"away_allows"`
	// Games with a first half on record, the denominators of the two
	// scoring slices.
	GamesAsHome int     `json:"games_as_home"`
	GamesAsAway int     `json:"games_as_away"`
}

// Summarize computes every slice for a team, each rounded to one decimal.
func Summarize(h TeamHistory, season int) Averages {
	logger := log.Default()
	homeScores, homeGames := firstHalfSlice(h, Home, Scores, season, logger)
	awayScores, awayGames := firstHalfSlice(h, Away, Scores, season, logger)
	homeAllows, _ := firstHalfSlice(h, Home, Allow, season, logger)
	awayAllows, _ := firstHalfSlice(h, Away, Allow, season, logger)

	return Averages{
		TeamID:      h.TeamID,
		Season:      season,
		HomeScores:  Round1(homeScores),
		AwayScores:  Round1(awayScores),
		HomeAllows:  Round1(homeAllows),
		AwayAllows:  Round1(awayAllows),
		GamesAsHome: homeGames,
		GamesAsAway: awayGames,
	}
}
