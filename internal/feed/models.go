package feed

import (
	"encoding/json"
	"time"
)

// MarketSource selects which odds snapshot supplies the full-game total.
type MarketSource string

const (
	MarketOpen    MarketSource = "open"
	MarketCurrent MarketSource = "current"
)

// Response is one page of the games endpoint.
type Response struct {
	Status  int               `json:"status"`
	Time    string            `json:"time"`
	Games   int               `json:"games"`
	Skip    int               `json:"skip"`
	Results []json.RawMessage `json:"results"`
}

// Game is a single scheduled or played game as the feed describes it.
type Game struct {
	GameID      int64       `json:"gameId"`
	Summary     string      `json:"summary"`
	Status      string      `json:"status"`
	Schedule    Schedule    `json:"schedule"`
	Details     Details     `json:"details"`
	Teams       Matchup     `json:"teams"`
	Odds        []Odds      `json:"odds"`
	Venue       *Venue      `json:"venue"`
	Scoreboard  *Scoreboard `json:"scoreboard"`
	LastUpdated string      `json:"lastUpdated"`

	// Raw is the game's original JSON, stored alongside the record.
	Raw json.RawMessage `json:"-"`
}

type Schedule struct {
	Date    time.Time `json:"date"`
	TBATime bool      `json:"tbaTime"`
}

type Details struct {
	League         string `json:"league"`
	SeasonType     string `json:"seasonType"`
	Season         int    `json:"season"`
	ConferenceGame bool   `json:"conferenceGame"`
	DivisionGame   bool   `json:"divisionGame"`
}

type Matchup struct {
	Away TeamInfo `json:"away"`
	Home TeamInfo `json:"home"`
}

// TeamInfo identifies a team by (Team, Mascot); the rest is descriptive.
type TeamInfo struct {
	Team         string `json:"team"`
	Location     string `json:"location"`
	Mascot       string `json:"mascot"`
	Abbreviation string `json:"abbreviation"`
	Conference   string `json:"conference"`
	Division     string `json:"division"`
}

type Odds struct {
	Total       TotalMarket `json:"total"`
	OpenDate    string      `json:"openDate"`
	LastUpdated string      `json:"lastUpdated"`
}

type TotalMarket struct {
	Open    TotalLine `json:"open"`
	Current TotalLine `json:"current"`
}

type TotalLine struct {
	Total     float64 `json:"total"`
	OverOdds  float64 `json:"overOdds"`
	UnderOdds float64 `json:"underOdds"`
}

type Venue struct {
	Name        string `json:"name"`
	City        string `json:"city"`
	State       string `json:"state"`
	NeutralSite bool   `json:"neutralSite"`
}

type Scoreboard struct {
	Score               Score  `json:"score"`
	CurrentPeriod       int    `json:"currentPeriod"`
	PeriodTimeRemaining string `json:"periodTimeRemaining"`
}

type Score struct {
	Away        int   `json:"away"`
	Home        int   `json:"home"`
	AwayPeriods []int `json:"awayPeriods"`
	HomePeriods []int `json:"homePeriods"`
}

// MarketTotal returns the full-game total from the first odds entry. The
// preferred snapshot is used when it carries a total, otherwise the other one.
func (g *Game) MarketTotal(source MarketSource) (float64, bool) {
	if len(g.Odds) == 0 {
		return 0, false
	}
	t := g.Odds[0].Total
	first, second := t.Open.Total, t.Current.Total
	if source == MarketCurrent {
		first, second = second, first
	}
	switch {
	case first > 0:
		return first, true
	case second > 0:
		return second, true
	}
	return 0, false
}

// AwayPeriods returns the away side's per-period points, nil before tip-off.
func (g *Game) AwayPeriods() []int {
	if g.Scoreboard == nil {
		return nil
	}
	return g.Scoreboard.Score.AwayPeriods
}

// HomePeriods returns the home side's per-period points, nil before tip-off.
func (g *Game) HomePeriods() []int {
	if g.Scoreboard == nil {
		return nil
	}
	return g.Scoreboard.Score.HomePeriods
}

// FirstHalf returns both sides' first-half points when both are known.
func (g *Game) FirstHalf() (away, home int, ok bool) {
	a, h := g.AwayPeriods(), g.HomePeriods()
	if len(a) == 0 || len(h) == 0 {
		return 0, 0, false
	}
	return a[0], h[0], true
}
