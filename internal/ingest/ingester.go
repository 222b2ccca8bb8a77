package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/fortuna/halfline/internal/feed"
	"github.com/fortuna/halfline/internal/prediction"
	"github.com/fortuna/halfline/internal/store"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Sport tags every record and stream written by the ingester.
const Sport = "basketball_ncaab"

// Feed walks the upstream schedule page by page.
type Feed interface {
	Pages(ctx context.Context, from, to time.Time, fn func([]feed.Game) error) error
}

// TeamStore resolves teams and loads their played games.
type TeamStore interface {
	ResolveOrCreate(ctx context.Context, name, mascot string, attrs store.TeamAttributes) (*store.Team, error)
	LoadHistory(ctx context.Context, teamID int64, before time.Time) (prediction.TeamHistory, error)
}

// GameStore persists game records.
type GameStore interface {
	Upsert(ctx context.Context, game *store.Game) (bool, error)
}

// Invalidator drops cached per-day payloads.
type Invalidator interface {
	InvalidateGameDays(ctx context.Context, days ...string) error
}

// Publisher announces written records and finished runs.
type Publisher interface {
	PublishPrediction(ctx context.Context, event interface{}) error
	PublishSyncReport(ctx context.Context, report interface{}) error
}

// Options configures an Ingester. Cache and publisher are optional.
type Options struct {
	Feed      Feed
	Teams     TeamStore
	Games     GameStore
	Engine    *prediction.Engine
	Market    feed.MarketSource
	Location  *time.Location
	Cache     Invalidator
	Publisher Publisher
}

// Ingester syncs feed games into storage, attaching a prediction and grade
// to every record it writes.
type Ingester struct {
	feed      Feed
	teams     TeamStore
	games     GameStore
	engine    *prediction.Engine
	market    feed.MarketSource
	loc       *time.Location
	cache     Invalidator
	publisher Publisher
}

// NewIngester creates an ingester
func NewIngester(opts Options) *Ingester {
	if opts.Market == "" {
		opts.Market = feed.MarketOpen
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Engine == nil {
		opts.Engine = prediction.NewEngine(prediction.Config{}, nil)
	}
	return &Ingester{
		feed:      opts.Feed,
		teams:     opts.Teams,
		games:     opts.Games,
		engine:    opts.Engine,
		market:    opts.Market,
		loc:       opts.Location,
		cache:     opts.Cache,
		publisher: opts.Publisher,
	}
}

// SyncReport summarizes one sync run.
type SyncReport struct {
	RunID      string    `json:"run_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Seen       int       `json:"seen"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Skipped    int       `json:"skipped"`
	Predicted  int       `json:"predicted"`
	Graded     int       `json:"graded"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Written is the number of records created or updated.
func (r SyncReport) Written() int {
	return r.Created + r.Updated
}

// PredictionEvent is published for every written record.
type PredictionEvent struct {
	RunID             string             `json:"run_id"`
	Sport             string             `json:"sport"`
	ExternalID        int64              `json:"external_id"`
	GameDate          time.Time          `json:"game_date"`
	Away              string             `json:"away"`
	Home              string             `json:"home"`
	Status            string             `json:"status,omitempty"`
	Prediction        *prediction.Result `json:"prediction,omitempty"`
	EstimatedHalfLine *float64           `json:"estimated_half_line,omitempty"`
	ActualHalfLine    *int               `json:"actual_half_line,omitempty"`
}

// Sync ingests every game scheduled between from and to (inclusive dates).
// The whole window is read before anything is written so games can be
// ingested in tip-off order. A feed failure aborts the run with nothing
// written; a failure on one game is logged and the game is counted as
// skipped.
func (i *Ingester) Sync(ctx context.Context, from, to time.Time) (*SyncReport, error) {
	report := &SyncReport{
		RunID:     uuid.NewString(),
		From:      from.Format("2006-01-02"),
		To:        to.Format("2006-01-02"),
		StartedAt: time.Now(),
	}
	log.Printf("[ingest] Sync %s started for %s..%s", report.RunID, report.From, report.To)

	var games []feed.Game
	err := i.feed.Pages(ctx, from, to, func(page []feed.Game) error {
		games = append(games, page...)
		return nil
	})
	if err != nil {
		report.FinishedAt = time.Now()
		return report, fmt.Errorf("sync %s..%s: %w", report.From, report.To, err)
	}

	// Earlier games must be stored before later ones load their history.
	sort.SliceStable(games, func(a, b int) bool {
		return games[a].Schedule.Date.Before(games[b].Schedule.Date)
	})

	touched := make(map[string]struct{})
	for idx := range games {
		if err := ctx.Err(); err != nil {
			// Days already written must not stay hidden behind the cache.
			i.invalidate(context.WithoutCancel(ctx), touched)
			report.FinishedAt = time.Now()
			return report, fmt.Errorf("sync %s..%s: %w", report.From, report.To, err)
		}
		report.Seen++
		day, err := i.ingestGame(ctx, report, &games[idx])
		if err != nil {
			report.Skipped++
			log.Printf("[ingest] Skipping game %d: %v", games[idx].GameID, err)
			continue
		}
		touched[day] = struct{}{}
	}
	report.FinishedAt = time.Now()

	i.invalidate(ctx, touched)
	if i.publisher != nil {
		if err := i.publisher.PublishSyncReport(ctx, report); err != nil {
			log.Printf("[ingest] Failed to publish sync report: %v", err)
		}
	}

	log.Printf("[ingest] ✓ Sync %s: seen=%d created=%d updated=%d skipped=%d predicted=%d graded=%d",
		report.RunID, report.Seen, report.Created, report.Updated, report.Skipped, report.Predicted, report.Graded)
	return report, nil
}

// ingestGame writes one feed game and returns its calendar day.
func (i *Ingester) ingestGame(ctx context.Context, report *SyncReport, g *feed.Game) (string, error) {
	away, err := i.resolveTeam(ctx, g.Teams.Away)
	if err != nil {
		return "", fmt.Errorf("away team: %w", err)
	}
	home, err := i.resolveTeam(ctx, g.Teams.Home)
	if err != nil {
		return "", fmt.Errorf("home team: %w", err)
	}
	if away.TeamID == home.TeamID {
		return "", fmt.Errorf("away and home resolve to the same team %d", away.TeamID)
	}

	// Both snapshots are taken before anything for this game is written.
	homeHistory, err := i.teams.LoadHistory(ctx, home.TeamID, g.Schedule.Date)
	if err != nil {
		return "", fmt.Errorf("loading home history: %w", err)
	}
	awayHistory, err := i.teams.LoadHistory(ctx, away.TeamID, g.Schedule.Date)
	if err != nil {
		return "", fmt.Errorf("loading away history: %w", err)
	}

	input := prediction.GameInput{}
	if total, ok := g.MarketTotal(i.market); ok {
		input.MarketTotal = &total
	}
	if a, h, ok := g.FirstHalf(); ok {
		input.AwayFirstHalf = &a
		input.HomeFirstHalf = &h
	}

	res, predicted := i.engine.Predict(input, homeHistory, awayHistory)
	record := i.buildRecord(g, away.TeamID, home.TeamID, input, res)

	created, err := i.games.Upsert(ctx, record)
	if err != nil {
		return "", err
	}

	if created {
		report.Created++
	} else {
		report.Updated++
	}
	if predicted {
		report.Predicted++
		if res.WinLoss != "" {
			report.Graded++
		}
	}

	i.publish(ctx, report.RunID, g, away, home, record, res)
	return g.Schedule.Date.In(i.loc).Format("2006-01-02"), nil
}

func (i *Ingester) resolveTeam(ctx context.Context, t feed.TeamInfo) (*store.Team, error) {
	return i.teams.ResolveOrCreate(ctx, t.Team, t.Mascot, store.TeamAttributes{
		Location:     t.Location,
		Conference:   t.Conference,
		Division:     t.Division,
		Abbreviation: t.Abbreviation,
	})
}

// buildRecord maps a feed game and its prediction onto a storage row. The
// market and scoreboard lines are stored even when the prediction is
// suppressed; the predicted fields then stay 0 and call and grade stay null.
func (i *Ingester) buildRecord(g *feed.Game, awayID, homeID int64, in prediction.GameInput, res *prediction.Result) *store.Game {
	record := &store.Game{
		ExternalID:  g.GameID,
		Sport:       Sport,
		GameDate:    g.Schedule.Date,
		Season:      sql.NullInt32{Int32: int32(g.Details.Season), Valid: g.Details.Season != 0},
		SeasonType:  sql.NullString{String: g.Details.SeasonType, Valid: g.Details.SeasonType != ""},
		Status:      sql.NullString{String: g.Status, Valid: g.Status != ""},
		AwayTeamID:  awayID,
		HomeTeamID:  homeID,
		AwayPeriods: toInt64Array(g.AwayPeriods()),
		HomePeriods: toInt64Array(g.HomePeriods()),
	}
	if len(g.Raw) > 0 {
		record.GameData = sql.NullString{String: string(g.Raw), Valid: true}
	}

	if in.MarketTotal != nil {
		line := prediction.EstimateHalfLine(*in.MarketTotal, i.engine.Fraction())
		record.EstimatedHalfLine = sql.NullFloat64{Float64: line, Valid: true}
	}
	if in.AwayFirstHalf != nil && in.HomeFirstHalf != nil {
		record.ActualHalfScore = sql.NullInt32{Int32: int32(*in.AwayFirstHalf + *in.HomeFirstHalf), Valid: true}
	}

	if res != nil {
		record.PredictedAwayScore = res.AwayPredicted
		record.PredictedHomeScore = res.HomePredicted
		record.PredictedHalfScore = res.PredictedTotal
		record.OverUnder = sql.NullString{String: string(res.OverUnder), Valid: res.OverUnder != ""}
		record.WinLoss = sql.NullString{String: string(res.WinLoss), Valid: res.WinLoss != ""}
	}
	return record
}

func (i *Ingester) publish(ctx context.Context, runID string, g *feed.Game, away, home *store.Team, record *store.Game, res *prediction.Result) {
	if i.publisher == nil {
		return
	}
	event := PredictionEvent{
		RunID:      runID,
		Sport:      Sport,
		ExternalID: g.GameID,
		GameDate:   g.Schedule.Date,
		Away:       away.DisplayName(),
		Home:       home.DisplayName(),
		Status:     g.Status,
		Prediction: res,
	}
	if record.EstimatedHalfLine.Valid {
		v := record.EstimatedHalfLine.Float64
		event.EstimatedHalfLine = &v
	}
	if record.ActualHalfScore.Valid {
		v := int(record.ActualHalfScore.Int32)
		event.ActualHalfLine = &v
	}
	if err := i.publisher.PublishPrediction(ctx, event); err != nil {
		log.Printf("[ingest] Failed to publish game %d: %v", g.GameID, err)
	}
}

func (i *Ingester) invalidate(ctx context.Context, touched map[string]struct{}) {
	if i.cache == nil || len(touched) == 0 {
		return
	}
	days := make([]string, 0, len(touched))
	for d := range touched {
		days = append(days, d)
	}
	if err := i.cache.InvalidateGameDays(ctx, days...); err != nil {
		log.Printf("[ingest] Failed to invalidate cached days %v: %v", days, err)
	}
}

func toInt64Array(periods []int) pq.Int64Array {
	out := make(pq.Int64Array, len(periods))
	for idx, v := range periods {
		out[idx] = int64(v)
	}
	return out
}
