package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fortuna/halfline/internal/api/rest"
	"github.com/fortuna/halfline/internal/api/websocket"
	"github.com/fortuna/halfline/internal/backfill"
	"github.com/fortuna/halfline/internal/cache"
	"github.com/fortuna/halfline/internal/config"
	"github.com/fortuna/halfline/internal/feed"
	"github.com/fortuna/halfline/internal/ingest"
	"github.com/fortuna/halfline/internal/ingest/directory"
	"github.com/fortuna/halfline/internal/notify"
	"github.com/fortuna/halfline/internal/prediction"
	"github.com/fortuna/halfline/internal/publisher"
	"github.com/fortuna/halfline/internal/scheduler"
	"github.com/fortuna/halfline/internal/service"
	"github.com/fortuna/halfline/internal/store"
	"github.com/fortuna/halfline/internal/store/repository"
)

const (
	serviceName    = "halfline"
	serviceVersion = "1.0.0"
)

func main() {
	log.Printf("Starting %s v%s - NCAAB first-half predictions", serviceName, serviceVersion)

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	loc := cfg.Location()

	db, err := store.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("✓ Connected to database")

	if err := db.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	// Redis may come up after us in compose; keep trying for a minute.
	var redisCache *cache.RedisCache
	maxRetries := 30
	retryDelay := 2 * time.Second

	log.Println("Connecting to Redis...")
	for i := 0; i < maxRetries; i++ {
		redisCache, err = cache.NewRedisCache(cfg.Redis.URL)
		if err == nil {
			break
		}

		if i < maxRetries-1 {
			log.Printf("Redis connection attempt %d/%d failed: %v (retrying in %v)", i+1, maxRetries, err, retryDelay)
			time.Sleep(retryDelay)
		} else {
			log.Fatalf("Failed to connect to Redis after %d attempts: %v", maxRetries, err)
		}
	}
	defer redisCache.Close()
	log.Println("✓ Connected to Redis")

	streamPublisher := publisher.NewRedisStreamPublisher(redisCache.Client())

	engine, err := newEngine(cfg)
	if err != nil {
		log.Fatalf("Invalid prediction settings: %v", err)
	}

	teams := repository.NewTeamRepository(db)
	games := repository.NewGameRepository(db)

	ingester := ingest.NewIngester(ingest.Options{
		Feed:      newFeed(cfg),
		Teams:     teams,
		Games:     games,
		Engine:    engine,
		Market:    feed.MarketSource(cfg.Prediction.MarketTotal),
		Location:  loc,
		Cache:     redisCache,
		Publisher: streamPublisher,
	})

	gameService := service.NewGameService(games, redisCache, cfg.Redis.GamesTTL, loc)
	teamService := service.NewTeamService(teams, engine)

	backfillService := backfill.NewService(backfill.NewRunner(ingester), nil)
	backfillService.Start()
	log.Println("✓ Backfill service started")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sched *scheduler.Orchestrator
	if cfg.Scheduler.Enabled {
		var dir scheduler.DirectoryBackfiller
		if cfg.Directory.URL != "" {
			browser := directory.NewClient(cfg.Directory.Headless, cfg.Directory.Timeout)
			defer browser.Close()
			dir = directory.NewBackfiller(browser, teams, cfg.Directory.URL)
		}

		var picks scheduler.PicksNotifier
		if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != 0 {
			n, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, gameService, loc)
			if err != nil {
				log.Printf("⚠️  Telegram disabled: %v", err)
			} else {
				picks = n
			}
		}

		schedLoc, err := time.LoadLocation(cfg.Scheduler.Timezone)
		if err != nil {
			schedLoc = loc
		}
		sched, err = scheduler.NewOrchestrator(ingester, dir, picks, &scheduler.Config{
			SyncCron:      cfg.Scheduler.Cron,
			DirectoryCron: cfg.Scheduler.DirectoryCron,
			PicksCron:     cfg.Scheduler.PicksCron,
			Location:      schedLoc,
			LookbackDays:  cfg.Scheduler.LookbackDays,
			LookaheadDays: cfg.Scheduler.LookaheadDays,
			JobTimeout:    10 * time.Minute,
			RunOnStart:    true,
		})
		if err != nil {
			log.Fatalf("Failed to create scheduler: %v", err)
		}
		go sched.Start(ctx)
		log.Println("✓ Scheduler started")
	}

	restServer := rest.NewServer(cfg.Server.RESTPort,
		rest.NewHandler(db, gameService, teamService),
		rest.NewBackfillHandler(backfillService))
	go func() {
		log.Printf("Starting REST API server on port %s", cfg.Server.RESTPort)
		if err := restServer.Start(); err != nil {
			log.Printf("REST server error: %v", err)
		}
	}()

	hub := websocket.NewHub()
	wsServer := websocket.NewServer(hub, websocket.NewStreamConsumer(redisCache.Client(), publisher.PredictionStream, hub))
	go func() {
		log.Printf("Starting WebSocket server on port %s", cfg.Server.WSPort)
		if err := wsServer.Start(cfg.Server.WSPort); err != nil {
			log.Printf("WebSocket server error: %v", err)
		}
	}()

	log.Printf("✓ %s v%s started", serviceName, serviceVersion)
	log.Printf("  REST API: http://0.0.0.0:%s", cfg.Server.RESTPort)
	log.Printf("  WebSocket: ws://0.0.0.0:%s/ws/predictions", cfg.Server.WSPort)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Printf("Shutting down %s gracefully...", serviceName)

	cancel()
	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := backfillService.Shutdown(shutdownCtx); err != nil {
		log.Printf("Backfill shutdown error: %v", err)
	}
	if err := restServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("REST API server shutdown error: %v", err)
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("WebSocket server shutdown error: %v", err)
	}

	log.Printf("%s stopped", serviceName)
}

func newEngine(cfg *config.Config) (*prediction.Engine, error) {
	mode, err := prediction.ParsePushMode(cfg.Prediction.PushMode)
	if err != nil {
		return nil, err
	}
	return prediction.NewEngine(prediction.Config{
		HalfLineFraction: cfg.Prediction.HalfLineFraction,
		PushMode:         mode,
		Season:           cfg.Prediction.Season,
	}, log.Default()), nil
}

func newFeed(cfg *config.Config) *feed.Client {
	return feed.New(feed.Options{
		BaseURL:  cfg.Feed.BaseURL,
		APIKey:   cfg.Feed.APIKey,
		APIHost:  cfg.Feed.APIHost,
		League:   cfg.Feed.League,
		PageSize: cfg.Feed.PageSize,
		MaxSkip:  cfg.Feed.MaxSkip,
		Timeout:  cfg.Feed.Timeout,
	})
}
