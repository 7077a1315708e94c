package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/douoai/jijin/internal/adapter/apiclient"
	"github.com/douoai/jijin/internal/adapter/exchange"
	"github.com/douoai/jijin/internal/adapter/generator"
	"github.com/douoai/jijin/internal/adapter/handler"
	"github.com/douoai/jijin/internal/adapter/publisher"
	"github.com/douoai/jijin/internal/application/service"
	"github.com/douoai/jijin/internal/concurrency/fanout"
	"github.com/douoai/jijin/internal/concurrency/scheduler"
	"github.com/douoai/jijin/internal/concurrency/worker"
	"github.com/douoai/jijin/internal/domain/history"
	"github.com/douoai/jijin/internal/domain/model"
	"github.com/douoai/jijin/internal/domain/port"
	"github.com/douoai/jijin/internal/infrastructure/config"
	"github.com/douoai/jijin/internal/infrastructure/logger"
	"github.com/douoai/jijin/internal/infrastructure/server"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to config file")
	portFlag   = flag.Int("port", 0, "Port number")
	modeFlag   = flag.String("mode", "", "Data mode: live or test")
	helpFlag   = flag.Bool("help", false, "Show help")
)

type App struct {
	config    *config.Config
	logger    zerolog.Logger
	server    *server.Server
	scheduler *scheduler.Scheduler
	pool      *worker.Pool
	hub       *fanout.Hub
	kafka     *publisher.KafkaPublisher
}

func main() {
	flag.Parse()

	if *helpFlag {
		printUsage()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *portFlag != 0 {
		cfg.Tracker.Port = *portFlag
	}
	if *modeFlag != "" {
		cfg.Tracker.Mode = *modeFlag
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	mode, err := model.ParseDataMode(cfg.Tracker.Mode)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid tracker mode")
	}
	log.Info().Str("version", "1.0.0").Stringer("mode", mode).Msg("starting jijin tracker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app := &App{
		config: cfg,
		logger: log,
		hub:    fanout.NewHub(),
	}

	upstream := exchange.NewClient(exchange.ClientOptions{
		Timeout:        cfg.Upstream.RequestTimeout,
		RequestsPerSec: cfg.Upstream.RequestsPerSec,
		MaxRetries:     cfg.Upstream.MaxRetries,
	})

	quotes := exchange.NewGoldPriceFeed("goldprice", cfg.Upstream.GoldURL, upstream)
	var rates []port.RateSource
	if cfg.Upstream.RatePrimaryURL != "" {
		rates = append(rates, exchange.NewRateFeed("rate-primary", cfg.Upstream.RatePrimaryURL, "CNY", upstream))
	}
	if cfg.Upstream.RateBackupURL != "" {
		rates = append(rates, exchange.NewRateFeed("rate-backup", cfg.Upstream.RateBackupURL, "CNY", upstream))
	}

	fetcher := service.NewFetcher(quotes, rates, cfg.Upstream.DefaultRate, logger.Component(log, "fetcher"))

	simulator, err := newSimulator(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid test mode settings")
	}

	capacity := cfg.HistoryCapacity()
	deps := service.TrackerDeps{
		Fetcher:     fetcher,
		Simulator:   simulator,
		Backfill:    simulator,
		Modes:       service.NewModeService(mode, logger.Component(log, "mode")),
		Line:        history.NewBuffer(capacity, cfg.Tracker.DedupEpsilon),
		Candles:     history.NewCandleBuffer(cfg.Tracker.CandleCapacity, cfg.Tracker.CandleBucket),
		Broadcaster: app.hub,
		Logger:      logger.Component(log, "tracker"),
	}

	var (
		sinks    []port.PriceSink
		priceAPI *apiclient.PriceAPI
	)
	if cfg.Persistence.Enabled {
		storeClient := exchange.NewClient(exchange.ClientOptions{
			Timeout:        cfg.Persistence.WriteTimeout,
			RequestsPerSec: 20,
		})
		priceAPI = apiclient.New(cfg.Persistence.APIBaseURL, storeClient)
		sinks = append(sinks, priceAPI)
	}
	if cfg.Kafka.Enabled {
		app.kafka = publisher.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		sinks = append(sinks, app.kafka)
	}
	if len(sinks) > 0 {
		app.pool = worker.NewPool(cfg.Persistence.Workers, cfg.Persistence.QueueSize, cfg.Persistence.WriteTimeout, sinks, logger.Component(log, "persistence"))
		app.pool.Start(ctx)
		deps.Persister = app.pool
	}

	tracker := service.NewTracker(deps)

	if mode == model.TestMode {
		tracker.SeedSimulated()
	} else if cfg.Tracker.LoadHistory && priceAPI != nil {
		hours := int(math.Ceil(cfg.Tracker.HistoryWindow.Hours()))
		if hours < 1 {
			hours = 1
		}
		seedCtx, seedCancel := context.WithTimeout(ctx, cfg.Upstream.RequestTimeout)
		n, err := tracker.SeedFromStore(seedCtx, priceAPI, hours, capacity)
		seedCancel()
		if err != nil {
			log.Warn().Err(err).Msg("failed to load history, starting empty")
		} else {
			log.Info().Int("samples", n).Msg("history loaded from price store")
		}
	}

	app.scheduler = scheduler.New("tracker", cfg.Tracker.Interval, tracker.Cycle, logger.Component(log, "scheduler"))

	gin.SetMode(gin.ReleaseMode)
	router := handler.NewEngine(logger.Component(log, "http"))
	handler.NewChartHandler(tracker, app.hub, app.scheduler, logger.Component(log, "chart_handler")).RegisterRoutes(router)
	handler.NewModeHandler(tracker, logger.Component(log, "mode_handler")).RegisterRoutes(router)

	// WriteTimeout 0: /api/stream держит соединение
	app.server = server.NewServer(cfg.Tracker.Port, router, server.Options{
		ReadTimeout: cfg.Server.ReadTimeout,
	}, log)

	go func() {
		if err := app.server.Start(); err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	app.scheduler.Start(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down gracefully")
	app.shutdown()
}

func (a *App) shutdown() {
	a.scheduler.Stop()
	a.hub.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("shutdown error")
	}

	if a.pool != nil {
		done := make(chan struct{})
		go func() {
			a.pool.Stop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(a.config.Persistence.WriteTimeout * 2):
			a.logger.Warn().Msg("persistence pool did not drain in time")
		}
	}
	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			a.logger.Error().Err(err).Msg("failed to close kafka writer")
		}
	}

	a.logger.Info().Msg("shutdown complete")
}

func newSimulator(cfg *config.Config) (*generator.TestGenerator, error) {
	if cfg.Tracker.TestMetal == "" {
		return generator.NewTestGenerator("simulator", cfg.Tracker.TestBasePrice), nil
	}
	return generator.NewMetalGenerator(cfg.Tracker.TestMetal, cfg.Upstream.DefaultRate, time.Now().UnixNano())
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  jijin-tracker [--config <path>] [--port <N>] [--mode live|test]")
	fmt.Println("  jijin-tracker --help")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config PATH  Config file (default configs/config.yaml)")
	fmt.Println("  --port N       Port number")
	fmt.Println("  --mode MODE    Quote source: live feeds or simulated test data")
}
