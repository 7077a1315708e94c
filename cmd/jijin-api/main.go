package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/douoai/jijin/internal/adapter/cache"
	"github.com/douoai/jijin/internal/adapter/handler"
	"github.com/douoai/jijin/internal/adapter/storage"
	"github.com/douoai/jijin/internal/application/service"
	"github.com/douoai/jijin/internal/application/usecase"
	"github.com/douoai/jijin/internal/domain/port"
	"github.com/douoai/jijin/internal/infrastructure/config"
	"github.com/douoai/jijin/internal/infrastructure/logger"
	"github.com/douoai/jijin/internal/infrastructure/server"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to config file")
	portFlag   = flag.Int("port", 0, "Port number")
	helpFlag   = flag.Bool("help", false, "Show help")
)

type App struct {
	config    *config.Config
	logger    zerolog.Logger
	server    *server.Server
	storage   port.PriceStore
	cache     port.LatestCache
	retention *service.RetentionService
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
		cfg.Server.Port = *portFlag
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log.Info().Str("version", "1.0.0").Str("storage", cfg.Storage.Driver).Msg("starting jijin price store")

	ctx := context.Background()

	store, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage")
	}

	app := &App{
		config:  cfg,
		logger:  log,
		storage: store,
	}

	var healthCache handler.Pinger
	if cfg.Redis.Enabled {
		redisAdapter, err := cache.NewRedisAdapter(ctx, cfg.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
		if err != nil {
			// без кеша API работает напрямую с хранилищем
			log.Warn().Err(err).Str("addr", cfg.RedisAddr()).Msg("redis unavailable, latest price cache disabled")
		} else {
			app.cache = redisAdapter
			healthCache = redisAdapter
		}
	}

	priceUseCase := usecase.NewPriceUseCase(app.storage, app.cache, logger.Component(log, "usecase"))

	app.retention = service.NewRetentionService(app.storage, app.cache, cfg.Retention.MaxAge, cfg.Retention.Interval, logger.Component(log, "retention"))
	app.retention.Start(ctx)

	gin.SetMode(gin.ReleaseMode)
	router := handler.NewEngine(logger.Component(log, "http"))
	handler.NewPriceHandler(priceUseCase, logger.Component(log, "price_handler")).RegisterRoutes(router)
	router.GET("/api/health", handler.NewHealthHandler(app.storage, healthCache, log).Check)

	app.server = server.NewServer(cfg.Server.Port, router, server.Options{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, log)

	go func() {
		if err := app.server.Start(); err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down gracefully")
	app.shutdown()
}

func openStorage(ctx context.Context, cfg *config.Config) (port.PriceStore, error) {
	if cfg.Storage.Driver == "memory" {
		return storage.NewMemoryStore(), nil
	}

	pg, err := storage.NewPostgresAdapter(ctx, cfg.PostgresDSN(), storage.PoolOptions{
		MaxOpenConns:    cfg.PostgreSQL.MaxOpenConns,
		MaxIdleConns:    cfg.PostgreSQL.MaxIdleConns,
		ConnMaxLifetime: cfg.PostgreSQL.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	if err := pg.InitSchema(ctx); err != nil {
		_ = pg.Close()
		return nil, err
	}
	return pg, nil
}

func (a *App) shutdown() {
	a.retention.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("shutdown error")
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error().Err(err).Msg("failed to close redis")
		}
	}
	if err := a.storage.Close(); err != nil {
		a.logger.Error().Err(err).Msg("failed to close storage")
	}

	a.logger.Info().Msg("shutdown complete")
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  jijin-api [--config <path>] [--port <N>]")
	fmt.Println("  jijin-api --help")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config PATH  Config file (default configs/config.yaml)")
	fmt.Println("  --port N       Port number")
}
