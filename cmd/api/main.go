package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"innkeeper/internal/api"
	"innkeeper/internal/config"
	"innkeeper/internal/database"
	"innkeeper/internal/domain"
	"innkeeper/internal/events"
	"innkeeper/internal/logging"
	"innkeeper/internal/metrics"
	"innkeeper/internal/models"
	"innkeeper/internal/pricing"
	"innkeeper/internal/repository"
	"innkeeper/internal/service"
	"innkeeper/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache := initCache(cfg, logger)
	eventBus := events.NewEventBus()

	seasons, err := pricingSeasons(cfg.Engine.Seasons)
	if err != nil {
		return fmt.Errorf("parse pricing seasons: %w", err)
	}
	pricer := pricing.NewEngine(seasons, cfg.Engine.WeekendMultiplier)

	quotes := service.NewQuoteService(db, pricer, cfg.Engine.MaxAdvanceDays, logger)
	reservations := service.NewReservationService(
		db,
		quotes,
		eventBus,
		cfg.Engine.HoldWindowDuration(),
		cfg.Engine.DefaultCurrency,
		worker.RetryPolicy{MaxRetries: cfg.Engine.CommitMaxRetries},
		logger,
	)
	catalog := service.NewCatalogService(db, cache, eventBus, cfg.Engine.CatalogCacheTTLDuration(), logger)

	sweeper := worker.NewSweeper(reservations, cfg.Engine.SweepIntervalDuration(), logger)
	go sweeper.Start(ctx)

	backup := database.NewBackupService(cfg.Database.Path, cfg.Backup, logger)
	go backup.Start(ctx)

	startMetrics(ctx, cfg, logger)

	httpServer := api.NewHTTPServer(cfg.API, quotes, reservations, catalog, logger)
	return serve(ctx, httpServer, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, &logger, closer, nil
}

// initCache wires the catalog cache. Redis fronts an in-memory fallback
// so a Redis outage degrades to local caching instead of failing reads.
func initCache(cfg *config.Config, logger *zerolog.Logger) domain.Cache {
	memory := repository.NewMemoryCache()

	if !cfg.Redis.Enabled || cfg.Redis.Address == "" {
		logger.Info().Msg("redis disabled, using in-memory cache")
		return memory
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(context.Background(), client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing with in-memory cache")
		return memory
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return repository.NewFailoverCache(repository.NewRedisCache(client), memory, logger)
}

func pricingSeasons(configured []config.SeasonConfig) ([]pricing.Season, error) {
	seasons := make([]pricing.Season, 0, len(configured))
	for _, s := range configured {
		from, err := time.Parse(models.DateFormat, s.From)
		if err != nil {
			return nil, fmt.Errorf("season %q: %w", s.Name, err)
		}
		to, err := time.Parse(models.DateFormat, s.To)
		if err != nil {
			return nil, fmt.Errorf("season %q: %w", s.Name, err)
		}
		seasons = append(seasons, pricing.Season{
			Name:       s.Name,
			From:       from,
			To:         to,
			Multiplier: s.Multiplier,
		})
	}
	return seasons, nil
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

func serve(ctx context.Context, httpServer *api.HTTPServer, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}
