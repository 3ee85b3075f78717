package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	httpapi "github.com/jones/weather-sync/internal/api/http"
	"github.com/jones/weather-sync/internal/config"
	"github.com/jones/weather-sync/internal/connectivity"
	"github.com/jones/weather-sync/internal/places"
	"github.com/jones/weather-sync/internal/refresh"
	"github.com/jones/weather-sync/internal/remote"
	"github.com/jones/weather-sync/internal/store"
	"github.com/jones/weather-sync/internal/weather"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync()

	// Shared HTTP client for outbound calls (weather API and probe).
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Stores: durable when a DSN is configured, in-memory otherwise.
	var (
		weatherStore weather.Store
		placeStore   places.Store
	)
	if cfg.PostgresDSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			cancel()
			zlog.Fatal("failed to connect to postgres", zap.Error(err))
		}
		if err := store.EnsureSchema(ctx, pool); err != nil {
			cancel()
			zlog.Fatal("failed to ensure schema", zap.Error(err))
		}
		cancel()
		defer pool.Close()
		weatherStore = store.NewPostgresStore(pool)
		placeStore = store.NewPostgresPlaces(pool)
	} else {
		zlog.Info("no DATABASE_URL configured, using in-memory store")
		weatherStore = store.NewMemoryStore()
		placeStore = store.NewMemoryPlaces()
	}

	// Connectivity monitor with its own long-lived probe schedule.
	monitor := connectivity.NewProbeMonitor(
		connectivity.HTTPProbe(httpClient, cfg.ProbeURL),
		cfg.ProbeInterval,
		cfg.ProbeTimeout,
		zlog.Named("connectivity"),
	)
	if err := monitor.Start(); err != nil {
		zlog.Fatal("failed to start connectivity monitor", zap.Error(err))
	}
	defer monitor.Stop()

	// Remote client with rate limiting on top of breaker and backoff.
	client := remote.NewRateLimitedClient(remote.NewOpenWeatherClient(httpClient), 1, 3)

	repo := weather.NewRepository(client, weatherStore, monitor, zlog.Named("repository"))
	coordinator := refresh.NewCoordinator(monitor, zlog.Named("refresh"))

	session := weather.NewSession(repo, coordinator, weather.SessionConfig{
		APIKey:             cfg.OpenWeatherAPIKey,
		DefaultCoordinates: cfg.DefaultCoordinates,
		ForecastCount:      cfg.ForecastCount,
		Scope:              weather.DefaultScope,
	}, zlog.Named("session"))
	session.Start()
	session.Refresh() // initial load
	defer session.Close()

	placeSvc := places.NewService(placeStore, places.NewGeocoderSearcher(cfg.GeocoderAPIKey), zlog.Named("places"))

	app := fiber.New(fiber.Config{
		AppName:               "weather-sync",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-sync",
			"online":  monitor.IsReachable(),
		})
	})

	httpapi.RegisterRoutes(app, session, repo, placeSvc)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			zlog.Error("fiber server stopped", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zlog.Error("error during shutdown", zap.Error(err))
	}
}
