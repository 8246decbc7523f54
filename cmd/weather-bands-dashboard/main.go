package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weather-bands-dashboard/internal/api/http"
	"github.com/i474232898/weather-bands-dashboard/internal/chart"
	"github.com/i474232898/weather-bands-dashboard/internal/config"
	"github.com/i474232898/weather-bands-dashboard/internal/dashboard"
	"github.com/i474232898/weather-bands-dashboard/internal/logger"
	"github.com/i474232898/weather-bands-dashboard/internal/scheduler"
	"github.com/i474232898/weather-bands-dashboard/internal/store"
	"github.com/i474232898/weather-bands-dashboard/internal/weather"
	"github.com/i474232898/weather-bands-dashboard/internal/weather/providers"
)

func main() {
	// Load configuration (.env, optional CONFIG_FILE, environment).
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "development").Fatalf("failed to load config: %v", err)
	}

	log := logger.New(cfg.App.LogLevel, cfg.App.Env).WithField("service", cfg.App.Name)

	// Shared HTTP client for outbound station downloads.
	httpClient := &http.Client{
		Timeout: cfg.Source.HTTPTimeout,
	}

	// GHCN source with resilience (rate limit + backoff + circuit breaker).
	source := providers.NewGHCNProvider(httpClient, providers.GHCNOptions{
		BaseURL:    cfg.Source.BaseURL,
		MaxRetries: cfg.Source.MaxRetries,
		RateLimit:  cfg.Source.RateLimit,
		RateBurst:  cfg.Source.RateBurst,
	})

	// In-memory store with configured retention.
	memStore := store.NewMemoryStore(cfg.Store.MaxStations, cfg.Store.MaxAge)

	service := weather.NewService(memStore, source, log)
	service.SetFetchTimeout(cfg.Source.FetchTimeout)

	sessions := dashboard.NewRegistry(func() *dashboard.Controller {
		return dashboard.NewController(cfg.Catalog, service, chart.NewBandChart(""), cfg.Source.FetchTimeout, log)
	}, cfg.Scheduler.SessionIdleTimeout)

	// Scheduler that keeps the catalog stations warm and drops idle sessions.
	sched := scheduler.New(cfg.Catalog.StationIDs(), service, sessions, scheduler.Config{
		RefreshInterval: cfg.Scheduler.RefreshInterval,
		RefreshTimeout:  cfg.Source.FetchTimeout,
		SweepInterval:   sweepInterval(cfg.Scheduler.SessionIdleTimeout),
	}, log)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Dashboard updates may wait on a full station download.
		WriteTimeout: cfg.Source.FetchTimeout + 10*time.Second,
		ErrorHandler: httpapi.ErrorHandler,
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  cfg.App.Name,
			"sessions": sessions.Len(),
			"stations": len(memStore.Stations()),
		})
	})

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Catalog:      cfg.Catalog,
		Bands:        service,
		Sessions:     sessions,
		FetchTimeout: cfg.Source.FetchTimeout,
		Log:          log,
	})

	go func() {
		log.Infof("listening on :%s", cfg.App.Port)
		if err := app.Listen(":" + cfg.App.Port); err != nil {
			log.Errorf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Errorf("error during shutdown: %v", err)
	}
}

// sweepInterval checks for idle sessions a few times per idle period.
func sweepInterval(idle time.Duration) time.Duration {
	if idle <= 0 {
		return 0
	}
	if d := idle / 4; d > time.Second {
		return d
	}
	return time.Second
}
