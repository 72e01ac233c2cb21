package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/i474232898/airquality-weather/internal/addrspace"
	httpapi "github.com/i474232898/airquality-weather/internal/api/http"
	"github.com/i474232898/airquality-weather/internal/config"
	applog "github.com/i474232898/airquality-weather/internal/log"
	"github.com/i474232898/airquality-weather/internal/metrics"
	"github.com/i474232898/airquality-weather/internal/resolver"
	"github.com/i474232898/airquality-weather/internal/scheduler"
	"github.com/i474232898/airquality-weather/internal/store"
	"github.com/i474232898/airquality-weather/internal/timezone"
	"github.com/i474232898/airquality-weather/internal/weather"
	"github.com/i474232898/airquality-weather/internal/weather/providers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	sugar, err := applog.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer sugar.Sync()

	for _, w := range cfg.Warnings {
		sugar.Warnw("settings fallback", "detail", w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	httpCfg := providers.DefaultHTTPClientConfig(httpClient)

	tz, err := timezone.NewService()
	if err != nil {
		sugar.Warnw("timezone fallback unavailable", "error", err)
	}

	var provs []weather.Provider
	for _, name := range cfg.WeatherProviders {
		switch name {
		case config.ProviderDarkSky:
			provs = append(provs, providers.WithTimezoneFallback(
				providers.NewDarkSkyProvider(httpCfg, cfg.DarkSkyAPIKey, cfg.Units, cfg.DarkSkyURL), tz))
		case config.ProviderOpenMeteo:
			provs = append(provs, providers.WithTimezoneFallback(
				providers.NewOpenMeteoProvider(httpCfg, cfg.Units, cfg.OpenMeteoURL), tz))
		}
	}
	chain := weather.NewChain(sugar, provs...)
	directory := providers.NewOpenAQProvider(httpCfg, cfg.OpenAQURL)

	opts := []resolver.Option{resolver.WithLogger(sugar)}
	if rdb := store.OpenRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); rdb != nil {
		mirror := store.NewRedisMirror(rdb, cfg.RefreshInterval)
		defer mirror.Close()
		opts = append(opts, resolver.WithPublisher(mirror))
		sugar.Infow("snapshot mirror enabled", "addr", cfg.Redis.Addr)
	}

	srv := addrspace.NewServer(addrspace.Config{
		EndpointURL: cfg.Server.EndpointURL,
		HostName:    cfg.Server.HostName,
		Port:        cfg.Server.Port,
	}, sugar)

	res := resolver.New(srv, store.NewCache(), directory, chain, cfg.RefreshInterval, opts...)
	if err := res.Install(ctx); err != nil {
		sugar.Fatalw("failed to install resolver", "error", err)
	}

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		if err := srv.Run(ctx); err != nil {
			sugar.Errorw("address space loop stopped", "error", err)
		}
	}()

	sched := scheduler.New(cfg.LocationsRefreshInterval, srv, res, sugar)
	if err := sched.Start(); err != nil {
		sugar.Fatalw("failed to start scheduler", "error", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "airquality-weather",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          2 * cfg.HTTPTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "airquality-weather",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	httpapi.RegisterRoutes(app, srv, res)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			sugar.Errorw("fiber server stopped", "error", err)
		}
	}()
	sugar.Infow("gateway listening", "port", cfg.Port)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		sugar.Errorw("error during shutdown", "error", err)
	}
	<-runDone
}
