package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/internal/promo"
	"github.com/angelmondragon/storefront-backend/internal/schedule"
	"github.com/angelmondragon/storefront-backend/internal/settings"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
		Env:         cfg.App.Env,
	})

	loc, err := cfg.Store.Location()
	if err != nil {
		logg.Error(context.Background(), "invalid store timezone", err)
		os.Exit(1)
	}
	opening, err := schedule.ParseClock(cfg.Store.DefaultOpeningTime)
	if err != nil {
		logg.Error(context.Background(), "invalid default opening time", err)
		os.Exit(1)
	}
	scheduleOpts := schedule.Options{
		Location:           loc,
		LateOrderThreshold: cfg.Store.LateOrderThreshold(),
		PickupLead:         cfg.Store.PickupLead(),
		DefaultOpening:     &opening,
		BaseDelayDays:      cfg.Store.BaseDelayDays,
		VacationDelayDays:  cfg.Store.VacationDelayDays,
	}

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	storefrontMetrics := metrics.NewStorefrontMetrics(reg)

	catalogService := catalog.NewService(catalog.NewRepository(dbClient.DB()), logg, storefrontMetrics)
	settingsService := settings.NewService(settings.NewRepository(dbClient.DB()), settings.Options{
		Cache:    redisClient,
		CacheTTL: cfg.Cache.SettingsTTL,
		Logger:   logg,
		Metrics:  storefrontMetrics,
	})

	var validator promo.Validator = promo.Disabled{}
	if cfg.Promo.Enabled() {
		source, err := promo.NewHTTPSource(promo.HTTPConfig{
			BaseURL:          cfg.Promo.BaseURL,
			Timeout:          cfg.Promo.Timeout,
			MaxRetries:       cfg.Promo.MaxRetries,
			RetryBaseDelay:   cfg.Promo.RetryBaseDelay,
			BreakerFailures:  cfg.Promo.BreakerFailures,
			BreakerOpenDelay: cfg.Promo.BreakerOpenDelay,
		}, promo.WithLogger(logg))
		if err != nil {
			logg.Error(context.Background(), "failed to create promo source", err)
			os.Exit(1)
		}
		cached := promo.NewCachedSource(source, redisClient, cfg.Promo.CacheTTL, logg)
		validator = promo.NewScopedValidator(cached, storefrontMetrics)
	} else {
		logg.Warn(context.Background(), "promo service not configured, promo codes are disabled")
	}

	locker, err := redis.NewLocker(redisClient, redis.LockOptions{})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart locker", err)
		os.Exit(1)
	}
	sessions, err := cart.NewSessionRepository(redisClient, cfg.Cache.CartSessionTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart session repository", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cart.ServiceParams{
		Catalog:  catalogService,
		Settings: settingsService,
		Sessions: sessions,
		Resolver: pricing.NewResolver(loc, storefrontMetrics),
		Promo:    validator,
		Locker:   locker,
		Logger:   logg,
		Schedule: scheduleOpts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"addr":     addr,
		"instance": id,
		"timezone": loc.String(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Redis:       redisClient,
			RedisPinger: redisClient,
			Cart:        cartService,
			Fulfillment: settingsService,
			Schedule:    scheduleOpts,
			Metrics:     storefrontMetrics,
			Gatherer:    reg,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		<-runCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}
