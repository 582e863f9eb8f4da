package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/osanhueza/minimarket-backend/api/routes"
	"github.com/osanhueza/minimarket-backend/internal/alerts"
	"github.com/osanhueza/minimarket-backend/internal/auth"
	"github.com/osanhueza/minimarket-backend/internal/cart"
	"github.com/osanhueza/minimarket-backend/internal/checkout"
	"github.com/osanhueza/minimarket-backend/internal/inventory"
	"github.com/osanhueza/minimarket-backend/internal/products"
	"github.com/osanhueza/minimarket-backend/internal/sales"
	"github.com/osanhueza/minimarket-backend/pkg/config"
	"github.com/osanhueza/minimarket-backend/pkg/db"
	"github.com/osanhueza/minimarket-backend/pkg/env"
	"github.com/osanhueza/minimarket-backend/pkg/logger"
	"github.com/osanhueza/minimarket-backend/pkg/metrics"
	"github.com/osanhueza/minimarket-backend/pkg/migrate"
	"github.com/osanhueza/minimarket-backend/pkg/realtime"
	"github.com/osanhueza/minimarket-backend/pkg/redis"
)

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
	})

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

	publisher, err := realtime.NewPublisher(redisClient, cfg.Realtime)
	if err != nil {
		logg.Error(context.Background(), "failed to create realtime publisher", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	storeMetrics := metrics.NewStoreMetrics(registry)

	productRepo := products.NewRepository(dbClient.DB())
	inventoryRepo := inventory.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	saleRepo := sales.NewRepository(dbClient.DB())
	alertRepo := alerts.NewRepository(dbClient.DB())
	userRepo := auth.NewRepository(dbClient.DB())

	alertService, err := alerts.NewService(alertRepo, publisher, logg, storeMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create alert service", err)
		os.Exit(1)
	}

	inventoryService, err := inventory.NewService(dbClient, inventoryRepo, alertService, publisher, logg, storeMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	productService, err := products.NewService(productRepo, inventoryService)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cartRepo, productRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	saleService, err := sales.NewService(saleRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create sales service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(dbClient, cartRepo, inventoryRepo, saleRepo, alertService, publisher, logg, storeMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(userRepo, cfg.JWT, cfg.Password)
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			authService,
			productService,
			inventoryService,
			cartService,
			checkoutService,
			saleService,
			alertService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
