package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tillpoint/tillpoint-backend/api/routes"
	exchangesvc "github.com/tillpoint/tillpoint-backend/internal/exchange"
	"github.com/tillpoint/tillpoint-backend/internal/exchange/valuation"
	"github.com/tillpoint/tillpoint-backend/internal/inventory"
	"github.com/tillpoint/tillpoint-backend/internal/products"
	"github.com/tillpoint/tillpoint-backend/internal/sequence"
	"github.com/tillpoint/tillpoint-backend/internal/settlement"
	"github.com/tillpoint/tillpoint-backend/internal/tax"
	"github.com/tillpoint/tillpoint-backend/pkg/config"
	"github.com/tillpoint/tillpoint-backend/pkg/db"
	"github.com/tillpoint/tillpoint-backend/pkg/logger"
	"github.com/tillpoint/tillpoint-backend/pkg/metrics"
	"github.com/tillpoint/tillpoint-backend/pkg/migrate"
	"github.com/tillpoint/tillpoint-backend/pkg/redis"
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	exchangeMetrics := metrics.NewExchangeMetrics(registry)

	numbers := sequence.NewGenerator()

	settlementResolver, err := settlement.NewResolver(
		settlement.NewRepository(dbClient.DB()),
		numbers,
		cfg.Exchange.StoreCreditCodeAttempts,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement resolver", err)
		os.Exit(1)
	}

	exchangeService, err := exchangesvc.NewService(
		dbClient,
		exchangesvc.NewRepository(dbClient.DB()),
		valuation.NewReturnValuator(valuation.NewRepository(dbClient.DB())),
		valuation.NewNewItemValuator(products.NewRepository(dbClient.DB())),
		inventory.NewGateway(dbClient.DB()),
		settlementResolver,
		tax.NewCalculator(cfg.Tax.DefaultJurisdiction),
		numbers,
		logg,
		exchangeMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create exchange service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, redisClient, registry, exchangeService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
