package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/kagetora-io/clubledger-backend/api/routes"
	"github.com/kagetora-io/clubledger-backend/internal/attribution"
	"github.com/kagetora-io/clubledger-backend/internal/guestorders"
	"github.com/kagetora-io/clubledger-backend/internal/orders"
	"github.com/kagetora-io/clubledger-backend/internal/pricing"
	"github.com/kagetora-io/clubledger-backend/internal/quote"
	"github.com/kagetora-io/clubledger-backend/internal/visits"
	"github.com/kagetora-io/clubledger-backend/pkg/config"
	"github.com/kagetora-io/clubledger-backend/pkg/db"
	"github.com/kagetora-io/clubledger-backend/pkg/logger"
	"github.com/kagetora-io/clubledger-backend/pkg/metrics"
	"github.com/kagetora-io/clubledger-backend/pkg/migrate"
	"github.com/shopspring/decimal"
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)
	billMetrics := metrics.NewBillingMetrics(registry)

	plans := pricing.Default()

	visitsRepo := visits.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	attributionRepo := attribution.NewRepository(dbClient.DB())
	guestRepo := guestorders.NewRepository(dbClient.DB())

	visitsService, err := visits.NewService(dbClient, visitsRepo, plans, time.Now)
	if err != nil {
		logg.Error(context.Background(), "failed to create visits service", err)
		os.Exit(1)
	}

	quoteEngine, err := quote.NewEngine(plans)
	if err != nil {
		logg.Error(context.Background(), "failed to create quote engine", err)
		os.Exit(1)
	}

	quoteApply, err := quote.NewApplyService(dbClient, quoteEngine, visitsRepo, ordersRepo, time.Now)
	if err != nil {
		logg.Error(context.Background(), "failed to create quote apply service", err)
		os.Exit(1)
	}

	attributionService, err := attribution.NewService(
		dbClient,
		attributionRepo,
		ordersRepo,
		visitsRepo,
		decimal.NewFromFloat(cfg.Billing.PercentEpsilon),
		billMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create attribution service", err)
		os.Exit(1)
	}

	guestOrdersService, err := guestorders.NewService(
		dbClient,
		guestRepo,
		ordersRepo,
		visitsRepo,
		cfg.Billing.DefaultServiceRate,
		cfg.Billing.DefaultTaxRate,
		cfg.Billing.PercentEpsilon,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create guest orders service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(dbClient, ordersRepo, attributionService, guestOrdersService)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
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
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:       cfg,
			Logger:       logg,
			DB:           dbClient,
			QuoteEngine:  quoteEngine,
			QuoteApply:   quoteApply,
			Visits:       visitsService,
			Orders:       ordersService,
			Attributions: attributionService,
			GuestOrders:  guestOrdersService,
			HTTPMetrics:  httpMetrics,
			BillMetrics:  billMetrics,
			PromGatherer: registry,
		}),
	}

	if err := run(ctx, logg, server); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

// run serves until SIGINT/SIGTERM, then drains in-flight requests.
func run(ctx context.Context, logg *logger.Logger, server *http.Server) error {
	notifyCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-notifyCtx.Done():
	}

	logg.Info(ctx, "shutdown signal received, draining requests")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var errs error
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := <-serveErr; err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}
