package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/yvoloshin/paylink-backend/api/controllers"
	"github.com/yvoloshin/paylink-backend/api/routes"
	"github.com/yvoloshin/paylink-backend/internal/classifier"
	"github.com/yvoloshin/paylink-backend/internal/dispatch"
	"github.com/yvoloshin/paylink-backend/internal/drafts"
	"github.com/yvoloshin/paylink-backend/internal/expenses"
	"github.com/yvoloshin/paylink-backend/internal/gateway"
	"github.com/yvoloshin/paylink-backend/internal/inventory"
	"github.com/yvoloshin/paylink-backend/internal/issuance"
	"github.com/yvoloshin/paylink-backend/internal/orders"
	"github.com/yvoloshin/paylink-backend/internal/reconcile"
	"github.com/yvoloshin/paylink-backend/internal/webhooks/channel"
	"github.com/yvoloshin/paylink-backend/pkg/config"
	"github.com/yvoloshin/paylink-backend/pkg/db"
	"github.com/yvoloshin/paylink-backend/pkg/logger"
	"github.com/yvoloshin/paylink-backend/pkg/metrics"
	"github.com/yvoloshin/paylink-backend/pkg/migrate"
	"github.com/yvoloshin/paylink-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	// bootstrap logger early (then re-init after config load)
	logg := logger.New(logger.Options{ServiceName: "paylink-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "no .env file loaded")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "paylink-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithField(context.Background(), "env", cfg.App.Env)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient)
	requireResource(ctx, logg, "migrations", err)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer redisClient.Close()

	gatewayClient, err := gateway.NewClient(cfg.Channel)
	requireResource(ctx, logg, "channel gateway", err)

	gormDB := dbClient.DB()

	dispatchRepo := dispatch.NewRepository(gormDB)
	linkLookup := dispatch.NewLinkLookup(dispatchRepo)
	visibility := dispatch.NewVisibility(cfg.Admin.RestrictedTargets, cfg.Admin.RestrictedViewers)

	dispatchSvc, err := dispatch.NewService(dispatchRepo, visibility)
	requireResource(ctx, logg, "dispatch service", err)

	scheduler, err := dispatch.NewScheduler(dispatchRepo)
	requireResource(ctx, logg, "dispatch scheduler", err)

	linkage := drafts.NewLinkageCache(cfg.Engine.LinkageTTL, cfg.Engine.LinkageMaxEntries, nil)

	draftsSvc, err := drafts.NewService(drafts.ServiceParams{
		Repo:        drafts.NewRepository(gormDB),
		Linkage:     linkage,
		DraftHeader: cfg.Engine.DraftHeader,
	})
	requireResource(ctx, logg, "drafts service", err)

	issuanceRepo := issuance.NewRepository(gormDB)

	tracker, err := issuance.NewTracker(issuance.TrackerParams{
		Repo:        issuanceRepo,
		Picker:      scheduler,
		Linkage:     linkage,
		Trigger:     cfg.Engine.DispatchTrigger,
		DedupWindow: cfg.Engine.DedupWindow,
		History:     cfg.Engine.DedupHistory,
	})
	requireResource(ctx, logg, "issuance tracker", err)

	matcher, err := reconcile.NewMatcher(reconcile.MatcherParams{
		Extractor: reconcile.NewMarkerExtractor(cfg.Engine.ReceiptSuccessMarker),
		Repo:      reconcile.NewRepository(gormDB),
		Issuances: issuanceRepo,
		Messenger: gatewayClient,
		Tolerance: decimal.NewFromFloat(cfg.Engine.AmountTolerance),
		History:   cfg.Engine.DedupHistory,
	})
	requireResource(ctx, logg, "reconcile matcher", err)

	expensesSvc, err := expenses.NewService(gormDB)
	requireResource(ctx, logg, "expenses service", err)

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:      orders.NewRepository(gormDB),
		Drafts:    draftsSvc,
		Inventory: inventory.NewCoordinator(gormDB),
	})
	requireResource(ctx, logg, "orders service", err)

	registry := prometheus.NewRegistry()
	webhookMetrics := metrics.NewWebhookMetrics(registry)

	eventClassifier := classifier.New(cfg.Engine.DispatchTrigger, cfg.Engine.DraftHeader, linkLookup)

	channelSvc, err := channel.NewService(channel.ServiceParams{
		Classifier:  eventClassifier,
		Drafts:      draftsSvc,
		Tracker:     tracker,
		Matcher:     matcher,
		Expenses:    expensesSvc,
		Links:       linkLookup,
		Messenger:   gatewayClient,
		Documents:   gatewayClient,
		Idempotency: redisClient,
		EventTTL:    cfg.Engine.WebhookEventTTL,
		Metrics:     webhookMetrics,
	})
	requireResource(ctx, logg, "channel webhook service", err)

	router := routes.NewRouter(routes.Params{
		Config: cfg,
		Logger: logg,
		Probes: map[string]controllers.Probe{
			"database": dbClient.Ping,
			"redis":    redisClient.Ping,
		},
		Channel:   channelSvc,
		Drafts:    draftsSvc,
		Dispatch:  dispatchSvc,
		Orders:    ordersSvc,
		Issuances: issuanceRepo,
		Gatherer:  registry,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	instance := os.Getenv("DYNO")
	if instance == "" {
		instance = "local"
	}

	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	logg.Info(logg.WithFields(ctx, map[string]any{"port": port, "instance": instance}), "api listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "server stopped", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
