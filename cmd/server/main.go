package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storefront/internal/app"
	"storefront/internal/config"
	"storefront/internal/events"
	"storefront/internal/gateway"
	"storefront/internal/handler"
	"storefront/internal/logger"
	"storefront/internal/metrics"
	internalRedis "storefront/internal/redis"
	"storefront/internal/repository/postgres"
	"storefront/internal/service"
)

func main() {
	cfg := config.Load()

	log := logger.New(cfg.Log)
	defer log.Sync()

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// New Relic comes first so the database driver can be instrumented.
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Warn("failed to initialize New Relic", zap.Error(err))
		} else {
			log.Info("New Relic enabled", zap.String("app", cfg.NewRelic.AppName))
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	log.Info("connected to PostgreSQL")

	if cfg.Database.AutoMigrate {
		if err := app.Migrate(ctx, db); err != nil {
			log.Fatal("failed to apply migrations", zap.Error(err))
		}
		log.Info("migrations applied")
	}

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("connected to Redis")

	publisher := newPublisher(ctx, cfg.Events, log)

	server, expiry := wireServer(db, redisClient, nrApp, publisher, cfg, log)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go expiry.Run(sweepCtx, cfg.Payment.SweepInterval)

	go func() {
		log.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	stopSweep()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	log.Info("server exited")
}

// newPublisher returns an SQS publisher when a queue is configured, and a log publisher otherwise.
func newPublisher(ctx context.Context, cfg config.EventsConfig, log *zap.Logger) events.Publisher {
	if cfg.QueueURL == "" {
		return events.NewLogPublisher(log)
	}

	client, err := events.NewSQSClient(ctx, cfg)
	if err != nil {
		log.Warn("falling back to log publisher", zap.Error(err))
		return events.NewLogPublisher(log)
	}

	log.Info("publishing events to SQS", zap.String("queue_url", cfg.QueueURL))
	return events.NewSQSPublisher(client, cfg.QueueURL, log)
}

// wireServer wires all dependencies and returns the HTTP server and the expiry sweeper.
func wireServer(
	db *sql.DB,
	redisClient *redis.Client,
	nrApp *newrelic.Application,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) (*http.Server, *service.ExpiryService) {
	m := metrics.New(prometheus.DefaultRegisterer)

	// Redis stores.
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient, cfg.Payment.StatusCacheTTL)

	// Repositories.
	store := postgres.NewStore(db)
	requestRepo := postgres.NewPaymentRequestRepository(db)
	responseRepo := postgres.NewPaymentResponseRepository(db)
	discrepancyRepo := postgres.NewDiscrepancyRepository(db)
	orderRepo := postgres.NewOrderRepository(db)
	cartRepo := postgres.NewCartRepository(db)
	addressRepo := postgres.NewAddressRepository(db)

	// Services.
	darajaClient := gateway.NewDarajaClient(cfg.Mpesa, log.Named("gateway"))
	notificationService := service.NewNotificationService(publisher, cfg.Events.PublishTimeout, log.Named("events"))
	amountValidator := service.NewAmountValidator(cartRepo, addressRepo)
	requestService := service.NewPaymentRequestService(requestRepo, addressRepo, cfg.Payment.RequestTTL, m, log.Named("payments"))
	checkoutService := service.NewCheckoutService(requestService, amountValidator, darajaClient, lockStore, cfg.Payment.CheckoutLockTTL, m, log.Named("checkout"))
	callbackService := service.NewCallbackService(requestRepo, discrepancyRepo, store, amountValidator, notificationService, m, log.Named("callback"))
	statusService := service.NewStatusService(requestRepo, orderRepo, cacheStore, log.Named("status"))
	orderService := service.NewOrderService(orderRepo, log.Named("orders"))
	receiptService := service.NewReceiptService(orderService, responseRepo)
	reconciliationService := service.NewReconciliationService(discrepancyRepo)
	expiryService := service.NewExpiryService(requestRepo, notificationService, cfg.Payment.RequestTTL, cfg.Payment.SweepBatchSize, m, log.Named("expiry"))

	// Handlers.
	router := app.NewRouter(app.RouterDeps{
		CheckoutHandler: handler.NewCheckoutHandler(checkoutService),
		PaymentHandler:  handler.NewPaymentHandler(requestService, statusService),
		CallbackHandler: handler.NewCallbackHandler(callbackService, log.Named("callback")),
		OrderHandler:    handler.NewOrderHandler(orderService, receiptService),
		AdminHandler:    handler.NewAdminHandler(reconciliationService),
		MetricsHandler:  promhttp.Handler(),
		RedisClient:     redisClient,
		NewRelicApp:     nrApp,
		Logger:          log,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, expiryService
}
