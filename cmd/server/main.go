package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/application/charging"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/ordering"
	domainpayment "github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/payment"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/infrastructure/billing"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/infrastructure/cache"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/infrastructure/config"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/infrastructure/invoice"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/infrastructure/logger"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/infrastructure/notification"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/infrastructure/payment"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/infrastructure/persistence"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/infrastructure/plugin"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/infrastructure/scheduler"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/infrastructure/telemetry"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/infrastructure/tmf"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/interfaces/http/handler"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/interfaces/http/middleware"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Charging Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	tracerProvider, meterProvider := initTelemetry(rootCtx, cfg, log)
	defer shutdownProvider(log, "tracer provider", tracerProvider.Shutdown)
	defer shutdownProvider(log, "meter provider", meterProvider.Shutdown)

	db := openDatabase(cfg, log)
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	orderRepo := persistence.NewGormOrderRepository(db.DB)
	orgRepo := persistence.NewGormOrganizationRepository(db.DB)
	offeringRepo := persistence.NewGormOfferingRepository(db.DB)

	sessionStore := buildSessionStore(cfg, log)

	notifier, closeNotifier := buildNotifier(cfg, log)
	defer closeNotifier()

	usageClient, orderingClient, inventoryClient := buildTMFClients(cfg, log)

	billingClient, err := billing.NewClient(&billing.Config{
		URL:     cfg.Billing.URL,
		APIKey:  cfg.Billing.APIKey,
		Timeout: cfg.Billing.Timeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to create billing client", zap.Error(err))
	}

	invoiceBuilder, err := invoice.NewBuilder(&invoice.Config{
		MediaDir: cfg.Invoice.MediaDir,
	}, log)
	if err != nil {
		log.Fatal("Failed to create invoice builder", zap.Error(err))
	}

	// Resource plugin hooks fire on acquired and suspended products.
	pluginRegistry := plugin.NewRegistry()
	assetHooks := plugin.NewHooks(pluginRegistry, offeringRepo, log)

	gatewayRegistry := payment.NewGatewayRegistry()
	redirectAdapter, err := payment.NewRedirectAdapter(&payment.RedirectConfig{
		APIURL:    cfg.Payment.APIURL,
		APIKey:    cfg.Payment.APIKey,
		ReturnURL: cfg.Payment.ReturnURL,
		CancelURL: cfg.Payment.CancelURL,
		Timeout:   cfg.Payment.Timeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to create redirect gateway adapter", zap.Error(err))
	}
	gatewayRegistry.Register(redirectAdapter)

	// Charging engine with its timeout watchdog.
	watchdog := scheduler.NewChargeWatchdog(rootCtx, log)
	defer watchdog.Shutdown()

	priceResolver := charging.NewStandardPriceResolver()
	txBuilder := charging.NewTransactionBuilder(priceResolver, offeringRepo, log)
	engine := charging.NewEngine(
		orderRepo,
		orgRepo,
		txBuilder,
		gatewayRegistry,
		watchdog,
		sessionStore,
		charging.Collaborators{
			Billing:  billingClient,
			Usage:    usageClient,
			Ordering: orderingClient,
			Notifier: notifier,
			Invoices: invoiceBuilder,
			Assets:   assetHooks,
		},
		charging.Config{
			GatewayType:   domainpayment.GatewayType(cfg.Charging.GatewayType),
			ChargeTimeout: cfg.Charging.ChargeTimeout,
			SessionTTL:    cfg.Charging.SessionTTL,
		},
		log,
	)

	// Daily renovation sweep.
	monitor := charging.NewRenovationMonitor(
		orderRepo,
		inventoryClient,
		notifier,
		assetHooks,
		charging.MonitorConfig{
			NearExpirationDays: cfg.Charging.NearExpirationDays,
			UsagePeriod:        ordering.ChargePeriod(cfg.Charging.UsagePeriod),
		},
		log,
	)
	trigger := scheduler.NewRenovationTrigger(scheduler.RenovationTriggerConfig{
		DailySweepHour: cfg.Charging.DailySweepHour,
		CheckInterval:  time.Minute,
	}, monitor, log)
	trigger.Start(rootCtx)
	defer trigger.Stop()

	chargingHandler := handler.NewChargingHandler(engine, orderRepo, sessionStore, log)
	callbackHandler := handler.NewPaymentCallbackHandler(engine, log)
	systemHandler := handler.NewSystemHandler()

	if meterProvider.IsEnabled() {
		chargingMetrics, err := telemetry.NewChargingMetrics(telemetry.ChargingMetricsConfig{
			Meter:  meterProvider.Meter("charging.engine"),
			Logger: log,
		})
		if err != nil {
			log.Warn("Failed to create charging metrics", zap.Error(err))
		} else {
			chargingHandler.SetMetrics(chargingMetrics)
		}
	}

	engineHTTP := buildHTTPEngine(cfg, meterProvider, log)
	engineHTTP.GET("/health", healthHandler(db))

	r := router.NewRouter(engineHTTP, router.WithAPIVersion("v1"))
	r.Register(chargingHandler).
		Register(callbackHandler).
		Register(systemHandler)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engineHTTP,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func initTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) (*telemetry.TracerProvider, *telemetry.MeterProvider) {
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	return tracerProvider, meterProvider
}

func shutdownProvider(log *zap.Logger, name string, shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Error("Error shutting down "+name, zap.Error(err))
	}
}

func openDatabase(cfg *config.Config, log *zap.Logger) *persistence.Database {
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	if cfg.Telemetry.Enabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:          true,
			SlowQueryThresh:  200 * time.Millisecond,
			WithoutVariables: cfg.App.Env == "production",
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}

	return db
}

// buildSessionStore keeps checkout sessions in Redis when configured,
// falling back to an in-memory store for single-node deployments.
func buildSessionStore(cfg *config.Config, log *zap.Logger) charging.CheckoutSessionStore {
	if !cfg.Redis.Enabled {
		log.Info("Using in-memory checkout session store")
		return cache.NewInMemorySessionStore()
	}

	redisStore, err := cache.NewRedisSessionStore(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	log.Info("Using Redis checkout session store", zap.String("host", cfg.Redis.Host))
	return redisStore
}

// buildNotifier publishes lifecycle notifications to Kafka when a
// broker is configured, and just logs them otherwise. The returned
// close func is a no-op for the log sender.
func buildNotifier(cfg *config.Config, log *zap.Logger) (charging.NotificationSender, func()) {
	if !cfg.Kafka.Enabled {
		return notification.NewLogSender(log), func() {}
	}

	kafkaSender, err := notification.NewKafkaSender(&notification.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
	}, log)
	if err != nil {
		log.Fatal("Failed to create Kafka sender", zap.Error(err))
	}
	log.Info("Publishing notifications to Kafka", zap.Strings("brokers", cfg.Kafka.Brokers))

	return kafkaSender, func() {
		if err := kafkaSender.Close(); err != nil {
			log.Error("Error closing Kafka sender", zap.Error(err))
		}
	}
}

func buildTMFClients(cfg *config.Config, log *zap.Logger) (*tmf.UsageClient, *tmf.OrderingClient, *tmf.InventoryClient) {
	tmfConfig := &tmf.Config{
		UsageURL:     cfg.TMF.UsageURL,
		OrderingURL:  cfg.TMF.OrderingURL,
		InventoryURL: cfg.TMF.InventoryURL,
		Timeout:      cfg.TMF.Timeout,
	}

	usageClient, err := tmf.NewUsageClient(tmfConfig, log)
	if err != nil {
		log.Fatal("Failed to create usage client", zap.Error(err))
	}
	orderingClient, err := tmf.NewOrderingClient(tmfConfig, log)
	if err != nil {
		log.Fatal("Failed to create ordering client", zap.Error(err))
	}
	inventoryClient, err := tmf.NewInventoryClient(tmfConfig, log)
	if err != nil {
		log.Fatal("Failed to create inventory client", zap.Error(err))
	}

	return usageClient, orderingClient, inventoryClient
}

// buildHTTPEngine assembles the middleware chain. Order matters: the
// request id must exist before the logger and tracer read it, and the
// body limit runs before any handler buffers a payload.
func buildHTTPEngine(cfg *config.Config, meterProvider *telemetry.MeterProvider, log *zap.Logger) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engineHTTP := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engineHTTP.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engineHTTP.Use(middleware.RequestID())
	engineHTTP.Use(logger.Recovery(log))
	engineHTTP.Use(logger.GinMiddleware(log))
	engineHTTP.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	engineHTTP.Use(middleware.CORSWithConfig(corsConfig))

	engineHTTP.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.Telemetry.Enabled {
		engineHTTP.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engineHTTP.Use(middleware.TracingAttributeInjector())
		engineHTTP.Use(middleware.SpanErrorMarker())
	}
	engineHTTP.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		ServiceName:   cfg.Telemetry.ServiceName,
		Enabled:       cfg.Telemetry.Enabled,
	}))

	return engineHTTP
}

func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
