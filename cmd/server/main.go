package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	fundingapp "github.com/payflow/backend/internal/application/funding"
	invoiceapp "github.com/payflow/backend/internal/application/invoice"
	poolapp "github.com/payflow/backend/internal/application/pool"
	treasuryapp "github.com/payflow/backend/internal/application/treasury"
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/payflow/backend/internal/infrastructure/auth"
	"github.com/payflow/backend/internal/infrastructure/cache"
	"github.com/payflow/backend/internal/infrastructure/config"
	"github.com/payflow/backend/internal/infrastructure/event"
	"github.com/payflow/backend/internal/infrastructure/logger"
	"github.com/payflow/backend/internal/infrastructure/persistence"
	"github.com/payflow/backend/internal/infrastructure/strategyadapter"
	"github.com/payflow/backend/internal/interfaces/http/handler"
	"github.com/payflow/backend/internal/interfaces/http/middleware"
	"github.com/payflow/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting PayFlow Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	poolRepo := persistence.NewGormPoolRepository(db.DB)
	treasuryRepo := persistence.NewGormTreasuryRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	fundingRepo := persistence.NewGormFundingRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Initialize event serializer and register all event types
	eventSerializer := event.NewEventSerializer()
	event.RegisterAllEvents(eventSerializer)

	// Create outbox publisher for transactional event saving
	outboxPublisher := event.NewOutboxPublisher(eventSerializer)

	// Unit of work runner ties the aggregate repositories and the outbox to
	// a single database transaction
	uow := persistence.NewGormUnitOfWorkRunner(db, outboxPublisher)

	// Initialize event bus
	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Initialize and start outbox processor for guaranteed event delivery
	if cfg.Event.ProcessorEnabled {
		processorConfig := event.DefaultOutboxProcessorConfig()
		processorConfig.BatchSize = cfg.Event.BatchSize
		processorConfig.PollInterval = cfg.Event.PollInterval
		processorConfig.CleanupEnabled = cfg.Event.CleanupEnabled
		processorConfig.CleanupRetention = cfg.Event.CleanupRetention

		outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, processorConfig, log)
		if err := outboxProcessor.Start(context.Background()); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			if err := outboxProcessor.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
		log.Info("Outbox processor started",
			zap.Int("batch_size", processorConfig.BatchSize),
			zap.Duration("poll_interval", processorConfig.PollInterval),
		)
	}

	// Idempotency store for funding operations. Redis is the production
	// backend; development falls back to the in-memory store when Redis is
	// unreachable.
	var idempotencyStore shared.IdempotencyStore
	redisStore, err := cache.NewRedisIdempotencyStore(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		if cfg.App.Env == "production" {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		log.Warn("Redis unavailable, using in-memory idempotency store", zap.Error(err))
		idempotencyStore = cache.NewInMemoryIdempotencyStore()
	} else {
		idempotencyStore = redisStore
		log.Info("Redis idempotency store connected")
	}

	// Strategy adapter registry. Venues come from config; development gets a
	// pair of simulated venues when none are configured.
	adapterRegistry := strategyadapter.NewRegistry()
	adapterConfigs := cfg.Treasury.Adapters
	if len(adapterConfigs) == 0 && cfg.App.Env != "production" {
		adapterConfigs = []config.AdapterConfig{
			{Name: "sim-vault", Type: "simulated", APYBps: 450, InstantWithdraw: true},
			{Name: "sim-lending", Type: "simulated", APYBps: 700, InstantWithdraw: false},
		}
	}
	for _, ac := range adapterConfigs {
		switch ac.Type {
		case "simulated":
			adapterRegistry.Register(strategyadapter.NewSimulatedAdapter(ac.Name, ac.APYBps, ac.InstantWithdraw))
		case "http":
			httpAdapter, err := strategyadapter.NewHTTPStrategyAdapter(strategyadapter.HTTPAdapterConfig{
				Name:            ac.Name,
				BaseURL:         ac.BaseURL,
				APIKey:          ac.APIKey,
				Timeout:         cfg.Treasury.AdapterTimeout,
				InstantWithdraw: ac.InstantWithdraw,
			})
			if err != nil {
				log.Fatal("Failed to create strategy adapter",
					zap.String("name", ac.Name), zap.Error(err))
			}
			adapterRegistry.Register(httpAdapter)
		}
	}
	log.Info("Strategy adapters registered", zap.Strings("names", adapterRegistry.Names()))

	// JWT service for bearer token authentication
	jwtService := auth.NewJWTService(cfg.JWT)

	// Initialize application services
	poolService := poolapp.NewPoolService(uow, poolRepo)
	treasuryService := treasuryapp.NewTreasuryService(uow, treasuryRepo, adapterRegistry, treasuryapp.AllocatorLimits{
		MaxStrategies:        cfg.Treasury.MaxStrategies,
		SlippageToleranceBps: cfg.Treasury.SlippageToleranceBps,
		RebalanceCooldown:    cfg.Treasury.RebalanceCooldown,
	}, log)
	invoiceService := invoiceapp.NewInvoiceService(uow, invoiceRepo)
	fundingService := fundingapp.NewFundingService(uow, fundingRepo, idempotencyStore, log)

	// Initialize handlers
	poolHandler := handler.NewPoolHandler(poolService)
	treasuryHandler := handler.NewTreasuryHandler(treasuryService)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService)
	fundingHandler := handler.NewFundingHandler(fundingService)
	authHandler := handler.NewAuthHandler(jwtService, cfg.App.Env != "production")
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to API routes
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/auth/token",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Pool domain (deposits, withdrawals, share accounting)
	poolRoutes := router.NewDomainGroup("pool", "/pool")
	poolRoutes.GET("", poolHandler.GetPool)
	poolRoutes.GET("/preview-deposit", poolHandler.PreviewDeposit)
	poolRoutes.POST("/deposits", poolHandler.Deposit)
	poolRoutes.POST("/withdrawals", poolHandler.Withdraw)
	poolRoutes.POST("/redemptions", poolHandler.Redeem)
	poolRoutes.GET("/holders", poolHandler.ListShareHolders)
	poolRoutes.GET("/holders/:id", poolHandler.GetShareHolder)
	poolRoutes.POST("/pause", middleware.RequireOperator(), poolHandler.Pause)
	poolRoutes.POST("/unpause", middleware.RequireOperator(), poolHandler.Unpause)
	poolRoutes.GET("/conservation", middleware.RequireOperator(), poolHandler.CheckConservation)

	// Treasury domain (yield strategy allocation). All mutations are
	// operator-only; reads are open to any authenticated actor.
	treasuryRoutes := router.NewDomainGroup("treasury", "/treasury")
	treasuryRoutes.GET("", treasuryHandler.GetTreasury)
	treasuryRoutes.POST("/strategies", middleware.RequireOperator(), treasuryHandler.AddStrategy)
	treasuryRoutes.DELETE("/strategies/:name", middleware.RequireOperator(), treasuryHandler.RemoveStrategy)
	treasuryRoutes.PUT("/strategies/:name/weight", middleware.RequireOperator(), treasuryHandler.SetWeight)
	treasuryRoutes.POST("/strategies/:name/pause", middleware.RequireOperator(), treasuryHandler.PauseStrategy)
	treasuryRoutes.POST("/strategies/:name/unpause", middleware.RequireOperator(), treasuryHandler.UnpauseStrategy)
	treasuryRoutes.POST("/strategies/:name/harvest", middleware.RequireOperator(), treasuryHandler.Harvest)
	treasuryRoutes.POST("/deposits", middleware.RequireOperator(), treasuryHandler.Deposit)
	treasuryRoutes.POST("/withdrawals", middleware.RequireOperator(), treasuryHandler.Withdraw)
	treasuryRoutes.POST("/withdrawals/all", middleware.RequireOperator(), treasuryHandler.WithdrawAll)
	treasuryRoutes.POST("/rebalance", middleware.RequireOperator(), treasuryHandler.Rebalance)

	// Invoice domain (lifecycle from creation to funding approval)
	invoiceRoutes := router.NewDomainGroup("invoice", "/invoices")
	invoiceRoutes.POST("", invoiceHandler.Create)
	invoiceRoutes.GET("", invoiceHandler.List)
	invoiceRoutes.GET("/overdue", invoiceHandler.ListOverdue)
	invoiceRoutes.GET("/stats", invoiceHandler.Stats)
	invoiceRoutes.GET("/number/:number", invoiceHandler.GetByNumber)
	invoiceRoutes.GET("/:id", invoiceHandler.GetByID)
	invoiceRoutes.POST("/:id/approve", invoiceHandler.Approve)
	invoiceRoutes.POST("/:id/approve-funding", invoiceHandler.ApproveFunding)
	invoiceRoutes.POST("/:id/cancel", invoiceHandler.Cancel)

	// Funding domain (early payment settlement)
	fundingRoutes := router.NewDomainGroup("funding", "/funding")
	fundingRoutes.POST("/invoices/:id/fund", fundingHandler.FundInvoice)
	fundingRoutes.POST("/invoices/:id/repay", fundingHandler.Repay)
	fundingRoutes.POST("/invoices/:id/default", middleware.RequireOperator(), fundingHandler.MarkDefaulted)
	fundingRoutes.POST("/settlements", middleware.RequireOperator(), fundingHandler.ConfirmSettlement)
	fundingRoutes.GET("/invoices/:id", fundingHandler.GetRecordByInvoice)
	fundingRoutes.GET("/records", fundingHandler.ListRecords)
	fundingRoutes.GET("/ledger", fundingHandler.GetLedger)

	// Auth routes (token minting, disabled in production)
	authRoutes := router.NewDomainGroup("auth", "/auth")
	authRoutes.POST("/token", authHandler.IssueToken)

	// System routes
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	r.Register(poolRoutes).
		Register(treasuryRoutes).
		Register(invoiceRoutes).
		Register(fundingRoutes).
		Register(authRoutes).
		Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
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

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
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
