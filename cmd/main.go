package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"ebook-assistant/internal/chat"
	"ebook-assistant/internal/config"
	"ebook-assistant/internal/ebook"
	"ebook-assistant/internal/logger"
	"ebook-assistant/internal/telemetry"
	"ebook-assistant/internal/visitors"
	"ebook-assistant/middleware"
	"ebook-assistant/routes"
	"ebook-assistant/services"
	"ebook-assistant/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer(cfg.ServiceName, cfg.OTLPEndpoint, cfg.TraceSampleRatio)
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
		shutdownTracer = func() {}
	}
	defer shutdownTracer()

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Metrics disabled", "error", err)
	}

	// Optional stores. Anything unconfigured or unreachable falls back to memory.
	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, using in-memory stores", "error", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		logger.Warn("MongoDB unavailable, total visits kept in memory", "error", err)
	}
	if mongoClient != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			mongoClient.Disconnect(ctx)
		}()
	}

	// E-book
	var source ebook.Source
	if cfg.AssetBaseURL != "" {
		source = ebook.NewHTTPSource(cfg.AssetBaseURL, utils.DefaultTimeout)
	} else {
		source = ebook.NewDirSource(cfg.AssetDir)
	}
	assets := ebook.Assets{
		Paragraphs: cfg.ParagraphsFile,
		Chunks:     cfg.ChunksFile,
		TOC:        cfg.TOCFile,
		Chapter:    cfg.ChapterFile,
	}
	handle := ebook.NewHandle(ebook.NewLoader(source, assets, metrics), metrics)
	go func() {
		ctx, cancel := utils.WithLongTimeout(context.Background())
		defer cancel()
		if _, err := handle.Index(ctx); err != nil {
			logger.Warn("Index warm-up did not finish", "error", err)
		}
	}()

	chatClient := chat.NewClient(chat.Options{
		BaseURL:      cfg.ChatBackendURL,
		Timeout:      cfg.ChatTimeout,
		RPM:          cfg.ChatRPM,
		BreakerTrips: cfg.ChatBreakerTrips,
		BreakerReset: cfg.ChatBreakerReset,
	}, metrics)

	// Visitors
	var sessions visitors.SessionStore = visitors.NewMemoryStore()
	var ledger visitors.Ledger = visitors.NewMemoryLedger(cfg.TotalVisitTTL)
	if rdb != nil {
		sessions = visitors.NewRedisStore(rdb)
		ledger = visitors.NewRedisLedger(rdb, cfg.TotalVisitTTL)
	}
	var counter visitors.TotalCounter = visitors.NewMemoryTotalCounter(cfg.TotalVisitSeed)
	if mongoClient != nil {
		counter = visitors.NewMongoTotalCounter(mongoClient.Database(cfg.DBName))
	}
	tracker := visitors.NewTracker(sessions, cfg.SessionTTL, metrics)
	totals := visitors.NewTotalVisits(counter, ledger)

	// Chat history
	fallback := cfg.ChatFallbackReply
	if fallback == "" {
		fallback = chat.FallbackMessage
	}
	var historyStore services.HistoryStore
	var memHistory *services.MemoryHistoryStore
	if rdb != nil {
		historyStore = services.NewRedisHistoryStore(rdb, cfg.HistoryTTL)
	} else {
		memHistory = services.NewMemoryHistoryStore(cfg.HistoryTTL)
		historyStore = memHistory
	}
	history := services.NewChatHistoryService(historyStore, cfg.HistoryMaxItems, fallback)

	cron := services.NewCronService(cfg.SweepInterval, tracker, totals, memHistory)
	if err := cron.Start(); err != nil {
		logger.Error("Failed to start housekeeping cron", "error", err)
		os.Exit(1)
	}
	defer cron.Stop()

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware(cfg.ServiceName))
	router.Use(middleware.EnrichTrace())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.MetricsMiddleware(metrics))
	router.Use(middleware.RequestSizeLimit(cfg.MaxBodySize))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	// Setup routes
	routes.SetupEbookRoutes(router, cfg, handle, metrics)
	routes.SetupChatRoutes(router, cfg, chatClient, handle, history, rdb)
	routes.SetupVisitRoutes(router, tracker, totals)
	routes.SetupHistoryRoutes(router, cfg, history)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
