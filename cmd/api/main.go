package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/decoynet/decoy-chat-platform/internal/analytics"
	"github.com/decoynet/decoy-chat-platform/internal/api/router"
	appconfig "github.com/decoynet/decoy-chat-platform/internal/config"
	"github.com/decoynet/decoy-chat-platform/internal/ingest"
	"github.com/decoynet/decoy-chat-platform/internal/observability/metrics"
	"github.com/decoynet/decoy-chat-platform/internal/persona"
	"github.com/decoynet/decoy-chat-platform/internal/store"
	"github.com/decoynet/decoy-chat-platform/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting decoy chat platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	// Storage: Postgres when configured, otherwise in-memory (development).
	var storage store.Storage
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}
		storage = store.NewPostgresStore(db)
		logger.Info("using postgres storage")
	} else {
		storage = store.NewMemoryStore()
		logger.Warn("DATABASE_URL not set, using in-memory storage")
	}

	// Live transcript mirror is optional.
	var transcript *store.TranscriptStore
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		transcript = store.NewTranscriptStore(redis.NewClient(opts))
		logger.Info("transcript mirror enabled", "addr", cfg.RedisAddr)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	queueMetrics := metrics.NewQueueMetrics(registry)

	analyticsService := analytics.NewService(storage, transcript, logger.Component("analytics"))

	queue := ingest.NewQueue(storage, logger.Component("ingest"),
		ingest.WithQueueCapacity(cfg.QueueCapacity),
		ingest.WithQueueMetrics(queueMetrics),
		ingest.WithTranscriptStore(transcript),
		ingest.WithStopGrace(cfg.ShutdownGrace),
	)
	manager := ingest.NewManager(ingest.ManagerConfig{
		Queue:   queue,
		Limiter: ingest.NewRateLimiter(cfg.MaxMessagesPerMinute, cfg.MaxConversationsPerMinute),
		Batcher: ingest.NewBatcher(cfg.AnalyticsBatchSize, analyticsService.AnalyzeBatch, logger.Component("batcher")),
		Logger:  logger.Component("ingest"),
		Metrics: queueMetrics,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	manager.Start(ctx, cfg.WorkerCount)

	responder := persona.NewTemplateResponder(rand.NewSource(time.Now().UnixNano()))

	r := router.New(&router.Config{
		Logger:           logger,
		IngestHandler:    ingest.NewHandler(manager, logger.Component("ingest")),
		AnalyticsHandler: analytics.NewHandler(analyticsService, logger.Component("analytics")),
		PersonaHandler:   persona.NewHandler(responder, logger.Component("persona")),
		MetricsHandler:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),

		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ThrottleRate:       float64(cfg.ThrottleRate),
		ThrottleBurst:      cfg.ThrottleBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// Drain in-flight tasks and flush the analytics batch.
	manager.Shutdown()

	logger.Info("server stopped")
}
