package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	deadletter_app "ecommerce/internal/app/deadletter"
	inventory_app "ecommerce/internal/app/inventory"
	"ecommerce/internal/config"
	"ecommerce/internal/correlation"
	"ecommerce/internal/domain/event"
	deadletter_http "ecommerce/internal/handler/http/deadletter"
	inventory_http "ecommerce/internal/handler/http/inventory"
	kafka_handler "ecommerce/internal/handler/kafka"
	"ecommerce/internal/infrastructure/database"
	"ecommerce/internal/messaging"
	"ecommerce/internal/messaging/outbox"
	"ecommerce/internal/messaging/redelivery"
	postgres_deadletter_repo "ecommerce/internal/repository/deadletter_repo/postgres"
	postgres_outbox_repo "ecommerce/internal/repository/outbox_repo/postgres"
	postgres_redelivery_repo "ecommerce/internal/repository/redelivery_repo/postgres"
	postgres_stock_repo "ecommerce/internal/repository/stock_repo/postgres"
)

func main() {
	cfg, err := config.Load("inventory")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.TimeKey = "timestamp"

	appLogger, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create zap logger: %v\n", err)
		os.Exit(1)
	}
	appLogger.Info("Inventory Service starting...")

	db, err := database.Connect(cfg.DB, appLogger)
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("Error closing database connection", zap.Error(err))
		}
	}()

	if err := database.RunMigrations(cfg.MigrationsPath, cfg.DB, appLogger); err != nil {
		appLogger.Fatal("Database migration failed", zap.Error(err))
	}

	producer := messaging.NewProducer(cfg.KafkaBrokers(), appLogger)
	defer func() {
		if err := producer.Close(); err != nil {
			appLogger.Error("Error closing Kafka producer", zap.Error(err))
		}
	}()

	stockRepo := postgres_stock_repo.NewStockRepository(db, appLogger)
	outboxRepo := postgres_outbox_repo.NewOutboxRepository(db, appLogger)
	redeliveryRepo := postgres_redelivery_repo.NewRedeliveryRepository(db, appLogger)
	deadLetterRepo := postgres_deadletter_repo.NewDeadLetterRepository(db, appLogger)

	inventoryService := inventory_app.NewInventoryService(stockRepo, appLogger)
	deadLetterService := deadletter_app.NewDeadLetterService(deadLetterRepo, producer, appLogger)

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outboxProcessor := outbox.NewProcessor(outboxRepo, producer, cfg.OutboxPollInterval, cfg.OutboxPollTimeout, appLogger)
	go outboxProcessor.Run(rootCtx)

	redeliveryScheduler := redelivery.NewScheduler(redeliveryRepo, producer, cfg.RedeliveryPollInterval, appLogger)
	go redeliveryScheduler.Run(rootCtx)

	pipeline := messaging.NewPipeline(
		messaging.RetryPolicy{MaxAttempts: cfg.Consumer.MaxRetries, BaseInterval: cfg.Consumer.RetryBaseInterval},
		cfg.Consumer.RedeliveryIntervals,
		redeliveryScheduler,
		deadLetterService,
		cfg.Consumer.DeadLetterEnabled,
		appLogger,
	)

	cancelConsumer := messaging.NewConsumer(messaging.ConsumerOptions{
		Brokers:        cfg.KafkaBrokers(),
		Topic:          messaging.TopicName(event.TypeOrderCancelled),
		GroupID:        cfg.Consumer.GroupID,
		Prefetch:       cfg.Consumer.Prefetch,
		HandlerTimeout: cfg.Consumer.HandlerTimeout,
	}, pipeline, kafka_handler.OrderCancelledStockHandler(inventoryService, appLogger), appLogger)
	go func() {
		if err := cancelConsumer.Run(rootCtx); err != nil {
			appLogger.Error("Order cancelled consumer stopped", zap.Error(err))
		}
	}()
	appLogger.Info("Order cancelled consumer started")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(correlation.Middleware)
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.Handler())

	inventory_http.RegisterRoutes(r, inventoryService, appLogger)
	deadletter_http.RegisterRoutes(r, deadLetterService, appLogger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()
	appLogger.Info("Inventory Service started", zap.String("address", server.Addr))

	<-sigChan

	appLogger.Info("Shutting down Inventory Service...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal("Inventory Service graceful shutdown failed", zap.Error(err))
	}
	appLogger.Info("Inventory Service stopped.")
}
