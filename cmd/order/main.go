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
	order_app "ecommerce/internal/app/order"
	"ecommerce/internal/clients/catalog"
	"ecommerce/internal/config"
	"ecommerce/internal/correlation"
	"ecommerce/internal/domain/event"
	deadletter_http "ecommerce/internal/handler/http/deadletter"
	order_http "ecommerce/internal/handler/http/order"
	kafka_handler "ecommerce/internal/handler/kafka"
	"ecommerce/internal/infrastructure/database"
	"ecommerce/internal/messaging"
	"ecommerce/internal/messaging/outbox"
	"ecommerce/internal/messaging/redelivery"
	postgres_deadletter_repo "ecommerce/internal/repository/deadletter_repo/postgres"
	postgres_order_repo "ecommerce/internal/repository/order_repo/postgres"
	postgres_outbox_repo "ecommerce/internal/repository/outbox_repo/postgres"
	postgres_redelivery_repo "ecommerce/internal/repository/redelivery_repo/postgres"
)

func main() {
	cfg, err := config.Load("order")
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
	appLogger.Info("Order Service starting...")

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

	orderRepo := postgres_order_repo.NewOrderRepository(db, appLogger)
	outboxRepo := postgres_outbox_repo.NewOutboxRepository(db, appLogger)
	redeliveryRepo := postgres_redelivery_repo.NewRedeliveryRepository(db, appLogger)
	deadLetterRepo := postgres_deadletter_repo.NewDeadLetterRepository(db, appLogger)

	stockClient := catalog.NewStockClient(cfg.CatalogBaseURL, 10*time.Second, appLogger)
	orderService := order_app.NewOrderService(orderRepo, stockClient, appLogger)
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

	consumers := map[string]messaging.Handler{
		messaging.TopicName(event.TypePaymentCompleted): kafka_handler.PaymentCompletedHandler(orderService, appLogger),
		messaging.TopicName(event.TypePaymentFailed):    kafka_handler.PaymentFailedHandler(orderService, appLogger),
	}
	for topic, handler := range consumers {
		consumer := messaging.NewConsumer(messaging.ConsumerOptions{
			Brokers:        cfg.KafkaBrokers(),
			Topic:          topic,
			GroupID:        cfg.Consumer.GroupID,
			Prefetch:       cfg.Consumer.Prefetch,
			HandlerTimeout: cfg.Consumer.HandlerTimeout,
		}, pipeline, handler, appLogger)
		go func(topic string) {
			if err := consumer.Run(rootCtx); err != nil {
				appLogger.Error("Consumer stopped", zap.String("topic", topic), zap.Error(err))
			}
		}(topic)
	}
	appLogger.Info("Payment event consumers started")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(correlation.Middleware)
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.Handler())

	order_http.RegisterRoutes(r, orderService, appLogger)
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
	appLogger.Info("Order Service started", zap.String("address", server.Addr))

	<-sigChan

	appLogger.Info("Shutting down Order Service...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal("Order Service graceful shutdown failed", zap.Error(err))
	}
	appLogger.Info("Order Service stopped.")
}
