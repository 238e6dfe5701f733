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
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	cart_app "ecommerce/internal/app/cart"
	deadletter_app "ecommerce/internal/app/deadletter"
	"ecommerce/internal/config"
	"ecommerce/internal/correlation"
	"ecommerce/internal/domain/event"
	cart_http "ecommerce/internal/handler/http/cart"
	deadletter_http "ecommerce/internal/handler/http/deadletter"
	kafka_handler "ecommerce/internal/handler/kafka"
	"ecommerce/internal/infrastructure/database"
	"ecommerce/internal/messaging"
	"ecommerce/internal/messaging/redelivery"
	redis_cart_repo "ecommerce/internal/repository/cart_repo/redis"
	postgres_deadletter_repo "ecommerce/internal/repository/deadletter_repo/postgres"
	postgres_redelivery_repo "ecommerce/internal/repository/redelivery_repo/postgres"
)

func main() {
	cfg, err := config.Load("cart")
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
	appLogger.Info("Cart Service starting...")

	// The cart itself lives in Redis; Postgres backs only the messaging
	// reliability tables.
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

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		appLogger.Fatal("Could not connect to Redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis", zap.String("addr", cfg.RedisAddr))

	producer := messaging.NewProducer(cfg.KafkaBrokers(), appLogger)
	defer func() {
		if err := producer.Close(); err != nil {
			appLogger.Error("Error closing Kafka producer", zap.Error(err))
		}
	}()

	cartRepo := redis_cart_repo.NewCartRepository(redisClient, appLogger)
	redeliveryRepo := postgres_redelivery_repo.NewRedeliveryRepository(db, appLogger)
	deadLetterRepo := postgres_deadletter_repo.NewDeadLetterRepository(db, appLogger)

	cartService := cart_app.NewCartService(cartRepo, appLogger)
	deadLetterService := deadletter_app.NewDeadLetterService(deadLetterRepo, producer, appLogger)

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	orderCreatedConsumer := messaging.NewConsumer(messaging.ConsumerOptions{
		Brokers:        cfg.KafkaBrokers(),
		Topic:          messaging.TopicName(event.TypeOrderCreated),
		GroupID:        cfg.Consumer.GroupID,
		Prefetch:       cfg.Consumer.Prefetch,
		HandlerTimeout: cfg.Consumer.HandlerTimeout,
	}, pipeline, kafka_handler.OrderCreatedCartHandler(cartService, appLogger), appLogger)
	go func() {
		if err := orderCreatedConsumer.Run(rootCtx); err != nil {
			appLogger.Error("Order created consumer stopped", zap.Error(err))
		}
	}()
	appLogger.Info("Order created consumer started")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(correlation.Middleware)
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.Handler())

	cart_http.RegisterRoutes(r, cartService, appLogger)
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
	appLogger.Info("Cart Service started", zap.String("address", server.Addr))

	<-sigChan

	appLogger.Info("Shutting down Cart Service...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal("Cart Service graceful shutdown failed", zap.Error(err))
	}
	appLogger.Info("Cart Service stopped.")
}
