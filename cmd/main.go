/**
 * @description
 * This is the main entry point for the renewal-service. It is responsible for
 * initializing all components of the service, including configuration, database
 * connection, the RabbitMQ producer, the Redis rate limiter, the repository, the
 * core application service, the cron scheduler and the HTTP server. It wires
 * everything together and starts the service.
 *
 * @dependencies
 * - log/slog, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/jackc/pgx-shopspring-decimal: Decimal codec for pgx.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/shoply/renewal-service/internal/api"
	"github.com/shoply/renewal-service/internal/app"
	"github.com/shoply/renewal-service/internal/config"
	"github.com/shoply/renewal-service/internal/store"
	"github.com/shoply/renewal-service/pkg/rabbitmq"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load .env file for local development.
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using environment variables")
	}

	// Load application configuration.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("starting renewal-service", "port", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to parse database URL", "error", err)
		os.Exit(1)
	}

	// Configure connection pool for high-traffic scenarios
	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	// All money columns are NUMERIC; register the shopspring decimal codec so
	// they scan into decimal.Decimal without passing through float64.
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	// Initialize the RabbitMQ producer to publish notification events.
	// This service only needs to publish, so we use a producer.
	var producer rabbitmq.Publisher
	eventProducer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		logger.Warn("rabbitmq producer unavailable; using fallback", "error", err)
		producer = &rabbitmq.EventProducerFallback{}
	} else {
		producer = eventProducer
	}
	defer producer.Close()

	// Redis backs the per-customer rate limit on the lifecycle endpoints.
	// If it is unreachable the service still boots; limiting is disabled.
	var limiter *app.RedisLifecycleRateLimiter
	if strings.TrimSpace(cfg.RedisURL) == "" {
		logger.Warn("redis url missing; lifecycle rate limiting disabled", "env", "REDIS_URL")
	} else {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			logger.Warn("redis url parse failed; lifecycle rate limiting disabled", "error", parseErr)
		} else {
			redisClient := redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				logger.Warn("redis ping failed; lifecycle rate limiting disabled", "error", pingErr)
				redisClient.Close()
			} else {
				defer redisClient.Close()
				limiter = app.NewRedisLifecycleRateLimiter(redisClient, cfg.RedisRateLimitPrefix)
				logger.Info("redis connected")
			}
			cancelPing()
		}
	}

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)

	// Initialize the core application service with its dependencies.
	notifier := app.NewRabbitNotifier(producer)
	service := app.NewService(repository, notifier, logger, cfg)

	// Start the cron scheduler for the nightly renewal sweep.
	scheduler, err := app.NewScheduler(service, logger, cfg)
	if err != nil {
		logger.Error("failed to create scheduler", "error", err)
		os.Exit(1)
	}
	scheduler.Start()

	// Set up the HTTP router and define the API routes.
	handlers := api.NewSubscriptionHandlers(service)
	var routerLimiter api.RateLimiter
	if limiter != nil {
		routerLimiter = limiter
	}
	router := api.NewRouter(handlers, routerLimiter, cfg)

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		logger.Info("server listening", "addr", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for termination signal to gracefully shut down.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutdown started")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	// Stop the scheduler and wait for any in-flight renewal run to finish.
	stopCtx := scheduler.Stop()
	<-stopCtx.Done()

	logger.Info("shutdown complete")
}
