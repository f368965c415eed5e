/**
 * @description
 * This is the main entry point for the directory server. It initializes
 * configuration, the database pool, migrations, Redis, the message broker
 * wiring, all application services, the background workers and the HTTP
 * server, and shuts everything down gracefully on SIGINT/SIGTERM.
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

	"github.com/vyaparlink/directory-server/internal/api"
	"github.com/vyaparlink/directory-server/internal/app"
	"github.com/vyaparlink/directory-server/internal/config"
	"github.com/vyaparlink/directory-server/internal/metrics"
	"github.com/vyaparlink/directory-server/internal/migrations"
	"github.com/vyaparlink/directory-server/internal/store"
	"github.com/vyaparlink/directory-server/pkg/mailer"
	"github.com/vyaparlink/directory-server/pkg/rabbitmq"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = 50
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	if err := migrations.Run(cfg.DatabaseURL, cfg.MigrationsDir, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			logger.Warn("redis url parse failed; payout locking degrades to the database guard", "error", parseErr)
		} else {
			redisClient = redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				logger.Warn("redis ping failed; payout locking degrades to the database guard", "error", pingErr)
				redisClient.Close()
				redisClient = nil
			} else {
				defer redisClient.Close()
				logger.Info("redis connection established")
			}
			cancelPing()
		}
	}

	// Repositories.
	userRepo := store.NewUserRepository(dbpool)
	businessRepo := store.NewBusinessRepository(dbpool)
	subscriptionRepo := store.NewSubscriptionRepository(dbpool)
	affiliateRepo := store.NewAffiliateRepository(dbpool)
	ledgerRepo := store.NewLedgerRepository(dbpool)
	outboxRepo := store.NewOutboxRepository(dbpool)

	appMetrics := metrics.New()

	// Application services.
	var locker app.PayoutLocker = app.NewRedisPayoutLocker(redisClient, "directory:payout_lock")
	accountService := app.NewAccountService(userRepo, outboxRepo, cfg.JWTSecret)
	directoryService := app.NewDirectoryService(businessRepo, outboxRepo)
	subscriptionService := app.NewSubscriptionService(subscriptionRepo, businessRepo, outboxRepo, cfg.UploadMaxBytes)
	affiliateService := app.NewAffiliateService(affiliateRepo, outboxRepo, appMetrics)
	ledgerService := app.NewLedgerService(ledgerRepo, affiliateRepo, locker, outboxRepo, appMetrics)

	// Background workers.
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	dispatcher := app.NewOutboxDispatcher(outboxRepo, cfg.RabbitMQURL, appMetrics)
	go dispatcher.Run(workerCtx)
	logger.Info("outbox dispatcher started")

	if cfg.EmailWorkerOn {
		worker := app.NewEmailWorker(
			mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPSender),
			cfg.AdminEmail,
			appMetrics,
		)
		consumer, err := rabbitmq.NewConsumer(cfg.RabbitMQURL)
		if err != nil {
			logger.Warn("rabbitmq consumer unavailable; email worker disabled", "error", err)
		} else {
			defer consumer.Close()
			if err := consumer.ConsumeWithBindings(app.EmailQueueExchange, app.EmailQueueName, worker.Bindings()); err != nil {
				logger.Warn("email worker start failed", "error", err)
			} else {
				logger.Info("email worker started")
			}
		}
	}

	if cfg.SchedulerOn {
		jobs := app.NewJobs(affiliateRepo, subscriptionRepo, logger)
		scheduler := app.NewScheduler(jobs, logger, cfg)
		scheduler.Start()
		defer func() {
			stopCtx := scheduler.Stop()
			<-stopCtx.Done()
		}()
		logger.Info("scheduler started")
	}

	// HTTP server.
	handler := api.NewHandler(accountService, directoryService, subscriptionService, affiliateService, ledgerService, cfg.UploadMaxBytes)
	router := api.NewRouter(handler, cfg.JWTSecret, appMetrics.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	go func() {
		logger.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutdown signal received")

	stopWorkers()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	logger.Info("shutdown complete")
}
