package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/kursadbilgin/push-engine/internal/config"
	"github.com/kursadbilgin/push-engine/internal/gateway"
	"github.com/kursadbilgin/push-engine/internal/infra/postgresql"
	infraredis "github.com/kursadbilgin/push-engine/internal/infra/redis"
	"github.com/kursadbilgin/push-engine/internal/observability"
	"github.com/kursadbilgin/push-engine/internal/queue"
	"github.com/kursadbilgin/push-engine/internal/repository"
	"github.com/kursadbilgin/push-engine/internal/service"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	rmq, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer rmq.Close()

	metrics := observability.NewMetrics()

	tokenRepo := repository.NewGormTokenRepo(db, cfg.FailureThreshold)
	directoryRepo := repository.NewGormDirectoryRepo(db)

	recipientCache, err := infraredis.NewRecipientCache(rdb)
	if err != nil {
		logger.Fatal("recipient cache initialization failed", zap.Error(err))
	}

	limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.GatewayRatePerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	gw, err := gateway.NewExpoGateway(cfg.ExpoPushURL, time.Duration(cfg.GatewayTimeoutSecs)*time.Second)
	if err != nil {
		logger.Fatal("expo gateway initialization failed", zap.Error(err))
	}

	resolverSvc, err := service.NewResolverService(
		directoryRepo,
		tokenRepo,
		recipientCache,
		time.Duration(cfg.RecipientCacheTTLSecs)*time.Second,
		cfg.HealthScoreCutoff,
		metrics,
		logger,
	)
	if err != nil {
		logger.Fatal("resolver service initialization failed", zap.Error(err))
	}

	deliverySvc, err := service.NewDeliveryService(
		tokenRepo,
		resolverSvc,
		gw,
		limiter,
		cfg.GatewayChunkSize,
		metrics,
		logger,
	)
	if err != nil {
		logger.Fatal("delivery service initialization failed", zap.Error(err))
	}

	consumer := queue.NewRabbitMQConsumer(rmq, cfg.WorkerConcurrency, logger)

	worker, err := service.NewActivityWorker(deliverySvc, consumer, cfg.WorkerConcurrency, logger)
	if err != nil {
		logger.Fatal("activity worker initialization failed", zap.Error(err))
	}
	worker.SetMetrics(metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("push-engine worker started", zap.Int("concurrency", cfg.WorkerConcurrency))

	if err := worker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("activity worker stopped", zap.Error(err))
	}

	logger.Info("push-engine worker shut down")
}
