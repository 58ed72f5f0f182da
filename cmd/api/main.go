package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/kursadbilgin/push-engine/internal/config"
	"github.com/kursadbilgin/push-engine/internal/handler"
	"github.com/kursadbilgin/push-engine/internal/infra/postgresql"
	"github.com/kursadbilgin/push-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/push-engine/internal/infra/redis"
	"github.com/kursadbilgin/push-engine/internal/observability"
	"github.com/kursadbilgin/push-engine/internal/queue"
	"github.com/kursadbilgin/push-engine/internal/repository"
	"github.com/kursadbilgin/push-engine/internal/service"
	"github.com/kursadbilgin/push-engine/internal/transport"
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

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
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

	tokenSvc, err := service.NewTokenService(tokenRepo, cfg.HealthScoreCutoff, logger)
	if err != nil {
		logger.Fatal("token service initialization failed", zap.Error(err))
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

	activitySvc, err := service.NewActivityService(queue.NewRabbitMQPublisher(rmq), logger)
	if err != nil {
		logger.Fatal("activity service initialization failed", zap.Error(err))
	}

	maintenanceSvc, err := service.NewMaintenanceService(tokenRepo, service.MaintenanceConfig{
		Enabled:                 cfg.MaintenanceEnabled,
		Interval:                time.Duration(cfg.MaintenanceIntervalMins) * time.Minute,
		HistorySize:             cfg.MaintenanceHistorySize,
		MaxTokenAgeDays:         cfg.MaxTokenAgeDays,
		HealthScoreCutoff:       cfg.HealthScoreCutoff,
		JobDurationAlert:        time.Duration(cfg.JobDurationAlertSecs) * time.Second,
		UnhealthyAlertPercent:   cfg.UnhealthyAlertPercent,
		RecentFailureAlertCount: cfg.RecentFailureAlertCount,
	}, metrics, logger)
	if err != nil {
		logger.Fatal("maintenance service initialization failed", zap.Error(err))
	}

	maintenanceLoop, err := service.NewMaintenanceLoop(maintenanceSvc, time.Minute, logger)
	if err != nil {
		logger.Fatal("maintenance loop initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(metrics.HTTPMiddleware())

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	handler.RegisterHealthRoutes(app, sqlDB, rdb)

	if err := handler.RegisterTokenRoutes(app, tokenSvc); err != nil {
		logger.Fatal("token routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterRecipientRoutes(app, resolverSvc); err != nil {
		logger.Fatal("recipient routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterActivityRoutes(app, activitySvc); err != nil {
		logger.Fatal("activity routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterMaintenanceRoutes(app, maintenanceSvc); err != nil {
		logger.Fatal("maintenance routes registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go maintenanceLoop.Start(ctx)

	go func() {
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
			logger.Error("http server stopped", zap.Error(err))
			stop()
		}
	}()

	logger.Info("push-engine api started", zap.Int("port", cfg.APIPort))

	<-ctx.Done()

	logger.Info("shutting down push-engine api")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}
}
