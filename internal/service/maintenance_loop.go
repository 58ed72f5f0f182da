package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kursadbilgin/push-engine/internal/domain"
	"go.uber.org/zap"
)

const defaultMaintenanceCheckInterval = time.Minute

// MaintenanceLoop periodically asks the maintenance service whether a run is
// due and triggers it. Disabling maintenance stops future runs only; a run
// already in progress completes.
type MaintenanceLoop struct {
	maintenance *MaintenanceService
	logger      *zap.Logger
	interval    time.Duration
}

func NewMaintenanceLoop(
	maintenance *MaintenanceService,
	checkInterval time.Duration,
	logger *zap.Logger,
) (*MaintenanceLoop, error) {
	if maintenance == nil {
		return nil, fmt.Errorf("maintenance service is required")
	}
	if checkInterval <= 0 {
		checkInterval = defaultMaintenanceCheckInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MaintenanceLoop{
		maintenance: maintenance,
		logger:      logger,
		interval:    checkInterval,
	}, nil
}

func (l *MaintenanceLoop) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

func (l *MaintenanceLoop) tick(ctx context.Context) {
	if !l.maintenance.ShouldRun(false) {
		return
	}

	job, err := l.maintenance.RunJob(ctx, domain.MaintenanceOptions{})
	if err != nil {
		if errors.Is(err, domain.ErrMaintenanceRunning) {
			return
		}
		l.logger.Error("scheduled maintenance run failed", zap.Error(err))
		return
	}

	l.logger.Info("scheduled maintenance run completed",
		zap.String("jobId", job.JobID),
		zap.Bool("success", job.Success),
		zap.Duration("duration", job.Duration),
	)
}
