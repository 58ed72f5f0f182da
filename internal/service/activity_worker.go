package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kursadbilgin/push-engine/internal/domain"
	"github.com/kursadbilgin/push-engine/internal/observability"
	"github.com/kursadbilgin/push-engine/internal/queue"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minWorkerConcurrency = 1

// ActivityWorker consumes activity messages and drives delivery. Malformed
// messages are acked away so they land in the dead-letter queue path instead
// of looping forever.
type ActivityWorker struct {
	delivery    *DeliveryService
	consumer    queue.Consumer
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
	now         func() time.Time
}

func NewActivityWorker(
	delivery *DeliveryService,
	consumer queue.Consumer,
	concurrency int,
	logger *zap.Logger,
) (*ActivityWorker, error) {
	if delivery == nil {
		return nil, fmt.Errorf("delivery service is required")
	}
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ActivityWorker{
		delivery:    delivery,
		consumer:    consumer,
		logger:      logger,
		concurrency: concurrency,
		now:         time.Now,
	}, nil
}

// Start consumes the activities queue until context cancellation.
func (w *ActivityWorker) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			w.logger.Info("activity worker started", zap.Int("workerId", workerID))

			err := w.consumer.Consume(groupCtx, queue.ActivitiesQueue, w.processMessage)
			if err != nil {
				w.logger.Error("activity worker stopped with error",
					zap.Int("workerId", workerID),
					zap.Error(err),
				)
				return err
			}

			w.logger.Info("activity worker stopped", zap.Int("workerId", workerID))
			return nil
		})
	}

	return g.Wait()
}

func (w *ActivityWorker) processMessage(ctx context.Context, msg queue.ActivityMessage) error {
	if err := msg.Validate(); err != nil {
		w.logger.Warn("discarding malformed activity message",
			zap.String("activityId", msg.ActivityID),
			zap.Error(err),
		)
		return nil
	}

	if w.metrics != nil {
		w.metrics.IncWorkerInFlight()
		defer w.metrics.DecWorkerInFlight()
	}

	start := w.now()
	result, err := w.delivery.NotifyActivityCreated(ctx, &msg.Activity)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			w.logger.Warn("discarding undeliverable activity",
				zap.String("activityId", msg.ActivityID),
				zap.Error(err),
			)
			return nil
		}
		return fmt.Errorf("failed to deliver activity %s: %w", msg.ActivityID, err)
	}

	fields := []zap.Field{
		zap.String("activityId", msg.ActivityID),
		zap.String("kind", msg.Activity.Kind.String()),
		zap.Bool("success", result.Success),
		zap.Int("delivered", result.Primary.DeliveredCount),
		zap.Int("failed", result.Primary.FailedCount),
		zap.Duration("took", w.now().Sub(start)),
	}
	if msg.CorrelationID != "" {
		fields = append(fields, zap.String("correlationId", msg.CorrelationID))
	}
	if result.Secondary != nil {
		fields = append(fields,
			zap.Int("secondaryDelivered", result.Secondary.DeliveredCount),
			zap.Int("secondaryFailed", result.Secondary.FailedCount),
		)
	}
	w.logger.Info("activity processed", fields...)

	return nil
}

func (w *ActivityWorker) SetMetrics(metrics *observability.Metrics) {
	if w == nil {
		return
	}
	w.metrics = metrics
}
