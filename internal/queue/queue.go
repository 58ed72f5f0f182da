package queue

import (
	"context"

	"github.com/kursadbilgin/push-engine/internal/domain"
)

// Publisher publishes activity messages to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg ActivityMessage) error
	Close() error
}

// MessageHandler handles a consumed queue message.
type MessageHandler func(ctx context.Context, msg ActivityMessage) error

// Consumer consumes activity messages from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}

const (
	// ActivitiesQueue receives every activity payload produced by the
	// surrounding routes.
	ActivitiesQueue = "activities"

	// ActivitiesDLQ collects activity messages rejected after processing.
	ActivitiesDLQ = "dlq.activities"

	// queueMaxPriority is the RabbitMQ x-max-priority value for the work queue.
	queueMaxPriority int32 = 3
)

// PriorityValue maps an activity kind to a RabbitMQ message priority;
// transfers notify two scopes and jump the line.
func PriorityValue(kind domain.ActivityKind) uint8 {
	switch kind {
	case domain.ActivityTransfer:
		return 3
	case domain.ActivityMaterial:
		return 2
	case domain.ActivityStaffAssigned, domain.ActivityStaffRemoved:
		return 1
	default:
		return 0
	}
}
