package queue

import (
	"context"
	"fmt"

	"github.com/kursadbilgin/textqueue/internal/domain"
)

// Publisher announces stored messages on the work queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg QueuedMessage) error
	Close() error
}

const (
	// SMSQueue is the work queue read by the delivery processor.
	SMSQueue = "sms"

	// queueMaxPriority is the RabbitMQ x-max-priority value for the work queue.
	queueMaxPriority int32 = 3
)

// DLQName returns the dead-letter queue name for a work queue, e.g. dlq.sms.
func DLQName(queue string) string {
	return fmt.Sprintf("dlq.%s", queue)
}

// PriorityValue maps domain priority to RabbitMQ message priority.
func PriorityValue(priority domain.Priority) uint8 {
	switch priority {
	case domain.PriorityContact:
		return 3
	case domain.PriorityLead:
		return 2
	case domain.PriorityTaster:
		return 1
	default:
		return 0
	}
}
