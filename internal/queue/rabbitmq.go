package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	dlxExchangeName = "textqueue.dlx"

	dialAttempts  = 3
	dialTimeout   = 5 * time.Second
	dialRetryStep = time.Second
	heartbeat     = 10 * time.Second
)

// RabbitMQ holds the single broker connection of a run. A dropped connection
// is redialed at most once per channel request, with a bounded number of attempts.
type RabbitMQ struct {
	url    string
	queues []string

	mu   sync.Mutex
	conn *amqp.Connection
}

// NewRabbitMQ connects to the broker. The work queues are declared each time
// a channel is opened.
func NewRabbitMQ(ctx context.Context, url string, queues ...string) (*RabbitMQ, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("rabbitmq url is required")
	}
	if len(queues) == 0 {
		queues = []string{SMSQueue}
	}

	r := &RabbitMQ{url: url, queues: queues}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.dialLocked(ctx); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()

	if conn == nil || conn.IsClosed() {
		return nil
	}

	return conn.Close()
}

func (r *RabbitMQ) channel(ctx context.Context) (*amqp.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil || r.conn.IsClosed() {
		if err := r.dialLocked(ctx); err != nil {
			return nil, err
		}
	}

	ch, err := r.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create rabbitmq channel: %w", err)
	}

	if err := declareTopology(ch, r.queues); err != nil {
		_ = ch.Close()
		return nil, err
	}

	return ch, nil
}

func (r *RabbitMQ) dialLocked(ctx context.Context) error {
	cfg := amqp.Config{
		Heartbeat: heartbeat,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	}

	var lastErr error
	for attempt := 1; attempt <= dialAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("rabbitmq connect canceled: %w", err)
		}

		conn, err := amqp.DialConfig(r.url, cfg)
		if err == nil {
			r.conn = conn
			return nil
		}
		lastErr = err

		if attempt == dialAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("rabbitmq connect canceled: %w (last error: %v)", ctx.Err(), lastErr)
		case <-time.After(time.Duration(attempt) * dialRetryStep):
		}
	}

	return fmt.Errorf("failed to connect to rabbitmq after %d attempts: %w", dialAttempts, lastErr)
}

func declareTopology(ch *amqp.Channel, queues []string) error {
	if err := ch.ExchangeDeclare(
		dlxExchangeName,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare dlx exchange: %w", err)
	}

	for _, queueName := range queues {
		dlqName := DLQName(queueName)

		if _, err := ch.QueueDeclare(
			dlqName,
			true,
			false,
			false,
			false,
			nil,
		); err != nil {
			return fmt.Errorf("failed to declare dlq %q: %w", dlqName, err)
		}

		if err := ch.QueueBind(dlqName, queueName, dlxExchangeName, false, nil); err != nil {
			return fmt.Errorf("failed to bind dlq %q: %w", dlqName, err)
		}

		args := amqp.Table{
			"x-dead-letter-exchange":    dlxExchangeName,
			"x-dead-letter-routing-key": queueName,
			"x-max-priority":            queueMaxPriority,
		}

		if _, err := ch.QueueDeclare(
			queueName,
			true,
			false,
			false,
			false,
			args,
		); err != nil {
			return fmt.Errorf("failed to declare queue %q: %w", queueName, err)
		}
	}

	return nil
}
