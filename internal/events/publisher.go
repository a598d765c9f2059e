package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/lockstake/staking-engine/internal/config"
	"github.com/lockstake/staking-engine/internal/types"
)

const (
	defaultPublishAttempts = 5
	defaultPublishDelay    = 200 * time.Millisecond
	publishTimeout         = 5 * time.Second
)

// Publisher delivers staking events to external indexers.
type Publisher interface {
	Publish(ctx context.Context, event types.Event) error
	Close() error
}

// AmqpPublisher publishes events as JSON on a topic exchange, routing key =
// event type.
type AmqpPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger
}

func NewAmqpPublisher(cfg *config.QueueConfig, logger *zap.Logger) (*AmqpPublisher, error) {
	conn, err := amqp.Dial(cfg.Url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to queue: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &AmqpPublisher{
		conn:     conn,
		channel:  channel,
		exchange: cfg.Exchange,
		logger:   logger,
	}, nil
}

func (p *AmqpPublisher) Publish(ctx context.Context, event types.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.ID, err)
	}

	publish := func() error {
		publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		return p.channel.PublishWithContext(
			publishCtx,
			p.exchange,
			event.Type.String(),
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    event.ID,
				Timestamp:    event.At,
				Body:         body,
			},
		)
	}

	err = retry.Do(publish,
		retry.Context(ctx),
		retry.Attempts(defaultPublishAttempts),
		retry.Delay(defaultPublishDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			p.logger.Warn("retrying event publish",
				zap.Uint("attempt", n),
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.ID, err)
	}

	return nil
}

func (p *AmqpPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		return err
	}
	return p.conn.Close()
}

// NoopPublisher is used when the queue is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, types.Event) error { return nil }

func (NoopPublisher) Close() error { return nil }
