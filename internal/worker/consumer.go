package worker

import (
	"context"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/thumbnail-service/internal/worker/domain"
	"github.com/cuongbtq/thumbnail-service/shared/logger"
)

// QueueChannel is the part of the RabbitMQ client the consumer needs
type QueueChannel interface {
	DeclareQueue() error
	Qos(prefetchCount int) error
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
	NotifyClose() <-chan *amqp.Error
}

// DeliveryProcessor handles a single delivery
type DeliveryProcessor interface {
	Process(ctx context.Context, delivery amqp.Delivery) error
}

// Consumer feeds deliveries from the job queue to a processor one at a time
type Consumer struct {
	queue         func() (QueueChannel, error)
	processor     DeliveryProcessor
	consumerTag   string
	prefetchCount int
	logger        *slog.Logger
}

// NewConsumer creates a new Consumer. queue is called once per Run.
func NewConsumer(queue func() (QueueChannel, error), processor DeliveryProcessor, consumerTag string, prefetchCount int, logger *slog.Logger) *Consumer {
	return &Consumer{
		queue:         queue,
		processor:     processor,
		consumerTag:   consumerTag,
		prefetchCount: prefetchCount,
		logger:        logger,
	}
}

// setup declares the queue, limits unacknowledged deliveries and starts
// consuming. It also returns the channel carrying the broker's close reason.
func (c *Consumer) setup() (<-chan amqp.Delivery, <-chan *amqp.Error, error) {
	channel, err := c.queue()
	if err != nil {
		return nil, nil, err
	}

	if err := channel.DeclareQueue(); err != nil {
		return nil, nil, c.critical("Failed to declare queue", err)
	}

	if err := channel.Qos(c.prefetchCount); err != nil {
		return nil, nil, c.critical("Failed to set QoS", err)
	}

	c.logger.Info("RabbitMQ QoS configured",
		slog.Int("prefetch_count", c.prefetchCount),
	)

	deliveries, err := channel.Consume(c.consumerTag)
	if err != nil {
		return nil, nil, c.critical("Failed to start consuming", err)
	}

	return deliveries, channel.NotifyClose(), nil
}

// Run consumes until ctx is done, the delivery channel closes or a delivery
// fails. A delivery that has started is processed to the end even if ctx is
// cancelled meanwhile.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, closed, err := c.setup()
	if err != nil {
		return err
	}

	c.logger.Info("Waiting for messages",
		slog.String("consumer_tag", c.consumerTag),
	)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Consumer stopped - context canceled",
				slog.String("consumer_tag", c.consumerTag),
			)
			return ctx.Err()

		case reason, ok := <-closed:
			if !ok || reason == nil {
				return c.critical("RabbitMQ channel closed", domain.ErrDeliveriesClosed)
			}
			return c.critical("RabbitMQ connection lost",
				fmt.Errorf("%w: %d %s", domain.ErrQueueConnectionLost, reason.Code, reason.Reason))

		case delivery, ok := <-deliveries:
			if !ok {
				return c.critical("RabbitMQ delivery channel closed", domain.ErrDeliveriesClosed)
			}

			if err := c.processor.Process(context.WithoutCancel(ctx), delivery); err != nil {
				return fmt.Errorf("failed to process delivery %d: %w", delivery.DeliveryTag, err)
			}
		}
	}
}

func (c *Consumer) critical(msg string, err error) error {
	logger.Critical(c.logger, msg,
		slog.String("consumer_tag", c.consumerTag),
		slog.Any("error", err),
	)
	return err
}
