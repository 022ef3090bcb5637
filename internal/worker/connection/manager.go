// Package connection owns the per-instance Redis client and RabbitMQ
// connection of a worker. Each handle is created on first use and reused for
// the lifetime of the instance.
package connection

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/thumbnail-service/shared/kvs"
	"github.com/cuongbtq/thumbnail-service/shared/logger"
	"github.com/cuongbtq/thumbnail-service/shared/rabbitmq"
)

// ErrConnection wraps every failure to construct a backing-service client
var ErrConnection = errors.New("connection failed")

// KVFactory builds a Redis client
type KVFactory func() (*kvs.Client, error)

// QueueFactory builds a RabbitMQ client
type QueueFactory func() (*rabbitmq.Client, error)

// Manager memoizes the clients of one worker instance. It is not safe for
// concurrent use; a worker instance processes one message at a time.
type Manager struct {
	logger       *slog.Logger
	newKVClient  KVFactory
	newQueueConn QueueFactory

	kvClient  *kvs.Client
	queueConn *rabbitmq.Client
}

// NewManager creates a Manager that builds clients with the given factories
func NewManager(newKVClient KVFactory, newQueueConn QueueFactory, logger *slog.Logger) *Manager {
	return &Manager{
		logger:       logger,
		newKVClient:  newKVClient,
		newQueueConn: newQueueConn,
	}
}

// KVClient returns the memoized Redis client, creating it on first call
func (m *Manager) KVClient() (*kvs.Client, error) {
	if m.kvClient != nil {
		m.logger.Debug("Getting existing Redis client")
		return m.kvClient, nil
	}

	m.logger.Info("Creating new Redis client")
	client, err := m.newKVClient()
	if err != nil {
		logger.Critical(m.logger, "Failed to create Redis client",
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("%w: redis: %w", ErrConnection, err)
	}

	m.kvClient = client
	return m.kvClient, nil
}

// QueueConnection returns the memoized RabbitMQ client, creating it on first call
func (m *Manager) QueueConnection() (*rabbitmq.Client, error) {
	if m.queueConn != nil {
		m.logger.Debug("Getting existing RabbitMQ connection")
		return m.queueConn, nil
	}

	m.logger.Info("Creating new RabbitMQ connection")
	conn, err := m.newQueueConn()
	if err != nil {
		logger.Critical(m.logger, "Failed to create RabbitMQ connection",
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("%w: rabbitmq: %w", ErrConnection, err)
	}

	m.queueConn = conn
	return m.queueConn, nil
}

// Close closes every client created so far
func (m *Manager) Close() error {
	var errs []error

	if m.queueConn != nil {
		if err := m.queueConn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close rabbitmq: %w", err))
		}
		m.queueConn = nil
	}

	if m.kvClient != nil {
		if err := m.kvClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
		m.kvClient = nil
	}

	return errors.Join(errs...)
}
