package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/thumbnail-service/internal/worker/connection"
	"github.com/cuongbtq/thumbnail-service/internal/worker/history"
	"github.com/cuongbtq/thumbnail-service/internal/worker/storage"
	"github.com/cuongbtq/thumbnail-service/internal/worker/thumbnail"
)

// Config holds worker instance configuration
type Config struct {
	ID            string
	Logger        *slog.Logger
	NewKVClient   connection.KVFactory
	NewQueueConn  connection.QueueFactory
	Recorder      history.Recorder
	Thumbnail     thumbnail.Config
	Codec         thumbnail.Codec
	AckPolicy     string
	PrefetchCount int
}

// Worker is one independent job consumer with its own connections
type Worker struct {
	id       string
	logger   *slog.Logger
	manager  *connection.Manager
	consumer *Consumer
}

// NewWorker wires a worker instance. No connection is opened until Start.
func NewWorker(cfg *Config) (*Worker, error) {
	logger := cfg.Logger.With(slog.String("worker_id", cfg.ID))

	generator, err := thumbnail.New(cfg.Thumbnail, cfg.Codec, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create thumbnail generator: %w", err)
	}

	manager := connection.NewManager(cfg.NewKVClient, cfg.NewQueueConn, logger)

	processor := NewProcessor(ProcessorConfig{
		WorkerID:  cfg.ID,
		Store:     storage.NewStorage(manager, logger),
		Generator: generator,
		Recorder:  cfg.Recorder,
		AckPolicy: cfg.AckPolicy,
		Logger:    logger,
	})

	queue := func() (QueueChannel, error) {
		conn, err := manager.QueueConnection()
		if err != nil {
			return nil, err
		}
		return conn, nil
	}

	return &Worker{
		id:       cfg.ID,
		logger:   logger,
		manager:  manager,
		consumer: NewConsumer(queue, processor, cfg.ID, cfg.PrefetchCount, logger),
	}, nil
}

// ID returns the worker id, also used as the consumer tag
func (w *Worker) ID() string {
	return w.id
}

// Start consumes jobs until ctx is canceled or a fatal error occurs
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker")

	if err := w.consumer.Run(ctx); err != nil {
		w.logger.Error("Worker stopped", slog.Any("error", err))
		return err
	}
	return nil
}

// Stop closes the connections owned by the worker
func (w *Worker) Stop() error {
	w.logger.Info("Stopping worker...")

	if err := w.manager.Close(); err != nil {
		w.logger.Error("Failed to close worker connections", slog.Any("error", err))
		return err
	}

	w.logger.Info("Worker stopped")
	return nil
}
