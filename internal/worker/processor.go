package worker

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/thumbnail-service/internal/config"
	"github.com/cuongbtq/thumbnail-service/internal/worker/domain"
	"github.com/cuongbtq/thumbnail-service/internal/worker/history"
	"github.com/cuongbtq/thumbnail-service/internal/worker/thumbnail"
	"github.com/cuongbtq/thumbnail-service/shared/jobstate"
	"github.com/cuongbtq/thumbnail-service/shared/logger"
)

// JobStore reads and transitions job hashes
type JobStore interface {
	FetchJobInfo(ctx context.Context, jobID string) (*domain.Job, error)
	UpdateJobInfo(ctx context.Context, jobID string, current, next jobstate.Status, thumbnailPath string) (jobstate.Status, error)
}

// ThumbnailGenerator produces a thumbnail for a source image
type ThumbnailGenerator interface {
	Generate(sourcePath string) thumbnail.Result
}

// ProcessorConfig holds the collaborators of a Processor
type ProcessorConfig struct {
	WorkerID  string
	Store     JobStore
	Generator ThumbnailGenerator
	Recorder  history.Recorder
	AckPolicy string
	Logger    *slog.Logger
}

// Processor runs the lifecycle of one job per delivery:
// READY_FOR_PROCESSING -> PROCESSING -> COMPLETE or ERROR_DURING_PROCESSING.
type Processor struct {
	workerID  string
	store     JobStore
	generator ThumbnailGenerator
	recorder  history.Recorder
	ackPolicy string
	logger    *slog.Logger
}

// NewProcessor creates a new Processor
func NewProcessor(cfg ProcessorConfig) *Processor {
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = history.Nop{}
	}

	ackPolicy := cfg.AckPolicy
	if ackPolicy == "" {
		ackPolicy = config.AckAlways
	}

	return &Processor{
		workerID:  cfg.WorkerID,
		store:     cfg.Store,
		generator: cfg.Generator,
		recorder:  recorder,
		ackPolicy: ackPolicy,
		logger:    cfg.Logger,
	}
}

// Process handles one delivery. A failed thumbnail is a job outcome, not an
// error; every returned error is fatal for the worker instance.
func (p *Processor) Process(ctx context.Context, delivery amqp.Delivery) error {
	jobID, err := decodeJobID(delivery.Body)
	if err != nil {
		logger.Critical(p.logger, "Failed to decode job message",
			slog.Uint64("delivery_tag", delivery.DeliveryTag),
			slog.Any("error", err),
		)
		return err
	}

	p.logger.Info("Processing job",
		slog.String("job_id", jobID),
		slog.Uint64("delivery_tag", delivery.DeliveryTag),
	)

	job, err := p.store.FetchJobInfo(ctx, jobID)
	if err != nil {
		return err
	}

	current, err := p.transition(ctx, jobID, job.Status, jobstate.Processing, "")
	if err != nil {
		return err
	}

	result := p.generator.Generate(job.SourcePath)

	path, ok := result.Path()
	next := jobstate.Complete
	if !ok {
		next = jobstate.ErrorDuringProcessing
	}

	if _, err := p.transition(ctx, jobID, current, next, path); err != nil {
		return err
	}

	return p.acknowledge(delivery, jobID, ok)
}

func (p *Processor) transition(ctx context.Context, jobID string, current, next jobstate.Status, thumbnailPath string) (jobstate.Status, error) {
	status, err := p.store.UpdateJobInfo(ctx, jobID, current, next, thumbnailPath)
	if err != nil {
		return status, err
	}

	p.recorder.Record(ctx, history.Event{
		JobID:         jobID,
		From:          current,
		To:            next,
		ThumbnailPath: thumbnailPath,
		WorkerID:      p.workerID,
	})

	return status, nil
}

func (p *Processor) acknowledge(delivery amqp.Delivery, jobID string, succeeded bool) error {
	if p.ackPolicy == config.AckOnComplete && !succeeded && !delivery.Redelivered {
		if err := delivery.Nack(false, true); err != nil {
			logger.Critical(p.logger, "Failed to NACK message",
				slog.String("job_id", jobID),
				slog.Any("error", err),
			)
			return fmt.Errorf("failed to nack message: %w", err)
		}

		p.logger.Warn("Message NACKed for redelivery",
			slog.String("job_id", jobID),
		)
		return nil
	}

	if p.ackPolicy == config.AckOnComplete && !succeeded {
		p.logger.Warn("Redelivered job failed again, not requeueing",
			slog.String("job_id", jobID),
		)
	}

	if err := delivery.Ack(false); err != nil {
		logger.Critical(p.logger, "Failed to ACK message",
			slog.String("job_id", jobID),
			slog.Any("error", err),
		)
		return fmt.Errorf("failed to ack message: %w", err)
	}

	p.logger.Info("Job processed",
		slog.String("job_id", jobID),
		slog.Bool("thumbnail_created", succeeded),
	)
	return nil
}

func decodeJobID(body []byte) (string, error) {
	if len(body) == 0 {
		return "", fmt.Errorf("%w: empty body", domain.ErrInvalidMessage)
	}
	if !utf8.Valid(body) {
		return "", fmt.Errorf("%w: body is not valid UTF-8", domain.ErrInvalidMessage)
	}
	return string(body), nil
}
