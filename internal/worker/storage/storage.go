package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/thumbnail-service/internal/worker/domain"
	"github.com/cuongbtq/thumbnail-service/shared/jobstate"
	"github.com/cuongbtq/thumbnail-service/shared/kvs"
	"github.com/cuongbtq/thumbnail-service/shared/logger"
)

var (
	// ErrSameJobStatus is returned when a transition targets the status the job already holds
	ErrSameJobStatus = errors.New("same job status")

	// ErrRead wraps Redis read failures
	ErrRead = errors.New("failed to read job info")

	// ErrWrite wraps Redis write failures
	ErrWrite = errors.New("failed to write job info")
)

// KVSource hands out the Redis client of the current worker instance
type KVSource interface {
	KVClient() (*kvs.Client, error)
}

// Storage reads and updates job hashes in Redis. Every error it returns is
// fatal for the worker instance.
type Storage struct {
	clients KVSource
	logger  *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(clients KVSource, logger *slog.Logger) *Storage {
	return &Storage{
		clients: clients,
		logger:  logger,
	}
}

// FetchJobInfo reads status, source path and thumbnail path of a job in one round trip
func (s *Storage) FetchJobInfo(ctx context.Context, jobID string) (*domain.Job, error) {
	client, err := s.clients.KVClient()
	if err != nil {
		return nil, err
	}

	values, err := client.GetClient().HMGet(ctx, jobID,
		jobstate.FieldStatus,
		jobstate.FieldSourcePath,
		jobstate.FieldThumbnailPath,
	).Result()
	if err != nil {
		return nil, s.critical("Failed to fetch job info", jobID, fmt.Errorf("%w: %w", ErrRead, err))
	}

	if values[0] == nil && values[1] == nil && values[2] == nil {
		return nil, s.critical("Job not found", jobID, fmt.Errorf("%w: %s", domain.ErrJobNotFound, jobID))
	}

	rawStatus, _ := values[0].(string)
	status, err := jobstate.ParseStatus(rawStatus)
	if err != nil {
		return nil, s.critical("Failed to decode job status", jobID, err)
	}

	job := &domain.Job{JobID: jobID, Status: status}
	job.SourcePath, _ = values[1].(string)
	job.ThumbnailPath, _ = values[2].(string)

	s.logger.Info("Fetched job info",
		slog.String("job_id", jobID),
		slog.String("status", status.String()),
		slog.String("source_path", job.SourcePath),
	)

	return job, nil
}

// UpdateJobInfo moves a job from current to next. A non-empty thumbnailPath is
// written in the same HSET as the status. It returns next so callers can chain
// transitions without re-reading.
func (s *Storage) UpdateJobInfo(ctx context.Context, jobID string, current, next jobstate.Status, thumbnailPath string) (jobstate.Status, error) {
	if current == next {
		return current, s.critical("Same job status", jobID,
			fmt.Errorf("%w: %s -> %s", ErrSameJobStatus, current, next))
	}

	client, err := s.clients.KVClient()
	if err != nil {
		return current, err
	}

	fields := []any{jobstate.FieldStatus, next.Encode()}
	if thumbnailPath != "" {
		fields = append(fields, jobstate.FieldThumbnailPath, thumbnailPath)
	}

	if err := client.GetClient().HSet(ctx, jobID, fields...).Err(); err != nil {
		return current, s.critical("Failed to update job info", jobID, fmt.Errorf("%w: %w", ErrWrite, err))
	}

	s.logger.Info("Job status updated",
		slog.String("job_id", jobID),
		slog.String("from", current.String()),
		slog.String("to", next.String()),
		slog.String("thumbnail_path", thumbnailPath),
	)

	return next, nil
}

func (s *Storage) critical(msg, jobID string, err error) error {
	logger.Critical(s.logger, msg,
		slog.String("job_id", jobID),
		slog.Any("error", err),
	)
	return err
}
