package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/thumbnail-service/internal/api/domain"
	"github.com/cuongbtq/thumbnail-service/internal/api/model"
	"github.com/cuongbtq/thumbnail-service/internal/api/storage"
)

// JobStore creates and reads job hashes
type JobStore interface {
	CreateJob(ctx context.Context, sourcePath string) (string, error)
	GetImage(ctx context.Context, imageID string) (*domain.Image, error)
}

// HistoryReader lists recorded job transitions
type HistoryReader interface {
	ListEvents(ctx context.Context, filter storage.EventFilter) ([]model.JobEvent, error)
}

// Publisher sends job ids to the worker queue
type Publisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// HealthChecker reports whether a backing service is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger         *slog.Logger
	Jobs           JobStore
	History        HistoryReader // nil when the database is disabled
	Publisher      Publisher
	UploadPath     string
	MaxUploadBytes int64
	Checks         map[string]HealthChecker
}

// ImageHandler handles image-related HTTP requests
type ImageHandler struct {
	logger         *slog.Logger
	jobs           JobStore
	history        HistoryReader
	publisher      Publisher
	uploadPath     string
	maxUploadBytes int64
}

// NewImageHandler creates a new ImageHandler instance
func NewImageHandler(deps *Dependencies) *ImageHandler {
	return &ImageHandler{
		logger:         deps.Logger,
		jobs:           deps.Jobs,
		history:        deps.History,
		publisher:      deps.Publisher,
		uploadPath:     deps.UploadPath,
		maxUploadBytes: deps.MaxUploadBytes,
	}
}
