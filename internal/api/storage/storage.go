package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/cuongbtq/thumbnail-service/internal/api/domain"
	"github.com/cuongbtq/thumbnail-service/shared/jobstate"
	"github.com/cuongbtq/thumbnail-service/shared/kvs"
)

// createJob allocates the next id and writes the job hash in one step, so a
// published id always has a hash behind it.
var createJob = redis.NewScript(`
local id = tostring(redis.call('INCR', KEYS[1]))
redis.call('HSET', id, ARGV[1], ARGV[2], ARGV[3], ARGV[4], ARGV[5], ARGV[6])
return id
`)

type Storage struct {
	rdb      *redis.Client
	indexKey string
}

func NewStorage(kv *kvs.Client, indexKey string) *Storage {
	return &Storage{
		rdb:      kv.GetClient(),
		indexKey: indexKey,
	}
}

// CreateJob registers a READY_FOR_PROCESSING job for sourcePath and returns its id
func (s *Storage) CreateJob(ctx context.Context, sourcePath string) (string, error) {
	id, err := createJob.Run(ctx, s.rdb, []string{s.indexKey},
		jobstate.FieldSourcePath, sourcePath,
		jobstate.FieldStatus, jobstate.ReadyForProcessing.Encode(),
		jobstate.FieldThumbnailPath, "",
	).Text()
	if err != nil {
		return "", fmt.Errorf("failed to create job: %w", err)
	}

	return id, nil
}

// GetImage reads the job hash of an image id
func (s *Storage) GetImage(ctx context.Context, imageID string) (*domain.Image, error) {
	values, err := s.rdb.HMGet(ctx, imageID,
		jobstate.FieldStatus,
		jobstate.FieldSourcePath,
		jobstate.FieldThumbnailPath,
	).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	if values[0] == nil && values[1] == nil && values[2] == nil {
		return nil, domain.ErrJobNotFound
	}

	rawStatus, _ := values[0].(string)
	status, err := jobstate.ParseStatus(rawStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	image := &domain.Image{ID: imageID, Status: status}
	image.SourcePath, _ = values[1].(string)
	image.ThumbnailPath, _ = values[2].(string)

	return image, nil
}
