package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrStopped is returned by Pool.Run when every instance returned without an error
var ErrStopped = errors.New("worker pool stopped")

// Instance is a worker instance run by the Pool
type Instance interface {
	Start(ctx context.Context) error
	Stop() error
}

// InstanceFactory builds the instance with the given id
type InstanceFactory func(id string) (Instance, error)

// Pool runs independent worker instances against the same queue and store
type Pool struct {
	instances int
	factory   InstanceFactory
	logger    *slog.Logger
}

// NewPool creates a pool of n instances
func NewPool(n int, factory InstanceFactory, logger *slog.Logger) *Pool {
	return &Pool{
		instances: n,
		factory:   factory,
		logger:    logger,
	}
}

// Run starts every instance and blocks until all of them have returned. The
// first failure cancels the others. The returned error is never nil: a worker
// process is not expected to stop cleanly.
func (p *Pool) Run(ctx context.Context) error {
	if p.instances <= 0 {
		return fmt.Errorf("invalid number of worker instances: %d", p.instances)
	}

	p.logger.Info("Spawning worker instances",
		slog.Int("instances", p.instances),
	)

	instances := make(map[string]Instance, p.instances)
	for range p.instances {
		id := uuid.NewString()
		instance, err := p.factory(id)
		if err != nil {
			for _, built := range instances {
				built.Stop()
			}
			return fmt.Errorf("failed to create worker %s: %w", id, err)
		}
		instances[id] = instance
	}

	g, gctx := errgroup.WithContext(ctx)
	for id, instance := range instances {
		g.Go(func() error {
			defer instance.Stop()

			err := instance.Start(gctx)
			if err == nil {
				err = ErrStopped
			}
			return fmt.Errorf("worker %s: %w", id, err)
		})
	}

	return g.Wait()
}
