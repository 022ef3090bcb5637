package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/thumbnail-service/shared/jobstate"
	"github.com/cuongbtq/thumbnail-service/shared/postgresql"
)

const schema = `
	CREATE TABLE IF NOT EXISTS job_events (
		id             BIGSERIAL PRIMARY KEY,
		job_id         TEXT        NOT NULL,
		from_status    INTEGER     NOT NULL,
		to_status      INTEGER     NOT NULL,
		thumbnail_path TEXT        NOT NULL DEFAULT '',
		worker_id      TEXT        NOT NULL,
		recorded_at    TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_job_events_job_id ON job_events (job_id, recorded_at, id);
`

// Event is one status transition of a job
type Event struct {
	JobID         string
	From          jobstate.Status
	To            jobstate.Status
	ThumbnailPath string
	WorkerID      string
	RecordedAt    time.Time
}

// Recorder keeps an audit trail of job transitions. Implementations must not
// fail the job: Redis stays the source of truth.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// Nop discards every event
type Nop struct{}

func (Nop) Record(context.Context, Event) {}

// PostgresRecorder appends events to the job_events table
type PostgresRecorder struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewPostgresRecorder creates a recorder on top of an open PostgreSQL client
func NewPostgresRecorder(pg *postgresql.Client, logger *slog.Logger) *PostgresRecorder {
	return &PostgresRecorder{
		db:     pg.GetDB(),
		logger: logger,
		now:    time.Now,
	}
}

// EnsureSchema creates the job_events table if it does not exist
func (r *PostgresRecorder) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create job_events schema: %w", err)
	}
	return nil
}

// Record inserts one event. Failures are logged at WARN and swallowed.
func (r *PostgresRecorder) Record(ctx context.Context, event Event) {
	if event.RecordedAt.IsZero() {
		event.RecordedAt = r.now().UTC()
	}

	query := `
		INSERT INTO job_events (
			job_id, from_status, to_status, thumbnail_path, worker_id, recorded_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		event.JobID,
		int(event.From),
		int(event.To),
		event.ThumbnailPath,
		event.WorkerID,
		event.RecordedAt,
	)
	if err != nil {
		r.logger.Warn("Failed to record job event",
			slog.String("job_id", event.JobID),
			slog.String("from", event.From.String()),
			slog.String("to", event.To.String()),
			slog.Any("error", err),
		)
	}
}
