package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/thumbnail-service/internal/api/model"
	"github.com/cuongbtq/thumbnail-service/shared/postgresql"
)

type HistoryStorage struct {
	db *sqlx.DB
}

func NewHistoryStorage(pg *postgresql.Client) *HistoryStorage {
	return &HistoryStorage{
		db: pg.GetDB(),
	}
}

type EventFilter struct {
	JobID    string
	PageSize int
	Cursor   *EventCursor
}

type EventCursor struct {
	RecordedAt time.Time
	ID         int64
}

func (s *HistoryStorage) ListEvents(ctx context.Context, filter EventFilter) ([]model.JobEvent, error) {
	query := `
		SELECT
			id, job_id, from_status, to_status,
			thumbnail_path, worker_id, recorded_at
		FROM job_events
		WHERE job_id = $1
	`
	args := []interface{}{filter.JobID}
	argIdx := 2

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (recorded_at, id) > ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.RecordedAt, filter.Cursor.ID)
		argIdx += 2
	}

	query += " ORDER BY recorded_at ASC, id ASC"

	// Fetch one extra to determine if there are more results
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var events []model.JobEvent
	err := s.db.SelectContext(ctx, &events, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list job events: %w", err)
	}

	return events, nil
}
