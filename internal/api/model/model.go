package model

import "time"

type JobEvent struct {
	ID            int64     `db:"id"`
	JobID         string    `db:"job_id"`
	FromStatus    int       `db:"from_status"`
	ToStatus      int       `db:"to_status"`
	ThumbnailPath string    `db:"thumbnail_path"`
	WorkerID      string    `db:"worker_id"`
	RecordedAt    time.Time `db:"recorded_at"`
}
