package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/thumbnail-service/internal/api/domain"
	"github.com/cuongbtq/thumbnail-service/shared/jobstate"
	"github.com/cuongbtq/thumbnail-service/shared/kvs"
	"github.com/cuongbtq/thumbnail-service/shared/postgresql"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStorage(t *testing.T) (*Storage, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	client, err := kvs.NewClient(&kvs.Config{Host: mr.Host(), Port: port}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return NewStorage(client, "imageIndex"), mr
}

func TestStorage_CreateJob(t *testing.T) {
	s, mr := newTestStorage(t)
	ctx := context.Background()

	first, err := s.CreateJob(ctx, "/img/uploaded/1566620014076_a.png")
	require.NoError(t, err)
	second, err := s.CreateJob(ctx, "/img/uploaded/1566620014077_b.png")
	require.NoError(t, err)

	assert.Equal(t, "1", first)
	assert.Equal(t, "2", second)

	index, err := mr.Get("imageIndex")
	require.NoError(t, err)
	assert.Equal(t, "2", index)

	assert.Equal(t, "0", mr.HGet("1", jobstate.FieldStatus))
	assert.Equal(t, "/img/uploaded/1566620014076_a.png", mr.HGet("1", jobstate.FieldSourcePath))
	assert.Equal(t, "/img/uploaded/1566620014077_b.png", mr.HGet("2", jobstate.FieldSourcePath))

	keys, err := mr.HKeys("2")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{jobstate.FieldStatus, jobstate.FieldSourcePath, jobstate.FieldThumbnailPath}, keys)
}

func TestStorage_GetImage(t *testing.T) {
	s, mr := newTestStorage(t)
	mr.HSet("5",
		jobstate.FieldStatus, "2",
		jobstate.FieldSourcePath, "/img/uploaded/a.png",
		jobstate.FieldThumbnailPath, "/img/thumbnail/a.png",
	)

	image, err := s.GetImage(context.Background(), "5")
	require.NoError(t, err)
	assert.Equal(t, &domain.Image{
		ID:            "5",
		Status:        jobstate.Complete,
		SourcePath:    "/img/uploaded/a.png",
		ThumbnailPath: "/img/thumbnail/a.png",
	}, image)
}

func TestStorage_GetImageErrors(t *testing.T) {
	t.Run("unknown id", func(t *testing.T) {
		s, _ := newTestStorage(t)

		_, err := s.GetImage(context.Background(), "99")
		assert.ErrorIs(t, err, domain.ErrJobNotFound)
	})

	t.Run("corrupt status", func(t *testing.T) {
		s, mr := newTestStorage(t)
		mr.HSet("5", jobstate.FieldStatus, "done")

		_, err := s.GetImage(context.Background(), "5")
		assert.ErrorIs(t, err, jobstate.ErrMalformedStatus)
	})
}

func newMockHistory(t *testing.T) (*HistoryStorage, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	pg := postgresql.NewFromDB(sqlx.NewDb(db, "postgres"), &postgresql.Config{}, discardLogger())
	return NewHistoryStorage(pg), mock
}

var eventColumns = []string{"id", "job_id", "from_status", "to_status", "thumbnail_path", "worker_id", "recorded_at"}

func TestHistoryStorage_ListEvents(t *testing.T) {
	recorded := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("first page", func(t *testing.T) {
		h, mock := newMockHistory(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM job_events")).
			WithArgs("5", 21).
			WillReturnRows(sqlmock.NewRows(eventColumns).
				AddRow(1, "5", 0, 1, "", "w-1", recorded).
				AddRow(2, "5", 1, 2, "/img/thumbnail/a.png", "w-1", recorded.Add(time.Second)))

		events, err := h.ListEvents(context.Background(), EventFilter{JobID: "5", PageSize: 20})
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, int64(2), events[1].ID)
		assert.Equal(t, 2, events[1].ToStatus)
		assert.Equal(t, "/img/thumbnail/a.png", events[1].ThumbnailPath)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("after cursor", func(t *testing.T) {
		h, mock := newMockHistory(t)
		mock.ExpectQuery(regexp.QuoteMeta("AND (recorded_at, id) > ($2, $3)")).
			WithArgs("5", recorded, int64(1), 11).
			WillReturnRows(sqlmock.NewRows(eventColumns))

		events, err := h.ListEvents(context.Background(), EventFilter{
			JobID:    "5",
			PageSize: 10,
			Cursor:   &EventCursor{RecordedAt: recorded, ID: 1},
		})
		require.NoError(t, err)
		assert.Empty(t, events)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query fails", func(t *testing.T) {
		h, mock := newMockHistory(t)
		mock.ExpectQuery("SELECT").WillReturnError(errors.New("relation does not exist"))

		_, err := h.ListEvents(context.Background(), EventFilter{JobID: "5", PageSize: 20})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to list job events")
	})
}
