package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aditwicaksono/sharegate/internal/models"
)

func TestInsertAccessEvent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTraceRepository(db)

	mock.ExpectExec("INSERT INTO access_events").WillReturnResult(sqlmock.NewResult(1, 1))

	event := &models.AccessEvent{
		UploaderID: "u1",
		ClientIP:   "1.2.3.4",
		UserAgent:  "curl/8.0",
		OTPUsed:    "digest",
		FileName:   "report.pdf",
		PublicID:   "pub-1",
		Granted:    true,
		Location:   models.LocationUnknown(),
	}
	err := repo.Insert(context.Background(), event)
	require.NoError(t, err)
	assert.NotEmpty(t, event.ID, "id assigned on insert")
	assert.False(t, event.AccessTime.IsZero(), "access time set server-side")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRejectsMissingUploader(t *testing.T) {
	db, _, cleanup := newMock(t)
	defer cleanup()
	repo := NewTraceRepository(db)

	err := repo.Insert(context.Background(), &models.AccessEvent{
		ClientIP:  "1.2.3.4",
		UserAgent: "curl/8.0",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uploader id required")
}

func TestListByUploaderOrdersNewestFirst(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTraceRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "uploader_id", "client_ip", "user_agent", "otp_used", "file_name", "public_id", "file_deleted", "granted", "access_time", "location", "headers"}).
		AddRow("e2", "u1", "1.1.1.1", "ua", "digest", "report.pdf", "pub-1", false, true, now, nil, nil).
		AddRow("e1", "u1", "2.2.2.2", "ua", "digest", "report.pdf", "pub-1", false, true, now.Add(-time.Hour), nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, uploader_id, client_ip, user_agent, otp_used, file_name, public_id, file_deleted, granted, access_time, location, headers FROM access_events WHERE uploader_id = $1 ORDER BY access_time DESC")).
		WithArgs("u1").
		WillReturnRows(rows)

	events, err := repo.ListByUploader(context.Background(), models.TraceFilter{UploaderID: "u1"})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.True(t, events[0].AccessTime.After(events[1].AccessTime))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByUploaderEmpty(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTraceRepository(db)

	rows := sqlmock.NewRows([]string{"id", "uploader_id", "client_ip", "user_agent", "otp_used", "file_name", "public_id", "file_deleted", "granted", "access_time", "location", "headers"})
	mock.ExpectQuery("SELECT .* FROM access_events WHERE uploader_id").
		WithArgs("nobody").
		WillReturnRows(rows)

	events, err := repo.ListByUploader(context.Background(), models.TraceFilter{UploaderID: "nobody"})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountByUploader(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTraceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM access_events WHERE uploader_id = $1")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	total, err := repo.CountByUploader(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
