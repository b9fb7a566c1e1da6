package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aditwicaksono/sharegate/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func fileRows(t *testing.T, consumedAt *time.Time) *sqlmock.Rows {
	t.Helper()
	now := time.Now()
	expiry := now.Add(time.Hour)
	return sqlmock.NewRows([]string{"id", "public_id", "uploader_id", "file_name", "storage_key", "content_type", "otp_digest", "otp_expiry", "otp_consumed_at", "single_use", "mode", "access", "deleted", "created_at"}).
		AddRow("f1", "pub-1", "u1", "report.pdf", "files/report.pdf", "application/pdf", "digest", expiry, consumedAt, true, string(models.ModeView), string(models.AccessDownload), false, now)
}

func TestFindByOTPDigest(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFileRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, public_id, uploader_id, file_name, storage_key, content_type, otp_digest, otp_expiry, otp_consumed_at, single_use, mode, access, deleted, created_at FROM files WHERE otp_digest = $1 LIMIT 1")).
		WithArgs("digest").
		WillReturnRows(fileRows(t, nil))

	file, err := repo.FindByOTPDigest(context.Background(), "digest")
	require.NoError(t, err)
	assert.Equal(t, "pub-1", file.PublicID)
	assert.Equal(t, models.ModeView, file.Mode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByOTPDigestNoMatch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFileRepository(db)

	mock.ExpectQuery("SELECT .* FROM files WHERE otp_digest").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByOTPDigest(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeOTPReturnsUpdatedRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFileRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE files SET otp_consumed_at = $2 WHERE otp_digest = $1 AND otp_consumed_at IS NULL AND deleted = FALSE RETURNING")).
		WithArgs("digest", now).
		WillReturnRows(fileRows(t, &now))

	file, err := repo.ConsumeOTP(context.Background(), "digest", now)
	require.NoError(t, err)
	assert.NotNil(t, file.OTPConsumedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeOTPLosesRace(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFileRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery("UPDATE files SET otp_consumed_at").
		WithArgs("digest", now).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.ConsumeOTP(context.Background(), "digest", now)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
