package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/aditwicaksono/sharegate/internal/models"
)

const fileColumns = `id, public_id, uploader_id, file_name, storage_key, content_type, otp_digest, otp_expiry, otp_consumed_at, single_use, mode, access, deleted, created_at`

// FileRepository reads shared-file records. The uploading collaborator owns
// the rows; this side only matches OTPs and consumes single-use codes.
type FileRepository struct {
	db *sqlx.DB
}

// NewFileRepository creates a new instance of FileRepository.
func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

// FindByOTPDigest returns the file matching an OTP digest. Deleted rows are
// returned too: the policy layer needs them to audit attempts against
// removed files.
func (r *FileRepository) FindByOTPDigest(ctx context.Context, digest string) (*models.FileRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM files WHERE otp_digest = $1 LIMIT 1`, fileColumns)
	var file models.FileRecord
	if err := r.db.GetContext(ctx, &file, query, digest); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find file by otp: %w", err)
	}
	return &file, nil
}

// FindByPublicID returns the file with the given public identifier.
func (r *FileRepository) FindByPublicID(ctx context.Context, publicID string) (*models.FileRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM files WHERE public_id = $1 LIMIT 1`, fileColumns)
	var file models.FileRecord
	if err := r.db.GetContext(ctx, &file, query, publicID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find file by public id: %w", err)
	}
	return &file, nil
}

// ConsumeOTP atomically invalidates a single-use code. Match and invalidate
// happen in one conditional UPDATE so two concurrent verifications cannot
// both succeed against the same code; the loser sees sql.ErrNoRows.
func (r *FileRepository) ConsumeOTP(ctx context.Context, digest string, ts time.Time) (*models.FileRecord, error) {
	query := fmt.Sprintf(`UPDATE files SET otp_consumed_at = $2 WHERE otp_digest = $1 AND otp_consumed_at IS NULL AND deleted = FALSE RETURNING %s`, fileColumns)
	var file models.FileRecord
	if err := r.db.GetContext(ctx, &file, query, digest, ts); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("consume otp: %w", err)
	}
	return &file, nil
}
