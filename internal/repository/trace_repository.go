package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aditwicaksono/sharegate/internal/models"
)

const traceColumns = `id, uploader_id, client_ip, user_agent, otp_used, file_name, public_id, file_deleted, granted, access_time, location, headers`

// TraceRepository persists and reads the append-only access-event trail.
// Events are never updated or deleted here.
type TraceRepository struct {
	db *sqlx.DB
}

// NewTraceRepository creates a new instance of TraceRepository.
func NewTraceRepository(db *sqlx.DB) *TraceRepository {
	return &TraceRepository{db: db}
}

// Insert appends one access event. The store enforces no foreign keys, so the
// uploader link is validated here before the write.
func (r *TraceRepository) Insert(ctx context.Context, event *models.AccessEvent) error {
	if event.UploaderID == "" {
		return fmt.Errorf("insert access event: uploader id required")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.AccessTime.IsZero() {
		event.AccessTime = time.Now().UTC()
	}

	const query = `INSERT INTO access_events (id, uploader_id, client_ip, user_agent, otp_used, file_name, public_id, file_deleted, granted, access_time, location, headers) VALUES (:id, :uploader_id, :client_ip, :user_agent, :otp_used, :file_name, :public_id, :file_deleted, :granted, :access_time, :location, :headers)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("insert access event: %w", err)
	}
	return nil
}

// ListByUploader returns an uploader's events sorted newest first. A missing
// uploader yields an empty slice, never an error.
func (r *TraceRepository) ListByUploader(ctx context.Context, filter models.TraceFilter) ([]models.AccessEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM access_events WHERE uploader_id = $1 ORDER BY access_time DESC`, traceColumns)
	args := []interface{}{filter.UploaderID}
	if filter.Limit > 0 {
		query += " LIMIT $2"
		args = append(args, filter.Limit)
	}

	events := []models.AccessEvent{}
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("list access events: %w", err)
	}
	return events, nil
}

// CountByUploader returns the total number of events for an uploader.
func (r *TraceRepository) CountByUploader(ctx context.Context, uploaderID string) (int, error) {
	const query = `SELECT COUNT(*) FROM access_events WHERE uploader_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, uploaderID); err != nil {
		return 0, fmt.Errorf("count access events: %w", err)
	}
	return total, nil
}
