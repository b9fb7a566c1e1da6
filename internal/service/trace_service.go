package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aditwicaksono/sharegate/internal/models"
	"github.com/aditwicaksono/sharegate/pkg/config"
	appErrors "github.com/aditwicaksono/sharegate/pkg/errors"
	"github.com/aditwicaksono/sharegate/pkg/export"
	"github.com/aditwicaksono/sharegate/pkg/jobs"
)

type traceWriter interface {
	Insert(ctx context.Context, event *models.AccessEvent) error
}

type traceReader interface {
	ListByUploader(ctx context.Context, filter models.TraceFilter) ([]models.AccessEvent, error)
	CountByUploader(ctx context.Context, uploaderID string) (int, error)
}

type geoLocator interface {
	Locate(ctx context.Context, ip string) *models.Location
}

type auditMetrics interface {
	RecordAuditDrop()
	RecordAuditFailure()
	RecordGeoLookup(result string)
}

const auditJobType = "access_event"

// AuditRecorder is the asynchronous audit pipeline. Record hands the event to
// a bounded worker queue and returns immediately; geolocation and the
// database write happen on the workers. When the queue is full the event is
// dropped and counted, so a slow store never stalls a verification.
type AuditRecorder struct {
	repo         traceWriter
	geo          geoLocator
	metrics      auditMetrics
	logger       *zap.Logger
	queue        *jobs.Queue
	writeTimeout time.Duration
}

// NewAuditRecorder builds the recorder and its backing queue. Start must be
// called before events are recorded.
func NewAuditRecorder(repo traceWriter, geo geoLocator, metrics auditMetrics, logger *zap.Logger, cfg config.AuditConfig) *AuditRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}

	r := &AuditRecorder{
		repo:         repo,
		geo:          geo,
		metrics:      metrics,
		logger:       logger,
		writeTimeout: writeTimeout,
	}
	r.queue = jobs.NewQueue("audit", r.persist, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return r
}

// Start launches the queue workers.
func (r *AuditRecorder) Start(ctx context.Context) {
	r.queue.Start(ctx)
}

// Stop closes intake and waits for the workers to finish the events already
// accepted, so nothing recorded before shutdown is lost.
func (r *AuditRecorder) Stop() {
	r.queue.Stop()
}

// Record enqueues one access event. It never returns an error: audit failures
// are logged and counted, the request that produced the event has already
// been answered.
func (r *AuditRecorder) Record(event *models.AccessEvent) {
	if event == nil {
		return
	}
	err := r.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    auditJobType,
		Payload: event,
	})
	if err == nil {
		return
	}
	if errors.Is(err, jobs.ErrQueueFull) {
		r.metrics.RecordAuditDrop()
		r.logger.Warn("audit event dropped, queue full",
			zap.String("uploader_id", event.UploaderID),
			zap.String("public_id", event.PublicID))
		return
	}
	r.metrics.RecordAuditFailure()
	r.logger.Error("audit event rejected", zap.Error(err))
}

// persist runs on a queue worker: resolve location if the producer did not,
// then write the row under a bounded deadline.
func (r *AuditRecorder) persist(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(*models.AccessEvent)
	if !ok {
		return fmt.Errorf("audit job %s: unexpected payload %T", job.ID, job.Payload)
	}

	ctx, cancel := context.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	if event.Location == nil && r.geo != nil {
		event.Location = r.geo.Locate(ctx, event.ClientIP)
		r.metrics.RecordGeoLookup(geoResult(event.Location))
	}

	return r.repo.Insert(ctx, event)
}

func geoResult(loc *models.Location) string {
	switch {
	case loc == nil:
		return "degraded"
	case loc.Country == "Local":
		return "local"
	case loc.Country == "Unknown":
		return "degraded"
	default:
		return "resolved"
	}
}

// Export formats supported by the trace endpoints.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// ExportResult carries a rendered trace document.
type ExportResult struct {
	FileName    string
	ContentType string
	Content     []byte
}

// TraceQueryService serves the uploader-facing read side of the audit trail.
type TraceQueryService struct {
	repo        traceReader
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
	exportLimit int
}

// NewTraceQueryService constructs the query service.
func NewTraceQueryService(repo traceReader, logger *zap.Logger, cfg config.TraceConfig) *TraceQueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	exportLimit := cfg.ExportLimit
	if exportLimit <= 0 {
		exportLimit = 1000
	}
	return &TraceQueryService{
		repo:        repo,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
		exportLimit: exportLimit,
	}
}

// List returns an uploader's events, newest first, plus the total row count.
func (s *TraceQueryService) List(ctx context.Context, uploaderID string, limit int) ([]models.AccessEvent, int, error) {
	if uploaderID == "" {
		return nil, 0, appErrors.Clone(appErrors.ErrUnauthorized, "uploader identity missing")
	}

	events, err := s.repo.ListByUploader(ctx, models.TraceFilter{UploaderID: uploaderID, Limit: limit})
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list access events")
	}

	total, err := s.repo.CountByUploader(ctx, uploaderID)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count access events")
	}

	return events, total, nil
}

// Export renders an uploader's trail as CSV or PDF, capped at the configured
// export limit.
func (s *TraceQueryService) Export(ctx context.Context, uploaderID, format string) (*ExportResult, error) {
	if uploaderID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "uploader identity missing")
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	events, err := s.repo.ListByUploader(ctx, models.TraceFilter{UploaderID: uploaderID, Limit: s.exportLimit})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load access events")
	}

	data := buildTraceDataset(events)
	stamp := time.Now().UTC().Format("20060102-150405")

	switch format {
	case ExportFormatCSV:
		content, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("access-trail-%s.csv", stamp),
			ContentType: "text/csv",
			Content:     content,
		}, nil
	default:
		content, err := s.pdf.Render(data, "Access Trail")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("access-trail-%s.pdf", stamp),
			ContentType: "application/pdf",
			Content:     content,
		}, nil
	}
}

func buildTraceDataset(events []models.AccessEvent) export.Dataset {
	headers := []string{"Time", "File", "Public ID", "Client IP", "Location", "User Agent", "Granted", "File Deleted"}
	rows := make([]map[string]string, 0, len(events))
	for _, event := range events {
		location := ""
		if event.Location != nil {
			location = event.Location.City + ", " + event.Location.Country
		}
		rows = append(rows, map[string]string{
			"Time":         event.AccessTime.UTC().Format(time.RFC3339),
			"File":         event.FileName,
			"Public ID":    event.PublicID,
			"Client IP":    event.ClientIP,
			"Location":     location,
			"User Agent":   event.UserAgent,
			"Granted":      fmt.Sprintf("%t", event.Granted),
			"File Deleted": fmt.Sprintf("%t", event.FileDeleted),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
