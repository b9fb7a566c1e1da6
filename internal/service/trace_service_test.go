package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aditwicaksono/sharegate/internal/models"
	"github.com/aditwicaksono/sharegate/pkg/config"
	appErrors "github.com/aditwicaksono/sharegate/pkg/errors"
)

type mockTraceStore struct {
	mu       sync.Mutex
	events   []models.AccessEvent
	insertCh chan *models.AccessEvent
	listErr  error
}

func (m *mockTraceStore) Insert(ctx context.Context, event *models.AccessEvent) error {
	m.mu.Lock()
	m.events = append(m.events, *event)
	m.mu.Unlock()
	if m.insertCh != nil {
		m.insertCh <- event
	}
	return nil
}

func (m *mockTraceStore) ListByUploader(ctx context.Context, filter models.TraceFilter) ([]models.AccessEvent, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.AccessEvent{}
	for _, event := range m.events {
		if event.UploaderID == filter.UploaderID {
			out = append(out, event)
		}
	}
	return out, nil
}

func (m *mockTraceStore) CountByUploader(ctx context.Context, uploaderID string) (int, error) {
	events, err := m.ListByUploader(context.Background(), models.TraceFilter{UploaderID: uploaderID})
	if err != nil {
		return 0, err
	}
	return len(events), nil
}

type staticLocator struct {
	loc *models.Location
}

func (l *staticLocator) Locate(ctx context.Context, ip string) *models.Location {
	return l.loc
}

func TestAuditRecorderPersistsWithLocation(t *testing.T) {
	store := &mockTraceStore{insertCh: make(chan *models.AccessEvent, 1)}
	metrics := &mockAccessMetrics{}
	recorder := NewAuditRecorder(store, &staticLocator{loc: models.LocationLocal()}, metrics, zap.NewNop(), config.AuditConfig{
		Workers:    1,
		BufferSize: 4,
	})
	recorder.Start(context.Background())
	defer recorder.Stop()

	recorder.Record(&models.AccessEvent{
		UploaderID: "u1",
		ClientIP:   "192.168.1.10",
		UserAgent:  "ua",
		Granted:    true,
	})

	select {
	case event := <-store.insertCh:
		require.NotNil(t, event.Location)
		assert.Equal(t, "Local", event.Location.Country)
	case <-time.After(2 * time.Second):
		t.Fatal("audit event was not persisted")
	}
}

func TestAuditRecorderFailsClosedWhenStopped(t *testing.T) {
	store := &mockTraceStore{}
	metrics := &mockAccessMetrics{}
	recorder := NewAuditRecorder(store, &staticLocator{loc: models.LocationUnknown()}, metrics, zap.NewNop(), config.AuditConfig{})

	// Never started: the event must be counted as a failure, not panic or block.
	recorder.Record(&models.AccessEvent{UploaderID: "u1"})
	assert.Equal(t, 1, metrics.failures)
	assert.Empty(t, store.events)
}

func TestAuditRecorderStopFlushesAcceptedEvents(t *testing.T) {
	store := &mockTraceStore{}
	metrics := &mockAccessMetrics{}
	recorder := NewAuditRecorder(store, &staticLocator{loc: models.LocationLocal()}, metrics, zap.NewNop(), config.AuditConfig{
		Workers:    1,
		BufferSize: 8,
	})
	recorder.Start(context.Background())

	for i := 0; i < 4; i++ {
		recorder.Record(&models.AccessEvent{UploaderID: "u1", ClientIP: "192.168.1.10"})
	}
	recorder.Stop()

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Len(t, store.events, 4, "events accepted before shutdown must reach the store")
	assert.Equal(t, 0, metrics.drops)
}

func TestAuditRecorderDropsWhenQueueFull(t *testing.T) {
	block := make(chan struct{})
	store := &slowTraceStore{block: block}
	metrics := &mockAccessMetrics{}
	recorder := NewAuditRecorder(store, &staticLocator{loc: models.LocationUnknown()}, metrics, zap.NewNop(), config.AuditConfig{
		Workers:    1,
		BufferSize: 1,
	})
	recorder.Start(context.Background())
	defer func() {
		close(block)
		recorder.Stop()
	}()

	for i := 0; i < 5; i++ {
		recorder.Record(&models.AccessEvent{UploaderID: "u1"})
	}
	assert.Greater(t, metrics.drops, 0, "overflow must drop, never block the caller")
	assert.Equal(t, 0, metrics.failures)
}

type slowTraceStore struct {
	block chan struct{}
}

func (s *slowTraceStore) Insert(ctx context.Context, event *models.AccessEvent) error {
	select {
	case <-s.block:
	case <-ctx.Done():
	}
	return nil
}

func seedTraceStore() *mockTraceStore {
	now := time.Now().UTC()
	return &mockTraceStore{events: []models.AccessEvent{
		{
			ID:         "e1",
			UploaderID: "u1",
			ClientIP:   "203.0.113.9",
			UserAgent:  "Mozilla/5.0",
			FileName:   "report.pdf",
			PublicID:   "pub-1",
			Granted:    true,
			AccessTime: now,
			Location:   &models.Location{Country: "Indonesia", City: "Jakarta"},
		},
		{
			ID:         "e2",
			UploaderID: "u2",
			ClientIP:   "198.51.100.7",
			UserAgent:  "curl/8.0",
			FileName:   "other.pdf",
			PublicID:   "pub-2",
			AccessTime: now,
		},
	}}
}

func TestTraceQueryListScopedToUploader(t *testing.T) {
	svc := NewTraceQueryService(seedTraceStore(), zap.NewNop(), config.TraceConfig{})

	events, total, err := svc.List(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "pub-1", events[0].PublicID)
	assert.Equal(t, 1, total)
}

func TestTraceQueryListRequiresUploader(t *testing.T) {
	svc := NewTraceQueryService(seedTraceStore(), zap.NewNop(), config.TraceConfig{})

	_, _, err := svc.List(context.Background(), "", 0)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestTraceQueryListWrapsStoreFailure(t *testing.T) {
	store := seedTraceStore()
	store.listErr = errors.New("connection refused")
	svc := NewTraceQueryService(store, zap.NewNop(), config.TraceConfig{})

	_, _, err := svc.List(context.Background(), "u1", 0)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestTraceQueryExportCSV(t *testing.T) {
	svc := NewTraceQueryService(seedTraceStore(), zap.NewNop(), config.TraceConfig{})

	result, err := svc.Export(context.Background(), "u1", ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, strings.HasPrefix(result.FileName, "access-trail-"))

	content := string(result.Content)
	assert.Contains(t, content, "Client IP")
	assert.Contains(t, content, "203.0.113.9")
	assert.Contains(t, content, "Jakarta, Indonesia")
	assert.NotContains(t, content, "198.51.100.7", "other uploaders' rows must not leak")
}

func TestTraceQueryExportPDF(t *testing.T) {
	svc := NewTraceQueryService(seedTraceStore(), zap.NewNop(), config.TraceConfig{})

	result, err := svc.Export(context.Background(), "u1", ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasPrefix(string(result.Content), "%PDF"))
}

func TestTraceQueryExportRejectsUnknownFormat(t *testing.T) {
	svc := NewTraceQueryService(seedTraceStore(), zap.NewNop(), config.TraceConfig{})

	_, err := svc.Export(context.Background(), "u1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
