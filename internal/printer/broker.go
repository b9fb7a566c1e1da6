// Package printer integrates with an optional external print broker. The
// broker receives job descriptors only, never file bytes; it fetches those
// itself using the grant embedded in the job.
package printer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/aditwicaksono/sharegate/pkg/config"
)

// ErrDisabled is returned when no broker endpoint is configured.
var ErrDisabled = errors.New("printer: broker disabled")

// Job describes one print submission.
type Job struct {
	PublicID    string `json:"public_id"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Grant       string `json:"grant"`
	Copies      int    `json:"copies"`
}

// Broker submits print jobs to the external spooler.
type Broker interface {
	Submit(ctx context.Context, job Job) error
}

// NewBroker selects the implementation for the configuration. An empty
// broker URL yields the disabled broker.
func NewBroker(cfg config.PrinterConfig, logger *zap.Logger) Broker {
	if cfg.BrokerURL == "" {
		return disabledBroker{}
	}
	return NewHTTPBroker(cfg, logger)
}

type disabledBroker struct{}

func (disabledBroker) Submit(context.Context, Job) error {
	return ErrDisabled
}

// HTTPBroker posts jobs to a REST print spooler.
type HTTPBroker struct {
	client *http.Client
	url    string
	logger *zap.Logger
}

// NewHTTPBroker builds a broker client against the configured endpoint.
func NewHTTPBroker(cfg config.PrinterConfig, logger *zap.Logger) *HTTPBroker {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPBroker{
		client: &http.Client{Timeout: timeout},
		url:    cfg.BrokerURL,
		logger: logger,
	}
}

// Submit delivers one job. Any transport or non-2xx failure surfaces to the
// caller; the broker owns retries on its side.
func (b *HTTPBroker) Submit(ctx context.Context, job Job) error {
	if job.Copies <= 0 {
		job.Copies = 1
	}
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode print job: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url+"/jobs", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build print request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("submit print job: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("print broker status %d", resp.StatusCode)
	}

	b.logger.Debug("print job submitted", zap.String("public_id", job.PublicID))
	return nil
}
