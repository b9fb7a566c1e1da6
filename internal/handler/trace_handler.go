package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aditwicaksono/sharegate/internal/dto"
	"github.com/aditwicaksono/sharegate/internal/models"
	"github.com/aditwicaksono/sharegate/internal/service"
	appErrors "github.com/aditwicaksono/sharegate/pkg/errors"
	"github.com/aditwicaksono/sharegate/pkg/response"
)

type traceQuerier interface {
	List(ctx context.Context, uploaderID string, limit int) ([]models.AccessEvent, int, error)
	Export(ctx context.Context, uploaderID, format string) (*service.ExportResult, error)
}

// TraceHandler exposes the uploader-facing audit trail endpoints. Every
// route requires a bearer token; rows are always scoped to the caller.
type TraceHandler struct {
	traces traceQuerier
}

// NewTraceHandler constructs the handler.
func NewTraceHandler(traces traceQuerier) *TraceHandler {
	return &TraceHandler{traces: traces}
}

// List godoc
// @Summary List access events for the authenticated uploader
// @Tags Traces
// @Produce json
// @Param limit query int false "Maximum rows" maximum(1000)
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /traces [get]
func (h *TraceHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var query dto.TraceListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid limit"))
		return
	}

	events, total, err := h.traces.List(c.Request.Context(), claims.UploaderID, query.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, events, map[string]interface{}{"total": total})
}

// Export godoc
// @Summary Export access events as CSV or PDF
// @Tags Traces
// @Produce octet-stream
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /traces/export [get]
func (h *TraceHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var query dto.TraceExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid format"))
		return
	}
	format := query.Format
	if format == "" {
		format = service.ExportFormatCSV
	}

	result, err := h.traces.Export(c.Request.Context(), claims.UploaderID, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
