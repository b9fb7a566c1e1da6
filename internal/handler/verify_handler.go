package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aditwicaksono/sharegate/internal/clientinfo"
	"github.com/aditwicaksono/sharegate/internal/dto"
	"github.com/aditwicaksono/sharegate/internal/service"
	appErrors "github.com/aditwicaksono/sharegate/pkg/errors"
	"github.com/aditwicaksono/sharegate/pkg/response"
)

type accessEngine interface {
	Verify(ctx context.Context, req service.AccessRequest) (*service.VerifyResult, error)
	FetchForView(ctx context.Context, req service.AccessRequest) (*service.FileStream, error)
	FetchForDownload(ctx context.Context, req service.AccessRequest) (*service.FileStream, error)
	SubmitPrintJob(ctx context.Context, req service.AccessRequest, copies int) error
}

// VerifyHandler exposes the recipient-facing access endpoints. These routes
// are anonymous: the OTP or grant is the only credential.
type VerifyHandler struct {
	access    accessEngine
	extractor *clientinfo.Extractor
	logger    *zap.Logger
}

// NewVerifyHandler constructs the handler.
func NewVerifyHandler(access accessEngine, extractor *clientinfo.Extractor, logger *zap.Logger) *VerifyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerifyHandler{access: access, extractor: extractor, logger: logger}
}

// Verify godoc
// @Summary Verify an access code
// @Tags Access
// @Accept json
// @Produce json
// @Param payload body dto.VerifyRequest true "Access code"
// @Success 200 {object} response.Envelope{data=dto.VerifyResponse}
// @Failure 401 {object} response.Envelope
// @Router /verify [post]
func (h *VerifyHandler) Verify(c *gin.Context) {
	var req dto.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "otp required"))
		return
	}

	result, err := h.access.Verify(c.Request.Context(), h.accessRequest(c, req.OTP, ""))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, dto.VerifyResponse{
		PublicID:       result.File.PublicID,
		FileName:       result.File.FileName,
		ContentType:    result.File.ContentType,
		Mode:           string(result.File.Mode),
		Access:         string(result.File.Access),
		SingleUse:      result.File.SingleUse,
		Grant:          result.Grant,
		GrantExpiresAt: result.GrantExpiresAt,
	})
}

// Print godoc
// @Summary Fetch file bytes for inline rendering
// @Tags Access
// @Accept json
// @Produce octet-stream
// @Param payload body dto.FetchRequest true "Access code or grant"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /verify/print [post]
func (h *VerifyHandler) Print(c *gin.Context) {
	req, ok := h.bindFetch(c)
	if !ok {
		return
	}

	stream, err := h.access.FetchForView(c.Request.Context(), h.accessRequest(c, req.OTP, req.Grant))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer stream.Reader.Close() //nolint:errcheck

	h.stream(c, stream, "inline")
}

// Download godoc
// @Summary Fetch file bytes as an attachment
// @Tags Access
// @Accept json
// @Produce octet-stream
// @Param payload body dto.FetchRequest true "Access code or grant"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /verify/download [post]
func (h *VerifyHandler) Download(c *gin.Context) {
	req, ok := h.bindFetch(c)
	if !ok {
		return
	}

	stream, err := h.access.FetchForDownload(c.Request.Context(), h.accessRequest(c, req.OTP, req.Grant))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer stream.Reader.Close() //nolint:errcheck

	h.stream(c, stream, "attachment")
}

// PrintJob godoc
// @Summary Submit a print job to the broker
// @Tags Access
// @Accept json
// @Produce json
// @Param payload body dto.PrintJobRequest true "Access code or grant plus copies"
// @Success 202 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /verify/print-job [post]
func (h *VerifyHandler) PrintJob(c *gin.Context) {
	var req dto.PrintJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid print payload"))
		return
	}
	if req.OTP == "" && req.Grant == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "otp or grant required"))
		return
	}

	if err := h.access.SubmitPrintJob(c.Request.Context(), h.accessRequest(c, req.OTP, req.Grant), req.Copies); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusAccepted, gin.H{"status": "queued"})
}

func (h *VerifyHandler) bindFetch(c *gin.Context) (dto.FetchRequest, bool) {
	var req dto.FetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fetch payload"))
		return req, false
	}
	if req.OTP == "" && req.Grant == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "otp or grant required"))
		return req, false
	}
	return req, true
}

func (h *VerifyHandler) accessRequest(c *gin.Context, otp, grant string) service.AccessRequest {
	signals := h.extractor.Extract(c.Request.Header)
	return service.AccessRequest{
		OTP:       otp,
		Grant:     grant,
		ClientIP:  signals.IP,
		UserAgent: signals.UserAgent,
		Headers:   h.extractor.Meta(c.Request.Header),
	}
}

func (h *VerifyHandler) stream(c *gin.Context, stream *service.FileStream, disposition string) {
	contentType := stream.File.ContentType
	if contentType == "" && stream.Info != nil {
		contentType = stream.Info.ContentType
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var size int64 = -1
	if stream.Info != nil {
		size = stream.Info.Size
	}

	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf("%s; filename=%q", disposition, stream.File.FileName),
		"Cache-Control":       "no-store",
	}
	c.DataFromReader(http.StatusOK, size, contentType, stream.Reader, headers)
}
