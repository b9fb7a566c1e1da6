package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aditwicaksono/sharegate/internal/clientinfo"
	"github.com/aditwicaksono/sharegate/internal/dto"
	"github.com/aditwicaksono/sharegate/internal/models"
	"github.com/aditwicaksono/sharegate/internal/service"
	appErrors "github.com/aditwicaksono/sharegate/pkg/errors"
	"github.com/aditwicaksono/sharegate/pkg/storage"
)

type accessEngineMock struct {
	verifyResp   *service.VerifyResult
	verifyErr    error
	streamResp   *service.FileStream
	streamErr    error
	printErr     error
	lastRequest  service.AccessRequest
	lastCopies   int
	verifyCalled bool
	printCalled  bool
}

func (m *accessEngineMock) Verify(ctx context.Context, req service.AccessRequest) (*service.VerifyResult, error) {
	m.verifyCalled = true
	m.lastRequest = req
	return m.verifyResp, m.verifyErr
}

func (m *accessEngineMock) FetchForView(ctx context.Context, req service.AccessRequest) (*service.FileStream, error) {
	m.lastRequest = req
	return m.streamResp, m.streamErr
}

func (m *accessEngineMock) FetchForDownload(ctx context.Context, req service.AccessRequest) (*service.FileStream, error) {
	m.lastRequest = req
	return m.streamResp, m.streamErr
}

func (m *accessEngineMock) SubmitPrintJob(ctx context.Context, req service.AccessRequest, copies int) error {
	m.printCalled = true
	m.lastRequest = req
	m.lastCopies = copies
	return m.printErr
}

func postJSON(t *testing.T, handlerFunc gin.HandlerFunc, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dto.RegisterValidations()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, "/verify", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	c.Request = req
	handlerFunc(c)
	return w
}

func grantedVerifyResult() *service.VerifyResult {
	return &service.VerifyResult{
		File: &models.FileRecord{
			PublicID:    "pub-1",
			FileName:    "report.pdf",
			ContentType: "application/pdf",
			Mode:        models.ModeView,
			Access:      models.AccessDownload,
		},
		Grant:          "grant-token",
		GrantExpiresAt: time.Now().Add(10 * time.Minute),
	}
}

func TestVerifyHandlerSuccess(t *testing.T) {
	mockSvc := &accessEngineMock{verifyResp: grantedVerifyResult()}
	handler := NewVerifyHandler(mockSvc, clientinfo.New(false), nil)

	w := postJSON(t, handler.Verify, `{"otp":"123456"}`, map[string]string{
		"X-Forwarded-For": "203.0.113.9, 10.0.0.1",
		"User-Agent":      "Mozilla/5.0",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.verifyCalled)
	assert.Equal(t, "123456", mockSvc.lastRequest.OTP)
	assert.Equal(t, "203.0.113.9", mockSvc.lastRequest.ClientIP)
	assert.Equal(t, "Mozilla/5.0", mockSvc.lastRequest.UserAgent)

	var envelope struct {
		Data struct {
			PublicID string `json:"public_id"`
			Grant    string `json:"grant"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "pub-1", envelope.Data.PublicID)
	assert.Equal(t, "grant-token", envelope.Data.Grant)
}

func TestVerifyHandlerMissingOTP(t *testing.T) {
	mockSvc := &accessEngineMock{}
	handler := NewVerifyHandler(mockSvc, clientinfo.New(false), nil)

	w := postJSON(t, handler.Verify, `{}`, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.verifyCalled)
}

func TestVerifyHandlerDenied(t *testing.T) {
	mockSvc := &accessEngineMock{verifyErr: appErrors.ErrAccessDenied}
	handler := NewVerifyHandler(mockSvc, clientinfo.New(false), nil)

	w := postJSON(t, handler.Verify, `{"otp":"000000"}`, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "ACCESS_DENIED")
	// The body must not reveal which check failed.
	assert.NotContains(t, w.Body.String(), "expired")
}

func TestDownloadHandlerStreamsAttachment(t *testing.T) {
	content := "%PDF-1.4 bytes"
	mockSvc := &accessEngineMock{streamResp: &service.FileStream{
		File:   &models.FileRecord{FileName: "report.pdf", ContentType: "application/pdf"},
		Reader: io.NopCloser(strings.NewReader(content)),
		Info:   &storage.ObjectInfo{Size: int64(len(content)), ContentType: "application/pdf"},
	}}
	handler := NewVerifyHandler(mockSvc, clientinfo.New(false), nil)

	w := postJSON(t, handler.Download, `{"grant":"grant-token"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, content, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `attachment; filename="report.pdf"`)
	assert.Equal(t, "grant-token", mockSvc.lastRequest.Grant)
}

func TestPrintHandlerStreamsInline(t *testing.T) {
	content := "%PDF-1.4 bytes"
	mockSvc := &accessEngineMock{streamResp: &service.FileStream{
		File:   &models.FileRecord{FileName: "report.pdf", ContentType: "application/pdf"},
		Reader: io.NopCloser(strings.NewReader(content)),
		Info:   &storage.ObjectInfo{Size: int64(len(content))},
	}}
	handler := NewVerifyHandler(mockSvc, clientinfo.New(false), nil)

	w := postJSON(t, handler.Print, `{"otp":"123456"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "inline")
}

func TestFetchHandlerRequiresCredential(t *testing.T) {
	handler := NewVerifyHandler(&accessEngineMock{}, clientinfo.New(false), nil)

	w := postJSON(t, handler.Download, `{}`, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPrintJobHandlerAccepted(t *testing.T) {
	mockSvc := &accessEngineMock{}
	handler := NewVerifyHandler(mockSvc, clientinfo.New(false), nil)

	w := postJSON(t, handler.PrintJob, `{"otp":"123456","copies":3}`, nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.True(t, mockSvc.printCalled)
	assert.Equal(t, 3, mockSvc.lastCopies)
}

func TestPrintJobHandlerBrokerDown(t *testing.T) {
	mockSvc := &accessEngineMock{printErr: appErrors.ErrUpstreamUnavailable}
	handler := NewVerifyHandler(mockSvc, clientinfo.New(false), nil)

	w := postJSON(t, handler.PrintJob, `{"otp":"123456"}`, nil)
	require.Equal(t, http.StatusBadGateway, w.Code)
}
