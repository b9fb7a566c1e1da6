package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/aditwicaksono/sharegate/internal/models"
	"github.com/aditwicaksono/sharegate/internal/printer"
	appErrors "github.com/aditwicaksono/sharegate/pkg/errors"
	"github.com/aditwicaksono/sharegate/pkg/storage"
	"github.com/aditwicaksono/sharegate/pkg/token"
)

type accessFileRepository interface {
	FindByOTPDigest(ctx context.Context, digest string) (*models.FileRecord, error)
	FindByPublicID(ctx context.Context, publicID string) (*models.FileRecord, error)
	ConsumeOTP(ctx context.Context, digest string, ts time.Time) (*models.FileRecord, error)
}

type accessAuditor interface {
	Record(event *models.AccessEvent)
}

type accessMetrics interface {
	RecordVerify(outcome string)
	RecordPrintJob(status string)
}

// AccessRequest carries one attempt against the gate: the code presented and
// the untrusted client signals captured for the audit trail. Exactly one of
// OTP and Grant is set; Grant covers follow-up byte fetches after a
// single-use code has been consumed.
type AccessRequest struct {
	OTP   string
	Grant string

	ClientIP  string
	UserAgent string
	Headers   *models.RequestMeta
}

// VerifyResult is a successful verification verdict.
type VerifyResult struct {
	File           *models.FileRecord
	Grant          string
	GrantExpiresAt time.Time
}

// FileStream is an open handle on granted file bytes. The caller owns Reader
// and must close it.
type FileStream struct {
	File   *models.FileRecord
	Reader io.ReadCloser
	Info   *storage.ObjectInfo
}

// AccessPolicyEngine decides every access attempt. Each verdict, grant or
// denial, comes with exactly one audit event when the attempt resolves to a
// file record; attempts that match nothing are counted in metrics only,
// since there is no uploader to attribute them to.
//
// All denial reasons collapse into the single opaque ErrAccessDenied so the
// verify endpoint cannot be probed to distinguish wrong codes from expired
// or revoked ones.
type AccessPolicyEngine struct {
	files     accessFileRepository
	blobs     storage.BlobStore
	auditor   accessAuditor
	signer    *token.GrantSigner
	broker    printer.Broker
	metrics   accessMetrics
	logger    *zap.Logger
}

// NewAccessPolicyEngine constructs the engine.
func NewAccessPolicyEngine(
	files accessFileRepository,
	blobs storage.BlobStore,
	auditor accessAuditor,
	signer *token.GrantSigner,
	broker printer.Broker,
	metrics accessMetrics,
	logger *zap.Logger,
) *AccessPolicyEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessPolicyEngine{
		files:     files,
		blobs:     blobs,
		auditor:   auditor,
		signer:    signer,
		broker:    broker,
		metrics:   metrics,
		logger:    logger,
	}
}

// DigestOTP returns the storage form of a plaintext code. Codes are matched
// by digest so plaintext never reaches the database or the audit trail.
func DigestOTP(otp string) string {
	sum := sha256.Sum256([]byte(otp))
	return hex.EncodeToString(sum[:])
}

// Verify checks a presented code and, when valid, issues a signed grant for
// the follow-up byte fetches. Single-use codes are consumed atomically here:
// of two concurrent attempts with the same code, exactly one is granted.
func (s *AccessPolicyEngine) Verify(ctx context.Context, req AccessRequest) (*VerifyResult, error) {
	file, err := s.authorize(ctx, req, false)
	if err != nil {
		return nil, err
	}

	grant, expiresAt, err := s.signer.Issue(file.PublicID, string(file.Mode), string(file.Access))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue access grant")
	}

	return &VerifyResult{File: file, Grant: grant, GrantExpiresAt: expiresAt}, nil
}

// FetchForView opens the file bytes for inline rendering. Any verified
// attempt may view; this is the print-preview and in-browser path.
func (s *AccessPolicyEngine) FetchForView(ctx context.Context, req AccessRequest) (*FileStream, error) {
	file, err := s.authorize(ctx, req, false)
	if err != nil {
		return nil, err
	}
	return s.open(ctx, file)
}

// FetchForDownload opens the file bytes for attachment delivery. Download
// requires either download mode or the download access level; the check runs
// before a single-use code is consumed, so a denied download leaves the code
// usable for the view flow it was issued for.
func (s *AccessPolicyEngine) FetchForDownload(ctx context.Context, req AccessRequest) (*FileStream, error) {
	file, err := s.authorize(ctx, req, true)
	if err != nil {
		return nil, err
	}
	return s.open(ctx, file)
}

// SubmitPrintJob verifies the attempt and hands a job descriptor to the
// print broker. The broker fetches bytes itself with the embedded grant.
func (s *AccessPolicyEngine) SubmitPrintJob(ctx context.Context, req AccessRequest, copies int) error {
	file, err := s.authorize(ctx, req, false)
	if err != nil {
		return err
	}

	grant, _, err := s.signer.Issue(file.PublicID, string(file.Mode), string(file.Access))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue print grant")
	}

	job := printer.Job{
		PublicID:    file.PublicID,
		FileName:    file.FileName,
		ContentType: file.ContentType,
		Grant:       grant,
		Copies:      copies,
	}
	if err := s.broker.Submit(ctx, job); err != nil {
		s.metrics.RecordPrintJob("rejected")
		s.logger.Warn("print job rejected", zap.String("public_id", file.PublicID), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, "print broker unavailable")
	}
	s.metrics.RecordPrintJob("accepted")
	return nil
}

// authorize resolves the attempt to a file record and applies the policy
// checks. Every attempt that resolves to a record produces one audit event,
// grant-based fetches included, so the trail shows each byte access and not
// just the verification. wantDownload is checked before a single-use code is
// consumed: a denied download must not burn a code still valid for viewing.
func (s *AccessPolicyEngine) authorize(ctx context.Context, req AccessRequest, wantDownload bool) (*models.FileRecord, error) {
	if req.Grant != "" {
		return s.authorizeGrant(ctx, req, wantDownload)
	}
	return s.authorizeOTP(ctx, req, wantDownload)
}

func (s *AccessPolicyEngine) authorizeOTP(ctx context.Context, req AccessRequest, wantDownload bool) (*models.FileRecord, error) {
	if req.OTP == "" {
		s.metrics.RecordVerify(VerifyOutcomeUnknownOTP)
		return nil, appErrors.ErrAccessDenied
	}

	digest := DigestOTP(req.OTP)
	file, err := s.files.FindByOTPDigest(ctx, digest)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Nothing to attribute the attempt to, metrics only.
			s.metrics.RecordVerify(VerifyOutcomeUnknownOTP)
			return nil, appErrors.ErrAccessDenied
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up access code")
	}

	now := time.Now().UTC()
	switch {
	case file.Deleted:
		s.metrics.RecordVerify(VerifyOutcomeDeleted)
		s.audit(file, req, false)
		return nil, appErrors.ErrAccessDenied
	case file.OTPExpired(now):
		s.metrics.RecordVerify(VerifyOutcomeExpired)
		s.audit(file, req, false)
		return nil, appErrors.ErrAccessDenied
	case file.OTPConsumed():
		s.metrics.RecordVerify(VerifyOutcomeConsumed)
		s.audit(file, req, false)
		return nil, appErrors.ErrAccessDenied
	}

	if wantDownload && !downloadAllowed(file) {
		s.metrics.RecordVerify(VerifyOutcomeForbidden)
		s.audit(file, req, false)
		return nil, appErrors.ErrAccessDenied
	}

	if file.SingleUse {
		consumed, err := s.files.ConsumeOTP(ctx, digest, now)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// Lost the race to a concurrent attempt.
				s.metrics.RecordVerify(VerifyOutcomeConsumed)
				s.audit(file, req, false)
				return nil, appErrors.ErrAccessDenied
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to consume access code")
		}
		file = consumed
	}

	s.metrics.RecordVerify(VerifyOutcomeGranted)
	s.audit(file, req, true)
	return file, nil
}

func (s *AccessPolicyEngine) authorizeGrant(ctx context.Context, req AccessRequest, wantDownload bool) (*models.FileRecord, error) {
	parsed, err := s.signer.Parse(req.Grant)
	if err != nil {
		s.metrics.RecordVerify(VerifyOutcomeBadGrant)
		return nil, appErrors.ErrAccessDenied
	}

	file, err := s.files.FindByPublicID(ctx, parsed.PublicID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordVerify(VerifyOutcomeBadGrant)
			return nil, appErrors.ErrAccessDenied
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve grant")
	}
	if file.Deleted {
		s.metrics.RecordVerify(VerifyOutcomeDeleted)
		s.audit(file, req, false)
		return nil, appErrors.ErrAccessDenied
	}
	if wantDownload && !downloadAllowed(file) {
		s.metrics.RecordVerify(VerifyOutcomeForbidden)
		s.audit(file, req, false)
		return nil, appErrors.ErrAccessDenied
	}

	s.metrics.RecordVerify(VerifyOutcomeGranted)
	s.audit(file, req, true)
	return file, nil
}

func (s *AccessPolicyEngine) open(ctx context.Context, file *models.FileRecord) (*FileStream, error) {
	reader, info, err := s.blobs.Fetch(ctx, file.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			s.logger.Error("blob missing for granted file", zap.String("public_id", file.PublicID), zap.String("key", file.StorageKey))
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file content not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, "file store unavailable")
	}
	return &FileStream{File: file, Reader: reader, Info: info}, nil
}

// audit emits one event for an attempt that resolved to a file record. The
// plaintext code never enters the trail, only its digest.
func (s *AccessPolicyEngine) audit(file *models.FileRecord, req AccessRequest, granted bool) {
	if s.auditor == nil || file == nil {
		return
	}
	ip := req.ClientIP
	if ip == "" {
		ip = models.UnknownIP
	}
	userAgent := req.UserAgent
	if userAgent == "" {
		userAgent = models.UnknownUserAgent
	}
	s.auditor.Record(&models.AccessEvent{
		UploaderID:  file.UploaderID,
		ClientIP:    ip,
		UserAgent:   userAgent,
		OTPUsed:     file.OTPDigest,
		FileName:    file.FileName,
		PublicID:    file.PublicID,
		FileDeleted: file.Deleted,
		Granted:     granted,
		AccessTime:  time.Now().UTC(),
		Headers:     req.Headers,
	})
}

func downloadAllowed(file *models.FileRecord) bool {
	return file.Mode == models.ModeDownload || file.Access == models.AccessDownload
}
