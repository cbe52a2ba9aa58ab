// Package pipeline runs a scan request through the admission sequence:
// identity first, then quota, then URL validation. Each stage either passes
// the request on or stops it with a terminal outcome; later stages are never
// reached after a failure. Quota is charged before the URL is validated, so
// a malformed URL still consumes one unit of the day's quota.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/safelink/scan-gateway/internal/domain"
	"github.com/safelink/scan-gateway/internal/logger"
	"github.com/safelink/scan-gateway/internal/quota"
	"github.com/safelink/scan-gateway/internal/urlcheck"
)

// Outcome is the terminal state of one admission run.
type Outcome string

const (
	OutcomeAdmitted        Outcome = "admitted"
	OutcomeUnauthenticated Outcome = "unauthenticated"
	OutcomeRateLimited     Outcome = "rate_limited"
	OutcomeInvalidURL      Outcome = "invalid_url"
)

// TokenVerifier resolves a bearer credential to an identity.
type TokenVerifier interface {
	Verify(ctx context.Context, credential string) (domain.Identity, error)
}

// QuotaKeeper checks and consumes the caller's daily quota.
type QuotaKeeper interface {
	CheckAndConsume(ctx context.Context, subjectID string) quota.Decision
	Limit() int
}

// ValidateFunc validates and normalizes a raw URL.
type ValidateFunc func(raw string) (string, error)

// Recorder receives admission pipeline metrics. *metrics.Metrics satisfies it.
type Recorder interface {
	RecordAdmission(outcome string)
	RecordValidationRejection(reason string)
	RecordQuotaRejection()
	RecordQuotaFailOpen()
}

// Result carries the terminal outcome together with whatever the pipeline
// learned before stopping. Identity is zero when unauthenticated; Quota is
// zero until the quota stage ran; Request is set only when admitted.
type Result struct {
	Outcome   Outcome
	Identity  domain.Identity
	Quota     quota.Decision
	Rejection *urlcheck.RejectionError
	AuthError error
	Request   domain.ValidatedRequest
}

// Pipeline is the admission sequence over a verifier, a quota keeper, and a
// URL validator.
type Pipeline struct {
	verifier TokenVerifier
	quota    QuotaKeeper
	validate ValidateFunc
	recorder Recorder
	logger   logger.Logger
	now      func() time.Time
}

// New creates an admission pipeline. A nil validate uses the default URL
// validator; a nil recorder discards metrics.
func New(verifier TokenVerifier, keeper QuotaKeeper, validate ValidateFunc, recorder Recorder, log logger.Logger) *Pipeline {
	if validate == nil {
		validate = urlcheck.Validate
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Pipeline{
		verifier: verifier,
		quota:    keeper,
		validate: validate,
		recorder: recorder,
		logger:   log,
		now:      time.Now,
	}
}

// Admit runs the admission sequence for one request.
func (p *Pipeline) Admit(ctx context.Context, credential, rawURL string) Result {
	identity, err := p.verifier.Verify(ctx, credential)
	if err != nil {
		p.recorder.RecordAdmission(string(OutcomeUnauthenticated))
		p.logger.Debug("Request rejected: authentication failed", logger.Error(err))
		return Result{Outcome: OutcomeUnauthenticated, AuthError: err}
	}

	decision := p.quota.CheckAndConsume(ctx, identity.SubjectID)
	if decision.FailOpen {
		p.recorder.RecordQuotaFailOpen()
	}
	if !decision.Admitted {
		p.recorder.RecordQuotaRejection()
		p.recorder.RecordAdmission(string(OutcomeRateLimited))
		p.logger.Info("Request rejected: daily quota exhausted",
			logger.String("subject_id", identity.SubjectID),
			logger.Int("used", decision.State.Count),
			logger.Int("limit", decision.State.Limit),
		)
		return Result{Outcome: OutcomeRateLimited, Identity: identity, Quota: decision}
	}

	normalized, err := p.validate(rawURL)
	if err != nil {
		var rej *urlcheck.RejectionError
		if !errors.As(err, &rej) {
			rej = &urlcheck.RejectionError{
				Reason:  urlcheck.ReasonInvalidFormat,
				Message: err.Error(),
			}
		}
		p.recorder.RecordValidationRejection(string(rej.Reason))
		p.recorder.RecordAdmission(string(OutcomeInvalidURL))
		p.logger.Debug("Request rejected: URL failed validation",
			logger.String("subject_id", identity.SubjectID),
			logger.String("reason", string(rej.Reason)),
		)
		return Result{Outcome: OutcomeInvalidURL, Identity: identity, Quota: decision, Rejection: rej}
	}

	p.recorder.RecordAdmission(string(OutcomeAdmitted))
	return Result{
		Outcome:  OutcomeAdmitted,
		Identity: identity,
		Quota:    decision,
		Request: domain.ValidatedRequest{
			NormalizedURL: normalized,
			SubjectID:     identity.SubjectID,
			Timestamp:     p.now().UTC(),
		},
	}
}

type nopRecorder struct{}

func (nopRecorder) RecordAdmission(string)           {}
func (nopRecorder) RecordValidationRejection(string) {}
func (nopRecorder) RecordQuotaRejection()            {}
func (nopRecorder) RecordQuotaFailOpen()             {}
