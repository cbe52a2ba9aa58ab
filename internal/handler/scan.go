// Package handler renders admission pipeline outcomes and quota state as
// HTTP responses.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safelink/scan-gateway/internal/domain"
	"github.com/safelink/scan-gateway/internal/logger"
	"github.com/safelink/scan-gateway/internal/middleware"
	"github.com/safelink/scan-gateway/internal/pipeline"
	"github.com/safelink/scan-gateway/internal/scanner"
)

// quotaResetSeconds is the value of the X-RateLimit-Reset header, the fixed
// 24h window in seconds.
const quotaResetSeconds = "86400"

// Admitter runs a request through the admission pipeline.
type Admitter interface {
	Admit(ctx context.Context, credential, rawURL string) pipeline.Result
}

// ThreatLookup resolves a normalized URL to a verdict.
type ThreatLookup interface {
	Lookup(ctx context.Context, normalizedURL string) (domain.ScanVerdict, error)
}

// LookupRecorder receives threat lookup metrics. *metrics.Metrics satisfies it.
type LookupRecorder interface {
	RecordVerdict(verdict string, duration time.Duration)
	RecordLookupFailure(kind string)
}

type scanRequest struct {
	URL string `json:"url"`
}

type scanResponse struct {
	Status       domain.VerdictStatus `json:"status"`
	Matches      []domain.ThreatMatch `json:"matches"`
	ThreatsFound int                  `json:"threats_found"`
	UserID       string               `json:"user_id"`
	Timestamp    time.Time            `json:"timestamp"`
}

// ScanHandler handles scan requests end to end: admission, threat lookup,
// and response rendering.
type ScanHandler struct {
	admitter Admitter
	lookup   ThreatLookup
	recorder LookupRecorder
	logger   logger.Logger
}

// NewScanHandler creates a ScanHandler with the given dependencies. A nil
// recorder discards metrics.
func NewScanHandler(admitter Admitter, lookup ThreatLookup, recorder LookupRecorder, log logger.Logger) *ScanHandler {
	if recorder == nil {
		recorder = nopLookupRecorder{}
	}
	return &ScanHandler{
		admitter: admitter,
		lookup:   lookup,
		recorder: recorder,
		logger:   log,
	}
}

// HandleScan processes POST /api/v1/scan.
func (h *ScanHandler) HandleScan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"code":    "INVALID_REQUEST",
			"message": "Request body must be JSON with a url field",
		})
		return
	}

	res := h.admitter.Admit(c.Request.Context(), middleware.BearerToken(c), req.URL)

	switch res.Outcome {
	case pipeline.OutcomeUnauthenticated:
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Authentication required",
			"code":    "UNAUTHENTICATED",
			"message": "Invalid authentication credentials",
		})

	case pipeline.OutcomeRateLimited:
		setQuotaHeaders(c, res.Quota.State)
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":     "Rate limit exceeded",
			"message":   "Daily scan limit reached",
			"limit":     res.Quota.State.Limit,
			"used":      res.Quota.State.Count,
			"remaining": res.Quota.State.Remaining(),
			"reset":     quotaResetSeconds,
		})

	case pipeline.OutcomeInvalidURL:
		setQuotaHeaders(c, res.Quota.State)
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid URL",
			"code":    string(res.Rejection.Reason),
			"message": res.Rejection.Message,
		})

	case pipeline.OutcomeAdmitted:
		h.scan(c, res)
	}
}

// scan performs the threat lookup for an admitted request.
func (h *ScanHandler) scan(c *gin.Context, res pipeline.Result) {
	setQuotaHeaders(c, res.Quota.State)

	start := time.Now()
	verdict, err := h.lookup.Lookup(c.Request.Context(), res.Request.NormalizedURL)
	if err != nil {
		h.renderLookupFailure(c, err)
		return
	}

	h.recorder.RecordVerdict(string(verdict.Status), time.Since(start))
	c.JSON(http.StatusOK, scanResponse{
		Status:       verdict.Status,
		Matches:      verdict.Matches,
		ThreatsFound: verdict.ThreatCount,
		UserID:       res.Request.SubjectID,
		Timestamp:    res.Request.Timestamp,
	})
}

func (h *ScanHandler) renderLookupFailure(c *gin.Context, err error) {
	if errors.Is(err, scanner.ErrLookupTimeout) {
		h.recorder.RecordLookupFailure("timeout")
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"error":   "Scan timed out",
			"code":    "LOOKUP_TIMEOUT",
			"message": "The threat lookup did not complete in time",
		})
		return
	}

	h.recorder.RecordLookupFailure("upstream")
	h.logger.Error("Threat lookup failed", logger.Error(err))

	var ue *scanner.UpstreamError
	if errors.As(err, &ue) {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":           "Scan service unavailable",
			"code":            "UPSTREAM_ERROR",
			"message":         "The threat lookup service returned an error",
			"upstream_status": ue.StatusCode,
		})
		return
	}

	c.JSON(http.StatusBadGateway, gin.H{
		"error":   "Scan service unavailable",
		"code":    "UPSTREAM_ERROR",
		"message": "The threat lookup could not be completed",
	})
}

// setQuotaHeaders exposes the caller's quota state on the response.
func setQuotaHeaders(c *gin.Context, state domain.QuotaState) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(state.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(state.Remaining()))
	c.Header("X-RateLimit-Used", strconv.Itoa(state.Count))
	c.Header("X-RateLimit-Reset", quotaResetSeconds)
}

type nopLookupRecorder struct{}

func (nopLookupRecorder) RecordVerdict(string, time.Duration) {}
func (nopLookupRecorder) RecordLookupFailure(string)          {}
