package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/safelink/scan-gateway/internal/domain"
	"github.com/safelink/scan-gateway/internal/logger"
	"github.com/safelink/scan-gateway/internal/middleware"
)

// QuotaReader reads a subject's quota usage without mutating it.
type QuotaReader interface {
	Stats(ctx context.Context, subjectID string) (domain.QuotaState, error)
	Limit() int
}

// StatsHandler serves per-user usage endpoints. Both routes sit behind the
// auth middleware, which stores the caller's identity in the context.
type StatsHandler struct {
	quota  QuotaReader
	logger logger.Logger
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(quota QuotaReader, log logger.Logger) *StatsHandler {
	return &StatsHandler{quota: quota, logger: log}
}

// HandleStats processes GET /api/v1/stats: caller identity plus usage.
func (h *StatsHandler) HandleStats(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Authentication required",
			"code":    "UNAUTHENTICATED",
			"message": "Invalid authentication credentials",
		})
		return
	}

	state, degraded := h.readQuota(c, id.SubjectID)

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"uid":            id.SubjectID,
			"email":          id.Email,
			"email_verified": id.EmailVerified,
		},
		"rate_limit": h.rateLimitBody(state, degraded),
	})
}

// HandleLimits processes GET /api/v1/limits: usage only.
func (h *StatsHandler) HandleLimits(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Authentication required",
			"code":    "UNAUTHENTICATED",
			"message": "Invalid authentication credentials",
		})
		return
	}

	state, degraded := h.readQuota(c, id.SubjectID)
	c.JSON(http.StatusOK, h.rateLimitBody(state, degraded))
}

// readQuota fetches the usage snapshot. A store failure is reported as
// degraded data with zero usage, not as a request failure.
func (h *StatsHandler) readQuota(c *gin.Context, subjectID string) (domain.QuotaState, bool) {
	state, err := h.quota.Stats(c.Request.Context(), subjectID)
	if err != nil {
		h.logger.Warn("Quota stats unavailable, reporting zero usage",
			logger.String("subject_id", subjectID),
			logger.Error(err),
		)
		return state, true
	}
	return state, false
}

func (h *StatsHandler) rateLimitBody(state domain.QuotaState, degraded bool) gin.H {
	body := gin.H{
		"scans_today":     state.Count,
		"daily_limit":     state.Limit,
		"remaining":       state.Remaining(),
		"percentage_used": state.PercentageUsed(),
	}
	if degraded {
		body["degraded"] = true
	}
	return body
}
