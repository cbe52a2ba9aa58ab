package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/safelink/scan-gateway/internal/domain"
	"github.com/safelink/scan-gateway/internal/handler"
	"github.com/safelink/scan-gateway/internal/logger"
	"github.com/safelink/scan-gateway/internal/middleware"
)

type stubQuotaReader struct {
	state domain.QuotaState
	err   error
}

func (s *stubQuotaReader) Stats(_ context.Context, _ string) (domain.QuotaState, error) {
	return s.state, s.err
}

func (s *stubQuotaReader) Limit() int { return s.state.Limit }

func newStatsRouter(reader handler.QuotaReader, id *domain.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if id != nil {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.IdentityKey, *id)
		})
	}
	h := handler.NewStatsHandler(reader, logger.NewNop())
	r.GET("/stats", h.HandleStats)
	r.GET("/limits", h.HandleLimits)
	return r
}

func getJSON(t *testing.T, r *gin.Engine, path string, wantCode int) map[string]any {
	t.Helper()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	r.ServeHTTP(w, req)

	if w.Code != wantCode {
		t.Fatalf("GET %s: expected %d, got %d: %s", path, wantCode, w.Code, w.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestHandleStats_ReturnsUserAndUsage(t *testing.T) {
	reader := &stubQuotaReader{state: domain.QuotaState{Count: 4, Limit: 10}}
	id := &domain.Identity{SubjectID: "user-1", Email: "u@example.com", EmailVerified: true}
	r := newStatsRouter(reader, id)

	body := getJSON(t, r, "/stats", http.StatusOK)

	user, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("user block missing: %v", body)
	}
	if user["uid"] != "user-1" || user["email"] != "u@example.com" || user["email_verified"] != true {
		t.Errorf("user = %v, want the authenticated identity", user)
	}

	rl, ok := body["rate_limit"].(map[string]any)
	if !ok {
		t.Fatalf("rate_limit block missing: %v", body)
	}
	if rl["scans_today"] != float64(4) || rl["daily_limit"] != float64(10) || rl["remaining"] != float64(6) {
		t.Errorf("rate_limit = %v, want 4 used of 10", rl)
	}
	if rl["percentage_used"] != float64(40) {
		t.Errorf("percentage_used = %v, want 40", rl["percentage_used"])
	}
}

func TestHandleLimits_ReturnsUsage(t *testing.T) {
	reader := &stubQuotaReader{state: domain.QuotaState{Count: 10, Limit: 10}}
	id := &domain.Identity{SubjectID: "user-1"}
	r := newStatsRouter(reader, id)

	body := getJSON(t, r, "/limits", http.StatusOK)

	if body["remaining"] != float64(0) || body["percentage_used"] != float64(100) {
		t.Errorf("body = %v, want exhausted quota", body)
	}
	if _, present := body["degraded"]; present {
		t.Error("degraded flag present on healthy read")
	}
}

func TestHandleLimits_DegradedOnStoreFailure(t *testing.T) {
	reader := &stubQuotaReader{
		state: domain.QuotaState{Count: 0, Limit: 10},
		err:   errors.New("connection refused"),
	}
	id := &domain.Identity{SubjectID: "user-1"}
	r := newStatsRouter(reader, id)

	body := getJSON(t, r, "/limits", http.StatusOK)

	if body["degraded"] != true {
		t.Errorf("degraded = %v, want true when the store is unreachable", body["degraded"])
	}
	if body["scans_today"] != float64(0) {
		t.Errorf("scans_today = %v, want 0 on degraded read", body["scans_today"])
	}
}

func TestHandleStats_MissingIdentity(t *testing.T) {
	reader := &stubQuotaReader{state: domain.QuotaState{Limit: 10}}
	r := newStatsRouter(reader, nil)

	getJSON(t, r, "/stats", http.StatusUnauthorized)
	getJSON(t, r, "/limits", http.StatusUnauthorized)
}
