package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safelink/scan-gateway/internal/domain"
	"github.com/safelink/scan-gateway/internal/handler"
	"github.com/safelink/scan-gateway/internal/logger"
	"github.com/safelink/scan-gateway/internal/pipeline"
	"github.com/safelink/scan-gateway/internal/quota"
	"github.com/safelink/scan-gateway/internal/scanner"
	"github.com/safelink/scan-gateway/internal/urlcheck"
)

type stubAdmitter struct {
	result     pipeline.Result
	credential string
	rawURL     string
}

func (s *stubAdmitter) Admit(_ context.Context, credential, rawURL string) pipeline.Result {
	s.credential = credential
	s.rawURL = rawURL
	return s.result
}

type stubLookup struct {
	verdict domain.ScanVerdict
	err     error
}

func (s *stubLookup) Lookup(_ context.Context, _ string) (domain.ScanVerdict, error) {
	return s.verdict, s.err
}

func newScanRouter(admitter handler.Admitter, lookup handler.ThreatLookup) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := handler.NewScanHandler(admitter, lookup, nil, logger.NewNop())
	r.POST("/scan", h.HandleScan)
	return r
}

func postScan(r *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/scan", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer some-token")
	r.ServeHTTP(w, req)
	return w
}

func admittedResult(subjectID string, count, limit int) pipeline.Result {
	return pipeline.Result{
		Outcome: pipeline.OutcomeAdmitted,
		Quota: quota.Decision{
			Admitted: true,
			State:    domain.QuotaState{Count: count, Limit: limit},
		},
		Request: domain.ValidatedRequest{
			NormalizedURL: "https://example.com",
			SubjectID:     subjectID,
			Timestamp:     time.Now().UTC(),
		},
	}
}

func TestHandleScan_InvalidBody(t *testing.T) {
	r := newScanRouter(&stubAdmitter{}, &stubLookup{})

	w := postScan(r, "{not json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandleScan_Unauthenticated(t *testing.T) {
	admitter := &stubAdmitter{result: pipeline.Result{Outcome: pipeline.OutcomeUnauthenticated}}
	r := newScanRouter(admitter, &stubLookup{})

	w := postScan(r, `{"url": "https://example.com"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if admitter.credential != "some-token" {
		t.Errorf("credential = %q, want the bearer token", admitter.credential)
	}
}

func TestHandleScan_RateLimited(t *testing.T) {
	admitter := &stubAdmitter{result: pipeline.Result{
		Outcome: pipeline.OutcomeRateLimited,
		Quota: quota.Decision{
			State: domain.QuotaState{Count: 10, Limit: 10},
		},
	}}
	r := newScanRouter(admitter, &stubLookup{})

	w := postScan(r, `{"url": "https://example.com"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["limit"] != float64(10) || body["used"] != float64(10) || body["remaining"] != float64(0) {
		t.Errorf("usage payload = %v, want limit 10, used 10, remaining 0", body)
	}
	if body["reset"] != "86400" {
		t.Errorf("reset = %v, want 86400", body["reset"])
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", got)
	}
}

func TestHandleScan_InvalidURL(t *testing.T) {
	admitter := &stubAdmitter{result: pipeline.Result{
		Outcome: pipeline.OutcomeInvalidURL,
		Quota: quota.Decision{
			Admitted: true,
			State:    domain.QuotaState{Count: 1, Limit: 10},
		},
		Rejection: &urlcheck.RejectionError{
			Reason:  urlcheck.ReasonPrivateAddress,
			Message: "cannot scan internal/private URLs",
		},
	}}
	r := newScanRouter(admitter, &stubLookup{})

	w := postScan(r, `{"url": "http://192.168.1.1/admin"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["code"] != "PRIVATE_ADDRESS" {
		t.Errorf("code = %v, want PRIVATE_ADDRESS", body["code"])
	}
	// The rejected request still consumed quota.
	if got := w.Header().Get("X-RateLimit-Used"); got != "1" {
		t.Errorf("X-RateLimit-Used = %q, want 1", got)
	}
}

func TestHandleScan_Safe(t *testing.T) {
	admitter := &stubAdmitter{result: admittedResult("user-1", 3, 10)}
	lookup := &stubLookup{verdict: domain.NewScanVerdict(nil)}
	r := newScanRouter(admitter, lookup)

	w := postScan(r, `{"url": "example.com"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Status       string               `json:"status"`
		Matches      []domain.ThreatMatch `json:"matches"`
		ThreatsFound int                  `json:"threats_found"`
		UserID       string               `json:"user_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "safe" || body.ThreatsFound != 0 {
		t.Errorf("verdict = %+v, want safe with 0 threats", body)
	}
	if body.Matches == nil {
		t.Error("matches is null, want empty array")
	}
	if body.UserID != "user-1" {
		t.Errorf("user_id = %q, want user-1", body.UserID)
	}
	if got := w.Header().Get("X-RateLimit-Limit"); got != "10" {
		t.Errorf("X-RateLimit-Limit = %q, want 10", got)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "7" {
		t.Errorf("X-RateLimit-Remaining = %q, want 7", got)
	}
}

func TestHandleScan_Dangerous(t *testing.T) {
	admitter := &stubAdmitter{result: admittedResult("user-1", 1, 10)}
	lookup := &stubLookup{verdict: domain.NewScanVerdict([]domain.ThreatMatch{{
		ThreatType:      "SOCIAL_ENGINEERING",
		PlatformType:    "ANY_PLATFORM",
		ThreatEntryType: "URL",
		Threat:          domain.ThreatEntry{URL: "https://example.com"},
	}})}
	r := newScanRouter(admitter, lookup)

	w := postScan(r, `{"url": "example.com"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body struct {
		Status       string `json:"status"`
		ThreatsFound int    `json:"threats_found"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "dangerous" || body.ThreatsFound != 1 {
		t.Errorf("verdict = %+v, want dangerous with 1 threat", body)
	}
}

func TestHandleScan_LookupTimeout(t *testing.T) {
	admitter := &stubAdmitter{result: admittedResult("user-1", 1, 10)}
	lookup := &stubLookup{err: scanner.ErrLookupTimeout}
	r := newScanRouter(admitter, lookup)

	w := postScan(r, `{"url": "example.com"}`)
	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", w.Code)
	}
}

func TestHandleScan_UpstreamError(t *testing.T) {
	admitter := &stubAdmitter{result: admittedResult("user-1", 1, 10)}
	lookup := &stubLookup{err: &scanner.UpstreamError{StatusCode: 503, Body: "unavailable"}}
	r := newScanRouter(admitter, lookup)

	w := postScan(r, `{"url": "example.com"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["upstream_status"] != float64(503) {
		t.Errorf("upstream_status = %v, want 503", body["upstream_status"])
	}
}
