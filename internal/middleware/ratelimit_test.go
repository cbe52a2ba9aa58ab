package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safelink/scan-gateway/internal/middleware"
)

const testRateLimit = 3

func newLimitedRouter(limit int, done chan struct{}) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RateLimiter(limit, time.Minute, done))
	r.POST("/scan", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func doScan(r *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/scan", http.NoBody)
	req.RemoteAddr = remoteAddr
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	done := make(chan struct{})
	defer close(done)

	r := newLimitedRouter(testRateLimit, done)

	w := doScan(r, "1.2.3.4:1234")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	done := make(chan struct{})
	defer close(done)

	r := newLimitedRouter(testRateLimit, done)

	for i := 0; i < testRateLimit; i++ {
		w := doScan(r, "1.2.3.4:1234")
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}

	// This should be rate limited
	w := doScan(r, "1.2.3.4:1234")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
}

func TestRateLimiter_DifferentIPsIndependent(t *testing.T) {
	done := make(chan struct{})
	defer close(done)

	r := newLimitedRouter(1, done)

	if w := doScan(r, "1.1.1.1:1234"); w.Code != http.StatusOK {
		t.Fatalf("IP1: expected 200, got %d", w.Code)
	}
	if w := doScan(r, "2.2.2.2:1234"); w.Code != http.StatusOK {
		t.Fatalf("IP2: expected 200, got %d", w.Code)
	}
	if w := doScan(r, "1.1.1.1:1234"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("IP1 second request: expected 429, got %d", w.Code)
	}
}
