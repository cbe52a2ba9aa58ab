// Package scanner looks URLs up against the Google Safe Browsing v4
// threatMatches API and maps the response into a normalized verdict.
package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/safelink/scan-gateway/internal/domain"
	"github.com/safelink/scan-gateway/internal/httpx"
	"github.com/safelink/scan-gateway/internal/logger"
)

// ErrLookupTimeout is returned when the reputation service does not answer
// within the configured deadline.
var ErrLookupTimeout = errors.New("threat lookup timed out")

// UpstreamError is a non-2xx reply from the reputation service.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("threat lookup failed with status %d: %s", e.StatusCode, e.Body)
}

// maxErrorBodyBytes bounds how much of an upstream error body is retained.
const maxErrorBodyBytes = 2048

// threatTypes are the lists every lookup is checked against.
var threatTypes = []string{
	"MALWARE",
	"SOCIAL_ENGINEERING",
	"UNWANTED_SOFTWARE",
	"POTENTIALLY_HARMFUL_APPLICATION",
}

type clientInfo struct {
	ClientID      string `json:"clientId"`
	ClientVersion string `json:"clientVersion"`
}

type threatInfo struct {
	ThreatTypes      []string             `json:"threatTypes"`
	PlatformTypes    []string             `json:"platformTypes"`
	ThreatEntryTypes []string             `json:"threatEntryTypes"`
	ThreatEntries    []domain.ThreatEntry `json:"threatEntries"`
}

type lookupRequest struct {
	Client     clientInfo `json:"client"`
	ThreatInfo threatInfo `json:"threatInfo"`
}

type lookupResponse struct {
	Matches []domain.ThreatMatch `json:"matches"`
}

// Config holds the reputation service connection settings.
type Config struct {
	APIKey        string
	BaseURL       string
	ClientID      string
	ClientVersion string
	Timeout       time.Duration
}

// Client calls the reputation service.
type Client struct {
	httpClient *http.Client
	cfg        Config
	logger     logger.Logger
}

// NewClient creates a reputation lookup client. The per-request timeout is
// enforced on the underlying HTTP client.
func NewClient(cfg Config, log logger.Logger) *Client {
	return &Client{
		httpClient: httpx.NewClient(&httpx.ClientConfig{Timeout: cfg.Timeout}),
		cfg:        cfg,
		logger:     log,
	}
}

// Lookup checks one normalized URL against the threat lists and returns the
// normalized verdict. Timeouts are reported as ErrLookupTimeout and non-2xx
// replies as *UpstreamError; both leave verdict handling to the caller.
func (c *Client) Lookup(ctx context.Context, normalizedURL string) (domain.ScanVerdict, error) {
	payload := lookupRequest{
		Client: clientInfo{
			ClientID:      c.cfg.ClientID,
			ClientVersion: c.cfg.ClientVersion,
		},
		ThreatInfo: threatInfo{
			ThreatTypes:      threatTypes,
			PlatformTypes:    []string{"ANY_PLATFORM"},
			ThreatEntryTypes: []string{"URL"},
			ThreatEntries:    []domain.ThreatEntry{{URL: normalizedURL}},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.ScanVerdict{}, fmt.Errorf("encode lookup request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return domain.ScanVerdict{}, fmt.Errorf("build lookup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.logger.Warn("Threat lookup timed out",
				logger.Duration("elapsed", time.Since(start)),
			)
			return domain.ScanVerdict{}, ErrLookupTimeout
		}
		return domain.ScanVerdict{}, fmt.Errorf("threat lookup request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		c.logger.Error("Threat lookup rejected by upstream",
			logger.Int("status", resp.StatusCode),
		)
		return domain.ScanVerdict{}, &UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       string(detail),
		}
	}

	var decoded lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.ScanVerdict{}, fmt.Errorf("decode lookup response: %w", err)
	}

	verdict := domain.NewScanVerdict(decoded.Matches)
	c.logger.Debug("Threat lookup completed",
		logger.String("status", string(verdict.Status)),
		logger.Int("matches", verdict.ThreatCount),
		logger.Duration("elapsed", time.Since(start)),
	)
	return verdict, nil
}

// endpoint appends the API key to the base URL.
func (c *Client) endpoint() string {
	return c.cfg.BaseURL + "?key=" + url.QueryEscape(c.cfg.APIKey)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue) && ue.Timeout()
}
