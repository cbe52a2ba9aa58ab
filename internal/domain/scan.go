// Package domain holds the core types passed between the admission pipeline,
// the quota store, and the threat lookup client.
package domain

import "time"

// Identity is the authenticated caller, as resolved from a bearer credential.
// It is immutable for the lifetime of a request and never persisted.
type Identity struct {
	SubjectID     string `json:"subject_id"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

// QuotaResetWindow is the fixed window after which a day bucket expires.
const QuotaResetWindow = 24 * time.Hour

// QuotaState is a snapshot of one subject's usage for the current UTC day.
type QuotaState struct {
	Count int `json:"scans_today"`
	Limit int `json:"daily_limit"`
}

// Remaining returns the number of scans left today, never negative.
func (s QuotaState) Remaining() int {
	if s.Count >= s.Limit {
		return 0
	}
	return s.Limit - s.Count
}

// PercentageUsed returns how much of the daily limit has been consumed.
func (s QuotaState) PercentageUsed() float64 {
	if s.Limit <= 0 {
		return 0
	}
	return float64(s.Count) / float64(s.Limit) * 100
}

// ValidatedRequest is a scan request that has passed authentication, quota
// check, and URL validation. Only the threat lookup client consumes it.
type ValidatedRequest struct {
	NormalizedURL string    `json:"url"`
	SubjectID     string    `json:"subject_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// VerdictStatus classifies a scanned URL.
type VerdictStatus string

const (
	// VerdictSafe means the reputation service returned no matches.
	VerdictSafe VerdictStatus = "safe"
	// VerdictDangerous means at least one threat list matched.
	VerdictDangerous VerdictStatus = "dangerous"
)

// ThreatEntry is the URL a threat match refers to.
type ThreatEntry struct {
	URL string `json:"url"`
}

// ThreatMatch is a single match record from the reputation service,
// preserved in the upstream wire shape.
type ThreatMatch struct {
	ThreatType      string      `json:"threatType"`
	PlatformType    string      `json:"platformType"`
	ThreatEntryType string      `json:"threatEntryType"`
	Threat          ThreatEntry `json:"threat"`
	CacheDuration   string      `json:"cacheDuration,omitempty"`
}

// ScanVerdict is the normalized result of a threat lookup.
// ThreatCount always equals len(Matches), and the status is dangerous
// exactly when the match list is non-empty.
type ScanVerdict struct {
	Status      VerdictStatus `json:"status"`
	Matches     []ThreatMatch `json:"matches"`
	ThreatCount int           `json:"threats_found"`
}

// NewScanVerdict builds a ScanVerdict from a match list, enforcing the
// status/count invariants. A nil list is normalized to an empty one.
func NewScanVerdict(matches []ThreatMatch) ScanVerdict {
	if matches == nil {
		matches = []ThreatMatch{}
	}
	status := VerdictSafe
	if len(matches) > 0 {
		status = VerdictDangerous
	}
	return ScanVerdict{
		Status:      status,
		Matches:     matches,
		ThreatCount: len(matches),
	}
}
