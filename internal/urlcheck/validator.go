// Package urlcheck validates and normalizes URLs before they are allowed to
// reach the billable reputation lookup. Malformed input is a typed outcome,
// never a panic: every rejection carries a stable machine-readable reason.
package urlcheck

import (
	"fmt"
	"net/netip"
	"net/url"
	"regexp"
	"strings"
)

// MaxURLLength is the longest URL accepted, checked before and after
// normalization.
const MaxURLLength = 2048

// Reason is a stable machine-readable rejection code.
type Reason string

const (
	ReasonEmptyURL          Reason = "EMPTY_URL"
	ReasonTooLong           Reason = "TOO_LONG"
	ReasonContainsSpace     Reason = "CONTAINS_SPACE"
	ReasonInvalidFormat     Reason = "INVALID_FORMAT"
	ReasonInvalidScheme     Reason = "INVALID_SCHEME"
	ReasonPrivateAddress    Reason = "PRIVATE_ADDRESS"
	ReasonDangerousPattern  Reason = "DANGEROUS_PATTERN"
	ReasonSuspiciousPattern Reason = "SUSPICIOUS_PATTERN"
)

// RejectionError describes why a URL was refused.
type RejectionError struct {
	Reason  Reason
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func reject(reason Reason, message string) error {
	return &RejectionError{Reason: reason, Message: message}
}

// blockedPrefixes is the fixed pre-filter for internal and private targets.
// It runs against both the raw input and the parsed host, independent of
// literal IP parsing.
var blockedPrefixes = []string{
	"chrome://",
	"chrome-extension://",
	"file://",
	"localhost",
	"127.0.0.1",
	"192.168.",
	"10.",
	"172.16.",
	"::1",
}

// markupTagPattern matches embedded HTML/XML tags anywhere in the URL.
var markupTagPattern = regexp.MustCompile(`<.*?>`)

// suspiciousSuffixes are file extensions commonly used to deliver payloads.
var suspiciousSuffixes = []string{".exe", ".dll", ".php", ".asp", ".jsp"}

// Validate applies the layered rule set in order, short-circuiting on the
// first failure, and returns the normalized URL on success. The scheme
// https:// is prepended to scheme-less input; everything else is a rejection,
// reported as a *RejectionError.
//
// The prefix blocklist and the pattern rules are plain string checks and run
// before parsing, so a URL the parser would choke on (for example a
// javascript: pseudo-scheme hidden behind the prepended https://) is still
// reported with its real reason rather than as a generic format error.
func Validate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", reject(ReasonEmptyURL, "URL must be a non-empty string")
	}
	if len(raw) > MaxURLLength {
		return "", reject(ReasonTooLong, fmt.Sprintf("URL is too long (maximum %d characters)", MaxURLLength))
	}
	if strings.Contains(raw, " ") {
		return "", reject(ReasonContainsSpace, "URL cannot contain spaces")
	}
	if err := checkBlockedPrefix(raw); err != nil {
		return "", err
	}

	// Permissive normalization, not a rejection.
	withScheme := raw
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		withScheme = "https://" + raw
	}

	if err := checkDangerousPatterns(withScheme); err != nil {
		return "", err
	}
	if err := checkSuspiciousPatterns(withScheme); err != nil {
		return "", err
	}

	u, err := url.Parse(withScheme)
	if err != nil {
		return "", reject(ReasonInvalidFormat, "invalid URL format")
	}
	if u.Scheme == "" || u.Host == "" {
		return "", reject(ReasonInvalidFormat, "invalid URL format")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", reject(ReasonInvalidScheme, "URL must use HTTP or HTTPS protocol")
	}

	if err := checkPrivateHost(u.Hostname()); err != nil {
		return "", err
	}

	normalized := u.String()
	if len(normalized) > MaxURLLength {
		return "", reject(ReasonTooLong, fmt.Sprintf("URL is too long (maximum %d characters)", MaxURLLength))
	}
	return normalized, nil
}

// checkBlockedPrefix is the cheap pre-filter over the raw input, independent
// of URL parsing.
func checkBlockedPrefix(raw string) error {
	lower := strings.ToLower(raw)
	for _, prefix := range blockedPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return reject(ReasonPrivateAddress, "cannot scan internal/private URLs")
		}
	}
	return nil
}

// checkPrivateHost rejects private, loopback, and link-local literal IP
// hosts, plus hosts matching the prefix blocklist (so http://localhost/...
// is caught even though the raw input starts with the scheme).
func checkPrivateHost(host string) error {
	lower := strings.ToLower(host)
	for _, prefix := range blockedPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return reject(ReasonPrivateAddress, "cannot scan internal/private URLs")
		}
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() {
			return reject(ReasonPrivateAddress, "cannot scan private/local IP addresses")
		}
	}
	return nil
}

// checkDangerousPatterns rejects traversal sequences, backslashes, embedded
// markup, and javascript:/data: pseudo-schemes.
func checkDangerousPatterns(u string) error {
	lower := strings.ToLower(u)
	switch {
	case strings.Contains(u, ".."):
		return reject(ReasonDangerousPattern, "URL contains a directory traversal sequence")
	case strings.Contains(u, `\`):
		return reject(ReasonDangerousPattern, "URL contains backslashes")
	case markupTagPattern.MatchString(u):
		return reject(ReasonDangerousPattern, "URL contains embedded markup")
	case strings.Contains(lower, "javascript:"):
		return reject(ReasonDangerousPattern, "URL contains a javascript: pseudo-scheme")
	case strings.Contains(lower, "data:"):
		return reject(ReasonDangerousPattern, "URL contains a data: pseudo-scheme")
	}
	return nil
}

// checkSuspiciousPatterns rejects structural anomalies (a second '@' or '//')
// and payload-style file extensions.
func checkSuspiciousPatterns(u string) error {
	lower := strings.ToLower(u)
	if strings.Count(u, "@") > 1 {
		return reject(ReasonSuspiciousPattern, "URL contains multiple @ symbols")
	}
	if strings.Count(u, "//") > 1 {
		return reject(ReasonSuspiciousPattern, "URL contains repeated slashes")
	}
	for _, suffix := range suspiciousSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return reject(ReasonSuspiciousPattern, fmt.Sprintf("URL points at a %s file", suffix))
		}
	}
	return nil
}
