// Package identity resolves opaque bearer credentials into caller identities.
package identity

import (
	"context"
	"errors"

	"github.com/safelink/scan-gateway/internal/domain"
)

// Verification failure modes. All of them are terminal for the request and
// never retried.
var (
	// ErrTokenMalformed means the credential is not a parseable token.
	ErrTokenMalformed = errors.New("malformed credential")
	// ErrTokenExpired means the credential was valid but has expired.
	ErrTokenExpired = errors.New("credential has expired")
	// ErrTokenInvalid means the credential failed verification.
	ErrTokenInvalid = errors.New("invalid credential")
)

// Verifier resolves a bearer credential to an Identity.
// Implementations must return one of the package error values on failure.
type Verifier interface {
	Verify(ctx context.Context, credential string) (domain.Identity, error)
}
