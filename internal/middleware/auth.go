package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/safelink/scan-gateway/internal/domain"
	"github.com/safelink/scan-gateway/internal/identity"
)

// IdentityKey is the context key under which the authenticated identity is
// stored.
const IdentityKey = "identity"

// bearerPrefix is the expected Authorization scheme.
const bearerPrefix = "Bearer "

// BearerToken extracts the bearer credential from the Authorization header.
// Returns an empty string when the header is absent or not a bearer scheme.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

// Auth verifies the bearer credential and stores the resolved identity in the
// request context. Routes behind it can assume IdentityFrom succeeds.
func Auth(verifier identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Authentication required",
				"code":    "UNAUTHENTICATED",
				"message": "Missing or malformed Authorization header",
			})
			return
		}

		id, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Authentication required",
				"code":    "UNAUTHENTICATED",
				"message": "Invalid authentication credentials",
			})
			return
		}

		c.Set(IdentityKey, id)
		c.Next()
	}
}

// IdentityFrom returns the identity stored by Auth.
func IdentityFrom(c *gin.Context) (domain.Identity, bool) {
	val, ok := c.Get(IdentityKey)
	if !ok {
		return domain.Identity{}, false
	}
	id, ok := val.(domain.Identity)
	return id, ok
}
