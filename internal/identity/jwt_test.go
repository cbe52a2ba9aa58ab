package identity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/safelink/scan-gateway/internal/identity"
)

const testSecret = "test-secret-key-32-chars-minimum"

func signToken(t *testing.T, secret, subject string, expiresIn time.Duration, extra map[string]any) string {
	t.Helper()

	now := time.Now()
	cl := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(expiresIn).Unix(),
	}
	for k, v := range extra {
		cl[k] = v
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestJWTVerifier_Verify_Success(t *testing.T) {
	v := identity.NewJWTVerifier(testSecret)

	token := signToken(t, testSecret, "user-123", time.Hour, map[string]any{
		"email":          "user@example.com",
		"email_verified": true,
	})

	id, err := v.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if id.SubjectID != "user-123" {
		t.Errorf("SubjectID = %q, want user-123", id.SubjectID)
	}
	if id.Email != "user@example.com" {
		t.Errorf("Email = %q, want user@example.com", id.Email)
	}
	if !id.EmailVerified {
		t.Error("EmailVerified = false, want true")
	}
}

func TestJWTVerifier_Verify_Expired(t *testing.T) {
	v := identity.NewJWTVerifier(testSecret)

	token := signToken(t, testSecret, "user-123", -time.Hour, nil)

	_, err := v.Verify(context.Background(), token)
	if !errors.Is(err, identity.ErrTokenExpired) {
		t.Errorf("Verify() error = %v, want ErrTokenExpired", err)
	}
}

func TestJWTVerifier_Verify_Malformed(t *testing.T) {
	v := identity.NewJWTVerifier(testSecret)

	_, err := v.Verify(context.Background(), "not-a-token")
	if !errors.Is(err, identity.ErrTokenMalformed) {
		t.Errorf("Verify() error = %v, want ErrTokenMalformed", err)
	}
}

func TestJWTVerifier_Verify_WrongSecret(t *testing.T) {
	v := identity.NewJWTVerifier(testSecret)

	token := signToken(t, "some-other-secret-entirely-here", "user-123", time.Hour, nil)

	_, err := v.Verify(context.Background(), token)
	if !errors.Is(err, identity.ErrTokenInvalid) {
		t.Errorf("Verify() error = %v, want ErrTokenInvalid", err)
	}
}

func TestJWTVerifier_Verify_MissingSubject(t *testing.T) {
	v := identity.NewJWTVerifier(testSecret)

	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	_, verifyErr := v.Verify(context.Background(), token)
	if !errors.Is(verifyErr, identity.ErrTokenInvalid) {
		t.Errorf("Verify() error = %v, want ErrTokenInvalid", verifyErr)
	}
}
