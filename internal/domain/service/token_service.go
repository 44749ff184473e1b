package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims defines the custom claims carried by access tokens.
// PasswordVersion mirrors the account's PasswordChangedAt (unix seconds);
// protected routes compare it against the account so outstanding tokens die
// when the password changes.
type Claims struct {
	AccountID       uuid.UUID
	PasswordVersion int64
	jwt.RegisteredClaims
}

// TokenService defines the interface for issuing and verifying bearer tokens.
// This abstracts the details of token creation from the use cases.
type TokenService interface {
	// Issue creates a signed, time-limited token bound to an account.
	Issue(accountID uuid.UUID, passwordVersion int64) (string, error)

	// Verify decodes a token string and validates its signature and expiry.
	Verify(tokenString string) (*Claims, error)

	// AccessTokenTTL returns the configured token lifetime.
	AccessTokenTTL() time.Duration
}
