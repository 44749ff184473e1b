// Package middleware contains echo middleware specific to the HTTP delivery.
package middleware

import (
	"strings"

	"passport/internal/delivery/http/response"
	"passport/internal/domain/entity"
	"passport/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Context keys set by Authenticate for downstream handlers.
const (
	ContextKeyAccount   = "account"
	ContextKeyAccountID = "accountID"
)

// AuthMiddleware provides middleware for bearer token authentication and authorization.
type AuthMiddleware struct {
	uc usecase.AccountUsecase
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(uc usecase.AccountUsecase) *AuthMiddleware {
	return &AuthMiddleware{uc: uc}
}

// Authenticate validates the bearer token against the live account record, so
// tokens minted before a password change or account suspension are rejected.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return response.Unauthorized(c, "INVALID_TOKEN", "Authorization header is missing")
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return response.Unauthorized(c, "INVALID_TOKEN", "Invalid token format, must be Bearer token")
		}

		account, err := m.uc.ValidateSession(c.Request().Context(), tokenString)
		if err != nil {
			return err
		}

		c.Set(ContextKeyAccountID, account.ID)
		c.Set(ContextKeyAccount, account)

		return next(c)
	}
}

// RequireRole is a middleware factory that checks if the account has a specific role.
// It must be used AFTER the Authenticate middleware.
func (m *AuthMiddleware) RequireRole(requiredRole entity.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			account, ok := c.Get(ContextKeyAccount).(*entity.Account)
			if !ok {
				return response.Forbidden(c, "FORBIDDEN", "Permission denied: account information missing")
			}

			if account.Role != requiredRole {
				return response.Forbidden(c, "FORBIDDEN", "Permission denied: require '"+requiredRole.String()+"' role")
			}

			return next(c)
		}
	}
}

// AccountID extracts the authenticated account ID set by Authenticate.
func AccountID(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Get(ContextKeyAccountID).(uuid.UUID)

	return id, ok
}

// Account extracts the authenticated account set by Authenticate.
func Account(c echo.Context) (*entity.Account, bool) {
	account, ok := c.Get(ContextKeyAccount).(*entity.Account)

	return account, ok
}
