package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	mockUsecase "passport/internal/mocks/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func activeAccount() *entity.Account {
	return &entity.Account{
		ID:     uuid.New(),
		Email:  "test@example.com",
		Role:   entity.RoleUser,
		Status: entity.StatusActive,
	}
}

func TestAuthMiddleware_Authenticate_Success(t *testing.T) {
	uc := mockUsecase.NewMockAccountUsecase(t)
	account := activeAccount()

	uc.EXPECT().ValidateSession(mock.Anything, "valid-token").Return(account, nil)

	m := NewAuthMiddleware(uc)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var nextCalled bool
	err := m.Authenticate(func(c echo.Context) error {
		nextCalled = true

		got, ok := Account(c)
		require.True(t, ok)
		assert.Equal(t, account.ID, got.ID)

		id, ok := AccountID(c)
		require.True(t, ok)
		assert.Equal(t, account.ID, id)

		return nil
	})(c)

	require.NoError(t, err)
	assert.True(t, nextCalled)
}

func TestAuthMiddleware_Authenticate_MissingHeader(t *testing.T) {
	uc := mockUsecase.NewMockAccountUsecase(t)
	m := NewAuthMiddleware(uc)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := m.Authenticate(func(c echo.Context) error { return nil })(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_Authenticate_MalformedHeader(t *testing.T) {
	uc := mockUsecase.NewMockAccountUsecase(t)
	m := NewAuthMiddleware(uc)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := m.Authenticate(func(c echo.Context) error { return nil })(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_Authenticate_InvalidToken(t *testing.T) {
	uc := mockUsecase.NewMockAccountUsecase(t)

	uc.EXPECT().
		ValidateSession(mock.Anything, "bad-token").
		Return(nil, domainerrors.ErrInvalidToken)

	m := NewAuthMiddleware(uc)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := m.Authenticate(func(c echo.Context) error { return nil })(c)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidToken))
}

func TestAuthMiddleware_RequireRole(t *testing.T) {
	uc := mockUsecase.NewMockAccountUsecase(t)
	m := NewAuthMiddleware(uc)

	e := echo.New()

	t.Run("matching role passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/profile/other@example.com", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		admin := activeAccount()
		admin.Role = entity.RoleAdmin
		c.Set(ContextKeyAccount, admin)

		var nextCalled bool
		err := m.RequireRole(entity.RoleAdmin)(func(c echo.Context) error {
			nextCalled = true

			return nil
		})(c)

		require.NoError(t, err)
		assert.True(t, nextCalled)
	})

	t.Run("wrong role forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/profile/other@example.com", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		c.Set(ContextKeyAccount, activeAccount())

		err := m.RequireRole(entity.RoleAdmin)(func(c echo.Context) error { return nil })(c)

		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing account forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/profile/other@example.com", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := m.RequireRole(entity.RoleAdmin)(func(c echo.Context) error { return nil })(c)

		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
