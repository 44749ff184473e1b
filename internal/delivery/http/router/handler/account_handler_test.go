package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"passport/internal/delivery/http/middleware"
	"passport/internal/delivery/http/validator"
	"passport/internal/domain/entity"
	mockUsecase "passport/internal/mocks/usecase"
	"passport/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type handlerFixtures struct {
	handler *AccountHandler
	uc      *mockUsecase.MockAccountUsecase
	echo    *echo.Echo
}

func createTestAccountHandler(t *testing.T) handlerFixtures {
	uc := mockUsecase.NewMockAccountUsecase(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	e := echo.New()
	e.Validator = validator.New()

	return handlerFixtures{
		handler: NewAccountHandler(uc, logger),
		uc:      uc,
		echo:    e,
	}
}

func sampleAccount() *entity.Account {
	return &entity.Account{
		ID:           uuid.New(),
		Email:        "test@example.com",
		Username:     "test1234",
		FirstName:    "Test",
		LastName:     "Account",
		Role:         entity.RoleUser,
		Status:       entity.StatusActive,
		ReferralCode: "ZZZZ9999",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

func TestAccountHandler_Register_Success(t *testing.T) {
	fx := createTestAccountHandler(t)

	account := sampleAccount()
	fx.uc.EXPECT().
		Register(mock.Anything, mock.AnythingOfType("*usecase.RegisterInput")).
		Return(&usecase.RegisterOutput{Account: account, AccessToken: "access-token"}, nil)

	body := `{"email":"test@example.com","password":"Password123!","first_name":"Test","last_name":"Account"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := fx.echo.NewContext(req, rec)

	err := fx.handler.Register(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"access_token":"access-token"`)
	assert.Contains(t, rec.Body.String(), `"email":"test@example.com"`)
	assert.NotContains(t, rec.Body.String(), "Password")
}

func TestAccountHandler_Register_MissingEmail(t *testing.T) {
	fx := createTestAccountHandler(t)

	body := `{"password":"Password123!","first_name":"Test","last_name":"Account"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := fx.echo.NewContext(req, rec)

	err := fx.handler.Register(c)

	require.Error(t, err)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestAccountHandler_Login_Success(t *testing.T) {
	fx := createTestAccountHandler(t)

	account := sampleAccount()
	fx.uc.EXPECT().
		Login(mock.Anything, mock.AnythingOfType("*usecase.LoginInput")).
		Return(&usecase.LoginOutput{AccessToken: "access-token", Account: account}, nil)

	body := `{"email":"test@example.com","password":"Password123!"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := fx.echo.NewContext(req, rec)

	err := fx.handler.Login(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope["success"])
	data := envelope["data"].(map[string]any)
	assert.Equal(t, "access-token", data["access_token"])
}

func TestAccountHandler_GetProfile_Success(t *testing.T) {
	fx := createTestAccountHandler(t)

	account := sampleAccount()
	fx.uc.EXPECT().GetProfile(mock.Anything, account.ID).Return(account, nil)

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	rec := httptest.NewRecorder()
	c := fx.echo.NewContext(req, rec)
	c.Set(middleware.ContextKeyAccountID, account.ID)

	err := fx.handler.GetProfile(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), account.ID.String())
	assert.Contains(t, rec.Body.String(), `"referral_code":"ZZZZ9999"`)
}

func TestAccountHandler_GetProfile_MissingContext(t *testing.T) {
	fx := createTestAccountHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	rec := httptest.NewRecorder()
	c := fx.echo.NewContext(req, rec)

	err := fx.handler.GetProfile(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAccountHandler_ChangePassword_Success(t *testing.T) {
	fx := createTestAccountHandler(t)

	accountID := uuid.New()
	fx.uc.EXPECT().
		ChangePassword(mock.Anything, accountID, mock.AnythingOfType("*usecase.ChangePasswordInput")).
		Return(nil)

	body := `{"current_password":"Old123!","new_password":"New456!"}`
	req := httptest.NewRequest(http.MethodPut, "/profile/password", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := fx.echo.NewContext(req, rec)
	c.Set(middleware.ContextKeyAccountID, accountID)

	err := fx.handler.ChangePassword(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAccountHandler_AddKYCDocument_Success(t *testing.T) {
	fx := createTestAccountHandler(t)

	accountID := uuid.New()
	fx.uc.EXPECT().
		AddKYCDocument(mock.Anything, accountID, mock.AnythingOfType("*usecase.AddKYCDocumentInput")).
		Run(func(ctx context.Context, id uuid.UUID, input *usecase.AddKYCDocumentInput) {
			assert.Equal(t, "ID_CARD", input.Type)
			assert.Equal(t, []byte("fake-image"), input.Data)
		}).
		Return(&usecase.AddKYCDocumentOutput{
			Document: entity.KYCDocument{Type: "ID_CARD", Location: "mem://documents/x.png"},
		}, nil)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("type", "ID_CARD"))
	part, err := writer.CreateFormFile("document", "id.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake-image"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/profile/kyc/documents", &buf)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	rec := httptest.NewRecorder()
	c := fx.echo.NewContext(req, rec)
	c.Set(middleware.ContextKeyAccountID, accountID)

	err = fx.handler.AddKYCDocument(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "mem://documents/x.png")
}

func TestAccountHandler_AddKYCDocument_MissingFile(t *testing.T) {
	fx := createTestAccountHandler(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("type", "ID_CARD"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/profile/kyc/documents", &buf)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	rec := httptest.NewRecorder()
	c := fx.echo.NewContext(req, rec)
	c.Set(middleware.ContextKeyAccountID, uuid.New())

	err := fx.handler.AddKYCDocument(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAccountHandler_ReferralQR_Success(t *testing.T) {
	fx := createTestAccountHandler(t)

	accountID := uuid.New()
	png := []byte{0x89, 0x50, 0x4E, 0x47}
	fx.uc.EXPECT().ReferralQR(mock.Anything, accountID).Return(png, nil)

	req := httptest.NewRequest(http.MethodGet, "/profile/referral-qr", nil)
	rec := httptest.NewRecorder()
	c := fx.echo.NewContext(req, rec)
	c.Set(middleware.ContextKeyAccountID, accountID)

	err := fx.handler.ReferralQR(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, png, rec.Body.Bytes())
}

func TestHealthCheck(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := HealthCheck(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
