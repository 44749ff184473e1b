// Package handler contains the HTTP handlers for the application.
package handler

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"passport/internal/delivery/http/middleware"
	"passport/internal/delivery/http/response"
	"passport/internal/domain/entity"
	"passport/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// AccountHandler holds dependencies for account-related handlers.
type AccountHandler struct {
	uc     usecase.AccountUsecase
	logger *slog.Logger
}

// NewAccountHandler is the constructor for AccountHandler, injected by Fx.
func NewAccountHandler(uc usecase.AccountUsecase, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		uc:     uc,
		logger: logger,
	}
}

// registerRequest is the payload for the registration endpoint.
type registerRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required"`
	Username     string `json:"username"`
	Phone        string `json:"phone"`
	FirstName    string `json:"first_name" validate:"required"`
	LastName     string `json:"last_name" validate:"required"`
	MiddleName   string `json:"middle_name"`
	ReferralCode string `json:"referral_code"`
}

// loginRequest is the payload for the login endpoint.
type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// updateProfileRequest carries optional profile changes; absent fields stay untouched.
type updateProfileRequest struct {
	Username   *string `json:"username"`
	Phone      *string `json:"phone"`
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	MiddleName *string `json:"middle_name"`

	FullName           *string    `json:"full_name"`
	DateOfBirth        *time.Time `json:"date_of_birth"`
	Address            *string    `json:"address"`
	GovernmentIDType   *string    `json:"government_id_type"`
	GovernmentIDNumber *string    `json:"government_id_number"`
}

// changePasswordRequest is the payload for the password change endpoint.
type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// kycView is the outward shape of the identity-verification sub-record.
// The government ID number never leaves the service, hashed or not.
type kycView struct {
	FullName           string            `json:"full_name,omitempty"`
	DateOfBirth        *time.Time        `json:"date_of_birth,omitempty"`
	Address            string            `json:"address,omitempty"`
	GovernmentIDType   string            `json:"government_id_type,omitempty"`
	VerificationStatus string            `json:"verification_status"`
	Documents          []kycDocumentView `json:"documents,omitempty"`
}

type kycDocumentView struct {
	Type     string `json:"type"`
	Location string `json:"location"`
	Verified bool   `json:"verified"`
}

type walletView struct {
	Currency string  `json:"currency"`
	Balance  float64 `json:"balance"`
	Reserved float64 `json:"reserved"`
}

// accountView is the outward shape of an account.
type accountView struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	Username     string       `json:"username"`
	Phone        string       `json:"phone,omitempty"`
	FirstName    string       `json:"first_name"`
	LastName     string       `json:"last_name"`
	MiddleName   string       `json:"middle_name,omitempty"`
	Role         string       `json:"role"`
	Status       string       `json:"status"`
	Wallets      []walletView `json:"wallets,omitempty"`
	KYC          *kycView     `json:"kyc,omitempty"`
	ReferralCode string       `json:"referral_code,omitempty"`
	ReferredBy   string       `json:"referred_by,omitempty"`
	LastLogin    *time.Time   `json:"last_login,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func newAccountView(account *entity.Account) *accountView {
	view := &accountView{
		ID:           account.ID.String(),
		Email:        account.Email,
		Username:     account.Username,
		Phone:        account.Phone,
		FirstName:    account.FirstName,
		LastName:     account.LastName,
		MiddleName:   account.MiddleName,
		Role:         account.Role.String(),
		Status:       account.Status.String(),
		ReferralCode: account.ReferralCode,
		LastLogin:    account.LastLogin,
		CreatedAt:    account.CreatedAt,
		UpdatedAt:    account.UpdatedAt,
	}

	if account.ReferredBy != nil {
		view.ReferredBy = account.ReferredBy.String()
	}

	for _, wallet := range account.Wallets {
		view.Wallets = append(view.Wallets, walletView{
			Currency: wallet.Currency,
			Balance:  wallet.Balance,
			Reserved: wallet.Reserved,
		})
	}

	if account.KYC != nil {
		kyc := &kycView{
			FullName:           account.KYC.FullName,
			DateOfBirth:        account.KYC.DateOfBirth,
			Address:            account.KYC.Address,
			GovernmentIDType:   account.KYC.GovernmentIDType,
			VerificationStatus: account.KYC.VerificationStatus.String(),
		}
		for _, doc := range account.KYC.Documents {
			kyc.Documents = append(kyc.Documents, kycDocumentView{
				Type:     doc.Type,
				Location: doc.Location,
				Verified: doc.Verified,
			})
		}
		view.KYC = kyc
	}

	return view
}

// Register handles the account registration request.
func (h *AccountHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid registration input")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	output, err := h.uc.Register(c.Request().Context(), &usecase.RegisterInput{
		Email:        req.Email,
		Password:     req.Password,
		Username:     req.Username,
		Phone:        req.Phone,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		MiddleName:   req.MiddleName,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, map[string]any{
		"account":      newAccountView(output.Account),
		"access_token": output.AccessToken,
	}, "Account registered successfully")
}

// Login handles the login request.
func (h *AccountHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid login input")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	output, err := h.uc.Login(c.Request().Context(), &usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		ClientIP: c.RealIP(),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]any{
		"account":      newAccountView(output.Account),
		"access_token": output.AccessToken,
	}, "Login successful")
}

// GetProfile returns the authenticated account's profile.
func (h *AccountHandler) GetProfile(c echo.Context) error {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		return response.Unauthorized(c, "INVALID_TOKEN", "Missing account in context")
	}

	account, err := h.uc.GetProfile(c.Request().Context(), accountID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newAccountView(account), "Profile retrieved successfully")
}

// GetProfileByEmail returns another account's profile, looked up by email.
func (h *AccountHandler) GetProfileByEmail(c echo.Context) error {
	email := c.Param("email")
	if email == "" {
		return response.BadRequest(c, "VALIDATION_FAILED", "Email is required")
	}

	account, err := h.uc.GetProfileByEmail(c.Request().Context(), email)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newAccountView(account), "Profile retrieved successfully")
}

// UpdateProfile applies partial profile changes to the authenticated account.
func (h *AccountHandler) UpdateProfile(c echo.Context) error {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		return response.Unauthorized(c, "INVALID_TOKEN", "Missing account in context")
	}

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid profile input")
	}

	account, err := h.uc.UpdateProfile(c.Request().Context(), accountID, &usecase.UpdateProfileInput{
		Username:           req.Username,
		Phone:              req.Phone,
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		MiddleName:         req.MiddleName,
		FullName:           req.FullName,
		DateOfBirth:        req.DateOfBirth,
		Address:            req.Address,
		GovernmentIDType:   req.GovernmentIDType,
		GovernmentIDNumber: req.GovernmentIDNumber,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newAccountView(account), "Profile updated successfully")
}

// ChangePassword rotates the authenticated account's password.
func (h *AccountHandler) ChangePassword(c echo.Context) error {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		return response.Unauthorized(c, "INVALID_TOKEN", "Missing account in context")
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid password input")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	err := h.uc.ChangePassword(c.Request().Context(), accountID, &usecase.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Password changed"}, "Password changed successfully")
}

// AddKYCDocument accepts a multipart document upload for identity verification.
func (h *AccountHandler) AddKYCDocument(c echo.Context) error {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		return response.Unauthorized(c, "INVALID_TOKEN", "Missing account in context")
	}

	docType := c.FormValue("type")
	fileHeader, err := c.FormFile("document")
	if err != nil {
		return response.BadRequest(c, "VALIDATION_FAILED", "Document file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return errors.WithStack(err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return errors.WithStack(err)
	}

	output, err := h.uc.AddKYCDocument(c.Request().Context(), accountID, &usecase.AddKYCDocumentInput{
		Type:        docType,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, kycDocumentView{
		Type:     output.Document.Type,
		Location: output.Document.Location,
		Verified: output.Document.Verified,
	}, "Document uploaded successfully")
}

// ReferralQR renders the authenticated account's referral code as a PNG QR code.
func (h *AccountHandler) ReferralQR(c echo.Context) error {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		return response.Unauthorized(c, "INVALID_TOKEN", "Missing account in context")
	}

	png, err := h.uc.ReferralQR(c.Request().Context(), accountID)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.Blob(http.StatusOK, "image/png", png)
}

// HealthCheck is a simple handler to check if the service is up.
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"}, "Service is healthy")
}
