// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"
	"time"

	"passport/internal/domain/entity"

	"github.com/google/uuid"
)

// --- Input DTOs ---

// RegisterInput defines the data required to register a new account.
type RegisterInput struct {
	Email      string
	Password   string
	Username   string
	Phone      string
	FirstName  string
	LastName   string
	MiddleName string
	// ReferralCode optionally links the new account to its referrer.
	ReferralCode string
}

// LoginInput defines the data required to log in.
type LoginInput struct {
	Email    string
	Password string
	// ClientIP is recorded on the account after a successful login.
	ClientIP string
}

// UpdateProfileInput defines the mutable profile fields. Nil pointers leave the field unchanged.
type UpdateProfileInput struct {
	Username   *string
	Phone      *string
	FirstName  *string
	LastName   *string
	MiddleName *string

	// KYC fields
	FullName           *string
	DateOfBirth        *time.Time
	Address            *string
	GovernmentIDType   *string
	GovernmentIDNumber *string
}

// ChangePasswordInput defines the data required to change the account password.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
}

// AddKYCDocumentInput defines an identity document upload.
type AddKYCDocumentInput struct {
	Type        string
	ContentType string
	Data        []byte
}

// --- Output DTOs ---

// RegisterOutput returns the newly created account and its first access token.
type RegisterOutput struct {
	Account     *entity.Account
	AccessToken string
}

// LoginOutput returns the access token after a successful login.
type LoginOutput struct {
	AccessToken string
	Account     *entity.Account
}

// AddKYCDocumentOutput returns the stored document metadata.
type AddKYCDocumentOutput struct {
	Document entity.KYCDocument
}

// AccountUsecase defines the interface for account-related business operations.
// This is the contract that the delivery layer (e.g., HTTP handlers) will depend on.
type AccountUsecase interface {
	Register(ctx context.Context, input *RegisterInput) (*RegisterOutput, error)
	Login(ctx context.Context, input *LoginInput) (*LoginOutput, error)

	GetProfile(ctx context.Context, accountID uuid.UUID) (*entity.Account, error)
	GetProfileByEmail(ctx context.Context, email string) (*entity.Account, error)
	UpdateProfile(ctx context.Context, accountID uuid.UUID, input *UpdateProfileInput) (*entity.Account, error)
	ChangePassword(ctx context.Context, accountID uuid.UUID, input *ChangePasswordInput) error

	AddKYCDocument(ctx context.Context, accountID uuid.UUID, input *AddKYCDocumentInput) (*AddKYCDocumentOutput, error)
	ReferralQR(ctx context.Context, accountID uuid.UUID) ([]byte, error)

	// ValidateSession verifies an access token and returns the account it belongs to.
	// Tokens issued before the latest password change are rejected.
	ValidateSession(ctx context.Context, token string) (*entity.Account, error)
}
