package model

import (
	"time"

	"github.com/google/uuid"
)

// AccountModel mirrors the 'accounts' table. PostgreSQL generates UUIDs via uuid_generate_v7().
// Unique indexes carry explicit names so constraint violations can be mapped back to fields.
type AccountModel struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	Email               string     `gorm:"type:varchar(255);not null;uniqueIndex:uq_accounts_email"`
	Username            string     `gorm:"type:varchar(100);not null;uniqueIndex:uq_accounts_username"`
	// Phone is nullable; uq_accounts_phone only constrains accounts that have one.
	Phone               *string    `gorm:"type:varchar(50);uniqueIndex:uq_accounts_phone"`
	FirstName           string     `gorm:"type:varchar(100)"`
	LastName            string     `gorm:"type:varchar(100)"`
	MiddleName          string     `gorm:"type:varchar(100)"`
	PasswordHash        string     `gorm:"type:varchar(255);not null"`
	PasswordChangedAt   time.Time  `gorm:"not null"`
	TwoFactorEnabled    bool       `gorm:"not null;default:false"`
	TwoFactorSecret     string     `gorm:"type:varchar(255)"`
	FailedLoginAttempts int        `gorm:"not null;default:0"`
	AccountLockedUntil  *time.Time
	Role                string     `gorm:"type:varchar(20);not null;default:'user'"`
	Status              string     `gorm:"type:varchar(20);not null;default:'active'"`
	LastLogin           *time.Time
	LastLoginIP         string     `gorm:"type:varchar(45)"`
	ReferralCode        string     `gorm:"type:varchar(16);uniqueIndex:uq_accounts_referral_code"`
	ReferredBy          *uuid.UUID `gorm:"type:uuid"`
	CreatedBy           *uuid.UUID `gorm:"type:uuid"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
	DeletedAt           *time.Time `gorm:"index"`

	Wallets      []WalletModel      `gorm:"foreignKey:AccountID"`
	KYCProfile   *KYCProfileModel   `gorm:"foreignKey:AccountID"`
	KYCDocuments []KYCDocumentModel `gorm:"foreignKey:AccountID"`
}

// TableName explicitly sets the table name for GORM.
func (AccountModel) TableName() string {
	return "accounts"
}

// WalletModel mirrors the 'wallets' table. Each account holds at most one wallet per currency.
type WalletModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_wallets_account_currency"`
	Currency  string    `gorm:"type:varchar(10);not null;uniqueIndex:uq_wallets_account_currency"`
	Balance   float64   `gorm:"type:numeric(20,8);not null;default:0"`
	Reserved  float64   `gorm:"type:numeric(20,8);not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName explicitly sets the table name for GORM.
func (WalletModel) TableName() string {
	return "wallets"
}

// KYCProfileModel mirrors the 'kyc_profiles' table. AccountID references accounts.id (UUID).
// GovernmentIDNumber stores only the bcrypt hash of the id number.
type KYCProfileModel struct {
	AccountID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	FullName           string     `gorm:"type:varchar(255)"`
	DateOfBirth        *time.Time
	Address            string     `gorm:"type:text"`
	GovernmentIDType   string     `gorm:"type:varchar(50)"`
	GovernmentIDNumber string     `gorm:"type:varchar(255)"`
	VerificationStatus string     `gorm:"type:varchar(20);not null;default:'pending'"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TableName explicitly sets the table name for GORM.
func (KYCProfileModel) TableName() string {
	return "kyc_profiles"
}

// KYCDocumentModel mirrors the 'kyc_documents' table. Location points at blob storage.
type KYCDocumentModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	AccountID uuid.UUID `gorm:"type:uuid;not null"`
	Type      string    `gorm:"type:varchar(50);not null"`
	Location  string    `gorm:"type:varchar(512);not null"`
	Verified  bool      `gorm:"not null;default:false"`
	CreatedAt time.Time
}

// TableName explicitly sets the table name for GORM.
func (KYCDocumentModel) TableName() string {
	return "kyc_documents"
}
