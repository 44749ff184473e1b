package entity

import (
	"time"

	"github.com/google/uuid"
)

// Wallet is a per-currency balance container owned by an account.
// Balances are stored here but never mutated by the account core.
type Wallet struct {
	ID       uuid.UUID // Storage row identity; zero for a wallet not yet persisted.
	Currency string    // ISO-ish currency code, always uppercase, e.g. 'NGN', 'USD', 'BTC'.
	Balance  float64   // Available amount.
	Reserved float64   // Amount locked for pending transactions.
}

// Account is the central entity of the system: a person's identity,
// credentials and profile record.
//
// The Password field holds a bcrypt hash at rest. A raw value only exists
// between SetPassword and PrepareForWrite; the modified-flags guarantee the
// pipeline hashes exactly the writes that changed the raw value, so repeated
// saves never re-hash an existing hash.
type Account struct {
	ID         uuid.UUID // The Global Unique Identifier (GUID) for the account.
	Email      string    // Primary contact email, unique, stored lowercase.
	Username   string    // Unique handle; derived from the email when absent.
	Phone      string    // Optional phone number, unique when present.
	FirstName  string    // Given name, required.
	LastName   string    // Family name, required.
	MiddleName string    // Optional middle name.

	Password string // One-way hash of the account password.

	// Security state. Two-factor fields are stored but not enforced here.
	TwoFactorEnabled    bool
	TwoFactorSecret     string
	FailedLoginAttempts int
	AccountLockedUntil  *time.Time

	Role    Role     // Defaults to RoleUser.
	Wallets []Wallet // Defaults to empty; never mutated by this service.
	KYC     *KYC     // Optional identity-verification sub-record.
	Status  Status   // Defaults to StatusActive.

	LastLogin   *time.Time // Timestamp of the last successful login.
	LastLoginIP string     // Source address of the last successful login.

	ReferralCode string     // Unique short code for referred-signup attribution.
	ReferredBy   *uuid.UUID // Account that referred this one, if any.
	CreatedBy    *uuid.UUID // Creating account for admin-provisioned accounts.

	PasswordChangedAt time.Time // Bumped whenever a new password hash is written.
	CreatedAt         time.Time // Timestamp of when this account was created.
	UpdatedAt         time.Time // Timestamp of the last modification.

	passwordChanged     bool
	governmentIDChanged bool
}

// SetPassword stages a new raw password. The hash is produced by the
// prepare-for-write pipeline, never here.
func (a *Account) SetPassword(raw string) {
	a.Password = raw
	a.passwordChanged = true
}

// PasswordModified reports whether a raw password is staged and not yet hashed.
func (a *Account) PasswordModified() bool {
	return a.passwordChanged
}

// SetGovernmentIDNumber stages a new raw government ID number on the KYC
// sub-record, creating the sub-record when absent.
func (a *Account) SetGovernmentIDNumber(raw string) {
	if a.KYC == nil {
		a.KYC = &KYC{VerificationStatus: KYCStatusPending}
	}
	a.KYC.GovernmentIDNumber = raw
	a.governmentIDChanged = true
}

// GovernmentIDModified reports whether a raw government ID number is staged.
func (a *Account) GovernmentIDModified() bool {
	return a.governmentIDChanged
}

// Sanitized returns a copy safe to hand to delivery layers: the password hash
// and the two-factor secret are blanked.
func (a *Account) Sanitized() *Account {
	clean := *a
	clean.Password = ""
	clean.TwoFactorSecret = ""
	clean.passwordChanged = false
	clean.governmentIDChanged = false

	return &clean
}

// Locked reports whether the account is under a login lockout at the given time.
func (a *Account) Locked(now time.Time) bool {
	return a.AccountLockedUntil != nil && now.Before(*a.AccountLockedUntil)
}
