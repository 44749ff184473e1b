package entity

import (
	"time"

	"github.com/google/uuid"
)

// KYCStatus represents the verification state of a KYC sub-record.
type KYCStatus string

const (
	// KYCStatusPending indicates the record awaits review.
	KYCStatusPending KYCStatus = "pending"
	// KYCStatusVerified indicates the record passed review.
	KYCStatusVerified KYCStatus = "verified"
	// KYCStatusRejected indicates the record failed review.
	KYCStatusRejected KYCStatus = "rejected"
)

// String returns the string representation of the KYCStatus.
func (s KYCStatus) String() string {
	return string(s)
}

// IsValid checks if the KYCStatus is a valid value.
func (s KYCStatus) IsValid() bool {
	switch s {
	case KYCStatusPending, KYCStatusVerified, KYCStatusRejected:
		return true
	default:
		return false
	}
}

// KYC is the optional identity-verification sub-record attached to an account.
// GovernmentIDNumber is stored hashed; the raw value only exists between
// SetGovernmentIDNumber and the account's prepare-for-write pipeline.
type KYC struct {
	FullName           string       // Full legal name as it appears on the document.
	DateOfBirth        *time.Time   // Date of birth, nil when not supplied yet.
	Address            string       // Residential address.
	GovernmentIDType   string       // Document kind, e.g. 'NIN', 'BVN', 'Passport'.
	GovernmentIDNumber string       // One-way hash of the government ID number.
	VerificationStatus KYCStatus    // Review state, defaults to pending.
	Documents          []KYCDocument // Supporting evidence files.
}

// KYCDocument is a single piece of supporting evidence for a KYC record.
// ID carries the storage row identity across load-modify-save cycles; a saved
// account keeps its existing document rows instead of inserting them again.
type KYCDocument struct {
	ID       uuid.UUID // Storage row identity; zero for a document not yet persisted.
	Type     string    // Document category, e.g. 'ID_CARD', 'UTILITY_BILL'.
	Location string    // Where the file bytes live (blob URL or path).
	Verified bool      // Whether a reviewer confirmed this document.
}
