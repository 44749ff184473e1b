// Package service defines interfaces for core, stateless domain logic.
// These services encapsulate business rules that don't naturally fit within a single entity.
package service

// PasswordHasher defines the interface for credential hashing and verification.
// This abstracts the underlying hashing algorithm (e.g., bcrypt), keeping the
// domain pure. The same hasher covers the account password and the KYC
// government-ID number; Check is the only path that can confirm a match,
// there is no decrypt.
type PasswordHasher interface {
	// Hash validates the raw password against the strength policy and
	// generates a salted hash from it.
	Hash(raw string) (string, error)

	// HashSensitive generates a salted hash without applying the password
	// strength policy. Used for non-password secrets such as government IDs.
	HashSensitive(raw string) (string, error)

	// Check compares a raw secret with a hash to see if they match.
	Check(raw, hash string) bool

	// ValidatePasswordStrength checks a candidate password against the
	// configured strength policy.
	ValidatePasswordStrength(password string) error
}
