// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"passport/config"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/domain/service"
)

// Passwords containing any of these substrings are rejected regardless of
// their character composition.
var defaultForbiddenWords = []string{"password", "admin", "123456", "qwerty", "letmein"}

// bcryptHasher is a concrete implementation of the PasswordHasher interface using bcrypt.
type bcryptHasher struct {
	cost   int
	policy config.PasswordStrengthConfig
}

// defaultStrengthPolicy caps length at bcrypt's 72-byte input limit and
// nothing else. Composition rules only apply when an operator configures
// them through config.PasswordStrength.
func defaultStrengthPolicy() config.PasswordStrengthConfig {
	return config.PasswordStrengthConfig{
		MaxLength: 72,
	}
}

// NewBcryptHasher is the constructor for bcryptHasher with the default cost and strength policy.
// It returns the implementation as a service.PasswordHasher interface.
func NewBcryptHasher() service.PasswordHasher {
	return &bcryptHasher{
		cost:   bcrypt.DefaultCost,
		policy: defaultStrengthPolicy(),
	}
}

// NewBcryptHasherWithCost creates a hasher with a custom bcrypt cost factor.
// Lower costs are useful in tests.
func NewBcryptHasherWithCost(cost int) service.PasswordHasher {
	return &bcryptHasher{
		cost:   cost,
		policy: defaultStrengthPolicy(),
	}
}

// NewBcryptHasherFromConfig creates a hasher driven by application configuration.
// Zero or missing values fall back to the defaults.
func NewBcryptHasherFromConfig(cfg *config.Config) service.PasswordHasher {
	hasher := &bcryptHasher{
		cost:   bcrypt.DefaultCost,
		policy: defaultStrengthPolicy(),
	}

	if cfg.Auth != nil && cfg.Auth.BcryptCost >= bcrypt.MinCost && cfg.Auth.BcryptCost <= bcrypt.MaxCost {
		hasher.cost = cfg.Auth.BcryptCost
	}
	if cfg.PasswordStrength != nil {
		hasher.policy = *cfg.PasswordStrength
	}

	return hasher
}

// Hash validates password strength and generates a salted hash using bcrypt.
// bcrypt automatically handles salt generation.
func (h *bcryptHasher) Hash(password string) (string, error) {
	if err := h.ValidatePasswordStrength(password); err != nil {
		return "", err
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", domainerrors.ErrPasswordHashFailed.WrapMessage(err.Error())
	}

	return string(bytes), nil
}

// HashSensitive hashes a non-password secret, skipping the strength policy.
// Government ID numbers follow their issuer's format, not ours.
func (h *bcryptHasher) HashSensitive(raw string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(raw), h.cost)
	if err != nil {
		return "", domainerrors.ErrPasswordHashFailed.WrapMessage(err.Error())
	}

	return string(bytes), nil
}

// Check compares a plaintext password with a bcrypt hash.
func (h *bcryptHasher) Check(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	// err is nil if the password and hash match.
	return err == nil
}

// ValidatePasswordStrength verifies the password against the configured policy.
func (h *bcryptHasher) ValidatePasswordStrength(password string) error {
	if password == "" {
		return domainerrors.ErrPasswordStrength.WrapMessage("password is required")
	}
	if h.policy.MinLength > 0 && len(password) < h.policy.MinLength {
		return domainerrors.ErrPasswordStrength.WrapMessage(
			"password must be at least " + strconv.Itoa(h.policy.MinLength) + " characters long")
	}
	if h.policy.MaxLength > 0 && len(password) > h.policy.MaxLength {
		return domainerrors.ErrPasswordStrength.WrapMessage("password exceeds the maximum allowed length")
	}
	if h.policy.RequireLowercase && !h.hasLowercase(password) {
		return domainerrors.ErrPasswordStrength.WrapMessage("password must contain at least one lowercase letter")
	}
	if h.policy.RequireUppercase && !h.hasUppercase(password) {
		return domainerrors.ErrPasswordStrength.WrapMessage("password must contain at least one uppercase letter")
	}
	if h.policy.RequireNumbers && !h.hasNumbers(password) {
		return domainerrors.ErrPasswordStrength.WrapMessage("password must contain at least one number")
	}
	if h.policy.RequireSpecial && !h.hasSpecialChars(password) {
		return domainerrors.ErrPasswordStrength.WrapMessage("password must contain at least one special character")
	}
	if h.containsForbiddenWords(password, defaultForbiddenWords) {
		return domainerrors.ErrPasswordForbiddenWords.WrapMessage("password contains forbidden words")
	}

	return nil
}

func (h *bcryptHasher) hasUppercase(s string) bool {
	return strings.ContainsFunc(s, unicode.IsUpper)
}

func (h *bcryptHasher) hasLowercase(s string) bool {
	return strings.ContainsFunc(s, unicode.IsLower)
}

func (h *bcryptHasher) hasNumbers(s string) bool {
	return strings.ContainsFunc(s, unicode.IsDigit)
}

func (h *bcryptHasher) hasSpecialChars(s string) bool {
	return strings.ContainsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func (h *bcryptHasher) containsForbiddenWords(password string, words []string) bool {
	lowered := strings.ToLower(password)
	for _, word := range words {
		if strings.Contains(lowered, word) {
			return true
		}
	}

	return false
}
