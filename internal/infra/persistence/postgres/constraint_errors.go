package postgres

import (
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// uniqueConstraintFields maps named unique constraints in the schema to the
// account field whose value collided. The migration files define these names.
var uniqueConstraintFields = map[string]string{
	"uq_accounts_email":         "email",
	"uq_accounts_username":      "username",
	"uq_accounts_phone":         "phone",
	"uq_accounts_referral_code": "referralCode",
}

// Helper functions for PostgreSQL error checking
func isUniqueConstraintViolation(err error) bool {
	// Check for GORM's duplicate key error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	// Check error message for PostgreSQL-specific unique constraint violation patterns
	errMsg := strings.ToLower(err.Error())

	return strings.Contains(errMsg, "duplicate key") ||
		strings.Contains(errMsg, "unique constraint") ||
		strings.Contains(errMsg, "23505") // PostgreSQL unique_violation error code
}

// uniqueConstraintField resolves the offending field name from a unique
// constraint violation by matching the constraint name in the error message.
func uniqueConstraintField(err error) (string, bool) {
	errMsg := err.Error()
	for constraint, field := range uniqueConstraintFields {
		if strings.Contains(errMsg, constraint) {
			return field, true
		}
	}

	return "", false
}

func isForeignKeyConstraintViolation(err error) bool {
	// Check for GORM's foreign key violation error
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}

	errMsg := strings.ToLower(err.Error())

	return strings.Contains(errMsg, "foreign key") ||
		strings.Contains(errMsg, "23503") // PostgreSQL foreign_key_violation error code
}

func isNotNullConstraintViolation(err error) bool {
	// Check error message for PostgreSQL-specific not null constraint violation patterns
	errMsg := strings.ToLower(err.Error())

	return strings.Contains(errMsg, "null value") ||
		strings.Contains(errMsg, "not null") ||
		strings.Contains(errMsg, "23502") // PostgreSQL not_null_violation error code
}
