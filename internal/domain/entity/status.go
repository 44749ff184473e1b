// Package entity contains the core business objects of the project.
package entity

// Status represents the lifecycle state of an account.
type Status string

const (
	// StatusActive indicates a normally usable account.
	StatusActive Status = "active"
	// StatusSuspended indicates a temporarily disabled account.
	StatusSuspended Status = "suspended"
	// StatusBlocked indicates an account disabled by an operator.
	StatusBlocked Status = "blocked"
	// StatusDeleted indicates a soft-deleted account.
	StatusDeleted Status = "deleted"
)

// String returns the string representation of the Status.
func (s Status) String() string {
	return string(s)
}

// IsValid checks if the Status is a valid value.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusBlocked, StatusDeleted:
		return true
	default:
		return false
	}
}
