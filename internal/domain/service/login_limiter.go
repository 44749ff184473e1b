package service

import "context"

// LoginLimiter throttles repeated login attempts per identifier (email) in
// front of the CPU-bound credential check. It complements, not replaces, the
// lockout state persisted on the account record.
type LoginLimiter interface {
	// Check returns an error when the identifier is currently throttled.
	Check(ctx context.Context, identifier string) error

	// RecordFailure counts one failed attempt for the identifier.
	RecordFailure(ctx context.Context, identifier string) error

	// Reset clears the attempt counter for the identifier.
	Reset(ctx context.Context, identifier string) error
}
