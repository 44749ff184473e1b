package service

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Account lifecycle event types published for downstream consumers
// (referral attribution, audit, notification fan-out).
const (
	AccountEventRegistered      = "account.registered"
	AccountEventPasswordChanged = "account.password_changed"
)

// AccountEvent represents an account lifecycle event.
type AccountEvent struct {
	RequestID    string     `json:"request_id,omitempty"` // For distributed tracing
	Type         string     `json:"type"`
	AccountID    uuid.UUID  `json:"account_id"`
	Email        string     `json:"email"`
	ReferralCode string     `json:"referral_code,omitempty"`
	ReferredBy   *uuid.UUID `json:"referred_by,omitempty"`
	OccurredAt   time.Time  `json:"occurred_at"`
}

// EventPublisher defines the interface for publishing events to a message queue.
type EventPublisher interface {
	// PublishAccountEvent publishes an account lifecycle event for async processing.
	PublishAccountEvent(ctx context.Context, event *AccountEvent) error

	// Close releases any resources held by the publisher.
	Close() error
}
