package entity

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"

	"passport/internal/domain/service"

	"github.com/pkg/errors"
)

const (
	referralCodeLength  = 8
	referralCodeCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// WriteStep is one step of the prepare-for-write pipeline.
type WriteStep func(*Account) error

// PrepareForWrite runs the ordered write pipeline on an account before it is
// handed to the persistence layer:
//
//	hash password if changed -> hash KYC id if changed ->
//	assign referral code if absent -> derive username if absent
//
// It replaces the implicit save hooks a document store would run. Steps are
// guarded by modified-flags, so calling this again on an unchanged account is
// a no-op and an existing hash is never re-hashed.
func PrepareForWrite(acct *Account, hasher service.PasswordHasher) error {
	steps := []WriteStep{
		hashPasswordIfChanged(hasher),
		hashGovernmentIDIfChanged(hasher),
		assignReferralCodeIfAbsent,
		deriveUsernameIfAbsent,
	}

	for _, step := range steps {
		if err := step(acct); err != nil {
			return err
		}
	}

	return nil
}

// VerifyPassword checks a raw password against the stored hash.
func (a *Account) VerifyPassword(raw string, hasher service.PasswordHasher) bool {
	return hasher.Check(raw, a.Password)
}

func hashPasswordIfChanged(hasher service.PasswordHasher) WriteStep {
	return func(acct *Account) error {
		if !acct.passwordChanged {
			return nil
		}

		hashed, err := hasher.Hash(acct.Password)
		if err != nil {
			return errors.Wrap(err, "failed to hash account password")
		}

		acct.Password = hashed
		acct.PasswordChangedAt = time.Now()
		acct.passwordChanged = false

		return nil
	}
}

func hashGovernmentIDIfChanged(hasher service.PasswordHasher) WriteStep {
	return func(acct *Account) error {
		if !acct.governmentIDChanged {
			return nil
		}
		if acct.KYC == nil {
			acct.governmentIDChanged = false

			return nil
		}

		hashed, err := hasher.HashSensitive(acct.KYC.GovernmentIDNumber)
		if err != nil {
			return errors.Wrap(err, "failed to hash government id number")
		}

		acct.KYC.GovernmentIDNumber = hashed
		acct.governmentIDChanged = false

		return nil
	}
}

// assignReferralCodeIfAbsent generates the unique-enough share code exactly
// once. An assigned code is never regenerated.
func assignReferralCodeIfAbsent(acct *Account) error {
	if acct.ReferralCode != "" {
		return nil
	}

	code, err := randomReferralCode()
	if err != nil {
		return errors.Wrap(err, "failed to generate referral code")
	}

	acct.ReferralCode = code

	return nil
}

// deriveUsernameIfAbsent builds 'localpart + 4 random digits' from the email.
// An explicitly chosen username is never overwritten.
func deriveUsernameIfAbsent(acct *Account) error {
	if acct.Username != "" || acct.Email == "" {
		return nil
	}

	localPart, _, _ := strings.Cut(acct.Email, "@")

	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return errors.Wrap(err, "failed to generate username suffix")
	}

	acct.Username = strings.ToLower(localPart) + strconv.FormatInt(1000+n.Int64(), 10)

	return nil
}

func randomReferralCode() (string, error) {
	var sb strings.Builder
	sb.Grow(referralCodeLength)

	max := big.NewInt(int64(len(referralCodeCharset)))
	for range referralCodeLength {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", errors.WithStack(err)
		}
		sb.WriteByte(referralCodeCharset[n.Int64()])
	}

	return sb.String(), nil
}
