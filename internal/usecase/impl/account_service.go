// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"passport/config"
	deliverycontext "passport/internal/delivery/context"
	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/domain/repository"
	"passport/internal/domain/service"
	"passport/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const (
	defaultLockoutThreshold = 5
	defaultLockoutDuration  = 30 * time.Minute

	// referralRetryLimit bounds retries when a generated referral code collides.
	referralRetryLimit = 1
)

// accountService implements the AccountUsecase interface.
type accountService struct {
	txManager        repository.TransactionManager
	accountRepo      repository.AccountRepository
	hasher           service.PasswordHasher
	tokenService     service.TokenService
	eventPublisher   service.EventPublisher
	documentStore    service.DocumentStore
	qrcodeService    service.QRCodeService
	loginLimiter     service.LoginLimiter
	lockoutThreshold int
	lockoutDuration  time.Duration
	logger           *slog.Logger
}

// AccountServiceParams holds dependencies for AccountService, injected by Fx.
type AccountServiceParams struct {
	fx.In

	TxManager      repository.TransactionManager
	AccountRepo    repository.AccountRepository
	Hasher         service.PasswordHasher
	TokenService   service.TokenService
	EventPublisher service.EventPublisher
	DocumentStore  service.DocumentStore
	QRCodeService  service.QRCodeService
	LoginLimiter   service.LoginLimiter
	Config         *config.Config
	Logger         *slog.Logger
}

// NewAccountService is the constructor for accountService. It receives all dependencies as interfaces.
func NewAccountService(params AccountServiceParams) usecase.AccountUsecase {
	lockoutThreshold := defaultLockoutThreshold
	lockoutDuration := defaultLockoutDuration
	if params.Config != nil && params.Config.Auth != nil {
		if params.Config.Auth.LoginMaxAttempts > 0 {
			lockoutThreshold = params.Config.Auth.LoginMaxAttempts
		}
		if params.Config.Auth.LoginLockoutDuration > 0 {
			lockoutDuration = params.Config.Auth.LoginLockoutDuration
		}
	}

	return &accountService{
		txManager:        params.TxManager,
		accountRepo:      params.AccountRepo,
		hasher:           params.Hasher,
		tokenService:     params.TokenService,
		eventPublisher:   params.EventPublisher,
		documentStore:    params.DocumentStore,
		qrcodeService:    params.QRCodeService,
		loginLimiter:     params.LoginLimiter,
		lockoutThreshold: lockoutThreshold,
		lockoutDuration:  lockoutDuration,
		logger:           params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *accountService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Register orchestrates the complete account registration process.
func (srv *accountService) Register(ctx context.Context, input *usecase.RegisterInput) (*usecase.RegisterOutput, error) {
	email := normalizeEmail(input.Email)
	srv.log(ctx).Info("Starting registration", slog.String("email", email))

	if err := srv.hasher.ValidatePasswordStrength(input.Password); err != nil {
		srv.log(ctx).Warn("Password validation failed during registration",
			slog.String("email", email), slog.Any("error", err))

		return nil, err
	}

	referredBy, err := srv.resolveReferrer(ctx, input.ReferralCode)
	if err != nil {
		return nil, err
	}

	account := &entity.Account{
		Email:      email,
		Username:   strings.TrimSpace(input.Username),
		Phone:      strings.TrimSpace(input.Phone),
		FirstName:  input.FirstName,
		LastName:   input.LastName,
		MiddleName: input.MiddleName,
		Role:       entity.RoleUser,
		Status:     entity.StatusActive,
		ReferredBy: referredBy,
	}
	account.SetPassword(input.Password)

	if err := srv.createWithReferralRetry(ctx, email, account); err != nil {
		srv.log(ctx).Error("Failed to execute registration transaction",
			slog.String("email", email), slog.Any("error", err))

		return nil, err
	}

	srv.publishEvent(ctx, &service.AccountEvent{
		Type:         service.AccountEventRegistered,
		AccountID:    account.ID,
		Email:        account.Email,
		ReferralCode: account.ReferralCode,
		ReferredBy:   account.ReferredBy,
	})

	token, err := srv.tokenService.Issue(account.ID, account.PasswordChangedAt.Unix())
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue access token")
	}

	srv.log(ctx).Debug("Registration completed", slog.Any("accountID", account.ID))

	return &usecase.RegisterOutput{
		Account:     account.Sanitized(),
		AccessToken: token,
	}, nil
}

// createWithReferralRetry persists the account, regenerating the referral code
// once if the generated one collides with an existing account. A unique
// violation aborts the PostgreSQL transaction, so each attempt runs a whole
// new transaction instead of retrying inside the aborted one.
func (srv *accountService) createWithReferralRetry(
	ctx context.Context,
	email string,
	account *entity.Account,
) error {
	for attempt := 0; ; attempt++ {
		if err := entity.PrepareForWrite(account, srv.hasher); err != nil {
			return err
		}

		err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
			accountRepo := repoFactory.NewAccountRepository()

			if _, err := accountRepo.FindByEmail(ctx, email); err == nil {
				return domainerrors.ErrAccountAlreadyExists
			} else if !errors.Is(err, repository.ErrAccountNotFound) {
				return errors.Wrap(err, "failed to check for existing account")
			}

			return accountRepo.Create(ctx, account)
		})
		if err == nil {
			return nil
		}

		var dupErr *domainerrors.DuplicateKeyError
		if errors.As(err, &dupErr) && dupErr.Field() == "referralCode" && attempt < referralRetryLimit {
			srv.log(ctx).Warn("Referral code collision, regenerating",
				slog.String("code", account.ReferralCode))
			account.ReferralCode = ""

			continue
		}

		return err
	}
}

// resolveReferrer maps an optional referral code to the referrer's account ID.
func (srv *accountService) resolveReferrer(ctx context.Context, code string) (*uuid.UUID, error) {
	code = strings.TrimSpace(strings.ToUpper(code))
	if code == "" {
		return nil, nil
	}

	referrer, err := srv.accountRepo.FindByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, domainerrors.ErrValidationFailed.WrapMessage("unknown referral code")
		}

		return nil, errors.Wrap(err, "failed to resolve referral code")
	}

	return &referrer.ID, nil
}

// Login verifies credentials and issues an access token.
// Failed attempts are throttled in Redis and counted on the account itself.
func (srv *accountService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.LoginOutput, error) {
	email := normalizeEmail(input.Email)

	if err := srv.loginLimiter.Check(ctx, email); err != nil {
		return nil, err
	}

	account, err := srv.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			// Indistinguishable from a wrong password to the caller.
			srv.log(ctx).Warn("Login attempt for unknown email", slog.String("email", email))
			srv.recordFailure(ctx, email)

			return nil, domainerrors.ErrInvalidCredentials
		}

		return nil, errors.Wrap(err, "failed to load account for login")
	}

	now := time.Now()
	passwordOK := account.VerifyPassword(input.Password, srv.hasher)

	// A wrong guess on a locked account returns the generic credential error;
	// the lockout is only disclosed after the password verifies.
	if account.Locked(now) {
		srv.log(ctx).Warn("Login attempt on locked account", slog.Any("accountID", account.ID))
		if !passwordOK {
			return nil, domainerrors.ErrInvalidCredentials
		}

		return nil, domainerrors.ErrAccountLocked
	}

	if !passwordOK {
		srv.recordFailure(ctx, email)
		srv.registerFailedAttempt(ctx, account, now)

		return nil, domainerrors.ErrInvalidCredentials
	}

	if account.Status != entity.StatusActive {
		srv.log(ctx).Warn("Login attempt on inactive account",
			slog.Any("accountID", account.ID), slog.String("status", account.Status.String()))

		return nil, domainerrors.ErrForbidden.WrapMessage("account is not active")
	}

	account.FailedLoginAttempts = 0
	account.AccountLockedUntil = nil
	account.LastLogin = &now
	account.LastLoginIP = input.ClientIP
	if err := srv.accountRepo.Update(ctx, account); err != nil {
		return nil, errors.Wrap(err, "failed to record login")
	}

	if err := srv.loginLimiter.Reset(ctx, email); err != nil {
		srv.log(ctx).Warn("Failed to reset login limiter", slog.Any("error", err))
	}

	token, err := srv.tokenService.Issue(account.ID, account.PasswordChangedAt.Unix())
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue access token")
	}

	srv.log(ctx).Info("Login succeeded", slog.Any("accountID", account.ID))

	return &usecase.LoginOutput{
		AccessToken: token,
		Account:     account.Sanitized(),
	}, nil
}

// recordFailure bumps the Redis failure counter. Errors are logged, not returned,
// so a Redis outage cannot turn a failed login into an internal error.
func (srv *accountService) recordFailure(ctx context.Context, email string) {
	if err := srv.loginLimiter.RecordFailure(ctx, email); err != nil {
		srv.log(ctx).Warn("Failed to record login failure", slog.Any("error", err))
	}
}

// registerFailedAttempt persists the failed attempt counter and locks the
// account once the threshold is reached.
func (srv *accountService) registerFailedAttempt(ctx context.Context, account *entity.Account, now time.Time) {
	account.FailedLoginAttempts++
	if account.FailedLoginAttempts >= srv.lockoutThreshold {
		lockedUntil := now.Add(srv.lockoutDuration)
		account.AccountLockedUntil = &lockedUntil
		srv.log(ctx).Warn("Account locked after repeated failures",
			slog.Any("accountID", account.ID),
			slog.Time("lockedUntil", lockedUntil))
	}

	if err := srv.accountRepo.Update(ctx, account); err != nil {
		srv.log(ctx).Error("Failed to persist failed login attempt", slog.Any("error", err))
	}
}

// GetProfile returns the account without credential material.
func (srv *accountService) GetProfile(ctx context.Context, accountID uuid.UUID) (*entity.Account, error) {
	account, err := srv.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, domainerrors.ErrAccountNotFound
		}

		return nil, errors.Wrap(err, "failed to load account")
	}

	return account.Sanitized(), nil
}

// GetProfileByEmail returns the account for the given email without credential material.
func (srv *accountService) GetProfileByEmail(ctx context.Context, email string) (*entity.Account, error) {
	account, err := srv.accountRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, domainerrors.ErrAccountNotFound
		}

		return nil, errors.Wrap(err, "failed to load account by email")
	}

	return account.Sanitized(), nil
}

// UpdateProfile applies the provided field changes within a transaction.
// A new government ID number is hashed before it is written.
func (srv *accountService) UpdateProfile(ctx context.Context, accountID uuid.UUID, input *usecase.UpdateProfileInput) (*entity.Account, error) {
	var updated *entity.Account
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		accountRepo := repoFactory.NewAccountRepository()

		account, err := accountRepo.FindByID(ctx, accountID)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				return domainerrors.ErrAccountNotFound
			}

			return errors.Wrap(err, "failed to load account for update")
		}

		applyProfileChanges(account, input)

		if err := entity.PrepareForWrite(account, srv.hasher); err != nil {
			return err
		}

		if err := accountRepo.Update(ctx, account); err != nil {
			return err
		}
		updated = account

		return nil
	})
	if err != nil {
		srv.log(ctx).Error("Failed to update profile", slog.Any("accountID", accountID), slog.Any("error", err))

		return nil, err
	}

	return updated.Sanitized(), nil
}

// applyProfileChanges copies non-nil input fields onto the account.
func applyProfileChanges(account *entity.Account, input *usecase.UpdateProfileInput) {
	if input.Username != nil {
		account.Username = strings.TrimSpace(*input.Username)
	}
	if input.Phone != nil {
		account.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.FirstName != nil {
		account.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		account.LastName = *input.LastName
	}
	if input.MiddleName != nil {
		account.MiddleName = *input.MiddleName
	}

	touchesKYC := input.FullName != nil || input.DateOfBirth != nil ||
		input.Address != nil || input.GovernmentIDType != nil
	if touchesKYC && account.KYC == nil {
		account.KYC = &entity.KYC{VerificationStatus: entity.KYCStatusPending}
	}

	if input.FullName != nil {
		account.KYC.FullName = *input.FullName
	}
	if input.DateOfBirth != nil {
		account.KYC.DateOfBirth = input.DateOfBirth
	}
	if input.Address != nil {
		account.KYC.Address = *input.Address
	}
	if input.GovernmentIDType != nil {
		account.KYC.GovernmentIDType = *input.GovernmentIDType
	}
	if input.GovernmentIDNumber != nil {
		account.SetGovernmentIDNumber(*input.GovernmentIDNumber)
	}
}

// ChangePassword verifies the current password and sets a new one.
// The bumped password version invalidates all outstanding tokens.
func (srv *accountService) ChangePassword(ctx context.Context, accountID uuid.UUID, input *usecase.ChangePasswordInput) error {
	var email string
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		accountRepo := repoFactory.NewAccountRepository()

		account, err := accountRepo.FindByID(ctx, accountID)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				return domainerrors.ErrAccountNotFound
			}

			return errors.Wrap(err, "failed to load account for password change")
		}

		if !account.VerifyPassword(input.CurrentPassword, srv.hasher) {
			return domainerrors.ErrCurrentPasswordIncorrect
		}

		account.SetPassword(input.NewPassword)
		if err := entity.PrepareForWrite(account, srv.hasher); err != nil {
			return err
		}

		if err := accountRepo.Update(ctx, account); err != nil {
			return err
		}
		email = account.Email

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("Password change failed", slog.Any("accountID", accountID), slog.Any("error", err))

		return err
	}

	srv.publishEvent(ctx, &service.AccountEvent{
		Type:      service.AccountEventPasswordChanged,
		AccountID: accountID,
		Email:     email,
	})

	srv.log(ctx).Info("Password changed", slog.Any("accountID", accountID))

	return nil
}

// AddKYCDocument stores the uploaded document in blob storage and records it on the account.
func (srv *accountService) AddKYCDocument(ctx context.Context, accountID uuid.UUID, input *usecase.AddKYCDocumentInput) (*usecase.AddKYCDocumentOutput, error) {
	if input.Type == "" || len(input.Data) == 0 {
		return nil, domainerrors.ErrValidationFailed.WrapMessage("document type and content are required")
	}

	key := "accounts/" + accountID.String() + "/" + uuid.New().String() + "-" + input.Type
	location, err := srv.documentStore.Save(ctx, key, input.ContentType, input.Data)
	if err != nil {
		srv.log(ctx).Error("Failed to store KYC document", slog.Any("accountID", accountID), slog.Any("error", err))

		return nil, domainerrors.ErrDocumentStoreFailed.WrapMessage(err.Error())
	}

	document := entity.KYCDocument{
		Type:     input.Type,
		Location: location,
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		accountRepo := repoFactory.NewAccountRepository()

		account, err := accountRepo.FindByID(ctx, accountID)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				return domainerrors.ErrAccountNotFound
			}

			return errors.Wrap(err, "failed to load account for document upload")
		}

		if account.KYC == nil {
			account.KYC = &entity.KYC{VerificationStatus: entity.KYCStatusPending}
		}
		account.KYC.Documents = append(account.KYC.Documents, document)

		return accountRepo.Update(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("KYC document added",
		slog.Any("accountID", accountID), slog.String("type", input.Type))

	return &usecase.AddKYCDocumentOutput{Document: document}, nil
}

// ReferralQR renders the account's referral code as a PNG QR code.
func (srv *accountService) ReferralQR(ctx context.Context, accountID uuid.UUID) ([]byte, error) {
	account, err := srv.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, domainerrors.ErrAccountNotFound
		}

		return nil, errors.Wrap(err, "failed to load account for referral QR")
	}

	// Accounts created before referral codes existed get one on first use.
	if account.ReferralCode == "" {
		if err := srv.assignReferralCode(ctx, account); err != nil {
			return nil, err
		}
	}

	png, err := srv.qrcodeService.GenerateReferralQR(account.ReferralCode)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate referral QR code")
	}

	return png, nil
}

// assignReferralCode persists a freshly generated code, one transaction per
// attempt for the same abort reason as createWithReferralRetry.
func (srv *accountService) assignReferralCode(ctx context.Context, account *entity.Account) error {
	for attempt := 0; ; attempt++ {
		if err := entity.PrepareForWrite(account, srv.hasher); err != nil {
			return err
		}

		err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
			return repoFactory.NewAccountRepository().Update(ctx, account)
		})
		if err == nil {
			return nil
		}

		var dupErr *domainerrors.DuplicateKeyError
		if errors.As(err, &dupErr) && dupErr.Field() == "referralCode" && attempt < referralRetryLimit {
			account.ReferralCode = ""

			continue
		}

		return err
	}
}

// ValidateSession verifies the token and loads the account it belongs to.
func (srv *accountService) ValidateSession(ctx context.Context, token string) (*entity.Account, error) {
	claims, err := srv.tokenService.Verify(token)
	if err != nil {
		return nil, err
	}

	account, err := srv.accountRepo.FindByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, domainerrors.ErrInvalidToken
		}

		return nil, errors.Wrap(err, "failed to load account for session")
	}

	// Tokens minted before the latest password change are stale.
	if claims.PasswordVersion != account.PasswordChangedAt.Unix() {
		return nil, domainerrors.ErrExpiredToken
	}

	if account.Status != entity.StatusActive {
		return nil, domainerrors.ErrForbidden.WrapMessage("account is not active")
	}

	return account.Sanitized(), nil
}

// publishEvent pushes an account event, logging failures instead of failing the operation.
func (srv *accountService) publishEvent(ctx context.Context, event *service.AccountEvent) {
	event.RequestID = deliverycontext.GetRequestIDFromContext(ctx)
	event.OccurredAt = time.Now()

	if err := srv.eventPublisher.PublishAccountEvent(ctx, event); err != nil {
		srv.log(ctx).Error("Failed to publish account event",
			slog.String("event_type", event.Type), slog.Any("error", err))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
