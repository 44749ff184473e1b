package impl

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/domain/repository"
	"passport/internal/domain/service"
	mockRepo "passport/internal/mocks/repository"
	mockSvc "passport/internal/mocks/service"
	"passport/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// accountServiceFixtures holds all test dependencies for account service tests.
type accountServiceFixtures struct {
	service        usecase.AccountUsecase
	txManager      *mockRepo.MockTransactionManager
	accountRepo    *mockRepo.MockAccountRepository
	hasher         *mockSvc.MockPasswordHasher
	tokenService   *mockSvc.MockTokenService
	eventPublisher *mockSvc.MockEventPublisher
	documentStore  *mockSvc.MockDocumentStore
	qrcodeService  *mockSvc.MockQRCodeService
	loginLimiter   *mockSvc.MockLoginLimiter
}

func createTestAccountService(t *testing.T) accountServiceFixtures {
	txManager := mockRepo.NewMockTransactionManager(t)
	accountRepo := mockRepo.NewMockAccountRepository(t)
	hasher := mockSvc.NewMockPasswordHasher(t)
	tokenService := mockSvc.NewMockTokenService(t)
	eventPublisher := mockSvc.NewMockEventPublisher(t)
	documentStore := mockSvc.NewMockDocumentStore(t)
	qrcodeService := mockSvc.NewMockQRCodeService(t)
	loginLimiter := mockSvc.NewMockLoginLimiter(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewAccountService(AccountServiceParams{
		TxManager:      txManager,
		AccountRepo:    accountRepo,
		Hasher:         hasher,
		TokenService:   tokenService,
		EventPublisher: eventPublisher,
		DocumentStore:  documentStore,
		QRCodeService:  qrcodeService,
		LoginLimiter:   loginLimiter,
		Logger:         logger,
	})

	return accountServiceFixtures{
		service:        svc,
		txManager:      txManager,
		accountRepo:    accountRepo,
		hasher:         hasher,
		tokenService:   tokenService,
		eventPublisher: eventPublisher,
		documentStore:  documentStore,
		qrcodeService:  qrcodeService,
		loginLimiter:   loginLimiter,
	}
}

func testAccount() *entity.Account {
	return &entity.Account{
		ID:                uuid.New(),
		Email:             "test@example.com",
		Username:          "test1234",
		FirstName:         "Test",
		LastName:          "Account",
		Password:          "stored-hash",
		Role:              entity.RoleUser,
		Status:            entity.StatusActive,
		ReferralCode:      "ZZZZ9999",
		PasswordChangedAt: time.Now().Add(-time.Hour).Truncate(time.Second),
	}
}

func TestAccountService_Register_Success(t *testing.T) {
	fx := createTestAccountService(t)

	ctx := context.Background()
	input := &usecase.RegisterInput{
		Email:     "New@Example.com",
		Password:  "Password123!",
		Username:  "newbie",
		FirstName: "New",
		LastName:  "Account",
	}

	fx.hasher.EXPECT().ValidatePasswordStrength(input.Password).Return(nil)
	fx.hasher.EXPECT().Hash(input.Password).Return("hashed_password", nil)

	fx.txManager.EXPECT().
		Execute(ctx, mock.AnythingOfType("func(repository.RepositoryFactory) error")).
		Run(func(ctx context.Context, fn func(repository.RepositoryFactory) error) {
			mockFactory := mockRepo.NewMockRepositoryFactory(t)
			mockAccountRepo := mockRepo.NewMockAccountRepository(t)

			mockFactory.EXPECT().NewAccountRepository().Return(mockAccountRepo)

			mockAccountRepo.EXPECT().
				FindByEmail(ctx, "new@example.com").
				Return(nil, repository.ErrAccountNotFound)

			mockAccountRepo.EXPECT().
				Create(ctx, mock.AnythingOfType("*entity.Account")).
				Run(func(ctx context.Context, account *entity.Account) {
					account.ID = uuid.New()
				}).
				Return(nil)

			_ = fn(mockFactory)
		}).
		Return(nil)

	fx.eventPublisher.EXPECT().
		PublishAccountEvent(ctx, mock.AnythingOfType("*service.AccountEvent")).
		Return(nil)

	fx.tokenService.EXPECT().
		Issue(mock.AnythingOfType("uuid.UUID"), mock.AnythingOfType("int64")).
		Return("access-token", nil)

	output, err := fx.service.Register(ctx, input)

	require.NoError(t, err)
	require.NotNil(t, output)
	assert.Equal(t, "access-token", output.AccessToken)
	assert.Equal(t, "new@example.com", output.Account.Email)
	assert.Equal(t, "newbie", output.Account.Username)
	assert.NotEmpty(t, output.Account.ReferralCode)
	assert.Empty(t, output.Account.Password)
}

func TestAccountService_Register_WeakPassword(t *testing.T) {
	fx := createTestAccountService(t)

	ctx := context.Background()
	input := &usecase.RegisterInput{
		Email:    "new@example.com",
		Password: "short",
	}

	fx.hasher.EXPECT().
		ValidatePasswordStrength(input.Password).
		Return(domainerrors.ErrPasswordStrength.WrapMessage("password must be at least 8 characters long"))

	output, err := fx.service.Register(ctx, input)

	assert.Error(t, err)
	assert.Nil(t, output)
	assert.True(t, errors.Is(err, domainerrors.ErrPasswordStrength))
}

func TestAccountService_Register_DuplicateEmail(t *testing.T) {
	fx := createTestAccountService(t)

	ctx := context.Background()
	input := &usecase.RegisterInput{
		Email:    "test@example.com",
		Password: "Password123!",
	}

	fx.hasher.EXPECT().ValidatePasswordStrength(input.Password).Return(nil)
	fx.hasher.EXPECT().Hash(input.Password).Return("hashed_password", nil)

	fx.txManager.EXPECT().
		Execute(ctx, mock.AnythingOfType("func(repository.RepositoryFactory) error")).
		Run(func(ctx context.Context, fn func(repository.RepositoryFactory) error) {
			mockFactory := mockRepo.NewMockRepositoryFactory(t)
			mockAccountRepo := mockRepo.NewMockAccountRepository(t)

			mockFactory.EXPECT().NewAccountRepository().Return(mockAccountRepo)

			mockAccountRepo.EXPECT().
				FindByEmail(ctx, input.Email).
				Return(testAccount(), nil)

			_ = fn(mockFactory)
		}).
		Return(domainerrors.ErrAccountAlreadyExists)

	output, err := fx.service.Register(ctx, input)

	assert.Error(t, err)
	assert.Nil(t, output)
	assert.True(t, errors.Is(err, domainerrors.ErrAccountAlreadyExists))
}

func TestAccountService_Register_WithReferralCode(t *testing.T) {
	fx := createTestAccountService(t)

	ctx := context.Background()
	referrer := testAccount()
	input := &usecase.RegisterInput{
		Email:        "new@example.com",
		Password:     "Password123!",
		Username:     "newbie",
		ReferralCode: "zzzz9999",
	}

	fx.hasher.EXPECT().ValidatePasswordStrength(input.Password).Return(nil)
	fx.hasher.EXPECT().Hash(input.Password).Return("hashed_password", nil)

	fx.accountRepo.EXPECT().
		FindByReferralCode(ctx, "ZZZZ9999").
		Return(referrer, nil)

	fx.txManager.EXPECT().
		Execute(ctx, mock.AnythingOfType("func(repository.RepositoryFactory) error")).
		Run(func(ctx context.Context, fn func(repository.RepositoryFactory) error) {
			mockFactory := mockRepo.NewMockRepositoryFactory(t)
			mockAccountRepo := mockRepo.NewMockAccountRepository(t)

			mockFactory.EXPECT().NewAccountRepository().Return(mockAccountRepo)

			mockAccountRepo.EXPECT().
				FindByEmail(ctx, input.Email).
				Return(nil, repository.ErrAccountNotFound)

			mockAccountRepo.EXPECT().
				Create(ctx, mock.AnythingOfType("*entity.Account")).
				Return(nil)

			_ = fn(mockFactory)
		}).
		Return(nil)

	fx.eventPublisher.EXPECT().
		PublishAccountEvent(ctx, mock.AnythingOfType("*service.AccountEvent")).
		Return(nil)

	fx.tokenService.EXPECT().
		Issue(mock.AnythingOfType("uuid.UUID"), mock.AnythingOfType("int64")).
		Return("access-token", nil)

	output, err := fx.service.Register(ctx, input)

	require.NoError(t, err)
	require.NotNil(t, output.Account.ReferredBy)
	assert.Equal(t, referrer.ID, *output.Account.ReferredBy)
}

func TestAccountService_Register_UnknownReferralCode(t *testing.T) {
	fx := createTestAccountService(t)

	ctx := context.Background()
	input := &usecase.RegisterInput{
		Email:        "new@example.com",
		Password:     "Password123!",
		ReferralCode: "NOPE0000",
	}

	fx.hasher.EXPECT().ValidatePasswordStrength(input.Password).Return(nil)

	fx.accountRepo.EXPECT().
		FindByReferralCode(ctx, "NOPE0000").
		Return(nil, repository.ErrAccountNotFound)

	output, err := fx.service.Register(ctx, input)

	assert.Error(t, err)
	assert.Nil(t, output)
	assert.True(t, errors.Is(err, domainerrors.ErrValidationFailed))
}

func TestAccountService_Register_ReferralCodeCollisionRetries(t *testing.T) {
	fx := createTestAccountService(t)

	ctx := context.Background()
	input := &usecase.RegisterInput{
		Email:    "new@example.com",
		Password: "Password123!",
		Username: "newbie",
	}

	fx.hasher.EXPECT().ValidatePasswordStrength(input.Password).Return(nil)
	fx.hasher.EXPECT().Hash(input.Password).Return("hashed_password", nil).Once()

	// A collision aborts the transaction, so the retry must run as a second
	// Execute call with a regenerated code, not a second Create inside the
	// first transaction.
	var firstCode, secondCode string
	fx.txManager.EXPECT().
		Execute(ctx, mock.AnythingOfType("func(repository.RepositoryFactory) error")).
		RunAndReturn(func(ctx context.Context, fn func(repository.RepositoryFactory) error) error {
			mockFactory := mockRepo.NewMockRepositoryFactory(t)
			mockAccountRepo := mockRepo.NewMockAccountRepository(t)

			mockFactory.EXPECT().NewAccountRepository().Return(mockAccountRepo)

			mockAccountRepo.EXPECT().
				FindByEmail(ctx, input.Email).
				Return(nil, repository.ErrAccountNotFound)

			mockAccountRepo.EXPECT().
				Create(ctx, mock.AnythingOfType("*entity.Account")).
				Run(func(ctx context.Context, account *entity.Account) {
					firstCode = account.ReferralCode
				}).
				Return(domainerrors.NewDuplicateKeyError("referralCode"))

			return fn(mockFactory)
		}).
		Once()

	fx.txManager.EXPECT().
		Execute(ctx, mock.AnythingOfType("func(repository.RepositoryFactory) error")).
		RunAndReturn(func(ctx context.Context, fn func(repository.RepositoryFactory) error) error {
			mockFactory := mockRepo.NewMockRepositoryFactory(t)
			mockAccountRepo := mockRepo.NewMockAccountRepository(t)

			mockFactory.EXPECT().NewAccountRepository().Return(mockAccountRepo)

			mockAccountRepo.EXPECT().
				FindByEmail(ctx, input.Email).
				Return(nil, repository.ErrAccountNotFound)

			mockAccountRepo.EXPECT().
				Create(ctx, mock.AnythingOfType("*entity.Account")).
				Run(func(ctx context.Context, account *entity.Account) {
					account.ID = uuid.New()
					secondCode = account.ReferralCode
				}).
				Return(nil)

			return fn(mockFactory)
		}).
		Once()

	fx.eventPublisher.EXPECT().
		PublishAccountEvent(ctx, mock.AnythingOfType("*service.AccountEvent")).
		Return(nil)

	fx.tokenService.EXPECT().
		Issue(mock.AnythingOfType("uuid.UUID"), mock.AnythingOfType("int64")).
		Return("access-token", nil)

	output, err := fx.service.Register(ctx, input)

	require.NoError(t, err)
	assert.NotEmpty(t, firstCode)
	assert.NotEmpty(t, secondCode)
	assert.NotEqual(t, firstCode, secondCode)
	assert.Equal(t, secondCode, output.Account.ReferralCode)
}

func TestAccountService_Login_Success(t *testing.T) {
	fx := createTestAccountService(t)

	ctx := context.Background()
	account := testAccount()
	input := &usecase.LoginInput{
		Email:    "Test@Example.com",
		Password: "Password123!",
		ClientIP: "203.0.113.7",
	}

	fx.loginLimiter.EXPECT().Check(ctx, "test@example.com").Return(nil)
	fx.accountRepo.EXPECT().FindByEmail(ctx, "test@example.com").Return(account, nil)
	fx.hasher.EXPECT().Check(input.Password, "stored-hash").Return(true)
	fx.accountRepo.EXPECT().Update(ctx, account).Return(nil)
	fx.loginLimiter.EXPECT().Reset(ctx, "test@example.com").Return(nil)
	fx.tokenService.EXPECT().
		Issue(account.ID, account.PasswordChangedAt.Unix()).
		Return("access-token", nil)

	output, err := fx.service.Login(ctx, input)

	require.NoError(t, err)
	assert.Equal(t, "access-token", output.AccessToken)
	assert.Empty(t, output.Account.Password)
	assert.Equal(t, "203.0.113.7", account.LastLoginIP)
	require.NotNil(t, account.LastLogin)
	assert.Zero(t, account.FailedLoginAttempts)
}

func TestAccountService_Login_UnknownEmail(t *testing.T) {
	fx := createTestAccountService(t)

	ctx := context.Background()
	input := &usecase.LoginInput{Email: "ghost@example.com", Password: "Password123!"}

	fx.loginLimiter.EXPECT().Check(ctx, input.Email).Return(nil)
	fx.accountRepo.EXPECT().
		FindByEmail(ctx, input.Email).
		Return(nil, repository.ErrAccountNotFound)
	fx.loginLimiter.EXPECT().RecordFailure(ctx, input.Email).Return(nil)

	output, err := fx.service.Login(ctx, input)

	assert.Nil(t, output)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
}

func TestAccountService_Login_WrongPassword(t *testing.T) {
	fx := createTestAccountService(t)

	ctx := context.Background()
	account := testAccount()
	input := &usecase.LoginInput{Email: account.Email, Password: "wrong"}

	fx.loginLimiter.EXPECT().Check(ctx, account.Email).Return(nil)
	fx.accountRepo.EXPECT().FindByEmail(ctx, account.Email).Return(account, nil)
	fx.hasher.EXPECT().Check(input.Password, "stored-hash").Return(false)
	fx.loginLimiter.EXPECT().RecordFailure(ctx, account.Email).Return(nil)
	fx.accountRepo.EXPECT().Update(ctx, account).Return(nil)

	output, err := fx.service.Login(ctx, input)

	assert.Nil(t, output)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
	assert.Equal(t, 1, account.FailedLoginAttempts)
	assert.Nil(t, account.AccountLockedUntil)
}

func TestAccountService_Login_LocksAfterRepeatedFailures(t *testing.T) {
	fx := createTestAccountService(t)

	ctx := context.Background()
	account := testAccount()
	account.FailedLoginAttempts = defaultLockoutThreshold - 1
	input := &usecase.LoginInput{Email: account.Email, Password: "wrong"}

	fx.loginLimiter.EXPECT().Check(ctx, account.Email).Return(nil)
	fx.accountRepo.EXPECT().FindByEmail(ctx, account.Email).Return(account, nil)
	fx.hasher.EXPECT().Check(input.Password, "stored-hash").Return(false)
	fx.loginLimiter.EXPECT().RecordFailure(ctx, account.Email).Return(nil)
	fx.accountRepo.EXPECT().Update(ctx, account).Return(nil)

	_, err := fx.service.Login(ctx, input)

	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
	assert.Equal(t, defaultLockoutThreshold, account.FailedLoginAttempts)
	require.NotNil(t, account.AccountLockedUntil)
	assert.True(t, account.AccountLockedUntil.After(time.Now()))
}

func TestAccountService_Login_LockedAccount(t *testing.T) {
	fx := createTestAccountService(t)

	ctx := context.Background()
	account := testAccount()
	lockedUntil := time.Now().Add(10 * time.Minute)
	account.AccountLockedUntil = &lockedUntil
	input := &usecase.LoginInput{Email: account.Email, Password: "Password123!"}

	fx.loginLimiter.EXPECT().Check(ctx, account.Email).Return(nil)
	fx.accountRepo.EXPECT().FindByEmail(ctx, account.Email).Return(account, nil)
	fx.hasher.EXPECT().Check(input.Password, "stored-hash").Return(true)

	output, err := fx.service.Login(ctx, input)

	assert.Nil(t, output)
	assert.True(t, errors.Is(err, domainerrors.ErrAccountLocked))
}

func TestAccountService_Login_LockedAccountWrongPassword(t *testing.T) {
	fx := createTestAccountService(t)

	ctx := context.Background()
	account := testAccount()
	lockedUntil := time.Now().Add(10 * time.Minute)
	account.AccountLockedUntil = &lockedUntil
	input := &usecase.LoginInput{Email: account.Email, Password: "wrong"}

	fx.loginLimiter.EXPECT().Check(ctx, account.Email).Return(nil)
	fx.accountRepo.EXPECT().FindByEmail(ctx, account.Email).Return(account, nil)
	fx.hasher.EXPECT().Check(input.Password, "stored-hash").Return(false)

	output, err := fx.service.Login(ctx, input)

	// Without the correct password the lockout state stays hidden.
	assert.Nil(t, output)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
	assert.False(t, errors.Is(err, domainerrors.ErrAccountLocked))
}

func TestAccountService_Login_Throttled(t *testing.T) {
	fx := createTestAccountService(t)

	ctx := context.Background()
	input := &usecase.LoginInput{Email: "test@example.com", Password: "Password123!"}

	fx.loginLimiter.EXPECT().
		Check(ctx, input.Email).
		Return(domainerrors.ErrLoginThrottled)

	output, err := fx.service.Login(ctx, input)

	assert.Nil(t, output)
	assert.True(t, errors.Is(err, domainerrors.ErrLoginThrottled))
}

func TestAccountService_Login_InactiveAccount(t *testing.T) {
	fx := createTestAccountService(t)

	ctx := context.Background()
	account := testAccount()
	account.Status = entity.StatusSuspended
	input := &usecase.LoginInput{Email: account.Email, Password: "Password123!"}

	fx.loginLimiter.EXPECT().Check(ctx, account.Email).Return(nil)
	fx.accountRepo.EXPECT().FindByEmail(ctx, account.Email).Return(account, nil)
	fx.hasher.EXPECT().Check(input.Password, "stored-hash").Return(true)

	output, err := fx.service.Login(ctx, input)

	assert.Nil(t, output)
	assert.True(t, errors.Is(err, domainerrors.ErrForbidden))
}

func TestAccountService_GetProfile_Success(t *testing.T) {
	fx := createTestAccountService(t)

	ctx := context.Background()
	account := testAccount()

	fx.accountRepo.EXPECT().FindByID(ctx, account.ID).Return(account, nil)

	profile, err := fx.service.GetProfile(ctx, account.ID)

	require.NoError(t, err)
	assert.Equal(t, account.Email, profile.Email)
	assert.Empty(t, profile.Password)
}

func TestAccountService_GetProfile_NotFound(t *testing.T) {
	fx := createTestAccountService(t)

	ctx := context.Background()
	accountID := uuid.New()

	fx.accountRepo.EXPECT().
		FindByID(ctx, accountID).
		Return(nil, repository.ErrAccountNotFound)

	profile, err := fx.service.GetProfile(ctx, accountID)

	assert.Nil(t, profile)
	assert.True(t, errors.Is(err, domainerrors.ErrAccountNotFound))
}

func TestAccountService_UpdateProfile_Success(t *testing.T) {
	fx := createTestAccountService(t)

	ctx := context.Background()
	account := testAccount()
	phone := "+2348012345678"
	idType := "NIN"
	idNumber := "12345678901"
	input := &usecase.UpdateProfileInput{
		Phone:              &phone,
		GovernmentIDType:   &idType,
		GovernmentIDNumber: &idNumber,
	}

	fx.txManager.EXPECT().
		Execute(ctx, mock.AnythingOfType("func(repository.RepositoryFactory) error")).
		Run(func(ctx context.Context, fn func(repository.RepositoryFactory) error) {
			mockFactory := mockRepo.NewMockRepositoryFactory(t)
			mockAccountRepo := mockRepo.NewMockAccountRepository(t)

			mockFactory.EXPECT().NewAccountRepository().Return(mockAccountRepo)

			mockAccountRepo.EXPECT().FindByID(ctx, account.ID).Return(account, nil)

			fx.hasher.EXPECT().HashSensitive(idNumber).Return("hashed-id", nil)

			mockAccountRepo.EXPECT().Update(ctx, account).Return(nil)

			_ = fn(mockFactory)
		}).
		Return(nil)

	updated, err := fx.service.UpdateProfile(ctx, account.ID, input)

	require.NoError(t, err)
	assert.Equal(t, phone, updated.Phone)
	require.NotNil(t, updated.KYC)
	assert.Equal(t, idType, updated.KYC.GovernmentIDType)
	assert.Equal(t, "hashed-id", updated.KYC.GovernmentIDNumber)
	assert.Equal(t, entity.KYCStatusPending, updated.KYC.VerificationStatus)
}

func TestAccountService_UpdateProfile_NotFound(t *testing.T) {
	fx := createTestAccountService(t)

	ctx := context.Background()
	accountID := uuid.New()
	username := "renamed"
	input := &usecase.UpdateProfileInput{Username: &username}

	fx.txManager.EXPECT().
		Execute(ctx, mock.AnythingOfType("func(repository.RepositoryFactory) error")).
		Run(func(ctx context.Context, fn func(repository.RepositoryFactory) error) {
			mockFactory := mockRepo.NewMockRepositoryFactory(t)
			mockAccountRepo := mockRepo.NewMockAccountRepository(t)

			mockFactory.EXPECT().NewAccountRepository().Return(mockAccountRepo)

			mockAccountRepo.EXPECT().
				FindByID(ctx, accountID).
				Return(nil, repository.ErrAccountNotFound)

			_ = fn(mockFactory)
		}).
		Return(domainerrors.ErrAccountNotFound)

	updated, err := fx.service.UpdateProfile(ctx, accountID, input)

	assert.Nil(t, updated)
	assert.True(t, errors.Is(err, domainerrors.ErrAccountNotFound))
}

func TestAccountService_ChangePassword_Success(t *testing.T) {
	fx := createTestAccountService(t)

	ctx := context.Background()
	account := testAccount()
	previousVersion := account.PasswordChangedAt
	input := &usecase.ChangePasswordInput{
		CurrentPassword: "OldSecret123!",
		NewPassword:     "NewSecret456!",
	}

	fx.txManager.EXPECT().
		Execute(ctx, mock.AnythingOfType("func(repository.RepositoryFactory) error")).
		Run(func(ctx context.Context, fn func(repository.RepositoryFactory) error) {
			mockFactory := mockRepo.NewMockRepositoryFactory(t)
			mockAccountRepo := mockRepo.NewMockAccountRepository(t)

			mockFactory.EXPECT().NewAccountRepository().Return(mockAccountRepo)

			mockAccountRepo.EXPECT().FindByID(ctx, account.ID).Return(account, nil)

			fx.hasher.EXPECT().Check(input.CurrentPassword, "stored-hash").Return(true)
			fx.hasher.EXPECT().Hash(input.NewPassword).Return("new-hash", nil)

			mockAccountRepo.EXPECT().Update(ctx, account).Return(nil)

			_ = fn(mockFactory)
		}).
		Return(nil)

	fx.eventPublisher.EXPECT().
		PublishAccountEvent(ctx, mock.AnythingOfType("*service.AccountEvent")).
		Return(nil)

	err := fx.service.ChangePassword(ctx, account.ID, input)

	require.NoError(t, err)
	assert.Equal(t, "new-hash", account.Password)
	assert.True(t, account.PasswordChangedAt.After(previousVersion))
}

func TestAccountService_ChangePassword_WrongCurrentPassword(t *testing.T) {
	fx := createTestAccountService(t)

	ctx := context.Background()
	account := testAccount()
	input := &usecase.ChangePasswordInput{
		CurrentPassword: "wrong",
		NewPassword:     "NewSecret456!",
	}

	fx.txManager.EXPECT().
		Execute(ctx, mock.AnythingOfType("func(repository.RepositoryFactory) error")).
		Run(func(ctx context.Context, fn func(repository.RepositoryFactory) error) {
			mockFactory := mockRepo.NewMockRepositoryFactory(t)
			mockAccountRepo := mockRepo.NewMockAccountRepository(t)

			mockFactory.EXPECT().NewAccountRepository().Return(mockAccountRepo)

			mockAccountRepo.EXPECT().FindByID(ctx, account.ID).Return(account, nil)

			fx.hasher.EXPECT().Check(input.CurrentPassword, "stored-hash").Return(false)

			_ = fn(mockFactory)
		}).
		Return(domainerrors.ErrCurrentPasswordIncorrect)

	err := fx.service.ChangePassword(ctx, account.ID, input)

	assert.True(t, errors.Is(err, domainerrors.ErrCurrentPasswordIncorrect))
	assert.Equal(t, "stored-hash", account.Password)
}

func TestAccountService_AddKYCDocument_Success(t *testing.T) {
	fx := createTestAccountService(t)

	ctx := context.Background()
	account := testAccount()
	input := &usecase.AddKYCDocumentInput{
		Type:        "ID_CARD",
		ContentType: "image/png",
		Data:        []byte("png-bytes"),
	}

	fx.documentStore.EXPECT().
		Save(ctx, mock.AnythingOfType("string"), "image/png", input.Data).
		Return("mem://documents/id-card.png", nil)

	fx.txManager.EXPECT().
		Execute(ctx, mock.AnythingOfType("func(repository.RepositoryFactory) error")).
		Run(func(ctx context.Context, fn func(repository.RepositoryFactory) error) {
			mockFactory := mockRepo.NewMockRepositoryFactory(t)
			mockAccountRepo := mockRepo.NewMockAccountRepository(t)

			mockFactory.EXPECT().NewAccountRepository().Return(mockAccountRepo)

			mockAccountRepo.EXPECT().FindByID(ctx, account.ID).Return(account, nil)
			mockAccountRepo.EXPECT().Update(ctx, account).Return(nil)

			_ = fn(mockFactory)
		}).
		Return(nil)

	output, err := fx.service.AddKYCDocument(ctx, account.ID, input)

	require.NoError(t, err)
	assert.Equal(t, "ID_CARD", output.Document.Type)
	assert.Equal(t, "mem://documents/id-card.png", output.Document.Location)
	require.NotNil(t, account.KYC)
	assert.Len(t, account.KYC.Documents, 1)
}

func TestAccountService_AddKYCDocument_MissingFields(t *testing.T) {
	fx := createTestAccountService(t)

	ctx := context.Background()
	input := &usecase.AddKYCDocumentInput{Type: "", Data: nil}

	output, err := fx.service.AddKYCDocument(ctx, uuid.New(), input)

	assert.Nil(t, output)
	assert.True(t, errors.Is(err, domainerrors.ErrValidationFailed))
}

func TestAccountService_AddKYCDocument_StoreFailure(t *testing.T) {
	fx := createTestAccountService(t)

	ctx := context.Background()
	input := &usecase.AddKYCDocumentInput{
		Type:        "ID_CARD",
		ContentType: "image/png",
		Data:        []byte("png-bytes"),
	}

	fx.documentStore.EXPECT().
		Save(ctx, mock.AnythingOfType("string"), "image/png", input.Data).
		Return("", errors.New("bucket unavailable"))

	output, err := fx.service.AddKYCDocument(ctx, uuid.New(), input)

	assert.Nil(t, output)
	assert.True(t, errors.Is(err, domainerrors.ErrDocumentStoreFailed))
}

func TestAccountService_ReferralQR_Success(t *testing.T) {
	fx := createTestAccountService(t)

	ctx := context.Background()
	account := testAccount()
	png := []byte{0x89, 0x50, 0x4E, 0x47}

	fx.accountRepo.EXPECT().FindByID(ctx, account.ID).Return(account, nil)
	fx.qrcodeService.EXPECT().GenerateReferralQR("ZZZZ9999").Return(png, nil)

	got, err := fx.service.ReferralQR(ctx, account.ID)

	require.NoError(t, err)
	assert.Equal(t, png, got)
}

func TestAccountService_ReferralQR_AssignsMissingCode(t *testing.T) {
	fx := createTestAccountService(t)

	ctx := context.Background()
	account := testAccount()
	account.ReferralCode = ""
	png := []byte{0x89, 0x50, 0x4E, 0x47}

	fx.accountRepo.EXPECT().FindByID(ctx, account.ID).Return(account, nil)

	fx.txManager.EXPECT().
		Execute(ctx, mock.AnythingOfType("func(repository.RepositoryFactory) error")).
		Run(func(ctx context.Context, fn func(repository.RepositoryFactory) error) {
			mockFactory := mockRepo.NewMockRepositoryFactory(t)
			mockAccountRepo := mockRepo.NewMockAccountRepository(t)

			mockFactory.EXPECT().NewAccountRepository().Return(mockAccountRepo)
			mockAccountRepo.EXPECT().Update(ctx, account).Return(nil)

			_ = fn(mockFactory)
		}).
		Return(nil)

	fx.qrcodeService.EXPECT().
		GenerateReferralQR(mock.AnythingOfType("string")).
		Return(png, nil)

	got, err := fx.service.ReferralQR(ctx, account.ID)

	require.NoError(t, err)
	assert.Equal(t, png, got)
	assert.NotEmpty(t, account.ReferralCode)
}

func TestAccountService_ValidateSession_Success(t *testing.T) {
	fx := createTestAccountService(t)

	ctx := context.Background()
	account := testAccount()
	claims := &service.Claims{
		AccountID:       account.ID,
		PasswordVersion: account.PasswordChangedAt.Unix(),
	}

	fx.tokenService.EXPECT().Verify("token").Return(claims, nil)
	fx.accountRepo.EXPECT().FindByID(ctx, account.ID).Return(account, nil)

	got, err := fx.service.ValidateSession(ctx, "token")

	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)
	assert.Empty(t, got.Password)
}

func TestAccountService_ValidateSession_StalePasswordVersion(t *testing.T) {
	fx := createTestAccountService(t)

	ctx := context.Background()
	account := testAccount()
	claims := &service.Claims{
		AccountID:       account.ID,
		PasswordVersion: account.PasswordChangedAt.Add(-time.Hour).Unix(),
	}

	fx.tokenService.EXPECT().Verify("token").Return(claims, nil)
	fx.accountRepo.EXPECT().FindByID(ctx, account.ID).Return(account, nil)

	got, err := fx.service.ValidateSession(ctx, "token")

	assert.Nil(t, got)
	assert.True(t, errors.Is(err, domainerrors.ErrExpiredToken))
}

func TestAccountService_ValidateSession_InvalidToken(t *testing.T) {
	fx := createTestAccountService(t)

	ctx := context.Background()

	fx.tokenService.EXPECT().
		Verify("garbage").
		Return(nil, domainerrors.ErrInvalidToken)

	got, err := fx.service.ValidateSession(ctx, "garbage")

	assert.Nil(t, got)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidToken))
}

func TestAccountService_ValidateSession_AccountGone(t *testing.T) {
	fx := createTestAccountService(t)

	ctx := context.Background()
	accountID := uuid.New()
	claims := &service.Claims{AccountID: accountID, PasswordVersion: 0}

	fx.tokenService.EXPECT().Verify("token").Return(claims, nil)
	fx.accountRepo.EXPECT().
		FindByID(ctx, accountID).
		Return(nil, repository.ErrAccountNotFound)

	got, err := fx.service.ValidateSession(ctx, "token")

	assert.Nil(t, got)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidToken))
}
