// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"

	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/domain/repository"
	"passport/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// accountRepository implements the domain.AccountRepository interface using GORM.
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository is the constructor for accountRepository.
// It returns the repository as a domain.AccountRepository interface, adhering to dependency inversion.
func NewAccountRepository(db *gorm.DB) repository.AccountRepository {
	return &accountRepository{db: db}
}

// FindByID retrieves a single account by its unique ID, preloading wallets and KYC data.
// Soft-deleted accounts are excluded.
func (repo *accountRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	var accountM model.AccountModel
	err := repo.db.WithContext(ctx).
		Preload("Wallets").
		Preload("KYCProfile").
		Preload("KYCDocuments").
		Where("id = ? AND deleted_at IS NULL", id).
		First(&accountM).Error

	if err != nil {
		// If the error is 'record not found', return a domain-specific error.
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrAccountNotFound
		}
		// Otherwise, return the original database error.
		return nil, errors.Wrap(err, "failed to find account by id")
	}

	// Map the persistence model back to a pure domain entity before returning.
	return toAccountDomain(&accountM), nil
}

// FindByEmail retrieves a single account by its email address, preloading wallets and KYC data.
func (repo *accountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	var accountM model.AccountModel
	err := repo.db.WithContext(ctx).
		Preload("Wallets").
		Preload("KYCProfile").
		Preload("KYCDocuments").
		Where("email = ? AND deleted_at IS NULL", email).
		First(&accountM).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrAccountNotFound
		}

		return nil, errors.Wrap(err, "failed to find account by email")
	}

	return toAccountDomain(&accountM), nil
}

// FindByReferralCode retrieves a single account by its referral code.
func (repo *accountRepository) FindByReferralCode(ctx context.Context, code string) (*entity.Account, error) {
	var accountM model.AccountModel
	err := repo.db.WithContext(ctx).
		Where("referral_code = ? AND deleted_at IS NULL", code).
		First(&accountM).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrAccountNotFound
		}

		return nil, errors.Wrap(err, "failed to find account by referral code")
	}

	return toAccountDomain(&accountM), nil
}

// Create persists a new account entity, including wallets and KYC data, to the database.
// GORM's Create with associations handles the child tables in a single statement batch.
func (repo *accountRepository) Create(ctx context.Context, account *entity.Account) error {
	// Map the pure domain entity to a GORM persistence model.
	accountM := fromAccountDomain(account)

	if err := repo.db.WithContext(ctx).Create(accountM).Error; err != nil {
		// Convert PostgreSQL errors to domain errors
		if isUniqueConstraintViolation(err) {
			if field, ok := uniqueConstraintField(err); ok {
				return domainerrors.NewDuplicateKeyError(field)
			}

			return domainerrors.ErrAccountAlreadyExists
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrAccountCreationFailed.WrapMessage("missing required account information")
		}
		if isForeignKeyConstraintViolation(err) {
			return domainerrors.ErrAccountCreationFailed.WrapMessage("invalid foreign key reference")
		}
		// For other database errors, return a generic database error
		return domainerrors.NewDatabaseExecuteError(err, "failed to create account")
	}

	// Update the account entity with the generated ID and timestamps
	account.ID = accountM.ID
	account.CreatedAt = accountM.CreatedAt
	account.UpdatedAt = accountM.UpdatedAt

	return nil
}

// Update modifies an existing account entity, including its associations, in the database.
func (repo *accountRepository) Update(ctx context.Context, account *entity.Account) error {
	// Map the pure domain entity to a GORM persistence model.
	accountM := fromAccountDomain(account)

	// Use Session with FullSaveAssociations to update nested associations
	if err := repo.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(accountM).Error; err != nil {
		// Convert PostgreSQL errors to domain errors
		if isUniqueConstraintViolation(err) {
			if field, ok := uniqueConstraintField(err); ok {
				return domainerrors.NewDuplicateKeyError(field)
			}

			return domainerrors.ErrAccountAlreadyExists
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrAccountUpdateFailed.WrapMessage("missing required account information")
		}
		if isForeignKeyConstraintViolation(err) {
			return domainerrors.ErrAccountUpdateFailed.WrapMessage("invalid foreign key reference")
		}
		// For other database errors, return a generic database error
		return domainerrors.NewDatabaseExecuteError(err, "failed to update account")
	}

	// Update the account entity with the updated timestamps
	account.UpdatedAt = accountM.UpdatedAt

	return nil
}

// --- Mapper Functions ---
// These helpers convert between domain entities and persistence models.

// toAccountDomain converts a GORM AccountModel to a domain Account entity.
func toAccountDomain(data *model.AccountModel) *entity.Account {
	if data == nil {
		return nil
	}

	wallets := make([]entity.Wallet, 0, len(data.Wallets))
	for _, w := range data.Wallets {
		wallets = append(wallets, entity.Wallet{
			ID:       w.ID,
			Currency: w.Currency,
			Balance:  w.Balance,
			Reserved: w.Reserved,
		})
	}

	return &entity.Account{
		ID:                  data.ID,
		Email:               data.Email,
		Username:            data.Username,
		Phone:               phoneToDomain(data.Phone),
		FirstName:           data.FirstName,
		LastName:            data.LastName,
		MiddleName:          data.MiddleName,
		Password:            data.PasswordHash,
		PasswordChangedAt:   data.PasswordChangedAt,
		TwoFactorEnabled:    data.TwoFactorEnabled,
		TwoFactorSecret:     data.TwoFactorSecret,
		FailedLoginAttempts: data.FailedLoginAttempts,
		AccountLockedUntil:  data.AccountLockedUntil,
		Role:                entity.Role(data.Role),
		Status:              entity.Status(data.Status),
		LastLogin:           data.LastLogin,
		LastLoginIP:         data.LastLoginIP,
		ReferralCode:        data.ReferralCode,
		ReferredBy:          data.ReferredBy,
		CreatedBy:           data.CreatedBy,
		Wallets:             wallets,
		KYC:                 toKYCDomain(data.KYCProfile, data.KYCDocuments),
		CreatedAt:           data.CreatedAt,
		UpdatedAt:           data.UpdatedAt,
	}
}

// fromAccountDomain converts a domain Account entity to a GORM AccountModel for persistence.
func fromAccountDomain(data *entity.Account) *model.AccountModel {
	if data == nil {
		return nil
	}

	// Row IDs survive the round trip so a save upserts the existing rows
	// instead of inserting duplicates (which would also trip the per-currency
	// wallet constraint).
	wallets := make([]model.WalletModel, 0, len(data.Wallets))
	for _, w := range data.Wallets {
		wallets = append(wallets, model.WalletModel{
			ID:        w.ID,
			AccountID: data.ID,
			Currency:  w.Currency,
			Balance:   w.Balance,
			Reserved:  w.Reserved,
		})
	}

	accountM := &model.AccountModel{
		ID:                  data.ID,
		Email:               data.Email,
		Username:            data.Username,
		Phone:               phoneToModel(data.Phone),
		FirstName:           data.FirstName,
		LastName:            data.LastName,
		MiddleName:          data.MiddleName,
		PasswordHash:        data.Password,
		PasswordChangedAt:   data.PasswordChangedAt,
		TwoFactorEnabled:    data.TwoFactorEnabled,
		TwoFactorSecret:     data.TwoFactorSecret,
		FailedLoginAttempts: data.FailedLoginAttempts,
		AccountLockedUntil:  data.AccountLockedUntil,
		Role:                data.Role.String(),
		Status:              data.Status.String(),
		LastLogin:           data.LastLogin,
		LastLoginIP:         data.LastLoginIP,
		ReferralCode:        data.ReferralCode,
		ReferredBy:          data.ReferredBy,
		CreatedBy:           data.CreatedBy,
		Wallets:             wallets,
		CreatedAt:           data.CreatedAt,
		UpdatedAt:           data.UpdatedAt,
	}

	if data.KYC != nil {
		accountM.KYCProfile = &model.KYCProfileModel{
			AccountID:          data.ID,
			FullName:           data.KYC.FullName,
			DateOfBirth:        data.KYC.DateOfBirth,
			Address:            data.KYC.Address,
			GovernmentIDType:   data.KYC.GovernmentIDType,
			GovernmentIDNumber: data.KYC.GovernmentIDNumber,
			VerificationStatus: data.KYC.VerificationStatus.String(),
		}

		documents := make([]model.KYCDocumentModel, 0, len(data.KYC.Documents))
		for _, doc := range data.KYC.Documents {
			documents = append(documents, model.KYCDocumentModel{
				ID:        doc.ID,
				AccountID: data.ID,
				Type:      doc.Type,
				Location:  doc.Location,
				Verified:  doc.Verified,
			})
		}
		accountM.KYCDocuments = documents
	}

	return accountM
}

// phoneToModel maps an absent phone to NULL so uq_accounts_phone only applies
// to accounts that actually have one.
func phoneToModel(phone string) *string {
	if phone == "" {
		return nil
	}

	return &phone
}

func phoneToDomain(phone *string) string {
	if phone == nil {
		return ""
	}

	return *phone
}

// toKYCDomain converts KYC persistence models to a domain KYC value.
func toKYCDomain(profile *model.KYCProfileModel, documents []model.KYCDocumentModel) *entity.KYC {
	if profile == nil {
		return nil
	}

	docs := make([]entity.KYCDocument, 0, len(documents))
	for _, doc := range documents {
		docs = append(docs, entity.KYCDocument{
			ID:       doc.ID,
			Type:     doc.Type,
			Location: doc.Location,
			Verified: doc.Verified,
		})
	}

	return &entity.KYC{
		FullName:           profile.FullName,
		DateOfBirth:        profile.DateOfBirth,
		Address:            profile.Address,
		GovernmentIDType:   profile.GovernmentIDType,
		GovernmentIDNumber: profile.GovernmentIDNumber,
		VerificationStatus: entity.KYCStatus(profile.VerificationStatus),
		Documents:          docs,
	}
}
