package repositories

import (
	"errors"
	"fmt"
	"time"

	"contactbook/internal/apperr"
	"contactbook/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMAccountRepository is a GORM implementation of AccountRepository.
type GORMAccountRepository struct {
	db *gorm.DB
}

// NewGORMAccountRepository creates a new instance of GORMAccountRepository.
func NewGORMAccountRepository(db *gorm.DB) *GORMAccountRepository {
	return &GORMAccountRepository{
		db: db,
	}
}

// GetByName retrieves an account by its unique user name.
func (r *GORMAccountRepository) GetByName(name string) (*models.Account, error) {
	var account models.Account
	if err := r.db.Where("user_name = ?", name).Take(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("account with user name %s: %w", name, apperr.ErrNotFound)
		}
		return nil, apperr.Query(fmt.Errorf("failed to get account by user name %s: %w", name, err))
	}
	return &account, nil
}

// GetByID retrieves an account by its id.
func (r *GORMAccountRepository) GetByID(id uint64) (*models.Account, error) {
	var account models.Account
	if err := r.db.Where("id = ?", id).Take(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("account with ID %d: %w", id, apperr.ErrNotFound)
		}
		return nil, apperr.Query(fmt.Errorf("failed to get account by ID %d: %w", id, err))
	}
	return &account, nil
}

// Create inserts a new account. Timestamps are left to the store defaults.
func (r *GORMAccountRepository) Create(account *models.Account) (uint64, error) {
	if err := r.db.Select("user_name", "password").Create(account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, fmt.Errorf("account with user name %s: %w", account.Name, apperr.ErrConflict)
		}
		return 0, apperr.Query(fmt.Errorf("failed to create account: %w", err))
	}
	return account.ID, nil
}

// UpdatePassword stores a new password hash and returns the updated row.
func (r *GORMAccountRepository) UpdatePassword(id uint64, hashedPassword string) (*models.Account, error) {
	var account models.Account
	res := r.db.Model(&account).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"password":   hashedPassword,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, apperr.Query(fmt.Errorf("failed to update password of account %d: %w", id, res.Error))
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("account with ID %d: %w", id, apperr.ErrNotFound)
	}
	return &account, nil
}

// Delete removes an account and returns the row as it was.
func (r *GORMAccountRepository) Delete(id uint64) (*models.Account, error) {
	var account models.Account
	res := r.db.Clauses(clause.Returning{}).Where("id = ?", id).Delete(&account)
	if res.Error != nil {
		return nil, apperr.Query(fmt.Errorf("failed to delete account %d: %w", id, res.Error))
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("account with ID %d: %w", id, apperr.ErrNotFound)
	}
	return &account, nil
}
