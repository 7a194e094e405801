package repositories

import (
	"contactbook/internal/models"

	"gorm.io/gorm"
)

// AccountRepository defines the interface for account data access.
// Every method runs exactly one statement on the connection it was built with.
type AccountRepository interface {
	GetByName(name string) (*models.Account, error)
	GetByID(id uint64) (*models.Account, error)
	// Create inserts the name and hashed password and returns the assigned id.
	Create(account *models.Account) (uint64, error)
	UpdatePassword(id uint64, hashedPassword string) (*models.Account, error)
	Delete(id uint64) (*models.Account, error)
}

// AccountRepositoryFactory binds an AccountRepository to a connection or transaction.
type AccountRepositoryFactory func(db *gorm.DB) AccountRepository

// NewAccountRepositoryFactory returns the GORM backed factory.
func NewAccountRepositoryFactory() AccountRepositoryFactory {
	return func(db *gorm.DB) AccountRepository {
		return NewGORMAccountRepository(db)
	}
}
