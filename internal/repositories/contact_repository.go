package repositories

import (
	"contactbook/internal/models"

	"gorm.io/gorm"
)

// AnalyticsWindowDays is the number of calendar days, today included,
// covered by GetAnalytics.
const AnalyticsWindowDays = 7

// ContactRepository defines the interface for contact data access. Reads and
// writes of a single contact are always scoped to its owner.
type ContactRepository interface {
	Create(contact *models.Contact) error
	GetForOwner(ownerID, contactID uint64) (*models.Contact, error)
	Update(contact *models.Contact) (*models.Contact, error)
	ListByOwner(ownerID uint64) ([]models.Contact, error)
	Delete(ownerID, contactID uint64) error
	RecordView(contactID uint64) error
	GetAnalytics(contactID uint64) (*models.Analytics, error)
}

// ContactRepositoryFactory binds a ContactRepository to a connection or transaction.
type ContactRepositoryFactory func(db *gorm.DB) ContactRepository

// NewContactRepositoryFactory returns the GORM backed factory.
func NewContactRepositoryFactory() ContactRepositoryFactory {
	return func(db *gorm.DB) ContactRepository {
		return NewGORMContactRepository(db)
	}
}
