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

const viewDateLayout = "2006-01-02"

// GORMContactRepository is a GORM implementation of ContactRepository.
type GORMContactRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGORMContactRepository creates a new instance of GORMContactRepository.
func NewGORMContactRepository(db *gorm.DB) *GORMContactRepository {
	return &GORMContactRepository{
		db:  db,
		now: time.Now,
	}
}

// WithClock replaces the clock used to stamp view events and to place the
// analytics window.
func (r *GORMContactRepository) WithClock(now func() time.Time) *GORMContactRepository {
	r.now = now
	return r
}

// Create inserts a new contact and fills in its id.
func (r *GORMContactRepository) Create(contact *models.Contact) error {
	if err := r.db.Omit(clause.Associations).Create(contact).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return fmt.Errorf("owner %d of new contact: %w", contact.OwnerID, apperr.ErrNotFound)
		}
		return apperr.Query(fmt.Errorf("failed to create contact: %w", err))
	}
	return nil
}

// GetForOwner retrieves a contact by id, only if it belongs to ownerID.
func (r *GORMContactRepository) GetForOwner(ownerID, contactID uint64) (*models.Contact, error) {
	var contact models.Contact
	err := r.db.Where("id = ? AND owner_id = ?", contactID, ownerID).Take(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("contact %d of owner %d: %w", contactID, ownerID, apperr.ErrNotFound)
		}
		return nil, apperr.Query(fmt.Errorf("failed to get contact %d: %w", contactID, err))
	}
	return &contact, nil
}

// Update writes every mutable field of contact and returns the stored row.
func (r *GORMContactRepository) Update(contact *models.Contact) (*models.Contact, error) {
	var updated models.Contact
	res := r.db.Model(&updated).
		Clauses(clause.Returning{}).
		Where("id = ? AND owner_id = ?", contact.ID, contact.OwnerID).
		Updates(map[string]interface{}{
			"first_name":      contact.FirstName,
			"middle_name":     contact.MiddleName,
			"last_name":       contact.LastName,
			"email":           contact.Email,
			"mobile_number":   contact.MobileNumber,
			"landline_number": contact.LandlineNumber,
			"note":            contact.Note,
			"updated_at":      r.now().UTC(),
		})
	if res.Error != nil {
		return nil, apperr.Query(fmt.Errorf("failed to update contact %d: %w", contact.ID, res.Error))
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("contact %d of owner %d: %w", contact.ID, contact.OwnerID, apperr.ErrNotFound)
	}
	return &updated, nil
}

// ListByOwner returns the owner's contacts in store order.
func (r *GORMContactRepository) ListByOwner(ownerID uint64) ([]models.Contact, error) {
	contacts := make([]models.Contact, 0)
	if err := r.db.Where("owner_id = ?", ownerID).Find(&contacts).Error; err != nil {
		return nil, apperr.Query(fmt.Errorf("failed to list contacts of owner %d: %w", ownerID, err))
	}
	return contacts, nil
}

// Delete removes the contact if it belongs to ownerID.
func (r *GORMContactRepository) Delete(ownerID, contactID uint64) error {
	res := r.db.Where("id = ? AND owner_id = ?", contactID, ownerID).Delete(&models.Contact{})
	if res.Error != nil {
		return apperr.Query(fmt.Errorf("failed to delete contact %d: %w", contactID, res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("contact %d of owner %d: %w", contactID, ownerID, apperr.ErrNotFound)
	}
	return nil
}

// RecordView appends one view event stamped with the current time.
func (r *GORMContactRepository) RecordView(contactID uint64) error {
	event := models.ViewEvent{ContactID: contactID, ViewedAt: r.now().UTC()}
	if err := r.db.Create(&event).Error; err != nil {
		return apperr.Query(fmt.Errorf("failed to record view of contact %d: %w", contactID, err))
	}
	return nil
}

// GetAnalytics reads the daily view counts of the trailing window, oldest first.
func (r *GORMContactRepository) GetAnalytics(contactID uint64) (*models.Analytics, error) {
	today := r.now().UTC()
	from := today.AddDate(0, 0, -(AnalyticsWindowDays - 1)).Format(viewDateLayout)
	to := today.Format(viewDateLayout)

	var rows []models.DailyViewCount
	err := r.db.
		Where("contact_id = ? AND view_date BETWEEN ? AND ?", contactID, from, to).
		Order("view_date").
		Find(&rows).Error
	if err != nil {
		return nil, apperr.Query(fmt.Errorf("failed to read analytics of contact %d: %w", contactID, err))
	}

	analytics := &models.Analytics{DailySeries: make([]models.DailyViews, 0, len(rows))}
	for _, row := range rows {
		date, err := time.Parse(viewDateLayout, row.ViewDate)
		if err != nil {
			return nil, apperr.Query(fmt.Errorf("unexpected view date %q: %w", row.ViewDate, err))
		}
		analytics.DailySeries = append(analytics.DailySeries, models.DailyViews{Date: date, Count: row.ViewCount})
		analytics.Total += row.ViewCount
	}
	return analytics, nil
}
