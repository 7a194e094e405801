package services

import (
	"context"
	"fmt"

	"contactbook/internal/apperr"
	"contactbook/internal/database"
	"contactbook/internal/models"
	"contactbook/internal/repositories"
	"contactbook/internal/storage"
	"contactbook/pkg/logger"

	"gorm.io/gorm"
)

// ContactService handles the contact book of an account. Writes run in a
// transaction; an uploaded photo is placed inside that transaction and
// settled once it is known whether the row was committed.
type ContactService struct {
	tx        database.Transactor
	contacts  repositories.ContactRepositoryFactory
	photos    *storage.PhotoStore
	validator *ContactValidator
	events    EventPublisher
	log       *logger.Logger
}

// NewContactService creates a new ContactService. events may be nil.
func NewContactService(
	tx database.Transactor,
	contacts repositories.ContactRepositoryFactory,
	photos *storage.PhotoStore,
	validator *ContactValidator,
	events EventPublisher,
	log *logger.Logger,
) *ContactService {
	return &ContactService{
		tx:        tx,
		contacts:  contacts,
		photos:    photos,
		validator: validator,
		events:    events,
		log:       log.With("component", "contact_service"),
	}
}

// CreateContact stores a new contact for owner and, if given, its photo.
func (s *ContactService) CreateContact(ctx context.Context, owner uint64, fields models.ContactFields, upload *storage.Upload) (*models.Contact, error) {
	fields = fields.Normalize()
	if fields.FirstName == "" || fields.LastName == "" {
		return nil, apperr.BadRequest(MsgContactNamesRequired)
	}
	if err := s.validator.Validate(fields); err != nil {
		return nil, err
	}

	var (
		contact   *models.Contact
		placement *storage.Placement
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		c := models.NewContact(owner, fields)
		if err := s.contacts(tx).Create(c); err != nil {
			return notFoundAs(err, fmt.Sprintf(MsgUserNotFound, owner))
		}
		if upload != nil {
			p, err := s.photos.Place(*upload, owner, c.ID)
			if err != nil {
				return err
			}
			placement = p
		}
		contact = c
		return nil
	})
	s.settle(placement, err)
	if err != nil {
		return nil, err
	}

	publish(s.events, s.log, EventContactCreated, Event{OwnerID: owner, ContactID: contact.ID})
	return contact, nil
}

// UpdateContact merges the non-empty fields onto the stored contact and, if
// given, replaces its photo.
func (s *ContactService) UpdateContact(ctx context.Context, owner, contactID uint64, fields models.ContactFields, upload *storage.Upload) (*models.Contact, error) {
	fields = fields.Normalize()

	var (
		updated   *models.Contact
		placement *storage.Placement
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.contacts(tx)

		existing, err := repo.GetForOwner(owner, contactID)
		if err != nil {
			return notFoundAs(err, MsgContactUpdateNotFound)
		}
		if err := s.validator.Validate(fields); err != nil {
			return err
		}

		merged := existing.Merge(fields)
		if updated, err = repo.Update(&merged); err != nil {
			return notFoundAs(err, MsgContactUpdateNotFound)
		}
		if upload != nil {
			if placement, err = s.photos.Place(*upload, owner, contactID); err != nil {
				return err
			}
		}
		return nil
	})
	s.settle(placement, err)
	if err != nil {
		return nil, err
	}

	publish(s.events, s.log, EventContactUpdated, Event{OwnerID: owner, ContactID: contactID})
	return updated, nil
}

// DeleteContact removes a contact and returns it as it was. Its photo is
// reclaimed asynchronously from the contact.deleted event.
func (s *ContactService) DeleteContact(ctx context.Context, owner, contactID uint64) (*models.Contact, error) {
	var snapshot *models.Contact
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.contacts(tx)

		existing, err := repo.GetForOwner(owner, contactID)
		if err != nil {
			return notFoundAs(err, MsgContactDeleteNotFound)
		}
		if err := repo.Delete(owner, contactID); err != nil {
			return notFoundAs(err, MsgContactDeleteNotFound)
		}
		snapshot = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(s.events, s.log, EventContactDeleted, Event{OwnerID: owner, ContactID: contactID})
	return snapshot, nil
}

// ListContacts returns every contact of owner, in store order.
func (s *ContactService) ListContacts(ctx context.Context, owner uint64) ([]models.Contact, error) {
	var contacts []models.Contact
	err := s.tx.WithConn(ctx, func(db *gorm.DB) error {
		var err error
		contacts, err = s.contacts(db).ListByOwner(owner)
		return err
	})
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

// GetContact returns one contact of owner.
func (s *ContactService) GetContact(ctx context.Context, owner, contactID uint64) (*models.Contact, error) {
	var contact *models.Contact
	err := s.tx.WithConn(ctx, func(db *gorm.DB) error {
		var err error
		contact, err = s.contacts(db).GetForOwner(owner, contactID)
		return err
	})
	if err != nil {
		return nil, notFoundAs(err, fmt.Sprintf(MsgContactNotFoundForUser, contactID, owner))
	}
	return contact, nil
}

// GetPhoto returns the path of the photo of one contact of owner.
func (s *ContactService) GetPhoto(ctx context.Context, owner, contactID uint64) (string, error) {
	if _, err := s.GetContact(ctx, owner, contactID); err != nil {
		return "", err
	}
	return s.photos.Lookup(owner, contactID)
}

// RegisterView records one view of a contact. It is a single insert, so no
// transaction is opened.
func (s *ContactService) RegisterView(ctx context.Context, contactID uint64) error {
	err := s.tx.WithConn(ctx, func(db *gorm.DB) error {
		return s.contacts(db).RecordView(contactID)
	})
	if err != nil {
		return err
	}
	publish(s.events, s.log, EventContactViewed, Event{ContactID: contactID})
	return nil
}

// GetAnalytics returns the view counts of the trailing week.
func (s *ContactService) GetAnalytics(ctx context.Context, contactID uint64) (*models.Analytics, error) {
	var analytics *models.Analytics
	err := s.tx.WithConn(ctx, func(db *gorm.DB) error {
		var err error
		analytics, err = s.contacts(db).GetAnalytics(contactID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return analytics, nil
}

// settle finalizes a photo placement once the outcome of its transaction is known.
func (s *ContactService) settle(placement *storage.Placement, txErr error) {
	if placement == nil {
		return
	}
	if txErr != nil {
		if err := placement.Revert(); err != nil {
			s.log.Error("failed to revert photo placement", "dir", placement.Dir(), "error", err)
		}
		return
	}
	if err := placement.Commit(); err != nil {
		s.log.Warn("failed to drop previous photo", "dir", placement.Dir(), "error", err)
	}
}
