package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"contactbook/internal/apperr"
	"contactbook/internal/database"
	"contactbook/internal/models"
	"contactbook/internal/repositories"
	"contactbook/pkg/logger"

	"gorm.io/gorm"
)

// AccountService handles signup, login and account maintenance.
type AccountService struct {
	tx       database.Transactor
	accounts repositories.AccountRepositoryFactory
	creds    Credentials
	events   EventPublisher
	log      *logger.Logger
}

// NewAccountService creates a new AccountService. events may be nil.
func NewAccountService(
	tx database.Transactor,
	accounts repositories.AccountRepositoryFactory,
	creds Credentials,
	events EventPublisher,
	log *logger.Logger,
) *AccountService {
	return &AccountService{
		tx:       tx,
		accounts: accounts,
		creds:    creds,
		events:   events,
		log:      log.With("component", "account_service"),
	}
}

// Signup creates an account with a unique name.
func (s *AccountService) Signup(ctx context.Context, name, password string) (*models.SafeAccount, error) {
	name = strings.TrimSpace(name)
	if name == "" || password == "" {
		return nil, apperr.BadRequest(MsgSignupFieldsRequired)
	}

	hashed, err := s.creds.HashPassword(password)
	if err != nil {
		return nil, err
	}

	var created *models.Account
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.accounts(tx)

		_, err := repo.GetByName(name)
		switch {
		case err == nil:
			return apperr.Conflict(MsgUserNameTaken)
		case !errors.Is(err, apperr.ErrNotFound):
			return err
		}

		account := &models.Account{Name: name, Password: hashed}
		if _, err := repo.Create(account); err != nil {
			// Lost a race with a concurrent signup; the unique index decided.
			if errors.Is(err, apperr.ErrConflict) {
				return apperr.Conflict(MsgUserNameTaken)
			}
			return err
		}
		created = account
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("account created", "account_id", created.ID, "user_name", created.Name)
	return created.Safe(), nil
}

// Login checks the credentials and returns a signed token. It only reads, so
// no transaction is opened.
func (s *AccountService) Login(ctx context.Context, name, password string) (string, *models.SafeAccount, error) {
	name = strings.TrimSpace(name)
	if name == "" || password == "" {
		return "", nil, apperr.InvalidCredentials(MsgInvalidCredentials)
	}

	var account *models.Account
	err := s.tx.WithConn(ctx, func(db *gorm.DB) error {
		var err error
		account, err = s.accounts(db).GetByName(name)
		return err
	})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", nil, apperr.InvalidCredentials(MsgInvalidCredentials)
		}
		return "", nil, err
	}

	if err := s.creds.ComparePassword(account.Password, password); err != nil {
		return "", nil, apperr.InvalidCredentials(MsgInvalidCredentials)
	}

	token, err := s.creds.IssueToken(account)
	if err != nil {
		return "", nil, err
	}
	return token, account.Safe(), nil
}

// GetAccount returns the account with the given id.
func (s *AccountService) GetAccount(ctx context.Context, id uint64) (*models.SafeAccount, error) {
	var account *models.Account
	err := s.tx.WithConn(ctx, func(db *gorm.DB) error {
		var err error
		account, err = s.accounts(db).GetByID(id)
		return err
	})
	if err != nil {
		return nil, notFoundAs(err, fmt.Sprintf(MsgUserNotFound, id))
	}
	return account.Safe(), nil
}

// UpdatePassword replaces the password of an existing account.
func (s *AccountService) UpdatePassword(ctx context.Context, id uint64, password string) (*models.SafeAccount, error) {
	if password == "" {
		return nil, apperr.BadRequest(MsgPasswordRequired)
	}

	hashed, err := s.creds.HashPassword(password)
	if err != nil {
		return nil, err
	}

	var updated *models.Account
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.accounts(tx)
		if _, err := repo.GetByID(id); err != nil {
			return err
		}
		var err error
		updated, err = repo.UpdatePassword(id, hashed)
		return err
	})
	if err != nil {
		return nil, notFoundAs(err, fmt.Sprintf(MsgUserNotFound, id))
	}

	s.log.Info("password updated", "account_id", id)
	return updated.Safe(), nil
}

// DeleteAccount removes an account and, through the store, its contacts.
func (s *AccountService) DeleteAccount(ctx context.Context, id uint64) (*models.SafeAccount, error) {
	var deleted *models.Account
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.accounts(tx)
		if _, err := repo.GetByID(id); err != nil {
			return err
		}
		var err error
		deleted, err = repo.Delete(id)
		return err
	})
	if err != nil {
		return nil, notFoundAs(err, fmt.Sprintf(MsgUserNotFound, id))
	}

	s.log.Info("account deleted", "account_id", id)
	publish(s.events, s.log, EventAccountDeleted, Event{OwnerID: id})
	return deleted.Safe(), nil
}
