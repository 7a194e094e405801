package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"contactbook/internal/apperr"
	"contactbook/internal/models"
	"contactbook/internal/services"
	"contactbook/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, apperr.ErrNotFound)
}

func newAccountService(repo *MockAccountRepository, creds *MockCredentials, pub services.EventPublisher) (*services.AccountService, *fakeTransactor) {
	tx := &fakeTransactor{}
	return services.NewAccountService(tx, accountFactory(repo), creds, pub, logger.Nop()), tx
}

func assertMessage(t *testing.T, err error, kind error, message string) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, kind)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, message, appErr.Message)
}

func TestAccountService_Signup(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockAccountRepository)
	creds := new(MockCredentials)
	service, tx := newAccountService(mockRepo, creds, nil)

	creds.On("HashPassword", "pw1").Return("hashed-pw1", nil)
	mockRepo.On("GetByName", "alice").Return(nil, notFound("account alice")).Once()
	mockRepo.On("Create", mock.MatchedBy(func(a *models.Account) bool {
		return a.Name == "alice" && a.Password == "hashed-pw1"
	})).Run(func(args mock.Arguments) {
		args.Get(0).(*models.Account).ID = 1
	}).Return(uint64(1), nil).Once()

	account, err := service.Signup(ctx, "  alice ", "pw1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), account.ID)
	assert.Equal(t, "alice", account.Name)
	assert.Equal(t, 1, tx.commits)

	// Test user name already taken
	mockRepo.On("GetByName", "alice").Return(&models.Account{ID: 1, Name: "alice"}, nil).Once()
	_, err = service.Signup(ctx, "alice", "pw1")
	assertMessage(t, err, apperr.ErrConflict, services.MsgUserNameTaken)
	assert.Equal(t, 1, tx.rollbacks)

	mockRepo.AssertExpectations(t)
}

func TestAccountService_SignupLosesRaceToUniqueIndex(t *testing.T) {
	mockRepo := new(MockAccountRepository)
	creds := new(MockCredentials)
	service, tx := newAccountService(mockRepo, creds, nil)

	creds.On("HashPassword", "pw2").Return("hashed-pw2", nil)
	mockRepo.On("GetByName", "alice").Return(nil, notFound("account alice")).Once()
	mockRepo.On("Create", mock.AnythingOfType("*models.Account")).
		Return(uint64(0), fmt.Errorf("account alice: %w", apperr.ErrConflict)).Once()

	_, err := service.Signup(context.Background(), "alice", "pw2")
	assertMessage(t, err, apperr.ErrConflict, services.MsgUserNameTaken)
	assert.Equal(t, 1, tx.rollbacks)
	mockRepo.AssertExpectations(t)
}

func TestAccountService_SignupValidationAndStoreErrors(t *testing.T) {
	mockRepo := new(MockAccountRepository)
	creds := new(MockCredentials)
	service, tx := newAccountService(mockRepo, creds, nil)

	_, err := service.Signup(context.Background(), "", "pw")
	assertMessage(t, err, apperr.ErrBadRequest, services.MsgSignupFieldsRequired)
	_, err = service.Signup(context.Background(), "alice", "")
	assertMessage(t, err, apperr.ErrBadRequest, services.MsgSignupFieldsRequired)
	assert.Zero(t, tx.commits+tx.rollbacks, "no transaction for invalid input")

	// A store failure is not mistaken for "name is free".
	creds.On("HashPassword", "pw").Return("hashed", nil)
	mockRepo.On("GetByName", "alice").Return(nil, apperr.Query(errStoreDown)).Once()
	_, err = service.Signup(context.Background(), "alice", "pw")
	assert.ErrorIs(t, err, apperr.ErrQuery)
	assert.NotErrorIs(t, err, apperr.ErrConflict)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestAccountService_Login(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockAccountRepository)
	creds := new(MockCredentials)
	service, tx := newAccountService(mockRepo, creds, nil)

	stored := &models.Account{ID: 5, Name: "alice", Password: "hashed-pw1"}

	// Test successful login
	mockRepo.On("GetByName", "alice").Return(stored, nil)
	creds.On("ComparePassword", "hashed-pw1", "pw1").Return(nil).Once()
	creds.On("IssueToken", stored).Return("signed-token", nil).Once()

	token, account, err := service.Login(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, "signed-token", token)
	assert.Equal(t, uint64(5), account.ID)
	assert.Equal(t, 1, tx.conns)
	assert.Zero(t, tx.commits, "login never opens a transaction")

	// Test invalid credentials (wrong password)
	creds.On("ComparePassword", "hashed-pw1", "wrong").Return(errors.New("mismatch")).Once()
	_, _, err = service.Login(ctx, "alice", "wrong")
	assertMessage(t, err, apperr.ErrInvalidCredentials, services.MsgInvalidCredentials)

	// Test invalid credentials (user not found)
	mockRepo.On("GetByName", "nobody").Return(nil, notFound("account nobody")).Once()
	_, _, err = service.Login(ctx, "nobody", "pw1")
	assertMessage(t, err, apperr.ErrInvalidCredentials, services.MsgInvalidCredentials)

	// Store failures stay internal
	mockRepo.On("GetByName", "bob").Return(nil, apperr.Query(errStoreDown)).Once()
	_, _, err = service.Login(ctx, "bob", "pw1")
	assert.ErrorIs(t, err, apperr.ErrQuery)
	assert.False(t, apperr.IsClientError(err))

	creds.AssertExpectations(t)
}

func TestAccountService_GetAccount(t *testing.T) {
	mockRepo := new(MockAccountRepository)
	service, _ := newAccountService(mockRepo, new(MockCredentials), nil)

	mockRepo.On("GetByID", uint64(5)).Return(&models.Account{ID: 5, Name: "alice", Password: "h"}, nil).Once()
	account, err := service.GetAccount(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "alice", account.Name)

	mockRepo.On("GetByID", uint64(9)).Return(nil, notFound("account 9")).Once()
	_, err = service.GetAccount(context.Background(), 9)
	assertMessage(t, err, apperr.ErrNotFound, "Unable To Find User With Id 9")
}

func TestAccountService_UpdatePassword(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockAccountRepository)
	creds := new(MockCredentials)
	service, tx := newAccountService(mockRepo, creds, nil)

	_, err := service.UpdatePassword(ctx, 5, "")
	assertMessage(t, err, apperr.ErrBadRequest, services.MsgPasswordRequired)

	creds.On("HashPassword", "new").Return("hashed-new", nil)
	mockRepo.On("GetByID", uint64(5)).Return(&models.Account{ID: 5, Name: "alice"}, nil).Once()
	mockRepo.On("UpdatePassword", uint64(5), "hashed-new").
		Return(&models.Account{ID: 5, Name: "alice", Password: "hashed-new"}, nil).Once()

	account, err := service.UpdatePassword(ctx, 5, "new")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), account.ID)
	assert.Equal(t, 1, tx.commits)

	mockRepo.On("GetByID", uint64(6)).Return(nil, notFound("account 6")).Once()
	_, err = service.UpdatePassword(ctx, 6, "new")
	assertMessage(t, err, apperr.ErrNotFound, "Unable To Find User With Id 6")
	assert.Equal(t, 1, tx.rollbacks)
	mockRepo.AssertNotCalled(t, "UpdatePassword", uint64(6), mock.Anything)
}

func TestAccountService_DeleteAccount(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockAccountRepository)
	pub := new(MockPublisher)
	service, tx := newAccountService(mockRepo, new(MockCredentials), pub)

	mockRepo.On("GetByID", uint64(5)).Return(&models.Account{ID: 5, Name: "alice"}, nil).Once()
	mockRepo.On("Delete", uint64(5)).Return(&models.Account{ID: 5, Name: "alice", Password: "h"}, nil).Once()
	pub.On("PublishEvent", services.EventAccountDeleted, mock.MatchedBy(func(e services.Event) bool {
		return e.OwnerID == 5 && e.Type == services.EventAccountDeleted
	})).Return(nil).Once()

	deleted, err := service.DeleteAccount(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "alice", deleted.Name)
	assert.Equal(t, 1, tx.commits)
	pub.AssertExpectations(t)

	// Not found: nothing is deleted and nothing is published.
	mockRepo.On("GetByID", uint64(6)).Return(nil, notFound("account 6")).Once()
	_, err = service.DeleteAccount(ctx, 6)
	assertMessage(t, err, apperr.ErrNotFound, "Unable To Find User With Id 6")
	mockRepo.AssertNotCalled(t, "Delete", uint64(6))
	pub.AssertNumberOfCalls(t, "PublishEvent", 1)
}

func TestAccountService_PublishFailureDoesNotFailDelete(t *testing.T) {
	mockRepo := new(MockAccountRepository)
	pub := new(MockPublisher)
	service, _ := newAccountService(mockRepo, new(MockCredentials), pub)

	mockRepo.On("GetByID", uint64(5)).Return(&models.Account{ID: 5}, nil).Once()
	mockRepo.On("Delete", uint64(5)).Return(&models.Account{ID: 5}, nil).Once()
	pub.On("PublishEvent", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	_, err := service.DeleteAccount(context.Background(), 5)
	assert.NoError(t, err)
}
