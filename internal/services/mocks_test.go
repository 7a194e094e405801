package services_test

import (
	"context"
	"errors"
	"sync"

	"contactbook/internal/models"
	"contactbook/internal/repositories"

	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// MockAccountRepository is a mock implementation of repositories.AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByName(name string) (*models.Account, error) {
	args := m.Called(name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByID(id uint64) (*models.Account, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) Create(account *models.Account) (uint64, error) {
	args := m.Called(account)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockAccountRepository) UpdatePassword(id uint64, hashedPassword string) (*models.Account, error) {
	args := m.Called(id, hashedPassword)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) Delete(id uint64) (*models.Account, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func accountFactory(repo repositories.AccountRepository) repositories.AccountRepositoryFactory {
	return func(*gorm.DB) repositories.AccountRepository { return repo }
}

// MockCredentials is a mock implementation of services.Credentials
type MockCredentials struct {
	mock.Mock
}

func (m *MockCredentials) HashPassword(plain string) (string, error) {
	args := m.Called(plain)
	return args.String(0), args.Error(1)
}

func (m *MockCredentials) ComparePassword(hashed, plain string) error {
	args := m.Called(hashed, plain)
	return args.Error(0)
}

func (m *MockCredentials) IssueToken(account *models.Account) (string, error) {
	args := m.Called(account)
	return args.String(0), args.Error(1)
}

// MockPublisher is a mock implementation of services.EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishEvent(eventType string, payload interface{}) error {
	args := m.Called(eventType, payload)
	return args.Error(0)
}

// fakeTransactor runs work without a store and records how each unit ended.
type fakeTransactor struct {
	mu        sync.Mutex
	conns     int
	commits   int
	rollbacks int
}

func (f *fakeTransactor) WithConn(_ context.Context, fn func(db *gorm.DB) error) error {
	f.mu.Lock()
	f.conns++
	f.mu.Unlock()
	return fn(nil)
}

func (f *fakeTransactor) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	err := fn(nil)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.rollbacks++
		return err
	}
	f.commits++
	return nil
}

var errStoreDown = errors.New("connection reset by peer")
