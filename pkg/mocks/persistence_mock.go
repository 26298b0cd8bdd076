package mocks

import (
	"context"

	"github.com/dukex/flowsmith/pkg/ledger"
	"github.com/dukex/flowsmith/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockDocumentRepository is a mock implementation of persistence.DocumentRepository interface.
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) List(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}

func (m *MockDocumentRepository) Resolve(ctx context.Context, ref string) (string, error) {
	args := m.Called(ctx, ref)

	return args.String(0), args.Error(1)
}

func (m *MockDocumentRepository) Load(ctx context.Context, path string) (*models.WorkflowDocument, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowDocument), args.Error(1)
}

func (m *MockDocumentRepository) LoadVersion(ctx context.Context, path string) (*models.WorkflowDocument, string, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}

	return args.Get(0).(*models.WorkflowDocument), args.String(1), args.Error(2)
}

func (m *MockDocumentRepository) Save(ctx context.Context, path string, doc *models.WorkflowDocument) error {
	args := m.Called(ctx, path, doc)

	return args.Error(0)
}

func (m *MockDocumentRepository) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockDocumentRepository) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

// MockLedgerStore is a mock implementation of ledger.Store and ledger.Locker.
type MockLedgerStore struct {
	mock.Mock
}

func (m *MockLedgerStore) Load(ctx context.Context) (models.ChangeRecords, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(models.ChangeRecords), args.Error(1)
}

func (m *MockLedgerStore) Save(ctx context.Context, records models.ChangeRecords) error {
	args := m.Called(ctx, records)

	return args.Error(0)
}

func (m *MockLedgerStore) Lock(ctx context.Context) (ledger.Unlock, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(ledger.Unlock), args.Error(1)
}

func (m *MockLedgerStore) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
