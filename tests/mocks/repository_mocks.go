package mocks

import (
	"context"
	"time"

	"github.com/billtrackerhq/billtracker-backend/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository implements repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

// Create creates a new user
func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// GetByID retrieves a user by its ID
func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// GetByEmail retrieves a user by email address
func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// ListWithMailbox retrieves all users with mailbox credentials configured
func (m *MockUserRepository) ListWithMailbox(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

// Update saves changes to an existing user
func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// Delete deletes a user by its ID
func (m *MockUserRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockBillRepository implements repository.BillRepository
type MockBillRepository struct {
	mock.Mock
}

// Create creates a new bill
func (m *MockBillRepository) Create(ctx context.Context, bill *models.Bill) error {
	args := m.Called(ctx, bill)
	return args.Error(0)
}

// CreateWithFiles creates a bill and its additional files in a transaction
func (m *MockBillRepository) CreateWithFiles(ctx context.Context, bill *models.Bill, files []models.BillFile) error {
	args := m.Called(ctx, bill, files)
	return args.Error(0)
}

// GetByID retrieves a bill by its ID
func (m *MockBillRepository) GetByID(ctx context.Context, id uint) (*models.Bill, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bill), args.Error(1)
}

// GetByIDForUser retrieves a bill belonging to the given user
func (m *MockBillRepository) GetByIDForUser(ctx context.Context, id, userID uint) (*models.Bill, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bill), args.Error(1)
}

// GetByAnyFilename resolves the owning bill for a stored filename
func (m *MockBillRepository) GetByAnyFilename(ctx context.Context, filename string) (*models.Bill, error) {
	args := m.Called(ctx, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bill), args.Error(1)
}

// ListOpenByUser retrieves the user's open bills
func (m *MockBillRepository) ListOpenByUser(ctx context.Context, userID uint, search string) ([]models.Bill, error) {
	args := m.Called(ctx, userID, search)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Bill), args.Error(1)
}

// ListPaidByUser retrieves the user's paid bills
func (m *MockBillRepository) ListPaidByUser(ctx context.Context, userID uint, search string, limit int) ([]models.Bill, error) {
	args := m.Called(ctx, userID, search, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Bill), args.Error(1)
}

// ListOpenWithDueDate retrieves every open bill with a due date
func (m *MockBillRepository) ListOpenWithDueDate(ctx context.Context) ([]models.Bill, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Bill), args.Error(1)
}

// Update saves changes to an existing bill
func (m *MockBillRepository) Update(ctx context.Context, bill *models.Bill) error {
	args := m.Called(ctx, bill)
	return args.Error(0)
}

// MarkPaid transitions a bill to paid
func (m *MockBillRepository) MarkPaid(ctx context.Context, id, userID uint, paidAt time.Time) error {
	args := m.Called(ctx, id, userID, paidAt)
	return args.Error(0)
}

// Delete removes a bill and its stored files
func (m *MockBillRepository) Delete(ctx context.Context, id, userID uint) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}
