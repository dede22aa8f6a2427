package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/billtrackerhq/billtracker-backend/internal/models"
	"github.com/billtrackerhq/billtracker-backend/internal/storage"
	"gorm.io/gorm"
)

// BillRepository defines the interface for bill data access
type BillRepository interface {
	Create(ctx context.Context, bill *models.Bill) error
	CreateWithFiles(ctx context.Context, bill *models.Bill, files []models.BillFile) error
	GetByID(ctx context.Context, id uint) (*models.Bill, error)
	GetByIDForUser(ctx context.Context, id, userID uint) (*models.Bill, error)
	GetByAnyFilename(ctx context.Context, filename string) (*models.Bill, error)
	ListOpenByUser(ctx context.Context, userID uint, search string) ([]models.Bill, error)
	ListPaidByUser(ctx context.Context, userID uint, search string, limit int) ([]models.Bill, error)
	ListOpenWithDueDate(ctx context.Context) ([]models.Bill, error)
	Update(ctx context.Context, bill *models.Bill) error
	MarkPaid(ctx context.Context, id, userID uint, paidAt time.Time) error
	Delete(ctx context.Context, id, userID uint) error
}

// billRepository implements BillRepository using GORM
type billRepository struct {
	db          *gorm.DB
	fileStorage storage.FileStorage
}

// NewBillRepository creates a new BillRepository instance
func NewBillRepository(db *gorm.DB, fileStorage storage.FileStorage) BillRepository {
	return &billRepository{db: db, fileStorage: fileStorage}
}

// Create creates a new bill record
func (r *billRepository) Create(ctx context.Context, bill *models.Bill) error {
	if bill.Status == "" {
		bill.Status = models.StatusOpen
	}
	result := r.db.WithContext(ctx).Create(bill)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return fmt.Errorf("bill with filename '%s' already exists: %w", bill.Filename, ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create bill: %w", result.Error)
	}
	return nil
}

// CreateWithFiles creates a bill and its additional files in one transaction
func (r *billRepository) CreateWithFiles(ctx context.Context, bill *models.Bill, files []models.BillFile) error {
	if bill.Status == "" {
		bill.Status = models.StatusOpen
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(bill).Error; err != nil {
			return err
		}
		for i := range files {
			files[i].BillID = bill.ID
			if err := tx.Create(&files[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("bill with filename '%s' already exists: %w", bill.Filename, ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create bill with files: %w", err)
	}
	return nil
}

// GetByID retrieves a bill with its additional files
func (r *billRepository) GetByID(ctx context.Context, id uint) (*models.Bill, error) {
	var bill models.Bill
	result := r.db.WithContext(ctx).Preload("Files").First(&bill, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get bill by ID: %w", result.Error)
	}
	return &bill, nil
}

// GetByIDForUser retrieves a bill only when it belongs to the given user
func (r *billRepository) GetByIDForUser(ctx context.Context, id, userID uint) (*models.Bill, error) {
	var bill models.Bill
	result := r.db.WithContext(ctx).Preload("Files").
		Where("id = ? AND user_id = ?", id, userID).First(&bill)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get bill for user: %w", result.Error)
	}
	return &bill, nil
}

// GetByAnyFilename resolves the owning bill for a stored filename, checking
// the primary filename first and additional bill files second.
func (r *billRepository) GetByAnyFilename(ctx context.Context, filename string) (*models.Bill, error) {
	var bill models.Bill
	result := r.db.WithContext(ctx).Where("filename = ?", filename).First(&bill)
	if result.Error == nil {
		return &bill, nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get bill by filename: %w", result.Error)
	}

	var bf models.BillFile
	result = r.db.WithContext(ctx).Where("filename = ?", filename).First(&bf)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get bill file by filename: %w", result.Error)
	}
	return r.GetByID(ctx, bf.BillID)
}

// ListOpenByUser retrieves the user's open bills ordered by due date with
// missing due dates last. An optional search term filters by title.
func (r *billRepository) ListOpenByUser(ctx context.Context, userID uint, search string) ([]models.Bill, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.StatusOpen)
	if search != "" {
		query = query.Where("title LIKE ?", "%"+search+"%")
	}

	var bills []models.Bill
	result := query.Order("due_date IS NULL").Order("due_date ASC").Find(&bills)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list open bills: %w", result.Error)
	}
	return bills, nil
}

// ListPaidByUser retrieves the user's paid bills newest-paid first.
// limit <= 0 returns all matches.
func (r *billRepository) ListPaidByUser(ctx context.Context, userID uint, search string, limit int) ([]models.Bill, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.StatusPaid)
	if search != "" {
		query = query.Where("title LIKE ?", "%"+search+"%")
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var bills []models.Bill
	result := query.Order("paid_at DESC").Find(&bills)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list paid bills: %w", result.Error)
	}
	return bills, nil
}

// ListOpenWithDueDate retrieves every open bill that has a due date, across
// all users, with owners preloaded. Used by the reminder job.
func (r *billRepository) ListOpenWithDueDate(ctx context.Context) ([]models.Bill, error) {
	var bills []models.Bill
	result := r.db.WithContext(ctx).Preload("User").
		Where("status = ? AND due_date IS NOT NULL", models.StatusOpen).
		Find(&bills)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list due bills: %w", result.Error)
	}
	return bills, nil
}

// Update saves changes to an existing bill
func (r *billRepository) Update(ctx context.Context, bill *models.Bill) error {
	result := r.db.WithContext(ctx).Save(bill)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return fmt.Errorf("bill with filename '%s' already exists: %w", bill.Filename, ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to update bill: %w", result.Error)
	}
	return nil
}

// MarkPaid transitions a bill to paid and records the payment time
func (r *billRepository) MarkPaid(ctx context.Context, id, userID uint, paidAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Bill{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{
			"status":  models.StatusPaid,
			"paid_at": paidAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark bill paid: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a bill owned by the user together with every stored file
// (primary and additional). Database rows go first; file removal is
// best-effort afterwards.
func (r *billRepository) Delete(ctx context.Context, id, userID uint) error {
	bill, err := r.GetByIDForUser(ctx, id, userID)
	if err != nil {
		return err
	}

	filenames := map[string]struct{}{bill.Filename: {}}
	for _, f := range bill.Files {
		filenames[f.Filename] = struct{}{}
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("bill_id = ?", bill.ID).Delete(&models.BillFile{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Bill{}, bill.ID).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete bill: %w", err)
	}

	if r.fileStorage != nil {
		for name := range filenames {
			_ = r.fileStorage.Delete(name)
		}
	}
	return nil
}
