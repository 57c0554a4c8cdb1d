package repository

import (
	"context"
	"errors"

	"github.com/burnbox/backend/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrNotFound reports that no transfer row exists for a token.
	ErrNotFound = errors.New("transfer not found")

	// ErrDuplicateToken reports a unique-index violation on create. The
	// caller retries with a fresh token instead of overwriting.
	ErrDuplicateToken = errors.New("token already exists")
)

// TransferRepository owns all reads and writes of transfer rows. The
// database is the sole arbiter of redemption races: Consume is a single
// conditional UPDATE, never a read followed by a write.
type TransferRepository struct {
	DB *gorm.DB
}

func NewTransferRepository(db *gorm.DB) *TransferRepository {
	return &TransferRepository{DB: db}
}

func (r *TransferRepository) Create(ctx context.Context, transfer *models.Transfer) error {
	err := r.DB.WithContext(ctx).Create(transfer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateToken
		}
		return err
	}
	return nil
}

func (r *TransferRepository) FindByToken(ctx context.Context, token string) (*models.Transfer, error) {
	var transfer models.Transfer
	err := r.DB.WithContext(ctx).First(&transfer, "token = ?", token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &transfer, nil
}

// Consume flips the consumed flag false to true for a token and reports
// whether this caller won. The WHERE clause scopes the update to the
// unconsumed row, so of N concurrent callers exactly one sees a row
// affected; the rest lost the race.
func (r *TransferRepository) Consume(ctx context.Context, token string) (bool, error) {
	result := r.DB.WithContext(ctx).
		Model(&models.Transfer{}).
		Where("token = ? AND consumed = ?", token, false).
		Update("consumed", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
