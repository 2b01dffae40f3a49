package verification

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/elskow/qwizme/internal/database"
)

var ErrCodeNotFound = errors.New("verification code not found")

type Repository interface {
	// Replace deletes every code for (code.UserID, code.Purpose) and stores
	// code in the same transaction.
	Replace(ctx context.Context, code *Code) error
	Latest(ctx context.Context, userID uint, purpose string) (*Code, error)
	// IncrementAttempts counts one attempt against code id unless it
	// already has limit attempts. It reports whether the attempt was counted.
	IncrementAttempts(ctx context.Context, id uint, limit int) (bool, error)
	Delete(ctx context.Context, id uint) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Replace(ctx context.Context, code *Code) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("user_id = ? AND purpose = ?", code.UserID, code.Purpose).
			Delete(&Code{}).Error; err != nil {
			return err
		}
		return tx.Create(code).Error
	})
	return database.Classify(err)
}

func (r *repository) Latest(ctx context.Context, userID uint, purpose string) (*Code, error) {
	var code Code
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND purpose = ?", userID, purpose).
		Order("created_at DESC, id DESC").
		First(&code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, database.Classify(err)
	}
	return &code, nil
}

func (r *repository) IncrementAttempts(ctx context.Context, id uint, limit int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&Code{}).
		Where("id = ? AND attempts < ?", id, limit).
		UpdateColumn("attempts", gorm.Expr("attempts + 1"))
	if result.Error != nil {
		return false, database.Classify(result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) Delete(ctx context.Context, id uint) error {
	return database.Classify(r.db.WithContext(ctx).Delete(&Code{}, id).Error)
}
