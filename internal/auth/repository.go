package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/elskow/qwizme/internal/database"
)

var ErrDuplicate = errors.New("duplicate user")

type Repository interface {
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id uint) error

	GetByID(ctx context.Context, id uint) (*User, error)
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*User, error)
	// FindByName returns users at the given onboarding step whose first and
	// last names match case-insensitively, oldest first.
	FindByName(ctx context.Context, firstName, lastName string, step int) ([]*User, error)

	EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error)
	UsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error)

	ListUsers(ctx context.Context) ([]*User, error)
	ListProvisioned(ctx context.Context, status string) ([]*User, error)

	// Transaction runs fn against a repository bound to one transaction.
	Transaction(ctx context.Context, fn func(repo Repository) error) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, user *User) error {
	return classify(r.db.WithContext(ctx).Create(user).Error)
}

func (r *repository) Update(ctx context.Context, user *User) error {
	return classify(r.db.WithContext(ctx).Save(user).Error)
}

func (r *repository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&User{}, id)
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uint) (*User, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.first(r.db.WithContext(ctx).Where("LOWER(email) = ?", normalizeEmail(email)))
}

func (r *repository) FindByName(ctx context.Context, firstName, lastName string, step int) ([]*User, error) {
	var users []*User
	err := r.db.WithContext(ctx).
		Where("LOWER(first_name) = ? AND LOWER(last_name) = ? AND onboarding_step = ?",
			normalizeName(firstName), normalizeName(lastName), step).
		Order("id ASC").
		Find(&users).Error
	if err != nil {
		return nil, classify(err)
	}
	return users, nil
}

func (r *repository) EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error) {
	return r.exists(r.db.WithContext(ctx).
		Where("LOWER(email) = ? AND id <> ?", normalizeEmail(email), excludeID))
}

func (r *repository) UsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error) {
	return r.exists(r.db.WithContext(ctx).
		Where("username = ? AND id <> ?", username, excludeID))
}

func (r *repository) ListUsers(ctx context.Context) ([]*User, error) {
	var users []*User
	if err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&users).Error; err != nil {
		return nil, classify(err)
	}
	return users, nil
}

func (r *repository) ListProvisioned(ctx context.Context, status string) ([]*User, error) {
	q := r.db.WithContext(ctx).Where("created_by_id IS NOT NULL")
	switch status {
	case StatusUnclaimed:
		q = q.Where("onboarding_step = ?", StepUnclaimed)
	case StatusInProgress:
		q = q.Where("onboarding_step > ? AND onboarding_step < ?", StepUnclaimed, StepActive)
	case StatusComplete:
		q = q.Where("onboarding_step >= ?", StepActive)
	}

	var users []*User
	if err := q.Order("created_at DESC, id DESC").Find(&users).Error; err != nil {
		return nil, classify(err)
	}
	return users, nil
}

func (r *repository) Transaction(ctx context.Context, fn func(repo Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&repository{db: tx})
	})
}

func (r *repository) first(q *gorm.DB) (*User, error) {
	var user User
	if err := q.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, classify(err)
	}
	return &user, nil
}

func (r *repository) exists(q *gorm.DB) (bool, error) {
	var count int64
	if err := q.Model(&User{}).Limit(1).Count(&count).Error; err != nil {
		return false, classify(err)
	}
	return count > 0, nil
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if database.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return database.Classify(err)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
