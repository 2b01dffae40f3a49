package auth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

const MaxBulkAccounts = 100

type NamePair struct {
	FirstName string
	LastName  string
}

// CreateAccount provisions one unclaimed account. An unclaimed account with
// the same name is a conflict.
func (s *Service) CreateAccount(ctx context.Context, admin *User, name NamePair) (*User, error) {
	if !admin.IsAdmin() {
		return nil, ErrForbidden
	}

	user, err := s.provision(ctx, s.repository, admin, name)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUnclaimedExists
	}
	return user, nil
}

// CreateAccounts provisions up to MaxBulkAccounts unclaimed accounts in one
// transaction. Names that already have an unclaimed account, including
// ones created earlier in the same batch, are skipped.
func (s *Service) CreateAccounts(ctx context.Context, admin *User, names []NamePair) ([]*User, int, error) {
	if !admin.IsAdmin() {
		return nil, 0, ErrForbidden
	}
	if len(names) > MaxBulkAccounts {
		return nil, 0, ErrTooManyAccounts
	}

	var (
		created []*User
		skipped int
	)
	err := s.repository.Transaction(ctx, func(repo Repository) error {
		created, skipped = nil, 0
		for _, name := range names {
			user, err := s.provision(ctx, repo, admin, name)
			if err != nil {
				return err
			}
			if user == nil {
				skipped++
				continue
			}
			created = append(created, user)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	if skipped > 0 {
		s.log.Info("bulk create skipped duplicates",
			zap.Int("created", len(created)),
			zap.Int("skipped", skipped),
		)
	}
	return created, skipped, nil
}

// provision returns a nil user when an unclaimed account with the name
// already exists.
func (s *Service) provision(ctx context.Context, repo Repository, admin *User, name NamePair) (*User, error) {
	first, last := strings.TrimSpace(name.FirstName), strings.TrimSpace(name.LastName)

	existing, err := repo.FindByName(ctx, first, last, StepUnclaimed)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, nil
	}

	adminID := admin.ID
	user := &User{
		FirstName:      strPtr(first),
		LastName:       strPtr(last),
		Role:           RoleUser,
		OnboardingStep: StepUnclaimed,
		CreatedByID:    &adminID,
	}
	if err := repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) ListAccounts(ctx context.Context, admin *User, status string) ([]*User, error) {
	if !admin.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.repository.ListProvisioned(ctx, status)
}

// DeleteAccount removes an admin-provisioned account. Self-registered
// accounts are reported as not found.
func (s *Service) DeleteAccount(ctx context.Context, founder *User, id uint) error {
	if !founder.IsFounder() {
		return ErrForbidden
	}

	user, err := s.repository.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrNotFound
		}
		return err
	}
	if !user.IsProvisioned() {
		return ErrNotFound
	}
	if user.IsFounder() {
		return ErrFounderImmutable
	}

	if err := s.repository.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.log.Info("account deleted", zap.Uint("user_id", id), zap.Uint("founder_id", founder.ID))
	return nil
}

// Promote sets the role of another user to admin or user. Founders cannot
// be changed.
func (s *Service) Promote(ctx context.Context, founder *User, id uint, role string) (*User, error) {
	if role != RoleAdmin && role != RoleUser {
		return nil, ErrInvalidRole
	}

	user, err := s.repository.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if user.IsFounder() {
		return nil, ErrFounderImmutable
	}
	if !founder.IsFounder() {
		return nil, ErrForbidden
	}

	user.Role = role
	if err := s.repository.Update(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("user role changed",
		zap.Uint("user_id", user.ID),
		zap.String("role", role),
		zap.Uint("founder_id", founder.ID),
	)
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context, founder *User) ([]*User, error) {
	if !founder.IsFounder() {
		return nil, ErrForbidden
	}
	return s.repository.ListUsers(ctx)
}
