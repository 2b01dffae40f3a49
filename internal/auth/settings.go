package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/elskow/qwizme/internal/verification"
)

type SettingsView struct {
	AIProvider *string
	HasAPIKey  bool
	IsVerified bool
}

type SettingsUpdate struct {
	// AIProvider set to "" clears the provider and the stored key.
	AIProvider *string
	// AIAPIKey set to "" clears the stored key.
	AIAPIKey *string
}

type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Username  *string
}

func (s *Service) Settings(user *User) SettingsView {
	return SettingsView{
		AIProvider: user.AIProvider,
		HasAPIKey:  deref(user.AIAPIKeyEncrypted) != "",
		IsVerified: user.IsVerified,
	}
}

func (s *Service) UpdateSettings(ctx context.Context, user *User, update SettingsUpdate) (SettingsView, error) {
	if update.AIProvider != nil {
		if *update.AIProvider == "" {
			user.AIProvider = nil
			user.AIAPIKeyEncrypted = nil
		} else {
			user.AIProvider = strPtr(*update.AIProvider)
		}
	}

	if update.AIAPIKey != nil {
		if *update.AIAPIKey == "" {
			user.AIAPIKeyEncrypted = nil
		} else {
			if s.sealer == nil || !s.sealer.Enabled() {
				return SettingsView{}, ErrKeyStorage
			}
			sealed, err := s.sealer.Seal(*update.AIAPIKey)
			if err != nil {
				return SettingsView{}, fmt.Errorf("seal api key: %w", err)
			}
			user.AIAPIKeyEncrypted = strPtr(sealed)
		}
	}

	if err := s.repository.Update(ctx, user); err != nil {
		return SettingsView{}, err
	}
	return s.Settings(user), nil
}

func (s *Service) UpdateProfile(ctx context.Context, user *User, update ProfileUpdate) (*User, error) {
	if update.FirstName != nil {
		user.FirstName = strPtr(strings.TrimSpace(*update.FirstName))
	}
	if update.LastName != nil {
		user.LastName = strPtr(strings.TrimSpace(*update.LastName))
	}
	if update.Username != nil && *update.Username != deref(user.Username) {
		taken, err := s.repository.UsernameTaken(ctx, *update.Username, user.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrUsernameTaken
		}
		user.Username = strPtr(*update.Username)
	}

	if err := s.repository.Update(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return user, nil
}

// RequestEmailChange records email as pending and sends a code and a
// confirmation link to it. The current email stays in place until one of
// them is used.
func (s *Service) RequestEmailChange(ctx context.Context, user *User, email string) error {
	email = normalizeEmail(email)

	taken, err := s.repository.EmailTaken(ctx, email, user.ID)
	if err != nil {
		return err
	}
	if taken {
		return ErrEmailInUse
	}

	user.PendingEmail = strPtr(email)
	if err := s.repository.Update(ctx, user); err != nil {
		return err
	}

	code, err := s.codes.Issue(ctx, user.ID, verification.PurposeEmailChange)
	if err != nil {
		s.log.Warn("failed to issue email change code", zap.Uint("user_id", user.ID), zap.Error(err))
		return nil
	}
	token, err := s.tokens.IssuePurpose(user.ID, PurposeEmailChange, s.config.EmailChangeTTL, BindEmail(email))
	if err != nil {
		s.log.Warn("failed to issue email change token", zap.Uint("user_id", user.ID), zap.Error(err))
		return nil
	}
	if err := s.mailer.SendEmailChange(ctx, email, code, token); err != nil {
		notificationFailures.WithLabelValues("email-change").Inc()
		s.log.Warn("failed to send email change", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	return nil
}

// ConfirmEmailChangeCode applies the pending email using the mailed code.
func (s *Service) ConfirmEmailChangeCode(ctx context.Context, user *User, code string) (*User, error) {
	if user.PendingEmail == nil {
		return nil, ErrNoPendingEmail
	}

	ok, err := s.codes.Check(ctx, user.ID, verification.PurposeEmailChange, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCode
	}
	return s.applyEmailChange(ctx, user)
}

// ConfirmEmailChangeToken applies the pending email using the mailed link.
// The link only works for the address it was sent to.
func (s *Service) ConfirmEmailChangeToken(ctx context.Context, token string) (*User, error) {
	claims, err := s.tokens.DecodePurpose(token, PurposeEmailChange)
	if err != nil {
		return nil, err
	}
	user, err := s.userForToken(ctx, claims)
	if err != nil {
		return nil, err
	}
	if user.PendingEmail == nil || normalizeEmail(*user.PendingEmail) != normalizeEmail(claims.Email) {
		return nil, ErrInvalidToken
	}
	return s.applyEmailChange(ctx, user)
}

func (s *Service) applyEmailChange(ctx context.Context, user *User) (*User, error) {
	email := deref(user.PendingEmail)

	taken, err := s.repository.EmailTaken(ctx, email, user.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailInUse
	}

	user.Email = strPtr(email)
	user.PendingEmail = nil
	user.IsVerified = true
	if err := s.repository.Update(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, ErrEmailInUse
		}
		return nil, err
	}
	return user, nil
}
