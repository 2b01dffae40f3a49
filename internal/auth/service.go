package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/elskow/qwizme/internal/config"
	"github.com/elskow/qwizme/internal/cryptox"
	"github.com/elskow/qwizme/internal/verification"
)

// Dependencies are the collaborators a Service orchestrates.
type Dependencies struct {
	Repository Repository
	Hasher     PasswordHasher
	Tokens     *TokenService
	Codes      *verification.Store
	Mailer     *Mailer
	Sealer     *cryptox.Sealer
}

// Service implements the account lifecycle: registration, login, password
// reset, email verification, onboarding, administration and settings.
type Service struct {
	config *config.AuthConfig
	log    *zap.Logger

	repository Repository
	hasher     PasswordHasher
	tokens     *TokenService
	codes      *verification.Store
	mailer     *Mailer
	sealer     *cryptox.Sealer
}

func NewService(config *config.AuthConfig, log *zap.Logger, deps Dependencies) *Service {
	return &Service{
		config:     config,
		log:        log,
		repository: deps.Repository,
		hasher:     deps.Hasher,
		tokens:     deps.Tokens,
		codes:      deps.Codes,
		mailer:     deps.Mailer,
		sealer:     deps.Sealer,
	}
}

// Register creates an active account and returns a session token.
func (s *Service) Register(ctx context.Context, email, username, password string) (string, *User, error) {
	email = normalizeEmail(email)

	taken, err := s.repository.EmailTaken(ctx, email, 0)
	if err != nil {
		return "", nil, err
	}
	if taken {
		return "", nil, ErrEmailTaken
	}
	taken, err = s.repository.UsernameTaken(ctx, username, 0)
	if err != nil {
		return "", nil, err
	}
	if taken {
		return "", nil, ErrUsernameTaken
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		Email:          strPtr(email),
		Username:       strPtr(username),
		PasswordHash:   strPtr(hash),
		Role:           RoleUser,
		OnboardingStep: StepActive,
	}
	if err := s.repository.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return "", nil, s.duplicateReason(ctx, email)
		}
		return "", nil, err
	}
	registrations.Inc()

	token, err := s.tokens.IssueSession(user.ID)
	if err != nil {
		return "", nil, err
	}

	s.sendVerifyEmail(ctx, user)
	return token, user, nil
}

// Login authenticates by email. Unknown emails, wrong passwords and
// accounts that have not finished onboarding are indistinguishable.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	user, err := s.repository.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.burnHash(password)
			loginAttempts.WithLabelValues("email", "failure").Inc()
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) || !user.IsActive() {
		loginAttempts.WithLabelValues("email", "failure").Inc()
		return "", nil, ErrInvalidCredentials
	}

	return s.session(user, "email")
}

// LoginByName authenticates by first and last name. Several active
// accounts may share a name, the first whose password matches wins.
func (s *Service) LoginByName(ctx context.Context, firstName, lastName, password string) (string, *User, error) {
	candidates, err := s.repository.FindByName(ctx, firstName, lastName, StepActive)
	if err != nil {
		return "", nil, err
	}
	if len(candidates) == 0 {
		s.burnHash(password)
	}

	for _, user := range candidates {
		if s.hasher.Verify(password, user.PasswordHash) {
			return s.session(user, "name")
		}
	}

	loginAttempts.WithLabelValues("name", "failure").Inc()
	return "", nil, ErrInvalidCredentials
}

// ForgotPassword mails a reset link when the email belongs to an account.
// It reports success either way.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repository.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return err
	}

	token, err := s.tokens.IssuePurpose(user.ID, PurposeResetPassword, s.config.ResetTTL, BindPasswordHash(user.PasswordHash))
	if err != nil {
		s.log.Warn("failed to issue reset token", zap.Uint("user_id", user.ID), zap.Error(err))
		return nil
	}
	if err := s.mailer.SendResetPassword(ctx, deref(user.Email), token); err != nil {
		notificationFailures.WithLabelValues("reset-password").Inc()
		s.log.Warn("failed to send reset email", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	return nil
}

// ResetPassword sets a new password. The token stops validating once the
// password it was issued against has changed.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	claims, err := s.tokens.DecodePurpose(token, PurposeResetPassword)
	if err != nil {
		return err
	}

	user, err := s.userForToken(ctx, claims)
	if err != nil {
		return err
	}
	if err := checkFingerprint(claims, user.PasswordHash); err != nil {
		return ErrInvalidToken
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = strPtr(hash)
	return s.repository.Update(ctx, user)
}

func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	claims, err := s.tokens.DecodePurpose(token, PurposeVerifyEmail)
	if err != nil {
		return err
	}

	user, err := s.userForToken(ctx, claims)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return nil
	}
	user.IsVerified = true
	return s.repository.Update(ctx, user)
}

// Authenticate resolves a session token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	claims, err := s.tokens.DecodeSession(token)
	if err != nil {
		return nil, err
	}
	return s.userForToken(ctx, claims)
}

// AuthenticateOnboarding resolves an onboarding token to a user that has
// not finished onboarding.
func (s *Service) AuthenticateOnboarding(ctx context.Context, token string) (*User, error) {
	claims, err := s.tokens.DecodePurpose(token, PurposeOnboarding)
	if err != nil {
		return nil, err
	}
	user, err := s.userForToken(ctx, claims)
	if err != nil {
		return nil, err
	}
	if user.IsActive() {
		return nil, ErrOnboardingComplete
	}
	return user, nil
}

func (s *Service) userForToken(ctx context.Context, claims *Claims) (*User, error) {
	user, err := s.repository.GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) session(user *User, method string) (string, *User, error) {
	token, err := s.tokens.IssueSession(user.ID)
	if err != nil {
		return "", nil, err
	}
	loginAttempts.WithLabelValues(method, "success").Inc()
	return token, user, nil
}

func (s *Service) sendVerifyEmail(ctx context.Context, user *User) {
	token, err := s.tokens.IssuePurpose(user.ID, PurposeVerifyEmail, s.config.VerifyEmailTTL)
	if err != nil {
		s.log.Warn("failed to issue verify-email token", zap.Uint("user_id", user.ID), zap.Error(err))
		return
	}
	if err := s.mailer.SendVerifyEmail(ctx, deref(user.Email), token); err != nil {
		notificationFailures.WithLabelValues("verify-email").Inc()
		s.log.Warn("failed to send verification email", zap.Uint("user_id", user.ID), zap.Error(err))
	}
}

// burnHash spends the time a password check would have taken.
func (s *Service) burnHash(password string) {
	_, _ = s.hasher.Hash(password)
}

func (s *Service) duplicateReason(ctx context.Context, email string) error {
	if taken, err := s.repository.EmailTaken(ctx, email, 0); err == nil && taken {
		return ErrEmailTaken
	}
	return ErrUsernameTaken
}
