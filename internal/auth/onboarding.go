package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/elskow/qwizme/internal/verification"
)

const maxUsernameRetries = 3

type OnboardingStatus struct {
	Step      int
	FirstName *string
	LastName  *string
	Email     *string
}

// Claim takes ownership of an unclaimed account by name and returns an
// onboarding token.
func (s *Service) Claim(ctx context.Context, firstName, lastName string) (string, *User, error) {
	matches, err := s.repository.FindByName(ctx, firstName, lastName, StepUnclaimed)
	if err != nil {
		return "", nil, err
	}
	if len(matches) == 0 {
		return "", nil, ErrNotFound
	}

	user := matches[0]
	user.OnboardingStep = StepNameClaimed
	if err := s.repository.Update(ctx, user); err != nil {
		return "", nil, err
	}
	onboardingTransitions.WithLabelValues(strconv.Itoa(StepNameClaimed)).Inc()

	token, err := s.tokens.IssuePurpose(user.ID, PurposeOnboarding, s.config.OnboardingTTL)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *Service) OnboardingStatus(user *User) OnboardingStatus {
	return OnboardingStatus{
		Step:      user.OnboardingStep,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
	}
}

// SetOnboardingEmail records the account email and sends a verification
// code to it.
func (s *Service) SetOnboardingEmail(ctx context.Context, user *User, email string) error {
	if user.OnboardingStep != StepNameClaimed {
		return ErrWrongStep
	}

	email = normalizeEmail(email)
	taken, err := s.repository.EmailTaken(ctx, email, user.ID)
	if err != nil {
		return err
	}
	if taken {
		return ErrEmailInUse
	}

	user.Email = strPtr(email)
	user.OnboardingStep = StepEmailSet
	if err := s.repository.Update(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return ErrEmailInUse
		}
		return err
	}
	onboardingTransitions.WithLabelValues(strconv.Itoa(StepEmailSet)).Inc()

	if err := s.sendOnboardingCode(ctx, user); err != nil {
		s.log.Warn("failed to send verification code", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	return nil
}

func (s *Service) VerifyOnboardingCode(ctx context.Context, user *User, code string) error {
	if user.OnboardingStep != StepEmailSet {
		return ErrWrongStep
	}

	ok, err := s.codes.Check(ctx, user.ID, verification.PurposeOnboardingEmail, code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCode
	}

	user.IsVerified = true
	user.OnboardingStep = StepEmailVerified
	if err := s.repository.Update(ctx, user); err != nil {
		return err
	}
	onboardingTransitions.WithLabelValues(strconv.Itoa(StepEmailVerified)).Inc()
	return nil
}

// ResendOnboardingCode replaces the outstanding code. A failed delivery is
// logged, a failed issuance is returned.
func (s *Service) ResendOnboardingCode(ctx context.Context, user *User) error {
	if user.OnboardingStep != StepEmailSet {
		return ErrWrongStep
	}

	err := s.sendOnboardingCode(ctx, user)
	if errors.Is(err, errDelivery) {
		s.log.Warn("failed to resend verification code", zap.Uint("user_id", user.ID), zap.Error(err))
		return nil
	}
	return err
}

// SetOnboardingPassword finishes onboarding. The account gets a generated
// username and becomes active.
func (s *Service) SetOnboardingPassword(ctx context.Context, user *User, password string) (string, error) {
	if user.OnboardingStep != StepEmailVerified {
		return "", ErrWrongStep
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = strPtr(hash)
	user.OnboardingStep = StepActive

	for attempt := 0; ; attempt++ {
		username, err := s.generateUsername(ctx, user)
		if err != nil {
			return "", err
		}
		user.Username = strPtr(username)

		err = s.repository.Update(ctx, user)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrDuplicate) || attempt == maxUsernameRetries {
			return "", err
		}
	}
	onboardingTransitions.WithLabelValues(strconv.Itoa(StepActive)).Inc()

	return s.tokens.IssueSession(user.ID)
}

var errDelivery = errors.New("delivery failed")

func (s *Service) sendOnboardingCode(ctx context.Context, user *User) error {
	code, err := s.codes.Issue(ctx, user.ID, verification.PurposeOnboardingEmail)
	if err != nil {
		return err
	}
	if err := s.mailer.SendVerificationCode(ctx, deref(user.Email), code); err != nil {
		notificationFailures.WithLabelValues("verification-code").Inc()
		return fmt.Errorf("%w: %v", errDelivery, err)
	}
	return nil
}

// generateUsername derives a username from the account's names, adding a
// numeric suffix until it is free: janesmith, janesmith1, janesmith2.
func (s *Service) generateUsername(ctx context.Context, user *User) (string, error) {
	base := usernameBase(deref(user.FirstName), deref(user.LastName))

	candidate := base
	for counter := 1; ; counter++ {
		taken, err := s.repository.UsernameTaken(ctx, candidate, user.ID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(counter)
	}
}

func usernameBase(firstName, lastName string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(firstName + lastName) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "user"
	}
	return b.String()
}
