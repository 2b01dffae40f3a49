package auth

import (
	"errors"

	"github.com/elskow/qwizme/internal/database"
)

var (
	ErrUserNotFound = errors.New("user not found")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidCode        = errors.New("invalid or expired code")

	ErrEmailTaken      = errors.New("email already registered")
	ErrEmailInUse      = errors.New("email already in use")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrUnclaimedExists = errors.New("an unclaimed account with this name already exists")

	ErrWrongStep            = errors.New("invalid onboarding step")
	ErrOnboardingComplete   = errors.New("onboarding already complete")
	ErrOnboardingIncomplete = errors.New("account onboarding not complete")

	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrFounderImmutable = errors.New("cannot change founder role")
	ErrInvalidRole      = errors.New("role must be admin or user")

	ErrNoPendingEmail  = errors.New("no pending email change")
	ErrTooManyAccounts = errors.New("too many accounts in one request")
	ErrKeyStorage      = errors.New("api key storage not configured")

	// ErrUnavailable is the repository's connectivity failure.
	ErrUnavailable = database.ErrUnavailable
)
