package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elskow/qwizme/internal/database"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(4)

	digest, err := h.Hash("testpassword123")
	require.NoError(t, err)
	assert.NotEqual(t, "testpassword123", digest)

	tests := []struct {
		name   string
		plain  string
		digest *string
		want   bool
	}{
		{"match", "testpassword123", &digest, true},
		{"mismatch", "wrong", &digest, false},
		{"nil digest", "testpassword123", nil, false},
		{"empty digest", "testpassword123", strPtr(""), false},
		{"garbage digest", "testpassword123", strPtr("not-a-bcrypt-hash"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.Verify(tt.plain, tt.digest))
		})
	}
}

func TestService_RegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	token, user, err := env.svc.Register(ctx, "A@X.com", "a", "pw123456")
	require.NoError(t, err)
	assert.Equal(t, StepActive, user.OnboardingStep)
	assert.Equal(t, RoleUser, user.Role)
	assert.Equal(t, "a@x.com", deref(user.Email))
	assert.False(t, user.IsVerified)

	claims, err := env.tokens.DecodeSession(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID())

	loginToken, loggedIn, err := env.svc.Login(ctx, "a@x.com", "pw123456")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	loginClaims, err := env.tokens.DecodeSession(loginToken)
	require.NoError(t, err)
	assert.Equal(t, claims.Subject, loginClaims.Subject)
}

func TestService_LoginFailuresAreUniform(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.svc.Register(ctx, "a@x.com", "a", "pw123456")
	require.NoError(t, err)

	_, _, wrongPassword := env.svc.Login(ctx, "a@x.com", "nope")
	_, _, unknownEmail := env.svc.Login(ctx, "ghost@x.com", "pw123456")

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestService_LoginRequiresActiveAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hash, err := env.svc.hasher.Hash("pw123456")
	require.NoError(t, err)
	env.seed(t, &User{
		Email:          strPtr("half@x.com"),
		PasswordHash:   strPtr(hash),
		OnboardingStep: StepEmailVerified,
	})

	_, _, err = env.svc.Login(ctx, "half@x.com", "pw123456")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_RegisterConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.svc.Register(ctx, "a@x.com", "alice", "pw123456")
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		username string
		wantErr  error
	}{
		{"same email", "a@x.com", "other", ErrEmailTaken},
		{"email differs in case", "A@X.COM", "other", ErrEmailTaken},
		{"same username", "b@x.com", "alice", ErrUsernameTaken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.svc.Register(ctx, tt.email, tt.username, "pw123456")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_RegisterSendsVerifyEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, user, err := env.svc.Register(ctx, "a@x.com", "a", "pw123456")
	require.NoError(t, err)

	msg := env.notifier.last(t)
	assert.Equal(t, "a@x.com", msg.To)
	assert.Contains(t, msg.HTML, "/verify-email?token=")

	require.NoError(t, env.svc.VerifyEmail(ctx, env.notifier.lastToken(t)))
	assert.True(t, env.reload(t, user.ID).IsVerified)
}

func TestService_RegisterSurvivesMailFailure(t *testing.T) {
	env := newTestEnv(t)
	env.notifier.err = errors.New("smtp down")

	token, user, err := env.svc.Register(context.Background(), "a@x.com", "a", "pw123456")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotZero(t, user.ID)
}

func TestService_LoginByName(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seedNamed := func(first, last, password string, step int) *User {
		hash, err := env.svc.hasher.Hash(password)
		require.NoError(t, err)
		return env.seed(t, &User{
			FirstName:      strPtr(first),
			LastName:       strPtr(last),
			PasswordHash:   strPtr(hash),
			OnboardingStep: step,
		})
	}

	first := seedNamed("Jane", "Smith", "first-pw", StepActive)
	second := seedNamed("jane", "smith", "second-pw", StepActive)
	seedNamed("Jane", "Smith", "pending-pw", StepEmailVerified)

	tests := []struct {
		name     string
		password string
		wantID   uint
		wantErr  error
	}{
		{"first account", "first-pw", first.ID, nil},
		{"second account", "second-pw", second.ID, nil},
		{"not yet active", "pending-pw", 0, ErrInvalidCredentials},
		{"wrong password", "nope", 0, ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, user, err := env.svc.LoginByName(ctx, " JANE ", "Smith", tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, user.ID)
		})
	}

	_, _, err := env.svc.LoginByName(ctx, "No", "Body", "first-pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_ForgotAndResetPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.seedActive(t, "a@x.com", "old-password", RoleUser)
	sent := env.notifier.count()

	require.NoError(t, env.svc.ForgotPassword(ctx, "ghost@x.com"))
	assert.Equal(t, sent, env.notifier.count(), "no mail for unknown email")

	require.NoError(t, env.svc.ForgotPassword(ctx, "A@x.com"))
	msg := env.notifier.last(t)
	assert.Equal(t, "a@x.com", msg.To)
	assert.Contains(t, msg.HTML, "/reset-password?token=")
	token := env.notifier.lastToken(t)

	require.NoError(t, env.svc.ResetPassword(ctx, token, "new-password"))

	_, _, err := env.svc.Login(ctx, "a@x.com", "old-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, loggedIn, err := env.svc.Login(ctx, "a@x.com", "new-password")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)

	// The password changed, so the same link no longer works.
	err = env.svc.ResetPassword(ctx, token, "third-password")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_ResetPasswordRejectsOtherTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.seedActive(t, "a@x.com", "old-password", RoleUser)

	session, err := env.tokens.IssueSession(user.ID)
	require.NoError(t, err)
	verify, err := env.tokens.IssuePurpose(user.ID, PurposeVerifyEmail, time.Hour)
	require.NoError(t, err)
	expired, err := env.tokens.IssuePurpose(user.ID, PurposeResetPassword, time.Hour, BindPasswordHash(user.PasswordHash))
	require.NoError(t, err)
	env.clock.Advance(time.Hour)

	for name, token := range map[string]string{
		"session":      session,
		"verify-email": verify,
		"expired":      expired,
		"garbage":      "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, env.svc.ResetPassword(ctx, token, "new-password"), ErrInvalidToken)
		})
	}
}

func TestService_VerifyEmailRejectsResetToken(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedActive(t, "a@x.com", "pw123456", RoleUser)

	token, err := env.tokens.IssuePurpose(user.ID, PurposeResetPassword, time.Hour)
	require.NoError(t, err)

	assert.ErrorIs(t, env.svc.VerifyEmail(context.Background(), token), ErrInvalidToken)
	assert.False(t, env.reload(t, user.ID).IsVerified)
}

func TestService_Authenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedActive(t, "a@x.com", "pw123456", RoleUser)

	session, err := env.tokens.IssueSession(user.ID)
	require.NoError(t, err)
	got, err := env.svc.Authenticate(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	purpose, err := env.tokens.IssuePurpose(user.ID, PurposeOnboarding, time.Hour)
	require.NoError(t, err)
	_, err = env.svc.Authenticate(ctx, purpose)
	assert.ErrorIs(t, err, ErrInvalidToken)

	ghost, err := env.tokens.IssueSession(9999)
	require.NoError(t, err)
	_, err = env.svc.Authenticate(ctx, ghost)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_RepositoryUnavailable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedActive(t, "a@x.com", "pw123456", RoleUser)
	session, err := env.tokens.IssueSession(user.ID)
	require.NoError(t, err)

	env.repo.failWith = fmt.Errorf("%w: connection refused", database.ErrUnavailable)

	_, _, err = env.svc.Login(ctx, "a@x.com", "pw123456")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = env.svc.Authenticate(ctx, session)
	assert.ErrorIs(t, err, ErrUnavailable)

	err = env.svc.ForgotPassword(ctx, "a@x.com")
	assert.ErrorIs(t, err, ErrUnavailable)
}
