package auth

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/elskow/qwizme/internal/config"
	"github.com/elskow/qwizme/internal/cryptox"
	"github.com/elskow/qwizme/internal/notify"
	"github.com/elskow/qwizme/internal/verification"
)

// testSealingKey is a base64 encoded 32 byte key.
const testSealingKey = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="

func newTestLogger(t *testing.T) *zap.Logger {
	logger, err := zap.NewDevelopment()
	assert.NoError(t, err)
	return logger
}

func newTestConfig() *config.AuthConfig {
	return &config.AuthConfig{
		JWTSecret:      "test-secret-key-0123456789",
		SessionTTL:     24 * time.Hour,
		OnboardingTTL:  2 * time.Hour,
		ResetTTL:       time.Hour,
		VerifyEmailTTL: 24 * time.Hour,
		EmailChangeTTL: time.Hour,
		BcryptCost:     bcrypt.MinCost,
	}
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// recordingNotifier keeps every message and optionally fails.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []notify.Message
	err      error
}

func (n *recordingNotifier) Send(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.messages = append(n.messages, msg)
	return nil
}

func (n *recordingNotifier) last(t *testing.T) notify.Message {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.messages, "no message sent")
	return n.messages[len(n.messages)-1]
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

var (
	codePattern  = regexp.MustCompile(`letter-spacing: 8px;">(\d{6})<`)
	tokenPattern = regexp.MustCompile(`token=([A-Za-z0-9_.\-]+)`)
)

func (n *recordingNotifier) lastCode(t *testing.T) string {
	t.Helper()
	m := codePattern.FindStringSubmatch(n.last(t).HTML)
	require.Len(t, m, 2, "no code in message")
	return m[1]
}

func (n *recordingNotifier) lastToken(t *testing.T) string {
	t.Helper()
	m := tokenPattern.FindStringSubmatch(n.last(t).HTML)
	require.Len(t, m, 2, "no token in message")
	return m[1]
}

type testEnv struct {
	svc      *Service
	repo     *mockRepository
	codes    verification.Repository
	tokens   *TokenService
	notifier *recordingNotifier
	clock    *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := newFakeClock()
	repo := newMockRepository()
	repo.now = clock.Now
	codeRepo := verification.NewMemoryRepository()
	notifier := &recordingNotifier{}
	log := newTestLogger(t)
	cfg := newTestConfig()

	sealer, err := cryptox.NewSealer(testSealingKey)
	require.NoError(t, err)

	tokens := NewTokenService(cfg, WithTokenClock(clock.Now))
	store := verification.NewStore(
		&config.VerificationConfig{CodeTTL: 10 * time.Minute, MaxAttempts: 5},
		codeRepo, log, verification.WithClock(clock.Now),
	)

	svc := NewService(cfg, log, Dependencies{
		Repository: repo,
		Hasher:     NewBcryptHasher(cfg.BcryptCost),
		Tokens:     tokens,
		Codes:      store,
		Mailer:     NewMailer(notifier, "http://localhost:5173"),
		Sealer:     sealer,
	})

	return &testEnv{
		svc:      svc,
		repo:     repo,
		codes:    codeRepo,
		tokens:   tokens,
		notifier: notifier,
		clock:    clock,
	}
}

func newTestService(t *testing.T) *Service {
	return newTestEnv(t).svc
}

// seed stores u, filling in the fields every row needs.
func (e *testEnv) seed(t *testing.T, u *User) *User {
	t.Helper()
	if u.Role == "" {
		u.Role = RoleUser
	}
	require.NoError(t, e.repo.Create(context.Background(), u))
	return u
}

func (e *testEnv) seedActive(t *testing.T, email, password, role string) *User {
	t.Helper()
	hash, err := e.svc.hasher.Hash(password)
	require.NoError(t, err)
	return e.seed(t, &User{
		Email:          strPtr(email),
		Username:       strPtr(email),
		PasswordHash:   strPtr(hash),
		Role:           role,
		OnboardingStep: StepActive,
	})
}

func (e *testEnv) seedUnclaimed(t *testing.T, admin *User, first, last string) *User {
	t.Helper()
	adminID := admin.ID
	return e.seed(t, &User{
		FirstName:      strPtr(first),
		LastName:       strPtr(last),
		OnboardingStep: StepUnclaimed,
		CreatedByID:    &adminID,
	})
}

func (e *testEnv) reload(t *testing.T, id uint) *User {
	t.Helper()
	u, err := e.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}
