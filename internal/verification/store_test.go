package verification

import (
	"context"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/elskow/qwizme/internal/config"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T) (*Store, Repository, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	repo := NewMemoryRepository()
	cfg := &config.VerificationConfig{CodeTTL: 10 * time.Minute, MaxAttempts: 5}
	return NewStore(cfg, repo, zap.NewNop(), WithClock(clock.Now)), repo, clock
}

// wrongCode returns a well-formed code that differs from plain.
func wrongCode(plain string) string {
	if plain == "123456" {
		return "654321"
	}
	return "123456"
}

func TestIssue_Format(t *testing.T) {
	store, repo, _ := newTestStore(t)
	ctx := context.Background()

	six := regexp.MustCompile(`^[1-9][0-9]{5}$`)
	for i := 0; i < 50; i++ {
		plain, err := store.Issue(ctx, 1, PurposeOnboardingEmail)
		require.NoError(t, err)
		assert.Regexp(t, six, plain)
	}

	code, err := repo.Latest(ctx, 1, PurposeOnboardingEmail)
	require.NoError(t, err)
	assert.Len(t, code.CodeHash, 64)
	assert.Equal(t, 0, code.Attempts)
}

func TestIssue_StoresHashOnly(t *testing.T) {
	store, repo, clock := newTestStore(t)
	ctx := context.Background()

	plain, err := store.Issue(ctx, 7, PurposeEmailChange)
	require.NoError(t, err)

	code, err := repo.Latest(ctx, 7, PurposeEmailChange)
	require.NoError(t, err)
	assert.NotEqual(t, plain, code.CodeHash)
	assert.Equal(t, hashCode(plain), code.CodeHash)
	assert.Equal(t, clock.Now().Add(10*time.Minute), code.ExpiresAt)
}

func TestCheck_SingleUse(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	plain, err := store.Issue(ctx, 1, PurposeOnboardingEmail)
	require.NoError(t, err)

	ok, err := store.Check(ctx, 1, PurposeOnboardingEmail, plain)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Check(ctx, 1, PurposeOnboardingEmail, plain)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheck_AttemptLimit(t *testing.T) {
	store, repo, _ := newTestStore(t)
	ctx := context.Background()

	plain, err := store.Issue(ctx, 1, PurposeOnboardingEmail)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		ok, err := store.Check(ctx, 1, PurposeOnboardingEmail, wrongCode(plain))
		require.NoError(t, err)
		assert.False(t, ok)
	}

	// The correct code no longer helps once attempts are spent.
	ok, err := store.Check(ctx, 1, PurposeOnboardingEmail, plain)
	require.NoError(t, err)
	assert.False(t, ok)

	code, err := repo.Latest(ctx, 1, PurposeOnboardingEmail)
	require.NoError(t, err)
	assert.Equal(t, 5, code.Attempts)
}

func TestCheck_CorrectOnLastAttempt(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	plain, err := store.Issue(ctx, 1, PurposeOnboardingEmail)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		ok, err := store.Check(ctx, 1, PurposeOnboardingEmail, wrongCode(plain))
		require.NoError(t, err)
		assert.False(t, ok)
	}

	ok, err := store.Check(ctx, 1, PurposeOnboardingEmail, plain)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheck_ExpiredDoesNotCount(t *testing.T) {
	store, repo, clock := newTestStore(t)
	ctx := context.Background()

	plain, err := store.Issue(ctx, 1, PurposeOnboardingEmail)
	require.NoError(t, err)

	clock.Advance(10*time.Minute + time.Second)

	ok, err := store.Check(ctx, 1, PurposeOnboardingEmail, plain)
	require.NoError(t, err)
	assert.False(t, ok)

	code, err := repo.Latest(ctx, 1, PurposeOnboardingEmail)
	require.NoError(t, err)
	assert.Equal(t, 0, code.Attempts)
}

func TestCheck_ReissueInvalidatesPrevious(t *testing.T) {
	store, _, clock := newTestStore(t)
	ctx := context.Background()

	first, err := store.Issue(ctx, 1, PurposeOnboardingEmail)
	require.NoError(t, err)
	clock.Advance(time.Second)
	second, err := store.Issue(ctx, 1, PurposeOnboardingEmail)
	require.NoError(t, err)

	if first != second {
		ok, err := store.Check(ctx, 1, PurposeOnboardingEmail, first)
		require.NoError(t, err)
		assert.False(t, ok)
	}

	ok, err := store.Check(ctx, 1, PurposeOnboardingEmail, second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheck_PurposeAndUserIsolation(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	plain, err := store.Issue(ctx, 1, PurposeOnboardingEmail)
	require.NoError(t, err)

	tests := []struct {
		name    string
		userID  uint
		purpose string
	}{
		{"other purpose", 1, PurposeEmailChange},
		{"other user", 2, PurposeOnboardingEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := store.Check(ctx, tt.userID, tt.purpose, plain)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}

	ok, err := store.Check(ctx, 1, PurposeOnboardingEmail, plain)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheck_NoCode(t *testing.T) {
	store, _, _ := newTestStore(t)

	ok, err := store.Check(context.Background(), 99, PurposeOnboardingEmail, "123456")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheck_ValidAtExpiry(t *testing.T) {
	store, _, clock := newTestStore(t)
	ctx := context.Background()

	plain, err := store.Issue(ctx, 1, PurposeOnboardingEmail)
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)

	ok, err := store.Check(ctx, 1, PurposeOnboardingEmail, plain)
	require.NoError(t, err)
	assert.True(t, ok)
}

// slowRepository delays lookups so that concurrent checks all read the
// code before any attempt is counted.
type slowRepository struct {
	Repository
	delay   time.Duration
	claimed atomic.Int32
}

func (r *slowRepository) Latest(ctx context.Context, userID uint, purpose string) (*Code, error) {
	time.Sleep(r.delay)
	return r.Repository.Latest(ctx, userID, purpose)
}

func (r *slowRepository) IncrementAttempts(ctx context.Context, id uint, limit int) (bool, error) {
	ok, err := r.Repository.IncrementAttempts(ctx, id, limit)
	if ok {
		r.claimed.Add(1)
	}
	return ok, err
}

func TestCheck_ConcurrentAttemptsAreCapped(t *testing.T) {
	repo := &slowRepository{Repository: NewMemoryRepository(), delay: 20 * time.Millisecond}
	cfg := &config.VerificationConfig{CodeTTL: 10 * time.Minute, MaxAttempts: 5}
	store := NewStore(cfg, repo, zap.NewNop())
	ctx := context.Background()

	plain, err := store.Issue(ctx, 1, PurposeOnboardingEmail)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Check(ctx, 1, PurposeOnboardingEmail, wrongCode(plain))
			assert.NoError(t, err)
			assert.False(t, ok)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), repo.claimed.Load())

	code, err := repo.Latest(ctx, 1, PurposeOnboardingEmail)
	require.NoError(t, err)
	assert.Equal(t, 5, code.Attempts)

	ok, err := store.Check(ctx, 1, PurposeOnboardingEmail, plain)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryRepository_IncrementAttemptsLimit(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	code := &Code{UserID: 1, Purpose: PurposeEmailChange, CodeHash: hashCode("123456")}
	require.NoError(t, repo.Replace(ctx, code))

	for i := 0; i < 2; i++ {
		ok, err := repo.IncrementAttempts(ctx, code.ID, 2)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := repo.IncrementAttempts(ctx, code.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.IncrementAttempts(ctx, 999, 2)
	require.NoError(t, err)
	assert.False(t, ok)
}
