package verification

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/elskow/qwizme/internal/config"
)

const (
	codeMin = 100000
	codeMax = 999999
)

// Store issues and checks six digit verification codes. Only the sha256
// of a code is persisted.
type Store struct {
	ttl         time.Duration
	maxAttempts int
	repo        Repository
	log         *zap.Logger
	now         func() time.Time
}

type Option func(*Store)

// WithClock replaces the wall clock used for expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(cfg *config.VerificationConfig, repo Repository, log *zap.Logger, opts ...Option) *Store {
	s := &Store{
		ttl:         cfg.CodeTTL,
		maxAttempts: cfg.MaxAttempts,
		repo:        repo,
		log:         log,
		now:         time.Now,
	}
	if s.ttl <= 0 {
		s.ttl = 10 * time.Minute
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = 5
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue generates a fresh code for (userID, purpose), replacing any earlier
// one, and returns the plaintext for delivery.
func (s *Store) Issue(ctx context.Context, userID uint, purpose string) (string, error) {
	plain, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}

	now := s.now()
	code := &Code{
		UserID:    userID,
		CodeHash:  hashCode(plain),
		Purpose:   purpose,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repo.Replace(ctx, code); err != nil {
		return "", fmt.Errorf("store code: %w", err)
	}

	codesIssued.WithLabelValues(purpose).Inc()
	s.log.Debug("verification code issued",
		zap.Uint("user_id", userID),
		zap.String("purpose", purpose),
		zap.Time("expires_at", code.ExpiresAt),
	)
	return plain, nil
}

// Check reports whether candidate matches the latest live code for
// (userID, purpose). The attempt is claimed before comparing, so
// concurrent checks never compare more than maxAttempts guesses. A
// matching code is consumed.
func (s *Store) Check(ctx context.Context, userID uint, purpose, candidate string) (bool, error) {
	code, err := s.repo.Latest(ctx, userID, purpose)
	if err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			codeChecks.WithLabelValues(purpose, "missing").Inc()
			return false, nil
		}
		return false, err
	}

	if code.Attempts >= s.maxAttempts {
		codeChecks.WithLabelValues(purpose, "exhausted").Inc()
		return false, nil
	}
	if s.now().After(code.ExpiresAt) {
		codeChecks.WithLabelValues(purpose, "expired").Inc()
		return false, nil
	}

	claimed, err := s.repo.IncrementAttempts(ctx, code.ID, s.maxAttempts)
	if err != nil {
		return false, fmt.Errorf("count attempt: %w", err)
	}
	if !claimed {
		codeChecks.WithLabelValues(purpose, "exhausted").Inc()
		return false, nil
	}

	if subtle.ConstantTimeCompare([]byte(hashCode(candidate)), []byte(code.CodeHash)) != 1 {
		codeChecks.WithLabelValues(purpose, "mismatch").Inc()
		return false, nil
	}

	if err := s.repo.Delete(ctx, code.ID); err != nil {
		return false, fmt.Errorf("consume code: %w", err)
	}
	codeChecks.WithLabelValues(purpose, "ok").Inc()
	return true, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}

func hashCode(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
