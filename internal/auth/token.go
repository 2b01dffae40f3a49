package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/elskow/qwizme/internal/config"
)

const (
	PurposeVerifyEmail   = "verify-email"
	PurposeResetPassword = "reset-password"
	PurposeEmailChange   = "email-change"
	PurposeOnboarding    = "onboarding"
)

// Claims carries the subject as a decimal user id. Session tokens never
// carry a purpose.
type Claims struct {
	Purpose     string `json:"purpose,omitempty"`
	Fingerprint string `json:"fp,omitempty"`
	Email       string `json:"email,omitempty"`
	jwt.RegisteredClaims

	userID uint
}

func (c *Claims) UserID() uint {
	return c.userID
}

// Binding attaches extra state to a purpose token.
type Binding func(*Claims)

// BindPasswordHash ties a token to the current password hash so that it
// stops validating once the password changes.
func BindPasswordHash(digest *string) Binding {
	return func(c *Claims) {
		c.Fingerprint = fingerprint(digest)
	}
}

// BindEmail ties a token to an email address.
func BindEmail(email string) Binding {
	return func(c *Claims) {
		c.Email = email
	}
}

type TokenService struct {
	secret     []byte
	sessionTTL time.Duration
	now        func() time.Time
	parser     *jwt.Parser
}

type TokenOption func(*TokenService)

func WithTokenClock(now func() time.Time) TokenOption {
	return func(t *TokenService) {
		t.now = now
	}
}

func NewTokenService(cfg *config.AuthConfig, opts ...TokenOption) *TokenService {
	t := &TokenService{
		secret:     []byte(cfg.JWTSecret),
		sessionTTL: cfg.SessionTTL,
		now:        time.Now,
	}
	if t.sessionTTL <= 0 {
		t.sessionTTL = 24 * time.Hour
	}
	for _, opt := range opts {
		opt(t)
	}
	t.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	return t
}

func (t *TokenService) IssueSession(userID uint) (string, error) {
	return t.sign(&Claims{}, userID, t.sessionTTL)
}

func (t *TokenService) DecodeSession(token string) (*Claims, error) {
	claims, err := t.decode(token)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (t *TokenService) IssuePurpose(userID uint, purpose string, ttl time.Duration, bindings ...Binding) (string, error) {
	if purpose == "" {
		panic("auth: purpose token issued without a purpose")
	}
	claims := &Claims{Purpose: purpose}
	for _, bind := range bindings {
		bind(claims)
	}
	return t.sign(claims, userID, ttl)
}

func (t *TokenService) DecodePurpose(token, expected string) (*Claims, error) {
	claims, err := t.decode(token)
	if err != nil {
		return nil, err
	}
	if expected == "" || claims.Purpose != expected {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (t *TokenService) sign(claims *Claims, userID uint, ttl time.Duration) (string, error) {
	now := t.now()
	claims.Subject = strconv.FormatUint(uint64(userID), 10)
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (t *TokenService) decode(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := t.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 || id > uint64(^uint(0)) {
		return nil, ErrInvalidToken
	}
	claims.userID = uint(id)
	return claims, nil
}

func fingerprint(digest *string) string {
	sum := sha256.Sum256([]byte(deref(digest)))
	return hex.EncodeToString(sum[:8])
}

var errFingerprintMismatch = errors.New("token fingerprint mismatch")

// checkFingerprint returns errFingerprintMismatch when the token was minted
// against a different password hash.
func checkFingerprint(claims *Claims, digest *string) error {
	if claims.Fingerprint != fingerprint(digest) {
		return errFingerprintMismatch
	}
	return nil
}
