package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type contextKey string

// UserContextKey holds the authenticated *User.
const UserContextKey contextKey = "user"

type AuthMiddleware struct {
	service *Service
	log     *zap.Logger
}

func NewAuthMiddleware(service *Service, log *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		service: service,
		log:     log,
	}
}

// RequireSession authenticates a bearer session token.
func (m *AuthMiddleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			unauthorized(w, "Not authenticated")
			return
		}

		user, err := m.service.Authenticate(r.Context(), token)
		if err != nil {
			m.fail(w, r, err, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), UserContextKey, user)))
	})
}

// RequireOnboarding authenticates a bearer onboarding token for an account
// that is still onboarding.
func (m *AuthMiddleware) RequireOnboarding(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			unauthorized(w, "Not authenticated")
			return
		}

		user, err := m.service.AuthenticateOnboarding(r.Context(), token)
		if err != nil {
			m.fail(w, r, err, "Invalid or expired onboarding token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), UserContextKey, user)))
	})
}

func (m *AuthMiddleware) RequireActive(next http.Handler) http.Handler {
	return m.require(next, func(u *User) bool { return u.IsActive() }, "Account onboarding not complete")
}

func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return m.require(next, (*User).IsAdmin, "Admin access required")
}

func (m *AuthMiddleware) RequireFounder(next http.Handler) http.Handler {
	return m.require(next, (*User).IsFounder, "Founder access required")
}

func (m *AuthMiddleware) require(next http.Handler, allowed func(*User) bool, detail string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			unauthorized(w, "Not authenticated")
			return
		}
		if !allowed(user) {
			writeDetail(w, http.StatusForbidden, detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *AuthMiddleware) fail(w http.ResponseWriter, r *http.Request, err error, invalidDetail string) {
	switch {
	case errors.Is(err, ErrInvalidToken):
		unauthorized(w, invalidDetail)
	case errors.Is(err, ErrOnboardingComplete):
		writeDetail(w, http.StatusBadRequest, "Onboarding already complete")
	case errors.Is(err, ErrUnavailable):
		m.log.Warn("authentication unavailable", requestFields(r, err)...)
		writeDetail(w, http.StatusServiceUnavailable, "Service temporarily unavailable, please retry")
	default:
		m.log.Error("authentication failed", requestFields(r, err)...)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
	}
}

// UserFromContext returns the user stored by the authentication middleware.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(UserContextKey).(*User)
	return user, ok && user != nil
}

// mustUser is for handlers mounted behind an authentication middleware.
func mustUser(r *http.Request) *User {
	user, ok := UserFromContext(r.Context())
	if !ok {
		panic("auth: handler mounted without authentication middleware")
	}
	return user
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeDetail(w, http.StatusUnauthorized, detail)
}
