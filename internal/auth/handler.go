package auth

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/elskow/qwizme/internal/api"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	service  *Service
	log      *zap.Logger
	validate *validator.Validate
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Handler{
		service:  service,
		log:      log,
		validate: v,
	}
}

// Routes mounts every account route on r.
func (h *Handler) Routes(r chi.Router, mw *AuthMiddleware, limit *api.Limiter) {
	r.With(limit.For(api.AuthRegister)).Post(api.AuthRegister, h.Register)
	r.With(limit.For(api.AuthLogin)).Post(api.AuthLogin, h.Login)
	r.With(limit.For(api.AuthLoginName)).Post(api.AuthLoginName, h.LoginByName)
	r.With(limit.For(api.AuthForgotPassword)).Post(api.AuthForgotPassword, h.ForgotPassword)
	r.With(limit.For(api.AuthResetPassword)).Post(api.AuthResetPassword, h.ResetPassword)
	r.With(limit.For(api.AuthVerifyEmail)).Post(api.AuthVerifyEmail, h.VerifyEmail)
	r.With(limit.For(api.OnboardingClaim)).Post(api.OnboardingClaim, h.Claim)
	r.With(limit.For(api.SettingsEmailConfirm)).Post(api.SettingsEmailConfirm, h.ConfirmEmailChange)

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireOnboarding)

		r.Get(api.OnboardingStatus, h.OnboardingStatus)
		r.With(limit.For(api.OnboardingEmail)).Post(api.OnboardingEmail, h.SetOnboardingEmail)
		r.With(limit.For(api.OnboardingVerifyCode)).Post(api.OnboardingVerifyCode, h.VerifyOnboardingCode)
		r.With(limit.For(api.OnboardingResendCode)).Post(api.OnboardingResendCode, h.ResendOnboardingCode)
		r.With(limit.For(api.OnboardingPassword)).Post(api.OnboardingPassword, h.SetOnboardingPassword)
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireSession, mw.RequireActive)

		r.Get(api.AuthMe, h.Me)

		r.Get(api.Settings, h.GetSettings)
		r.With(limit.For(api.Settings)).Put(api.Settings, h.UpdateSettings)
		r.Get(api.SettingsProfile, h.GetProfile)
		r.With(limit.For(api.SettingsProfile)).Put(api.SettingsProfile, h.UpdateProfile)
		r.With(limit.For(api.SettingsEmail)).Post(api.SettingsEmail, h.RequestEmailChange)
		r.With(limit.For(api.SettingsEmailVerifyCode)).Post(api.SettingsEmailVerifyCode, h.VerifyEmailChangeCode)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAdmin)

			r.With(limit.For(api.AdminAccounts)).Post(api.AdminAccounts, h.CreateAccount)
			r.With(limit.For(api.AdminAccountsBulk)).Post(api.AdminAccountsBulk, h.CreateAccounts)
			r.Get(api.AdminAccounts, h.ListAccounts)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireFounder)

			r.With(limit.For(api.AdminAccount)).Delete(api.AdminAccount, h.DeleteAccount)
			r.With(limit.For(api.AdminPromote)).Post(api.AdminPromote, h.Promote)
			r.Get(api.AdminUsers, h.ListUsers)
		})
	})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	token, user, err := h.service.Register(r.Context(), req.Email, strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.log.Info("user registered", zap.Uint("user_id", user.ID))
	writeJSON(w, http.StatusCreated, newTokenResponse(token))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	token, _, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err, withDetail(ErrInvalidCredentials, "Invalid email or password"))
		return
	}
	writeJSON(w, http.StatusOK, newTokenResponse(token))
}

func (h *Handler) LoginByName(w http.ResponseWriter, r *http.Request) {
	var req loginNameRequest
	if !h.decode(w, r, &req) {
		return
	}

	token, _, err := h.service.LoginByName(r.Context(), req.FirstName, req.LastName, req.Password)
	if err != nil {
		h.writeError(w, r, err, withDetail(ErrInvalidCredentials, "Invalid name or password"))
		return
	}
	writeJSON(w, http.StatusOK, newTokenResponse(token))
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user := mustUser(r)
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Message: "If an account with that email exists, a reset link has been sent",
	})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Password has been reset"})
}

func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.VerifyEmail(r.Context(), req.Token); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Email verified"})
}

// decode reads and validates a JSON body. It writes the error response
// itself and reports whether the handler should continue.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := decodeBody(r, dst); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return false
	}
	return h.check(w, dst)
}

func decodeBody(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

func (h *Handler) check(w http.ResponseWriter, v interface{}) bool {
	err := h.validate.Struct(v)
	if err == nil {
		return true
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		writeDetail(w, http.StatusUnprocessableEntity, validationDetail(fe))
		return false
	}
	writeDetail(w, http.StatusUnprocessableEntity, "Invalid request")
	return false
}

func validationDetail(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return field + " must be at least " + fe.Param() + " characters"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	case "len":
		return field + " must be exactly " + fe.Param() + " characters"
	case "oneof":
		return field + " must be one of: " + fe.Param()
	case "numeric":
		return field + " must contain only digits"
	}
	return field + " is invalid"
}

type errorOption func(err error) (string, bool)

// withDetail replaces the response detail for target.
func withDetail(target error, detail string) errorOption {
	return func(err error) (string, bool) {
		return detail, errors.Is(err, target)
	}
}

type errorMapping struct {
	err    error
	status int
	detail string
}

var errorMappings = []errorMapping{
	{ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
	{ErrInvalidToken, http.StatusBadRequest, "Invalid or expired token"},
	{ErrInvalidCode, http.StatusBadRequest, "Invalid or expired code"},
	{ErrEmailTaken, http.StatusBadRequest, "Email already registered"},
	{ErrEmailInUse, http.StatusBadRequest, "Email already in use"},
	{ErrUsernameTaken, http.StatusBadRequest, "Username already taken"},
	{ErrUnclaimedExists, http.StatusBadRequest, "An unclaimed account with this name already exists"},
	{ErrWrongStep, http.StatusBadRequest, "Invalid onboarding step"},
	{ErrOnboardingComplete, http.StatusBadRequest, "Onboarding already complete"},
	{ErrNoPendingEmail, http.StatusBadRequest, "No pending email change"},
	{ErrOnboardingIncomplete, http.StatusForbidden, "Account onboarding not complete"},
	{ErrForbidden, http.StatusForbidden, "Forbidden"},
	{ErrFounderImmutable, http.StatusForbidden, "Cannot change founder role"},
	{ErrNotFound, http.StatusNotFound, "Not found"},
	{ErrInvalidRole, http.StatusUnprocessableEntity, "role must be one of: admin user"},
	{ErrTooManyAccounts, http.StatusUnprocessableEntity, "accounts must contain at most 100 entries"},
	{ErrUnavailable, http.StatusServiceUnavailable, "Service temporarily unavailable, please retry"},
	{ErrKeyStorage, http.StatusServiceUnavailable, "API key storage is not configured"},
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, opts ...errorOption) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.err) {
			continue
		}
		detail := m.detail
		for _, opt := range opts {
			if d, ok := opt(err); ok {
				detail = d
			}
		}
		if m.status == http.StatusServiceUnavailable {
			h.log.Warn("request failed", requestFields(r, err)...)
		}
		writeDetail(w, m.status, detail)
		return
	}

	h.log.Error("unhandled error", requestFields(r, err)...)
	writeDetail(w, http.StatusInternalServerError, "Internal server error")
}

func requestFields(r *http.Request, err error) []zap.Field {
	return []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
