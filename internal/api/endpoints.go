package api

const Prefix = "/api/v1"

// Auth routes
const (
	AuthRegister       = "/auth/register"
	AuthLogin          = "/auth/login"
	AuthLoginName      = "/auth/login-name"
	AuthMe             = "/auth/me"
	AuthForgotPassword = "/auth/forgot-password"
	AuthResetPassword  = "/auth/reset-password"
	AuthVerifyEmail    = "/auth/verify-email"
)

// Onboarding routes
const (
	OnboardingClaim      = "/onboarding/claim"
	OnboardingStatus     = "/onboarding/status"
	OnboardingEmail      = "/onboarding/email"
	OnboardingVerifyCode = "/onboarding/verify-code"
	OnboardingResendCode = "/onboarding/resend-code"
	OnboardingPassword   = "/onboarding/password"
)

// Admin routes
const (
	AdminAccounts     = "/admin/accounts"
	AdminAccountsBulk = "/admin/accounts/bulk"
	AdminAccount      = "/admin/accounts/{id}"
	AdminPromote      = "/admin/promote"
	AdminUsers        = "/admin/users"
)

// Settings routes
const (
	Settings                = "/settings"
	SettingsProfile         = "/settings/profile"
	SettingsEmail           = "/settings/email"
	SettingsEmailVerifyCode = "/settings/email/verify-code"
	SettingsEmailConfirm    = "/settings/email/confirm"
)

// Operational routes, served outside Prefix.
const (
	Health  = "/healthz"
	Metrics = "/metrics"
)

// Quotas maps rate limited routes to their "N/period" quota.
var Quotas = map[string]string{
	AuthRegister:       "5/minute",
	AuthLogin:          "10/minute",
	AuthLoginName:      "10/minute",
	AuthForgotPassword: "3/minute",
	AuthResetPassword:  "5/minute",
	AuthVerifyEmail:    "10/minute",

	OnboardingClaim:      "5/minute",
	OnboardingEmail:      "5/minute",
	OnboardingVerifyCode: "10/minute",
	OnboardingResendCode: "3/minute",
	OnboardingPassword:   "5/minute",

	AdminAccounts:     "10/minute",
	AdminAccountsBulk: "5/minute",
	AdminAccount:      "10/minute",
	AdminPromote:      "5/minute",

	Settings:                "10/minute",
	SettingsProfile:         "10/minute",
	SettingsEmail:           "5/minute",
	SettingsEmailVerifyCode: "10/minute",
	SettingsEmailConfirm:    "5/minute",
}
