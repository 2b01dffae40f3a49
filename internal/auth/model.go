package auth

import (
	"strings"
	"time"
)

const (
	RoleUser    = "user"
	RoleAdmin   = "admin"
	RoleFounder = "founder"
)

// Onboarding steps. Step 4 is reserved.
const (
	StepUnclaimed     = 0
	StepNameClaimed   = 1
	StepEmailSet      = 2
	StepEmailVerified = 3
	StepActive        = 5
)

// Provisioning status filters for admin account listings.
const (
	StatusUnclaimed  = "unclaimed"
	StatusInProgress = "in_progress"
	StatusComplete   = "complete"
)

const (
	AIProviderClaude = "claude"
	AIProviderOpenAI = "openai"
)

// User is either a self-registered account or one provisioned by an admin.
// Nullable columns are pointers. Step, role and verification flag carry no
// gorm default so that zero values are written as given.
type User struct {
	ID                uint    `gorm:"primaryKey"`
	Email             *string `gorm:"size:255"`
	Username          *string `gorm:"size:100"`
	PasswordHash      *string `gorm:"size:255"`
	FirstName         *string `gorm:"size:100"`
	LastName          *string `gorm:"size:100"`
	Role              string  `gorm:"size:20;not null"`
	OnboardingStep    int     `gorm:"not null"`
	IsVerified        bool    `gorm:"not null"`
	PendingEmail      *string `gorm:"size:255"`
	AIProvider        *string `gorm:"column:ai_provider;size:20"`
	AIAPIKeyEncrypted *string `gorm:"column:ai_api_key_encrypted"`
	CreatedByID       *uint
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsActive() bool {
	return u.OnboardingStep >= StepActive
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleFounder
}

func (u *User) IsFounder() bool {
	return u.Role == RoleFounder
}

// IsProvisioned reports whether an admin created the account.
func (u *User) IsProvisioned() bool {
	return u.CreatedByID != nil
}

func strPtr(s string) *string {
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
