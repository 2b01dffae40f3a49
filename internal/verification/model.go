package verification

import "time"

// Code is a hashed, expiring, attempt-limited proof of email control.
type Code struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"index;not null"`
	CodeHash  string    `gorm:"size:64;not null"`
	Purpose   string    `gorm:"size:30;not null"`
	Attempts  int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null"`
}

func (Code) TableName() string {
	return "verification_codes"
}

// Purposes a code can be bound to.
const (
	PurposeOnboardingEmail = "onboarding-email"
	PurposeEmailChange     = "email-change"
)
