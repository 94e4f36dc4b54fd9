package models

import (
	"time"

	"gorm.io/gorm"
)

// Subscription tiers enforced server-side. The client names these
// entitlements; the backend only gates quotas on them.
const (
	TierFree = "free"
	TierPlus = "plus"
)

type User struct {
	gorm.Model
	Email          string `gorm:"uniqueIndex;not null"`
	Password       string `gorm:"not null"`
	DisplayName    string
	ProfilePicture string `gorm:"size:512"`
	Tier           string `gorm:"size:16;default:free"`
	Onboarded   bool
	Disabled    bool

	MFAEnabled bool
	MFACode    string

	ResetToken    string
	ResetTokenExp time.Time
}
