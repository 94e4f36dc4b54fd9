package models

import "time"

// UserSettings holds the per-user preference bag as a JSON text blob,
// mirroring the app's anchor-settings-storage. SchemaVersion tracks the
// blob layout; renamed fields are migrated forward on read.
type UserSettings struct {
	ID            uint   `gorm:"primaryKey"`
	UserID        uint   `gorm:"uniqueIndex;not null"`
	SchemaVersion int    `gorm:"not null"`
	Data          string `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
