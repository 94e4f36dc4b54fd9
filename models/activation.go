package models

import "time"

// Activation is one completed activation ritual. The anchor keeps the
// running counters; the event rows feed streak analytics.
type Activation struct {
	ID          uint      `gorm:"primaryKey"`
	UserID      uint      `gorm:"index"`
	AnchorID    uint      `gorm:"index"`
	ActivatedAt time.Time `gorm:"index"`
}
