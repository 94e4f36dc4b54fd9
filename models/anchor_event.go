package models

import "time"

const (
	EventAnchorCreated     = "anchor.created"
	EventAnchorCharged     = "anchor.charged"
	EventAnchorActivated   = "anchor.activated"
	EventEnhancementQueued = "enhancement.queued"
	EventEnhancementReady  = "enhancement.succeeded"
	EventEnhancementFailed = "enhancement.failed"
)

// AnchorEvent is the persisted activity feed entry broadcast to connected
// clients: enhancement progress, charges, activations.
type AnchorEvent struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index"`
	AnchorID  uint   `gorm:"index"`
	Kind      string `gorm:"size:32"`
	Payload   string `gorm:"type:text"`
	CreatedAt time.Time
}
