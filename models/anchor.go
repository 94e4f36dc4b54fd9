package models

import (
	"time"

	"gorm.io/gorm"
)

// Anchor is the record behind the app's vault: one user intention, the
// sigil generated from it, and the ritual metadata accumulated over time.
type Anchor struct {
	gorm.Model
	PublicID string `gorm:"type:varchar(36);uniqueIndex;not null" json:"public_id"`
	UserID   uint   `gorm:"index;not null" json:"-"`

	IntentionText    string `gorm:"type:text;not null" json:"intention_text"`
	Category         string `gorm:"size:32;index" json:"category"`
	Style            string `gorm:"size:16" json:"style"` // "traditional" | "abstract" | "manual"
	DistilledLetters string `gorm:"size:32" json:"distilled_letters"`
	BaseSigilSvg     string `gorm:"type:text" json:"base_sigil_svg"`
	EnhancedImageURL string `gorm:"size:512" json:"enhanced_image_url,omitempty"`
	MantraText       string `gorm:"type:text" json:"mantra_text,omitempty"`

	IsCharged       bool       `json:"is_charged"`
	ChargedAt       *time.Time `json:"charged_at,omitempty"`
	ActivationCount int        `json:"activation_count"`
	LastActivatedAt *time.Time `json:"last_activated_at,omitempty"`

	Archived bool `gorm:"default:false;index" json:"archived"`
}

// Sigil styles accepted by the creation wizard.
const (
	StyleTraditional = "traditional"
	StyleAbstract    = "abstract"
	StyleManual      = "manual"
)
