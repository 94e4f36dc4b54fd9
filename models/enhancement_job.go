package models

import (
	"time"

	"gorm.io/gorm"
)

// Job statuses. Transitions are monotonic:
// queued -> running -> succeeded | failed, queued -> canceled.
const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobSucceeded = "succeeded"
	JobFailed    = "failed"
	JobCanceled  = "canceled"
)

// EnhancementJob is one queued AI image-generation request for an anchor.
// Rows double as the durable queue: a restart re-dispatches whatever is
// still queued or was left running past its lease.
type EnhancementJob struct {
	gorm.Model
	PublicID string `gorm:"type:varchar(36);uniqueIndex;not null" json:"job_id"`
	AnchorID uint   `gorm:"index;not null" json:"-"`
	UserID   uint   `gorm:"index;not null" json:"-"`

	Status      string `gorm:"size:16;index" json:"status"`
	Attempts    int    `json:"attempts"`
	MaxAttempts int    `json:"max_attempts"`
	// NextRunAt is when a queued job becomes due; for a running job it is
	// the lease expiry after which the sweeper may reclaim it.
	NextRunAt time.Time `gorm:"index" json:"-"`

	Prompt     string `gorm:"type:text" json:"prompt"`
	Variations string `gorm:"type:text" json:"-"` // JSON array of stored image URLs
	LastError  string `gorm:"type:text" json:"last_error,omitempty"`
}

// Terminal reports whether the job has reached a final status.
func (j *EnhancementJob) Terminal() bool {
	switch j.Status {
	case JobSucceeded, JobFailed, JobCanceled:
		return true
	}
	return false
}
