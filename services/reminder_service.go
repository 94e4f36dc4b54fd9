package services

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/dwill458/Anchor--sub003/models"

	"gorm.io/gorm"
)

// ReminderService sends the daily practice nudge to users who opted in via
// settings. A scheduler (cron, EventBridge) hits the trigger endpoint once
// per reminder slot; the service itself keeps no timers.
type ReminderService struct {
	db   *gorm.DB
	push *PushService
}

func NewReminderService(db *gorm.DB, push *PushService) *ReminderService {
	return &ReminderService{db: db, push: push}
}

// SendPracticeReminders pushes to every opted-in user who has at least one
// charged anchor to activate. Returns how many users were notified.
func (r *ReminderService) SendPracticeReminders() (int, error) {
	var rows []models.UserSettings
	if err := r.db.Find(&rows).Error; err != nil {
		return 0, err
	}

	sent := 0
	for _, row := range rows {
		var prefs map[string]any
		if json.Unmarshal([]byte(row.Data), &prefs) != nil {
			continue
		}
		enabled, _ := prefs["reminder_enabled"].(bool)
		if !enabled {
			continue
		}

		var charged int64
		if err := r.db.Model(&models.Anchor{}).
			Where("user_id = ? AND is_charged = ? AND archived = ?", row.UserID, true, false).
			Count(&charged).Error; err != nil || charged == 0 {
			continue
		}

		r.push.PushToUser(row.UserID,
			"Time to practice",
			fmt.Sprintf("You have %d charged anchor(s) waiting. Take a moment to activate one.", charged),
			map[string]string{"kind": "practice.reminder"},
		)
		sent++
	}

	if sent > 0 {
		log.Printf("reminders: pushed practice reminder to %d users", sent)
	}
	return sent, nil
}
