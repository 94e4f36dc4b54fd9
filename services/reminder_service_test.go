package services

import (
	"encoding/json"
	"testing"

	"github.com/dwill458/Anchor--sub003/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setReminderPref(t *testing.T, db *gorm.DB, userID uint, enabled bool) {
	t.Helper()
	prefs := DefaultSettings()
	prefs["reminder_enabled"] = enabled
	data, _ := json.Marshal(prefs)
	require.NoError(t, db.Create(&models.UserSettings{
		UserID:        userID,
		SchemaVersion: SettingsSchemaVersion,
		Data:          string(data),
	}).Error)
}

func TestSendPracticeReminders(t *testing.T) {
	db := setupTestDB(t)
	// no SNS client: PushToUser exits before publishing when the user has
	// no registered devices, which is all this test needs
	svc := NewReminderService(db, &PushService{db: db})

	optedIn := createTestUser(t, db, "r1@example.com", models.TierFree)
	optedOut := createTestUser(t, db, "r2@example.com", models.TierFree)
	noCharged := createTestUser(t, db, "r3@example.com", models.TierFree)

	setReminderPref(t, db, optedIn.ID, true)
	setReminderPref(t, db, optedOut.ID, false)
	setReminderPref(t, db, noCharged.ID, true)

	for _, uid := range []uint{optedIn.ID, optedOut.ID} {
		anchor, err := CreateAnchor(uid, CreateAnchorInput{IntentionText: "evening practice"})
		require.NoError(t, err)
		_, _, err = ChargeAnchor(uid, anchor.PublicID)
		require.NoError(t, err)
	}
	// noCharged has an anchor but never charged it
	_, err := CreateAnchor(noCharged.ID, CreateAnchorInput{IntentionText: "someday"})
	require.NoError(t, err)

	sent, err := svc.SendPracticeReminders()
	require.NoError(t, err)
	assert.Equal(t, 1, sent, "only opted-in users with a charged anchor")
}

func TestSendPracticeRemindersEmpty(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReminderService(db, &PushService{db: db})

	sent, err := svc.SendPracticeReminders()
	require.NoError(t, err)
	assert.Zero(t, sent)
}
