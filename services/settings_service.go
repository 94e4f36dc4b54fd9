package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dwill458/Anchor--sub003/config"
	"github.com/dwill458/Anchor--sub003/models"

	"gorm.io/gorm"
)

// ErrSettingsFromFuture is returned when a row was written by a newer build
// than this one. Downgrading a blob we can't understand would corrupt it, so
// the read fails instead.
var ErrSettingsFromFuture = errors.New("settings were saved by a newer app version")

// SettingsSchemaVersion is the version new rows are written at. Older rows
// are migrated forward on read and written back, so the schema converges
// without a maintenance job.
const SettingsSchemaVersion = 3

func DefaultSettings() map[string]any {
	return map[string]any{
		"theme":            "system",
		"haptic_feedback":  true,
		"reminder_enabled": false,
		"reminder_time":    "09:00",
		"reduce_motion":    false,
	}
}

// MigrateSettings upgrades a raw settings map from the given version to the
// current schema. Renamed keys keep their stored value; keys the current
// schema doesn't know are dropped; missing keys get defaults.
func MigrateSettings(version int, raw map[string]any) (map[string]any, int) {
	if raw == nil {
		raw = map[string]any{}
	}

	if version < 2 {
		renameKey(raw, "haptics", "haptic_feedback")
		renameKey(raw, "daily_reminder", "reminder_enabled")
		version = 2
	}
	if version < 3 {
		renameKey(raw, "reminder_at", "reminder_time")
		version = 3
	}

	out := DefaultSettings()
	for k := range out {
		if v, ok := raw[k]; ok {
			out[k] = v
		}
	}
	return out, version
}

func renameKey(m map[string]any, from, to string) {
	if v, ok := m[from]; ok {
		if _, taken := m[to]; !taken {
			m[to] = v
		}
		delete(m, from)
	}
}

// GetSettings returns the user's settings, creating the row with defaults on
// first read and silently upgrading rows stored under an older schema. Rows
// written at a newer schema version fail with ErrSettingsFromFuture.
func GetSettings(userID uint) (map[string]any, error) {
	var row models.UserSettings
	err := config.DB.Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return createDefaultSettings(userID)
	}
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if jsonErr := json.Unmarshal([]byte(row.Data), &raw); jsonErr != nil {
		// Corrupt blob: reset rather than brick the settings screen.
		return resetSettings(&row)
	}

	if row.SchemaVersion > SettingsSchemaVersion {
		return nil, ErrSettingsFromFuture
	}
	if row.SchemaVersion == SettingsSchemaVersion {
		return raw, nil
	}

	migrated, version := MigrateSettings(row.SchemaVersion, raw)
	data, _ := json.Marshal(migrated)
	row.Data = string(data)
	row.SchemaVersion = version
	if err := config.DB.Save(&row).Error; err != nil {
		return nil, err
	}
	return migrated, nil
}

func createDefaultSettings(userID uint) (map[string]any, error) {
	defaults := DefaultSettings()
	data, _ := json.Marshal(defaults)
	row := models.UserSettings{
		UserID:        userID,
		SchemaVersion: SettingsSchemaVersion,
		Data:          string(data),
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if err := config.DB.Create(&row).Error; err != nil {
		return nil, err
	}
	return defaults, nil
}

func resetSettings(row *models.UserSettings) (map[string]any, error) {
	defaults := DefaultSettings()
	data, _ := json.Marshal(defaults)
	row.Data = string(data)
	row.SchemaVersion = SettingsSchemaVersion
	if err := config.DB.Save(row).Error; err != nil {
		return nil, err
	}
	return defaults, nil
}

// UpdateSettings merges a partial update onto the stored settings. Unknown
// keys and wrong types are rejected so a stale client can't corrupt the row.
func UpdateSettings(userID uint, patch map[string]any) (map[string]any, error) {
	current, err := GetSettings(userID)
	if err != nil {
		return nil, err
	}

	for k, v := range patch {
		if _, known := current[k]; !known {
			return nil, fmt.Errorf("unknown setting %q", k)
		}
		if err := validateSetting(k, v); err != nil {
			return nil, err
		}
		current[k] = v
	}

	data, _ := json.Marshal(current)
	err = config.DB.Model(&models.UserSettings{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"data":           string(data),
			"schema_version": SettingsSchemaVersion,
			"updated_at":     time.Now(),
		}).Error
	if err != nil {
		return nil, err
	}
	return current, nil
}

func validateSetting(key string, value any) error {
	switch key {
	case "theme":
		s, ok := value.(string)
		if !ok || (s != "dark" && s != "light" && s != "system") {
			return fmt.Errorf("theme must be dark, light or system")
		}
	case "reminder_time":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("reminder_time must be a string")
		}
		if _, err := time.Parse("15:04", s); err != nil {
			return fmt.Errorf("reminder_time must be HH:MM")
		}
	case "haptic_feedback", "reminder_enabled", "reduce_motion":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%s must be a boolean", key)
		}
	}
	return nil
}
