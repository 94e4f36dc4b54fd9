package services

import (
	"errors"

	"github.com/dwill458/Anchor--sub003/config"
	"github.com/dwill458/Anchor--sub003/models"
)

type ProfileInput struct {
	DisplayName string `json:"display_name"`
	Tier        string `json:"tier"`
	Onboarded   bool   `json:"onboarded"`
}

func GetUserProfile(email string) (map[string]interface{}, error) {
	var user models.User
	result := config.DB.Where("email = ? AND disabled = ?", email, false).First(&user)
	if result.Error != nil {
		return nil, errors.New("user not found or disabled")
	}

	var anchorCount int64
	config.DB.Model(&models.Anchor{}).
		Where("user_id = ? AND archived = ?", user.ID, false).
		Count(&anchorCount)

	return map[string]interface{}{
		"id":              user.ID,
		"email":           user.Email,
		"display_name":    user.DisplayName,
		"profile_picture": user.ProfilePicture,
		"tier":            user.Tier,
		"anchor_count":    anchorCount,
		"mfa_enabled":     user.MFAEnabled,
		"onboarded":       user.Onboarded,
	}, nil
}

func UpdateUserProfile(email string, input ProfileInput) error {
	var user models.User
	result := config.DB.Where("email = ? AND disabled = ?", email, false).First(&user)
	if result.Error != nil {
		return errors.New("user not found or disabled")
	}

	if input.DisplayName != "" {
		user.DisplayName = input.DisplayName
	}
	if input.Tier == models.TierFree || input.Tier == models.TierPlus {
		user.Tier = input.Tier
	}

	user.Onboarded = input.Onboarded

	return config.DB.Save(&user).Error
}

func FindUserByEmail(email string) (*models.User, error) {
	var user models.User
	result := config.DB.First(&user, "email = ?", email)
	if result.Error != nil {
		return nil, errors.New("user not found")
	}
	return &user, nil
}

func DeleteUser(email string) error {
	var user models.User
	result := config.DB.First(&user, "email = ?", email)
	if result.Error != nil {
		return result.Error
	}
	user.Disabled = true
	return config.DB.Save(&user).Error
}

func CompleteUserOnboarding(email, displayName string, mfaEnabled bool) error {
	var user models.User
	if err := config.DB.
		Where("email = ? AND disabled = ?", email, false).
		First(&user).Error; err != nil {
		return errors.New("user not found or disabled")
	}

	if displayName != "" {
		user.DisplayName = displayName
	}
	user.MFAEnabled = mfaEnabled
	user.Onboarded = true

	return config.DB.Save(&user).Error
}
