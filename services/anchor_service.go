package services

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/dwill458/Anchor--sub003/config"
	"github.com/dwill458/Anchor--sub003/models"
	"github.com/dwill458/Anchor--sub003/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxIntentionLen = 280

var (
	ErrIntentionRequired = errors.New("intention text is required")
	ErrIntentionTooLong  = errors.New("intention text is too long")
	ErrUnknownStyle      = errors.New("unknown sigil style")
	ErrStrokesRequired   = errors.New("manual style requires strokes")
	ErrAnchorQuota       = errors.New("free tier anchor limit reached")
	ErrNotCharged        = errors.New("anchor must be charged before activation")
	ErrNotEnhancement    = errors.New("image is not an enhancement of this anchor")
)

type SigilPreview struct {
	Letters  string              `json:"letters"`
	Svg      string              `json:"svg"`
	Analysis utils.SigilAnalysis `json:"analysis"`
}

// BuildSigil distills an intention and renders it in the requested generated
// style. Used by the live preview and by anchor creation, so both always
// agree on the artwork.
func BuildSigil(intention, style string) (*SigilPreview, error) {
	text := strings.TrimSpace(intention)
	if text == "" {
		return nil, ErrIntentionRequired
	}
	if len(text) > maxIntentionLen {
		return nil, ErrIntentionTooLong
	}

	letters, err := utils.Distill(text)
	if err != nil {
		return nil, err
	}
	seed := utils.SigilSeed(letters)

	var svg string
	switch style {
	case models.StyleTraditional, "":
		style = models.StyleTraditional
		svg, err = utils.GenerateTraditional(letters, seed)
	case models.StyleAbstract:
		svg, err = utils.GenerateAbstract(letters, seed)
	default:
		return nil, ErrUnknownStyle
	}
	if err != nil {
		return nil, err
	}

	return &SigilPreview{
		Letters:  letters,
		Svg:      svg,
		Analysis: utils.Analyze(style, letters, svg),
	}, nil
}

type CreateAnchorInput struct {
	IntentionText string                `json:"intention_text"`
	Category      string                `json:"category"`
	Style         string                `json:"style"`
	MantraText    string                `json:"mantra_text"`
	Strokes       [][]utils.StrokePoint `json:"strokes,omitempty"`
}

func CreateAnchor(userID uint, input CreateAnchorInput) (*models.Anchor, error) {
	var user models.User
	if err := config.DB.First(&user, userID).Error; err != nil {
		return nil, err
	}
	if user.Tier != models.TierPlus {
		limit := int64(envInt("FREE_MAX_ANCHORS", 7))
		var count int64
		if err := config.DB.Model(&models.Anchor{}).
			Where("user_id = ? AND archived = ?", userID, false).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count >= limit {
			return nil, ErrAnchorQuota
		}
	}

	text := strings.TrimSpace(input.IntentionText)
	if text == "" {
		return nil, ErrIntentionRequired
	}
	if len(text) > maxIntentionLen {
		return nil, ErrIntentionTooLong
	}

	letters, err := utils.Distill(text)
	if err != nil {
		return nil, err
	}

	style := input.Style
	var svg string
	switch style {
	case models.StyleManual:
		if len(input.Strokes) == 0 {
			return nil, ErrStrokesRequired
		}
		svg, err = utils.StrokesToSVG(input.Strokes)
	case models.StyleTraditional, models.StyleAbstract, "":
		preview, perr := BuildSigil(text, style)
		if perr != nil {
			return nil, perr
		}
		style = preview.Analysis.Style
		svg = preview.Svg
	default:
		return nil, ErrUnknownStyle
	}
	if err != nil {
		return nil, err
	}

	anchor := &models.Anchor{
		PublicID:         uuid.NewString(),
		UserID:           userID,
		IntentionText:    text,
		Category:         strings.ToLower(strings.TrimSpace(input.Category)),
		Style:            style,
		DistilledLetters: letters,
		BaseSigilSvg:     svg,
		MantraText:       strings.TrimSpace(input.MantraText),
	}
	if err := config.DB.Create(anchor).Error; err != nil {
		return nil, err
	}

	EmitAnchorEvent(userID, anchor.ID, models.EventAnchorCreated, anchor.PublicID)
	return anchor, nil
}

type VaultFilters struct {
	Category        string
	Charged         *bool
	IncludeArchived bool
}

func ListAnchors(userID uint, f VaultFilters) ([]models.Anchor, error) {
	q := config.DB.Where("user_id = ?", userID)
	if !f.IncludeArchived {
		q = q.Where("archived = ?", false)
	}
	if f.Category != "" {
		q = q.Where("category = ?", strings.ToLower(f.Category))
	}
	if f.Charged != nil {
		q = q.Where("is_charged = ?", *f.Charged)
	}

	var anchors []models.Anchor
	err := q.Order("created_at DESC").Find(&anchors).Error
	return anchors, err
}

func GetAnchorByPublicID(userID uint, publicID string) (*models.Anchor, error) {
	var anchor models.Anchor
	err := config.DB.
		Where("public_id = ? AND user_id = ?", publicID, userID).
		First(&anchor).Error
	if err != nil {
		return nil, err // could be ErrRecordNotFound
	}
	return &anchor, nil
}

func DeleteAnchor(userID uint, publicID string) error {
	anchor, err := GetAnchorByPublicID(userID, publicID)
	if err != nil {
		return err
	}
	return config.DB.Delete(anchor).Error
}

func ArchiveAnchor(userID uint, publicID string, archived bool) (*models.Anchor, error) {
	anchor, err := GetAnchorByPublicID(userID, publicID)
	if err != nil {
		return nil, err
	}
	anchor.Archived = archived
	if err := config.DB.Save(anchor).Error; err != nil {
		return nil, err
	}
	return anchor, nil
}

func SetMantra(userID uint, publicID, mantra string) (*models.Anchor, error) {
	anchor, err := GetAnchorByPublicID(userID, publicID)
	if err != nil {
		return nil, err
	}
	anchor.MantraText = strings.TrimSpace(mantra)
	if err := config.DB.Save(anchor).Error; err != nil {
		return nil, err
	}
	return anchor, nil
}

// ChargeAnchor marks the anchor charged. Charging twice is a no-op: the
// original ChargedAt stands and no duplicate event fires.
func ChargeAnchor(userID uint, publicID string) (*models.Anchor, bool, error) {
	anchor, err := GetAnchorByPublicID(userID, publicID)
	if err != nil {
		return nil, false, err
	}
	if anchor.IsCharged {
		return anchor, false, nil
	}

	now := time.Now()
	anchor.IsCharged = true
	anchor.ChargedAt = &now
	if err := config.DB.Save(anchor).Error; err != nil {
		return nil, false, err
	}

	EmitAnchorEvent(userID, anchor.ID, models.EventAnchorCharged, anchor.PublicID)
	return anchor, true, nil
}

// ActivateAnchor records one practice repetition. The activation row and the
// counter bump commit together or not at all.
func ActivateAnchor(userID uint, publicID string) (*models.Anchor, error) {
	anchor, err := GetAnchorByPublicID(userID, publicID)
	if err != nil {
		return nil, err
	}
	if !anchor.IsCharged {
		return nil, ErrNotCharged
	}

	now := time.Now()
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.Activation{
			UserID:      userID,
			AnchorID:    anchor.ID,
			ActivatedAt: now,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Anchor{}).
			Where("id = ?", anchor.ID).
			Updates(map[string]any{
				"activation_count":  gorm.Expr("activation_count + 1"),
				"last_activated_at": now,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	EmitAnchorEvent(userID, anchor.ID, models.EventAnchorActivated, anchor.PublicID)
	return GetAnchorByPublicID(userID, publicID)
}

func ListActivations(userID uint, publicID string, limit int) ([]models.Activation, error) {
	anchor, err := GetAnchorByPublicID(userID, publicID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 30
	}
	var rows []models.Activation
	err = config.DB.
		Where("anchor_id = ? AND user_id = ?", anchor.ID, userID).
		Order("activated_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// ChooseEnhancement pins one AI variation as the anchor's display image. The
// URL must come from one of the anchor's own succeeded jobs.
func ChooseEnhancement(userID uint, publicID, imageURL string) (*models.Anchor, error) {
	anchor, err := GetAnchorByPublicID(userID, publicID)
	if err != nil {
		return nil, err
	}

	var jobs []models.EnhancementJob
	if err := config.DB.
		Where("anchor_id = ? AND user_id = ? AND status = ?", anchor.ID, userID, models.JobSucceeded).
		Find(&jobs).Error; err != nil {
		return nil, err
	}

	owned := false
	for _, job := range jobs {
		var urls []string
		if json.Unmarshal([]byte(job.Variations), &urls) != nil {
			continue
		}
		for _, u := range urls {
			if u == imageURL {
				owned = true
				break
			}
		}
		if owned {
			break
		}
	}
	if !owned {
		return nil, ErrNotEnhancement
	}

	anchor.EnhancedImageURL = imageURL
	if err := config.DB.Save(anchor).Error; err != nil {
		return nil, err
	}
	return anchor, nil
}
