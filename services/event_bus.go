package services

import (
	"fmt"
	"time"

	"github.com/dwill458/Anchor--sub003/models"
	"gorm.io/gorm"
)

type eventDeps struct {
	db *gorm.DB
	rt *RealtimeHub
	ps *PushService
}

var _events eventDeps

func InitEventDeps(db *gorm.DB, rt *RealtimeHub, ps *PushService) {
	_events = eventDeps{db: db, rt: rt, ps: ps}
}

// EmitAnchorEvent records a lifecycle event, fans it out to live websocket
// clients, and pushes a notification for kinds a user would want even with
// the app closed. Safe to call anywhere; a nil bus is a no-op.
func EmitAnchorEvent(userID, anchorID uint, kind, payload string) {
	if _events.db == nil {
		return // not initialized
	}
	e := &models.AnchorEvent{
		UserID:    userID,
		AnchorID:  anchorID,
		Kind:      kind,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	_ = _events.db.Create(e).Error

	if _events.rt != nil {
		_events.rt.BroadcastEvent(userID, map[string]any{
			"kind":  kind,
			"event": e,
		})
	}
	if _events.ps != nil && pushWorthy(kind) {
		_events.ps.PushToUser(userID, pushTitle(kind), pushBody(kind), map[string]string{
			"kind": kind, "anchorId": fmt.Sprintf("%d", anchorID),
		})
	}
}

// Only terminal enhancement outcomes push; queue chatter stays in-app.
func pushWorthy(kind string) bool {
	return kind == models.EventEnhancementReady || kind == models.EventEnhancementFailed
}

func pushTitle(kind string) string {
	if kind == models.EventEnhancementFailed {
		return "Enhancement failed"
	}
	return "Your sigil is ready"
}

func pushBody(kind string) string {
	if kind == models.EventEnhancementFailed {
		return "We couldn't enhance your sigil. Open the app to retry."
	}
	return "AI variations of your sigil are ready to choose from."
}
