// controllers/dev_controller.go
package controllers

import (
	"net/http"

	"github.com/dwill458/Anchor--sub003/services"

	"github.com/gin-gonic/gin"
)

type DevController struct {
	Push *services.PushService
	Enh  *services.EnhancementService
	Rem  *services.ReminderService
}

func NewDevController(p *services.PushService, e *services.EnhancementService, r *services.ReminderService) *DevController {
	return &DevController{Push: p, Enh: e, Rem: r}
}

type pushReq struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
}

// PushTest handles POST /dev/push-test: fire a notification at the caller's
// own devices to check the SNS plumbing end to end.
func (d *DevController) PushTest(c *gin.Context) {
	uid := c.GetUint("userID")

	var req pushReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Title == "" {
		req.Title = "Test notification"
	}
	if req.Body == "" {
		req.Body = "This is only a test."
	}
	if req.Data == nil {
		req.Data = map[string]string{"kind": "dev.test"}
	}

	d.Push.PushToUser(uid, req.Title, req.Body, req.Data)

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type devEnhanceReq struct {
	AnchorID    string `json:"anchor_id" binding:"required"`
	RenderStyle string `json:"render_style"`
}

// EnhanceInline handles POST /dev/enhance-sync: run one enhancement job on
// the request goroutine, skipping the queue. Useful for poking at prompt
// output without worker noise in the logs.
func (d *DevController) EnhanceInline(c *gin.Context) {
	uid := c.GetUint("userID")

	var req devEnhanceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := d.Enh.RunInline(uid, req.AnchorID, req.RenderStyle)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": job})
}

// SendReminders handles POST /dev/send-reminders: trigger the daily
// practice reminder sweep manually.
func (d *DevController) SendReminders(c *gin.Context) {
	sent, err := d.Rem.SendPracticeReminders()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notified": sent})
}
