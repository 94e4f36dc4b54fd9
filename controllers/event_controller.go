// controllers/event_controller.go
package controllers

import (
	"net/http"
	"strconv"

	"github.com/dwill458/Anchor--sub003/config"
	"github.com/dwill458/Anchor--sub003/models"

	"github.com/gin-gonic/gin"
)

// ListEvents handles GET /events?limit=&kind=: the persisted feed behind
// the websocket, for clients catching up after reconnect.
func ListEvents(c *gin.Context) {
	uid := c.GetUint("userID")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	q := config.DB.Where("user_id = ?", uid)
	if kind := c.Query("kind"); kind != "" {
		q = q.Where("kind = ?", kind)
	}

	var events []models.AnchorEvent
	if err := q.Order("created_at DESC").Limit(limit).Find(&events).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}
