package controllers

import (
	"net/http"

	"github.com/dwill458/Anchor--sub003/services"
	"github.com/dwill458/Anchor--sub003/utils"

	"github.com/gin-gonic/gin"
)

// POST /sigils/preview  { "intention_text": "...", "style": "traditional" }
// Pure computation, nothing is stored: the editor calls this on every edit.
func PreviewSigil(c *gin.Context) {
	var input struct {
		IntentionText string `json:"intention_text" binding:"required"`
		Style         string `json:"style"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	preview, err := services.BuildSigil(input.IntentionText, input.Style)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, preview)
}

// POST /sigils/manual  { "strokes": [[{"x":0,"y":0}, ...], ...] }
func ManualSigil(c *gin.Context) {
	var input struct {
		Strokes [][]utils.StrokePoint `json:"strokes" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	svg, err := utils.StrokesToSVG(input.Strokes)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"svg": svg})
}

// POST /mantras/suggest  { "intention_text": "..." }
func SuggestMantras(c *gin.Context) {
	var input struct {
		IntentionText string `json:"intention_text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	svc := services.NewMantraService()
	mantras, err := svc.Suggest(input.IntentionText)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"mantras": mantras})
}
