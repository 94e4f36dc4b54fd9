package controllers

import (
	"net/http"

	"github.com/dwill458/Anchor--sub003/services"

	"github.com/gin-gonic/gin"
)

// GET /user/settings
func GetSettings(c *gin.Context) {
	uid := c.GetUint("userID")

	settings, err := services.GetSettings(uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings, "schema_version": services.SettingsSchemaVersion})
}

// PATCH /user/settings
func UpdateSettings(c *gin.Context) {
	uid := c.GetUint("userID")

	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	settings, err := services.UpdateSettings(uid, patch)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings, "schema_version": services.SettingsSchemaVersion})
}
