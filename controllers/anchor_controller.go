package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dwill458/Anchor--sub003/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func CreateAnchor(c *gin.Context) {
	uid := c.GetUint("userID")

	var input services.CreateAnchorInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	anchor, err := services.CreateAnchor(uid, input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAnchorQuota):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, anchor)
}

// GET /anchors?category=calm&charged=true&archived=true
func ListAnchors(c *gin.Context) {
	uid := c.GetUint("userID")

	filters := services.VaultFilters{
		Category:        c.Query("category"),
		IncludeArchived: c.Query("archived") == "true",
	}
	if v := c.Query("charged"); v != "" {
		charged := v == "true"
		filters.Charged = &charged
	}

	anchors, err := services.ListAnchors(uid, filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"anchors": anchors, "count": len(anchors)})
}

func GetAnchor(c *gin.Context) {
	uid := c.GetUint("userID")

	anchor, err := services.GetAnchorByPublicID(uid, c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "anchor not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, anchor)
}

func DeleteAnchor(c *gin.Context) {
	uid := c.GetUint("userID")

	if err := services.DeleteAnchor(uid, c.Param("id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "anchor not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "anchor deleted"})
}

func ArchiveAnchor(c *gin.Context) {
	uid := c.GetUint("userID")

	var input struct {
		Archived bool `json:"archived"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	anchor, err := services.ArchiveAnchor(uid, c.Param("id"), input.Archived)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "anchor not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, anchor)
}

func SetMantra(c *gin.Context) {
	uid := c.GetUint("userID")

	var input struct {
		MantraText string `json:"mantra_text"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	anchor, err := services.SetMantra(uid, c.Param("id"), input.MantraText)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "anchor not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, anchor)
}

// ChargeAnchor is idempotent: charging an already charged anchor reports
// already_charged instead of erroring, so the ritual screen can't double-fire.
func ChargeAnchor(c *gin.Context) {
	uid := c.GetUint("userID")

	anchor, newlyCharged, err := services.ChargeAnchor(uid, c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "anchor not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"anchor":          anchor,
		"already_charged": !newlyCharged,
	})
}

func ActivateAnchor(c *gin.Context) {
	uid := c.GetUint("userID")

	anchor, err := services.ActivateAnchor(uid, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "anchor not found"})
		case errors.Is(err, services.ErrNotCharged):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, anchor)
}

func ListActivations(c *gin.Context) {
	uid := c.GetUint("userID")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))
	rows, err := services.ListActivations(uid, c.Param("id"), limit)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "anchor not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"activations": rows})
}

func ChooseEnhancement(c *gin.Context) {
	uid := c.GetUint("userID")

	var input struct {
		ImageURL string `json:"image_url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	anchor, err := services.ChooseEnhancement(uid, c.Param("id"), input.ImageURL)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "anchor not found"})
		case errors.Is(err, services.ErrNotEnhancement):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, anchor)
}
