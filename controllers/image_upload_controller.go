package controllers

import (
	"net/http"

	"github.com/dwill458/Anchor--sub003/config"
	"github.com/dwill458/Anchor--sub003/models"
	"github.com/dwill458/Anchor--sub003/utils"

	"github.com/gin-gonic/gin"
)

type profilePictureReq struct {
	ImageBase64 string `json:"image_base64" binding:"required"`
}

// UploadProfilePicture handles PUT /user/profile-picture. The app sends the
// picture as a data URI; the stored CloudFront URL goes back in the profile.
func UploadProfilePicture(c *gin.Context) {
	uid := c.GetUint("userID")

	var req profilePictureReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	var user models.User
	if err := config.DB.First(&user, uid).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}

	url, err := utils.UploadBase64ImageToS3(req.ImageBase64, user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed", "detail": err.Error()})
		return
	}

	user.ProfilePicture = url
	if err := config.DB.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}
