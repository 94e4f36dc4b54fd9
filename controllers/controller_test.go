package controllers

import (
	"testing"

	"github.com/dwill458/Anchor--sub003/config"
	"github.com/dwill458/Anchor--sub003/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Anchor{},
		&models.Activation{},
		&models.EnhancementJob{},
		&models.UserSettings{},
		&models.UserDevice{},
		&models.AnchorEvent{},
	))

	config.DB = db
	t.Cleanup(func() {
		config.DB = nil
		_ = sqlDB.Close()
	})
	return db
}

// authAs stands in for the JWT middleware in handler tests.
func authAs(userID uint, email string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("email", email)
		c.Next()
	}
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}
