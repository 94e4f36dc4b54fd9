package services

import (
	"testing"

	"github.com/dwill458/Anchor--sub003/config"
	"github.com/dwill458/Anchor--sub003/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens a fresh in-memory sqlite database, migrates the schema
// and points the package-global config.DB at it. A single connection keeps
// the worker-pool tests serialized the way sqlite expects.
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
	InitEventDeps(db, nil, nil)
	t.Cleanup(func() {
		config.DB = nil
		InitEventDeps(nil, nil, nil)
		_ = sqlDB.Close()
	})
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email, tier string) *models.User {
	t.Helper()
	user := &models.User{
		Email:    email,
		Password: "x",
		Tier:     tier,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}
