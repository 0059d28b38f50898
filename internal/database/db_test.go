package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/charlesng35/mlnotify/internal/models"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Exec("SELECT 1").Error)
	require.NoError(t, Ping(context.Background(), db))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}

func TestAutoMigrateCreatesTables(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	for _, model := range []any{&models.Notification{}, &models.NotificationTemplate{}, &models.CacheEntry{}} {
		require.True(t, db.Migrator().HasTable(model))
	}
	require.True(t, db.Migrator().HasIndex(&models.Notification{}, "idx_notifications_user_read"))
	require.Error(t, AutoMigrate(nil))
}

func TestNowFuncIsUTC(t *testing.T) {
	cfg := gormConfig(Config{})
	require.Equal(t, time.UTC, cfg.NowFunc().Location())
}

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, logger.Silent, parseLogLevel(""))
	require.Equal(t, logger.Error, parseLogLevel("error"))
	require.Equal(t, logger.Warn, parseLogLevel("WARN"))
	require.Equal(t, logger.Info, parseLogLevel("debug"))
}

func TestNotificationPersistsFalseFlags(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	n := &models.Notification{Title: "t", Message: "m", Type: models.TypeInfo, Priority: models.PriorityLow}
	require.NoError(t, db.Create(n).Error)

	var loaded models.Notification
	require.NoError(t, db.First(&loaded, "id = ?", n.ID).Error)
	require.False(t, loaded.IsActive)
	require.False(t, loaded.AutoExpire)
	require.Nil(t, loaded.ExpiryDate)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{Driver: "sqlite", Path: "file:" + t.Name() + "?mode=memory&cache=shared"})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = Close(db)
	})

	return db
}
