package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/charlesng35/mlnotify/internal/models"
)

func TestAutoMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))
	require.NoError(t, AutoMigrate(db))
}

func TestTemplateNameIsUnique(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	first := &models.NotificationTemplate{Name: "dup", TitleTemplate: "a", MessageTemplate: "b", Type: models.TypeInfo, Priority: models.PriorityLow, IsActive: true}
	require.NoError(t, db.Create(first).Error)

	second := &models.NotificationTemplate{Name: "dup", TitleTemplate: "c", MessageTemplate: "d", Type: models.TypeInfo, Priority: models.PriorityLow}
	require.Error(t, db.Create(second).Error)
}

func TestMetadataJSONQuery(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	now := time.Now().UTC()
	dynamic := &models.Notification{Title: "d", Message: "d", Type: models.TypeInfo, Priority: models.PriorityLow, Metadata: datatypes.JSON(`{"isDynamic":true}`), BaseModel: models.BaseModel{CreatedAt: now}}
	static := &models.Notification{Title: "s", Message: "s", Type: models.TypeInfo, Priority: models.PriorityLow, Metadata: datatypes.JSON(`{}`), BaseModel: models.BaseModel{CreatedAt: now}}
	require.NoError(t, db.Create(dynamic).Error)
	require.NoError(t, db.Create(static).Error)

	var found []models.Notification
	require.NoError(t, db.Where(datatypes.JSONQuery("metadata").HasKey("isDynamic")).Find(&found).Error)
	require.Len(t, found, 1)
	require.Equal(t, dynamic.ID, found[0].ID)
}
