package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/mlnotify/internal/database/testutil"
	"github.com/charlesng35/mlnotify/internal/models"
	"github.com/charlesng35/mlnotify/internal/notifications"
	apperrors "github.com/charlesng35/mlnotify/pkg/errors"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newNotificationService(t *testing.T) (*NotificationService, *gorm.DB, *testClock) {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	clock := &testClock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	svc, err := NewNotificationService(db, WithNotificationClock(clock.Now))
	require.NoError(t, err)
	return svc, db, clock
}

func boolPtr(v bool) *bool { return &v }

func TestNotificationServiceCreateDefaults(t *testing.T) {
	svc, _, clock := newNotificationService(t)
	ctx := context.Background()

	dto, err := svc.Create(ctx, CreateNotificationInput{
		UserID:   "alice",
		Title:    "Training complete",
		Message:  "Model A finished",
		Metadata: map[string]any{"run": "r-1"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, dto.ID)
	require.Equal(t, "info", dto.Type)
	require.Equal(t, "medium", dto.Priority)
	require.Equal(t, "alice", dto.UserID)
	require.True(t, dto.IsActive)
	require.True(t, dto.AutoExpire)
	require.False(t, dto.IsRead)
	require.Equal(t, "r-1", dto.Metadata["run"])

	loaded, err := svc.Get(ctx, dto.ID)
	require.NoError(t, err)
	require.True(t, loaded.CreatedAt.Equal(clock.now))
	require.NotNil(t, loaded.ExpiryDate)
	require.True(t, loaded.ExpiryDate.Equal(loaded.CreatedAt.Add(7*24*time.Hour)))
}

func TestNotificationServiceCreateExpiryOptions(t *testing.T) {
	svc, _, clock := newNotificationService(t)
	ctx := context.Background()

	custom, err := svc.Create(ctx, CreateNotificationInput{UserID: "a", Title: "t", Message: "m", ExpiryDays: 2})
	require.NoError(t, err)
	require.True(t, custom.ExpiryDate.Equal(clock.now.Add(48*time.Hour)))

	explicit := clock.now.Add(time.Hour)
	withDate, err := svc.Create(ctx, CreateNotificationInput{UserID: "a", Title: "t", Message: "m", ExpiryDate: &explicit})
	require.NoError(t, err)
	require.True(t, withDate.ExpiryDate.Equal(explicit))

	static, err := svc.Create(ctx, CreateNotificationInput{UserID: "a", Title: "t", Message: "m", AutoExpire: boolPtr(false)})
	require.NoError(t, err)
	require.False(t, static.AutoExpire)
	require.Nil(t, static.ExpiryDate)
}

func TestNotificationServiceCreateGlobalClearsUser(t *testing.T) {
	svc, _, _ := newNotificationService(t)

	dto, err := svc.Create(context.Background(), CreateNotificationInput{
		UserID:   "alice",
		IsGlobal: true,
		Title:    "Maintenance",
		Message:  "Scheduled downtime",
		Type:     "system",
	})
	require.NoError(t, err)
	require.True(t, dto.IsGlobal)
	require.Empty(t, dto.UserID)
	require.Nil(t, dto.Raw.UserID)
}

func TestNotificationServiceCreateRejectsInvalidEnums(t *testing.T) {
	svc, _, _ := newNotificationService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateNotificationInput{Title: "t", Message: "m", Type: "alert"})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = svc.Create(ctx, CreateNotificationInput{Title: "t", Message: "m", Priority: "critical"})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestNotificationServiceListForUserVisibility(t *testing.T) {
	svc, db, clock := newNotificationService(t)
	ctx := context.Background()

	own, err := svc.Create(ctx, CreateNotificationInput{UserID: "alice", Title: "own", Message: "m"})
	require.NoError(t, err)
	clock.Advance(time.Minute)
	global, err := svc.Create(ctx, CreateNotificationInput{IsGlobal: true, Title: "global", Message: "m"})
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = svc.Create(ctx, CreateNotificationInput{UserID: "bob", Title: "other", Message: "m"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateNotificationInput{Title: "orphan", Message: "m"})
	require.NoError(t, err)

	inactive, err := svc.Create(ctx, CreateNotificationInput{UserID: "alice", Title: "inactive", Message: "m"})
	require.NoError(t, err)
	_, err = svc.SetActive(ctx, []string{inactive.ID}, false)
	require.NoError(t, err)

	past := clock.now.Add(-time.Second)
	_, err = svc.Create(ctx, CreateNotificationInput{UserID: "alice", Title: "expired", Message: "m", ExpiryDate: &past})
	require.NoError(t, err)

	staleButStatic, err := svc.Create(ctx, CreateNotificationInput{UserID: "alice", Title: "static", Message: "m", AutoExpire: boolPtr(false), ExpiryDate: &past})
	require.NoError(t, err)

	items, err := svc.ListForUser(ctx, ListNotificationsInput{UserID: "alice"})
	require.NoError(t, err)

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
		row := item.Raw
		require.True(t, row.VisibleTo("alice", clock.now), item.Title)
	}
	require.Equal(t, []string{staleButStatic.ID, global.ID, own.ID}, ids)

	count, err := svc.CountForUser(ctx, "alice", false)
	require.NoError(t, err)
	require.EqualValues(t, 3, count)

	var total int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&total).Error)
	require.EqualValues(t, 7, total)

	_, err = svc.ListForUser(ctx, ListNotificationsInput{})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestNotificationServiceListUnreadLimitOffset(t *testing.T) {
	svc, _, clock := newNotificationService(t)
	ctx := context.Background()

	var created []*NotificationDTO
	for i := 0; i < 4; i++ {
		dto, err := svc.Create(ctx, CreateNotificationInput{UserID: "alice", Title: "n", Message: "m"})
		require.NoError(t, err)
		created = append(created, dto)
		clock.Advance(time.Second)
	}
	_, err := svc.MarkRead(ctx, created[3].ID)
	require.NoError(t, err)

	unread, err := svc.ListForUser(ctx, ListNotificationsInput{UserID: "alice", UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread, 3)
	require.Equal(t, created[2].ID, unread[0].ID)

	page, err := svc.ListForUser(ctx, ListNotificationsInput{UserID: "alice", Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, created[2].ID, page[0].ID)
	require.Equal(t, created[1].ID, page[1].ID)

	unreadCount, err := svc.CountForUser(ctx, "alice", true)
	require.NoError(t, err)
	require.EqualValues(t, 3, unreadCount)
}

func TestNotificationServiceMarkReadIsIdempotent(t *testing.T) {
	svc, _, clock := newNotificationService(t)
	ctx := context.Background()

	dto, err := svc.Create(ctx, CreateNotificationInput{UserID: "alice", Title: "t", Message: "m"})
	require.NoError(t, err)

	clock.Advance(time.Minute)
	first, err := svc.MarkRead(ctx, dto.ID)
	require.NoError(t, err)
	require.True(t, first.IsRead)
	require.NotNil(t, first.ReadAt)
	firstReadAt := *first.ReadAt
	require.True(t, firstReadAt.Equal(clock.now))

	clock.Advance(time.Hour)
	second, err := svc.MarkRead(ctx, dto.ID)
	require.NoError(t, err)
	require.True(t, second.IsRead)
	require.True(t, second.ReadAt.Equal(firstReadAt))

	_, err = svc.MarkRead(ctx, "missing")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestNotificationServiceMarkAllRead(t *testing.T) {
	svc, _, clock := newNotificationService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, CreateNotificationInput{UserID: "alice", Title: "t", Message: "m"})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, CreateNotificationInput{IsGlobal: true, Title: "g", Message: "m"})
	require.NoError(t, err)
	already, err := svc.Create(ctx, CreateNotificationInput{UserID: "alice", Title: "t", Message: "m"})
	require.NoError(t, err)
	_, err = svc.MarkRead(ctx, already.ID)
	require.NoError(t, err)
	bobs, err := svc.Create(ctx, CreateNotificationInput{UserID: "bob", Title: "t", Message: "m"})
	require.NoError(t, err)
	past := clock.now.Add(-time.Minute)
	expired, err := svc.Create(ctx, CreateNotificationInput{UserID: "alice", Title: "t", Message: "m", ExpiryDate: &past})
	require.NoError(t, err)

	before, err := svc.CountForUser(ctx, "alice", true)
	require.NoError(t, err)
	require.EqualValues(t, 4, before)

	count, err := svc.MarkAllRead(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, before, count)

	after, err := svc.CountForUser(ctx, "alice", true)
	require.NoError(t, err)
	require.Zero(t, after)

	bob, err := svc.Get(ctx, bobs.ID)
	require.NoError(t, err)
	require.False(t, bob.IsRead)

	stale, err := svc.Get(ctx, expired.ID)
	require.NoError(t, err)
	require.False(t, stale.IsRead)
}

func TestNotificationServiceDelete(t *testing.T) {
	svc, _, _ := newNotificationService(t)
	ctx := context.Background()

	dto, err := svc.Create(ctx, CreateNotificationInput{UserID: "alice", Title: "t", Message: "m"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, dto.ID))
	_, err = svc.Get(ctx, dto.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, dto.ID), apperrors.ErrNotFound)
}

func TestNotificationServiceExpireSweep(t *testing.T) {
	svc, _, clock := newNotificationService(t)
	ctx := context.Background()

	soon, err := svc.Create(ctx, CreateNotificationInput{UserID: "alice", Title: "t", Message: "m", ExpiryDays: 1})
	require.NoError(t, err)
	later, err := svc.Create(ctx, CreateNotificationInput{UserID: "alice", Title: "t", Message: "m", ExpiryDays: 3})
	require.NoError(t, err)
	past := clock.now.Add(-time.Hour)
	static, err := svc.Create(ctx, CreateNotificationInput{UserID: "alice", Title: "t", Message: "m", AutoExpire: boolPtr(false), ExpiryDate: &past})
	require.NoError(t, err)

	clock.Advance(24 * time.Hour)
	count, err := svc.ExpireSweep(ctx)
	require.NoError(t, err)
	require.Zero(t, count, "expiry at exactly now is not yet expired")

	clock.Advance(time.Second)
	count, err = svc.ExpireSweep(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	count, err = svc.ExpireSweep(ctx)
	require.NoError(t, err)
	require.Zero(t, count)

	for id, active := range map[string]bool{soon.ID: false, later.ID: true, static.ID: true} {
		dto, err := svc.Get(ctx, id)
		require.NoError(t, err)
		require.Equal(t, active, dto.IsActive, id)
	}
}

func TestNotificationServicePurgeStatic(t *testing.T) {
	svc, _, _ := newNotificationService(t)
	ctx := context.Background()

	dynamic, err := svc.Create(ctx, CreateNotificationInput{UserID: "alice", Title: "d", Message: "m", Metadata: map[string]any{"isDynamic": true}})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateNotificationInput{UserID: "alice", Title: "s", Message: "m"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateNotificationInput{UserID: "alice", Title: "s2", Message: "m", Metadata: map[string]any{"other": 1}})
	require.NoError(t, err)

	purged, err := svc.PurgeStatic(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, purged)

	remaining, err := svc.ListForUser(ctx, ListNotificationsInput{UserID: "alice"})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, dynamic.ID, remaining[0].ID)
}

func TestNotificationServiceCreateFromTemplate(t *testing.T) {
	svc, db, _ := newNotificationService(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.NotificationTemplate{
		Name:            "t",
		TitleTemplate:   "Run {run}",
		MessageTemplate: "Finished {run} with {foo}",
		Type:            models.TypeTraining,
		Priority:        models.PriorityHigh,
		IsActive:        true,
	}).Error)
	require.NoError(t, db.Create(&models.NotificationTemplate{
		Name:            "inactive",
		TitleTemplate:   "x",
		MessageTemplate: "y",
		Type:            models.TypeInfo,
		Priority:        models.PriorityLow,
	}).Error)

	_, err := svc.CreateFromTemplate(ctx, "missing_template", "alice", nil)
	require.ErrorIs(t, err, ErrTemplateNotFound)

	_, err = svc.CreateFromTemplate(ctx, "inactive", "alice", nil)
	require.ErrorIs(t, err, ErrTemplateNotFound)

	_, err = svc.CreateFromTemplate(ctx, "t", "alice", map[string]any{"run": "r1"})
	require.ErrorIs(t, err, ErrMissingVariable)
	var mv *notifications.MissingVariableError
	require.True(t, errors.As(err, &mv))
	require.Equal(t, []string{"foo"}, mv.Names)
	require.Equal(t, 400, apperrors.FromError(err).StatusCode)

	dto, err := svc.CreateFromTemplate(ctx, "t", "alice", map[string]any{"run": "r1", "foo": 3})
	require.NoError(t, err)
	require.Equal(t, "Run r1", dto.Title)
	require.Equal(t, "Finished r1 with 3", dto.Message)
	require.Equal(t, "training", dto.Type)
	require.Equal(t, "high", dto.Priority)
	require.Equal(t, "t", dto.Metadata["template"])
}

func TestNotificationServiceBulkStatus(t *testing.T) {
	svc, _, _ := newNotificationService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateNotificationInput{UserID: "alice", Title: "t", Message: "m"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, CreateNotificationInput{UserID: "bob", Title: "t", Message: "m"})
	require.NoError(t, err)

	count, err := svc.SetRead(ctx, []string{a.ID, b.ID, a.ID, " "}, true)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	count, err = svc.SetRead(ctx, []string{a.ID}, false)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	reloaded, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	require.False(t, reloaded.IsRead)
	require.Nil(t, reloaded.ReadAt)

	count, err = svc.SetActive(ctx, []string{b.ID}, false)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	count, err = svc.SetActive(ctx, nil, true)
	require.NoError(t, err)
	require.Zero(t, count)
}
