package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/charlesng35/mlnotify/pkg/errors"
)

type adminFixture struct {
	admin         *AdminService
	notifications *NotificationService
	templates     *TemplateService
	clock         *testClock
}

func newAdminFixture(t *testing.T) adminFixture {
	t.Helper()
	notificationSvc, db, clock := newNotificationService(t)
	templateSvc, err := NewTemplateService(db)
	require.NoError(t, err)
	admin, err := NewAdminService(db, notificationSvc, templateSvc)
	require.NoError(t, err)
	return adminFixture{admin: admin, notifications: notificationSvc, templates: templateSvc, clock: clock}
}

func (f adminFixture) create(t *testing.T, input CreateNotificationInput) *NotificationDTO {
	t.Helper()
	dto, err := f.notifications.Create(context.Background(), input)
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	return dto
}

func TestAdminListNotificationsFilters(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	training := f.create(t, CreateNotificationInput{UserID: "alice", Title: "Training started", Message: "m", Type: "training", Priority: "high", ModelName: "ResNet_50"})
	global := f.create(t, CreateNotificationInput{IsGlobal: true, Title: "Maintenance", Message: "Downtime tonight", Type: "system"})
	bobs := f.create(t, CreateNotificationInput{UserID: "bob", Title: "Prediction", Message: "done", Type: "prediction", OperationID: "op-100%"})
	_, err := f.notifications.MarkRead(ctx, bobs.ID)
	require.NoError(t, err)

	all, total, err := f.admin.ListNotifications(ctx, AdminListInput{})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Equal(t, []string{bobs.ID, global.ID, training.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	items, total, err := f.admin.ListNotifications(ctx, AdminListInput{Type: "TRAINING"})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, training.ID, items[0].ID)

	items, _, err = f.admin.ListNotifications(ctx, AdminListInput{IsGlobal: boolPtr(true)})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, global.ID, items[0].ID)

	items, _, err = f.admin.ListNotifications(ctx, AdminListInput{IsRead: boolPtr(true)})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, bobs.ID, items[0].ID)

	items, _, err = f.admin.ListNotifications(ctx, AdminListInput{UserID: "alice", Priority: "high"})
	require.NoError(t, err)
	require.Len(t, items, 1)

	_, _, err = f.admin.ListNotifications(ctx, AdminListInput{Type: "bogus"})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestAdminListNotificationsSearch(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	byModel := f.create(t, CreateNotificationInput{UserID: "alice", Title: "Done", Message: "m", ModelName: "ResNet_50"})
	byPercent := f.create(t, CreateNotificationInput{UserID: "alice", Title: "Batch", Message: "m", OperationID: "op-100%"})
	f.create(t, CreateNotificationInput{UserID: "alice", Title: "Other", Message: "op-1000"})

	items, total, err := f.admin.ListNotifications(ctx, AdminListInput{Search: "resnet"})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, byModel.ID, items[0].ID)

	items, total, err = f.admin.ListNotifications(ctx, AdminListInput{Search: "100%"})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, byPercent.ID, items[0].ID)

	items, _, err = f.admin.ListNotifications(ctx, AdminListInput{Search: "net_"})
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestAdminListNotificationsPaginationAndExpiryStatus(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	past := f.clock.now.Add(-time.Hour)
	expired := f.create(t, CreateNotificationInput{UserID: "alice", Title: "old", Message: "m", ExpiryDate: &past})
	static := f.create(t, CreateNotificationInput{UserID: "alice", Title: "static", Message: "m", AutoExpire: boolPtr(false)})
	fresh := f.create(t, CreateNotificationInput{UserID: "alice", Title: "fresh", Message: "m"})

	page1, total, err := f.admin.ListNotifications(ctx, AdminListInput{Page: 1, PerPage: 2})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, page1, 2)
	require.Equal(t, fresh.ID, page1[0].ID)
	require.Equal(t, "Active", page1[0].ExpiryStatus)
	require.Equal(t, static.ID, page1[1].ID)
	require.Equal(t, "Never", page1[1].ExpiryStatus)

	page2, _, err := f.admin.ListNotifications(ctx, AdminListInput{Page: 2, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, page2, 1)
	require.Equal(t, expired.ID, page2[0].ID)
	require.Equal(t, "Expired", page2[0].ExpiryStatus)
}

func TestAdminBulkNotifications(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	a := f.create(t, CreateNotificationInput{UserID: "alice", Title: "a", Message: "m"})
	b := f.create(t, CreateNotificationInput{UserID: "bob", Title: "b", Message: "m"})
	ids := []string{a.ID, b.ID}

	count, err := f.admin.BulkNotifications(ctx, BulkMarkRead, ids)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	count, err = f.admin.BulkNotifications(ctx, "MARK_UNREAD", ids)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	count, err = f.admin.BulkNotifications(ctx, BulkDeactivate, []string{a.ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	visible, err := f.notifications.CountForUser(ctx, "alice", false)
	require.NoError(t, err)
	require.Zero(t, visible)

	count, err = f.admin.BulkNotifications(ctx, BulkActivate, ids)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	_, err = f.admin.BulkNotifications(ctx, "delete", ids)
	require.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestAdminBulkTemplates(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	tmpl, err := f.templates.Create(ctx, CreateTemplateInput{Name: "x", TitleTemplate: "t", MessageTemplate: "m", Type: "info"})
	require.NoError(t, err)

	count, err := f.admin.BulkTemplates(ctx, BulkDeactivate, []string{tmpl.ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	count, err = f.admin.BulkTemplates(ctx, BulkActivate, []string{tmpl.ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	_, err = f.admin.BulkTemplates(ctx, BulkMarkRead, []string{tmpl.ID})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)
}
