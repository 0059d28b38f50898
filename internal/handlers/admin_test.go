package handlers_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/mlnotify/internal/handlers/testutil"
	"github.com/charlesng35/mlnotify/internal/models"
	"github.com/charlesng35/mlnotify/internal/notifications"
	"github.com/charlesng35/mlnotify/internal/services"
)

func TestAdminRoutesRequireManagePermission(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/api/admin/notifications", nil, env.UserToken("alice"))
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.Request(http.MethodPost, "/api/admin/templates/seed", nil, env.UserToken("alice"))
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.Request(http.MethodGet, "/api/admin/notifications", nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminListNotificationsFilters(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	svc := env.Services.Notifications

	past := time.Now().UTC().Add(-time.Hour)
	_, err := svc.Create(ctx, services.CreateNotificationInput{UserID: "alice", Title: "Training done", Message: "ResNet finished", Type: "training", ModelName: "ResNet"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, services.CreateNotificationInput{UserID: "bob", Title: "Disk alert", Message: "Disk 90% full", Type: "warning", Priority: "high"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, services.CreateNotificationInput{IsGlobal: true, Title: "Maintenance", Message: "Tonight", Type: "system", ExpiryDate: &past})
	require.NoError(t, err)

	token := env.AdminToken("root")

	w := env.Request(http.MethodGet, "/api/admin/notifications", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := testutil.DecodeResponse(t, w)
	var items []services.NotificationDTO
	testutil.DecodeInto(t, resp.Data, &items)
	require.Len(t, items, 3)
	require.Equal(t, 3, resp.Meta.Total)
	require.Equal(t, 50, resp.Meta.PerPage)
	for _, item := range items {
		require.NotEmpty(t, item.ExpiryStatus)
		if item.Title == "Maintenance" {
			require.Equal(t, "Expired", item.ExpiryStatus)
		}
	}

	cases := []struct {
		query string
		title string
	}{
		{"?type=warning", "Disk alert"},
		{"?priority=high", "Disk alert"},
		{"?is_global=true", "Maintenance"},
		{"?user_id=alice", "Training done"},
		{"?search=resnet", "Training done"},
		{"?search=DISK", "Disk alert"},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			w := env.Request(http.MethodGet, "/api/admin/notifications"+tc.query, nil, token)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var filtered []services.NotificationDTO
			testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &filtered)
			require.Len(t, filtered, 1)
			require.Equal(t, tc.title, filtered[0].Title)
		})
	}

	w = env.Request(http.MethodGet, "/api/admin/notifications?per_page=2&page=2", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	resp = testutil.DecodeResponse(t, w)
	testutil.DecodeInto(t, resp.Data, &items)
	require.Len(t, items, 1)
	require.Equal(t, 2, resp.Meta.TotalPages)

	w = env.Request(http.MethodGet, "/api/admin/notifications?type=bogus", nil, token)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminBulkNotifications(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	a, err := env.Services.Notifications.Create(ctx, services.CreateNotificationInput{UserID: "alice", Title: "a", Message: "m"})
	require.NoError(t, err)
	b, err := env.Services.Notifications.Create(ctx, services.CreateNotificationInput{UserID: "bob", Title: "b", Message: "m"})
	require.NoError(t, err)
	token := env.AdminToken("root")

	type bulkResult struct {
		Action string `json:"action"`
		Count  int64  `json:"count"`
	}

	w := env.Request(http.MethodPost, "/api/admin/notifications/bulk", map[string]any{
		"action": "mark_read",
		"ids":    []string{a.ID, b.ID},
	}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result bulkResult
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &result)
	require.Equal(t, "mark_read", result.Action)
	require.EqualValues(t, 2, result.Count)

	w = env.Request(http.MethodPost, "/api/admin/notifications/bulk", map[string]any{
		"action": "deactivate",
		"ids":    []string{b.ID},
	}, token)
	require.Equal(t, http.StatusOK, w.Code)

	var row models.Notification
	require.NoError(t, env.DB.First(&row, "id = ?", b.ID).Error)
	require.True(t, row.IsRead)
	require.False(t, row.IsActive)

	w = env.Request(http.MethodPost, "/api/admin/notifications/bulk", map[string]any{
		"action": "explode",
		"ids":    []string{a.ID},
	}, token)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.Request(http.MethodPost, "/api/admin/notifications/bulk", map[string]any{
		"action": "mark_read",
		"ids":    []string{},
	}, token)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminAnnounceReachesEveryone(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodPost, "/api/admin/notifications/system", map[string]any{
		"title":    "Scheduled maintenance",
		"message":  "The platform restarts at 02:00 UTC",
		"priority": "urgent",
	}, env.AdminToken("root"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var dto services.NotificationDTO
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &dto)
	require.True(t, dto.IsGlobal)
	require.Equal(t, "system", dto.Type)
	require.Equal(t, "urgent", dto.Priority)

	for _, user := range []string{"alice", "bob"} {
		w = env.Request(http.MethodGet, "/api/notifications", nil, env.UserToken(user))
		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Notifications []services.NotificationDTO `json:"notifications"`
		}
		testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &body)
		require.Len(t, body.Notifications, 1, user)
		require.Equal(t, dto.ID, body.Notifications[0].ID)
	}

	w = env.Request(http.MethodPost, "/api/admin/notifications/system", map[string]any{
		"title":     "Untargeted",
		"message":   "No recipient given",
		"is_global": false,
	}, env.AdminToken("root"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &dto)
	require.True(t, dto.IsGlobal)

	w = env.Request(http.MethodGet, "/api/notifications", nil, env.UserToken("carol"))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), dto.ID)

	w = env.Request(http.MethodPost, "/api/admin/notifications/system", map[string]any{"title": "no message"}, env.AdminToken("root"))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminTemplateVariables(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/api/admin/templates/variables", nil, env.AdminToken("root"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var vars []notifications.Variable
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &vars)
	require.Equal(t, notifications.VariableHelp, vars)
	require.Equal(t, notifications.VarAccuracy, vars[0].Name)

	w = env.Request(http.MethodGet, "/api/admin/templates/variables", nil, env.UserToken("alice"))
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminTemplateLifecycle(t *testing.T) {
	env := testutil.NewEnv(t)
	token := env.AdminToken("root")

	w := env.Request(http.MethodPost, "/api/admin/templates", map[string]any{
		"name":             "gpu_quota",
		"title_template":   "GPU quota at {cpu_usage}%",
		"message_template": "Processed {records} records so far.",
		"type":             "warning",
		"tag":              "system",
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var tpl services.TemplateDTO
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &tpl)
	require.Equal(t, "gpu_quota", tpl.Name)
	require.Equal(t, "medium", tpl.Priority)
	require.True(t, tpl.IsActive)
	require.ElementsMatch(t, []string{"cpu_usage", "records"}, tpl.Placeholders)

	w = env.Request(http.MethodPost, "/api/admin/templates", map[string]any{
		"name":             "gpu_quota",
		"title_template":   "Duplicate",
		"message_template": "Duplicate",
		"type":             "info",
	}, token)
	require.Equal(t, http.StatusConflict, w.Code)

	w = env.Request(http.MethodPost, "/api/admin/templates", map[string]any{
		"name":             "no_type",
		"title_template":   "t",
		"message_template": "m",
	}, token)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.Request(http.MethodGet, "/api/admin/templates/"+tpl.ID, nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.Request(http.MethodGet, "/api/admin/templates/missing", nil, token)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.Request(http.MethodPatch, "/api/admin/templates/"+tpl.ID, map[string]any{
		"priority":  "high",
		"is_active": false,
	}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &tpl)
	require.Equal(t, "high", tpl.Priority)
	require.False(t, tpl.IsActive)
	require.Equal(t, "GPU quota at {cpu_usage}%", tpl.TitleTemplate)

	w = env.Request(http.MethodGet, "/api/admin/templates?active=true", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []services.TemplateDTO
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &listed)
	require.Empty(t, listed)

	w = env.Request(http.MethodPost, "/api/admin/templates/bulk", map[string]any{
		"action": "activate",
		"ids":    []string{tpl.ID},
	}, token)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.Request(http.MethodGet, "/api/admin/templates?active=true", nil, token)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &listed)
	require.Len(t, listed, 1)

	w = env.Request(http.MethodPost, "/api/admin/templates/bulk", map[string]any{
		"action": "mark_read",
		"ids":    []string{tpl.ID},
	}, token)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminTemplatePreviewAndTest(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	token := env.AdminToken("root")

	good, err := env.Services.Templates.Create(ctx, services.CreateTemplateInput{
		Name:            "accuracy_report",
		TitleTemplate:   "Accuracy report",
		MessageTemplate: "Accuracy reached {accuracy}%",
		Type:            "training",
		IsActive:        boolPtr(false),
	})
	require.NoError(t, err)
	broken, err := env.Services.Templates.Create(ctx, services.CreateTemplateInput{
		Name:            "broken",
		TitleTemplate:   "Broken",
		MessageTemplate: "Needs {nonexistent_value}",
		Type:            "info",
	})
	require.NoError(t, err)

	w := env.Request(http.MethodGet, "/api/admin/templates/"+good.ID+"/preview", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var preview services.TemplatePreview
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &preview)
	require.Equal(t, "Accuracy reached 94.2%", preview.Message)
	require.Empty(t, preview.Missing)

	w = env.Request(http.MethodGet, "/api/admin/templates/"+broken.ID+"/preview", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &preview)
	require.Equal(t, []string{"nonexistent_value"}, preview.Missing)
	require.NotEmpty(t, preview.Error)

	w = env.Request(http.MethodPost, "/api/admin/templates/"+good.ID+"/test", nil, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var dto services.NotificationDTO
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &dto)
	require.Equal(t, "root", dto.UserID)
	require.Equal(t, "template_test", dto.Metadata["source"])
	require.Equal(t, "accuracy_report", dto.Metadata["template"])

	w = env.Request(http.MethodPost, "/api/admin/templates/"+broken.ID+"/test", nil, token)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "MISSING_VARIABLE", testutil.DecodeResponse(t, w).Error.Code)

	var count int64
	require.NoError(t, env.DB.Model(&models.Notification{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestAdminSeedTemplatesIsIdempotent(t *testing.T) {
	env := testutil.NewEnv(t)
	token := env.AdminToken("root")

	var body struct {
		Created int `json:"created"`
	}

	w := env.Request(http.MethodPost, "/api/admin/templates/seed", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &body)
	require.Equal(t, len(services.DefaultTemplates()), body.Created)

	w = env.Request(http.MethodPost, "/api/admin/templates/seed", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &body)
	require.Zero(t, body.Created)
}

func TestAdminMaintenanceEndpoints(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	token := env.AdminToken("root")
	svc := env.Services.Notifications

	past := time.Now().UTC().Add(-time.Hour)
	expired, err := svc.Create(ctx, services.CreateNotificationInput{UserID: "alice", Title: "old", Message: "m", ExpiryDate: &past})
	require.NoError(t, err)
	_, err = svc.Create(ctx, services.CreateNotificationInput{UserID: "alice", Title: "fresh", Message: "m"})
	require.NoError(t, err)

	_, err = env.Services.Templates.SeedDefaults(ctx)
	require.NoError(t, err)
	_, err = env.Services.Generator.Generate(ctx, "alice", 3)
	require.NoError(t, err)

	w := env.Request(http.MethodPost, "/api/admin/maintenance/expire", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var expiredBody struct {
		Expired int64 `json:"expired"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &expiredBody)
	require.EqualValues(t, 1, expiredBody.Expired)

	var row models.Notification
	require.NoError(t, env.DB.First(&row, "id = ?", expired.ID).Error)
	require.False(t, row.IsActive)

	w = env.Request(http.MethodPost, "/api/admin/maintenance/purge-static", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var purged struct {
		Deleted int64 `json:"deleted"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &purged)
	require.EqualValues(t, 2, purged.Deleted)

	var remaining int64
	require.NoError(t, env.DB.Model(&models.Notification{}).Count(&remaining).Error)
	require.EqualValues(t, 3, remaining)
}

func boolPtr(v bool) *bool { return &v }
