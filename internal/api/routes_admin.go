package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/mlnotify/internal/handlers"
	"github.com/charlesng35/mlnotify/internal/middleware"
	"github.com/charlesng35/mlnotify/internal/permissions"
)

func registerAdminRoutes(api *gin.RouterGroup, handler *handlers.AdminHandler, checker *permissions.Checker) {
	admin := api.Group("/admin", middleware.RequirePermission(checker, permissions.NotificationManage))

	notifications := admin.Group("/notifications")
	{
		notifications.GET("", handler.ListNotifications)
		notifications.POST("/bulk", handler.BulkNotifications)
		notifications.POST("/system", handler.Announce)
	}

	templates := admin.Group("/templates")
	{
		templates.GET("", handler.ListTemplates)
		templates.POST("", handler.CreateTemplate)
		templates.POST("/bulk", handler.BulkTemplates)
		templates.POST("/seed", handler.SeedTemplates)
		templates.GET("/variables", handler.TemplateVariables)
		templates.GET("/:id", handler.GetTemplate)
		templates.PATCH("/:id", handler.UpdateTemplate)
		templates.GET("/:id/preview", handler.PreviewTemplate)
		templates.POST("/:id/test", handler.TestTemplate)
	}

	maintenance := admin.Group("/maintenance")
	{
		maintenance.POST("/expire", handler.ExpireNow)
		maintenance.POST("/purge-static", handler.PurgeStatic)
	}
}
