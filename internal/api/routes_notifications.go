package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/mlnotify/internal/handlers"
	"github.com/charlesng35/mlnotify/internal/middleware"
	"github.com/charlesng35/mlnotify/internal/permissions"
)

func registerNotificationPageRoutes(group *gin.RouterGroup, handler *handlers.NotificationHandler, checker *permissions.Checker) {
	view := middleware.RequirePermission(checker, permissions.NotificationView)

	group.GET("", view, handler.List)
	group.POST("/mark-all-read", view, handler.MarkAllRead)
	group.GET("/:id", view, handler.Detail)
	group.POST("/:id/read", view, handler.MarkRead)
	group.POST("/:id/delete", view, handler.Delete)
}

func registerNotificationAPIRoutes(api *gin.RouterGroup, handler *handlers.NotificationHandler, events *handlers.EventHandler, checker *permissions.Checker) {
	group := api.Group("/notifications")
	{
		group.GET("", middleware.RequirePermission(checker, permissions.NotificationView), handler.Recent)
		group.POST("/create", middleware.RequirePermission(checker, permissions.NotificationCreate), handler.Create)
		group.POST("/generate-dynamic", middleware.RequirePermission(checker, permissions.NotificationGenerate), handler.GenerateDynamic)
	}

	eventGroup := api.Group("/events")
	{
		eventGroup.POST("/training", middleware.RequirePermission(checker, permissions.NotificationCreate), events.Training)
		eventGroup.POST("/prediction", middleware.RequirePermission(checker, permissions.NotificationCreate), events.Prediction)
	}
}
