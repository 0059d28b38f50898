package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/mlnotify/internal/permissions"
	"github.com/charlesng35/mlnotify/pkg/errors"
	"github.com/charlesng35/mlnotify/pkg/logger"
	"github.com/charlesng35/mlnotify/pkg/metrics"
	"github.com/charlesng35/mlnotify/pkg/response"
)

// RequirePermission checks that the authenticated caller's roles grant permissionID.
func RequirePermission(checker *permissions.Checker, permissionID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxUserIDKey) == "" {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		roles := c.GetStringSlice(CtxRolesKey)
		allowed, err := checker.Check(c.Request.Context(), roles, permissionID)
		if err != nil {
			metrics.PermissionChecks.WithLabelValues(permissionID, "error").Inc()
			logger.WithModule("permissions").Error("permission check failed",
				zap.String("permission", permissionID),
				zap.Error(err),
			)
			response.Error(c, errors.ErrInternalServer.WithMessage("permission check failed"))
			c.Abort()
			return
		}
		if !allowed {
			metrics.PermissionChecks.WithLabelValues(permissionID, "denied").Inc()
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		metrics.PermissionChecks.WithLabelValues(permissionID, "allowed").Inc()
		c.Next()
	}
}
