package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/mlnotify/internal/monitoring"
	"github.com/charlesng35/mlnotify/pkg/logger"
)

// HealthHandler serves the readiness probes.
type HealthHandler struct {
	manager *monitoring.HealthManager
}

// NewHealthHandler constructs a health handler over the given probes.
func NewHealthHandler(manager *monitoring.HealthManager) *HealthHandler {
	if manager == nil {
		manager = monitoring.NewHealthManager()
	}
	return &HealthHandler{manager: manager}
}

// Summary reports the overall status only.
func (h *HealthHandler) Summary(c *gin.Context) {
	report := h.evaluate(c)
	c.JSON(healthStatusCode(report), gin.H{
		"success":    report.Success,
		"status":     report.Status,
		"checked_at": time.Now().UTC(),
	})
}

// Ready reports the overall status with every probe result.
func (h *HealthHandler) Ready(c *gin.Context) {
	report := h.evaluate(c)
	c.JSON(healthStatusCode(report), gin.H{
		"success":    report.Success,
		"status":     report.Status,
		"checks":     report.Checks,
		"checked_at": time.Now().UTC(),
	})
}

func (h *HealthHandler) evaluate(c *gin.Context) monitoring.HealthReport {
	report := h.manager.Evaluate(requestContext(c))
	if !report.Success {
		log := logger.WithModule("health")
		for _, check := range report.Checks {
			if check.Status != monitoring.StatusUp {
				log.Warn("health probe failing",
					zap.String("component", check.Component),
					zap.String("status", string(check.Status)),
					zap.String("details", check.Details),
				)
			}
		}
	}
	return report
}

func healthStatusCode(report monitoring.HealthReport) int {
	if report.Success {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}
