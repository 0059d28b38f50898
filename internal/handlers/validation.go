package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/mlnotify/internal/models"
	appErrors "github.com/charlesng35/mlnotify/pkg/errors"
	"github.com/charlesng35/mlnotify/pkg/logger"
	"github.com/charlesng35/mlnotify/pkg/response"
	appValidator "github.com/charlesng35/mlnotify/pkg/validator"
)

var registerEnumsOnce sync.Once

// registerEnums installs the notification_type, notification_priority and template_tag rules.
func registerEnums() {
	registerEnumsOnce.Do(func() {
		types := make([]string, 0, len(models.NotificationTypes()))
		for _, t := range models.NotificationTypes() {
			types = append(types, string(t))
		}
		tags := []string{
			string(models.TagNone), string(models.TagModel), string(models.TagDeployment),
			string(models.TagData), string(models.TagDataset), string(models.TagSystem), string(models.TagAnomaly),
		}
		priorities := []string{
			string(models.PriorityLow), string(models.PriorityMedium),
			string(models.PriorityHigh), string(models.PriorityUrgent),
		}

		for tag, allowed := range map[string][]string{
			"notification_type":     types,
			"notification_priority": priorities,
			"template_tag":          tags,
		} {
			if err := appValidator.RegisterEnum(tag, allowed...); err != nil {
				logger.WithModule("handlers").Error("register validation enum", zap.String("tag", tag), zap.Error(err))
			}
		}
	})
}

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// When validation fails, an error response is automatically written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	registerEnums()

	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest(formatValidationError(err)))
		return false
	}

	return true
}

func formatValidationError(err error) string {
	if err == nil {
		return "invalid request payload"
	}

	if ve, ok := err.(appValidator.ValidationErrors); ok {
		if len(ve) == 0 {
			return "invalid request payload"
		}

		messages := make([]string, 0, len(ve))
		for _, failure := range ve {
			field := prettifyFieldName(failure.Field)
			switch failure.Tag {
			case "required":
				messages = append(messages, fmt.Sprintf("%s is required", field))
			case "min":
				messages = append(messages, fmt.Sprintf("%s must be at least %s", field, failure.Param))
			case "max":
				messages = append(messages, fmt.Sprintf("%s must be at most %s", field, failure.Param))
			case "notification_type", "notification_priority", "template_tag":
				messages = append(messages, fmt.Sprintf("%s is not a supported value", field))
			case "oneof":
				messages = append(messages, fmt.Sprintf("%s must be one of: %s", field, failure.Param))
			default:
				if failure.Param != "" {
					messages = append(messages, fmt.Sprintf("%s failed validation: %s=%s", field, failure.Tag, failure.Param))
				} else {
					messages = append(messages, fmt.Sprintf("%s failed validation: %s", field, failure.Tag))
				}
			}
		}
		return strings.Join(messages, "; ")
	}

	return "invalid request payload"
}

func prettifyFieldName(name string) string {
	if name == "" {
		return "field"
	}
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ToLower(name)
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// parseBoolQuery returns nil when the parameter is absent or not a boolean.
func parseBoolQuery(c *gin.Context, key string) *bool {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return nil
	}
	return &parsed
}
