package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/charlesng35/mlnotify/internal/models"
	apperrors "github.com/charlesng35/mlnotify/pkg/errors"
)

// Training lifecycle states reported through NotifyTraining.
const (
	TrainingStarted   = "started"
	TrainingCompleted = "completed"
	TrainingFailed    = "failed"
)

// TrainingEvent describes a model training state change.
type TrainingEvent struct {
	UserID       string
	ModelName    string
	Status       string
	Accuracy     *float64
	Duration     string
	ErrorMessage string
	OperationID  string
}

// PredictionEvent describes a completed prediction.
type PredictionEvent struct {
	UserID      string
	ModelName   string
	Result      any
	Confidence  *float64
	OperationID string
	InputData   map[string]any
}

// SystemEvent describes an operator announcement. Global defaults to true.
type SystemEvent struct {
	Title      string
	Message    string
	Priority   string
	Global     *bool
	UserID     string
	ActionURL  string
	ActionText string
	ExpiryDays int
}

// NotifyTraining records a training notification for the user who started the run.
func (s *NotificationService) NotifyTraining(ctx context.Context, event TrainingEvent) (*NotificationDTO, error) {
	modelName := strings.TrimSpace(event.ModelName)
	if modelName == "" {
		return nil, apperrors.NewBadRequest("model name is required")
	}

	input := CreateNotificationInput{
		UserID:      event.UserID,
		ModelName:   modelName,
		OperationID: event.OperationID,
		Source:      SourceML,
		Metadata: map[string]any{
			"model_name":    modelName,
			"status":        event.Status,
			"accuracy":      event.Accuracy,
			"duration":      nullIfEmpty(event.Duration),
			"error_message": nullIfEmpty(event.ErrorMessage),
		},
	}

	switch strings.ToLower(strings.TrimSpace(event.Status)) {
	case TrainingCompleted:
		message := fmt.Sprintf("Training for model '%s' has completed successfully.", modelName)
		if event.Accuracy != nil && *event.Accuracy != 0 {
			message += fmt.Sprintf(" Accuracy: %.2f%%", *event.Accuracy)
		}
		if event.Duration != "" {
			message += " Training time: " + event.Duration
		}
		input.Title = "Model Training Completed: " + modelName
		input.Message = message
		input.Type = string(models.TypeSuccess)
		input.Priority = string(models.PriorityHigh)
		input.ActionText = "View Model"
		input.ActionURL = "/models/" + modelName + "/"
	case TrainingFailed:
		message := fmt.Sprintf("Training for model '%s' has failed.", modelName)
		if event.ErrorMessage != "" {
			message += " Error: " + event.ErrorMessage
		}
		input.Title = "Model Training Failed: " + modelName
		input.Message = message
		input.Type = string(models.TypeError)
		input.Priority = string(models.PriorityHigh)
		input.ActionText = "View Logs"
		input.ActionURL = "/models/" + modelName + "/logs/"
	default:
		input.Title = "Model Training Started: " + modelName
		input.Message = fmt.Sprintf("Training for model '%s' has started.", modelName)
		input.Type = string(models.TypeInfo)
		input.Priority = string(models.PriorityMedium)
		input.ActionText = "View Progress"
		input.ActionURL = "/models/" + modelName + "/training/"
	}

	return s.Create(ctx, input)
}

// NotifyPrediction records a prediction-completed notification.
func (s *NotificationService) NotifyPrediction(ctx context.Context, event PredictionEvent) (*NotificationDTO, error) {
	modelName := strings.TrimSpace(event.ModelName)
	if modelName == "" {
		return nil, apperrors.NewBadRequest("model name is required")
	}

	message := fmt.Sprintf("Prediction using model '%s' completed successfully.", modelName)
	if event.Confidence != nil && *event.Confidence != 0 {
		message += fmt.Sprintf(" Confidence: %.2f%%", *event.Confidence*100)
	}

	return s.Create(ctx, CreateNotificationInput{
		Title:       "Prediction Completed: " + modelName,
		Message:     message,
		Type:        string(models.TypePrediction),
		Priority:    string(models.PriorityMedium),
		UserID:      event.UserID,
		ModelName:   modelName,
		OperationID: event.OperationID,
		ActionText:  "View Results",
		ActionURL:   "/predictions/",
		Source:      SourceML,
		Metadata: map[string]any{
			"model_name":        modelName,
			"prediction_result": event.Result,
			"confidence":        event.Confidence,
			"input_data":        event.InputData,
		},
	})
}

// NotifySystem records a system notification, global unless Global is false
// and a UserID is given.
func (s *NotificationService) NotifySystem(ctx context.Context, event SystemEvent) (*NotificationDTO, error) {
	if strings.TrimSpace(event.Title) == "" || strings.TrimSpace(event.Message) == "" {
		return nil, apperrors.NewBadRequest("title and message are required")
	}
	global := event.Global == nil || *event.Global || strings.TrimSpace(event.UserID) == ""

	return s.Create(ctx, CreateNotificationInput{
		Title:      event.Title,
		Message:    event.Message,
		Type:       string(models.TypeSystem),
		Priority:   event.Priority,
		IsGlobal:   global,
		UserID:     event.UserID,
		ActionURL:  event.ActionURL,
		ActionText: event.ActionText,
		ExpiryDays: event.ExpiryDays,
		Source:     SourceSystem,
	})
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
