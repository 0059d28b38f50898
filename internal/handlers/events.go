package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/mlnotify/internal/services"
	"github.com/charlesng35/mlnotify/pkg/response"
)

// EventHandler turns ML lifecycle events reported by training and inference jobs into notifications.
type EventHandler struct {
	service *services.NotificationService
}

// NewEventHandler constructs an event handler.
func NewEventHandler(service *services.NotificationService) *EventHandler {
	return &EventHandler{service: service}
}

type trainingEventRequest struct {
	ModelName    string   `json:"model_name" validate:"required,max=100"`
	Status       string   `json:"status" validate:"required,oneof=started completed failed"`
	Accuracy     *float64 `json:"accuracy"`
	Duration     string   `json:"duration"`
	ErrorMessage string   `json:"error_message"`
	OperationID  string   `json:"operation_id" validate:"max=100"`
}

// Training records a training started, completed or failed notification for the caller.
func (h *EventHandler) Training(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req trainingEventRequest
	if !bindAndValidate(c, &req) {
		return
	}

	dto, err := h.service.NotifyTraining(requestContext(c), services.TrainingEvent{
		UserID:       userID,
		ModelName:    req.ModelName,
		Status:       req.Status,
		Accuracy:     req.Accuracy,
		Duration:     req.Duration,
		ErrorMessage: req.ErrorMessage,
		OperationID:  req.OperationID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, dto)
}

type predictionEventRequest struct {
	ModelName   string         `json:"model_name" validate:"required,max=100"`
	Result      any            `json:"result"`
	Confidence  *float64       `json:"confidence"`
	OperationID string         `json:"operation_id" validate:"max=100"`
	InputData   map[string]any `json:"input_data"`
}

// Prediction records a completed prediction notification for the caller.
func (h *EventHandler) Prediction(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req predictionEventRequest
	if !bindAndValidate(c, &req) {
		return
	}

	dto, err := h.service.NotifyPrediction(requestContext(c), services.PredictionEvent{
		UserID:      userID,
		ModelName:   req.ModelName,
		Result:      req.Result,
		Confidence:  req.Confidence,
		OperationID: req.OperationID,
		InputData:   req.InputData,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, dto)
}
