package handlers

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/mlnotify/internal/services"
	"github.com/charlesng35/mlnotify/pkg/errors"
	"github.com/charlesng35/mlnotify/pkg/response"
)

const (
	defaultPageSize    = 20
	defaultRecentLimit = 10
)

// NotificationHandler exposes the end-user notification pages and JSON API.
type NotificationHandler struct {
	service     *services.NotificationService
	generator   *services.GeneratorService
	pageSize    int
	recentLimit int
}

// NewNotificationHandler constructs a notification handler. Non-positive sizes fall back to 20 per page and 10 recent.
func NewNotificationHandler(service *services.NotificationService, generator *services.GeneratorService, pageSize, recentLimit int) *NotificationHandler {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if recentLimit <= 0 {
		recentLimit = defaultRecentLimit
	}
	return &NotificationHandler{
		service:     service,
		generator:   generator,
		pageSize:    pageSize,
		recentLimit: recentLimit,
	}
}

type notificationListPage struct {
	Notifications []services.NotificationDTO `json:"notifications"`
	UnreadCount   int64                      `json:"unread_count"`
	TotalCount    int64                      `json:"total_count"`
}

// List returns one page of the caller's visible notifications, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	ctx := requestContext(c)

	total, err := h.service.CountForUser(ctx, userID, false)
	if err != nil {
		response.Error(c, err)
		return
	}
	unread, err := h.service.CountForUser(ctx, userID, true)
	if err != nil {
		response.Error(c, err)
		return
	}

	page := parseIntQuery(c, "page", 1)
	lastPage := int((total + int64(h.pageSize) - 1) / int64(h.pageSize))
	if page > lastPage {
		page = lastPage
	}
	page = max(page, 1)

	items, err := h.service.ListForUser(ctx, services.ListNotificationsInput{
		UserID: userID,
		Limit:  h.pageSize,
		Offset: (page - 1) * h.pageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, notificationListPage{
		Notifications: items,
		UnreadCount:   unread,
		TotalCount:    total,
	}, response.NewMeta(page, h.pageSize, total))
}

// Detail returns a single notification and marks it read.
func (h *NotificationHandler) Detail(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	dto, ok := h.loadAccessible(c, userID)
	if !ok {
		return
	}

	if !dto.IsRead {
		if dto, ok = h.markRead(c, dto.ID); !ok {
			return
		}
	}
	response.Success(c, http.StatusOK, dto)
}

// MarkRead marks a single notification read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	dto, ok := h.loadAccessible(c, userID)
	if !ok {
		return
	}
	if _, ok := h.markRead(c, dto.ID); !ok {
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"success": true,
		"message": "Notification marked as read",
	})
}

// Delete permanently removes a notification the caller can access.
func (h *NotificationHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	dto, ok := h.loadAccessible(c, userID)
	if !ok {
		return
	}

	if err := h.service.Delete(requestContext(c), dto.ID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"success": true,
		"message": "Notification deleted",
	})
}

// MarkAllRead marks every visible unread notification read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	count, err := h.service.MarkAllRead(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"count":   count,
		"message": fmt.Sprintf("%d notifications marked as read", count),
	})
}

// Recent returns the most recent visible notifications with the unread count.
func (h *NotificationHandler) Recent(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	ctx := requestContext(c)

	items, err := h.service.ListForUser(ctx, services.ListNotificationsInput{UserID: userID, Limit: h.recentLimit})
	if err != nil {
		response.Error(c, err)
		return
	}
	unread, err := h.service.CountForUser(ctx, userID, true)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"notifications": items,
		"unread_count":  unread,
	})
}

type createNotificationRequest struct {
	Title       string         `json:"title" validate:"required,max=200"`
	Message     string         `json:"message" validate:"required"`
	Type        string         `json:"type" validate:"omitempty,notification_type"`
	Priority    string         `json:"priority" validate:"omitempty,notification_priority"`
	IsGlobal    bool           `json:"is_global"`
	ActionURL   string         `json:"action_url" validate:"max=2048"`
	ActionText  string         `json:"action_text" validate:"max=50"`
	ModelName   string         `json:"model_name" validate:"max=100"`
	OperationID string         `json:"operation_id" validate:"max=100"`
	Metadata    map[string]any `json:"metadata"`
	AutoExpire  *bool          `json:"auto_expire"`
	ExpiryDays  int            `json:"expiry_days" validate:"omitempty,min=1,max=365"`
}

// Create persists a notification for the caller, or for everyone when is_global is set.
func (h *NotificationHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req createNotificationRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Message) == "" {
		response.Error(c, errors.NewBadRequest("title and message are required"))
		return
	}

	dto, err := h.service.Create(requestContext(c), services.CreateNotificationInput{
		Title:       req.Title,
		Message:     req.Message,
		Type:        req.Type,
		Priority:    req.Priority,
		UserID:      userID,
		IsGlobal:    req.IsGlobal,
		ActionURL:   req.ActionURL,
		ActionText:  req.ActionText,
		ModelName:   req.ModelName,
		OperationID: req.OperationID,
		Metadata:    req.Metadata,
		AutoExpire:  req.AutoExpire,
		ExpiryDays:  req.ExpiryDays,
		Source:      services.SourceAPI,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"notification_id": dto.ID,
		"notification":    dto,
		"message":         "Notification created successfully",
	})
}

// GenerateDynamic renders random templates into notifications for the caller.
// The optional count is clamped by the generator; an empty body uses the default.
func (h *NotificationHandler) GenerateDynamic(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var payload struct {
		Count any `json:"count"`
	}
	if c.Request.Body != nil {
		decoder := json.NewDecoder(c.Request.Body)
		decoder.UseNumber()
		if err := decoder.Decode(&payload); err != nil && !stderrors.Is(err, io.EOF) {
			response.Error(c, errors.NewBadRequest("invalid JSON payload"))
			return
		}
	}

	count := h.generator.ClampCount(payload.Count)
	items, err := h.generator.Generate(requestContext(c), userID, count)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"notifications": items,
		"count":         len(items),
		"message":       fmt.Sprintf("Generated %d dynamic notifications", len(items)),
	})
}

// loadAccessible resolves the :id notification, writing 404 or 403 when the caller cannot see it.
func (h *NotificationHandler) loadAccessible(c *gin.Context, userID string) (*services.NotificationDTO, bool) {
	dto, err := h.service.Get(requestContext(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	if !dto.Raw.AccessibleBy(userID) {
		response.Error(c, errors.ErrForbidden)
		return nil, false
	}
	return dto, true
}

func (h *NotificationHandler) markRead(c *gin.Context, id string) (*services.NotificationDTO, bool) {
	dto, err := h.service.MarkRead(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return dto, true
}
