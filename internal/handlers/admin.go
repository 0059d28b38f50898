package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/mlnotify/internal/notifications"
	"github.com/charlesng35/mlnotify/internal/services"
	"github.com/charlesng35/mlnotify/pkg/response"
)

const defaultAdminPageSize = 50

// AdminHandler exposes the operator console over notifications and templates.
type AdminHandler struct {
	admin         *services.AdminService
	notifications *services.NotificationService
	templates     *services.TemplateService
	generator     *services.GeneratorService
}

// NewAdminHandler constructs an admin handler.
func NewAdminHandler(admin *services.AdminService, notifications *services.NotificationService, templates *services.TemplateService, generator *services.GeneratorService) *AdminHandler {
	return &AdminHandler{
		admin:         admin,
		notifications: notifications,
		templates:     templates,
		generator:     generator,
	}
}

// ListNotifications returns a filtered page of every notification with its expiry status.
func (h *AdminHandler) ListNotifications(c *gin.Context) {
	page := max(parseIntQuery(c, "page", 1), 1)
	perPage := parseIntQuery(c, "per_page", defaultAdminPageSize)

	items, total, err := h.admin.ListNotifications(requestContext(c), services.AdminListInput{
		Type:     c.Query("type"),
		Priority: c.Query("priority"),
		IsRead:   parseBoolQuery(c, "is_read"),
		IsActive: parseBoolQuery(c, "is_active"),
		IsGlobal: parseBoolQuery(c, "is_global"),
		UserID:   c.Query("user_id"),
		Search:   c.Query("search"),
		Page:     page,
		PerPage:  perPage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if perPage <= 0 || perPage > 100 {
		perPage = defaultAdminPageSize
	}
	response.SuccessWithMeta(c, http.StatusOK, items, response.NewMeta(page, perPage, total))
}

type bulkRequest struct {
	Action string   `json:"action" validate:"required"`
	IDs    []string `json:"ids" validate:"required,min=1"`
}

// BulkNotifications applies mark_read, mark_unread, activate or deactivate to the listed notifications.
func (h *AdminHandler) BulkNotifications(c *gin.Context) {
	var req bulkRequest
	if !bindAndValidate(c, &req) {
		return
	}

	count, err := h.admin.BulkNotifications(requestContext(c), req.Action, req.IDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"action": strings.ToLower(req.Action), "count": count})
}

type systemNotificationRequest struct {
	Title      string `json:"title" validate:"required,max=200"`
	Message    string `json:"message" validate:"required"`
	Priority   string `json:"priority" validate:"omitempty,notification_priority"`
	Global     *bool  `json:"is_global"`
	UserID     string `json:"user_id"`
	ActionURL  string `json:"action_url"`
	ActionText string `json:"action_text" validate:"max=50"`
	ExpiryDays int    `json:"expiry_days" validate:"omitempty,min=1,max=365"`
}

// Announce publishes a system notification, global unless is_global is false and a user_id is given.
func (h *AdminHandler) Announce(c *gin.Context) {
	var req systemNotificationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	dto, err := h.notifications.NotifySystem(requestContext(c), services.SystemEvent{
		Title:      req.Title,
		Message:    req.Message,
		Priority:   req.Priority,
		Global:     req.Global,
		UserID:     req.UserID,
		ActionURL:  req.ActionURL,
		ActionText: req.ActionText,
		ExpiryDays: req.ExpiryDays,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, dto)
}

// ListTemplates returns every template, or only active ones with ?active=true.
func (h *AdminHandler) ListTemplates(c *gin.Context) {
	activeOnly := false
	if v := parseBoolQuery(c, "active"); v != nil {
		activeOnly = *v
	}

	items, err := h.templates.List(requestContext(c), activeOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, items)
}

// GetTemplate returns a single template.
func (h *AdminHandler) GetTemplate(c *gin.Context) {
	dto, err := h.templates.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, dto)
}

type createTemplateRequest struct {
	Name            string `json:"name" validate:"required,max=100"`
	TitleTemplate   string `json:"title_template" validate:"required,max=200"`
	MessageTemplate string `json:"message_template" validate:"required"`
	Type            string `json:"type" validate:"required,notification_type"`
	Priority        string `json:"priority" validate:"omitempty,notification_priority"`
	Tag             string `json:"tag" validate:"omitempty,template_tag"`
	IsActive        *bool  `json:"is_active"`
}

// CreateTemplate stores a new template.
func (h *AdminHandler) CreateTemplate(c *gin.Context) {
	var req createTemplateRequest
	if !bindAndValidate(c, &req) {
		return
	}

	dto, err := h.templates.Create(requestContext(c), services.CreateTemplateInput{
		Name:            req.Name,
		TitleTemplate:   req.TitleTemplate,
		MessageTemplate: req.MessageTemplate,
		Type:            req.Type,
		Priority:        req.Priority,
		Tag:             req.Tag,
		IsActive:        req.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, dto)
}

type updateTemplateRequest struct {
	Name            *string `json:"name" validate:"omitempty,min=1,max=100"`
	TitleTemplate   *string `json:"title_template" validate:"omitempty,min=1,max=200"`
	MessageTemplate *string `json:"message_template" validate:"omitempty,min=1"`
	Type            *string `json:"type" validate:"omitempty,notification_type"`
	Priority        *string `json:"priority" validate:"omitempty,notification_priority"`
	Tag             *string `json:"tag" validate:"omitempty,template_tag"`
	IsActive        *bool   `json:"is_active"`
}

// UpdateTemplate applies a partial update to a template.
func (h *AdminHandler) UpdateTemplate(c *gin.Context) {
	var req updateTemplateRequest
	if !bindAndValidate(c, &req) {
		return
	}

	dto, err := h.templates.Update(requestContext(c), c.Param("id"), services.UpdateTemplateInput{
		Name:            req.Name,
		TitleTemplate:   req.TitleTemplate,
		MessageTemplate: req.MessageTemplate,
		Type:            req.Type,
		Priority:        req.Priority,
		Tag:             req.Tag,
		IsActive:        req.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, dto)
}

// BulkTemplates activates or deactivates the listed templates.
func (h *AdminHandler) BulkTemplates(c *gin.Context) {
	var req bulkRequest
	if !bindAndValidate(c, &req) {
		return
	}

	count, err := h.admin.BulkTemplates(requestContext(c), req.Action, req.IDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"action": strings.ToLower(req.Action), "count": count})
}

// TemplateVariables lists the sample variables templates may reference.
func (h *AdminHandler) TemplateVariables(c *gin.Context) {
	response.Success(c, http.StatusOK, notifications.VariableHelp)
}

// PreviewTemplate renders a template with the fixed preview values.
func (h *AdminHandler) PreviewTemplate(c *gin.Context) {
	preview, err := h.generator.Preview(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, preview)
}

// TestTemplate renders one template with random values into a notification for the operator.
func (h *AdminHandler) TestTemplate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	dto, err := h.generator.TestTemplate(requestContext(c), c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, dto)
}

// SeedTemplates installs any missing default templates.
func (h *AdminHandler) SeedTemplates(c *gin.Context) {
	created, err := h.templates.SeedDefaults(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"created": created})
}

// ExpireNow runs the expiry sweep immediately.
func (h *AdminHandler) ExpireNow(c *gin.Context) {
	count, err := h.notifications.ExpireSweep(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"expired": count})
}

// PurgeStatic deletes every notification not produced by the dynamic generator.
func (h *AdminHandler) PurgeStatic(c *gin.Context) {
	count, err := h.notifications.PurgeStatic(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": count})
}
