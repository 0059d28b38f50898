package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/mlnotify/internal/models"
	apperrors "github.com/charlesng35/mlnotify/pkg/errors"
)

// Bulk actions accepted by the operator console.
const (
	BulkMarkRead   = "mark_read"
	BulkMarkUnread = "mark_unread"
	BulkActivate   = "activate"
	BulkDeactivate = "deactivate"
)

// AdminListInput filters the operator notification listing.
type AdminListInput struct {
	Type     string
	Priority string
	IsRead   *bool
	IsActive *bool
	IsGlobal *bool
	UserID   string
	Search   string
	Page     int
	PerPage  int
}

// AdminService backs the operator console over every notification and template.
type AdminService struct {
	db            *gorm.DB
	notifications *NotificationService
	templates     *TemplateService
}

// NewAdminService constructs an AdminService.
func NewAdminService(db *gorm.DB, notificationSvc *NotificationService, templates *TemplateService) (*AdminService, error) {
	if db == nil {
		return nil, errors.New("admin service: db is required")
	}
	if notificationSvc == nil || templates == nil {
		return nil, errors.New("admin service: notification and template services are required")
	}
	return &AdminService{db: db, notifications: notificationSvc, templates: templates}, nil
}

// ListNotifications returns a filtered page of notifications with their expiry status and the total match count.
func (s *AdminService) ListNotifications(ctx context.Context, input AdminListInput) ([]NotificationDTO, int64, error) {
	ctx = ensureContext(ctx)

	page := max(input.Page, 1)
	perPage := input.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = 50
	}

	query := s.db.WithContext(ctx).Model(&models.Notification{})
	if typ := strings.ToLower(strings.TrimSpace(input.Type)); typ != "" {
		if !models.NotificationType(typ).Valid() {
			return nil, 0, apperrors.NewBadRequest(fmt.Sprintf("invalid notification type %q", input.Type))
		}
		query = query.Where("type = ?", typ)
	}
	if priority := strings.ToLower(strings.TrimSpace(input.Priority)); priority != "" {
		if !models.Priority(priority).Valid() {
			return nil, 0, apperrors.NewBadRequest(fmt.Sprintf("invalid priority %q", input.Priority))
		}
		query = query.Where("priority = ?", priority)
	}
	if input.IsRead != nil {
		query = query.Where("is_read = ?", *input.IsRead)
	}
	if input.IsActive != nil {
		query = query.Where("is_active = ?", *input.IsActive)
	}
	if input.IsGlobal != nil {
		query = query.Where("is_global = ?", *input.IsGlobal)
	}
	if userID := strings.TrimSpace(input.UserID); userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if search := strings.TrimSpace(input.Search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		clause := "LOWER(%s) LIKE ? ESCAPE '" + likeEscape + "'"
		query = query.Where(
			s.db.Where(fmt.Sprintf(clause, "title"), pattern).
				Or(fmt.Sprintf(clause, "message"), pattern).
				Or(fmt.Sprintf(clause, "model_name"), pattern).
				Or(fmt.Sprintf(clause, "operation_id"), pattern),
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("admin service: count notifications: %w", err)
	}

	var rows []models.Notification
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("admin service: list notifications: %w", err)
	}

	now := s.notifications.Now()
	items := mapNotificationRows(rows)
	for i := range items {
		items[i].ExpiryStatus = rows[i].ExpiryStatus(now)
	}
	return items, total, nil
}

// BulkNotifications applies a status action to the given notifications and returns the count changed.
func (s *AdminService) BulkNotifications(ctx context.Context, action string, ids []string) (int64, error) {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case BulkMarkRead:
		return s.notifications.SetRead(ctx, ids, true)
	case BulkMarkUnread:
		return s.notifications.SetRead(ctx, ids, false)
	case BulkActivate:
		return s.notifications.SetActive(ctx, ids, true)
	case BulkDeactivate:
		return s.notifications.SetActive(ctx, ids, false)
	default:
		return 0, apperrors.NewBadRequest(fmt.Sprintf("unsupported bulk action %q", action))
	}
}

// BulkTemplates activates or deactivates the given templates and returns the count changed.
func (s *AdminService) BulkTemplates(ctx context.Context, action string, ids []string) (int64, error) {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case BulkActivate:
		return s.templates.SetActive(ctx, ids, true)
	case BulkDeactivate:
		return s.templates.SetActive(ctx, ids, false)
	default:
		return 0, apperrors.NewBadRequest(fmt.Sprintf("unsupported bulk action %q", action))
	}
}
