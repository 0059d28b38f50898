package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/mlnotify/internal/models"
	"github.com/charlesng35/mlnotify/internal/notifications"
	apperrors "github.com/charlesng35/mlnotify/pkg/errors"
	"github.com/charlesng35/mlnotify/pkg/logger"
	"github.com/charlesng35/mlnotify/pkg/metrics"
)

// Notification sources recorded on the created counter.
const (
	SourceAPI          = "api"
	SourceTemplate     = "template"
	SourceDynamic      = "dynamic"
	SourceTemplateTest = "template_test"
	SourceML           = "ml"
	SourceSystem       = "system"
)

// NotificationDTO represents the API-friendly notification payload.
type NotificationDTO struct {
	ID           string               `json:"id"`
	Title        string               `json:"title"`
	Message      string               `json:"message"`
	Type         string               `json:"type"`
	Priority     string               `json:"priority"`
	UserID       string               `json:"user_id,omitempty"`
	IsGlobal     bool                 `json:"is_global"`
	IsRead       bool                 `json:"is_read"`
	ReadAt       *time.Time           `json:"read_at,omitempty"`
	IsActive     bool                 `json:"is_active"`
	AutoExpire   bool                 `json:"auto_expire"`
	ExpiryDate   *time.Time           `json:"expiry_date,omitempty"`
	ExpiryStatus string               `json:"expiry_status,omitempty"`
	ActionURL    string               `json:"action_url,omitempty"`
	ActionText   string               `json:"action_text,omitempty"`
	ModelName    string               `json:"model_name,omitempty"`
	OperationID  string               `json:"operation_id,omitempty"`
	Metadata     map[string]any       `json:"metadata"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
	Raw          *models.Notification `json:"-"`
}

// CreateNotificationInput defines attributes required to persist a notification.
type CreateNotificationInput struct {
	Title       string
	Message     string
	Type        string
	Priority    string
	UserID      string
	IsGlobal    bool
	ActionURL   string
	ActionText  string
	ModelName   string
	OperationID string
	Metadata    map[string]any
	// AutoExpire defaults to true when nil.
	AutoExpire *bool
	// ExpiryDays overrides the configured default when positive.
	ExpiryDays int
	ExpiryDate *time.Time
	// Source labels the created counter; defaults to api.
	Source string
}

// ListNotificationsInput defines filters for querying a user's visible notifications.
type ListNotificationsInput struct {
	UserID     string
	UnreadOnly bool
	Limit      int
	Offset     int
}

// NotificationOption configures optional NotificationService behaviour.
type NotificationOption func(*NotificationService)

// WithNotificationClock overrides the clock used for timestamps (test helper).
func WithNotificationClock(clock func() time.Time) NotificationOption {
	return func(s *NotificationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithDefaultExpiryDays overrides the expiry applied to auto-expiring notifications.
func WithDefaultExpiryDays(days int) NotificationOption {
	return func(s *NotificationService) {
		if days > 0 {
			s.defaultExpiry = time.Duration(days) * 24 * time.Hour
		}
	}
}

// NotificationService manages notification records.
type NotificationService struct {
	db            *gorm.DB
	now           func() time.Time
	defaultExpiry time.Duration
	templates     *TemplateService
	log           *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(db *gorm.DB, opts ...NotificationOption) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	svc := &NotificationService{
		db:            db,
		now:           func() time.Time { return time.Now().UTC() },
		defaultExpiry: models.DefaultExpiry,
		templates:     &TemplateService{db: db, log: logger.WithModule("templates")},
		log:           logger.WithModule("notifications"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Transaction runs fn with a copy of the service bound to a single database
// transaction. Any error rolls back every write fn made.
func (s *NotificationService) Transaction(ctx context.Context, fn func(tx *NotificationService) error) error {
	return s.db.WithContext(ensureContext(ctx)).Transaction(func(tx *gorm.DB) error {
		bound := *s
		bound.db = tx
		return fn(&bound)
	})
}

// Now returns the service clock reading in UTC.
func (s *NotificationService) Now() time.Time {
	return s.now().UTC()
}

// Create persists a notification, applying defaults for type, priority and expiry.
func (s *NotificationService) Create(ctx context.Context, input CreateNotificationInput) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)

	notificationType := models.NotificationType(strings.ToLower(defaultIfEmpty(strings.TrimSpace(input.Type), string(models.TypeInfo))))
	if !notificationType.Valid() {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("invalid notification type %q", input.Type))
	}
	priority := models.Priority(strings.ToLower(defaultIfEmpty(strings.TrimSpace(input.Priority), string(models.PriorityMedium))))
	if !priority.Valid() {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("invalid priority %q", input.Priority))
	}

	metadata, err := encodeJSON(input.Metadata)
	if err != nil {
		return nil, apperrors.NewBadRequest("metadata must be a JSON object").WithInternal(err)
	}

	autoExpire := true
	if input.AutoExpire != nil {
		autoExpire = *input.AutoExpire
	}

	now := s.Now()
	notification := models.Notification{
		BaseModel:   models.BaseModel{CreatedAt: now, UpdatedAt: now},
		Title:       strings.TrimSpace(input.Title),
		Message:     strings.TrimSpace(input.Message),
		Type:        notificationType,
		Priority:    priority,
		IsGlobal:    input.IsGlobal,
		IsActive:    true,
		AutoExpire:  autoExpire,
		ActionURL:   strings.TrimSpace(input.ActionURL),
		ActionText:  strings.TrimSpace(input.ActionText),
		ModelName:   strings.TrimSpace(input.ModelName),
		OperationID: strings.TrimSpace(input.OperationID),
		Metadata:    metadata,
	}

	if userID := strings.TrimSpace(input.UserID); userID != "" && !input.IsGlobal {
		notification.UserID = &userID
	}

	switch {
	case input.ExpiryDate != nil:
		expiry := input.ExpiryDate.UTC()
		notification.ExpiryDate = &expiry
	case autoExpire:
		window := s.defaultExpiry
		if input.ExpiryDays > 0 {
			window = time.Duration(input.ExpiryDays) * 24 * time.Hour
		}
		expiry := now.Add(window)
		notification.ExpiryDate = &expiry
	}

	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		return nil, fmt.Errorf("notification service: create notification: %w", err)
	}

	metrics.NotificationsCreated.WithLabelValues(string(notification.Type), defaultIfEmpty(input.Source, SourceAPI)).Inc()

	dto := mapNotification(notification)
	return &dto, nil
}

// CreateFromTemplate renders the named active template with vars and persists the result.
func (s *NotificationService) CreateFromTemplate(ctx context.Context, templateName, userID string, vars map[string]any) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)
	templateName = strings.TrimSpace(templateName)

	tmpl, err := s.templates.GetActiveByName(ctx, templateName)
	if errors.Is(err, ErrTemplateNotFound) {
		return nil, ErrTemplateNotFound.WithMessage(fmt.Sprintf("Template %q not found or not active", templateName))
	}
	if err != nil {
		return nil, fmt.Errorf("notification service: %w", err)
	}

	title, message, err := notifications.RenderPair(tmpl.TitleTemplate, tmpl.MessageTemplate, vars)
	if err != nil {
		metrics.TemplateRenderFailures.WithLabelValues(tmpl.Name).Inc()
		var mv *notifications.MissingVariableError
		if errors.As(err, &mv) {
			return nil, missingVariableError(mv)
		}
		return nil, fmt.Errorf("notification service: render template %q: %w", tmpl.Name, err)
	}

	return s.Create(ctx, CreateNotificationInput{
		Title:    title,
		Message:  message,
		Type:     tmpl.Type,
		Priority: tmpl.Priority,
		UserID:   userID,
		Metadata: map[string]any{"template": tmpl.Name},
		Source:   SourceTemplate,
	})
}

// Get loads a notification by identifier.
func (s *NotificationService) Get(ctx context.Context, id string) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)
	var notification models.Notification
	err := s.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(id)).First(&notification).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("notification service: load notification: %w", err)
	}
	dto := mapNotification(notification)
	return &dto, nil
}

// ListForUser returns the user's visible notifications ordered newest first.
// A non-positive Limit returns every match.
func (s *NotificationService) ListForUser(ctx context.Context, input ListNotificationsInput) ([]NotificationDTO, error) {
	ctx = ensureContext(ctx)
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}

	query := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Scopes(visibleTo(userID, s.Now())).
		Order("created_at DESC").
		Order("id DESC")
	if input.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if input.Limit > 0 {
		query = query.Limit(input.Limit)
	}
	if input.Offset > 0 {
		query = query.Offset(input.Offset)
	}

	var rows []models.Notification
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification service: list notifications: %w", err)
	}
	return mapNotificationRows(rows), nil
}

// CountForUser counts the user's visible notifications, optionally only unread ones.
func (s *NotificationService) CountForUser(ctx context.Context, userID string, unreadOnly bool) (int64, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, apperrors.NewBadRequest("user id is required")
	}

	query := s.db.WithContext(ctx).Model(&models.Notification{}).Scopes(visibleTo(userID, s.Now()))
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("notification service: count notifications: %w", err)
	}
	return count, nil
}

// MarkRead flags the notification as read. Repeated calls keep the first read_at.
func (s *NotificationService) MarkRead(ctx context.Context, id string) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)
	id = strings.TrimSpace(id)
	now := s.Now()

	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND is_read = ?", id, false).
		Updates(map[string]any{
			"is_read":    true,
			"read_at":    now,
			"updated_at": now,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("notification service: mark read: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		metrics.NotificationsRead.Add(float64(result.RowsAffected))
	}

	return s.Get(ctx, id)
}

// MarkAllRead marks every visible unread notification of the user as read and returns the count.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, apperrors.NewBadRequest("user id is required")
	}
	now := s.Now()

	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Scopes(visibleTo(userID, now)).
		Where("is_read = ?", false).
		Updates(map[string]any{
			"is_read":    true,
			"read_at":    now,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: mark all read: %w", result.Error)
	}
	metrics.NotificationsRead.Add(float64(result.RowsAffected))
	return result.RowsAffected, nil
}

// SetRead sets or clears the read flag on the given notifications and returns the count changed.
func (s *NotificationService) SetRead(ctx context.Context, ids []string, read bool) (int64, error) {
	ctx = ensureContext(ctx)
	ids = normaliseIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	now := s.Now()
	updates := map[string]any{"is_read": read, "updated_at": now}
	if read {
		updates["read_at"] = now
	} else {
		updates["read_at"] = nil
	}

	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id IN ? AND is_read = ?", ids, !read).
		Updates(updates)
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: set read: %w", result.Error)
	}
	if read {
		metrics.NotificationsRead.Add(float64(result.RowsAffected))
	}
	return result.RowsAffected, nil
}

// SetActive activates or deactivates the given notifications and returns the count changed.
func (s *NotificationService) SetActive(ctx context.Context, ids []string, active bool) (int64, error) {
	ctx = ensureContext(ctx)
	ids = normaliseIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id IN ? AND is_active = ?", ids, !active).
		Updates(map[string]any{"is_active": active, "updated_at": s.Now()})
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: set active: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Delete permanently removes a notification.
func (s *NotificationService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)
	result := s.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(id)).
		Delete(&models.Notification{})
	if result.Error != nil {
		return fmt.Errorf("notification service: delete notification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ExpireSweep deactivates every active notification whose expiry has passed.
func (s *NotificationService) ExpireSweep(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	now := s.Now()

	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("is_active = ? AND auto_expire = ? AND expiry_date IS NOT NULL AND expiry_date < ?", true, true, now).
		Updates(map[string]any{"is_active": false, "updated_at": now})
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: expire sweep: %w", result.Error)
	}

	metrics.NotificationsExpired.Add(float64(result.RowsAffected))
	if result.RowsAffected > 0 {
		s.log.Info("expired notifications deactivated", zap.Int64("count", result.RowsAffected))
	}
	return result.RowsAffected, nil
}

// PurgeStatic deletes notifications that were not produced by the dynamic generator.
func (s *NotificationService) PurgeStatic(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	result := s.db.WithContext(ctx).
		Not(datatypes.JSONQuery("metadata").HasKey(metadataDynamicKey)).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: purge static: %w", result.Error)
	}

	s.log.Info("static notifications purged", zap.Int64("count", result.RowsAffected))
	return result.RowsAffected, nil
}

// visibleTo restricts a query to rows the user may see at now: owned or global,
// active, and not past an auto-expiry.
func visibleTo(userID string, now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Where("(user_id = ? OR is_global = ?)", userID, true).
			Where("is_active = ?", true).
			Where("(auto_expire = ? OR expiry_date IS NULL OR expiry_date >= ?)", false, now)
	}
}

func mapNotificationRows(rows []models.Notification) []NotificationDTO {
	items := make([]NotificationDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapNotification(row))
	}
	return items
}

func mapNotification(row models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:          row.ID,
		Title:       row.Title,
		Message:     row.Message,
		Type:        string(row.Type),
		Priority:    string(row.Priority),
		UserID:      row.TargetUserID(),
		IsGlobal:    row.IsGlobal,
		IsRead:      row.IsRead,
		ReadAt:      row.ReadAt,
		IsActive:    row.IsActive,
		AutoExpire:  row.AutoExpire,
		ExpiryDate:  row.ExpiryDate,
		ActionURL:   row.ActionURL,
		ActionText:  row.ActionText,
		ModelName:   row.ModelName,
		OperationID: row.OperationID,
		Metadata:    decodeJSON(row.Metadata),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
		Raw:         &row,
	}
}
