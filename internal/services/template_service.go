package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/mlnotify/internal/models"
	"github.com/charlesng35/mlnotify/internal/notifications"
	apperrors "github.com/charlesng35/mlnotify/pkg/errors"
	"github.com/charlesng35/mlnotify/pkg/logger"
)

// TemplateDTO represents the API-friendly template payload.
type TemplateDTO struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	TitleTemplate   string    `json:"title_template"`
	MessageTemplate string    `json:"message_template"`
	Type            string    `json:"type"`
	Priority        string    `json:"priority"`
	Tag             string    `json:"tag"`
	IsActive        bool      `json:"is_active"`
	Placeholders    []string  `json:"placeholders"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CreateTemplateInput captures the attributes of a new template.
type CreateTemplateInput struct {
	Name            string
	TitleTemplate   string
	MessageTemplate string
	Type            string
	Priority        string
	Tag             string
	// IsActive defaults to true when nil.
	IsActive *bool
}

// UpdateTemplateInput captures a partial template update; nil fields are left unchanged.
type UpdateTemplateInput struct {
	Name            *string
	TitleTemplate   *string
	MessageTemplate *string
	Type            *string
	Priority        *string
	Tag             *string
	IsActive        *bool
}

// TemplateService manages notification templates.
type TemplateService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewTemplateService constructs a TemplateService.
func NewTemplateService(db *gorm.DB) (*TemplateService, error) {
	if db == nil {
		return nil, errors.New("template service: db is required")
	}
	return &TemplateService{db: db, log: logger.WithModule("templates")}, nil
}

// List returns templates ordered by name.
func (s *TemplateService) List(ctx context.Context, activeOnly bool) ([]TemplateDTO, error) {
	rows, err := s.listModels(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	items := make([]TemplateDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapTemplate(row))
	}
	return items, nil
}

func (s *TemplateService) listModels(ctx context.Context, activeOnly bool) ([]models.NotificationTemplate, error) {
	ctx = ensureContext(ctx)
	query := s.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var rows []models.NotificationTemplate
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("template service: list templates: %w", err)
	}
	return rows, nil
}

// CountActive returns the number of templates available to the dynamic generator.
func (s *TemplateService) CountActive(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.NotificationTemplate{}).
		Where("is_active = ?", true).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("template service: count active templates: %w", err)
	}
	return count, nil
}

// Get loads a template by identifier.
func (s *TemplateService) Get(ctx context.Context, id string) (*TemplateDTO, error) {
	row, err := s.getModel(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := mapTemplate(*row)
	return &dto, nil
}

func (s *TemplateService) getModel(ctx context.Context, id string) (*models.NotificationTemplate, error) {
	ctx = ensureContext(ctx)
	var row models.NotificationTemplate
	err := s.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(id)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("template service: load template: %w", err)
	}
	return &row, nil
}

// GetActiveByName loads an active template by its unique name.
func (s *TemplateService) GetActiveByName(ctx context.Context, name string) (*TemplateDTO, error) {
	ctx = ensureContext(ctx)
	var row models.NotificationTemplate
	err := s.db.WithContext(ctx).
		Where("name = ? AND is_active = ?", strings.TrimSpace(name), true).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("template service: load template: %w", err)
	}
	dto := mapTemplate(row)
	return &dto, nil
}

// Create validates and persists a new template.
func (s *TemplateService) Create(ctx context.Context, input CreateTemplateInput) (*TemplateDTO, error) {
	ctx = ensureContext(ctx)

	row := models.NotificationTemplate{
		Name:            strings.TrimSpace(input.Name),
		TitleTemplate:   strings.TrimSpace(input.TitleTemplate),
		MessageTemplate: strings.TrimSpace(input.MessageTemplate),
		Type:            models.NotificationType(strings.ToLower(strings.TrimSpace(input.Type))),
		Priority:        models.Priority(strings.ToLower(defaultIfEmpty(strings.TrimSpace(input.Priority), string(models.PriorityMedium)))),
		Tag:             models.TemplateTag(strings.ToLower(strings.TrimSpace(input.Tag))),
		IsActive:        true,
	}
	if input.IsActive != nil {
		row.IsActive = *input.IsActive
	}
	if err := validateTemplate(row); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.ErrConflict.WithMessage(fmt.Sprintf("template %q already exists", row.Name))
		}
		return nil, fmt.Errorf("template service: create template: %w", err)
	}

	dto := mapTemplate(row)
	return &dto, nil
}

// Update applies a partial update to an existing template.
func (s *TemplateService) Update(ctx context.Context, id string, input UpdateTemplateInput) (*TemplateDTO, error) {
	ctx = ensureContext(ctx)
	row, err := s.getModel(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		row.Name = strings.TrimSpace(*input.Name)
	}
	if input.TitleTemplate != nil {
		row.TitleTemplate = strings.TrimSpace(*input.TitleTemplate)
	}
	if input.MessageTemplate != nil {
		row.MessageTemplate = strings.TrimSpace(*input.MessageTemplate)
	}
	if input.Type != nil {
		row.Type = models.NotificationType(strings.ToLower(strings.TrimSpace(*input.Type)))
	}
	if input.Priority != nil {
		row.Priority = models.Priority(strings.ToLower(strings.TrimSpace(*input.Priority)))
	}
	if input.Tag != nil {
		row.Tag = models.TemplateTag(strings.ToLower(strings.TrimSpace(*input.Tag)))
	}
	if input.IsActive != nil {
		row.IsActive = *input.IsActive
	}
	if err := validateTemplate(*row); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Save(row).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.ErrConflict.WithMessage(fmt.Sprintf("template %q already exists", row.Name))
		}
		return nil, fmt.Errorf("template service: update template: %w", err)
	}

	return s.Get(ctx, row.ID)
}

// SetActive activates or deactivates the given templates and returns the count changed.
func (s *TemplateService) SetActive(ctx context.Context, ids []string, active bool) (int64, error) {
	ctx = ensureContext(ctx)
	ids = normaliseIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	result := s.db.WithContext(ctx).
		Model(&models.NotificationTemplate{}).
		Where("id IN ? AND is_active = ?", ids, !active).
		Update("is_active", active)
	if result.Error != nil {
		return 0, fmt.Errorf("template service: set active: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// SeedDefaults inserts the built-in templates that do not exist yet and returns how many were created.
func (s *TemplateService) SeedDefaults(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)
	created := 0
	for _, row := range DefaultTemplates() {
		var existing int64
		if err := s.db.WithContext(ctx).
			Model(&models.NotificationTemplate{}).
			Where("name = ?", row.Name).
			Count(&existing).Error; err != nil {
			return created, fmt.Errorf("template service: seed %q: %w", row.Name, err)
		}
		if existing > 0 {
			continue
		}
		if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
			return created, fmt.Errorf("template service: seed %q: %w", row.Name, err)
		}
		created++
		s.log.Debug("seeded notification template", zap.String("template", row.Name))
	}
	return created, nil
}

func validateTemplate(row models.NotificationTemplate) error {
	if row.Name == "" {
		return apperrors.NewBadRequest("template name is required")
	}
	if len(row.Name) > 100 {
		return apperrors.NewBadRequest("template name must be at most 100 characters")
	}
	if row.TitleTemplate == "" || row.MessageTemplate == "" {
		return apperrors.NewBadRequest("title_template and message_template are required")
	}
	if len(row.TitleTemplate) > 200 {
		return apperrors.NewBadRequest("title_template must be at most 200 characters")
	}
	if !row.Type.Valid() {
		return apperrors.NewBadRequest(fmt.Sprintf("invalid notification type %q", row.Type))
	}
	if !row.Priority.Valid() {
		return apperrors.NewBadRequest(fmt.Sprintf("invalid priority %q", row.Priority))
	}
	if !row.Tag.Valid() {
		return apperrors.NewBadRequest(fmt.Sprintf("invalid template tag %q", row.Tag))
	}
	if _, err := notifications.Placeholders(row.TitleTemplate); err != nil {
		return apperrors.NewBadRequest("title_template is malformed").WithInternal(err)
	}
	if _, err := notifications.Placeholders(row.MessageTemplate); err != nil {
		return apperrors.NewBadRequest("message_template is malformed").WithInternal(err)
	}
	return nil
}

func mapTemplate(row models.NotificationTemplate) TemplateDTO {
	placeholders := templatePlaceholders(row)
	return TemplateDTO{
		ID:              row.ID,
		Name:            row.Name,
		TitleTemplate:   row.TitleTemplate,
		MessageTemplate: row.MessageTemplate,
		Type:            string(row.Type),
		Priority:        string(row.Priority),
		Tag:             string(row.Tag),
		IsActive:        row.IsActive,
		Placeholders:    placeholders,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

func templatePlaceholders(row models.NotificationTemplate) []string {
	names := []string{}
	for _, tmpl := range []string{row.TitleTemplate, row.MessageTemplate} {
		found, err := notifications.Placeholders(tmpl)
		if err != nil {
			continue
		}
		for _, name := range found {
			if !slices.Contains(names, name) {
				names = append(names, name)
			}
		}
	}
	return names
}
