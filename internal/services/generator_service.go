package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/mlnotify/internal/models"
	"github.com/charlesng35/mlnotify/internal/notifications"
	apperrors "github.com/charlesng35/mlnotify/pkg/errors"
	"github.com/charlesng35/mlnotify/pkg/logger"
	"github.com/charlesng35/mlnotify/pkg/metrics"
)

const (
	// DefaultGenerateCount applies when the requested count is missing or invalid.
	DefaultGenerateCount = 2
	// MaxGenerateCount caps a single generation request.
	MaxGenerateCount = 10

	metadataDynamicKey = "isDynamic"
	generatorSource    = "dynamic_generator"
	templateTestSource = "template_test"
)

// TemplatePreview reports how a template renders with the fixed preview values.
type TemplatePreview struct {
	TemplateID string   `json:"template_id"`
	Name       string   `json:"name"`
	Title      string   `json:"title,omitempty"`
	Message    string   `json:"message,omitempty"`
	Missing    []string `json:"missing,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// GeneratorOption configures optional GeneratorService behaviour.
type GeneratorOption func(*GeneratorService)

// WithGeneratorRand injects the random source used for sampling (seed it for deterministic runs).
func WithGeneratorRand(rng *rand.Rand) GeneratorOption {
	return func(s *GeneratorService) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithGenerateCounts overrides the default and maximum generation counts.
func WithGenerateCounts(defaultCount, maxCount int) GeneratorOption {
	return func(s *GeneratorService) {
		if maxCount > 0 {
			s.maxCount = maxCount
		}
		if defaultCount > 0 {
			s.defaultCount = min(defaultCount, s.maxCount)
		}
	}
}

// GeneratorService produces randomised sample notifications from active templates.
type GeneratorService struct {
	templates     *TemplateService
	notifications *NotificationService

	mu  sync.Mutex
	rng *rand.Rand

	defaultCount int
	maxCount     int
	log          *zap.Logger
}

type candidate struct {
	template models.NotificationTemplate
	title    string
	message  string
	action   notifications.Action
}

// NewGeneratorService constructs a GeneratorService.
func NewGeneratorService(templates *TemplateService, notificationSvc *NotificationService, opts ...GeneratorOption) (*GeneratorService, error) {
	if templates == nil {
		return nil, errors.New("generator service: template service is required")
	}
	if notificationSvc == nil {
		return nil, errors.New("generator service: notification service is required")
	}
	svc := &GeneratorService{
		templates:     templates,
		notifications: notificationSvc,
		rng:           rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())),
		defaultCount:  DefaultGenerateCount,
		maxCount:      MaxGenerateCount,
		log:           logger.WithModule("generator"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// ClampCount normalises a raw requested count. Missing, non-integer and
// non-positive values fall back to the default; larger values are capped.
func (s *GeneratorService) ClampCount(raw any) int {
	var n int64
	switch v := raw.(type) {
	case int:
		n = int64(v)
	case int64:
		n = v
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return s.defaultCount
		}
		if v > float64(s.maxCount) {
			return s.maxCount
		}
		n = int64(v)
	case json.Number:
		parsed, err := v.Int64()
		if err != nil {
			return s.defaultCount
		}
		n = parsed
	default:
		return s.defaultCount
	}

	switch {
	case n < 1:
		return s.defaultCount
	case n > int64(s.maxCount):
		return s.maxCount
	default:
		return int(n)
	}
}

// Generate renders every active template with fresh sample values, samples up
// to count of the successful renders without replacement and persists them for userID.
// Templates that fail to render are skipped.
func (s *GeneratorService) Generate(ctx context.Context, userID string, count int) ([]NotificationDTO, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}
	count = s.ClampCount(count)

	rows, err := s.templates.listModels(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("generator service: %w", err)
	}

	selected := s.pick(rows, count)
	generatedAt := s.notifications.Now().Format(time.RFC3339Nano)

	created := make([]NotificationDTO, 0, len(selected))
	err = s.notifications.Transaction(ctx, func(tx *NotificationService) error {
		for _, c := range selected {
			dto, err := tx.Create(ctx, CreateNotificationInput{
				Title:      c.title,
				Message:    c.message,
				Type:       string(c.template.Type),
				Priority:   string(c.template.Priority),
				UserID:     userID,
				ModelName:  c.action.ModelName,
				ActionText: c.action.Text,
				ActionURL:  c.action.URL,
				Metadata: map[string]any{
					metadataDynamicKey: true,
					"generated_at":     generatedAt,
					"generated_by":     "system",
					"source":           generatorSource,
					"template":         c.template.Name,
				},
				Source: SourceDynamic,
			})
			if err != nil {
				return fmt.Errorf("persist %q: %w", c.template.Name, err)
			}
			created = append(created, *dto)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("generator service: %w", err)
	}
	metrics.DynamicGenerated.Add(float64(len(created)))

	s.log.Debug("generated dynamic notifications",
		zap.String("user_id", userID),
		zap.Int("requested", count),
		zap.Int("created", len(created)),
		zap.Int("templates", len(rows)),
	)
	return created, nil
}

// pick renders the templates and samples up to count candidates. It holds the
// rng lock for the duration.
func (s *GeneratorService) pick(rows []models.NotificationTemplate, count int) []candidate {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidates := make([]candidate, 0, len(rows))
	for _, row := range rows {
		values := notifications.SampleValues(s.rng)
		title, message, err := notifications.RenderPair(row.TitleTemplate, row.MessageTemplate, values)
		if err != nil {
			metrics.TemplateRenderFailures.WithLabelValues(row.Name).Inc()
			s.log.Debug("skipping template", zap.String("template", row.Name), zap.Error(err))
			continue
		}
		candidates = append(candidates, candidate{
			template: row,
			title:    title,
			message:  message,
			action:   notifications.ResolveAction(row.Type, row.Tag, values),
		})
	}

	n := min(count, len(candidates))
	selected := make([]candidate, 0, n)
	for _, idx := range s.rng.Perm(len(candidates))[:n] {
		selected = append(selected, candidates[idx])
	}
	return selected
}

// Preview renders a template with the fixed preview values. Missing variables
// are reported in the result rather than returned as an error.
func (s *GeneratorService) Preview(ctx context.Context, templateID string) (*TemplatePreview, error) {
	row, err := s.templates.getModel(ctx, templateID)
	if err != nil {
		return nil, err
	}

	preview := &TemplatePreview{TemplateID: row.ID, Name: row.Name}
	title, message, err := notifications.RenderPair(row.TitleTemplate, row.MessageTemplate, notifications.PreviewValues())
	if err != nil {
		var mv *notifications.MissingVariableError
		if errors.As(err, &mv) {
			preview.Missing = mv.Names
		}
		preview.Error = err.Error()
		return preview, nil
	}
	preview.Title = title
	preview.Message = message
	return preview, nil
}

// TestTemplate renders one template, active or not, with random sample values
// and persists the result for userID. Other templates are left untouched.
func (s *GeneratorService) TestTemplate(ctx context.Context, templateID, userID string) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}

	row, err := s.templates.getModel(ctx, templateID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	values := notifications.SampleValues(s.rng)
	s.mu.Unlock()

	title, message, err := notifications.RenderPair(row.TitleTemplate, row.MessageTemplate, values)
	if err != nil {
		metrics.TemplateRenderFailures.WithLabelValues(row.Name).Inc()
		var mv *notifications.MissingVariableError
		if errors.As(err, &mv) {
			return nil, missingVariableError(mv)
		}
		return nil, apperrors.NewBadRequest("template is malformed").WithInternal(err)
	}

	action := notifications.ResolveAction(row.Type, row.Tag, values)
	return s.notifications.Create(ctx, CreateNotificationInput{
		Title:      title,
		Message:    message,
		Type:       string(row.Type),
		Priority:   string(row.Priority),
		UserID:     userID,
		ModelName:  action.ModelName,
		ActionText: action.Text,
		ActionURL:  action.URL,
		Metadata: map[string]any{
			metadataDynamicKey: true,
			"generated_at":     s.notifications.Now().Format(time.RFC3339Nano),
			"generated_by":     "system",
			"source":           templateTestSource,
			"template":         row.Name,
		},
		Source: SourceTemplateTest,
	})
}
