package api

import (
	"fmt"
	"math/rand/v2"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/mlnotify/internal/app"
	iauth "github.com/charlesng35/mlnotify/internal/auth"
	"github.com/charlesng35/mlnotify/internal/handlers"
	"github.com/charlesng35/mlnotify/internal/middleware"
	"github.com/charlesng35/mlnotify/internal/monitoring"
	"github.com/charlesng35/mlnotify/internal/monitoring/checks"
	"github.com/charlesng35/mlnotify/internal/permissions"
	"github.com/charlesng35/mlnotify/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers the notification routes.
// A nil rateStore disables rate limiting. The database and template probes are
// always registered; extraChecks are appended to the readiness report.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, rateStore middleware.RateStore, extraChecks ...monitoring.Check) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	stack, err := NewServices(db, cfg)
	if err != nil {
		return nil, err
	}

	checker, err := permissions.NewChecker(permissions.DefaultRoleGrants())
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: cfg.Server.CORS.AllowedOrigins,
		MaxAge:         int(cfg.Server.CORS.MaxAge.Seconds()),
	}))

	health := monitoring.NewHealthManager(
		checks.Database(db, 0),
		checks.Templates(stack.Templates),
	)
	for _, check := range extraChecks {
		health.Register(check)
	}
	registerHealthRoutes(r, cfg, health)

	requireAuth := middleware.Auth(jwt)
	var limiter gin.HandlerFunc
	if rateStore != nil && cfg.Server.RateLimit.Enabled {
		limiter = middleware.RateLimit(rateStore, cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window)
	}

	notificationHandler := handlers.NewNotificationHandler(
		stack.Notifications,
		stack.Generator,
		cfg.Notifications.PageSize,
		cfg.Notifications.RecentLimit,
	)
	eventHandler := handlers.NewEventHandler(stack.Notifications)
	adminHandler := handlers.NewAdminHandler(stack.Admin, stack.Notifications, stack.Templates, stack.Generator)

	pages := r.Group("/notifications", protected(requireAuth, limiter)...)
	registerNotificationPageRoutes(pages, notificationHandler, checker)

	api := r.Group("/api", protected(requireAuth, limiter)...)
	registerNotificationAPIRoutes(api, notificationHandler, eventHandler, checker)
	registerAdminRoutes(api, adminHandler, checker)

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

func protected(auth, limiter gin.HandlerFunc) []gin.HandlerFunc {
	chain := []gin.HandlerFunc{auth}
	if limiter != nil {
		chain = append(chain, limiter)
	}
	return chain
}

// Services bundles the notification services shared by the HTTP layer and the command line.
type Services struct {
	Notifications *services.NotificationService
	Templates     *services.TemplateService
	Generator     *services.GeneratorService
	Admin         *services.AdminService
}

// NewServices constructs the notification services from configuration.
func NewServices(db *gorm.DB, cfg *app.Config) (*Services, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	notificationSvc, err := services.NewNotificationService(db,
		services.WithDefaultExpiryDays(cfg.Notifications.DefaultExpiryDays),
	)
	if err != nil {
		return nil, err
	}

	templateSvc, err := services.NewTemplateService(db)
	if err != nil {
		return nil, err
	}

	genOpts := []services.GeneratorOption{
		services.WithGenerateCounts(cfg.Notifications.DefaultGenerateCount, cfg.Notifications.MaxGenerateCount),
	}
	if seed := cfg.Notifications.GeneratorSeed; seed != 0 {
		genOpts = append(genOpts, services.WithGeneratorRand(rand.New(rand.NewPCG(seed, seed))))
	}
	generatorSvc, err := services.NewGeneratorService(templateSvc, notificationSvc, genOpts...)
	if err != nil {
		return nil, err
	}

	adminSvc, err := services.NewAdminService(db, notificationSvc, templateSvc)
	if err != nil {
		return nil, err
	}

	return &Services{
		Notifications: notificationSvc,
		Templates:     templateSvc,
		Generator:     generatorSvc,
		Admin:         adminSvc,
	}, nil
}
