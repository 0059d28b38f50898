package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/mlnotify/internal/api"
	"github.com/charlesng35/mlnotify/internal/app"
	"github.com/charlesng35/mlnotify/internal/app/maintenance"
	iauth "github.com/charlesng35/mlnotify/internal/auth"
	"github.com/charlesng35/mlnotify/internal/cache"
	"github.com/charlesng35/mlnotify/internal/database"
	"github.com/charlesng35/mlnotify/internal/middleware"
	"github.com/charlesng35/mlnotify/internal/monitoring"
	"github.com/charlesng35/mlnotify/internal/monitoring/checks"
	"github.com/charlesng35/mlnotify/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB        *gorm.DB
	Redis     *cache.RedisStore
	Services  *api.Services
	Cleaner   *maintenance.Cleaner
	Jobs      *monitoring.JobTracker
	RateStore middleware.RateStore
	Router    *gin.Engine
}

// bootstrapRuntime initialises the database, cache, services, background jobs and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	stack.Services, err = api.NewServices(stack.DB, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialise services: %w", err)
	}

	if cfg.Notifications.SeedTemplates {
		created, err := stack.Services.Templates.SeedDefaults(ctx)
		if err != nil {
			return nil, fmt.Errorf("seed templates: %w", err)
		}
		if created > 0 {
			log.Info("seeded notification templates", zap.Int("count", created))
		}
	}

	dbStore := cache.NewDatabaseStore(stack.DB)

	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisStore(ctx, cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed operations", zap.Error(err))
			stack.Redis = nil
		} else {
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	stack.Jobs = monitoring.NewJobTracker()
	stack.Cleaner = maintenance.NewCleaner(stack.Services.Notifications, dbStore,
		maintenance.WithJobTracker(stack.Jobs),
		maintenance.WithSweepSchedule(cfg.Notifications.SweepSchedule),
		maintenance.WithCachePurgeSchedule(cfg.Notifications.CachePurgeSchedule),
	)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	switch {
	case stack.Redis != nil:
		stack.RateStore = middleware.NewCacheRateStore(stack.Redis)
	default:
		stack.RateStore = middleware.NewCacheRateStore(dbStore)
	}

	var redisProbe checks.RedisPinger
	if stack.Redis != nil {
		redisProbe = stack.Redis
	}
	stack.Router, err = api.NewRouter(stack.DB, jwtSvc, cfg, stack.RateStore,
		checks.Redis(redisProbe, cfg.Cache.Redis.Enabled, cfg.Cache.Redis.Timeout),
		checks.Maintenance(stack.Jobs, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		<-stopCtx.Done()
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

// openServices opens the database and builds the notification services for one-shot commands.
func openServices(cfg *app.Config) (*gorm.DB, *api.Services, error) {
	db, err := initialiseDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	svcs, err := api.NewServices(db, cfg)
	if err != nil {
		_ = database.Close(db)
		return nil, nil, fmt.Errorf("initialise services: %w", err)
	}
	return db, svcs, nil
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver:   strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:     strings.TrimSpace(cfg.Database.Path),
		DSN:      strings.TrimSpace(cfg.Database.DSN),
		LogLevel: strings.TrimSpace(cfg.Database.LogLevel),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.Postgres.Password)
	case "mysql", "mariadb":
		dbCfg.Driver = "mysql"
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if err := database.Close(db); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
