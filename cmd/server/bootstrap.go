package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/flagforge/flagforge/internal/api"
	"github.com/flagforge/flagforge/internal/app"
	"github.com/flagforge/flagforge/internal/app/maintenance"
	iauth "github.com/flagforge/flagforge/internal/auth"
	"github.com/flagforge/flagforge/internal/cache"
	"github.com/flagforge/flagforge/internal/database"
	"github.com/flagforge/flagforge/internal/grader"
	"github.com/flagforge/flagforge/internal/middleware"
	"github.com/flagforge/flagforge/internal/realtime"
	"github.com/flagforge/flagforge/internal/services"
	"github.com/flagforge/flagforge/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB      *gorm.DB
	Redis   cache.Store
	Cleaner *maintenance.Cleaner
	Router  *gin.Engine
}

// bootstrapRuntime initialises the database, caches, services and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	dbStore := cache.NewDatabaseStore(stack.DB)

	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisClient(cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed operations", zap.Error(err))
		} else {
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	sharedStore := cache.Store(dbStore)
	if stack.Redis != nil {
		sharedStore = stack.Redis
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	sessionSvc, err := iauth.NewSessionService(iauth.SessionConfig{
		DB:         stack.DB,
		JWT:        jwtSvc,
		Store:      sharedStore,
		SessionTTL: cfg.Auth.Session.RefreshTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise session service: %w", err)
	}

	handshakes := iauth.NewHandshakeStore(sharedStore, 0)

	var authenticator *iauth.OIDCAuthenticator
	if cfg.Auth.OAuth.Enabled {
		authenticator, err = iauth.NewOIDCAuthenticator(ctx, cfg.Auth.OIDCProviderConfig())
		if err != nil {
			// Player login degrades to the error page; admin access and the
			// public pages keep working.
			log.Warn("oidc provider unavailable; player login disabled", zap.Error(err))
			authenticator = nil
		}
	}

	graderClient, err := grader.NewClient(cfg.Grader.GraderClientConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise grader client: %w", err)
	}

	adminSvc := services.NewAdminService(stack.DB)
	if err := adminSvc.EnsureBootstrapAdmin(ctx, cfg.Auth.Admin.Email, cfg.Auth.Admin.Password); err != nil {
		return nil, fmt.Errorf("ensure bootstrap admin: %w", err)
	}

	hub := realtime.NewHub()
	playerSvc := services.NewPlayerService(stack.DB)
	flagSvc := services.NewFlagService(stack.DB, graderClient, hub, realtime.StreamPlayers)
	leaderboardSvc := services.NewLeaderboardService(stack.DB)
	siteIPSvc := services.NewSiteIPService(stack.DB)

	stack.Cleaner = maintenance.NewCleaner(sessionSvc, dbStore,
		maintenance.WithSessionSchedule(cfg.Maintenance.SessionSpec),
		maintenance.WithCacheSchedule(cfg.Maintenance.CacheSpec),
	)
	if cfg.Maintenance.Enabled {
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	stack.Router, err = api.NewRouter(api.Deps{
		DB:              stack.DB,
		JWT:             jwtSvc,
		Sessions:        sessionSvc,
		OAuth:           authenticator,
		Handshakes:      handshakes,
		Admins:          adminSvc,
		Players:         playerSvc,
		Flags:           flagSvc,
		Leaderboard:     leaderboardSvc,
		SiteIP:          siteIPSvc,
		Hub:             hub,
		RateStore:       middleware.NewCacheRateStore(sharedStore),
		GlobalRateLimit: cfg.RateLimit.Global,
		LoginRateLimit:  cfg.RateLimit.Login,
		SubmitRateLimit: cfg.RateLimit.Submit,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown releases runtime resources in reverse dependency order.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if rc, ok := s.Redis.(*cache.RedisClient); ok && rc != nil {
		_ = rc.Close()
	}

	closeDatabase(s.DB, log)
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	logger.WithModule("database").Info("database connected",
		zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
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
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
	default:
		// Unsupported drivers surface their error during open.
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
