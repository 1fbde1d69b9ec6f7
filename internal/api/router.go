package api

import (
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/flagforge/flagforge/internal/auth"
	"github.com/flagforge/flagforge/internal/handlers"
	"github.com/flagforge/flagforge/internal/middleware"
	"github.com/flagforge/flagforge/internal/realtime"
	"github.com/flagforge/flagforge/internal/services"
	"github.com/flagforge/flagforge/web"
)

// Deps carries everything the router wires together.
type Deps struct {
	DB          *gorm.DB
	JWT         *iauth.JWTService
	Sessions    *iauth.SessionService
	OAuth       *iauth.OIDCAuthenticator
	Handshakes  *iauth.HandshakeStore
	Admins      *services.AdminService
	Players     *services.PlayerService
	Flags       *services.FlagService
	Leaderboard *services.LeaderboardService
	SiteIP      *services.SiteIPService
	Hub         *realtime.Hub
	RateStore   middleware.RateStore

	// Request budgets. Zero disables the respective limiter.
	GlobalRateLimit int
	LoginRateLimit  int
	SubmitRateLimit int
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.JWT == nil || deps.Sessions == nil {
		return nil, fmt.Errorf("auth services must be provided")
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	if deps.GlobalRateLimit > 0 {
		r.Use(middleware.RateLimit(deps.RateStore, deps.GlobalRateLimit, time.Minute))
	}

	r.GET("/health", handlers.Health(deps.DB))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handlers.NewAuthHandler(deps.Admins, deps.Sessions)
	oauthHandler := handlers.NewOAuthHandler(deps.OAuth, deps.Handshakes, deps.Players, deps.Sessions)
	playersHandler := handlers.NewPlayersHandler(deps.Players)
	dashboardHandler := handlers.NewDashboardHandler(deps.Players, deps.Flags, deps.SiteIP)
	leaderboardHandler := handlers.NewLeaderboardHandler(deps.Leaderboard)
	adminHandler := handlers.NewAdminHandler(deps.SiteIP)
	siteHandler := handlers.NewSiteHandler(deps.SiteIP)
	realtimeHandler := handlers.NewRealtimeHandler(deps.Hub)

	loginLimit := middleware.RateLimit(deps.RateStore, deps.LoginRateLimit, time.Minute)
	submitLimit := middleware.RateLimit(deps.RateStore, deps.SubmitRateLimit, time.Minute)

	// Public routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/admin/login", loginLimit, authHandler.AdminLogin)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/oauth/login", oauthHandler.Begin)
	}
	r.GET("/auth/callback", oauthHandler.Callback)

	r.GET("/api/site", siteHandler.Info)
	r.GET("/api/leaderboard", leaderboardHandler.Standings)
	r.GET("/api/realtime", realtimeHandler.Serve)

	// Authenticated routes
	requireAuth := middleware.Auth(deps.JWT)

	api := r.Group("/api")
	api.Use(requireAuth)
	{
		api.GET("/auth/me", authHandler.Me)

		api.POST("/players", playersHandler.Create)
		api.GET("/players/me", playersHandler.Me)
		api.GET("/players/suggestion", playersHandler.Suggestion)

		api.GET("/dashboard", dashboardHandler.Board)
		api.POST("/dashboard/flags", submitLimit, dashboardHandler.Submit)
	}

	// Admin routes: role claim plus live session check
	admin := r.Group("/api/admin")
	admin.Use(requireAuth, middleware.RequireAdmin(deps.Sessions))
	{
		admin.GET("/site-ip", adminHandler.GetSiteIP)
		admin.PUT("/site-ip", adminHandler.UpdateSiteIP)
	}

	if err := registerStaticRoutes(r); err != nil {
		return nil, err
	}

	return r, nil
}

// registerStaticRoutes serves the embedded frontend. Page paths fall back to
// index.html so the client-side router owns them.
func registerStaticRoutes(r *gin.Engine) error {
	staticFS, err := web.FS()
	if err != nil {
		return fmt.Errorf("load static assets: %w", err)
	}

	fileServer := http.FileServer(http.FS(staticFS))
	serveIndex := func(c *gin.Context) {
		c.Request.URL.Path = "/"
		fileServer.ServeHTTP(c.Writer, c.Request)
	}

	for _, page := range []string{"/", "/register", "/dashboard", "/leaderboard", "/create-player", "/admin", "/admin/login", "/auth/error"} {
		r.GET(page, serveIndex)
	}

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			middleware.NotFoundHandler(c)
			return
		}
		if c.Request.Method == http.MethodGet {
			if _, err := fs.Stat(staticFS, strings.TrimPrefix(c.Request.URL.Path, "/")); err == nil {
				fileServer.ServeHTTP(c.Writer, c.Request)
				return
			}
		}
		middleware.NotFoundHandler(c)
	})

	return nil
}
