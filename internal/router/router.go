package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/institute-portal/internal/config"
	"github.com/stemsi/institute-portal/internal/handler"
	"github.com/stemsi/institute-portal/internal/middleware"
	"github.com/stemsi/institute-portal/internal/response"
	"github.com/stemsi/institute-portal/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	Admin     *handler.AdminHandler
	Dashboard *handler.DashboardHandler
	WS        *handler.WSHandler
	System    *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// loginLimiter may be nil to disable login throttling.
func SetupRouter(
	sessionService *service.SessionService,
	handlers *Handlers,
	loginLimiter *middleware.RateLimiter,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", handlers.System.Health)

	// Everything below carries a session.
	portal := router.Group("/")
	portal.Use(middleware.NoStore(), middleware.LoadSession(sessionService, cfg, log))

	// ─── 1. Public ─────────────────────────────────────────────────────
	{
		portal.GET("/", handlers.Auth.Landing)
		portal.GET("/login", handlers.Auth.LoginPage)
		portal.GET("/logout", handlers.Auth.Logout)

		if loginLimiter != nil {
			portal.POST("/login", loginLimiter.Middleware(), handlers.Auth.Login)
		} else {
			portal.POST("/login", handlers.Auth.Login)
		}
	}

	// ─── 2. Admin ──────────────────────────────────────────────────────
	admin := portal.Group("/")
	admin.Use(middleware.RequireAdmin())
	{
		admin.GET("/admin", handlers.Admin.AdminPage)
		admin.POST("/admin", handlers.Admin.AddInstitute)
		admin.POST("/remove-institute", handlers.Admin.RemoveInstitute)
		admin.POST("/remove_institute", handlers.Admin.RemoveInstitute)
	}

	// ─── 3. Any signed-in identity ─────────────────────────────────────
	member := portal.Group("/")
	member.Use(middleware.RequireAuthenticated())
	{
		member.GET("/dashboard", handlers.Dashboard.Dashboard)
		member.POST("/select-institute", handlers.Dashboard.SelectInstitute)
		member.POST("/select_institute", handlers.Dashboard.SelectInstitute)
		member.GET("/ws/institutes", handlers.WS.InstituteStream)
	}

	return router
}
