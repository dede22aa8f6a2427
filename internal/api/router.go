package api

import (
	"log/slog"

	"github.com/billtrackerhq/billtracker-backend/internal/api/handlers"
	"github.com/billtrackerhq/billtracker-backend/internal/api/middleware"
	"github.com/billtrackerhq/billtracker-backend/internal/auth"
	"github.com/billtrackerhq/billtracker-backend/internal/extraction"
	"github.com/billtrackerhq/billtracker-backend/internal/logger"
	"github.com/billtrackerhq/billtracker-backend/internal/notify"
	"github.com/billtrackerhq/billtracker-backend/internal/repository"
	"github.com/billtrackerhq/billtracker-backend/internal/storage"
	"github.com/billtrackerhq/billtracker-backend/internal/websocket"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// uploadBodyLimit caps multipart upload requests
const uploadBodyLimit = "16M"

// RouterConfig holds dependencies for the router
type RouterConfig struct {
	DB          *gorm.DB
	FileStorage storage.FileStorage
	Logger      *slog.Logger
	JWTManager  *auth.JWTManager
	Extractor   extraction.Client
	Dispatcher  *notify.Dispatcher
	Hub         *websocket.Hub

	AllowedOrigins []string
	AppEnv         string
	RateLimit      float64
	RateBurst      int
}

// NewRouter creates and configures the Echo router with all routes
func NewRouter(cfg *RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	security := logger.NewSecurityLogger()

	e.Use(middleware.Recover())
	e.Use(middleware.SecureHeaders())
	e.Use(middleware.SecureCORS(cfg.AllowedOrigins, cfg.AppEnv))
	e.Use(middleware.RateLimiter(cfg.RateLimit, cfg.RateBurst, security))
	if cfg.Logger != nil {
		e.Use(middleware.RequestLogger(cfg.Logger))
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(cfg.DB)
	billRepo := repository.NewBillRepository(cfg.DB, cfg.FileStorage)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB)
	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTManager)
	billHandler := handlers.NewBillHandler(billRepo, cfg.FileStorage, cfg.Extractor, cfg.Dispatcher, cfg.Hub, cfg.Logger)
	fileHandler := handlers.NewFileHandler(billRepo, cfg.FileStorage)
	settingsHandler := handlers.NewSettingsHandler(userRepo, cfg.Dispatcher)
	wsHandler := handlers.NewWSHandler(cfg.Hub, cfg.JWTManager, websocket.NewSecureUpgrader(cfg.AllowedOrigins, security), cfg.Logger)

	// Health routes (no auth required)
	e.GET("/health", healthHandler.Health)
	e.GET("/ready", healthHandler.Ready)

	// Websocket (token authenticated via query param)
	e.GET("/ws", wsHandler.Handle)

	api := e.Group("/api")

	// Auth routes (no token required)
	authGroup := api.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/refresh", authHandler.Refresh)

	// Everything below requires a valid token
	protected := api.Group("", middleware.JWTAuth(cfg.JWTManager, security))

	bills := protected.Group("/bills")
	bills.POST("", billHandler.Create, middleware.BodyLimit(uploadBodyLimit))
	bills.GET("", billHandler.List)
	bills.GET("/stats", billHandler.Stats)
	bills.GET("/:id", billHandler.Get)
	bills.PATCH("/:id", billHandler.Update)
	bills.POST("/:id/pay", billHandler.Pay)
	bills.DELETE("/:id", billHandler.Delete)

	protected.GET("/files/:filename", fileHandler.Serve)

	settings := protected.Group("/settings")
	settings.GET("", settingsHandler.Get)
	settings.PUT("", settingsHandler.Update)
	settings.POST("/test-notification", settingsHandler.TestNotification)
	settings.POST("/test-imap", settingsHandler.TestMailbox)

	return e
}
