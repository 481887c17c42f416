package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Rileydk/Pomodoro/internal/handler"
	"github.com/Rileydk/Pomodoro/internal/metrics"
	"github.com/Rileydk/Pomodoro/internal/middleware"
	"github.com/Rileydk/Pomodoro/internal/service"
)

type Handlers struct {
	Auth     *handler.AuthHandler
	Session  *handler.SessionHandler
	Settings *handler.SettingsHandler
	Reports  *handler.ReportHandler
}

func New(
	authService *service.AuthService,
	handlers Handlers,
	corsOrigins []string,
	logger zerolog.Logger,
) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.RequestLogger(logger), gin.Recovery(), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := engine.Group("/api")
	api.POST("/auth/pair", handlers.Auth.Pair)

	protected := api.Group("")
	protected.Use(middleware.Auth(authService))

	session := protected.Group("/session")
	session.GET("", handlers.Session.GetState)
	session.POST("/start", handlers.Session.Start)
	session.POST("/pause", handlers.Session.Pause)
	session.POST("/reset", handlers.Session.Reset)
	session.POST("/background", handlers.Session.Background)
	session.POST("/foreground", handlers.Session.Foreground)
	session.GET("/events", handlers.Session.Events)

	protected.GET("/settings", handlers.Settings.Get)
	protected.PUT("/settings", handlers.Settings.Update)

	reports := protected.Group("/reports")
	reports.GET("/details", handlers.Reports.Details)
	reports.GET("/rollups", handlers.Reports.Rollups)
	reports.POST("/reset", handlers.Reports.Reset)

	return engine
}
