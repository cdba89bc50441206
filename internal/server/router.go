package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/chief-of-staff/internal/handlers"
)

type RouterConfig struct {
	HealthHandler     *handlers.HealthHandler
	PreferenceHandler *handlers.PreferenceHandler
	DuplicateHandler  *handlers.DuplicateHandler
	BriefingHandler   *handlers.BriefingHandler
	TelegramHandler   *handlers.TelegramHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", cfg.HealthHandler.Check)

	// Bot webhook
	router.POST("/telegram/webhook", cfg.TelegramHandler.Webhook)

	api := router.Group("/api")
	{
		// Preferences
		api.GET("/users/:user_id/preferences/report", cfg.PreferenceHandler.Report)
		api.POST("/users/:user_id/preferences/reset", cfg.PreferenceHandler.Reset)
		// Duplicates
		api.GET("/duplicates", cfg.DuplicateHandler.List)
		api.GET("/duplicates/:issue_id", cfg.DuplicateHandler.CheckIssue)
		// Briefings
		api.POST("/users/:user_id/briefings/run", cfg.BriefingHandler.Run)
	}

	return router
}
