package api

import (
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter wires the relay routes. Every response, preflight included,
// carries permissive CORS headers so browsers can call the relay directly.
func NewRouter(h *Handler, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Authorization", "X-Client-Info", "Apikey", "Content-Type"},
		MaxAge:          12 * time.Hour,
	}))

	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/trello-validate", h.ValidateHandler())
		apiGroup.POST("/trello-boards", h.BoardsHandler())
		apiGroup.POST("/trello-lists", h.ListsHandler())
		apiGroup.POST("/trello-labels", h.LabelsHandler())
		apiGroup.POST("/trello-members", h.MembersHandler())
		apiGroup.POST("/trello-create-card", h.CreateCardHandler())
		apiGroup.GET("/health", h.HealthCheckHandler)
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
