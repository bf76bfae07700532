package api

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/auth"
)

// NewRouter sets up the API router
func NewRouter(handler *Handler, logger *zap.Logger) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.Use(cors.New(corsConfig(handler.opts.AllowedOrigins)))

	// Public routes
	router.GET("/", handler.HealthCheck)
	router.POST("/auth/token", handler.IssueToken)

	api := router.Group("/api")
	api.POST("/extract", handler.Extract)

	graphRoutes := api.Group("/graph")
	if handler.jwtManager != nil {
		graphRoutes.Use(AuthMiddleware(handler.jwtManager, auth.ScopeGraph, logger))
	} else {
		logger.Warn("graph endpoints are unauthenticated; set JWT_SECRET to protect them")
	}
	{
		graphRoutes.POST("/suggest", handler.SuggestGraph)
		graphRoutes.POST("/execute", handler.ExecuteGraph)
	}

	return router
}

// corsConfig allows credentials only for an explicit origin list, since
// browsers refuse a wildcard origin on credentialed requests.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
