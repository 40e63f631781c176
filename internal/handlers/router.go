package handlers

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the HTTP API. Everything under /api/v1 requires a bearer
// token when jwtSecret is set; /health is always open.
func NewRouter(tracks *TrackHandler, admin *AdminHandler, health *HealthHandler, jwtSecret string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/health", health.GetHealth)

	v1 := router.Group("/api/v1", JWTAuth(jwtSecret))
	tracks.RegisterRoutes(v1)
	if admin != nil {
		admin.RegisterRoutes(v1)
	}

	return router
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		slog.Info("Request handled",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
