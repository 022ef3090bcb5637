package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/cuongbtq/thumbnail-service/internal/api/handler"
)

// Config holds router settings
type Config struct {
	UploadRatePerSecond   float64
	UploadBurst           int
	UploadLimiterEvictTTL time.Duration
}

// SetupRouter configures and returns the Gin router with all routes. The
// upload rate limiter is cleaned up until ctx is done.
func SetupRouter(ctx context.Context, deps *handler.Dependencies, cfg Config) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "thumbnail-api-service",
		})
	})

	// Readiness of Redis, RabbitMQ and, when enabled, PostgreSQL
	r.GET("/ready", handler.NewHealthHandler(deps).Ready)

	limiter := newIPRateLimiter(rate.Limit(cfg.UploadRatePerSecond), cfg.UploadBurst, cfg.UploadLimiterEvictTTL)
	if cfg.UploadLimiterEvictTTL > 0 {
		go limiter.cleanupLoop(ctx)
	}

	imageHandler := handler.NewImageHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		images := v1.Group("/images")
		{
			// POST /api/v1/images - Upload an image for thumbnail processing
			images.POST("", rateLimitMiddleware(limiter), imageHandler.UploadImage)

			// GET /api/v1/images/:image_id - Get processing status
			images.GET("/:image_id", imageHandler.GetImage)

			// GET /api/v1/images/:image_id/thumbnail - Download the thumbnail
			images.GET("/:image_id/thumbnail", imageHandler.GetThumbnail)

			// GET /api/v1/images/:image_id/history - List status transitions
			images.GET("/:image_id/history", imageHandler.GetHistory)
		}
	}

	return r
}
