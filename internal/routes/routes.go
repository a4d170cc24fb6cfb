package routes

import (
	"net/http"

	"eventra_backend/internal/handlers"
	"eventra_backend/internal/middleware"

	"github.com/gin-gonic/gin"
	swaggoFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// RegisterRoutes wires the global middleware chain and mounts every
// handler group under /api/v1.
func RegisterRoutes(engine *gin.Engine, h *handlers.AppHandlers, db *gorm.DB) {
	engine.Use(
		middleware.RequestIDMiddleware(),
		middleware.LoggingMiddleware(),
		middleware.CORSMiddleware(),
		gin.Recovery(),
		middleware.DBMiddleware(db),
	)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggoFiles.Handler))

	api := engine.Group("/api/v1")

	h.Auth.RegisterRoutes(api)
	h.User.RegisterRoutes(api)
	h.Event.RegisterRoutes(api)
	h.Subscription.RegisterRoutes(api)
	h.Invitation.RegisterRoutes(api)
	h.Document.RegisterRoutes(api)
	h.Testimonial.RegisterRoutes(api)
	h.Legal.RegisterRoutes(api)
}
