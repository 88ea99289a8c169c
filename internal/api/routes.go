package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	// Health check
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(IdentityMiddleware())
	{
		// Document routes
		v1.POST("/documents", handler.UploadDocuments)
		v1.GET("/documents", handler.ListDocuments)
		v1.GET("/documents/:id", handler.GetDocument)
		v1.GET("/documents/:id/fields", handler.GetDocumentFields)
		v1.POST("/documents/:id/review", handler.SubmitReview)
		v1.GET("/documents/:id/export", handler.ExportDocument)

		// Realtime events
		v1.GET("/events", handler.StreamEvents)

		// Prompt administration
		v1.POST("/prompts", handler.CreatePrompt)
		v1.POST("/prompts/:id/activate", handler.ActivatePrompt)
		v1.GET("/prompts", handler.ListPromptVersions)
	}
}
