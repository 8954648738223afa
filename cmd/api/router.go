package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authdelivery "taskmind-backend/internal/auth/delivery"
	authusecase "taskmind-backend/internal/auth/usecase"
	convdelivery "taskmind-backend/internal/conversation/delivery"
	sourcedelivery "taskmind-backend/internal/source/delivery"
	taskdelivery "taskmind-backend/internal/task/delivery"
)

// SetupRoutes wires all HTTP endpoints
func SetupRoutes(r *gin.Engine, authUsecase authusecase.AuthUsecase, authHandler *authdelivery.AuthHandler, taskHandler *taskdelivery.TaskHandler, sourceHandler *sourcedelivery.SourceHandler, ingestHandler *convdelivery.IngestHandler, webhookHandler *WebhookHandler) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/google", authHandler.GoogleSignIn)
			auth.GET("/me", authdelivery.AuthMiddleware(authUsecase), authHandler.Me)
		}

		// Device push token routes (protected)
		users := api.Group("/users")
		users.Use(authdelivery.AuthMiddleware(authUsecase))
		{
			users.POST("/push-token", authHandler.RegisterFCMToken)
			users.DELETE("/push-token/:token", authHandler.UnregisterFCMToken)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(authdelivery.AuthMiddleware(authUsecase))
		{
			tasks.GET("", taskHandler.GetTasks)
			tasks.GET("/:id", taskHandler.GetTaskByID)
			tasks.PATCH("/:id/status", taskHandler.UpdateTaskStatus)
		}

		// Source setting routes (protected)
		sources := api.Group("/sources")
		sources.Use(authdelivery.AuthMiddleware(authUsecase))
		{
			sources.GET("", sourceHandler.GetSources)
			sources.PATCH("/:source", sourceHandler.UpdateSource)
		}

		// Ingest route (API-key guarded, for source connectors)
		api.POST("/ingest", ingestHandler.Ingest)

		// Webhook routes (verified by token / channel headers)
		webhooks := api.Group("/webhooks")
		{
			webhooks.POST("/pubsub", webhookHandler.PubSubPush)
			webhooks.POST("/calendar", webhookHandler.CalendarPing)
		}
	}
}
