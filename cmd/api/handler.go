package api

import (
	"github.com/gin-gonic/gin"

	authdelivery "taskmind-backend/internal/auth/delivery"
	authusecase "taskmind-backend/internal/auth/usecase"
	convdelivery "taskmind-backend/internal/conversation/delivery"
	sourcedelivery "taskmind-backend/internal/source/delivery"
	taskdelivery "taskmind-backend/internal/task/delivery"
)

// Handler owns the HTTP server and its route handlers
type Handler struct {
	authUsecase    authusecase.AuthUsecase
	authHandler    *authdelivery.AuthHandler
	taskHandler    *taskdelivery.TaskHandler
	sourceHandler  *sourcedelivery.SourceHandler
	ingestHandler  *convdelivery.IngestHandler
	webhookHandler *WebhookHandler
}

func NewHandler(authUsecase authusecase.AuthUsecase, authHandler *authdelivery.AuthHandler, taskHandler *taskdelivery.TaskHandler, sourceHandler *sourcedelivery.SourceHandler, ingestHandler *convdelivery.IngestHandler, webhookHandler *WebhookHandler) *Handler {
	return &Handler{
		authUsecase:    authUsecase,
		authHandler:    authHandler,
		taskHandler:    taskHandler,
		sourceHandler:  sourceHandler,
		ingestHandler:  ingestHandler,
		webhookHandler: webhookHandler,
	}
}

// Start runs the HTTP server on addr
func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-API-Key, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.authUsecase, h.authHandler, h.taskHandler, h.sourceHandler, h.ingestHandler, h.webhookHandler)

	return r.Run(addr)
}
