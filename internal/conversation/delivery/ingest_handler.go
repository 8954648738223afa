package delivery

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	convdomain "taskmind-backend/internal/conversation/domain"
	"taskmind-backend/internal/conversation/dto"
	"taskmind-backend/internal/conversation/usecase"
	"taskmind-backend/internal/worker"
)

// Extractor runs the LLM extraction pipeline over a conversation
type Extractor interface {
	ProcessConversation(ctx context.Context, conversation *convdomain.Conversation) error
}

// JobQueue accepts background jobs
type JobQueue interface {
	Submit(job worker.Job) bool
}

// IngestHandler accepts conversation payloads from trusted internal callers
type IngestHandler struct {
	ingestUsecase usecase.IngestUsecase
	extractor     Extractor
	jobs          JobQueue
	apiKey        string
}

func NewIngestHandler(ingestUsecase usecase.IngestUsecase, extractor Extractor, jobs JobQueue, apiKey string) *IngestHandler {
	return &IngestHandler{
		ingestUsecase: ingestUsecase,
		extractor:     extractor,
		jobs:          jobs,
		apiKey:        apiKey,
	}
}

// Ingest upserts a conversation and queues extraction. Guarded by X-API-Key,
// this endpoint is for source connectors, not end users.
func (h *IngestHandler) Ingest(c *gin.Context) {
	if h.apiKey == "" || c.GetHeader("X-API-Key") != h.apiKey {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
		return
	}

	var payload dto.IngestRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conversation, err := h.ingestUsecase.Ingest(&payload)
	if err != nil {
		if errors.Is(err, usecase.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		log.Printf("[Ingest] failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ingest failed"})
		return
	}

	h.jobs.Submit(worker.Job{
		Name: "extract:" + conversation.ID,
		Run: func(ctx context.Context) {
			if err := h.extractor.ProcessConversation(ctx, conversation); err != nil {
				log.Printf("[Ingest] extraction failed for conversation %s: %v", conversation.ID, err)
			}
		},
	})

	c.JSON(http.StatusAccepted, gin.H{"conversation_id": conversation.ID})
}
