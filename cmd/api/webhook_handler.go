package api

import (
	"context"
	"encoding/base64"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	authrepo "taskmind-backend/internal/auth/repository"
	"taskmind-backend/internal/notification"
	"taskmind-backend/internal/sync"
	"taskmind-backend/internal/worker"
)

// JobQueue accepts background jobs
type JobQueue interface {
	Submit(job worker.Job) bool
}

// WebhookHandler receives push deliveries from Google: Pub/Sub push for
// Gmail and channel pings for Calendar. Both are acknowledged with 200 even
// on processing errors, Google retries non-2xx aggressively and the sync
// cursor makes redelivery harmless.
type WebhookHandler struct {
	listener          *notification.PubSubListener
	users             authrepo.UserRepository
	calendarSync      *sync.CalendarSyncService
	jobs              JobQueue
	verificationToken string
}

func NewWebhookHandler(listener *notification.PubSubListener, users authrepo.UserRepository, calendarSync *sync.CalendarSyncService, jobs JobQueue, verificationToken string) *WebhookHandler {
	return &WebhookHandler{
		listener:          listener,
		users:             users,
		calendarSync:      calendarSync,
		jobs:              jobs,
		verificationToken: verificationToken,
	}
}

// pubsubPushEnvelope is the JSON body of a Pub/Sub push delivery
type pubsubPushEnvelope struct {
	Message struct {
		Data      string `json:"data"` // base64
		MessageID string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// PubSubPush handles Gmail notifications delivered over Pub/Sub push
func (h *WebhookHandler) PubSubPush(c *gin.Context) {
	if h.verificationToken == "" || c.Query("token") != h.verificationToken {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid verification token"})
		return
	}

	if h.listener == nil {
		c.Status(http.StatusOK)
		return
	}

	var envelope pubsubPushEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		log.Printf("[Webhook] bad pubsub envelope: %v", err)
		c.Status(http.StatusOK)
		return
	}

	data, err := base64.StdEncoding.DecodeString(envelope.Message.Data)
	if err != nil {
		log.Printf("[Webhook] bad pubsub payload encoding: %v", err)
		c.Status(http.StatusOK)
		return
	}

	h.listener.HandleNotification(data)
	c.Status(http.StatusOK)
}

// CalendarPing handles Google Calendar channel notifications. The channel
// token carries the user ID set at registration.
func (h *WebhookHandler) CalendarPing(c *gin.Context) {
	state := c.GetHeader("X-Goog-Resource-State")
	if state == "sync" {
		// Registration confirmation ping, nothing changed yet
		c.Status(http.StatusOK)
		return
	}

	userID := c.GetHeader("X-Goog-Channel-Token")
	if userID == "" {
		c.Status(http.StatusOK)
		return
	}

	user, err := h.users.FindByID(userID)
	if err != nil || user == nil {
		log.Printf("[Webhook] calendar ping for unknown user %q", userID)
		c.Status(http.StatusOK)
		return
	}

	h.jobs.Submit(worker.Job{
		Name: "calendar-sync:" + user.ID,
		Run: func(ctx context.Context) {
			if err := h.calendarSync.SyncUser(ctx, user); err != nil {
				log.Printf("[Webhook] calendar sync failed for user %s: %v", user.ID, err)
			}
		},
	})
	c.Status(http.StatusOK)
}
