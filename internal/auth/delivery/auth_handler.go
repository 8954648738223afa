package delivery

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	authdomain "taskmind-backend/internal/auth/domain"
	"taskmind-backend/internal/auth/usecase"
	"taskmind-backend/internal/worker"
)

// UserSyncer starts a source sync for a user, used to kick off the initial
// backfill right after first sign-in.
type UserSyncer interface {
	SyncUser(ctx context.Context, user *authdomain.User) error
}

// JobQueue accepts background jobs
type JobQueue interface {
	Submit(job worker.Job) bool
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authUsecase usecase.AuthUsecase
	syncer      UserSyncer
	jobs        JobQueue
}

func NewAuthHandler(authUsecase usecase.AuthUsecase, syncer UserSyncer, jobs JobQueue) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
		syncer:      syncer,
		jobs:        jobs,
	}
}

type googleSignInRequest struct {
	Code string `json:"code" binding:"required"`
}

// GoogleSignIn exchanges the OAuth authorization code for an access token.
// First sign-ins trigger the initial mailbox backfill in the background.
func (h *AuthHandler) GoogleSignIn(c *gin.Context) {
	var req googleSignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization code required"})
		return
	}

	response, err := h.authUsecase.GoogleSignIn(c.Request.Context(), req.Code)
	if err != nil {
		log.Printf("[Auth] Google sign-in failed: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "google sign-in failed"})
		return
	}

	if response.NewUser && h.syncer != nil && h.jobs != nil {
		user := response.User
		h.jobs.Submit(worker.Job{
			Name: "initial-backfill:" + user.ID,
			Run: func(ctx context.Context) {
				if err := h.syncer.SyncUser(ctx, user); err != nil {
					log.Printf("[Auth] initial backfill failed for user %s: %v", user.ID, err)
				}
			},
		})
	}

	c.JSON(http.StatusOK, response)
}

// Me returns the authenticated user
func (h *AuthHandler) Me(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, user)
}

type registerTokenRequest struct {
	Token      string `json:"token" binding:"required"`
	DeviceInfo string `json:"device_info"`
}

// RegisterFCMToken stores a device push token for the authenticated user
func (h *AuthHandler) RegisterFCMToken(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req registerTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
		return
	}

	if err := h.authUsecase.RegisterFCMToken(user.ID, req.Token, req.DeviceInfo); err != nil {
		log.Printf("[Auth] could not register FCM token for user %s: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not register token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "registered"})
}

// UnregisterFCMToken removes a device push token
func (h *AuthHandler) UnregisterFCMToken(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
		return
	}

	if err := h.authUsecase.UnregisterFCMToken(token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not unregister token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unregistered"})
}
