package delivery

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	authdelivery "taskmind-backend/internal/auth/delivery"
	authdomain "taskmind-backend/internal/auth/domain"
	sourcedomain "taskmind-backend/internal/source/domain"
	"taskmind-backend/internal/source/dto"
	"taskmind-backend/internal/source/usecase"
	"taskmind-backend/internal/sync"
	"taskmind-backend/internal/worker"
)

// JobQueue accepts background jobs
type JobQueue interface {
	Submit(job worker.Job) bool
}

// SourceHandler handles per-user source setting endpoints
type SourceHandler struct {
	sourceUsecase usecase.SourceUsecase
	gmailSync     *sync.GmailSyncService
	calendarSync  *sync.CalendarSyncService
	imapSync      *sync.IMAPSyncService
	jobs          JobQueue
}

func NewSourceHandler(sourceUsecase usecase.SourceUsecase, gmailSync *sync.GmailSyncService, calendarSync *sync.CalendarSyncService, imapSync *sync.IMAPSyncService, jobs JobQueue) *SourceHandler {
	return &SourceHandler{
		sourceUsecase: sourceUsecase,
		gmailSync:     gmailSync,
		calendarSync:  calendarSync,
		imapSync:      imapSync,
		jobs:          jobs,
	}
}

// GetSources lists every source with the user's current setting
func (h *SourceHandler) GetSources(c *gin.Context) {
	userID := c.GetString("userID")

	sources, err := h.sourceUsecase.ListSources(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list sources"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sources": sources})
}

// UpdateSource enables or disables one source. Enabling kicks off an initial
// sync (and watch registration where the source supports it) in the
// background.
func (h *SourceHandler) UpdateSource(c *gin.Context) {
	user := authdelivery.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	source := c.Param("source")

	var req dto.UpdateSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	encryptedConfig := ""
	if source == sourcedomain.SourceIMAP && req.Enabled {
		if req.IMAP == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "imap credentials required"})
			return
		}
		encoded, err := h.imapSync.EncodeConfig(sync.IMAPConfig{
			Host:     req.IMAP.Host,
			Username: req.IMAP.Username,
			Password: req.IMAP.Password,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store credentials"})
			return
		}
		encryptedConfig = encoded
	}

	setting, err := h.sourceUsecase.SetSourceEnabled(user.ID, source, req.Enabled, encryptedConfig)
	if err != nil {
		if errors.Is(err, usecase.ErrUnknownSource) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown source"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update source"})
		return
	}

	if req.Enabled {
		h.queueInitialSync(user, source, setting)
	}

	c.JSON(http.StatusOK, setting)
}

func (h *SourceHandler) queueInitialSync(user *authdomain.User, source string, setting *sourcedomain.SourceSetting) {
	h.jobs.Submit(worker.Job{
		Name: source + "-enable:" + user.ID,
		Run: func(ctx context.Context) {
			var err error
			switch source {
			case sourcedomain.SourceGmail:
				err = h.gmailSync.SyncUser(ctx, user)
			case sourcedomain.SourceCalendar:
				if watchErr := h.calendarSync.RegisterWatch(ctx, user, setting); watchErr != nil {
					log.Printf("[Sources] calendar watch registration failed for user %s: %v", user.ID, watchErr)
				}
				err = h.calendarSync.SyncUser(ctx, user)
			case sourcedomain.SourceIMAP:
				err = h.imapSync.SyncUser(ctx, user)
			}
			if err != nil {
				log.Printf("[Sources] initial %s sync failed for user %s: %v", source, user.ID, err)
			}
		},
	})
}
