package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	authdomain "taskmind-backend/internal/auth/domain"
	authrepo "taskmind-backend/internal/auth/repository"
	authusecase "taskmind-backend/internal/auth/usecase"
	"taskmind-backend/internal/conversation/dto"
	convusecase "taskmind-backend/internal/conversation/usecase"
	sourcedomain "taskmind-backend/internal/source/domain"
	sourcerepo "taskmind-backend/internal/source/repository"
	"taskmind-backend/pkg/gmail"
	"taskmind-backend/pkg/redislock"
)

const (
	gmailLockPrefix = "taskmind:gmail_lock:"
	backfillQuery   = "newer_than:1d"
	backfillPage    = 50
)

// watchRenewalWindow renews a watch this long before Gmail's 7-day expiry
const watchRenewalWindow = 24 * time.Hour

type gmailCursor struct {
	HistoryID string `json:"history_id"`
}

// GmailSyncService keeps a user's Gmail conversations in sync and runs new
// threads through the extraction pipeline.
type GmailSyncService struct {
	gmail    *gmail.Service
	locker   *redislock.Locker
	lockTTL  time.Duration
	users    authrepo.UserRepository
	settings sourcerepo.SourceSettingRepository
	ingest   convusecase.IngestUsecase
	pipeline *ExtractionPipeline
	cipher   *authusecase.TokenCipher
	topic    string
}

func NewGmailSyncService(gmailService *gmail.Service, locker *redislock.Locker, lockTTL time.Duration, users authrepo.UserRepository, settings sourcerepo.SourceSettingRepository, ingest convusecase.IngestUsecase, pipeline *ExtractionPipeline, cipher *authusecase.TokenCipher, topic string) *GmailSyncService {
	return &GmailSyncService{
		gmail:    gmailService,
		locker:   locker,
		lockTTL:  lockTTL,
		users:    users,
		settings: settings,
		ingest:   ingest,
		pipeline: pipeline,
		cipher:   cipher,
		topic:    topic,
	}
}

// SyncUser runs one incremental sync for the user. The whole run holds the
// per-user advisory lock; when another run already holds it this one skips,
// the in-flight run will pick up the same history anyway.
func (s *GmailSyncService) SyncUser(ctx context.Context, user *authdomain.User) error {
	lease, err := s.locker.TryAcquire(ctx, gmailLockPrefix+user.ID, s.lockTTL)
	if err != nil {
		return err
	}
	if lease == nil {
		log.Printf("[GmailSync] sync already running for user %s, skipping", user.ID)
		return nil
	}
	defer lease.Release(ctx)

	setting, err := s.settings.FindByUserAndSource(user.ID, sourcedomain.SourceGmail)
	if err != nil {
		return err
	}
	if setting != nil && !setting.Enabled {
		return nil
	}
	if setting == nil {
		setting = &sourcedomain.SourceSetting{
			UserID:  user.ID,
			Source:  sourcedomain.SourceGmail,
			Enabled: true,
		}
	}

	connector, err := s.connectorFor(ctx, user)
	if err != nil {
		return err
	}

	startHistoryID := s.cursorFor(setting, user)
	if startHistoryID == 0 {
		return s.initialBackfill(ctx, connector, user, setting)
	}

	history, err := connector.ListHistory(ctx, startHistoryID)
	if err != nil {
		var apiErr *gmail.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
			// Cursor too old for Gmail's history window; re-baseline
			log.Printf("[GmailSync] history cursor expired for user %s, re-registering watch", user.ID)
			return s.RegisterWatch(ctx, connector, user, setting)
		}
		return err
	}

	for _, threadID := range history.ThreadIDsAdded {
		if err := s.syncThread(ctx, connector, user, threadID); err != nil {
			log.Printf("[GmailSync] thread %s failed for user %s: %v", threadID, user.ID, err)
		}
	}

	if history.HistoryID != "" {
		if err := s.saveCursor(setting, history.HistoryID); err != nil {
			return err
		}
	}
	log.Printf("[GmailSync] user %s: processed %d threads", user.ID, len(history.ThreadIDsAdded))
	return nil
}

// initialBackfill ingests the last day of mail for a user without a history
// cursor, then registers a watch to establish the baseline.
func (s *GmailSyncService) initialBackfill(ctx context.Context, connector *gmail.Connector, user *authdomain.User, setting *sourcedomain.SourceSetting) error {
	log.Printf("[GmailSync] initial backfill for user %s", user.ID)

	pageToken := ""
	for {
		page, err := connector.ListThreads(ctx, backfillQuery, backfillPage, pageToken)
		if err != nil {
			return err
		}
		for _, summary := range page.Threads {
			if err := s.syncThread(ctx, connector, user, summary.ThreadID); err != nil {
				log.Printf("[GmailSync] backfill thread %s failed for user %s: %v", summary.ThreadID, user.ID, err)
			}
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	return s.RegisterWatch(ctx, connector, user, setting)
}

// syncThread fetches one thread, ingests it and runs extraction
func (s *GmailSyncService) syncThread(ctx context.Context, connector *gmail.Connector, user *authdomain.User, threadID string) error {
	thread, err := connector.GetThread(ctx, threadID)
	if err != nil {
		return err
	}

	payload := threadToIngest(user, thread)
	if payload == nil {
		return nil
	}

	conversation, err := s.ingest.Ingest(payload)
	if err != nil {
		return err
	}
	return s.pipeline.ProcessConversation(ctx, conversation)
}

// RegisterWatch (re)registers the Pub/Sub watch and stores the returned
// history ID as the new sync baseline.
func (s *GmailSyncService) RegisterWatch(ctx context.Context, connector *gmail.Connector, user *authdomain.User, setting *sourcedomain.SourceSetting) error {
	historyID, expiry, err := connector.Watch(ctx, s.topic)
	if err != nil {
		return err
	}

	setting.WatchExpiry = &expiry
	if err := s.saveCursor(setting, historyID); err != nil {
		return err
	}
	log.Printf("[GmailSync] watch registered for user %s (expires %s)", user.ID, expiry.Format(time.RFC3339))
	return nil
}

// RenewWatches re-registers every enabled Gmail watch that is missing or
// expiring within the renewal window.
func (s *GmailSyncService) RenewWatches(ctx context.Context) {
	settings, err := s.settings.FindEnabledBySource(sourcedomain.SourceGmail)
	if err != nil {
		log.Printf("[GmailSync] could not list settings for watch renewal: %v", err)
		return
	}

	threshold := time.Now().UTC().Add(watchRenewalWindow)
	for _, setting := range settings {
		if setting.WatchExpiry != nil && setting.WatchExpiry.After(threshold) {
			continue
		}

		user, err := s.users.FindByID(setting.UserID)
		if err != nil || user == nil {
			continue
		}
		connector, err := s.connectorFor(ctx, user)
		if err != nil {
			log.Printf("[GmailSync] cannot renew watch for user %s: %v", user.ID, err)
			continue
		}
		if err := s.RegisterWatch(ctx, connector, user, setting); err != nil {
			log.Printf("[GmailSync] watch renewal failed for user %s: %v", user.ID, err)
		}
	}
}

func (s *GmailSyncService) connectorFor(ctx context.Context, user *authdomain.User) (*gmail.Connector, error) {
	if user.EncryptedRefreshToken == "" {
		return nil, fmt.Errorf("user %s has no stored refresh token", user.ID)
	}
	refreshToken, err := s.cipher.Decrypt(user.EncryptedRefreshToken)
	if err != nil {
		return nil, fmt.Errorf("could not decrypt refresh token for user %s: %w", user.ID, err)
	}
	return s.gmail.Connector(ctx, refreshToken)
}

// cursorFor reads the history cursor from the source setting, falling back
// to the legacy per-user column. Zero means no baseline yet.
func (s *GmailSyncService) cursorFor(setting *sourcedomain.SourceSetting, user *authdomain.User) uint64 {
	raw := ""
	if setting.SyncCursor != "" {
		var cursor gmailCursor
		if err := json.Unmarshal([]byte(setting.SyncCursor), &cursor); err == nil {
			raw = cursor.HistoryID
		}
	}
	if raw == "" {
		raw = user.GmailHistoryID
	}
	if raw == "" {
		return 0
	}

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func (s *GmailSyncService) saveCursor(setting *sourcedomain.SourceSetting, historyID string) error {
	encoded, err := json.Marshal(gmailCursor{HistoryID: historyID})
	if err != nil {
		return err
	}
	setting.SyncCursor = string(encoded)
	return s.settings.Upsert(setting)
}

// threadToIngest converts a fetched thread into an ingest payload. Messages
// the user sent are marked so downstream prompts can attribute them.
func threadToIngest(user *authdomain.User, thread *gmail.ThreadDetail) *dto.IngestRequest {
	if len(thread.Messages) == 0 {
		return nil
	}

	payload := &dto.IngestRequest{
		Source:               sourcedomain.SourceGmail,
		UserID:               user.ID,
		ConversationSourceID: thread.ThreadID,
		Subject:              thread.Messages[0].Subject,
	}

	userEmail := strings.ToLower(user.Email)
	for _, msg := range thread.Messages {
		payload.Messages = append(payload.Messages, dto.IngestMessage{
			SourceID:     msg.MessageID,
			SenderName:   msg.Sender.Name,
			SenderHandle: msg.Sender.Email,
			BodyText:     msg.BodyPlain,
			BodyHTML:     msg.BodyHTML,
			SentAt:       msg.Date,
			IsFromUser:   strings.ToLower(msg.Sender.Email) == userEmail,
			RawMetadata:  map[string]interface{}{"labels": msg.Labels},
		})
	}
	return payload
}
