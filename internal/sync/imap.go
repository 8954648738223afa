package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	authdomain "taskmind-backend/internal/auth/domain"
	authrepo "taskmind-backend/internal/auth/repository"
	authusecase "taskmind-backend/internal/auth/usecase"
	"taskmind-backend/internal/conversation/dto"
	convusecase "taskmind-backend/internal/conversation/usecase"
	sourcedomain "taskmind-backend/internal/source/domain"
	sourcerepo "taskmind-backend/internal/source/repository"
	"taskmind-backend/pkg/imap"
)

const imapDefaultLookback = 24 * time.Hour

type imapCursor struct {
	Since string `json:"since"` // RFC3339
}

// IMAPConfig is the credential blob stored (encrypted) in the source setting
type IMAPConfig struct {
	Host     string `json:"host"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// IMAPSyncService polls recent mail for users with configured IMAP accounts,
// the ingestion path for mailboxes outside Google.
type IMAPSyncService struct {
	imap     *imap.Service
	users    authrepo.UserRepository
	settings sourcerepo.SourceSettingRepository
	ingest   convusecase.IngestUsecase
	pipeline *ExtractionPipeline
	cipher   *authusecase.TokenCipher
}

func NewIMAPSyncService(imapService *imap.Service, users authrepo.UserRepository, settings sourcerepo.SourceSettingRepository, ingest convusecase.IngestUsecase, pipeline *ExtractionPipeline, cipher *authusecase.TokenCipher) *IMAPSyncService {
	return &IMAPSyncService{
		imap:     imapService,
		users:    users,
		settings: settings,
		ingest:   ingest,
		pipeline: pipeline,
		cipher:   cipher,
	}
}

// SyncUser fetches mail received since the stored cursor and runs each
// message through ingest and extraction. Each message becomes its own
// conversation, IMAP gives no reliable threading.
func (s *IMAPSyncService) SyncUser(ctx context.Context, user *authdomain.User) error {
	setting, err := s.settings.FindByUserAndSource(user.ID, sourcedomain.SourceIMAP)
	if err != nil {
		return err
	}
	if setting == nil || !setting.Enabled || setting.ConfigEncrypted == "" {
		return nil
	}

	config, err := s.decodeConfig(setting.ConfigEncrypted)
	if err != nil {
		return fmt.Errorf("invalid IMAP config for user %s: %w", user.ID, err)
	}

	now := time.Now().UTC()
	since := s.cursorFor(setting, now)

	messages, err := s.imap.FetchSince(imap.Credentials{
		Host:     config.Host,
		Username: config.Username,
		Password: config.Password,
	}, since)
	if err != nil {
		return err
	}

	for _, msg := range messages {
		payload := &dto.IngestRequest{
			Source:               sourcedomain.SourceIMAP,
			UserID:               user.ID,
			ConversationSourceID: msg.MessageID,
			Subject:              msg.Subject,
			Messages: []dto.IngestMessage{{
				SourceID:     msg.MessageID,
				SenderName:   msg.SenderName,
				SenderHandle: msg.SenderEmail,
				BodyText:     msg.BodyText,
				SentAt:       msg.Date,
				IsFromUser:   false,
			}},
		}

		conversation, err := s.ingest.Ingest(payload)
		if err != nil {
			log.Printf("[IMAPSync] message %s failed for user %s: %v", msg.MessageID, user.ID, err)
			continue
		}
		if err := s.pipeline.ProcessConversation(ctx, conversation); err != nil {
			log.Printf("[IMAPSync] extraction failed for message %s: %v", msg.MessageID, err)
		}
	}

	if err := s.saveCursor(setting, now); err != nil {
		return err
	}
	log.Printf("[IMAPSync] user %s: processed %d messages", user.ID, len(messages))
	return nil
}

// SyncAll polls every user with an enabled IMAP source
func (s *IMAPSyncService) SyncAll(ctx context.Context) {
	settings, err := s.settings.FindEnabledBySource(sourcedomain.SourceIMAP)
	if err != nil {
		log.Printf("[IMAPSync] could not list enabled users: %v", err)
		return
	}

	for _, setting := range settings {
		user, err := s.users.FindByID(setting.UserID)
		if err != nil || user == nil {
			continue
		}
		if err := s.SyncUser(ctx, user); err != nil {
			log.Printf("[IMAPSync] sync failed for user %s: %v", user.ID, err)
		}
	}
}

// EncodeConfig encrypts credentials for storage in a source setting
func (s *IMAPSyncService) EncodeConfig(config IMAPConfig) (string, error) {
	raw, err := json.Marshal(config)
	if err != nil {
		return "", err
	}
	return s.cipher.Encrypt(string(raw))
}

func (s *IMAPSyncService) decodeConfig(encrypted string) (*IMAPConfig, error) {
	raw, err := s.cipher.Decrypt(encrypted)
	if err != nil {
		return nil, err
	}
	var config IMAPConfig
	if err := json.Unmarshal([]byte(raw), &config); err != nil {
		return nil, err
	}
	if config.Host == "" || config.Username == "" {
		return nil, fmt.Errorf("incomplete IMAP credentials")
	}
	return &config, nil
}

func (s *IMAPSyncService) cursorFor(setting *sourcedomain.SourceSetting, now time.Time) time.Time {
	if setting.SyncCursor != "" {
		var cursor imapCursor
		if err := json.Unmarshal([]byte(setting.SyncCursor), &cursor); err == nil && cursor.Since != "" {
			if since, err := time.Parse(time.RFC3339, cursor.Since); err == nil {
				return since
			}
		}
	}
	return now.Add(-imapDefaultLookback)
}

func (s *IMAPSyncService) saveCursor(setting *sourcedomain.SourceSetting, now time.Time) error {
	encoded, err := json.Marshal(imapCursor{Since: now.Format(time.RFC3339)})
	if err != nil {
		return err
	}
	setting.SyncCursor = string(encoded)
	return s.settings.Upsert(setting)
}
