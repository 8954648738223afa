package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	authdomain "taskmind-backend/internal/auth/domain"
	authrepo "taskmind-backend/internal/auth/repository"
	authusecase "taskmind-backend/internal/auth/usecase"
	"taskmind-backend/internal/conversation/dto"
	convusecase "taskmind-backend/internal/conversation/usecase"
	sourcedomain "taskmind-backend/internal/source/domain"
	sourcerepo "taskmind-backend/internal/source/repository"
	"taskmind-backend/pkg/calendar"
)

const (
	eventWindow    = 14 * 24 * time.Hour
	eventPageLimit = 100
)

type calendarCursor struct {
	ChannelID string `json:"channel_id"`
}

// CalendarSyncService ingests upcoming calendar events as conversations so
// the extraction pipeline can propose appointment tasks for them.
type CalendarSyncService struct {
	calendar   *calendar.Service
	users      authrepo.UserRepository
	settings   sourcerepo.SourceSettingRepository
	ingest     convusecase.IngestUsecase
	pipeline   *ExtractionPipeline
	cipher     *authusecase.TokenCipher
	webhookURL string
}

func NewCalendarSyncService(calendarService *calendar.Service, users authrepo.UserRepository, settings sourcerepo.SourceSettingRepository, ingest convusecase.IngestUsecase, pipeline *ExtractionPipeline, cipher *authusecase.TokenCipher, webhookURL string) *CalendarSyncService {
	return &CalendarSyncService{
		calendar:   calendarService,
		users:      users,
		settings:   settings,
		ingest:     ingest,
		pipeline:   pipeline,
		cipher:     cipher,
		webhookURL: webhookURL,
	}
}

// SyncUser ingests the user's upcoming events. Calendar sync only runs when
// the user explicitly enabled the source.
func (s *CalendarSyncService) SyncUser(ctx context.Context, user *authdomain.User) error {
	setting, err := s.settings.FindByUserAndSource(user.ID, sourcedomain.SourceCalendar)
	if err != nil {
		return err
	}
	if setting == nil || !setting.Enabled {
		return nil
	}

	connector, err := s.connectorFor(ctx, user)
	if err != nil {
		return err
	}

	events, err := connector.ListUpcomingEvents(ctx, eventWindow, eventPageLimit)
	if err != nil {
		return err
	}

	for _, event := range events {
		payload := eventToIngest(user.ID, event)
		conversation, err := s.ingest.Ingest(payload)
		if err != nil {
			log.Printf("[CalendarSync] event %s failed for user %s: %v", event.EventID, user.ID, err)
			continue
		}
		if err := s.pipeline.ProcessConversation(ctx, conversation); err != nil {
			log.Printf("[CalendarSync] extraction failed for event %s: %v", event.EventID, err)
		}
	}

	log.Printf("[CalendarSync] user %s: processed %d events", user.ID, len(events))
	return nil
}

// RegisterWatch opens a webhook channel for the user's primary calendar.
// The channel token carries the user ID so the webhook can route the ping.
func (s *CalendarSyncService) RegisterWatch(ctx context.Context, user *authdomain.User, setting *sourcedomain.SourceSetting) error {
	if s.webhookURL == "" {
		return nil
	}

	connector, err := s.connectorFor(ctx, user)
	if err != nil {
		return err
	}

	channelID := uuid.New().String()
	resourceID, expiry, err := connector.Watch(ctx, channelID, s.webhookURL, user.ID)
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(calendarCursor{ChannelID: channelID})
	if err != nil {
		return err
	}
	setting.SyncCursor = string(encoded)
	setting.WatchResourceID = resourceID
	setting.WatchExpiry = &expiry
	if err := s.settings.Upsert(setting); err != nil {
		return err
	}

	log.Printf("[CalendarSync] channel registered for user %s (expires %s)", user.ID, expiry.Format(time.RFC3339))
	return nil
}

// RenewWatches re-registers every enabled calendar channel that is missing
// or expiring within the renewal window.
func (s *CalendarSyncService) RenewWatches(ctx context.Context) {
	settings, err := s.settings.FindEnabledBySource(sourcedomain.SourceCalendar)
	if err != nil {
		log.Printf("[CalendarSync] could not list settings for channel renewal: %v", err)
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
		if err := s.RegisterWatch(ctx, user, setting); err != nil {
			log.Printf("[CalendarSync] channel renewal failed for user %s: %v", user.ID, err)
		}
	}
}

// SyncAll polls every enabled calendar user, the fallback path when no
// webhook URL is configured.
func (s *CalendarSyncService) SyncAll(ctx context.Context) {
	settings, err := s.settings.FindEnabledBySource(sourcedomain.SourceCalendar)
	if err != nil {
		log.Printf("[CalendarSync] could not list enabled users: %v", err)
		return
	}

	for _, setting := range settings {
		user, err := s.users.FindByID(setting.UserID)
		if err != nil || user == nil {
			continue
		}
		if err := s.SyncUser(ctx, user); err != nil {
			log.Printf("[CalendarSync] sync failed for user %s: %v", user.ID, err)
		}
	}
}

func (s *CalendarSyncService) connectorFor(ctx context.Context, user *authdomain.User) (*calendar.Connector, error) {
	if user.EncryptedRefreshToken == "" {
		return nil, fmt.Errorf("user %s has no stored refresh token", user.ID)
	}
	refreshToken, err := s.cipher.Decrypt(user.EncryptedRefreshToken)
	if err != nil {
		return nil, fmt.Errorf("could not decrypt refresh token for user %s: %w", user.ID, err)
	}
	return s.calendar.Connector(ctx, refreshToken)
}

// eventToIngest renders one event as a single-message conversation. The
// message source ID includes the event's updated stamp so edits re-ingest
// while unchanged events stay deduplicated.
func eventToIngest(userID string, event calendar.Event) *dto.IngestRequest {
	var body []string
	body = append(body, fmt.Sprintf("Event: %s", event.Summary))
	if !event.Start.IsZero() {
		body = append(body, fmt.Sprintf("Starts: %s", event.Start.Format(time.RFC3339)))
	}
	if !event.End.IsZero() {
		body = append(body, fmt.Sprintf("Ends: %s", event.End.Format(time.RFC3339)))
	}
	if event.Location != "" {
		body = append(body, "Location: "+event.Location)
	}
	if len(event.Attendees) > 0 {
		body = append(body, "Attendees: "+strings.Join(event.Attendees, ", "))
	}
	if event.Description != "" {
		body = append(body, "", event.Description)
	}

	sentAt := event.Updated
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}

	return &dto.IngestRequest{
		Source:               sourcedomain.SourceCalendar,
		UserID:               userID,
		ConversationSourceID: event.EventID,
		Subject:              event.Summary,
		Messages: []dto.IngestMessage{{
			SourceID:     event.EventID + "@" + sentAt.Format(time.RFC3339),
			SenderName:   event.Organizer,
			SenderHandle: event.Organizer,
			BodyText:     strings.Join(body, "\n"),
			SentAt:       sentAt,
			IsFromUser:   false,
			RawMetadata: map[string]interface{}{
				"event_start": event.Start.Format(time.RFC3339),
				"event_end":   event.End.Format(time.RFC3339),
			},
		}},
	}
}
